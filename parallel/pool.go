package parallel

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/hearth-engine/hearth/internal/logging"
)

// State is the lifecycle state of a ThreadPool.
type State uint8

// Pool states. Transitions only move forward: Running -> ShuttingDown -> Stopped.
const (
	Running State = iota
	ShuttingDown
	Stopped
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Running:
		return "Running"
	case ShuttingDown:
		return "ShuttingDown"
	case Stopped:
		return "Stopped"
	default:
		return fmt.Sprintf("State(%d)", uint8(s))
	}
}

// task is a queued unit of work. drop resolves the task's future when the
// pool discards it without running it.
type task struct {
	run  func()
	drop func()
}

// ThreadPool is a fixed set of worker goroutines consuming a priority-ordered
// task queue.
//
// Thread safety: ThreadPool is safe for concurrent use.
type ThreadPool struct {
	name    string
	workers int

	mu     sync.Mutex
	cond   *sync.Cond
	queues [numPriorities]fifo[task]
	queued int
	active int
	state  State
	paused bool

	wg sync.WaitGroup
}

// PoolOption configures a ThreadPool.
type PoolOption func(*ThreadPool)

// WithName sets the name the pool logs under.
func WithName(name string) PoolOption {
	return func(p *ThreadPool) {
		p.name = name
	}
}

// WithStartPaused creates the pool with scheduling paused; tasks queue up
// until Resume is called.
func WithStartPaused() PoolOption {
	return func(p *ThreadPool) {
		p.paused = true
	}
}

// NewThreadPool creates a pool with the specified number of workers.
// If workers is 0 or negative, GOMAXPROCS is used.
// The pool starts immediately and workers begin waiting for work.
func NewThreadPool(workers int, opts ...PoolOption) *ThreadPool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	p := &ThreadPool{
		name:    "pool",
		workers: workers,
	}
	p.cond = sync.NewCond(&p.mu)
	for _, opt := range opts {
		opt(p)
	}

	p.wg.Add(workers)
	for range workers {
		go p.worker()
	}

	logging.Logger().Debug("parallel: thread pool started", "name", p.name, "workers", workers)
	return p
}

// worker is the main loop for each worker goroutine.
func (p *ThreadPool) worker() {
	defer p.wg.Done()

	for {
		p.mu.Lock()
		for p.state == Running && (p.paused || p.queued == 0) {
			p.cond.Wait()
		}
		if p.state != Running {
			p.mu.Unlock()
			return
		}
		t := p.popLocked()
		p.active++
		p.mu.Unlock()

		t.run()

		p.mu.Lock()
		p.active--
		p.mu.Unlock()
	}
}

// popLocked removes the oldest task of the highest non-empty priority.
// Caller must hold p.mu and guarantee p.queued > 0.
func (p *ThreadPool) popLocked() task {
	for i := range p.queues {
		if p.queues[i].len() > 0 {
			p.queued--
			return p.queues[i].pop()
		}
	}
	panic("parallel: popLocked on empty pool")
}

// enqueue adds t at priority. Returns false if the pool no longer accepts
// work, in which case t was not queued.
func (p *ThreadPool) enqueue(priority Priority, t task) bool {
	if int(priority) >= numPriorities {
		panic(fmt.Sprintf("parallel: invalid priority %d", uint8(priority)))
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != Running {
		return false
	}
	p.queues[priority].push(t)
	p.queued++
	p.cond.Signal()
	return true
}

// Submit queues fn at the given priority and returns a future for its
// result. A panic in fn is recovered and reported as a *PanicError.
// Submitting to a pool that is shutting down or stopped returns a future
// already failed with ErrPoolStopped.
func Submit[T any](p *ThreadPool, priority Priority, fn func() (T, error)) *Future[T] {
	f := newFuture[T]()
	if !p.enqueue(priority, futureTask(f, fn, nil)) {
		return failedFuture[T](ErrPoolStopped)
	}
	return f
}

// Go queues fn at the given priority. The returned future resolves with a
// nil error when fn returns, or a *PanicError if it panics.
func (p *ThreadPool) Go(priority Priority, fn func()) *Future[struct{}] {
	return Submit(p, priority, func() (struct{}, error) {
		fn()
		return struct{}{}, nil
	})
}

// ExecuteAll runs every function in work at the given priority and waits
// for all of them. Returns the first error among the futures, which is
// ErrPoolStopped if the pool stopped before the work ran.
func (p *ThreadPool) ExecuteAll(priority Priority, work []func()) error {
	futures := make([]*Future[struct{}], 0, len(work))
	for _, fn := range work {
		futures = append(futures, p.Go(priority, fn))
	}

	var first error
	for _, f := range futures {
		if _, err := f.Get(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// futureTask builds the task that resolves f. release, if non-nil, runs
// when the task starts or when it is dropped.
func futureTask[T any](f *Future[T], fn func() (T, error), release func()) task {
	return task{
		run: func() {
			if release != nil {
				release()
			}
			f.run(fn)
		},
		drop: func() {
			if release != nil {
				release()
			}
			var zero T
			f.resolve(zero, ErrPoolStopped)
		},
	}
}

// Pause stops workers from starting new tasks. Running tasks continue.
func (p *ThreadPool) Pause() {
	p.mu.Lock()
	p.paused = true
	p.mu.Unlock()
}

// Resume lets workers start queued tasks again.
func (p *ThreadPool) Resume() {
	p.mu.Lock()
	p.paused = false
	p.cond.Broadcast()
	p.mu.Unlock()
}

// Shutdown stops the pool: no new work is accepted, queued tasks are
// dropped with ErrPoolStopped and every worker is joined. Tasks already
// running finish first. Shutdown is safe to call multiple times.
func (p *ThreadPool) Shutdown() {
	p.mu.Lock()
	if p.state != Running {
		p.mu.Unlock()
		p.wg.Wait()
		return
	}
	p.state = ShuttingDown
	var dropped []task
	for i := range p.queues {
		dropped = append(dropped, p.queues[i].drain()...)
	}
	p.queued = 0
	p.cond.Broadcast()
	p.mu.Unlock()

	for _, t := range dropped {
		t.drop()
	}
	p.wg.Wait()

	p.mu.Lock()
	p.state = Stopped
	p.mu.Unlock()

	logging.Logger().Debug("parallel: thread pool stopped", "name", p.name, "dropped", len(dropped))
}

// State returns the current lifecycle state.
func (p *ThreadPool) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Workers returns the number of workers in the pool.
func (p *ThreadPool) Workers() int {
	return p.workers
}

// QueuedTasks returns the number of tasks waiting to start.
func (p *ThreadPool) QueuedTasks() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.queued
}

// ActiveTasks returns the number of tasks currently running.
func (p *ThreadPool) ActiveTasks() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active
}
