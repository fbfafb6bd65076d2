package parallel

import (
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// =============================================================================
// ThreadPool Creation Tests
// =============================================================================

func TestThreadPool_Create(t *testing.T) {
	pool := NewThreadPool(4)
	defer pool.Shutdown()

	if pool.Workers() != 4 {
		t.Errorf("Workers() = %d, want 4", pool.Workers())
	}
	if pool.State() != Running {
		t.Errorf("State() = %v, want Running", pool.State())
	}
}

func TestThreadPool_CreateZeroWorkers(t *testing.T) {
	pool := NewThreadPool(0)
	defer pool.Shutdown()

	expected := runtime.GOMAXPROCS(0)
	if pool.Workers() != expected {
		t.Errorf("Workers() = %d, want %d (GOMAXPROCS)", pool.Workers(), expected)
	}
}

// =============================================================================
// Submit / Future Tests
// =============================================================================

func TestThreadPool_SubmitReturnsResult(t *testing.T) {
	pool := NewThreadPool(2)
	defer pool.Shutdown()

	f := Submit(pool, Normal, func() (int, error) { return 42, nil })
	if !f.Valid() {
		t.Fatal("Submit returned an invalid future")
	}
	v, err := f.Get()
	if err != nil || v != 42 {
		t.Errorf("Get() = (%d, %v), want (42, nil)", v, err)
	}
	if !f.Ready() {
		t.Error("Ready() = false after Get returned")
	}
}

func TestThreadPool_SubmitPropagatesError(t *testing.T) {
	pool := NewThreadPool(1)
	defer pool.Shutdown()

	errMesh := errors.New("mesh failed")
	_, err := Submit(pool, High, func() (string, error) { return "", errMesh }).Get()
	if !errors.Is(err, errMesh) {
		t.Errorf("Get() error = %v, want %v", err, errMesh)
	}
}

func TestThreadPool_SubmitRecoversPanic(t *testing.T) {
	pool := NewThreadPool(1)
	defer pool.Shutdown()

	_, err := pool.Go(Normal, func() { panic("boom") }).Get()
	var pe *PanicError
	if !errors.As(err, &pe) {
		t.Fatalf("Get() error = %v, want *PanicError", err)
	}
	if pe.Value != "boom" {
		t.Errorf("PanicError.Value = %v, want boom", pe.Value)
	}

	// The worker survives the panic.
	v, err := Submit(pool, Normal, func() (int, error) { return 1, nil }).Get()
	if err != nil || v != 1 {
		t.Errorf("after panic Get() = (%d, %v), want (1, nil)", v, err)
	}
}

func TestThreadPool_ExecuteAll(t *testing.T) {
	pool := NewThreadPool(4)
	defer pool.Shutdown()

	var counter atomic.Int64
	work := make([]func(), 100)
	for i := range work {
		work[i] = func() { counter.Add(1) }
	}

	if err := pool.ExecuteAll(Normal, work); err != nil {
		t.Fatalf("ExecuteAll() error = %v", err)
	}
	if counter.Load() != 100 {
		t.Errorf("counter = %d, want 100", counter.Load())
	}
}

// =============================================================================
// Scheduling Tests
// =============================================================================

func TestThreadPool_HighBeforeLow(t *testing.T) {
	pool := NewThreadPool(1, WithStartPaused())
	defer pool.Shutdown()

	var mu sync.Mutex
	var order []Priority
	record := func(p Priority) func() {
		return func() {
			mu.Lock()
			order = append(order, p)
			mu.Unlock()
		}
	}

	var futures []*Future[struct{}]
	for range 5 {
		futures = append(futures, pool.Go(Low, record(Low)))
		futures = append(futures, pool.Go(High, record(High)))
	}
	if got := pool.QueuedTasks(); got != 10 {
		t.Errorf("QueuedTasks() = %d, want 10", got)
	}

	pool.Resume()
	for _, f := range futures {
		f.Wait()
	}

	for i, p := range order {
		want := High
		if i >= 5 {
			want = Low
		}
		if p != want {
			t.Fatalf("order = %v, want five High then five Low", order)
		}
	}
}

func TestThreadPool_FIFOWithinPriority(t *testing.T) {
	pool := NewThreadPool(1, WithStartPaused())
	defer pool.Shutdown()

	var order []int
	var futures []*Future[struct{}]
	for i := range 20 {
		futures = append(futures, pool.Go(Normal, func() { order = append(order, i) }))
	}
	// Immediate jumps the queue.
	futures = append(futures, pool.Go(Immediate, func() { order = append(order, -1) }))

	pool.Resume()
	for _, f := range futures {
		f.Wait()
	}

	if order[0] != -1 {
		t.Errorf("first task = %d, want the Immediate task", order[0])
	}
	for i := 1; i < len(order); i++ {
		if order[i] != i-1 {
			t.Fatalf("order = %v, want FIFO after the Immediate task", order)
		}
	}
}

func TestPriority_String(t *testing.T) {
	tests := []struct {
		p    Priority
		want string
	}{
		{Immediate, "Immediate"},
		{High, "High"},
		{Normal, "Normal"},
		{Low, "Low"},
		{Priority(9), "Priority(9)"},
	}
	for _, tt := range tests {
		if got := tt.p.String(); got != tt.want {
			t.Errorf("Priority(%d).String() = %q, want %q", uint8(tt.p), got, tt.want)
		}
	}
}

// =============================================================================
// Shutdown Tests
// =============================================================================

func TestThreadPool_ShutdownDropsQueuedTasks(t *testing.T) {
	pool := NewThreadPool(2, WithStartPaused())

	var ran atomic.Int32
	var futures []*Future[struct{}]
	for range 10 {
		futures = append(futures, pool.Go(Normal, func() { ran.Add(1) }))
	}

	pool.Shutdown()

	if ran.Load() != 0 {
		t.Errorf("%d queued tasks ran, want 0", ran.Load())
	}
	for i, f := range futures {
		if _, err := f.Get(); !errors.Is(err, ErrPoolStopped) {
			t.Errorf("future %d error = %v, want ErrPoolStopped", i, err)
		}
	}
	if pool.State() != Stopped {
		t.Errorf("State() = %v, want Stopped", pool.State())
	}
}

func TestThreadPool_ShutdownWaitsForRunningTask(t *testing.T) {
	pool := NewThreadPool(1)

	started := make(chan struct{})
	var finished atomic.Bool
	f := pool.Go(Normal, func() {
		close(started)
		time.Sleep(20 * time.Millisecond)
		finished.Store(true)
	})
	<-started

	pool.Shutdown()

	if !finished.Load() {
		t.Error("Shutdown returned before the running task finished")
	}
	if _, err := f.Get(); err != nil {
		t.Errorf("running task error = %v, want nil", err)
	}
}

func TestThreadPool_SubmitAfterShutdown(t *testing.T) {
	pool := NewThreadPool(1)
	pool.Shutdown()
	pool.Shutdown() // idempotent

	f := Submit(pool, Normal, func() (int, error) { return 1, nil })
	if _, err := f.Get(); !errors.Is(err, ErrPoolStopped) {
		t.Errorf("Get() error = %v, want ErrPoolStopped", err)
	}
}

func TestThreadPool_ConcurrentSubmit(t *testing.T) {
	pool := NewThreadPool(4)
	defer pool.Shutdown()

	var total atomic.Int64
	var wg sync.WaitGroup
	for g := range 8 {
		wg.Add(1)
		go func(base int) {
			defer wg.Done()
			for i := range 50 {
				v, err := Submit(pool, Priority(i%numPriorities), func() (int, error) {
					return base + i, nil
				}).Get()
				if err == nil {
					total.Add(int64(v))
				}
			}
		}(g * 1000)
	}
	wg.Wait()

	// sum over g of (50*g*1000 + 0+..+49)
	want := int64(0)
	for g := range 8 {
		want += int64(50*g*1000 + 49*50/2)
	}
	if total.Load() != want {
		t.Errorf("total = %d, want %d", total.Load(), want)
	}
}

// =============================================================================
// Future Tests
// =============================================================================

func TestFuture_Invalid(t *testing.T) {
	var f *Future[int]
	if f.Valid() {
		t.Error("nil future is Valid")
	}
	if f.Ready() {
		t.Error("nil future is Ready")
	}
	if _, err := f.Get(); !errors.Is(err, ErrInvalidFuture) {
		t.Errorf("Get() error = %v, want ErrInvalidFuture", err)
	}
	select {
	case <-f.Done():
	default:
		t.Error("Done() of an invalid future blocks")
	}
}
