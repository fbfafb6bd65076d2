package parallel

import "sync"

// WorkSet deduplicates ThreadPool submissions by key: while a task for a
// key is queued, further submissions for that key are refused.
//
// The key is released as soon as its task starts running. A caller can
// therefore queue the same key again while the previous run is still in
// progress; two runs for one key may overlap. Use SubmitAndSaveResult and
// DiscardFinished to learn when a run has actually finished.
//
// Thread safety: WorkSet is safe for concurrent use.
type WorkSet[K comparable, T any] struct {
	pool     *ThreadPool
	priority Priority

	mu          sync.Mutex
	outstanding map[K]struct{}
	// saved holds unharvested futures per id, oldest first.
	saved map[K][]*Future[T]
}

// WorkSetOption configures a WorkSet.
type WorkSetOption func(*workSetOptions)

type workSetOptions struct {
	priority Priority
}

// WithPriority sets the priority used for every submission. Default Normal.
func WithPriority(p Priority) WorkSetOption {
	return func(o *workSetOptions) {
		o.priority = p
	}
}

// NewWorkSet creates a work set submitting to pool.
func NewWorkSet[K comparable, T any](pool *ThreadPool, opts ...WorkSetOption) *WorkSet[K, T] {
	o := workSetOptions{priority: Normal}
	for _, opt := range opts {
		opt(&o)
	}
	return &WorkSet[K, T]{
		pool:        pool,
		priority:    o.priority,
		outstanding: make(map[K]struct{}),
		saved:       make(map[K][]*Future[T]),
	}
}

// Submit queues fn for id. If a task for id is already queued, Submit does
// nothing and returns an invalid future (Valid reports false).
func (w *WorkSet[K, T]) Submit(id K, fn func() (T, error)) *Future[T] {
	return w.submit(id, fn, false)
}

// SubmitAndSaveResult is Submit that also keeps the future under id until
// it is harvested by DiscardFinished, CollectFinished or
// WaitAndDiscardSaved. Because keys are released when a task starts, an id
// can be saved again while its earlier run is still in flight; both futures
// are kept and harvested separately.
func (w *WorkSet[K, T]) SubmitAndSaveResult(id K, fn func() (T, error)) *Future[T] {
	return w.submit(id, fn, true)
}

func (w *WorkSet[K, T]) submit(id K, fn func() (T, error), save bool) *Future[T] {
	w.mu.Lock()
	if _, busy := w.outstanding[id]; busy {
		w.mu.Unlock()
		return nil
	}
	f := newFuture[T]()
	w.outstanding[id] = struct{}{}
	if save {
		w.saved[id] = append(w.saved[id], f)
	}
	w.mu.Unlock()

	if !w.pool.enqueue(w.priority, futureTask(f, fn, func() { w.release(id) })) {
		w.release(id)
		var zero T
		f.resolve(zero, ErrPoolStopped)
	}
	return f
}

// release frees id for resubmission.
func (w *WorkSet[K, T]) release(id K) {
	w.mu.Lock()
	delete(w.outstanding, id)
	w.mu.Unlock()
}

// IsOutstanding reports whether a task for id is queued and not yet started.
func (w *WorkSet[K, T]) IsOutstanding(id K) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.outstanding[id]
	return ok
}

// Outstanding returns the number of queued, not yet started keys.
func (w *WorkSet[K, T]) Outstanding() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.outstanding)
}

// Saved returns the most recent unharvested future for id, if any.
func (w *WorkSet[K, T]) Saved(id K) (*Future[T], bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	fs := w.saved[id]
	if len(fs) == 0 {
		return nil, false
	}
	return fs[len(fs)-1], true
}

// SavedLen returns the number of saved futures not yet harvested.
func (w *WorkSet[K, T]) SavedLen() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	n := 0
	for _, fs := range w.saved {
		n += len(fs)
	}
	return n
}

// takeReadyLocked removes every ready saved future. ids[i] owns futures[i].
func (w *WorkSet[K, T]) takeReadyLocked() (ids []K, futures []*Future[T]) {
	for id, fs := range w.saved {
		kept := fs[:0]
		for _, f := range fs {
			if f.Ready() {
				ids = append(ids, id)
				futures = append(futures, f)
			} else {
				kept = append(kept, f)
			}
		}
		if len(kept) == 0 {
			delete(w.saved, id)
		} else {
			clear(fs[len(kept):])
			w.saved[id] = kept
		}
	}
	return ids, futures
}

// DiscardFinished removes every saved future that is ready and returns
// their ids, one entry per future. It never blocks on a running task.
func (w *WorkSet[K, T]) DiscardFinished() []K {
	w.mu.Lock()
	defer w.mu.Unlock()
	ids, _ := w.takeReadyLocked()
	return ids
}

// CollectFinished is DiscardFinished that also returns each result.
func (w *WorkSet[K, T]) CollectFinished(yield func(id K, value T, err error)) int {
	w.mu.Lock()
	ids, futures := w.takeReadyLocked()
	w.mu.Unlock()

	for i, id := range ids {
		v, err := futures[i].Get()
		yield(id, v, err)
	}
	return len(ids)
}

// WaitAndDiscardSaved blocks until every saved future has resolved, then
// forgets them. Futures saved while it waits are not waited for and are
// dropped only if they already finished.
func (w *WorkSet[K, T]) WaitAndDiscardSaved() {
	w.mu.Lock()
	var pending []*Future[T]
	for _, fs := range w.saved {
		pending = append(pending, fs...)
	}
	w.mu.Unlock()

	for _, f := range pending {
		f.Wait()
	}

	w.mu.Lock()
	w.takeReadyLocked()
	w.mu.Unlock()
}
