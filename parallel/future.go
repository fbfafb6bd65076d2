package parallel

import (
	"errors"
	"fmt"
	"runtime/debug"
)

// Errors reported through futures.
var (
	// ErrPoolStopped is the result of a task submitted to a stopped pool or
	// dropped from the queue by Shutdown.
	ErrPoolStopped = errors.New("parallel: thread pool stopped")

	// ErrInvalidFuture is returned by Get on an invalid future, such as the
	// one WorkSet.Submit returns for a key that is already queued.
	ErrInvalidFuture = errors.New("parallel: invalid future")
)

// PanicError wraps a panic recovered from a task.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("parallel: task panicked: %v", e.Value)
}

// Unwrap returns the panic value if it is an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// closedChan is returned by Done on invalid futures so waiting never blocks.
var closedChan = func() chan struct{} {
	c := make(chan struct{})
	close(c)
	return c
}()

// Future is the eventual result of a task.
//
// A nil *Future and the zero Future are invalid. Results are written once,
// before Done is closed, and are immutable afterwards.
type Future[T any] struct {
	done  chan struct{}
	value T
	err   error
}

func newFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// Valid reports whether f is tied to a submitted task.
func (f *Future[T]) Valid() bool {
	return f != nil && f.done != nil
}

// Ready reports whether the result is available, without blocking.
// Invalid futures are never ready.
func (f *Future[T]) Ready() bool {
	if !f.Valid() {
		return false
	}
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Done returns a channel closed once the result is available.
// For an invalid future the channel is already closed.
func (f *Future[T]) Done() <-chan struct{} {
	if !f.Valid() {
		return closedChan
	}
	return f.done
}

// Wait blocks until the result is available.
func (f *Future[T]) Wait() {
	<-f.Done()
}

// Get blocks until the task finishes and returns its result. A task that
// panicked yields a *PanicError.
func (f *Future[T]) Get() (T, error) {
	if !f.Valid() {
		var zero T
		return zero, ErrInvalidFuture
	}
	<-f.done
	return f.value, f.err
}

// resolve stores the result and wakes waiters. Called exactly once.
func (f *Future[T]) resolve(v T, err error) {
	f.value = v
	f.err = err
	close(f.done)
}

// run executes fn and resolves f with its result or recovered panic.
func (f *Future[T]) run(fn func() (T, error)) {
	defer func() {
		if r := recover(); r != nil {
			var zero T
			f.resolve(zero, &PanicError{Value: r, Stack: debug.Stack()})
		}
	}()
	v, err := fn()
	f.resolve(v, err)
}

// failedFuture returns a future already resolved with err.
func failedFuture[T any](err error) *Future[T] {
	f := newFuture[T]()
	var zero T
	f.resolve(zero, err)
	return f
}
