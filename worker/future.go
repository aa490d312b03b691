package worker

import (
	"context"
	"sync"
)

// Future is the pending result of a task submitted to a Pool. It resolves
// exactly once; every Wait after resolution returns the same value and error.
type Future[T any] struct {
	done  chan struct{}
	once  sync.Once
	value T
	err   error
}

func newFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// Resolved returns a future that is already complete with v.
func Resolved[T any](v T) *Future[T] {
	f := newFuture[T]()
	f.complete(v, nil)
	return f
}

// Failed returns a future that is already complete with err.
func Failed[T any](err error) *Future[T] {
	f := newFuture[T]()
	var zero T
	f.complete(zero, err)
	return f
}

func (f *Future[T]) complete(v T, err error) {
	f.once.Do(func() {
		f.value = v
		f.err = err
		close(f.done)
	})
}

// Done is closed once the result is available.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the task finishes or ctx is done. Cancelling ctx stops
// the wait only; the task itself keeps running.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
