// Package worker provides the goroutine pool that services asynchronous
// pack entries and pre-generation, together with an order-preserving
// parallel fan-out helper.
package worker

import (
	"context"
	"fmt"
	"sync"
)

// Pool is a fixed set of worker goroutines draining an unbounded FIFO
// queue. Submit never blocks, so a running task may submit more work to its
// own pool. Tasks are never cancelled by the pool; Close waits for queued
// work to finish. All methods are safe for concurrent use.
type Pool struct {
	threads int
	wg      sync.WaitGroup

	mu     sync.Mutex
	ready  *sync.Cond
	queue  []func()
	closed bool
}

// NewPool starts cfg.Threads workers. Zero values fall back to DefaultConfig.
func NewPool(cfg Config) *Pool {
	def := DefaultConfig()
	def.Merge(&cfg)

	p := &Pool{
		threads: def.Threads,
		queue:   make([]func(), 0, def.QueueSize),
	}
	p.ready = sync.NewCond(&p.mu)

	p.wg.Add(def.Threads)
	for range def.Threads {
		go func() {
			defer p.wg.Done()
			for {
				job, ok := p.next()
				if !ok {
					return
				}
				job()
			}
		}()
	}

	return p
}

// next blocks until a job is queued or the pool is closed and drained.
func (p *Pool) next() (func(), bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for len(p.queue) == 0 {
		if p.closed {
			return nil, false
		}
		p.ready.Wait()
	}

	job := p.queue[0]
	p.queue[0] = nil
	p.queue = p.queue[1:]
	return job, true
}

// Threads returns the number of worker goroutines.
func (p *Pool) Threads() int {
	return p.threads
}

// Pending reports how many submitted tasks are waiting for a worker.
func (p *Pool) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queue)
}

// Close stops accepting work, waits for queued tasks to finish and stops the
// workers. Tasks already queued may still submit follow-up work until the
// queue drains; those submissions fail with ErrPoolClosed. Calling Close
// more than once is a no-op.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.ready.Broadcast()
	p.mu.Unlock()

	p.wg.Wait()
}

// Submit queues task on p and returns its future. It fails without queuing
// when the pool is closed (ErrPoolClosed) or ctx is already done. The task
// runs with a context that keeps ctx's values but is never cancelled.
func Submit[T any](ctx context.Context, p *Pool, task func(ctx context.Context) (T, error)) (*Future[T], error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f := newFuture[T]()
	taskCtx := context.WithoutCancel(ctx)

	job := func() {
		defer func() {
			if r := recover(); r != nil {
				var zero T
				f.complete(zero, fmt.Errorf("%w: %v", ErrTaskPanic, r))
			}
		}()
		v, err := task(taskCtx)
		f.complete(v, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, ErrPoolClosed
	}
	p.queue = append(p.queue, job)
	p.ready.Signal()
	return f, nil
}

// Go queues a task that produces no value.
func (p *Pool) Go(ctx context.Context, task func(ctx context.Context) error) (*Future[struct{}], error) {
	return Submit(ctx, p, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, task(ctx)
	})
}
