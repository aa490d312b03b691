package rrp

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/tailored-agentic-units/rrp/observability"
	"github.com/tailored-agentic-units/rrp/worker"
)

// Generator fills packs ahead of resource loading. It runs once on the
// shared pool during Pregenerate.
type Generator func(ctx context.Context, r *Runtime) error

type pregenTask struct {
	name   string
	future *worker.Future[struct{}]
}

// RegisterPregen adds a named generator. Registration closes once
// Pregenerate has been called.
func (r *Runtime) RegisterPregen(name string, gen Generator) error {
	if name == "" {
		return ErrEmptyName
	}
	if gen == nil {
		return fmt.Errorf("%w: nil generator %s", ErrInvalidConfig, name)
	}

	r.pregenMu.Lock()
	defer r.pregenMu.Unlock()

	if r.started {
		return fmt.Errorf("%w: %s", ErrPregenStarted, name)
	}
	if _, exists := r.generators[name]; exists {
		return fmt.Errorf("%w: %s", ErrPregenExists, name)
	}
	r.generators[name] = gen
	return nil
}

// Pregenerate submits every registered generator to the pool, in name
// order, and returns without waiting. Only the first call submits work.
func (r *Runtime) Pregenerate(ctx context.Context) error {
	r.mu.RLock()
	closed := r.closed
	r.mu.RUnlock()
	if closed {
		return ErrClosed
	}

	r.pregenMu.Lock()
	defer r.pregenMu.Unlock()

	if r.started {
		return nil
	}
	r.started = true

	names := make([]string, 0, len(r.generators))
	for name := range r.generators {
		names = append(names, name)
	}
	slices.Sort(names)

	r.emit(ctx, EventPregenStart, observability.LevelInfo, map[string]any{
		"generators": len(names),
		"threads":    r.pool.Threads(),
		"queued":     r.pool.Pending(),
	})

	for _, name := range names {
		gen := r.generators[name]
		future, err := r.pool.Go(ctx, func(ctx context.Context) error {
			start := time.Now()
			err := gen(ctx, r)
			if r.cfg.DebugPerformance || err != nil {
				level := observability.LevelVerbose
				if err != nil {
					level = observability.LevelError
				}
				r.emit(ctx, EventPregenTask, level, map[string]any{
					"name":        name,
					"duration_ms": time.Since(start).Milliseconds(),
					"error":       err != nil,
				})
			}
			return err
		})
		if err != nil {
			future = worker.Failed[struct{}](fmt.Errorf("submit %s: %w", name, err))
		}
		r.pending = append(r.pending, pregenTask{name: name, future: future})
	}
	return nil
}

// WaitForPregen is the pre-generation barrier. It blocks until every
// generator submitted by Pregenerate finished or ctx is done. Cancellation
// returns ctx's error and leaves the generators running. Generator failures
// are collected into a *worker.ParallelError[string] keyed by name.
func (r *Runtime) WaitForPregen(ctx context.Context) error {
	r.pregenMu.Lock()
	pending := slices.Clone(r.pending)
	r.pregenMu.Unlock()

	start := time.Now()
	var failed []worker.TaskError[string]
	for i, task := range pending {
		if _, err := task.future.Wait(ctx); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			failed = append(failed, worker.TaskError[string]{Index: i, Item: task.name, Err: err})
		}
	}

	r.emit(ctx, EventPregenComplete, observability.LevelInfo, map[string]any{
		"generators":  len(pending),
		"failed":      len(failed),
		"duration_ms": time.Since(start).Milliseconds(),
	})

	if len(failed) > 0 {
		return &worker.ParallelError[string]{Errors: failed}
	}
	return nil
}
