package worker

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tailored-agentic-units/rrp/observability"
)

// Fan-out event types.
const (
	EventParallelStart    observability.EventType = "worker.parallel.start"
	EventParallelComplete observability.EventType = "worker.parallel.complete"
	EventTaskComplete     observability.EventType = "worker.task.complete"
)

// TaskProcessor processes a single item independently of all others.
type TaskProcessor[TItem, TResult any] func(ctx context.Context, item TItem) (TResult, error)

// outcome is the slot a goroutine fills for the item it claimed.
type outcome[TResult any] struct {
	result TResult
	err    error
	done   bool
}

// ProcessParallel runs processor over items on a short-lived set of
// goroutines and returns results in original item order. Goroutines claim
// items by index and write into a slot owned by that index, so no ordering
// pass over a result channel is needed.
//
// Worker count is cfg.MaxWorkers when positive, otherwise
// min(NumCPU*2, WorkerCap, len(items)).
//
// With FailFast the first error stops further items from being claimed and
// the call returns a *ParallelError. Without it every item is attempted and
// an error is returned only when all of them failed; partial failures are
// reported through ParallelResult.Errors. Items never claimed appear in
// neither slice.
func ProcessParallel[TItem, TResult any](
	ctx context.Context,
	cfg ParallelConfig,
	items []TItem,
	processor TaskProcessor[TItem, TResult],
) (ParallelResult[TItem, TResult], error) {
	observer, err := observability.GetObserver(cfg.Observer)
	if err != nil {
		return ParallelResult[TItem, TResult]{}, fmt.Errorf("failed to resolve observer: %w", err)
	}

	if len(items) == 0 {
		return ParallelResult[TItem, TResult]{
			Results: []TResult{},
			Errors:  []TaskError[TItem]{},
		}, nil
	}

	events := observability.Emitter{Observer: observer, Source: "worker.ProcessParallel"}
	workers := workerCount(cfg.MaxWorkers, cfg.WorkerCap, len(items))
	failFast := cfg.FailFast()
	start := time.Now()

	events.Emit(ctx, EventParallelStart, observability.LevelVerbose, map[string]any{
		"item_count":   len(items),
		"worker_count": workers,
		"fail_fast":    failFast,
	})

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	slots := make([]outcome[TResult], len(items))
	var next atomic.Int64
	var wg sync.WaitGroup

	for workerID := range workers {
		wg.Go(func() {
			for runCtx.Err() == nil {
				i := int(next.Add(1) - 1)
				if i >= len(items) {
					return
				}

				result, err := processor(runCtx, items[i])
				slots[i] = outcome[TResult]{result: result, err: err, done: true}

				events.Emit(ctx, EventTaskComplete, observability.LevelVerbose, map[string]any{
					"worker_id":  workerID,
					"item_index": i,
					"error":      err != nil,
				})

				if err != nil && failFast {
					cancel()
				}
			}
		})
	}
	wg.Wait()

	result := gather(items, slots)
	failed := ctx.Err() != nil || (len(result.Errors) > 0 && (failFast || len(result.Results) == 0))

	events.Emit(ctx, EventParallelComplete, observability.LevelVerbose, map[string]any{
		"items_processed": len(result.Results),
		"items_failed":    len(result.Errors),
		"duration_ms":     time.Since(start).Milliseconds(),
		"error":           failed,
	})

	switch {
	case ctx.Err() != nil:
		return result, fmt.Errorf("parallel execution cancelled: %w", ctx.Err())
	case failed:
		return result, &ParallelError[TItem]{Errors: result.Errors}
	}
	return result, nil
}

func workerCount(maxWorkers, workerCap, itemCount int) int {
	if maxWorkers > 0 {
		return maxWorkers
	}
	if workerCap <= 0 {
		workerCap = itemCount
	}
	return max(1, min(runtime.NumCPU()*2, workerCap, itemCount))
}

// gather splits the filled slots into dense, index-ordered slices.
func gather[TItem, TResult any](items []TItem, slots []outcome[TResult]) ParallelResult[TItem, TResult] {
	out := ParallelResult[TItem, TResult]{
		Results: make([]TResult, 0, len(slots)),
		Errors:  []TaskError[TItem]{},
	}
	for i, slot := range slots {
		switch {
		case !slot.done:
		case slot.err != nil:
			out.Errors = append(out.Errors, TaskError[TItem]{Index: i, Item: items[i], Err: slot.err})
		default:
			out.Results = append(out.Results, slot.result)
		}
	}
	return out
}
