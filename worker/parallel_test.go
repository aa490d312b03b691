package worker_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/tailored-agentic-units/rrp/worker"
)

func TestProcessParallel_PreservesOrder(t *testing.T) {
	items := []int{5, 4, 3, 2, 1, 0}
	cfg := worker.DefaultParallelConfig()
	cfg.MaxWorkers = 3

	result, err := worker.ProcessParallel(context.Background(), cfg, items,
		func(ctx context.Context, n int) (string, error) {
			return fmt.Sprintf("item-%d", n), nil
		},
	)
	if err != nil {
		t.Fatalf("ProcessParallel() error = %v", err)
	}

	if len(result.Results) != len(items) {
		t.Fatalf("got %d results, want %d", len(result.Results), len(items))
	}
	for i, n := range items {
		if want := fmt.Sprintf("item-%d", n); result.Results[i] != want {
			t.Errorf("Results[%d] = %q, want %q", i, result.Results[i], want)
		}
	}
}

func TestProcessParallel_Empty(t *testing.T) {
	result, err := worker.ProcessParallel(context.Background(), worker.DefaultParallelConfig(), []string{},
		func(ctx context.Context, s string) (string, error) { return s, nil },
	)
	if err != nil {
		t.Fatalf("ProcessParallel() error = %v", err)
	}
	if len(result.Results) != 0 || len(result.Errors) != 0 {
		t.Errorf("got %d results and %d errors, want none", len(result.Results), len(result.Errors))
	}
}

func TestProcessParallel_FailFast(t *testing.T) {
	failure := errors.New("write failed")
	items := []int{1, 2, 3}

	_, err := worker.ProcessParallel(context.Background(), worker.DefaultParallelConfig(), items,
		func(ctx context.Context, n int) (int, error) {
			if n == 2 {
				return 0, failure
			}
			return n, nil
		},
	)

	var pErr *worker.ParallelError[int]
	if !errors.As(err, &pErr) {
		t.Fatalf("error = %v, want *ParallelError", err)
	}
	if !errors.Is(err, failure) {
		t.Errorf("errors.Is(err, failure) = false for %v", err)
	}
}

func TestProcessParallel_CollectAll(t *testing.T) {
	failFast := false
	cfg := worker.DefaultParallelConfig()
	cfg.FailFastNil = &failFast

	items := []int{1, 2, 3, 4}
	result, err := worker.ProcessParallel(context.Background(), cfg, items,
		func(ctx context.Context, n int) (int, error) {
			if n%2 == 0 {
				return 0, fmt.Errorf("even %d", n)
			}
			return n, nil
		},
	)
	if err != nil {
		t.Fatalf("ProcessParallel() error = %v, want nil with partial success", err)
	}
	if len(result.Results) != 2 {
		t.Errorf("got %d results, want 2", len(result.Results))
	}
	if len(result.Errors) != 2 {
		t.Fatalf("got %d errors, want 2", len(result.Errors))
	}
	if result.Errors[0].Index != 1 || result.Errors[1].Index != 3 {
		t.Errorf("error indices = %d, %d; want 1, 3", result.Errors[0].Index, result.Errors[1].Index)
	}
}

func TestProcessParallel_AllFail(t *testing.T) {
	failFast := false
	cfg := worker.DefaultParallelConfig()
	cfg.FailFastNil = &failFast

	_, err := worker.ProcessParallel(context.Background(), cfg, []string{"a", "b"},
		func(ctx context.Context, s string) (string, error) {
			return "", errors.New("nope")
		},
	)
	if err == nil {
		t.Fatal("expected error when all items fail")
	}
}

func TestProcessParallel_UnknownObserver(t *testing.T) {
	cfg := worker.DefaultParallelConfig()
	cfg.Observer = "does-not-exist"

	_, err := worker.ProcessParallel(context.Background(), cfg, []int{1},
		func(ctx context.Context, n int) (int, error) { return n, nil },
	)
	if err == nil {
		t.Fatal("expected error for unknown observer")
	}
}

func TestParallelError_Message(t *testing.T) {
	single := &worker.ParallelError[string]{Errors: []worker.TaskError[string]{
		{Index: 5, Item: "x", Err: errors.New("connection refused")},
	}}
	if got := single.Error(); got != "parallel execution failed: item 5: connection refused" {
		t.Errorf("Error() = %q", got)
	}

	multi := &worker.ParallelError[string]{Errors: []worker.TaskError[string]{
		{Index: 0, Err: errors.New("bad name")},
		{Index: 2, Err: errors.New("disk full")},
		{Index: 4, Err: errors.New("disk full")},
	}}
	want := "parallel execution failed: 3 items: disk full (items 2, 4); bad name (item 0)"
	if got := multi.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestParallelConfig_FailFastDefault(t *testing.T) {
	var cfg worker.ParallelConfig
	if !cfg.FailFast() {
		t.Error("FailFast() with nil pointer = false, want true")
	}

	explicit := false
	cfg.Merge(&worker.ParallelConfig{FailFastNil: &explicit})
	if cfg.FailFast() {
		t.Error("FailFast() after merging explicit false = true, want false")
	}
}

func TestProcessParallel_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := worker.ProcessParallel(ctx, worker.DefaultParallelConfig(), []int{1, 2, 3},
		func(ctx context.Context, n int) (int, error) { return n, nil },
	)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
	if len(result.Results) != 0 {
		t.Errorf("got %d results from a cancelled run, want 0", len(result.Results))
	}
}
