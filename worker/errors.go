package worker

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// Sentinel errors for pool operations.
var (
	ErrPoolClosed = errors.New("worker pool closed")
	ErrTaskPanic  = errors.New("task panicked")
)

// TaskError captures failure context for a single parallel task. Index is
// the position of Item in the slice handed to ProcessParallel.
type TaskError[TItem any] struct {
	Index int
	Item  TItem
	Err   error
}

// ParallelResult separates successes from failures using dense slices.
type ParallelResult[TItem, TResult any] struct {
	Results []TResult
	Errors  []TaskError[TItem]
}

// ParallelError wraps task failures from parallel execution. Failures with
// the same message are grouped and listed with the indices they hit, most
// frequent first:
//
//	parallel execution failed: item 5: connection refused
//	parallel execution failed: 3 items: disk full (items 0, 4); bad name (item 2)
//
// Unwrap returns every underlying error so errors.Is and errors.As search all
// task failures.
type ParallelError[TItem any] struct {
	Errors []TaskError[TItem]
}

func (e *ParallelError[TItem]) Error() string {
	switch len(e.Errors) {
	case 0:
		return "parallel execution failed"
	case 1:
		return fmt.Sprintf("parallel execution failed: item %d: %v", e.Errors[0].Index, e.Errors[0].Err)
	}

	var order []string
	indices := make(map[string][]string)
	for _, taskErr := range e.Errors {
		msg := taskErr.Err.Error()
		if _, seen := indices[msg]; !seen {
			order = append(order, msg)
		}
		indices[msg] = append(indices[msg], strconv.Itoa(taskErr.Index))
	}
	slices.SortStableFunc(order, func(a, b string) int {
		return cmp.Compare(len(indices[b]), len(indices[a]))
	})

	groups := make([]string, len(order))
	for i, msg := range order {
		noun := "item"
		if len(indices[msg]) > 1 {
			noun = "items"
		}
		groups[i] = fmt.Sprintf("%s (%s %s)", msg, noun, strings.Join(indices[msg], ", "))
	}
	return fmt.Sprintf("parallel execution failed: %d items: %s", len(e.Errors), strings.Join(groups, "; "))
}

func (e *ParallelError[TItem]) Unwrap() []error {
	errs := make([]error, len(e.Errors))
	for i, taskErr := range e.Errors {
		errs[i] = taskErr.Err
	}
	return errs
}
