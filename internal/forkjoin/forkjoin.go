package forkjoin

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/vk/pipegrid/internal/ctxlog"
)

// TaskFunc is the stage function invoked once per partition item. It must
// be safe to call concurrently with other items of the same fan-out group.
type TaskFunc func(ctx context.Context, item any) (any, error)

// Options configures one fork-join cycle.
type Options struct {
	// MaxConcurrency bounds how many tasks run at once. Values below 1
	// are treated as 1.
	MaxConcurrency int

	// Timeout bounds each individual task. Zero means no timeout. A task
	// timeout is that task's failure, not a run-level fault.
	Timeout time.Duration
}

// Run executes fn for every item and returns one Outcome per item, in
// partition order regardless of completion order. The returned slice
// always has len(items) entries.
func Run(ctx context.Context, items []any, fn TaskFunc, opts Options) []Outcome {
	logger := ctxlog.FromContext(ctx)

	outcomes := make([]Outcome, len(items))
	if len(items) == 0 {
		return outcomes
	}

	workers := opts.MaxConcurrency
	if workers < 1 {
		workers = 1
	}
	if workers > len(items) {
		workers = len(items)
	}

	jobs := make(chan int, len(items))
	for i := range items {
		jobs <- i
	}
	close(jobs)

	logger.Debug("Starting fan-out worker pool.", "tasks", len(items), "workers", workers)

	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func(workerID int) {
			defer wg.Done()
			for idx := range jobs {
				item := items[idx]

				// Dispatch order is partition order; once cancellation is
				// observed, remaining tasks are recorded as failed without
				// being started.
				if err := ctx.Err(); err != nil {
					outcomes[idx] = Outcome{Index: idx, Item: item, Err: err}
					continue
				}

				value, err := runTask(ctx, item, fn, opts.Timeout)
				if err != nil {
					logger.Warn("Fan-out task failed.", "workerID", workerID, "index", idx, "error", err)
				}
				outcomes[idx] = Outcome{Index: idx, Item: item, Value: value, Err: err}
			}
		}(w)
	}
	wg.Wait()

	logger.Debug("Fan-out pool drained.", "failed", len(Failures(outcomes)))
	return outcomes
}

// runTask invokes fn with the per-task timeout applied and converts a
// panic inside the task into that task's error.
func runTask(ctx context.Context, item any, fn TaskFunc, timeout time.Duration) (value any, err error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panicked: %v", r)
		}
	}()
	return fn(ctx, item)
}
