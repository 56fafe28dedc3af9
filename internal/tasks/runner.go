// Package tasks runs detached background work for operations too slow for a
// USSD round-trip: provisioning, deployment and transfer submission. Every
// task returns a typed error; failures are logged, never silently dropped.
package tasks

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Runner schedules named background tasks with panic recovery and a fixed
// per-task timeout.
type Runner struct {
	logger  *slog.Logger
	timeout time.Duration
	wg      sync.WaitGroup
}

// NewRunner builds a runner. A non-positive timeout defaults to two minutes.
func NewRunner(logger *slog.Logger, timeout time.Duration) *Runner {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &Runner{logger: logger, timeout: timeout}
}

// Go schedules fn on its own goroutine, detached from the calling request.
// The task gets a fresh context: the session that scheduled it has already
// ended by the time it runs.
func (r *Runner) Go(name string, fn func(ctx context.Context) error) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer func() {
			if rec := recover(); rec != nil {
				r.logger.Error("background task panicked", "task", name, "panic", rec)
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		defer cancel()

		start := time.Now()
		if err := fn(ctx); err != nil {
			r.logger.Error("background task failed", "task", name, "duration", time.Since(start), "error", err)
			return
		}
		r.logger.Info("background task completed", "task", name, "duration", time.Since(start))
	}()
}

// Wait blocks until every scheduled task has finished. Used by shutdown and
// by tests that need deterministic task completion.
func (r *Runner) Wait() {
	r.wg.Wait()
}
