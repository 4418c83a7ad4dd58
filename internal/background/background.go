// Package background runs fire-and-forget maintenance work, such as the
// recursive sweeps that follow a bucket or directory delete.
package background

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Runner tracks spawned goroutines so the server can drain them on shutdown.
// Task failures are logged, never surfaced to the request that spawned them.
type Runner struct {
	logger  *zap.Logger
	timeout time.Duration

	mu     sync.Mutex
	wg     sync.WaitGroup
	closed bool
}

// NewRunner constructs a runner. timeout bounds each task; zero means no
// bound.
func NewRunner(logger *zap.Logger, timeout time.Duration) *Runner {
	return &Runner{logger: logger, timeout: timeout}
}

// Go spawns fn on its own goroutine. After Shutdown, tasks are rejected and
// logged as dropped.
func (r *Runner) Go(name string, fn func(ctx context.Context) error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		r.logger.Warn("background task dropped, runner closed", zap.String("task", name))
		return
	}
	r.wg.Add(1)
	r.mu.Unlock()

	go func() {
		defer r.wg.Done()

		ctx := context.Background()
		cancel := func() {}
		if r.timeout > 0 {
			ctx, cancel = context.WithTimeout(ctx, r.timeout)
		}
		defer cancel()

		start := time.Now()
		if err := fn(ctx); err != nil {
			r.logger.Error("background task failed",
				zap.String("task", name), zap.Duration("took", time.Since(start)), zap.Error(err))
			return
		}
		r.logger.Info("background task done",
			zap.String("task", name), zap.Duration("took", time.Since(start)))
	}()
}

// Shutdown stops accepting tasks and waits for running ones, up to the
// context deadline.
func (r *Runner) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
