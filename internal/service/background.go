package service

import (
	"context"
	"sync"
	"time"

	"github.com/VictoriaMetrics/metrics"
	"go.uber.org/zap"
)

var (
	backgroundTaskSucceeded = metrics.NewCounter(`pos_background_tasks_total{result="success"}`)
	backgroundTaskFailed    = metrics.NewCounter(`pos_background_tasks_total{result="error"}`)
)

// TaskError is a failure reported by a detached background task.
type TaskError struct {
	Task string
	Err  error
}

// BackgroundRunner runs fire-and-forget tasks outside the request lifecycle.
// Task errors flow through a dedicated channel and are logged, never returned
// to the request that scheduled them.
type BackgroundRunner struct {
	logger  *zap.Logger
	timeout time.Duration

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
	errs   chan TaskError
	done   chan struct{}
}

// NewBackgroundRunner creates a runner whose tasks are each bounded by timeout.
func NewBackgroundRunner(timeout time.Duration, logger *zap.Logger) *BackgroundRunner {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	r := &BackgroundRunner{
		logger:  logger,
		timeout: timeout,
		errs:    make(chan TaskError, 16),
		done:    make(chan struct{}),
	}
	go r.drain()
	return r
}

// Go starts fn in its own goroutine. It reports false if the runner is
// already shut down and the task was dropped.
func (r *BackgroundRunner) Go(name string, fn func(ctx context.Context) error) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		r.logger.Warn("background runner closed, dropping task", zap.String("task", name))
		return false
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		defer cancel()

		if err := fn(ctx); err != nil {
			r.errs <- TaskError{Task: name, Err: err}
			return
		}
		backgroundTaskSucceeded.Inc()
	}()
	return true
}

func (r *BackgroundRunner) drain() {
	defer close(r.done)
	for taskErr := range r.errs {
		backgroundTaskFailed.Inc()
		r.logger.Warn("background task failed",
			zap.String("task", taskErr.Task),
			zap.Error(taskErr.Err),
		)
	}
}

// Shutdown stops accepting tasks and waits for running ones to finish or ctx to expire.
func (r *BackgroundRunner) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	r.mu.Unlock()

	finished := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(r.errs)
		<-r.done
		close(finished)
	}()

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
