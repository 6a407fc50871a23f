// Package async runs background tasks spawned from request handlers.
//
// Tasks outlive the request that spawned them, which makes naked goroutines
// unsafe on two fronts: the request context gets canceled the moment the
// response is written, and the tenant binding disappears with it. The runner
// detaches each task onto a background-rooted context that carries a
// snapshot of the request's tenant, so scoped work stays scoped without
// inheriting request cancellation.
package async

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"runtime/debug"
	"sync"

	"github.com/Shakvilla/saas-starter-template-shared-schema/pkg/tenant"
)

// Task is a unit of background work.
type Task func(ctx context.Context) error

// Runner executes background tasks with tenant-snapshot contexts, panic
// recovery, and graceful-shutdown tracking.
type Runner struct {
	log *slog.Logger

	mu       sync.Mutex
	wg       sync.WaitGroup
	draining bool
}

// NewRunner creates a background task runner. A nil logger discards task
// failure reports.
func NewRunner(log *slog.Logger) *Runner {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Runner{log: log}
}

// Go runs the task on its own goroutine under a detached context that
// preserves the caller's tenant binding. Task errors and panics are logged,
// not propagated: by the time a background task fails, the response that
// spawned it has already been sent.
func (r *Runner) Go(ctx context.Context, name string, task Task) error {
	r.mu.Lock()
	if r.draining {
		r.mu.Unlock()
		return ErrShuttingDown
	}
	r.wg.Add(1)
	r.mu.Unlock()

	detached := tenant.Detach(ctx)

	go func() {
		defer r.wg.Done()
		defer func() {
			if rec := recover(); rec != nil {
				r.log.ErrorContext(detached, "background task panicked",
					slog.String("task", name),
					slog.String("panic", fmt.Sprint(rec)),
					slog.String("stack", string(debug.Stack())))
			}
		}()

		if err := task(detached); err != nil {
			r.log.ErrorContext(detached, "background task failed",
				slog.String("task", name),
				slog.String("error", err.Error()))
		}
	}()

	return nil
}

// Shutdown stops accepting new tasks and waits for in-flight ones to
// finish, or until the context expires.
func (r *Runner) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	r.draining = true
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
		return ErrShutdownTimeout
	}
}
