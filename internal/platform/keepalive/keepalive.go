// Package keepalive runs detached background tasks under supervision.
//
// Callers hand off work they do not await (cache revalidation, deferred
// sync). Each task runs on a context decoupled from the caller's request,
// so a finished request cannot cancel it, and the runtime drains the group
// before tearing down so every accepted task settles. Task errors are
// reported through the group's log function and dropped; that is the
// documented policy for background paths, not an omission.
package keepalive

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"
)

// ErrDraining indicates the group no longer accepts tasks.
var ErrDraining = errors.New("keepalive group is draining")

const defaultTaskTimeout = 30 * time.Second

// Group supervises fire-and-forget tasks until they settle.
type Group struct {
	mu       sync.Mutex
	wg       sync.WaitGroup
	draining bool

	root    context.Context
	cancel  context.CancelFunc
	timeout time.Duration
	logf    func(string, ...any)
}

// New creates a task group with a per-task timeout. A non-positive timeout
// falls back to the default. A nil logf falls back to the standard logger.
func New(taskTimeout time.Duration, logf func(string, ...any)) *Group {
	if taskTimeout <= 0 {
		taskTimeout = defaultTaskTimeout
	}
	if logf == nil {
		logf = log.Printf
	}
	root, cancel := context.WithCancel(context.Background())
	return &Group{
		root:    root,
		cancel:  cancel,
		timeout: taskTimeout,
		logf:    logf,
	}
}

// Extend schedules fn on a context detached from the caller. The caller
// never observes fn's result; failures are logged and dropped. Returns
// ErrDraining once Drain has started.
func (g *Group) Extend(name string, fn func(ctx context.Context) error) error {
	if g == nil || fn == nil {
		return errors.New("keepalive task is required")
	}

	g.mu.Lock()
	if g.draining {
		g.mu.Unlock()
		return ErrDraining
	}
	g.wg.Add(1)
	g.mu.Unlock()

	go func() {
		defer g.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				g.logf("keepalive task %s panicked: %v", name, r)
			}
		}()

		taskCtx, cancel := context.WithTimeout(g.root, g.timeout)
		defer cancel()
		if err := fn(taskCtx); err != nil {
			g.logf("keepalive task %s: %v", name, err)
		}
	}()
	return nil
}

// Drain stops accepting new tasks and waits for in-flight tasks to settle.
// When ctx expires first, remaining tasks are cancelled and the context
// error is returned.
func (g *Group) Drain(ctx context.Context) error {
	if g == nil {
		return nil
	}
	g.mu.Lock()
	g.draining = true
	g.mu.Unlock()

	done := make(chan struct{})
	go func() {
		g.wg.Wait()
		close(done)
	}()

	if ctx == nil {
		ctx = context.Background()
	}
	select {
	case <-done:
		g.cancel()
		return nil
	case <-ctx.Done():
		g.cancel()
		<-done
		return ctx.Err()
	}
}
