package domain

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"

	platformerrors "github.com/veldtmaps/edge/internal/platform/errors"
)

// TaskFunc is one registered deferred-work handler. What the work means is
// owned by the registrant; the coordinator only wires trigger to action.
type TaskFunc func(ctx context.Context) error

// Coordinator dispatches deferred-work triggers by tag. It keeps no task
// state: everything it needs is re-derived from the tag. Delivery is
// at-least-once, best-effort; handler faults are caught, logged, and
// recorded so one bad handler never affects other tags or later triggers.
type Coordinator struct {
	mu       sync.RWMutex
	handlers map[string]TaskFunc

	events Recorder
	logf   func(string, ...any)
}

// NewCoordinator builds an empty coordinator.
func NewCoordinator(events Recorder, logf func(string, ...any)) *Coordinator {
	if logf == nil {
		logf = log.Printf
	}
	return &Coordinator{
		handlers: make(map[string]TaskFunc),
		events:   events,
		logf:     logf,
	}
}

// Register binds a tag to a handler. Re-registering a tag replaces the
// previous handler.
func (c *Coordinator) Register(tag string, fn TaskFunc) error {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return ErrTagRequired
	}
	if fn == nil {
		return ErrHandlerRequired
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[tag] = fn
	return nil
}

// Tags returns the registered tags, for the debug surface.
func (c *Coordinator) Tags() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	tags := make([]string, 0, len(c.handlers))
	for tag := range c.handlers {
		tags = append(tags, tag)
	}
	return tags
}

// OnTrigger runs the handler registered for tag. Unknown tags are ignored.
// The trigger surface never observes handler failures.
func (c *Coordinator) OnTrigger(ctx context.Context, tag string) {
	tag = strings.TrimSpace(tag)

	c.mu.RLock()
	fn, ok := c.handlers[tag]
	c.mu.RUnlock()
	if !ok {
		return
	}

	if err := c.invoke(ctx, fn); err != nil {
		fault := platformerrors.Wrap(platformerrors.CodeTaskFailed, fmt.Sprintf("deferred task %s", tag), err)
		c.logf("%s: %v: %v", fault.Code, fault, err)
		record(ctx, c.events, Event{Outcome: OutcomeTaskFail, Detail: tag + ": " + err.Error()})
		return
	}
	record(ctx, c.events, Event{Outcome: OutcomeTaskOK, Detail: tag})
}

// invoke shields the coordinator from handler panics.
func (c *Coordinator) invoke(ctx context.Context, fn TaskFunc) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panicked: %v", r)
		}
	}()
	return fn(ctx)
}
