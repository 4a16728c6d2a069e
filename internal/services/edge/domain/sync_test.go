package domain

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"testing"

	platformerrors "github.com/veldtmaps/edge/internal/platform/errors"
)

func TestCoordinatorRegisterValidation(t *testing.T) {
	c := NewCoordinator(nil, func(string, ...any) {})

	if err := c.Register("  ", func(context.Context) error { return nil }); !errors.Is(err, ErrTagRequired) {
		t.Fatalf("Register(blank tag) error = %v, want ErrTagRequired", err)
	}
	if err := c.Register("sync-queue", nil); !errors.Is(err, ErrHandlerRequired) {
		t.Fatalf("Register(nil handler) error = %v, want ErrHandlerRequired", err)
	}
	if err := c.Register("sync-queue", func(context.Context) error { return nil }); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
}

func TestCoordinatorTriggerRunsHandler(t *testing.T) {
	c := NewCoordinator(nil, func(string, ...any) {})
	ran := 0
	if err := c.Register("flush-drafts", func(context.Context) error {
		ran++
		return nil
	}); err != nil {
		t.Fatalf("register: %v", err)
	}

	c.OnTrigger(context.Background(), "flush-drafts")
	c.OnTrigger(context.Background(), "flush-drafts")
	if ran != 2 {
		t.Fatalf("handler ran %d times, want 2", ran)
	}
}

func TestCoordinatorUnknownTagIsNoOp(t *testing.T) {
	events := &recorderStub{}
	c := NewCoordinator(events, func(string, ...any) {})
	c.OnTrigger(context.Background(), "never-registered")
	if got := events.outcomes(); len(got) != 0 {
		t.Fatalf("outcomes = %v, want none for an unknown tag", got)
	}
}

func TestCoordinatorReplacesHandlerOnReregister(t *testing.T) {
	c := NewCoordinator(nil, func(string, ...any) {})
	var got string
	must := func(err error) {
		if err != nil {
			t.Fatalf("register: %v", err)
		}
	}
	must(c.Register("flush-drafts", func(context.Context) error { got = "old"; return nil }))
	must(c.Register("flush-drafts", func(context.Context) error { got = "new"; return nil }))

	c.OnTrigger(context.Background(), "flush-drafts")
	if got != "new" {
		t.Fatalf("ran %q handler, want the replacement", got)
	}
}

func TestCoordinatorHandlerFailureIsContained(t *testing.T) {
	events := &recorderStub{}
	var logLines []string
	c := NewCoordinator(events, func(format string, args ...any) {
		logLines = append(logLines, fmt.Sprintf(format, args...))
	})
	if err := c.Register("flush-drafts", func(context.Context) error {
		return errors.New("queue store unreachable")
	}); err != nil {
		t.Fatalf("register: %v", err)
	}

	c.OnTrigger(context.Background(), "flush-drafts")
	if len(logLines) != 1 {
		t.Fatalf("failure log lines = %d, want 1", len(logLines))
	}
	if !strings.Contains(logLines[0], string(platformerrors.CodeTaskFailed)) {
		t.Fatalf("log line = %q, want the task-failed code", logLines[0])
	}
	outcomes := events.outcomes()
	if len(outcomes) != 1 || outcomes[0] != OutcomeTaskFail {
		t.Fatalf("outcomes = %v, want [task_fail]", outcomes)
	}
}

func TestCoordinatorHandlerPanicIsContained(t *testing.T) {
	events := &recorderStub{}
	c := NewCoordinator(events, func(string, ...any) {})
	must := func(err error) {
		if err != nil {
			t.Fatalf("register: %v", err)
		}
	}
	must(c.Register("bad", func(context.Context) error { panic("handler bug") }))
	other := 0
	must(c.Register("good", func(context.Context) error { other++; return nil }))

	c.OnTrigger(context.Background(), "bad")
	c.OnTrigger(context.Background(), "good")
	if other != 1 {
		t.Fatal("a panicking handler blocked later triggers")
	}
	outcomes := events.outcomes()
	if len(outcomes) != 2 || outcomes[0] != OutcomeTaskFail || outcomes[1] != OutcomeTaskOK {
		t.Fatalf("outcomes = %v, want [task_fail task_ok]", outcomes)
	}
}

func TestCoordinatorTags(t *testing.T) {
	c := NewCoordinator(nil, func(string, ...any) {})
	for _, tag := range []string{"flush-drafts", "sync-queue"} {
		if err := c.Register(tag, func(context.Context) error { return nil }); err != nil {
			t.Fatalf("register %s: %v", tag, err)
		}
	}
	tags := c.Tags()
	sort.Strings(tags)
	if len(tags) != 2 || tags[0] != "flush-drafts" || tags[1] != "sync-queue" {
		t.Fatalf("tags = %v, want [flush-drafts sync-queue]", tags)
	}
}
