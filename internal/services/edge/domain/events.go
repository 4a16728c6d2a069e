package domain

import (
	"context"
	"time"
)

// Event outcome values recorded by the strategies and lifecycle.
const (
	OutcomeHit         = "hit"
	OutcomeMiss        = "miss"
	OutcomeFallback    = "fallback"
	OutcomeRefresh     = "refresh"
	OutcomeRefreshFail = "refresh_fail"
	OutcomeUnavailable = "unavailable"
	OutcomeInstalled   = "installed"
	OutcomeActivated   = "activated"
	OutcomeTaskOK      = "task_ok"
	OutcomeTaskFail    = "task_fail"
)

// Event is one durable record of engine activity: a strategy decision, a
// lifecycle transition, or a deferred-task attempt.
type Event struct {
	Class     RequestClass
	Key       string
	Outcome   string
	Detail    string
	CreatedAt time.Time
}

// Recorder persists engine events. Implementations must tolerate being nil
// receivers; no engine behavior depends on recording succeeding.
type Recorder interface {
	RecordEvent(ctx context.Context, event Event) error
}

// record is the shared fire-and-forget emit helper. Recording failures are
// deliberately dropped: the event trail is an observability aid, not part
// of the serving contract.
func record(ctx context.Context, rec Recorder, event Event) {
	if rec == nil {
		return
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	_ = rec.RecordEvent(ctx, event)
}
