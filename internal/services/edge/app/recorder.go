package app

import (
	"context"
	"log"

	"github.com/veldtmaps/edge/internal/services/edge/domain"
	edgestorage "github.com/veldtmaps/edge/internal/services/edge/storage"
)

// eventStoreRecorder bridges delivery events into the durable event store.
type eventStoreRecorder struct {
	store edgestorage.EventStore
}

func newEventStoreRecorder(store edgestorage.EventStore) *eventStoreRecorder {
	return &eventStoreRecorder{store: store}
}

// RecordEvent implements domain.Recorder.
func (r *eventStoreRecorder) RecordEvent(ctx context.Context, event domain.Event) error {
	if r == nil || r.store == nil {
		return nil
	}
	return r.store.RecordEvent(ctx, edgestorage.EventRecord{
		Class:     string(event.Class),
		Key:       event.Key,
		Outcome:   event.Outcome,
		Detail:    event.Detail,
		CreatedAt: event.CreatedAt,
	})
}

// logNotifier surfaces push notifications on the process log. A headless
// gateway has no display surface; the log line is the delivery.
type logNotifier struct {
	logf func(string, ...any)
}

func newLogNotifier(logf func(string, ...any)) *logNotifier {
	if logf == nil {
		logf = log.Printf
	}
	return &logNotifier{logf: logf}
}

// Notify implements domain.Notifier.
func (n *logNotifier) Notify(_ context.Context, note domain.Notification) error {
	n.logf("notification: %s: %s", note.Title, note.Body)
	return nil
}

var (
	_ domain.Recorder = (*eventStoreRecorder)(nil)
	_ domain.Notifier = (*logNotifier)(nil)
)
