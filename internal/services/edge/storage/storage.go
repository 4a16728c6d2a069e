// Package storage defines the persistence boundaries for the edge service:
// cache partitions and durable delivery event records.
package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound indicates a missing record in a backing store.
var ErrNotFound = errors.New("storage: not found")

// EventRecord is one durable delivery outcome record.
type EventRecord struct {
	ID        int64
	Class     string
	Key       string
	Outcome   string
	Detail    string
	CreatedAt time.Time
}

// EventStore persists delivery event records.
type EventStore interface {
	RecordEvent(ctx context.Context, event EventRecord) error
	ListEvents(ctx context.Context, limit int) ([]EventRecord, error)
}
