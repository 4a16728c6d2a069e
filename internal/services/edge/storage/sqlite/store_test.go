package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/veldtmaps/edge/internal/services/edge/storage"
)

func openTempStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "edge.db")
	store, err := Open(path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Fatalf("close store: %v", err)
		}
	})
	return store
}

func TestRecordAndListEvents(t *testing.T) {
	store := openTempStore(t)
	now := time.Date(2026, 8, 12, 9, 0, 0, 0, time.UTC)

	if err := store.RecordEvent(context.Background(), storage.EventRecord{
		Class:     "tile-asset",
		Key:       "GET https://a.tile.example.org/7/3/4.png",
		Outcome:   "hit",
		CreatedAt: now,
	}); err != nil {
		t.Fatalf("record event: %v", err)
	}
	if err := store.RecordEvent(context.Background(), storage.EventRecord{
		Class:     "tile-asset",
		Key:       "GET https://a.tile.example.org/7/3/4.png",
		Outcome:   "refresh_fail",
		Detail:    "origin gone",
		CreatedAt: now.Add(time.Minute),
	}); err != nil {
		t.Fatalf("record event second: %v", err)
	}

	events, err := store.ListEvents(context.Background(), 10)
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("events len = %d, want 2", len(events))
	}
	if events[0].Outcome != "refresh_fail" {
		t.Fatalf("events[0].outcome = %q, want %q", events[0].Outcome, "refresh_fail")
	}
	if events[0].Detail != "origin gone" {
		t.Fatalf("events[0].detail = %q, want %q", events[0].Detail, "origin gone")
	}
	if events[1].Outcome != "hit" {
		t.Fatalf("events[1].outcome = %q, want %q", events[1].Outcome, "hit")
	}
	if !events[1].CreatedAt.Equal(now) {
		t.Fatalf("events[1].created_at = %v, want %v", events[1].CreatedAt, now)
	}
}

func TestRecordEventValidation(t *testing.T) {
	store := openTempStore(t)

	if err := store.RecordEvent(context.Background(), storage.EventRecord{}); err == nil {
		t.Fatal("expected validation error for empty event")
	}
}

func TestRecordEventDefaultsCreatedAt(t *testing.T) {
	store := openTempStore(t)

	if err := store.RecordEvent(context.Background(), storage.EventRecord{
		Class:   "api-call",
		Key:     "GET https://nominatim.example.org/search",
		Outcome: "fallback",
	}); err != nil {
		t.Fatalf("record event: %v", err)
	}

	events, err := store.ListEvents(context.Background(), 1)
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("events len = %d, want 1", len(events))
	}
	if events[0].CreatedAt.IsZero() {
		t.Fatal("created_at was not defaulted")
	}
}

func TestListEventsRejectsNonPositiveLimit(t *testing.T) {
	store := openTempStore(t)

	if _, err := store.ListEvents(context.Background(), 0); err == nil {
		t.Fatal("expected error for zero limit")
	}
}

func TestListEventsHugeLimit(t *testing.T) {
	store := openTempStore(t)

	if err := store.RecordEvent(context.Background(), storage.EventRecord{
		Class:   "shell-asset",
		Key:     "GET https://maps.example.org/",
		Outcome: "hit",
	}); err != nil {
		t.Fatalf("record event: %v", err)
	}

	events, err := store.ListEvents(context.Background(), 1<<62)
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("events len = %d, want 1", len(events))
	}
}

func TestOpenRejectsEmptyPath(t *testing.T) {
	if _, err := Open("  "); err == nil {
		t.Fatal("expected error for empty path")
	}
}
