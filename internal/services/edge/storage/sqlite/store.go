// Package sqlite provides SQLite-backed delivery event persistence.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	sqlitemigrate "github.com/veldtmaps/edge/internal/platform/storage/sqlitemigrate"
	"github.com/veldtmaps/edge/internal/services/edge/storage"
	"github.com/veldtmaps/edge/internal/services/edge/storage/sqlite/migrations"
	_ "modernc.org/sqlite"
)

// Store provides SQLite-backed edge event persistence.
type Store struct {
	sqlDB *sql.DB
}

// Open opens an edge SQLite store and applies migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	store := &Store{sqlDB: sqlDB}
	if err := sqlitemigrate.ApplyMigrations(sqlDB, migrations.FS, ""); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return store, nil
}

// Close releases the SQLite connection.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// RecordEvent persists one delivery event.
func (s *Store) RecordEvent(ctx context.Context, event storage.EventRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}

	event.Class = strings.TrimSpace(event.Class)
	event.Key = strings.TrimSpace(event.Key)
	event.Outcome = strings.TrimSpace(event.Outcome)
	event.Detail = strings.TrimSpace(event.Detail)
	if event.Outcome == "" {
		return fmt.Errorf("outcome is required")
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO edge_events (
	class,
	key,
	outcome,
	detail,
	created_at
) VALUES (?, ?, ?, ?, ?)
`,
		event.Class,
		event.Key,
		event.Outcome,
		event.Detail,
		event.CreatedAt.UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("record event: %w", err)
	}
	return nil
}

// ListEvents lists newest-first event records.
func (s *Store) ListEvents(ctx context.Context, limit int) ([]storage.EventRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be greater than zero")
	}

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT
	id,
	class,
	key,
	outcome,
	detail,
	created_at
FROM edge_events
ORDER BY created_at DESC, id DESC
LIMIT ?
`, limit)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	// The limit is caller-controlled, so it never sizes an allocation.
	var records []storage.EventRecord
	for rows.Next() {
		var record storage.EventRecord
		var createdAt int64
		if err := rows.Scan(
			&record.ID,
			&record.Class,
			&record.Key,
			&record.Outcome,
			&record.Detail,
			&createdAt,
		); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		record.CreatedAt = time.UnixMilli(createdAt).UTC()
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return records, nil
}

var _ storage.EventStore = (*Store)(nil)
