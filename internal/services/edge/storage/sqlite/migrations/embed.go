package migrations

import "embed"

// FS contains embedded SQLite migrations for edge event storage.
//
//go:embed *.sql
var FS embed.FS
