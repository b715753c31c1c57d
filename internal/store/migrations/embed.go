package migrations

import "embed"

// SQLite contains the embedded SQLite schema migrations.
//
//go:embed *.sql
var SQLite embed.FS
