package store

import (
	"database/sql"
	"fmt"
)

func migrate(db *sql.DB) error {
	stmts := []string{
		// One row per imported index
		`CREATE TABLE IF NOT EXISTS snapshots (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			label      TEXT NOT NULL,
			source     TEXT NOT NULL DEFAULT '',
			var        TEXT NOT NULL DEFAULT '',
			digest     TEXT NOT NULL,
			created_at TEXT NOT NULL
		)`,

		// Entries keep their parent and sibling position so the forest can
		// be rebuilt in order
		`CREATE TABLE IF NOT EXISTS entries (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			snapshot_id INTEGER NOT NULL REFERENCES snapshots(id) ON DELETE CASCADE,
			parent_id   INTEGER REFERENCES entries(id) ON DELETE CASCADE,
			position    INTEGER NOT NULL,
			name        TEXT NOT NULL,
			link        TEXT,
			form        INTEGER NOT NULL DEFAULT 0,
			line        INTEGER NOT NULL DEFAULT 0
		)`,

		`CREATE INDEX IF NOT EXISTS entries_snapshot ON entries(snapshot_id, parent_id, position)`,
		`CREATE INDEX IF NOT EXISTS entries_name ON entries(name)`,
		`CREATE INDEX IF NOT EXISTS snapshots_label ON snapshots(label, id)`,
	}

	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", truncate(s, 60), err)
		}
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
