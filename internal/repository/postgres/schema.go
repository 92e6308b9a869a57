package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS export_runs (
		id            UUID PRIMARY KEY,
		session_id    TEXT NOT NULL DEFAULT '',
		report        TEXT NOT NULL,
		format        TEXT NOT NULL,
		scope         TEXT NOT NULL,
		file_name     TEXT NOT NULL,
		row_count     INTEGER NOT NULL DEFAULT 0,
		artifact_key  TEXT,
		status        TEXT NOT NULL,
		error_message TEXT,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		finished_at   TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS idx_export_runs_report_created
		ON export_runs (report, created_at DESC)`,
}

// Migrate creates the gateway's tables. It is idempotent.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range migrations {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	return nil
}
