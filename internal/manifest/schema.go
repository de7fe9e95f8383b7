package manifest

import (
	"context"
	"database/sql"
	"fmt"
)

const schemaVersion = 1

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS artifacts (
        key              TEXT PRIMARY KEY,
        path             TEXT NOT NULL,
        duration_seconds REAL NOT NULL DEFAULT 0,
        checksum         TEXT NOT NULL DEFAULT '',
        status           TEXT NOT NULL,
        created_at       TEXT NOT NULL,
        updated_at       TEXT NOT NULL
    )`,
	`CREATE INDEX IF NOT EXISTS idx_artifacts_status ON artifacts(status)`,
}

func applyMigrations(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_info (version INTEGER NOT NULL)`); err != nil {
		return fmt.Errorf("create schema_info: %w", err)
	}
	for i, migration := range migrations {
		if _, err := db.ExecContext(ctx, migration); err != nil {
			return fmt.Errorf("apply migration %d: %w", i+1, err)
		}
	}
	if _, err := db.ExecContext(ctx, `DELETE FROM schema_info`); err != nil {
		return fmt.Errorf("reset schema version: %w", err)
	}
	if _, err := db.ExecContext(ctx, `INSERT INTO schema_info (version) VALUES (?)`, schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	return nil
}
