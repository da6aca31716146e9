package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
)

var migrations = []string{
	// 1: alerts and their history.
	`CREATE TABLE IF NOT EXISTS alerts (
		id            TEXT PRIMARY KEY,
		source        TEXT NOT NULL,
		type          TEXT NOT NULL,
		description   TEXT NOT NULL DEFAULT '',
		level         TEXT NOT NULL,
		actionable    INTEGER NOT NULL DEFAULT 0,
		latest_change BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_alerts_latest_change ON alerts(source, latest_change)`,
	`CREATE TABLE IF NOT EXISTS alert_events (
		alert_id    TEXT NOT NULL,
		seq         INTEGER NOT NULL,
		state       TEXT NOT NULL,
		content     TEXT NOT NULL DEFAULT 'null',
		change_time BIGINT NOT NULL,
		PRIMARY KEY (alert_id, seq)
	)`,
}

// migrate applies pending schema migrations, one transaction each.
func migrate(ctx context.Context, db *sql.DB, d dialect) error {
	_, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version    INTEGER PRIMARY KEY,
		applied_at BIGINT NOT NULL DEFAULT 0
	)`)
	if err != nil {
		return fmt.Errorf("create migration table: %w", err)
	}

	var current int

	row := db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err = row.Scan(&current); err != nil {
		return fmt.Errorf("check migration version: %w", err)
	}

	for i := current; i < len(migrations); i++ {
		if err = applyMigration(ctx, db, d, i+1, migrations[i]); err != nil {
			return err
		}
	}

	return nil
}

func applyMigration(ctx context.Context, db *sql.DB, d dialect, version int, statement string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration %d: %w", version, err)
	}

	if _, err = tx.ExecContext(ctx, statement); err != nil {
		_ = tx.Rollback()

		return fmt.Errorf("run migration %d: %w", version, err)
	}

	if _, err = tx.ExecContext(ctx, d.rebind("INSERT INTO schema_migrations (version) VALUES (?)"), version); err != nil {
		_ = tx.Rollback()

		return fmt.Errorf("record migration %d: %w", version, err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit migration %d: %w", version, err)
	}

	return nil
}
