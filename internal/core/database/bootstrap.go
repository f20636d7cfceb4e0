package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"
)

//go:embed scripts/*.sql
var schemaFS embed.FS

// migration is one schema step. Scripts must be idempotent and record
// their version in alttexta_meta.
type migration struct {
	version int
	script  string
}

var migrations = []migration{
	{version: 1, script: "scripts/initdb.sql"},
}

// pending returns the migrations newer than the applied version, oldest first.
func pending(applied int) []migration {
	var out []migration
	for _, m := range migrations {
		if m.version > applied {
			out = append(out, m)
		}
	}
	return out
}

// EnsureBootstrapped brings the schema up to the newest known version.
func EnsureBootstrapped(ctx context.Context, db *sql.DB) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Minute)
	defer cancel()

	applied, err := schemaVersion(ctx, db)
	if err != nil {
		return err
	}
	for _, m := range pending(applied) {
		if err := apply(ctx, db, m); err != nil {
			return err
		}
	}
	return nil
}

// schemaVersion is 0 on a fresh database.
func schemaVersion(ctx context.Context, db *sql.DB) (int, error) {
	var table sql.NullString
	if err := db.QueryRowContext(ctx, `SELECT to_regclass('alttexta_meta')::text`).Scan(&table); err != nil {
		return 0, fmt.Errorf("meta table check failed: %w", err)
	}
	if !table.Valid {
		return 0, nil
	}
	var v int
	if err := db.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM alttexta_meta`).Scan(&v); err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return v, nil
}

func apply(ctx context.Context, db *sql.DB, m migration) error {
	body, err := schemaFS.ReadFile(m.script)
	if err != nil {
		return fmt.Errorf("read %s: %w", m.script, err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema v%d: %w", m.version, err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, string(body)); err != nil {
		return fmt.Errorf("apply schema v%d: %w", m.version, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema v%d: %w", m.version, err)
	}
	return nil
}
