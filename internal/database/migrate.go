package database

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"path"
	"strings"
)

// Dialect holds the SQL that differs between the clip store engines.
type Dialect struct {
	// Name appears in log lines.
	Name string
	// TrackingTable creates schema_migrations if it does not exist.
	TrackingTable string
	// Record inserts one version into schema_migrations.
	Record string
}

// SQLite is the dialect of the embedded store.
var SQLite = Dialect{
	Name: "sqlite",
	TrackingTable: `CREATE TABLE IF NOT EXISTS schema_migrations (
		version    TEXT PRIMARY KEY,
		applied_at DATETIME DEFAULT (datetime('now'))
	)`,
	Record: "INSERT INTO schema_migrations (version) VALUES (?)",
}

// Postgres is the dialect of the pgx store.
var Postgres = Dialect{
	Name: "postgres",
	TrackingTable: `CREATE TABLE IF NOT EXISTS schema_migrations (
		version    TEXT PRIMARY KEY,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	Record: "INSERT INTO schema_migrations (version) VALUES ($1)",
}

// Migrate applies every dir/*.sql file in fsys that schema_migrations does
// not list yet, in file name order. Each file runs in its own transaction
// together with its tracking row, so a failed migration leaves no trace.
// It returns the versions applied by this call.
func Migrate(ctx context.Context, db *sql.DB, fsys fs.FS, dir string, d Dialect) ([]string, error) {
	if _, err := db.ExecContext(ctx, d.TrackingTable); err != nil {
		return nil, fmt.Errorf("creating schema_migrations table: %w", err)
	}

	done, err := appliedVersions(ctx, db)
	if err != nil {
		return nil, err
	}

	// fs.Glob returns names in lexical order.
	files, err := fs.Glob(fsys, path.Join(dir, "*.sql"))
	if err != nil {
		return nil, fmt.Errorf("listing migrations: %w", err)
	}

	var applied []string
	for _, file := range files {
		version := strings.TrimSuffix(path.Base(file), ".sql")
		if done[version] {
			continue
		}

		script, err := fs.ReadFile(fsys, file)
		if err != nil {
			return applied, fmt.Errorf("reading migration %s: %w", version, err)
		}
		if err := applyMigration(ctx, db, d, version, string(script)); err != nil {
			return applied, err
		}
		applied = append(applied, version)
	}
	return applied, nil
}

func appliedVersions(ctx context.Context, db *sql.DB) (map[string]bool, error) {
	rows, err := db.QueryContext(ctx, "SELECT version FROM schema_migrations")
	if err != nil {
		return nil, fmt.Errorf("reading schema_migrations: %w", err)
	}
	defer rows.Close()

	done := make(map[string]bool)
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scanning schema_migrations: %w", err)
		}
		done[v] = true
	}
	return done, rows.Err()
}

func applyMigration(ctx context.Context, db *sql.DB, d Dialect, version, script string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction for migration %s: %w", version, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, script); err != nil {
		return fmt.Errorf("executing migration %s: %w", version, err)
	}
	if _, err := tx.ExecContext(ctx, d.Record, version); err != nil {
		return fmt.Errorf("recording migration %s: %w", version, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing migration %s: %w", version, err)
	}
	return nil
}
