// Package database stores synthesized clips in an embedded SQLite file. The
// ClipRepository interface it defines is also implemented by pgstore.
package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// dbFile is the SQLite file name inside the data directory.
const dbFile = "morsecast.db"

// sqlitePragmas are applied to every connection.
var sqlitePragmas = []string{
	"journal_mode(wal)",
	"busy_timeout(5000)",
	"foreign_keys(on)",
}

// DB wraps the SQLite connection pool of the clip store.
type DB struct {
	*sql.DB
	path string
}

// Open creates or opens the clip database in dataDir and applies pending
// migrations. WAL mode is enabled and writes go through one connection.
func Open(dataDir string) (*DB, error) {
	if err := os.MkdirAll(dataDir, 0750); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	dbPath := filepath.Join(dataDir, dbFile)

	sqlDB, err := sql.Open("sqlite", sqliteDSN(dbPath))
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	applied, err := Migrate(context.Background(), sqlDB, migrationsFS, "migrations", SQLite)
	if err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	for _, v := range applied {
		slog.Info("applied migration", "store", SQLite.Name, "version", v)
	}

	slog.Info("database opened", "path", dbPath)
	return &DB{DB: sqlDB, path: dbPath}, nil
}

// Path returns the location of the database file.
func (db *DB) Path() string {
	return db.path
}

func sqliteDSN(path string) string {
	q := url.Values{}
	for _, p := range sqlitePragmas {
		q.Add("_pragma", p)
	}
	return "file:" + path + "?" + q.Encode()
}
