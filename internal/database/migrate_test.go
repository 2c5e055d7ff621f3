package database

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"testing/fstest"
)

func openRawSQLite(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", sqliteDSN(filepath.Join(t.TempDir(), "m.db")))
	if err != nil {
		t.Fatalf("sql.Open() error: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return db
}

func tableExists(t *testing.T, db *sql.DB, name string) bool {
	t.Helper()
	var n int
	if err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", name).Scan(&n); err != nil {
		t.Fatalf("checking table %s: %v", name, err)
	}
	return n == 1
}

func TestMigrateOrderAndResume(t *testing.T) {
	db := openRawSQLite(t)
	ctx := context.Background()

	fsys := fstest.MapFS{
		"m/002_b.sql":   {Data: []byte("CREATE TABLE b (id INTEGER REFERENCES a(id));")},
		"m/001_a.sql":   {Data: []byte("CREATE TABLE a (id INTEGER PRIMARY KEY);")},
		"m/README.md":   {Data: []byte("not a migration")},
		"other/003.sql": {Data: []byte("CREATE TABLE c (id INTEGER);")},
	}

	applied, err := Migrate(ctx, db, fsys, "m", SQLite)
	if err != nil {
		t.Fatalf("Migrate() error: %v", err)
	}
	if len(applied) != 2 || applied[0] != "001_a" || applied[1] != "002_b" {
		t.Fatalf("applied = %v, want [001_a 002_b]", applied)
	}
	if tableExists(t, db, "c") {
		t.Error("migration outside dir was applied")
	}

	fsys["m/003_c.sql"] = &fstest.MapFile{Data: []byte("CREATE TABLE c (id INTEGER);")}
	applied, err = Migrate(ctx, db, fsys, "m", SQLite)
	if err != nil {
		t.Fatalf("second Migrate() error: %v", err)
	}
	if len(applied) != 1 || applied[0] != "003_c" {
		t.Fatalf("second run applied = %v, want [003_c]", applied)
	}
}

func TestMigrateFailureRollsBack(t *testing.T) {
	db := openRawSQLite(t)
	ctx := context.Background()

	fsys := fstest.MapFS{
		"m/001_ok.sql":  {Data: []byte("CREATE TABLE ok (id INTEGER);")},
		"m/002_bad.sql": {Data: []byte("CREATE TABLE half (id INTEGER); CREATE TABLE broken (;")},
	}

	applied, err := Migrate(ctx, db, fsys, "m", SQLite)
	if err == nil {
		t.Fatal("Migrate() succeeded with a broken migration")
	}
	if len(applied) != 1 || applied[0] != "001_ok" {
		t.Errorf("applied = %v, want [001_ok]", applied)
	}

	var n int
	if err := db.QueryRow("SELECT COUNT(*) FROM schema_migrations WHERE version = '002_bad'").Scan(&n); err != nil {
		t.Fatalf("querying schema_migrations: %v", err)
	}
	if n != 0 {
		t.Error("failed migration was recorded")
	}
	if tableExists(t, db, "half") {
		t.Error("partial migration was not rolled back")
	}
}

func TestSQLiteDSN(t *testing.T) {
	dsn := sqliteDSN("/tmp/x.db")
	want := "file:/tmp/x.db?_pragma=journal_mode%28wal%29&_pragma=busy_timeout%285000%29&_pragma=foreign_keys%28on%29"
	if dsn != want {
		t.Errorf("sqliteDSN() = %q, want %q", dsn, want)
	}
}
