package database

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/morsecast/morsecast/internal/database/models"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestOpenAndMigrate(t *testing.T) {
	dir := t.TempDir()

	db, err := Open(dir)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	defer db.Close()

	// Verify database file was created.
	dbPath := filepath.Join(dir, "morsecast.db")
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Fatal("database file was not created")
	}
	if db.Path() != dbPath {
		t.Errorf("Path() = %q, want %q", db.Path(), dbPath)
	}

	// Verify WAL mode is active.
	var journalMode string
	if err := db.QueryRow("PRAGMA journal_mode").Scan(&journalMode); err != nil {
		t.Fatalf("querying journal_mode: %v", err)
	}
	if journalMode != "wal" {
		t.Errorf("journal_mode = %q, want wal", journalMode)
	}

	for _, table := range []string{"schema_migrations", "clips"} {
		var count int
		err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&count)
		if err != nil {
			t.Errorf("checking table %s: %v", table, err)
		}
		if count != 1 {
			t.Errorf("table %s not found", table)
		}
	}

	var migrationCount int
	if err := db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&migrationCount); err != nil {
		t.Fatalf("counting migrations: %v", err)
	}
	if migrationCount != 1 {
		t.Errorf("migration count = %d, want 1", migrationCount)
	}
}

func TestMigrationsIdempotent(t *testing.T) {
	dir := t.TempDir()

	// Open twice to verify migrations don't fail on re-run.
	db1, err := Open(dir)
	if err != nil {
		t.Fatalf("first Open() error: %v", err)
	}
	db1.Close()

	db2, err := Open(dir)
	if err != nil {
		t.Fatalf("second Open() error: %v", err)
	}
	db2.Close()
}

func newClip(id, key string, created time.Time) *models.Clip {
	return &models.Clip{
		ID:          id,
		CacheKey:    key,
		Text:        "sos",
		Morse:       "...   ---   ...",
		FrequencyHz: 1000,
		Volume:      0.25,
		Audio:       []byte{0xFF, 0xE3, 0x18, 0xC4},
		CreatedAt:   created,
	}
}

func TestClipRepository(t *testing.T) {
	db := openTestDB(t)
	repo := NewClipRepository(db)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	clip := newClip("c1", "key-1", now)
	if err := repo.Create(ctx, clip); err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if clip.AudioSize != 4 {
		t.Errorf("AudioSize = %d, want 4", clip.AudioSize)
	}

	got, err := repo.GetByID(ctx, "c1")
	if err != nil {
		t.Fatalf("GetByID() error: %v", err)
	}
	if got == nil {
		t.Fatal("GetByID() returned nil")
	}
	if got.Morse != clip.Morse || got.CacheKey != "key-1" || string(got.Audio) != string(clip.Audio) {
		t.Errorf("GetByID() = %+v", got)
	}
	if got.FrequencyHz != 1000 || got.Volume != 0.25 {
		t.Errorf("params = %g/%g", got.FrequencyHz, got.Volume)
	}
	if !got.CreatedAt.Equal(now) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, now)
	}

	byKey, err := repo.GetByKey(ctx, "key-1")
	if err != nil {
		t.Fatalf("GetByKey() error: %v", err)
	}
	if byKey == nil || byKey.ID != "c1" {
		t.Errorf("GetByKey() = %+v, want c1", byKey)
	}

	// Missing rows return nil, nil.
	missing, err := repo.GetByID(ctx, "nope")
	if err != nil || missing != nil {
		t.Errorf("GetByID(missing) = %v, %v; want nil, nil", missing, err)
	}
	missing, err = repo.GetByKey(ctx, "nope")
	if err != nil || missing != nil {
		t.Errorf("GetByKey(missing) = %v, %v; want nil, nil", missing, err)
	}

	// Cache keys are unique; the stored row wins.
	dup := newClip("c2", "key-1", now)
	dup.Text = "SOS"
	if err := repo.Create(ctx, dup); !errors.Is(err, ErrClipExists) {
		t.Errorf("Create(duplicate key) error = %v, want ErrClipExists", err)
	}
	kept, err := repo.GetByKey(ctx, "key-1")
	if err != nil || kept == nil {
		t.Fatalf("GetByKey(key-1) = %v, %v", kept, err)
	}
	if kept.ID != "c1" || kept.Text != "sos" {
		t.Errorf("duplicate overwrote the stored clip: %+v", kept)
	}

	n, err := repo.Count(ctx)
	if err != nil {
		t.Fatalf("Count() error: %v", err)
	}
	if n != 1 {
		t.Errorf("Count() = %d, want 1", n)
	}

	deleted, err := repo.Delete(ctx, "c1")
	if err != nil {
		t.Fatalf("Delete() error: %v", err)
	}
	if !deleted {
		t.Error("Delete() reported no row")
	}
	deleted, err = repo.Delete(ctx, "c1")
	if err != nil {
		t.Fatalf("second Delete() error: %v", err)
	}
	if deleted {
		t.Error("second Delete() reported a row")
	}
}

func TestClipRepositoryList(t *testing.T) {
	db := openTestDB(t)
	repo := NewClipRepository(db)
	ctx := context.Background()

	base := time.Now().UTC().Truncate(time.Second)
	for i, id := range []string{"old", "mid", "new"} {
		c := newClip(id, "key-"+id, base.Add(time.Duration(i)*time.Minute))
		if err := repo.Create(ctx, c); err != nil {
			t.Fatalf("Create(%s) error: %v", id, err)
		}
	}

	clips, err := repo.List(ctx, 2)
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(clips) != 2 {
		t.Fatalf("List() returned %d clips, want 2", len(clips))
	}
	if clips[0].ID != "new" || clips[1].ID != "mid" {
		t.Errorf("List() order = %s, %s; want new, mid", clips[0].ID, clips[1].ID)
	}
	if clips[0].Audio != nil {
		t.Error("List() should not load audio")
	}
	if clips[0].AudioSize != 4 {
		t.Errorf("AudioSize = %d, want 4", clips[0].AudioSize)
	}

	all, err := repo.List(ctx, 0)
	if err != nil {
		t.Fatalf("List(0) error: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("List(0) returned %d clips, want 3", len(all))
	}
}

func TestClipRepositoryDeleteOlderThan(t *testing.T) {
	db := openTestDB(t)
	repo := NewClipRepository(db)
	ctx := context.Background()

	now := time.Now().UTC()
	if err := repo.Create(ctx, newClip("fresh", "k1", now)); err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if err := repo.Create(ctx, newClip("stale", "k2", now.AddDate(0, 0, -10))); err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	n, err := repo.DeleteOlderThan(ctx, 7)
	if err != nil {
		t.Fatalf("DeleteOlderThan() error: %v", err)
	}
	if n != 1 {
		t.Errorf("DeleteOlderThan() = %d, want 1", n)
	}

	if c, _ := repo.GetByID(ctx, "stale"); c != nil {
		t.Error("stale clip survived")
	}
	if c, _ := repo.GetByID(ctx, "fresh"); c == nil {
		t.Error("fresh clip was deleted")
	}
}
