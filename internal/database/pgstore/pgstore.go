// Package pgstore stores clips in PostgreSQL through the pgx database/sql
// driver. It is used when the service is configured with a DSN instead of a
// local SQLite data directory.
package pgstore

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/morsecast/morsecast/internal/database"
	"github.com/morsecast/morsecast/internal/database/models"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

var _ database.ClipRepository = (*Store)(nil)

// Store implements database.ClipRepository using PostgreSQL.
type Store struct {
	db *sql.DB
}

// New opens a PostgreSQL connection and runs pending migrations.
func New(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening postgresql: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging postgresql: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	s := &Store{db: db}

	applied, err := database.Migrate(ctx, db, migrationsFS, "migrations", database.Postgres)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	for _, v := range applied {
		slog.Info("applied migration", "store", database.Postgres.Name, "version", v)
	}

	slog.Info("postgresql store opened")
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Create inserts a new clip or returns database.ErrClipExists when its
// cache key is already stored.
func (s *Store) Create(ctx context.Context, clip *models.Clip) error {
	if clip.CreatedAt.IsZero() {
		clip.CreatedAt = time.Now().UTC()
	}
	clip.AudioSize = int64(len(clip.Audio))

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO clips (id, cache_key, text, morse, frequency_hz, volume,
		 audio, audio_size, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (cache_key) DO NOTHING`,
		clip.ID, clip.CacheKey, clip.Text, clip.Morse, clip.FrequencyHz,
		clip.Volume, clip.Audio, clip.AudioSize, clip.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting clip: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("inserting clip: %w", err)
	}
	if n == 0 {
		return database.ErrClipExists
	}
	return nil
}

// GetByID returns a clip by ID. Returns nil, nil if not found.
func (s *Store) GetByID(ctx context.Context, id string) (*models.Clip, error) {
	return scanOne(s.db.QueryRowContext(ctx,
		`SELECT id, cache_key, text, morse, frequency_hz, volume, audio,
		 audio_size, created_at
		 FROM clips WHERE id = $1`, id,
	))
}

// GetByKey returns a clip by cache key. Returns nil, nil if not found.
func (s *Store) GetByKey(ctx context.Context, key string) (*models.Clip, error) {
	return scanOne(s.db.QueryRowContext(ctx,
		`SELECT id, cache_key, text, morse, frequency_hz, volume, audio,
		 audio_size, created_at
		 FROM clips WHERE cache_key = $1`, key,
	))
}

// List returns the most recent clips without audio.
func (s *Store) List(ctx context.Context, limit int) ([]models.Clip, error) {
	if limit <= 0 {
		limit = database.DefaultListLimit
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, cache_key, text, morse, frequency_hz, volume, audio_size,
		 created_at
		 FROM clips ORDER BY created_at DESC, id LIMIT $1`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying clips: %w", err)
	}
	defer rows.Close()

	var clips []models.Clip
	for rows.Next() {
		var c models.Clip
		if err := rows.Scan(&c.ID, &c.CacheKey, &c.Text, &c.Morse,
			&c.FrequencyHz, &c.Volume, &c.AudioSize, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning clip row: %w", err)
		}
		clips = append(clips, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating clip rows: %w", err)
	}
	return clips, nil
}

// Delete removes a clip by ID and reports whether it existed.
func (s *Store) Delete(ctx context.Context, id string) (bool, error) {
	result, err := s.db.ExecContext(ctx, "DELETE FROM clips WHERE id = $1", id)
	if err != nil {
		return false, fmt.Errorf("deleting clip: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("getting rows affected: %w", err)
	}
	return n > 0, nil
}

// Count returns the number of stored clips.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM clips").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting clips: %w", err)
	}
	return n, nil
}

// DeleteOlderThan removes clips created more than days ago.
func (s *Store) DeleteOlderThan(ctx context.Context, days int) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		"DELETE FROM clips WHERE created_at < NOW() - make_interval(days => $1)", days)
	if err != nil {
		return 0, fmt.Errorf("deleting expired clips: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("getting rows affected: %w", err)
	}
	return n, nil
}

func scanOne(row *sql.Row) (*models.Clip, error) {
	var c models.Clip
	err := row.Scan(&c.ID, &c.CacheKey, &c.Text, &c.Morse, &c.FrequencyHz,
		&c.Volume, &c.Audio, &c.AudioSize, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scanning clip: %w", err)
	}
	return &c, nil
}
