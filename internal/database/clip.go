package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/morsecast/morsecast/internal/database/models"
)

// DefaultListLimit caps List when the caller passes a non-positive limit.
const DefaultListLimit = 50

// clipRepo implements ClipRepository.
type clipRepo struct {
	db *DB
}

// NewClipRepository creates a new ClipRepository.
func NewClipRepository(db *DB) ClipRepository {
	return &clipRepo{db: db}
}

// Create inserts a new clip. CreatedAt is set to now when zero. A clip
// whose cache key is already stored is not inserted and ErrClipExists is
// returned.
func (r *clipRepo) Create(ctx context.Context, clip *models.Clip) error {
	if clip.CreatedAt.IsZero() {
		clip.CreatedAt = time.Now().UTC()
	}
	clip.AudioSize = int64(len(clip.Audio))

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO clips (id, cache_key, text, morse, frequency_hz, volume,
		 audio, audio_size, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(cache_key) DO NOTHING`,
		clip.ID, clip.CacheKey, clip.Text, clip.Morse, clip.FrequencyHz,
		clip.Volume, clip.Audio, clip.AudioSize, clip.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("inserting clip: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("inserting clip: %w", err)
	}
	if n == 0 {
		return ErrClipExists
	}
	return nil
}

// GetByID returns a clip with its audio by ID.
func (r *clipRepo) GetByID(ctx context.Context, id string) (*models.Clip, error) {
	return r.scanOne(r.db.QueryRowContext(ctx,
		`SELECT id, cache_key, text, morse, frequency_hz, volume, audio,
		 audio_size, created_at
		 FROM clips WHERE id = ?`, id,
	))
}

// GetByKey returns a clip with its audio by cache key.
func (r *clipRepo) GetByKey(ctx context.Context, key string) (*models.Clip, error) {
	return r.scanOne(r.db.QueryRowContext(ctx,
		`SELECT id, cache_key, text, morse, frequency_hz, volume, audio,
		 audio_size, created_at
		 FROM clips WHERE cache_key = ?`, key,
	))
}

// List returns the most recent clips without audio.
func (r *clipRepo) List(ctx context.Context, limit int) ([]models.Clip, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, cache_key, text, morse, frequency_hz, volume, audio_size,
		 created_at
		 FROM clips ORDER BY created_at DESC, id LIMIT ?`, limit,
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
func (r *clipRepo) Delete(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM clips WHERE id = ?", id)
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
func (r *clipRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM clips").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting clips: %w", err)
	}
	return n, nil
}

// DeleteOlderThan removes clips created more than days ago.
func (r *clipRepo) DeleteOlderThan(ctx context.Context, days int) (int64, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -days)

	result, err := r.db.ExecContext(ctx, "DELETE FROM clips WHERE created_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("deleting expired clips: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("getting rows affected: %w", err)
	}
	return n, nil
}

func (r *clipRepo) scanOne(row *sql.Row) (*models.Clip, error) {
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
