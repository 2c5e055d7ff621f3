package database

import (
	"context"
	"errors"

	"github.com/morsecast/morsecast/internal/database/models"
)

// ErrClipExists is returned by Create when a clip with the same cache key
// is already stored. The existing row is left untouched.
var ErrClipExists = errors.New("clip with this cache key already exists")

// ClipRepository manages synthesized clips. Lookups return nil, nil when
// no row matches.
type ClipRepository interface {
	Create(ctx context.Context, clip *models.Clip) error
	GetByID(ctx context.Context, id string) (*models.Clip, error)
	GetByKey(ctx context.Context, key string) (*models.Clip, error)
	// List returns the most recent clips first, without audio.
	List(ctx context.Context, limit int) ([]models.Clip, error)
	Delete(ctx context.Context, id string) (bool, error)
	Count(ctx context.Context) (int64, error)
	// DeleteOlderThan removes clips created more than days ago and returns
	// how many were removed.
	DeleteOlderThan(ctx context.Context, days int) (int64, error)
}
