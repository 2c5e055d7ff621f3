// Package retention removes stored clips once they outlive the configured
// retention window.
package retention

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

// DefaultInterval is how often expired clips are swept.
const DefaultInterval = time.Hour

// Store deletes clips created more than days ago and reports how many were
// removed.
type Store interface {
	DeleteOlderThan(ctx context.Context, days int) (int64, error)
}

// Sweeper periodically deletes expired clips. A MaxDays of 0 keeps clips
// forever.
type Sweeper struct {
	store    Store
	maxDays  int
	interval time.Duration
	expired  atomic.Uint64
}

// NewSweeper creates a sweeper. A non-positive interval uses DefaultInterval.
func NewSweeper(store Store, maxDays int, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Sweeper{store: store, maxDays: maxDays, interval: interval}
}

// Expired returns the number of clips removed since the sweeper was created.
func (s *Sweeper) Expired() uint64 {
	return s.expired.Load()
}

// Sweep runs one cleanup pass and returns the number of clips removed.
func (s *Sweeper) Sweep(ctx context.Context) (int64, error) {
	if s.maxDays <= 0 {
		return 0, nil
	}
	n, err := s.store.DeleteOlderThan(ctx, s.maxDays)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.expired.Add(uint64(n))
		slog.Info("clip retention cleanup", "deleted", n, "max_days", s.maxDays)
	}
	return n, nil
}

// Start runs a background goroutine that sweeps once immediately and then on
// every interval. It returns a channel that is closed once the goroutine has
// stopped after ctx is cancelled. If retention is disabled nothing is started
// and the returned channel is already closed.
func (s *Sweeper) Start(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})
	if s.maxDays <= 0 {
		close(done)
		return done
	}

	go func() {
		defer close(done)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			if _, err := s.Sweep(ctx); err != nil && ctx.Err() == nil {
				slog.Error("clip retention cleanup failed", "error", err)
			}
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
	return done
}
