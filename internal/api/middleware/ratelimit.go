package middleware

import (
	"context"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimitConfig configures per-client rate limiting for API endpoints.
type RateLimitConfig struct {
	// Rate is the number of requests allowed per second per client.
	Rate rate.Limit
	// Burst is the maximum burst size per client.
	Burst int
	// CleanupInterval is how often stale entries are removed.
	CleanupInterval time.Duration
	// MaxAge is how long an idle limiter is kept before eviction.
	MaxAge time.Duration
}

// NewRateLimitConfig returns a config allowing perSecond requests with a
// burst of twice that, and never less than one.
func NewRateLimitConfig(perSecond float64) RateLimitConfig {
	return RateLimitConfig{
		Rate:            rate.Limit(perSecond),
		Burst:           max(1, int(math.Ceil(perSecond*2))),
		CleanupInterval: 5 * time.Minute,
		MaxAge:          10 * time.Minute,
	}
}

// clientLimitEntry tracks a per-client rate limiter and when it was last used.
type clientLimitEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ClientRateLimiter rate limits requests per client key. Synthesis is CPU
// bound, so every client gets its own token bucket.
type ClientRateLimiter struct {
	mu      sync.Mutex
	entries map[string]*clientLimitEntry
	cfg     RateLimitConfig
}

// NewClientRateLimiter creates a limiter whose stale entries are evicted in
// the background until ctx is done.
func NewClientRateLimiter(ctx context.Context, cfg RateLimitConfig) *ClientRateLimiter {
	rl := &ClientRateLimiter{
		entries: make(map[string]*clientLimitEntry),
		cfg:     cfg,
	}
	go rl.cleanupLoop(ctx)
	return rl
}

// Reserve takes a token for key. It returns zero when the request may
// proceed, otherwise how long the client should wait.
func (rl *ClientRateLimiter) Reserve(key string) time.Duration {
	rl.mu.Lock()
	entry, ok := rl.entries[key]
	if !ok {
		entry = &clientLimitEntry{
			limiter: rate.NewLimiter(rl.cfg.Rate, rl.cfg.Burst),
		}
		rl.entries[key] = entry
	}
	entry.lastSeen = time.Now()
	rl.mu.Unlock()

	now := time.Now()
	res := entry.limiter.ReserveN(now, 1)
	if !res.OK() {
		return time.Second
	}
	delay := res.DelayFrom(now)
	if delay > 0 {
		res.CancelAt(now)
	}
	return delay
}

// Allow reports whether a request from key may proceed now.
func (rl *ClientRateLimiter) Allow(key string) bool {
	return rl.Reserve(key) == 0
}

func (rl *ClientRateLimiter) cleanupLoop(ctx context.Context) {
	ticker := time.NewTicker(rl.cfg.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanup()
		case <-ctx.Done():
			return
		}
	}
}

// cleanup removes entries that haven't been seen within MaxAge.
func (rl *ClientRateLimiter) cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := time.Now().Add(-rl.cfg.MaxAge)
	removed := 0
	for key, entry := range rl.entries {
		if !entry.lastSeen.After(cutoff) {
			delete(rl.entries, key)
			removed++
		}
	}
	if removed > 0 {
		slog.Debug("api rate limiter cleanup", "removed", removed, "remaining", len(rl.entries))
	}
}

// RateLimit limits requests per authenticated token subject, or per client
// IP when the request carries no token. Rejected requests get 429 with a
// Retry-After header in whole seconds.
func RateLimit(limiter *ClientRateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := clientKey(r)

			if wait := limiter.Reserve(key); wait > 0 {
				slog.Warn("rate limit exceeded",
					"client", key,
					"method", r.Method,
					"path", r.URL.Path,
				)
				secs := int(math.Ceil(wait.Seconds()))
				w.Header().Set("Retry-After", strconv.Itoa(max(1, secs)))
				writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// clientKey identifies the caller for rate limiting.
func clientKey(r *http.Request) string {
	if sub := SubjectFromContext(r.Context()); sub != "" {
		return "sub:" + sub
	}
	return "ip:" + extractIP(r)
}

// extractIP returns the client IP address from RemoteAddr with the port
// stripped. The server runs chi's RealIP first only when trust-proxy is set.
func extractIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
