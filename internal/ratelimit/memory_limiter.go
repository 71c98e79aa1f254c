package ratelimit

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// MemoryLimiter keeps sliding windows in process memory. It backs the
// adaptive limiter while Redis is unreachable.
type MemoryLimiter struct {
	mu      sync.Mutex
	windows map[string][]time.Time
	now     func() time.Time
	log     *slog.Logger
}

var _ Limiter = (*MemoryLimiter)(nil)

func NewMemoryLimiter(log *slog.Logger) *MemoryLimiter {
	if log == nil {
		log = slog.Default()
	}

	return &MemoryLimiter{
		windows: make(map[string][]time.Time),
		now:     time.Now,
		log:     log,
	}
}

// Check records a hit for key when it fits in the window. ResetAt is when
// the oldest recorded hit expires.
func (m *MemoryLimiter) Check(_ context.Context, key string, limit int, window time.Duration) (*Result, error) {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	hits := dropBefore(m.windows[key], now.Add(-window))

	if limit <= 0 || len(hits) >= limit {
		m.windows[key] = hits
		resetAt := now.Add(window)
		if len(hits) > 0 {
			resetAt = hits[0].Add(window)
		}
		return &Result{Allowed: false, ResetAt: resetAt}, nil
	}

	hits = append(hits, now)
	m.windows[key] = hits

	return &Result{
		Allowed:   true,
		Remaining: limit - len(hits),
		ResetAt:   hits[0].Add(window),
	}, nil
}

// Cleanup forgets keys whose last hit is older than maxAge.
func (m *MemoryLimiter) Cleanup(maxAge time.Duration) int {
	if maxAge <= 0 {
		return 0
	}
	cutoff := m.now().Add(-maxAge)

	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for key, hits := range m.windows {
		if len(hits) == 0 || hits[len(hits)-1].Before(cutoff) {
			delete(m.windows, key)
			removed++
		}
	}
	return removed
}

// RunCleanup calls Cleanup every interval until ctx is done.
func (m *MemoryLimiter) RunCleanup(ctx context.Context, interval, maxAge time.Duration) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := m.Cleanup(maxAge); n > 0 {
				m.log.Debug("fallback limiter pruned idle keys", slog.Int("removed", n))
			}
		}
	}
}

// dropBefore removes the prefix of hits older than start, reusing the backing array.
func dropBefore(hits []time.Time, start time.Time) []time.Time {
	i := 0
	for i < len(hits) && hits[i].Before(start) {
		i++
	}
	if i == 0 {
		return hits
	}
	return append(hits[:0], hits[i:]...)
}
