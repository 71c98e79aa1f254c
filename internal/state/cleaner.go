package state

import (
	"context"
	"log/slog"
	"time"
)

// Cleaner drops conversations idle for longer than ttl. Redis expiry covers
// the common case; this catches stores without expiry and states whose TTL
// was extended by a config change.
type Cleaner struct {
	storage  Storage
	log      *slog.Logger
	ttl      time.Duration
	interval time.Duration
	now      func() time.Time
}

func NewCleaner(storage Storage, log *slog.Logger, ttl, interval time.Duration) *Cleaner {
	if log == nil {
		log = slog.Default()
	}
	if ttl <= 0 {
		ttl = defaultStateTTL
	}

	return &Cleaner{
		storage:  storage,
		log:      log.With(slog.String("component", "state_cleaner")),
		ttl:      ttl,
		interval: interval,
		now:      time.Now,
	}
}

// Run sweeps every interval until ctx is cancelled.
func (c *Cleaner) Run(ctx context.Context) {
	if c.storage == nil || c.interval <= 0 {
		return
	}

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.log.Info("state cleaner stopped", slog.Any("reason", ctx.Err()))
			return
		case <-ticker.C:
			if n := c.Sweep(ctx); n > 0 {
				c.log.Info("stale conversations cleared", slog.Int("count", n))
			}
		}
	}
}

// Sweep deletes stale states and returns how many it removed.
func (c *Cleaner) Sweep(ctx context.Context) int {
	states, err := c.storage.List(ctx)
	if err != nil {
		c.log.Error("state cleaner list failed", slog.Any("error", err))
		return 0
	}

	cutoff := c.now().Add(-c.ttl)
	removed := 0
	for _, st := range states {
		if !st.UpdatedAt.Before(cutoff) {
			continue
		}
		if err := c.storage.Delete(ctx, st.UserID); err != nil {
			c.log.Error("state cleaner delete failed", slog.Int64("user_id", st.UserID), slog.Any("error", err))
			continue
		}
		transitionRecorder(string(st.CurrentState), string(StateIdle))
		removed++
	}
	return removed
}
