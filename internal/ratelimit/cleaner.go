package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const sweepBatch = 100

// Cleaner trims limiter windows and drops the ones left empty.
type Cleaner struct {
	client   *redis.Client
	log      *slog.Logger
	interval time.Duration
	maxAge   time.Duration
}

// NewCleaner drops window entries older than maxAge every interval.
func NewCleaner(client *redis.Client, log *slog.Logger, interval, maxAge time.Duration) *Cleaner {
	if log == nil {
		log = slog.Default()
	}
	if maxAge <= 0 {
		maxAge = 5 * time.Minute
	}

	return &Cleaner{
		client:   client,
		log:      log.With(slog.String("component", "ratelimit_cleaner")),
		interval: interval,
		maxAge:   maxAge,
	}
}

// Run sweeps on every tick until ctx is cancelled.
func (c *Cleaner) Run(ctx context.Context) {
	if c.client == nil || c.interval <= 0 {
		return
	}

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.log.Info("rate limit cleaner stopped", slog.Any("reason", ctx.Err()))
			return
		case <-ticker.C:
			removed, err := c.Sweep(ctx)
			if err != nil {
				c.log.Error("rate limit sweep failed", slog.Any("error", err))
				continue
			}
			if removed > 0 {
				c.log.Info("rate limit keys cleaned", slog.Int("keys_removed", removed))
			}
		}
	}
}

// Sweep trims every limiter window and deletes the ones left empty,
// returning how many keys were deleted.
func (c *Cleaner) Sweep(ctx context.Context) (int, error) {
	cutoff := "(" + strconv.FormatInt(time.Now().Add(-c.maxAge).UnixMilli(), 10)
	removed := 0

	iter := c.client.Scan(ctx, 0, KeyPrefix+"*", sweepBatch).Iterator()
	batch := make([]string, 0, sweepBatch)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := c.trim(ctx, batch, cutoff)
		removed += n
		batch = batch[:0]
		return err
	}

	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == sweepBatch {
			if err := flush(); err != nil {
				return removed, err
			}
		}
	}
	if err := iter.Err(); err != nil {
		return removed, fmt.Errorf("scan limiter keys: %w", err)
	}

	return removed, flush()
}

func (c *Cleaner) trim(ctx context.Context, keys []string, cutoff string) (int, error) {
	pipe := c.client.Pipeline()
	cards := make([]*redis.IntCmd, len(keys))
	for i, key := range keys {
		pipe.ZRemRangeByScore(ctx, key, "-inf", cutoff)
		cards[i] = pipe.ZCard(ctx, key)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("trim limiter windows: %w", err)
	}

	var empty []string
	for i, card := range cards {
		if card.Val() == 0 {
			empty = append(empty, keys[i])
		}
	}
	if len(empty) == 0 {
		return 0, nil
	}

	if err := c.client.Del(ctx, empty...).Err(); err != nil {
		return 0, fmt.Errorf("delete empty limiter windows: %w", err)
	}
	return len(empty), nil
}
