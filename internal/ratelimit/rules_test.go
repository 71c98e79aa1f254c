package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/guild-ledger/pkg/config"
)

func TestRules_GetCommandLimit(t *testing.T) {
	rules := NewRules(config.RateLimitConfig{
		Enabled: true,
		PerUser: config.RateLimitRule{Limit: 30, Window: "1m"},
		Commands: config.CommandLimits{
			Deposit:  config.RateLimitRule{Limit: 5, Window: "10m"},
			Withdraw: config.RateLimitRule{Limit: 3, Window: "10m"},
		},
		Whitelist: []int64{100},
	})

	limit, window, err := rules.GetCommandLimit("/deposit")
	require.NoError(t, err)
	assert.Equal(t, 5, limit)
	assert.Equal(t, 10*time.Minute, window)

	limit, _, err = rules.GetCommandLimit("withdraw")
	require.NoError(t, err)
	assert.Equal(t, 3, limit)

	_, _, err = rules.GetCommandLimit("/register")
	assert.ErrorIs(t, err, ErrNoRule)

	_, _, err = rules.GetCommandLimit("/balance")
	assert.ErrorIs(t, err, ErrNoRule)

	limit, window, err = rules.GetPerUserLimit()
	require.NoError(t, err)
	assert.Equal(t, 30, limit)
	assert.Equal(t, time.Minute, window)

	assert.True(t, rules.Enabled())
	assert.True(t, rules.IsWhitelisted(100))
	assert.False(t, rules.IsWhitelisted(1))
}

func TestRules_InvalidWindow(t *testing.T) {
	rules := NewRules(config.RateLimitConfig{PerUser: config.RateLimitRule{Limit: 1, Window: "soon"}})

	_, _, err := rules.GetPerUserLimit()
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoRule)
}

type failingLimiter struct{}

func (failingLimiter) Check(context.Context, string, int, time.Duration) (*Result, error) {
	return nil, errors.New("redis: connection refused")
}

func TestAdaptiveLimiter_FallsBackWithHalvedLimit(t *testing.T) {
	limiter := NewAdaptiveLimiter(failingLimiter{}, NewMemoryLimiter(testLogger()), testLogger())
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		result, err := limiter.Check(ctx, "user:1", 4, time.Minute)
		require.NoError(t, err)
		assert.True(t, result.Allowed)
	}

	result, err := limiter.Check(ctx, "user:1", 4, time.Minute)
	assert.ErrorIs(t, err, ErrLimitExceeded)
	require.NotNil(t, result)
	assert.False(t, result.Allowed)
}

func TestAdaptiveLimiter_UsesPrimary(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	t.Cleanup(cleanup)

	limiter := NewAdaptiveLimiter(NewRedisLimiter(client, testLogger()), NewMemoryLimiter(testLogger()), testLogger())
	ctx := context.Background()

	_, err := limiter.Check(ctx, "user:2", 1, time.Minute)
	require.NoError(t, err)

	_, err = limiter.Check(ctx, "user:2", 1, time.Minute)
	assert.ErrorIs(t, err, ErrLimitExceeded)

	exists, err := client.Exists(ctx, KeyPrefix+"user:2").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), exists)
}
