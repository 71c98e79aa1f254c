package idempotency

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return mr, client
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestManager_ExecutesOnce(t *testing.T) {
	_, client := setupTestRedis(t)
	m := NewManager(NewRedisStore(client, testLogger()), testLogger())
	ctx := context.Background()

	var calls int32
	op := func(context.Context) (interface{}, error) {
		atomic.AddInt32(&calls, 1)
		return "filed", nil
	}

	first, err := m.Execute(ctx, "update-1", time.Hour, op)
	require.NoError(t, err)
	assert.False(t, first.FromCache)

	second, err := m.Execute(ctx, "update-1", time.Hour, op)
	require.NoError(t, err)
	assert.True(t, second.FromCache)
	assert.Equal(t, "filed", second.Response)

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestManager_FailedRunCanBeRetried(t *testing.T) {
	_, client := setupTestRedis(t)
	m := NewManager(NewRedisStore(client, testLogger()), testLogger())
	ctx := context.Background()

	boom := errors.New("boom")
	_, err := m.Execute(ctx, "update-2", time.Hour, func(context.Context) (interface{}, error) {
		return nil, boom
	})
	require.ErrorIs(t, err, boom)

	res, err := m.Execute(ctx, "update-2", time.Hour, func(context.Context) (interface{}, error) {
		return nil, nil
	})
	require.NoError(t, err)
	assert.False(t, res.FromCache)
}

func TestManager_ConcurrentDuplicates(t *testing.T) {
	_, client := setupTestRedis(t)
	m := NewManager(NewRedisStore(client, testLogger()), testLogger())
	ctx := context.Background()

	var calls int32
	release := make(chan struct{})
	op := func(context.Context) (interface{}, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return nil, nil
	}

	var wg sync.WaitGroup
	errs := make(chan error, 5)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := m.Execute(ctx, "update-3", time.Hour, op)
			errs <- err
		}()
	}

	// let the duplicates observe the in-flight record before releasing
	time.Sleep(300 * time.Millisecond)
	close(release)
	wg.Wait()
	close(errs)

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	for err := range errs {
		if err != nil {
			assert.ErrorIs(t, err, ErrRequestInProgress)
		}
	}
}

func TestCleaner_RemovesKeysWithoutExpiry(t *testing.T) {
	_, client := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, client.Set(ctx, KeyPrefix+"orphan", 1, 0).Err())
	require.NoError(t, client.Set(ctx, KeyPrefix+"fresh", 1, time.Hour).Err())
	require.NoError(t, client.Set(ctx, "other:key", 1, 0).Err())

	removed := NewCleaner(client, testLogger(), time.Minute, 25*time.Hour).cleanup(ctx)
	assert.Equal(t, 1, removed)

	exists, err := client.Exists(ctx, KeyPrefix+"fresh", "other:key").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(2), exists)
}

func TestGenerateKey(t *testing.T) {
	assert.Equal(t, GenerateKey("cb", "42"), GenerateKey("cb", "42"))
	assert.NotEqual(t, GenerateKey("cb", "42"), GenerateKey("cb", "43"))
	assert.NotEqual(t, GenerateKey("msg", "1", "23"), GenerateKey("msg", "12", "3"))

	key := GenerateKey("msg", "-100500", "7")
	assert.True(t, strings.HasPrefix(key, "msg:"))
	assert.Len(t, key, len("msg:")+32)
	assert.NotContains(t, key, "100500")
}
