package state

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisStorage_SaveAndLoad(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	t.Cleanup(cleanup)

	storage := NewRedisStorage(client, testLogger(), time.Minute)
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	storage.now = func() time.Time { return fixed }

	ctx := context.Background()
	draft := testDraft()
	require.NoError(t, storage.Save(ctx, &UserState{UserID: 123, CurrentState: StateAwaitingProof, Draft: &draft}))

	result, err := storage.Load(ctx, 123)
	require.NoError(t, err)
	assert.Equal(t, &UserState{
		UserID:       123,
		CurrentState: StateAwaitingProof,
		Draft:        &draft,
		UpdatedAt:    fixed,
	}, result)

	ttl, err := client.TTL(ctx, "ledger:state:123").Result()
	require.NoError(t, err)
	assert.Equal(t, time.Minute, ttl)
}

func TestRedisStorage_NotFound(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	t.Cleanup(cleanup)

	storage := NewRedisStorage(client, testLogger(), time.Minute)
	ctx := context.Background()

	_, err := storage.Load(ctx, 999)
	assert.ErrorIs(t, err, ErrStateNotFound)

	_, err = storage.Take(ctx, 999)
	assert.ErrorIs(t, err, ErrStateNotFound)
}

func TestRedisStorage_TakeDeletes(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	t.Cleanup(cleanup)

	storage := NewRedisStorage(client, testLogger(), time.Minute)
	ctx := context.Background()
	require.NoError(t, storage.Save(ctx, &UserState{UserID: 456, CurrentState: StateAwaitingProof}))

	st, err := storage.Take(ctx, 456)
	require.NoError(t, err)
	assert.Equal(t, StateAwaitingProof, st.CurrentState)

	_, err = storage.Load(ctx, 456)
	assert.ErrorIs(t, err, ErrStateNotFound)
}

func TestRedisStorage_List(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	t.Cleanup(cleanup)

	storage := NewRedisStorage(client, testLogger(), time.Minute)
	ctx := context.Background()

	for _, id := range []int64{1, 2, 3} {
		require.NoError(t, storage.Save(ctx, &UserState{UserID: id, CurrentState: StateAwaitingProof}))
	}
	// lock keys share the prefix and must not be picked up
	require.NoError(t, client.Set(ctx, "ledger:state:lock:1", "token", time.Minute).Err())
	require.NoError(t, client.Set(ctx, "ledger:state:77", "{not json", time.Minute).Err())

	states, err := storage.List(ctx)
	require.NoError(t, err)
	assert.Len(t, states, 3)
}

func TestCleaner_SweepRemovesStaleStates(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	t.Cleanup(cleanup)

	storage := NewRedisStorage(client, testLogger(), time.Hour)
	ctx := context.Background()

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	storage.now = func() time.Time { return now.Add(-45 * time.Minute) }
	require.NoError(t, storage.Save(ctx, &UserState{UserID: 1, CurrentState: StateAwaitingProof}))
	storage.now = func() time.Time { return now.Add(-time.Minute) }
	require.NoError(t, storage.Save(ctx, &UserState{UserID: 2, CurrentState: StateAwaitingProof}))

	cleaner := NewCleaner(storage, testLogger(), 30*time.Minute, time.Minute)
	cleaner.now = func() time.Time { return now }

	assert.Equal(t, 1, cleaner.Sweep(ctx))

	_, err := storage.Load(ctx, 1)
	assert.ErrorIs(t, err, ErrStateNotFound)
	_, err = storage.Load(ctx, 2)
	assert.NoError(t, err)
}
