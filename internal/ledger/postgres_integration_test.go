//go:build integration

package ledger

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/guild-ledger/internal/database/pgtest"
	"github.com/Proton-105/guild-ledger/internal/domain"
	apperrors "github.com/Proton-105/guild-ledger/internal/errors"
)

func TestIntegration_PostgresStore_Lifecycle(t *testing.T) {
	db := pgtest.Open(t)
	store := NewPostgresStore(db, nil)
	ctx := context.Background()

	account, err := store.Get(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, domain.Amount(0), account.Balance)
	assert.False(t, account.Registered())

	require.NoError(t, store.BindName(ctx, 100, "Alice"))
	assert.ErrorIs(t, store.BindName(ctx, 100, "Mallory"), apperrors.ErrAlreadyRegistered)

	account, err = store.Apply(ctx, 100, 5000)
	require.NoError(t, err)
	assert.Equal(t, domain.Amount(5000), account.Balance)
	assert.Equal(t, "Alice", account.BoundName)

	_, err = store.Apply(ctx, 100, -6000)
	assert.ErrorIs(t, err, apperrors.ErrInsufficientFunds)

	account, err = store.Get(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, domain.Amount(5000), account.Balance)

	require.NoError(t, store.SetDisplayName(ctx, 100, "alice_tg"))
	account, err = store.Get(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, "alice_tg", account.DisplayName)
}

func TestIntegration_PostgresStore_ConcurrentApply(t *testing.T) {
	db := pgtest.Open(t)
	store := NewPostgresStore(db, nil)
	ctx := context.Background()

	const workers = 20

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			_, err := store.Apply(ctx, 200, 250)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	account, err := store.Get(ctx, 200)
	require.NoError(t, err)
	assert.Equal(t, domain.Amount(workers*250), account.Balance)
}
