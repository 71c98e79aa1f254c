//go:build integration

package audit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/guild-ledger/internal/database/pgtest"
)

func TestIntegration_PostgresLog(t *testing.T) {
	db := pgtest.Open(t)
	log := NewPostgresLog(db, nil)
	ctx := context.Background()

	boot := time.Now().UTC().Truncate(time.Microsecond)
	open := transferAt("AAAAAA", boot.Add(-time.Hour))
	closed := transferAt("BBBBBB", boot.Add(-time.Hour))

	require.NoError(t, log.Record(ctx, NewEvent(open, EventRequested, 0, "")))
	require.NoError(t, log.Record(ctx, NewEvent(closed, EventRequested, 0, "")))
	require.NoError(t, log.Record(ctx, NewEvent(closed, EventDenied, 7, "")))

	unresolved, err := log.Unresolved(ctx, boot)
	require.NoError(t, err)
	require.Len(t, unresolved, 1)
	assert.Equal(t, "AAAAAA", unresolved[0].TransferID)
	assert.Equal(t, open.Amount, unresolved[0].Amount)

	history, err := log.History(ctx, 1, 5)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, EventDenied, history[0].Type)
	assert.Equal(t, int64(7), history[0].ActorID)
}
