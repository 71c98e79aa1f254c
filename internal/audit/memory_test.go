package audit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/guild-ledger/internal/domain"
)

func transferAt(id string, at time.Time) domain.PendingTransfer {
	return domain.PendingTransfer{
		ID:          id,
		Kind:        domain.KindDeposit,
		RequesterID: 1,
		Amount:      1000,
		Method:      domain.MethodVolt,
		CreatedAt:   at,
	}
}

func TestMemoryLog_Unresolved(t *testing.T) {
	ctx := context.Background()
	log := NewMemoryLog()
	boot := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	open := transferAt("AAAAAA", boot.Add(-time.Hour))
	closed := transferAt("BBBBBB", boot.Add(-2*time.Hour))
	reused := transferAt("BBBBBB", boot.Add(-30*time.Minute))
	after := transferAt("CCCCCC", boot.Add(time.Minute))

	for _, tr := range []domain.PendingTransfer{open, closed, reused, after} {
		require.NoError(t, log.Record(ctx, NewEvent(tr, EventRequested, 0, "")))
	}
	require.NoError(t, log.Record(ctx, NewEvent(closed, EventApproved, 9, "")))

	events, err := log.Unresolved(ctx, boot)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "AAAAAA", events[0].TransferID)
	assert.Equal(t, "BBBBBB", events[1].TransferID)
	assert.True(t, events[1].RequestedAt.Equal(reused.CreatedAt))
}

func TestMemoryLog_History(t *testing.T) {
	ctx := context.Background()
	log := NewMemoryLog()
	now := time.Now().UTC()

	a := transferAt("AAAAAA", now)
	b := transferAt("BBBBBB", now)
	other := transferAt("CCCCCC", now)
	other.RequesterID = 2

	require.NoError(t, log.Record(ctx, NewEvent(a, EventRequested, 0, "")))
	require.NoError(t, log.Record(ctx, NewEvent(a, EventApproved, 9, "")))
	require.NoError(t, log.Record(ctx, NewEvent(b, EventDenied, 9, "")))
	require.NoError(t, log.Record(ctx, NewEvent(other, EventApproved, 9, "")))

	events, err := log.History(ctx, 1, 10)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, EventDenied, events[0].Type)
	assert.Equal(t, EventApproved, events[1].Type)

	events, err = log.History(ctx, 1, 1)
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestEventType_Terminal(t *testing.T) {
	assert.False(t, EventRequested.Terminal())
	for _, et := range []EventType{EventApproved, EventDenied, EventReconciliation, EventExpired} {
		assert.True(t, et.Terminal(), et)
	}
}

func TestEvent_TransferRoundTrip(t *testing.T) {
	tr := transferAt("DDDDDD", time.Now().UTC())
	e := NewEvent(tr, EventRequested, 0, "")

	got := e.Transfer()
	assert.Equal(t, tr.ID, got.ID)
	assert.Equal(t, tr.Amount, got.Amount)
	assert.Equal(t, tr.Method, got.Method)
	assert.True(t, tr.CreatedAt.Equal(got.CreatedAt))
}
