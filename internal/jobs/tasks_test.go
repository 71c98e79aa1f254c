package jobs

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/guild-ledger/internal/approval"
	"github.com/Proton-105/guild-ledger/internal/domain"
)

func TestNewNotifyUserTask(t *testing.T) {
	notice := approval.Notice{
		Kind: approval.NoticeApproved,
		Transfer: domain.PendingTransfer{
			ID:     "7K2M9Q",
			Kind:   domain.KindWithdrawal,
			Amount: domain.MustParseAmount("12.50"),
			Method: domain.MethodVanguard,
		},
		Balance: domain.MustParseAmount("87.50"),
	}

	task, err := NewNotifyUserTask(42, notice)
	require.NoError(t, err)
	assert.Equal(t, TaskTypeNotifyUser, task.Type())

	var payload NotifyUserPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &payload))
	assert.Equal(t, int64(42), payload.UserID)
	assert.Equal(t, notice, payload.Notice)
}

func TestNewLogUpdateTask(t *testing.T) {
	ref := domain.LogRef{ChatID: -100, MessageID: "55", HasMedia: true}

	task, err := NewLogUpdateTask(ref, approval.LogEntry{Status: approval.LogDenied, ResolverID: 7})
	require.NoError(t, err)
	assert.Equal(t, TaskTypeLogUpdate, task.Type())

	var payload LogUpdatePayload
	require.NoError(t, json.Unmarshal(task.Payload(), &payload))
	assert.Equal(t, ref, payload.Ref)
	assert.Equal(t, approval.LogDenied, payload.Entry.Status)
}

func TestNewPendingDigestTask(t *testing.T) {
	task, err := NewPendingDigestTask(2 * time.Hour)
	require.NoError(t, err)
	assert.Equal(t, TaskTypePendingDigest, task.Type())

	var payload PendingDigestPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &payload))
	assert.Equal(t, 2*time.Hour, payload.MinAge)
}
