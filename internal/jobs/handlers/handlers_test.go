package handlers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/guild-ledger/internal/approval"
	"github.com/Proton-105/guild-ledger/internal/domain"
	"github.com/Proton-105/guild-ledger/internal/jobs"
)

type fakeDelivery struct {
	err     error
	users   []int64
	updates []domain.LogRef
}

func (f *fakeDelivery) SendToUser(_ context.Context, userID int64, _ approval.Notice) error {
	f.users = append(f.users, userID)
	return f.err
}

func (f *fakeDelivery) UpdateLog(_ context.Context, ref domain.LogRef, _ approval.LogEntry) error {
	f.updates = append(f.updates, ref)
	return f.err
}

func TestNotifyUserHandler(t *testing.T) {
	delivery := &fakeDelivery{}
	h := NewNotifyUserHandler(delivery, nil)

	task, err := jobs.NewNotifyUserTask(42, approval.Notice{Kind: approval.NoticeDenied})
	require.NoError(t, err)

	require.NoError(t, h.ProcessTask(context.Background(), task))
	assert.Equal(t, []int64{42}, delivery.users)
}

func TestNotifyUserHandler_BadPayloadSkipsRetry(t *testing.T) {
	h := NewNotifyUserHandler(&fakeDelivery{}, nil)

	err := h.ProcessTask(context.Background(), asynq.NewTask(jobs.TaskTypeNotifyUser, []byte("{")))
	require.Error(t, err)
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestNotifyUserHandler_ErrorClassification(t *testing.T) {
	task, err := jobs.NewNotifyUserTask(42, approval.Notice{Kind: approval.NoticeDenied})
	require.NoError(t, err)

	transient := NewNotifyUserHandler(&fakeDelivery{err: errors.New("timeout")}, nil)
	err = transient.ProcessTask(context.Background(), task)
	require.Error(t, err)
	assert.NotErrorIs(t, err, asynq.SkipRetry)

	blocked := NewNotifyUserHandler(&fakeDelivery{err: &telebot.Error{Code: 403, Description: "Forbidden"}}, nil)
	err = blocked.ProcessTask(context.Background(), task)
	require.Error(t, err)
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestLogUpdateHandler(t *testing.T) {
	delivery := &fakeDelivery{}
	h := NewLogUpdateHandler(delivery, nil)
	ref := domain.LogRef{ChatID: -1, MessageID: "3"}

	task, err := jobs.NewLogUpdateTask(ref, approval.LogEntry{Status: approval.LogApproved})
	require.NoError(t, err)

	require.NoError(t, h.ProcessTask(context.Background(), task))
	assert.Equal(t, []domain.LogRef{ref}, delivery.updates)
}

type fakePending struct {
	items  []domain.PendingTransfer
	gotAge time.Duration
}

func (f *fakePending) PendingOlderThan(age time.Duration, _ time.Time) []domain.PendingTransfer {
	f.gotAge = age
	return f.items
}

type fakePoster struct {
	calls int
	items []domain.PendingTransfer
}

func (f *fakePoster) SendDigest(_ context.Context, items []domain.PendingTransfer, _ time.Duration) error {
	f.calls++
	f.items = items
	return nil
}

func TestPendingDigestHandler(t *testing.T) {
	source := &fakePending{items: []domain.PendingTransfer{{ID: "AAAAAA"}}}
	poster := &fakePoster{}
	h := NewPendingDigestHandler(source, poster, nil)

	task, err := jobs.NewPendingDigestTask(time.Hour)
	require.NoError(t, err)

	require.NoError(t, h.ProcessTask(context.Background(), task))
	assert.Equal(t, time.Hour, source.gotAge)
	assert.Equal(t, 1, poster.calls)
	assert.Len(t, poster.items, 1)
}

func TestPendingDigestHandler_NothingStale(t *testing.T) {
	poster := &fakePoster{}
	h := NewPendingDigestHandler(&fakePending{}, poster, nil)

	task, err := jobs.NewPendingDigestTask(time.Hour)
	require.NoError(t, err)

	require.NoError(t, h.ProcessTask(context.Background(), task))
	assert.Zero(t, poster.calls)
}
