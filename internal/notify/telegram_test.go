package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/guild-ledger/internal/approval"
	"github.com/Proton-105/guild-ledger/internal/domain"
	apperrors "github.com/Proton-105/guild-ledger/internal/errors"
)

type sentMessage struct {
	to   telebot.Recipient
	what interface{}
	opts []interface{}
}

type fakeSender struct {
	mu       sync.Mutex
	sent     []sentMessage
	edits    []string
	captions []string
	errs     []error
	nextID   int
}

func (f *fakeSender) popErr() error {
	if len(f.errs) == 0 {
		return nil
	}
	err := f.errs[0]
	f.errs = f.errs[1:]
	return err
}

func (f *fakeSender) Send(to telebot.Recipient, what interface{}, opts ...interface{}) (*telebot.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.popErr(); err != nil {
		return nil, err
	}

	f.sent = append(f.sent, sentMessage{to: to, what: what, opts: opts})
	f.nextID++

	return &telebot.Message{ID: f.nextID, Chat: &telebot.Chat{ID: -500}}, nil
}

func (f *fakeSender) Edit(_ telebot.Editable, what interface{}, _ ...interface{}) (*telebot.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.popErr(); err != nil {
		return nil, err
	}
	f.edits = append(f.edits, what.(string))
	return &telebot.Message{}, nil
}

func (f *fakeSender) EditCaption(_ telebot.Editable, caption string, _ ...interface{}) (*telebot.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.popErr(); err != nil {
		return nil, err
	}
	f.captions = append(f.captions, caption)
	return &telebot.Message{}, nil
}

func testSink(t *testing.T, sender *fakeSender) *TelegramSink {
	t.Helper()

	sink := NewTelegramSink(sender, -500, testRenderer(t), nil)
	sink.retry = apperrors.RetryPolicy{
		MaxRetries:        2,
		InitialBackoff:    time.Millisecond,
		MaxBackoff:        time.Millisecond,
		BackoffMultiplier: 1,
	}
	return sink
}

func TestTelegramSink_SendToLogPendingDeposit(t *testing.T) {
	sender := &fakeSender{}
	sink := testSink(t, sender)

	tr := sampleTransfer()
	tr.ProofRef = "proof-file-id"

	ref, err := sink.SendToLog(context.Background(), approval.LogEntry{Transfer: tr, Status: approval.LogPending})
	require.NoError(t, err)

	assert.Equal(t, domain.LogRef{ChatID: -500, MessageID: "1", HasMedia: true}, ref)
	require.Len(t, sender.sent, 1)

	photo, ok := sender.sent[0].what.(*telebot.Photo)
	require.True(t, ok)
	assert.Equal(t, "proof-file-id", photo.FileID)
	assert.Contains(t, photo.Caption, "7K2M9Q")

	require.Len(t, sender.sent[0].opts, 1)
	markup, ok := sender.sent[0].opts[0].(*telebot.ReplyMarkup)
	require.True(t, ok)
	require.Len(t, markup.InlineKeyboard, 1)
	assert.Len(t, markup.InlineKeyboard[0], 2)
}

func TestTelegramSink_SendToLogResolvedHasNoControls(t *testing.T) {
	sender := &fakeSender{}
	sink := testSink(t, sender)

	ref, err := sink.SendToLog(context.Background(), approval.LogEntry{Transfer: sampleTransfer(), Status: approval.LogExpired})
	require.NoError(t, err)

	assert.False(t, ref.HasMedia)
	require.Len(t, sender.sent, 1)
	assert.IsType(t, "", sender.sent[0].what)
	assert.Empty(t, sender.sent[0].opts)
}

func TestTelegramSink_UpdateLog(t *testing.T) {
	sender := &fakeSender{}
	sink := testSink(t, sender)
	ctx := context.Background()
	entry := approval.LogEntry{Transfer: sampleTransfer(), Status: approval.LogApproved, ResolverID: 100}

	require.NoError(t, sink.UpdateLog(ctx, domain.LogRef{ChatID: -500, MessageID: "1", HasMedia: true}, entry))
	require.NoError(t, sink.UpdateLog(ctx, domain.LogRef{ChatID: -500, MessageID: "2"}, entry))
	require.NoError(t, sink.UpdateLog(ctx, domain.LogRef{}, entry))

	assert.Len(t, sender.captions, 1)
	assert.Len(t, sender.edits, 1)
	assert.Contains(t, sender.edits[0], "Resolved by: #100")
}

func TestTelegramSink_RetriesTransientErrors(t *testing.T) {
	sender := &fakeSender{errs: []error{errors.New("connection reset"), errors.New("connection reset")}}
	sink := testSink(t, sender)

	err := sink.SendToUser(context.Background(), 42, approval.Notice{Kind: approval.NoticeDenied, Transfer: sampleTransfer()})
	require.NoError(t, err)

	require.Len(t, sender.sent, 1)
	user, ok := sender.sent[0].to.(*telebot.User)
	require.True(t, ok)
	assert.Equal(t, int64(42), user.ID)
}

func TestTelegramSink_PermanentErrorIsNotRetried(t *testing.T) {
	blocked := &telebot.Error{Code: 403, Description: "Forbidden: bot was blocked by the user"}
	sender := &fakeSender{errs: []error{blocked, blocked}}
	sink := testSink(t, sender)

	err := sink.SendToUser(context.Background(), 42, approval.Notice{Kind: approval.NoticeDenied, Transfer: sampleTransfer()})
	require.Error(t, err)

	assert.True(t, IsPermanent(err))
	assert.Equal(t, apperrors.CodeNotificationDelivery, apperrors.CodeOf(err))
	// second queued error never consumed
	assert.Len(t, sender.errs, 1)
	assert.Equal(t, apperrors.StateClosed, sink.breaker.State())
}

func TestTelegramSink_SendDigestSkipsEmpty(t *testing.T) {
	sender := &fakeSender{}
	sink := testSink(t, sender)

	require.NoError(t, sink.SendDigest(context.Background(), nil, time.Hour))
	assert.Empty(t, sender.sent)

	require.NoError(t, sink.SendDigest(context.Background(), []domain.PendingTransfer{sampleTransfer()}, time.Hour))
	assert.Len(t, sender.sent, 1)
}
