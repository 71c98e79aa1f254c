package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/guild-ledger/internal/approval"
	"github.com/Proton-105/guild-ledger/internal/bot/keyboard"
	"github.com/Proton-105/guild-ledger/internal/domain"
	apperrors "github.com/Proton-105/guild-ledger/internal/errors"
	"github.com/Proton-105/guild-ledger/pkg/metrics"
)

const breakerName = "telegram"

// Sender is the part of *telebot.Bot the sink uses.
type Sender interface {
	Send(to telebot.Recipient, what interface{}, opts ...interface{}) (*telebot.Message, error)
	Edit(msg telebot.Editable, what interface{}, opts ...interface{}) (*telebot.Message, error)
	EditCaption(msg telebot.Editable, caption string, opts ...interface{}) (*telebot.Message, error)
}

// TelegramSink posts to users and the log chat directly through the Bot API.
// Calls go through a retry policy and a shared circuit breaker.
type TelegramSink struct {
	sender    Sender
	logChatID int64
	renderer  *Renderer
	breaker   *apperrors.CircuitBreaker
	retry     apperrors.RetryPolicy
	log       *slog.Logger
}

var _ approval.Sink = (*TelegramSink)(nil)

func NewTelegramSink(sender Sender, logChatID int64, renderer *Renderer, log *slog.Logger) *TelegramSink {
	if log == nil {
		log = slog.Default()
	}

	breaker := apperrors.NewCircuitBreaker(apperrors.DefaultBreakerSettings, func(from, to apperrors.State) {
		metrics.SetCircuitState(breakerName, int(to))
		log.Warn("telegram circuit breaker state changed",
			slog.String("from", from.String()),
			slog.String("to", to.String()),
		)
	})

	return &TelegramSink{
		sender:    sender,
		logChatID: logChatID,
		renderer:  renderer,
		breaker:   breaker,
		retry:     apperrors.DefaultRetryPolicy,
		log:       log.With(slog.String("component", "notify")),
	}
}

// SendToUser sends a direct message.
func (s *TelegramSink) SendToUser(ctx context.Context, userID int64, notice approval.Notice) error {
	text := s.renderer.Notice(notice)

	return s.call(ctx, "send_to_user", func() error {
		_, err := s.sender.Send(&telebot.User{ID: userID}, text)
		return err
	})
}

// SendToLog posts an entry to the log chat. Pending deposits are posted as the
// proof photo with the entry as caption, and pending entries get approve/deny buttons.
func (s *TelegramSink) SendToLog(ctx context.Context, entry approval.LogEntry) (domain.LogRef, error) {
	text := s.renderer.LogEntry(entry)
	chat := &telebot.Chat{ID: s.logChatID}

	var opts []interface{}
	if entry.Status == approval.LogPending {
		markup, err := keyboard.TransferControls(s.renderer.Translator(), entry.Transfer.ID)
		if err != nil {
			return domain.LogRef{}, fmt.Errorf("build transfer controls: %w", err)
		}
		opts = append(opts, markup)
	}

	var what interface{} = text
	withMedia := entry.Status == approval.LogPending && entry.Transfer.ProofRef != ""
	if withMedia {
		what = &telebot.Photo{
			File:    telebot.File{FileID: entry.Transfer.ProofRef},
			Caption: text,
		}
	}

	var msg *telebot.Message
	err := s.call(ctx, "send_to_log", func() error {
		var sendErr error
		msg, sendErr = s.sender.Send(chat, what, opts...)
		return sendErr
	})
	if err != nil {
		return domain.LogRef{}, err
	}

	ref := domain.LogRef{ChatID: s.logChatID, HasMedia: withMedia}
	if msg != nil {
		ref.MessageID = strconv.Itoa(msg.ID)
		if msg.Chat != nil {
			ref.ChatID = msg.Chat.ID
		}
	}

	return ref, nil
}

// UpdateLog rewrites a log entry in place. The edit carries no markup, which
// removes the approve/deny buttons.
func (s *TelegramSink) UpdateLog(ctx context.Context, ref domain.LogRef, entry approval.LogEntry) error {
	if ref.Empty() {
		return nil
	}

	text := s.renderer.LogEntry(entry)
	stored := telebot.StoredMessage{MessageID: ref.MessageID, ChatID: ref.ChatID}

	return s.call(ctx, "update_log", func() error {
		var err error
		if ref.HasMedia {
			_, err = s.sender.EditCaption(stored, text)
		} else {
			_, err = s.sender.Edit(stored, text)
		}
		return err
	})
}

// SendDigest posts the stale pending summary to the log chat.
func (s *TelegramSink) SendDigest(ctx context.Context, items []domain.PendingTransfer, minAge time.Duration) error {
	if len(items) == 0 {
		return nil
	}

	text := s.renderer.Digest(items, minAge, time.Now().UTC())

	return s.call(ctx, "send_digest", func() error {
		_, err := s.sender.Send(&telebot.Chat{ID: s.logChatID}, text)
		return err
	})
}

// call retries transient failures. Permanent ones bypass the breaker's
// failure count so blocked users cannot open the circuit for everyone.
func (s *TelegramSink) call(ctx context.Context, operation string, fn func() error) error {
	var permanent error
	err := s.retry.Do(ctx, func() error {
		return s.breaker.Call(func() error {
			callErr := classify(fn())
			if callErr != nil && !apperrors.IsRetryable(callErr) {
				permanent = callErr
				return nil
			}
			return callErr
		})
	})
	if err == nil {
		err = permanent
	}
	if err != nil {
		return apperrors.NewNotificationError(operation, err)
	}

	return nil
}

// classify marks transient API failures as retryable. 4xx answers such as a
// blocked bot or a missing chat will not improve on retry.
func classify(err error) error {
	if err == nil {
		return nil
	}

	if IsPermanent(err) {
		return err
	}

	return apperrors.NewExternalAPIError("telegram", err)
}

// IsPermanent reports whether a delivery error will not succeed on retry.
func IsPermanent(err error) bool {
	var apiErr *telebot.Error
	return errors.As(err, &apiErr) && apiErr.Code >= 400 && apiErr.Code < 500
}
