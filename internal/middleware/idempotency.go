package middleware

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/guild-ledger/internal/bot/handlers"
	"github.com/Proton-105/guild-ledger/internal/idempotency"
)

// DefaultUpdateTTL covers Telegram's redelivery window for unacknowledged updates.
const DefaultUpdateTTL = 24 * time.Hour

// Idempotency runs a handler at most once per Telegram update, so a webhook
// redelivery cannot file the same request twice. Failed runs are not recorded
// and may be retried.
func Idempotency(manager idempotency.Manager, ttl time.Duration, log *slog.Logger) handlers.Middleware {
	if manager == nil {
		return func(next handlers.Handler) handlers.Handler {
			return next
		}
	}
	if log == nil {
		log = slog.Default()
	}
	if ttl <= 0 {
		ttl = DefaultUpdateTTL
	}

	return func(next handlers.Handler) handlers.Handler {
		if next == nil {
			return nil
		}

		return func(c telebot.Context) error {
			key := UpdateKey(c)
			if key == "" {
				return next(c)
			}

			var handlerErr error
			result, err := manager.Execute(context.Background(), key, ttl, func(context.Context) (interface{}, error) {
				handlerErr = next(c)
				return nil, handlerErr
			})
			switch {
			case handlerErr != nil:
				return handlerErr
			case errors.Is(err, idempotency.ErrRequestInProgress):
				log.Debug("duplicate update still in progress", slog.String("key", key))
				return nil
			case err != nil:
				// the handler already ran; only bookkeeping failed
				log.Warn("idempotency bookkeeping failed", slog.String("key", key), slog.Any("error", err))
				return nil
			}

			if result != nil && result.FromCache {
				log.Debug("duplicate update skipped", slog.String("key", key))
				if c.Callback() != nil {
					return c.Respond()
				}
			}

			return nil
		}
	}
}

// UpdateKey identifies an update. Callback ids are unique per button press;
// messages are keyed by chat and message id.
func UpdateKey(c telebot.Context) string {
	if c == nil {
		return ""
	}

	if cb := c.Callback(); cb != nil && cb.ID != "" {
		return idempotency.GenerateKey("cb", cb.ID)
	}

	if msg := c.Message(); msg != nil && msg.ID != 0 {
		chatID := int64(0)
		if msg.Chat != nil {
			chatID = msg.Chat.ID
		}
		return idempotency.GenerateKey("msg", strconv.FormatInt(chatID, 10), strconv.Itoa(msg.ID))
	}

	if upd := c.Update(); upd.ID != 0 {
		return idempotency.GenerateKey("upd", strconv.Itoa(upd.ID))
	}

	return ""
}
