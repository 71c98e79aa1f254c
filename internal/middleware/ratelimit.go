package middleware

import (
	"context"
	"errors"
	"log/slog"
	"time"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/guild-ledger/internal/bot/handlers"
	apperrors "github.com/Proton-105/guild-ledger/internal/errors"
	"github.com/Proton-105/guild-ledger/internal/ratelimit"
)

// RateLimit enforces the per-user rule on every update and the per-command
// rules on request commands. Limiter failures let the update through.
func RateLimit(limiter ratelimit.Limiter, rules *ratelimit.Rules, log *slog.Logger) handlers.Middleware {
	if limiter == nil || !rules.Enabled() {
		return func(next handlers.Handler) handlers.Handler {
			return next
		}
	}
	if log == nil {
		log = slog.Default()
	}

	return func(next handlers.Handler) handlers.Handler {
		if next == nil {
			return nil
		}

		return func(c telebot.Context) error {
			sender := c.Sender()
			if sender == nil || rules.IsWhitelisted(sender.ID) {
				return next(c)
			}

			ctx := context.Background()
			userID := sender.ID

			if limit, window, err := rules.GetPerUserLimit(); err == nil {
				if rejected := check(ctx, limiter, log, ratelimit.UserKey(userID), limit, window); rejected != nil {
					return rejected
				}
			}

			if cmd := handlers.CommandOf(c.Text()); cmd != "" {
				limit, window, err := rules.GetCommandLimit(cmd)
				if err == nil {
					if rejected := check(ctx, limiter, log, ratelimit.CommandKey(userID, cmd), limit, window); rejected != nil {
						return rejected
					}
				} else if !errors.Is(err, ratelimit.ErrNoRule) {
					log.Error("invalid command rate limit", slog.String("command", cmd), slog.Any("error", err))
				}
			}

			return next(c)
		}
	}
}

func check(ctx context.Context, limiter ratelimit.Limiter, log *slog.Logger, key string, limit int, window time.Duration) error {
	result, err := limiter.Check(ctx, key, limit, window)
	if err != nil && !errors.Is(err, ratelimit.ErrLimitExceeded) {
		log.Warn("rate limiter error", slog.String("key", key), slog.Any("error", err))
		return nil
	}
	if result == nil || result.Allowed {
		return nil
	}

	log.Info("rate limit exceeded", slog.String("key", key))
	return apperrors.NewRateLimitError(result.RetryAfter(time.Now()))
}
