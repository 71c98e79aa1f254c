package bot

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"
	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/guild-ledger/internal/bot/handlers"
	errors "github.com/Proton-105/guild-ledger/internal/errors"
	"github.com/Proton-105/guild-ledger/internal/i18n"
	"github.com/Proton-105/guild-ledger/internal/identity"
	"github.com/Proton-105/guild-ledger/pkg/logger"
)

const (
	correlationKey = "correlation_id"
	touchTimeout   = 3 * time.Second
)

// updateContext carries the update's correlation id for logging and error reporting.
func updateContext(c telebot.Context) context.Context {
	ctx := context.Background()
	if c == nil {
		return ctx
	}
	if id, ok := c.Get(correlationKey).(string); ok && id != "" {
		ctx = logger.WithCorrelationID(ctx, id)
	}
	return ctx
}

// reply answers a callback with an alert and anything else with a message.
func reply(c telebot.Context, text string) error {
	if c == nil || text == "" {
		return nil
	}
	if c.Callback() != nil {
		return c.Respond(&telebot.CallbackResponse{Text: text, ShowAlert: true})
	}
	return c.Send(text)
}

// RecoveryMiddleware catches panics, reports them via the centralized handler, and notifies the user.
func RecoveryMiddleware(log *slog.Logger, errHandler *errors.Handler) handlers.Middleware {
	if log == nil {
		log = slog.Default()
	}

	return func(next handlers.Handler) handlers.Handler {
		if next == nil {
			return nil
		}

		return func(c telebot.Context) (err error) {
			defer func() {
				if r := recover(); r != nil {
					log.Error("panic recovered in handler", slog.Any("panic", r), slog.String("stack", string(debug.Stack())))

					userMsg := "Something went wrong. Please try again later."
					if errHandler != nil {
						appErr := errors.NewStateError(fmt.Sprintf("panic recovered: %v", r))
						appErr.Severity = errors.SeverityCritical
						userMsg = errHandler.Handle(updateContext(c), appErr).Message
					}

					if sendErr := reply(c, userMsg); sendErr != nil {
						log.Error("failed to notify user about panic", slog.Any("error", sendErr))
					}

					err = nil
				}
			}()

			return next(c)
		}
	}
}

// ErrorHandlingMiddleware reports handler failures and tells the user what
// went wrong. A catalog entry "errors.<code>" overrides the built-in message.
func ErrorHandlingMiddleware(errHandler *errors.Handler, catalog *i18n.Manager) handlers.Middleware {
	return func(next handlers.Handler) handlers.Handler {
		if next == nil {
			return nil
		}

		return func(c telebot.Context) error {
			err := next(c)
			if err == nil {
				return nil
			}

			out := errors.Outcome{Code: errors.CodeOf(err), Message: "Something went wrong. Please try again later."}
			if errHandler != nil {
				out = errHandler.Handle(updateContext(c), err)
			}

			userMsg := out.Message
			if code := out.Code; code != "" && catalog != nil {
				lang := ""
				if c.Sender() != nil {
					lang = c.Sender().LanguageCode
				}
				key := "errors." + code
				if text := catalog.Translator(lang).T(key); text != "" && text != key {
					userMsg = text
				}
			}

			_ = reply(c, userMsg)
			return nil
		}
	}
}

// LoggingMiddleware tags each update with a correlation id and logs it.
func LoggingMiddleware(log *slog.Logger) handlers.Middleware {
	if log == nil {
		log = slog.Default()
	}

	return func(next handlers.Handler) handlers.Handler {
		if next == nil {
			return nil
		}

		return func(c telebot.Context) error {
			start := time.Now()
			correlationID := uuid.NewString()
			c.Set(correlationKey, correlationID)

			userID := int64(0)
			if c.Sender() != nil {
				userID = c.Sender().ID
			}
			chatID := int64(0)
			if c.Chat() != nil {
				chatID = c.Chat().ID
			}

			action := handlers.CommandOf(c.Text())
			if cb := c.Callback(); cb != nil {
				action = cb.Data
			} else if action == "" {
				action = "message"
			}

			err := next(c)
			log.Info("handled update",
				slog.String(correlationKey, correlationID),
				slog.Int64("user_id", userID),
				slog.Int64("chat_id", chatID),
				slog.String("action", action),
				slog.Duration("duration", time.Since(start)),
				slog.Any("error", err),
			)

			return err
		}
	}
}

// ProfileTouchMiddleware keeps the member's display name current. It never
// binds an in-game name; that only happens through /register.
func ProfileTouchMiddleware(registry *identity.Registry, log *slog.Logger) handlers.Middleware {
	if log == nil {
		log = slog.Default()
	}

	return func(next handlers.Handler) handlers.Handler {
		if next == nil {
			return nil
		}

		return func(c telebot.Context) error {
			if registry != nil && c.Sender() != nil && !c.Sender().IsBot {
				userID := c.Sender().ID
				name := displayName(c.Sender())

				go func() {
					ctx, cancel := context.WithTimeout(context.Background(), touchTimeout)
					defer cancel()
					if err := registry.Touch(ctx, userID, name); err != nil {
						log.Debug("profile touch failed", slog.Int64("user_id", userID), slog.Any("error", err))
					}
				}()
			}

			return next(c)
		}
	}
}

func displayName(u *telebot.User) string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		name = u.Username
	}
	return name
}
