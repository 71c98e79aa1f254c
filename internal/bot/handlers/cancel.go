package handlers

import (
	"context"
	"log/slog"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/guild-ledger/internal/i18n"
)

// NewCancelHandler drops any half-finished conversation, such as a deposit
// waiting for its screenshot.
func NewCancelHandler(d Deps) Handler {
	return func(c telebot.Context) error {
		userID := senderID(c)
		if userID == 0 {
			d.logger().Warn("cancel handler invoked without sender context")
			return nil
		}

		if d.FSM != nil {
			if err := d.FSM.Reset(context.Background(), userID); err != nil {
				d.logger().Error("failed to clear user state", slog.Int64("user_id", userID), slog.Any("error", err))
				return err
			}
		}

		return c.Send(i18n.Format(d.tr(c), "cancel.done", nil))
	}
}
