package handlers

import (
	"context"
	"log/slog"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/guild-ledger/internal/bot/keyboard"
	"github.com/Proton-105/guild-ledger/internal/domain"
	"github.com/Proton-105/guild-ledger/internal/i18n"
)

// NewStartHandler greets the member, resets any half-finished conversation and
// shows the main menu.
func NewStartHandler(d Deps) Handler {
	return func(c telebot.Context) error {
		userID := senderID(c)
		if userID == 0 {
			return nil
		}

		if d.FSM != nil {
			if err := d.FSM.Reset(context.Background(), userID); err != nil {
				d.logger().Warn("failed to reset user state", slog.Int64("user_id", userID), slog.Any("error", err))
			}
		}

		t := d.tr(c)
		text := i18n.Format(t, "start.welcome", map[string]any{"Name": c.Sender().FirstName})

		if c.Chat() != nil && c.Chat().Type == telebot.ChatPrivate {
			return c.Send(text, keyboard.MainMenu(d.isApprover(userID)))
		}
		return c.Send(text)
	}
}

// NewHelpHandler lists the commands, adding the approver section for approvers.
func NewHelpHandler(d Deps) Handler {
	return func(c telebot.Context) error {
		t := d.tr(c)

		text := i18n.Format(t, "help.member", map[string]any{"Methods": domain.PaymentMethodList()})
		if d.isApprover(senderID(c)) {
			text += i18n.Format(t, "help.approver", nil)
		}

		return c.Send(text)
	}
}
