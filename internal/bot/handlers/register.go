package handlers

import (
	"context"
	"strings"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/guild-ledger/internal/i18n"
)

// NewRegisterHandler binds the sender's in-game name. Binding happens once.
func NewRegisterHandler(d Deps) Handler {
	return func(c telebot.Context) error {
		t := d.tr(c)

		name := strings.Join(Args(c.Text()), " ")
		if name == "" {
			return c.Send(i18n.Format(t, "register.usage", nil))
		}

		bound, err := d.Service.Register(context.Background(), senderID(c), name)
		if err != nil {
			return err
		}

		return c.Send(i18n.Format(t, "register.success", map[string]any{"Name": bound}))
	}
}
