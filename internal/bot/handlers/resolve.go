package handlers

import (
	"context"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/guild-ledger/internal/approval"
	"github.com/Proton-105/guild-ledger/internal/bot/keyboard"
	"github.com/Proton-105/guild-ledger/internal/domain"
	"github.com/Proton-105/guild-ledger/internal/i18n"
)

// NewResolveHandler handles "/approve <id>" and "/deny <id>".
func NewResolveHandler(d Deps, decision domain.Decision) Handler {
	return func(c telebot.Context) error {
		t := d.tr(c)

		args := Args(c.Text())
		if len(args) != 1 {
			return c.Send(i18n.Format(t, "resolve.usage", map[string]any{"Command": string(decision)}))
		}

		res, err := d.Service.Resolve(context.Background(), approval.ResolveRequest{
			TransferID: args[0],
			ResolverID: senderID(c),
			ChannelID:  chatID(c),
			Decision:   decision,
		})
		if err != nil {
			return err
		}

		return c.Send(resolutionText(t, res))
	}
}

// NewResolveCallback handles the approve/deny buttons on a log entry. The
// callback data carries only the transfer id.
func NewResolveCallback(d Deps, decision domain.Decision) Handler {
	return func(c telebot.Context) error {
		_, id, err := keyboard.DecodeCallback(c.Callback().Data)
		if err != nil || id == "" {
			return c.Respond()
		}

		res, err := d.Service.Resolve(context.Background(), approval.ResolveRequest{
			TransferID: id,
			ResolverID: senderID(c),
			ChannelID:  chatID(c),
			Decision:   decision,
		})
		if err != nil {
			return err
		}

		return c.Respond(&telebot.CallbackResponse{Text: resolutionText(d.tr(c), res)})
	}
}

func resolutionText(t i18n.Translator, res approval.Resolution) string {
	if res.Decision == domain.DecisionApprove {
		return i18n.Format(t, "resolve.approved", map[string]any{
			"ID":      res.Transfer.ID,
			"Balance": res.Balance,
		})
	}

	return i18n.Format(t, "resolve.denied", map[string]any{"ID": res.Transfer.ID})
}
