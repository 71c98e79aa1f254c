package handlers

import (
	"context"
	"strings"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/guild-ledger/internal/audit"
	"github.com/Proton-105/guild-ledger/internal/i18n"
)

const historyLimit = 10

func NewBalanceHandler(d Deps) Handler {
	return func(c telebot.Context) error {
		t := d.tr(c)

		view, err := d.Service.Balance(context.Background(), senderID(c))
		if err != nil {
			return err
		}

		name := view.BoundName
		if name == "" {
			name = i18n.Format(t, "balance.unregistered", nil)
		}

		return c.Send(i18n.Format(t, "balance.summary", map[string]any{
			"Name":    name,
			"Balance": view.Balance,
			"Credit":  view.Credit,
		}))
	}
}

// NewHistoryHandler lists the sender's recently resolved transfers.
func NewHistoryHandler(d Deps) Handler {
	return func(c telebot.Context) error {
		t := d.tr(c)

		events, err := d.Service.History(context.Background(), senderID(c), historyLimit)
		if err != nil {
			return err
		}
		if len(events) == 0 {
			return c.Send(i18n.Format(t, "history.empty", nil))
		}

		lines := make([]string, 0, len(events)+1)
		lines = append(lines, i18n.Format(t, "history.header", nil))
		for _, e := range events {
			lines = append(lines, i18n.Format(t, "history.line", map[string]any{
				"ID":     e.TransferID,
				"Kind":   i18n.Format(t, "kind."+string(e.Kind), nil),
				"Amount": e.Amount,
				"Method": e.Method,
				"Status": i18n.Format(t, "log.status_"+statusKey(e.Type), nil),
				"Date":   e.CreatedAt.UTC().Format("2006-01-02"),
			}))
		}

		return c.Send(strings.Join(lines, "\n"))
	}
}

func statusKey(t audit.EventType) string {
	if t == audit.EventReconciliation {
		return "reconciliation"
	}
	return string(t)
}
