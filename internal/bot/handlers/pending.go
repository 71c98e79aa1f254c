package handlers

import (
	"errors"
	"strconv"
	"strings"
	"time"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/guild-ledger/internal/bot/keyboard"
	"github.com/Proton-105/guild-ledger/internal/domain"
	"github.com/Proton-105/guild-ledger/internal/i18n"
	"github.com/Proton-105/guild-ledger/internal/notify"
)

const pendingPageSize = 5

// NewPendingHandler shows approvers the pending list, or a single transfer
// with its approve/deny buttons when an id is given.
func NewPendingHandler(d Deps) Handler {
	return func(c telebot.Context) error {
		t := d.tr(c)
		resolverID := senderID(c)

		if args := Args(c.Text()); len(args) > 0 {
			p, err := d.Service.PendingTransfer(resolverID, args[0])
			if err != nil {
				return err
			}

			markup, err := keyboard.TransferControls(t, p.ID)
			if err != nil {
				return err
			}
			return c.Send(pendingLine(t, p, time.Now().UTC()), markup)
		}

		items, err := d.Service.Pending(resolverID)
		if err != nil {
			return err
		}

		text, markup, err := pendingPage(t, items, 1)
		if err != nil {
			return err
		}
		if markup == nil {
			return c.Send(text)
		}
		return c.Send(text, markup)
	}
}

// NewPendingPageCallback flips the pending list in place.
func NewPendingPageCallback(d Deps) Handler {
	return func(c telebot.Context) error {
		t := d.tr(c)

		_, data, err := keyboard.DecodeCallback(c.Callback().Data)
		if err != nil {
			return c.Respond()
		}
		page, err := strconv.Atoi(data)
		if err != nil {
			return c.Respond()
		}

		items, err := d.Service.Pending(senderID(c))
		if err != nil {
			return err
		}

		text, markup, err := pendingPage(t, items, page)
		if err != nil {
			return err
		}

		if markup == nil {
			err = c.Edit(text)
		} else {
			err = c.Edit(text, markup)
		}
		if err != nil && !errors.Is(err, telebot.ErrSameMessageContent) {
			return err
		}

		return c.Respond()
	}
}

func pendingPage(t i18n.Translator, items []domain.PendingTransfer, page int) (string, *telebot.ReplyMarkup, error) {
	if len(items) == 0 {
		return i18n.Format(t, "pending.empty", nil), nil, nil
	}

	pg := keyboard.Paginate(len(items), pendingPageSize, page)

	now := time.Now().UTC()
	lines := make([]string, 0, pg.End-pg.Start+1)
	lines = append(lines, i18n.Format(t, "pending.header", map[string]any{"Count": len(items)}))
	for _, p := range items[pg.Start:pg.End] {
		lines = append(lines, pendingLine(t, p, now))
	}

	markup, err := keyboard.PendingPage(t, pg)
	if err != nil {
		return "", nil, err
	}

	return strings.Join(lines, "\n"), markup, nil
}

func pendingLine(t i18n.Translator, p domain.PendingTransfer, now time.Time) string {
	name := p.Name
	if name == "" {
		name = notify.UserLabel(p.RequesterID)
	}

	return i18n.Format(t, "pending.line", map[string]any{
		"ID":     p.ID,
		"Kind":   i18n.Format(t, "kind."+string(p.Kind), nil),
		"Amount": p.Amount,
		"Method": p.Method,
		"Name":   name,
		"Age":    notify.FormatAge(now.Sub(p.CreatedAt)),
	})
}
