package keyboard

import (
	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/guild-ledger/internal/i18n"
)

// Callback identifiers shared by the keyboards and the router.
const (
	CallbackApprove = "tr_approve"
	CallbackDeny    = "tr_deny"
	CallbackPending = "pending"
)

// TransferControls builds the approve/deny row attached to a pending log entry.
// Only the transfer id travels in the callback data.
func TransferControls(t i18n.Translator, transferID string) (*telebot.ReplyMarkup, error) {
	return NewInlineKeyboard().AddRow(
		InlineButton{
			Text:   "✅ " + translated(t, "log.approve_button", "Approve"),
			Unique: CallbackApprove,
			Data:   transferID,
		},
		InlineButton{
			Text:   "❌ " + translated(t, "log.deny_button", "Deny"),
			Unique: CallbackDeny,
			Data:   transferID,
		},
	).Build()
}

// PendingPage builds the pagination row for the /pending list. It returns nil
// when everything fits on one page.
func PendingPage(t i18n.Translator, p Page) (*telebot.ReplyMarkup, error) {
	if p.Total <= 1 {
		return nil, nil
	}

	return NewInlineKeyboard().
		AddRow(PaginationButtons(t, CallbackPending, p)...).
		Build()
}
