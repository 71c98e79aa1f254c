package handlers

import (
	"context"
	"errors"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/guild-ledger/internal/approval"
	"github.com/Proton-105/guild-ledger/internal/domain"
	"github.com/Proton-105/guild-ledger/internal/i18n"
)

func NewWithdrawHandler(d Deps) Handler {
	return func(c telebot.Context) error {
		t := d.tr(c)

		args, err := parseTransferArgs(Args(c.Text()))
		if errors.Is(err, errUsage) {
			return c.Send(i18n.Format(t, "withdraw.usage", map[string]any{"Methods": domain.PaymentMethodList()}))
		}
		if err != nil {
			return err
		}

		record, err := d.Service.RequestWithdrawal(context.Background(), approval.WithdrawalRequest{
			RequesterID: senderID(c),
			ChannelID:   chatID(c),
			Amount:      args.Amount,
			Method:      args.Method,
			Name:        args.Name,
		})
		if err != nil {
			return err
		}

		return c.Send(i18n.Format(t, "withdraw.submitted", map[string]any{
			"ID":     record.ID,
			"Amount": record.Amount,
		}))
	}
}
