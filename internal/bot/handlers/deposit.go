package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/guild-ledger/internal/approval"
	"github.com/Proton-105/guild-ledger/internal/domain"
	apperrors "github.com/Proton-105/guild-ledger/internal/errors"
	"github.com/Proton-105/guild-ledger/internal/i18n"
	"github.com/Proton-105/guild-ledger/internal/state"
)

// NewDepositHandler starts a deposit: the arguments are kept in the
// conversation state until the member sends the payment screenshot.
func NewDepositHandler(d Deps) Handler {
	return func(c telebot.Context) error {
		t := d.tr(c)

		args, err := parseTransferArgs(Args(c.Text()))
		if errors.Is(err, errUsage) {
			return c.Send(i18n.Format(t, "deposit.usage", map[string]any{"Methods": domain.PaymentMethodList()}))
		}
		if err != nil {
			return err
		}

		method, err := domain.ParsePaymentMethod(args.Method)
		if err != nil {
			return apperrors.NewValidationError(fmt.Sprintf("Payment method must be one of: %s.", domain.PaymentMethodList()))
		}

		if d.FSM == nil {
			return apperrors.NewStateError("deposit flow is not configured")
		}

		userID := senderID(c)
		draft := state.DepositDraft{
			Amount: args.Amount,
			Method: string(method),
			Name:   args.Name,
			ChatID: chatID(c),
		}

		if err := d.FSM.BeginDeposit(context.Background(), userID, draft); err != nil {
			return fmt.Errorf("start deposit for user %d: %w", userID, err)
		}

		return c.Send(i18n.Format(t, "deposit.awaiting_proof", map[string]any{
			"Amount": args.Amount,
			"Method": method,
		}))
	}
}

// NewProofHandler finishes a deposit once the screenshot arrives. Anything
// other than a photo gets a reminder.
func NewProofHandler(d Deps) Handler {
	return func(c telebot.Context) error {
		t := d.tr(c)

		msg := c.Message()
		if msg == nil || msg.Photo == nil || msg.Photo.FileID == "" {
			return c.Send(i18n.Format(t, "deposit.proof_required", nil))
		}

		ctx := context.Background()
		userID := senderID(c)

		// the draft is single use whatever the outcome
		draft, err := d.FSM.TakeDraft(ctx, userID)
		if errors.Is(err, state.ErrNoDraft) {
			d.logger().Debug("proof without a waiting draft", slog.Int64("user_id", userID))
			return nil
		}
		if err != nil {
			return fmt.Errorf("take deposit draft for user %d: %w", userID, err)
		}

		channelID := draft.ChatID
		if channelID == 0 {
			channelID = chatID(c)
		}

		record, err := d.Service.RequestDeposit(ctx, approval.DepositRequest{
			RequesterID: userID,
			ChannelID:   channelID,
			Amount:      draft.Amount,
			Method:      draft.Method,
			Name:        draft.Name,
			ProofRef:    msg.Photo.FileID,
		})
		if err != nil {
			return err
		}

		return c.Send(i18n.Format(t, "deposit.submitted", map[string]any{
			"ID":     record.ID,
			"Amount": record.Amount,
		}))
	}
}
