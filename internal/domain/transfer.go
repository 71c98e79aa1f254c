package domain

import (
	"fmt"
	"strings"
	"time"
)

// TransferKind distinguishes deposits from withdrawals.
type TransferKind string

const (
	KindDeposit    TransferKind = "deposit"
	KindWithdrawal TransferKind = "withdrawal"
)

// Sign returns the direction a transfer of this kind moves the balance.
func (k TransferKind) Sign() int64 {
	if k == KindWithdrawal {
		return -1
	}
	return 1
}

// Decision is the resolver's verdict on a pending transfer.
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionDeny    Decision = "deny"
)

// Valid reports whether d is a known decision.
func (d Decision) Valid() bool {
	return d == DecisionApprove || d == DecisionDeny
}

// PaymentMethod is one of the fixed in-game payment channels.
type PaymentMethod string

const (
	MethodInGame   PaymentMethod = "In-game"
	MethodVanguard PaymentMethod = "Vanguard"
	MethodVolt     PaymentMethod = "Volt"
	MethodVoyager  PaymentMethod = "Voyager"
)

// PaymentMethods lists the accepted methods in display order.
var PaymentMethods = []PaymentMethod{MethodInGame, MethodVanguard, MethodVolt, MethodVoyager}

// ParsePaymentMethod matches raw case-insensitively and returns the canonical spelling.
func ParsePaymentMethod(raw string) (PaymentMethod, error) {
	trimmed := strings.TrimSpace(raw)
	for _, m := range PaymentMethods {
		if strings.EqualFold(trimmed, string(m)) {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown payment method %q", raw)
}

// PaymentMethodList joins the accepted methods for display.
func PaymentMethodList() string {
	names := make([]string, len(PaymentMethods))
	for i, m := range PaymentMethods {
		names[i] = string(m)
	}
	return strings.Join(names, ", ")
}

// LogRef is an opaque handle to a posted log entry so it can be edited later.
type LogRef struct {
	ChatID    int64  `json:"chat_id"`
	MessageID string `json:"message_id"`
	HasMedia  bool   `json:"has_media"`
}

// Empty reports whether the ref points nowhere.
func (r LogRef) Empty() bool {
	return r.MessageID == ""
}

// PendingTransfer is a request awaiting resolution. Its presence in the
// transfer registry is the pending state.
type PendingTransfer struct {
	ID          string
	Kind        TransferKind
	RequesterID int64
	ChannelID   int64
	Amount      Amount
	Method      PaymentMethod
	Name        string
	ProofRef    string
	CreatedAt   time.Time
	LogRef      LogRef
}

// Delta returns the signed balance change applied on approval.
func (t *PendingTransfer) Delta() Amount {
	return Amount(int64(t.Amount) * t.Kind.Sign())
}
