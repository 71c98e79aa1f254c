package approval

import (
	"context"

	"github.com/Proton-105/guild-ledger/internal/domain"
)

// NoticeKind selects the direct message sent to a requester.
type NoticeKind string

const (
	NoticeRequested      NoticeKind = "requested"
	NoticeApproved       NoticeKind = "approved"
	NoticeDenied         NoticeKind = "denied"
	NoticeReconciliation NoticeKind = "reconciliation"
	NoticeExpired        NoticeKind = "expired"
)

// Notice is a structured direct message. Rendering belongs to the sink.
type Notice struct {
	Kind     NoticeKind
	Transfer domain.PendingTransfer
	Balance  domain.Amount
}

// LogStatus is the state shown on a log channel entry.
type LogStatus string

const (
	LogPending        LogStatus = "pending"
	LogApproved       LogStatus = "approved"
	LogDenied         LogStatus = "denied"
	LogReconciliation LogStatus = "reconciliation"
	LogExpired        LogStatus = "expired"
)

// LogEntry is a log channel post about one transfer. Pending entries carry
// approve and deny controls keyed by Transfer.ID.
type LogEntry struct {
	Transfer   domain.PendingTransfer
	Status     LogStatus
	ResolverID int64
	Detail     string
}

// Sink delivers outbound messages. Failures never affect ledger state.
type Sink interface {
	SendToUser(ctx context.Context, userID int64, notice Notice) error
	SendToLog(ctx context.Context, entry LogEntry) (domain.LogRef, error)
	UpdateLog(ctx context.Context, ref domain.LogRef, entry LogEntry) error
}

// NopSink drops every message.
type NopSink struct{}

func (NopSink) SendToUser(context.Context, int64, Notice) error { return nil }

func (NopSink) SendToLog(context.Context, LogEntry) (domain.LogRef, error) {
	return domain.LogRef{}, nil
}

func (NopSink) UpdateLog(context.Context, domain.LogRef, LogEntry) error { return nil }
