// Package audit keeps an append-only history of transfer lifecycle events.
package audit

import (
	"context"
	"time"

	"github.com/Proton-105/guild-ledger/internal/domain"
)

// EventType names a step in a transfer's life.
type EventType string

const (
	EventRequested      EventType = "requested"
	EventApproved       EventType = "approved"
	EventDenied         EventType = "denied"
	EventReconciliation EventType = "reconciliation_required"
	EventExpired        EventType = "expired"
)

// Terminal reports whether no further events follow this one.
func (t EventType) Terminal() bool {
	return t != EventRequested
}

// Event is one row of the audit log. Transfer ids are reused once consumed,
// so TransferID together with RequestedAt identifies a transfer.
type Event struct {
	ID          int64
	TransferID  string
	Kind        domain.TransferKind
	Type        EventType
	RequesterID int64
	ActorID     int64
	Amount      domain.Amount
	Method      domain.PaymentMethod
	Detail      string
	RequestedAt time.Time
	CreatedAt   time.Time
}

// NewEvent builds an event for transfer.
func NewEvent(transfer domain.PendingTransfer, eventType EventType, actorID int64, detail string) Event {
	return Event{
		TransferID:  transfer.ID,
		Kind:        transfer.Kind,
		Type:        eventType,
		RequesterID: transfer.RequesterID,
		ActorID:     actorID,
		Amount:      transfer.Amount,
		Method:      transfer.Method,
		Detail:      detail,
		RequestedAt: transfer.CreatedAt,
	}
}

// Transfer rebuilds the transfer fields the event carries.
func (e Event) Transfer() domain.PendingTransfer {
	return domain.PendingTransfer{
		ID:          e.TransferID,
		Kind:        e.Kind,
		RequesterID: e.RequesterID,
		Amount:      e.Amount,
		Method:      e.Method,
		CreatedAt:   e.RequestedAt,
	}
}

// Log stores audit events.
type Log interface {
	Record(ctx context.Context, event Event) error
	// Unresolved returns requested events before the cutoff with no terminal event.
	Unresolved(ctx context.Context, before time.Time) ([]Event, error)
	// History returns the latest terminal events for a requester, newest first.
	History(ctx context.Context, requesterID int64, limit int) ([]Event, error)
}
