// Package state tracks the multi-step conversation of a member with the bot.
// The only multi-step flow is a deposit waiting for its proof screenshot.
package state

import (
	"time"

	"github.com/Proton-105/guild-ledger/internal/domain"
)

// State is where a member is in a conversation.
type State string

const (
	StateIdle          State = "idle"
	StateAwaitingProof State = "awaiting_proof"
)

// DepositDraft holds the /deposit arguments until the screenshot arrives.
// ChatID is where the command was issued; the request is filed against it.
type DepositDraft struct {
	Amount domain.Amount `json:"amount"`
	Method string        `json:"method"`
	Name   string        `json:"name"`
	ChatID int64         `json:"chat_id"`
}

// UserState is the stored conversation of one member. Draft is set only
// while awaiting proof.
type UserState struct {
	UserID       int64         `json:"user_id"`
	CurrentState State         `json:"current_state"`
	Draft        *DepositDraft `json:"draft,omitempty"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

func idle(userID int64) *UserState {
	return &UserState{UserID: userID, CurrentState: StateIdle}
}
