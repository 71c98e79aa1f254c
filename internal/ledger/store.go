// Package ledger holds the durable per-user balance records.
package ledger

import (
	"context"

	"github.com/Proton-105/guild-ledger/internal/domain"
)

// Store is the durable account table. Implementations must make Apply and
// BindName atomic per user: concurrent callers never lose an update and a
// failed Apply leaves the balance untouched.
type Store interface {
	// Get returns the account, creating a zero-balance record when absent.
	Get(ctx context.Context, userID int64) (*domain.UserAccount, error)
	// Apply adds delta to the balance and returns the updated account. It fails
	// with an insufficient-funds error, changing nothing, when the result would be negative.
	Apply(ctx context.Context, userID int64, delta domain.Amount) (*domain.UserAccount, error)
	// BindName sets the bound in-game name if none is set yet.
	BindName(ctx context.Context, userID int64, name string) error
	// SetDisplayName updates the informational chat display name.
	SetDisplayName(ctx context.Context, userID int64, displayName string) error
}
