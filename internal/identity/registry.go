// Package identity binds chat users to the in-game name they trade under.
package identity

import (
	"context"
	"log/slog"
	"strings"
	"unicode"
	"unicode/utf8"

	apperrors "github.com/Proton-105/guild-ledger/internal/errors"
	"github.com/Proton-105/guild-ledger/internal/ledger"
	"github.com/Proton-105/guild-ledger/pkg/metrics"
)

// MaxNameLength bounds an in-game name in runes.
const MaxNameLength = 32

// Registry owns name binding and verification. Binding is a one-time
// conditional write in the store, so concurrent registrations have one winner.
type Registry struct {
	store ledger.Store
	log   *slog.Logger
}

// NewRegistry creates a Registry backed by the account store.
func NewRegistry(store ledger.Store, log *slog.Logger) *Registry {
	if log == nil {
		log = slog.Default()
	}

	return &Registry{
		store: store,
		log:   log.With(slog.String("component", "identity")),
	}
}

// NormalizeName trims name and checks its length and characters.
func NormalizeName(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", apperrors.NewValidationError("In-game name is required.")
	}
	if utf8.RuneCountInString(trimmed) > MaxNameLength {
		return "", apperrors.NewValidationError("In-game name must be at most 32 characters.")
	}
	for _, r := range trimmed {
		if unicode.IsControl(r) {
			return "", apperrors.NewValidationError("In-game name contains invalid characters.")
		}
	}

	return trimmed, nil
}

// Register binds name to userID. It fails with AlreadyRegistered when a name is bound.
func (r *Registry) Register(ctx context.Context, userID int64, name string) (string, error) {
	normalized, err := NormalizeName(name)
	if err != nil {
		return "", err
	}

	if err := r.store.BindName(ctx, userID, normalized); err != nil {
		return "", err
	}

	r.log.Info("in-game name bound",
		slog.Int64("user_id", userID),
		slog.String("name", normalized),
	)

	return normalized, nil
}

// Verify checks that supplied matches the name bound to userID.
func (r *Registry) Verify(ctx context.Context, userID int64, supplied string) error {
	account, err := r.store.Get(ctx, userID)
	if err != nil {
		return err
	}

	if !account.Registered() {
		return apperrors.NewNotRegisteredError(userID)
	}

	if strings.TrimSpace(supplied) != account.BoundName {
		metrics.RecordIdentityMismatch()
		r.log.Warn("in-game name mismatch",
			slog.Int64("user_id", userID),
			slog.String("supplied_name", supplied),
		)
		return apperrors.NewIdentityMismatchError(userID)
	}

	return nil
}

// BoundName returns the bound name or NotRegistered.
func (r *Registry) BoundName(ctx context.Context, userID int64) (string, error) {
	account, err := r.store.Get(ctx, userID)
	if err != nil {
		return "", err
	}
	if !account.Registered() {
		return "", apperrors.NewNotRegisteredError(userID)
	}

	return account.BoundName, nil
}

// Touch refreshes the informational display name from the chat profile.
func (r *Registry) Touch(ctx context.Context, userID int64, displayName string) error {
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		return nil
	}

	return r.store.SetDisplayName(ctx, userID, displayName)
}
