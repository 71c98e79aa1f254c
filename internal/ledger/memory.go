package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/Proton-105/guild-ledger/internal/domain"
	apperrors "github.com/Proton-105/guild-ledger/internal/errors"
)

// MemoryStore keeps accounts in process memory. Each account has its own
// mutex so operations on different users never contend.
type MemoryStore struct {
	mu       sync.Mutex
	accounts map[int64]*memoryAccount
	now      func() time.Time
}

type memoryAccount struct {
	mu      sync.Mutex
	account domain.UserAccount
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts: make(map[int64]*memoryAccount),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *MemoryStore) entry(userID int64) *memoryAccount {
	s.mu.Lock()
	defer s.mu.Unlock()

	acc, ok := s.accounts[userID]
	if !ok {
		now := s.now()
		acc = &memoryAccount{account: domain.UserAccount{
			UserID:    userID,
			CreatedAt: now,
			UpdatedAt: now,
		}}
		s.accounts[userID] = acc
	}
	return acc
}

func (s *MemoryStore) Get(_ context.Context, userID int64) (*domain.UserAccount, error) {
	acc := s.entry(userID)
	acc.mu.Lock()
	defer acc.mu.Unlock()

	snapshot := acc.account
	return &snapshot, nil
}

func (s *MemoryStore) Apply(_ context.Context, userID int64, delta domain.Amount) (*domain.UserAccount, error) {
	acc := s.entry(userID)
	acc.mu.Lock()
	defer acc.mu.Unlock()

	next := acc.account.Balance + delta
	if next < 0 {
		return nil, apperrors.NewInsufficientFundsError(acc.account.Balance, -delta)
	}

	acc.account.Balance = next
	acc.account.UpdatedAt = s.now()

	snapshot := acc.account
	return &snapshot, nil
}

func (s *MemoryStore) BindName(_ context.Context, userID int64, name string) error {
	acc := s.entry(userID)
	acc.mu.Lock()
	defer acc.mu.Unlock()

	if acc.account.BoundName != "" {
		return apperrors.NewAlreadyRegisteredError(userID)
	}

	acc.account.BoundName = name
	acc.account.UpdatedAt = s.now()
	return nil
}

func (s *MemoryStore) SetDisplayName(_ context.Context, userID int64, displayName string) error {
	acc := s.entry(userID)
	acc.mu.Lock()
	defer acc.mu.Unlock()

	acc.account.DisplayName = displayName
	return nil
}

// SetCredit seeds the secondary credit pool. Credit is managed by staff outside the bot.
func (s *MemoryStore) SetCredit(userID int64, credit domain.Amount) {
	acc := s.entry(userID)
	acc.mu.Lock()
	defer acc.mu.Unlock()

	acc.account.Credit = credit
}
