// Package authz decides who may resolve transfers and where commands are accepted.
package authz

import (
	"fmt"
	"sync/atomic"

	"github.com/Proton-105/guild-ledger/internal/domain"
	apperrors "github.com/Proton-105/guild-ledger/internal/errors"
	"github.com/Proton-105/guild-ledger/pkg/config"
)

// Role is an approver tier.
type Role string

const (
	RoleApprover   Role = "approver"
	RoleSupervisor Role = "supervisor"
)

// Approver is a configured resolver. A zero Limit means unlimited.
type Approver struct {
	UserID int64
	Role   Role
	Limit  domain.Amount
}

// Policy is an immutable snapshot of access rules.
type Policy struct {
	approvers    map[int64]Approver
	requestChats map[int64]struct{}
	resolveChats map[int64]struct{}
}

// NewPolicy builds a snapshot. Empty chat lists allow every chat.
func NewPolicy(approvers []Approver, requestChats, resolveChats []int64) *Policy {
	p := &Policy{
		approvers:    make(map[int64]Approver, len(approvers)),
		requestChats: toSet(requestChats),
		resolveChats: toSet(resolveChats),
	}

	for _, a := range approvers {
		if a.Role == "" {
			a.Role = RoleApprover
		}
		p.approvers[a.UserID] = a
	}

	return p
}

// FromConfig converts the access section of the config.
func FromConfig(cfg config.AccessConfig) (*Policy, error) {
	approvers := make([]Approver, 0, len(cfg.Approvers))

	for _, ac := range cfg.Approvers {
		a := Approver{UserID: ac.UserID, Role: Role(ac.Role)}
		if ac.MaxAmount != "" {
			limit, err := domain.ParseAmount(ac.MaxAmount)
			if err != nil {
				return nil, fmt.Errorf("approver %d max_amount %q: %w", ac.UserID, ac.MaxAmount, err)
			}
			a.Limit = limit
		}
		approvers = append(approvers, a)
	}

	return NewPolicy(approvers, cfg.RequestChats, cfg.ResolveChats), nil
}

// IsAuthorizedResolver reports whether userID is a configured approver.
func (p *Policy) IsAuthorizedResolver(userID int64) bool {
	_, ok := p.approvers[userID]
	return ok
}

// Approver returns the approver entry for userID.
func (p *Policy) Approver(userID int64) (Approver, bool) {
	a, ok := p.approvers[userID]
	return a, ok
}

// Approvers returns every configured approver id.
func (p *Policy) Approvers() []int64 {
	ids := make([]int64, 0, len(p.approvers))
	for id := range p.approvers {
		ids = append(ids, id)
	}
	return ids
}

// IsAllowedChannel reports whether requests are accepted in channelID.
func (p *Policy) IsAllowedChannel(channelID int64) bool {
	return allowed(p.requestChats, channelID)
}

// IsAllowedResolveChannel reports whether resolutions are accepted in channelID.
func (p *Policy) IsAllowedResolveChannel(channelID int64) bool {
	return allowed(p.resolveChats, channelID)
}

// CanResolve checks the approver's tier against amount.
func (p *Policy) CanResolve(userID int64, amount domain.Amount) error {
	a, ok := p.approvers[userID]
	if !ok {
		return apperrors.NewUnauthorizedError(userID, "not an approver")
	}

	if a.Role == RoleSupervisor || a.Limit == 0 {
		return nil
	}

	if amount > a.Limit {
		return apperrors.NewUnauthorizedError(userID, fmt.Sprintf("amount %s above approver limit %s", amount, a.Limit))
	}

	return nil
}

// Holder publishes the current Policy to concurrent readers.
type Holder struct {
	current atomic.Pointer[Policy]
}

// NewHolder stores the initial policy.
func NewHolder(p *Policy) *Holder {
	h := &Holder{}
	h.Store(p)
	return h
}

// Load returns the current snapshot.
func (h *Holder) Load() *Policy {
	return h.current.Load()
}

// Store swaps in a new snapshot.
func (h *Holder) Store(p *Policy) {
	if p == nil {
		p = NewPolicy(nil, nil, nil)
	}
	h.current.Store(p)
}

func toSet(ids []int64) map[int64]struct{} {
	set := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func allowed(set map[int64]struct{}, id int64) bool {
	if len(set) == 0 {
		return true
	}
	_, ok := set[id]
	return ok
}
