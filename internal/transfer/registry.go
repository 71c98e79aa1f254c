package transfer

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Proton-105/guild-ledger/internal/domain"
	apperrors "github.com/Proton-105/guild-ledger/internal/errors"
)

// DefaultMaxPending caps the number of pending transfers.
const DefaultMaxPending = 10000

// Registry is the set of pending transfers. Presence of an id means the
// transfer is pending; Consume removes it exactly once.
type Registry struct {
	mu         sync.Mutex
	pending    map[string]*domain.PendingTransfer
	ids        *IDAllocator
	maxPending int
	now        func() time.Time
	onChange   func(size int)
}

// Option configures a Registry.
type Option func(*Registry)

// WithMaxPending caps concurrent pending transfers.
func WithMaxPending(n int) Option {
	return func(r *Registry) {
		if n > 0 {
			r.maxPending = n
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		r.now = now
	}
}

// WithSizeObserver is called with the new size after every insert or removal.
func WithSizeObserver(fn func(size int)) Option {
	return func(r *Registry) {
		r.onChange = fn
	}
}

// NewRegistry creates an empty registry drawing ids from ids.
func NewRegistry(ids *IDAllocator, opts ...Option) *Registry {
	if ids == nil {
		ids = NewIDAllocator()
	}

	r := &Registry{
		pending:    make(map[string]*domain.PendingTransfer),
		ids:        ids,
		maxPending: DefaultMaxPending,
		now:        func() time.Time { return time.Now().UTC() },
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Create assigns a fresh id to draft and stores it. The draft's ID and
// CreatedAt are overwritten.
func (r *Registry) Create(_ context.Context, draft domain.PendingTransfer) (domain.PendingTransfer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.pending) >= r.maxPending {
		return domain.PendingTransfer{}, apperrors.NewPendingLimitError(r.maxPending)
	}

	for attempt := 1; attempt <= r.ids.MaxAttempts(); attempt++ {
		id, err := r.ids.Next()
		if err != nil {
			return domain.PendingTransfer{}, fmt.Errorf("draw transfer id: %w", err)
		}
		if _, taken := r.pending[id]; taken {
			continue
		}

		record := draft
		record.ID = id
		record.CreatedAt = r.now()
		r.pending[id] = &record
		r.notifyLocked()

		return record, nil
	}

	return domain.PendingTransfer{}, apperrors.NewIDSpaceExhaustedError(r.ids.MaxAttempts())
}

// Consume removes and returns the transfer. Exactly one caller wins per id.
func (r *Registry) Consume(id string) (domain.PendingTransfer, error) {
	return r.ConsumeIf(id, nil)
}

// ConsumeIf removes the transfer only when check accepts it. check runs
// under the registry lock and must not call back into the registry.
func (r *Registry) ConsumeIf(id string, check func(domain.PendingTransfer) error) (domain.PendingTransfer, error) {
	id = NormalizeID(id)

	r.mu.Lock()
	defer r.mu.Unlock()

	record, ok := r.pending[id]
	if !ok {
		return domain.PendingTransfer{}, apperrors.NewUnknownTransferError(id)
	}

	if check != nil {
		if err := check(*record); err != nil {
			return domain.PendingTransfer{}, err
		}
	}

	delete(r.pending, id)
	r.notifyLocked()

	return *record, nil
}

// Peek returns a copy without removing it.
func (r *Registry) Peek(id string) (domain.PendingTransfer, error) {
	id = NormalizeID(id)

	r.mu.Lock()
	defer r.mu.Unlock()

	record, ok := r.pending[id]
	if !ok {
		return domain.PendingTransfer{}, apperrors.NewUnknownTransferError(id)
	}

	return *record, nil
}

// AttachLogRef records where the transfer's log entry was posted. It is a
// no-op when the transfer was already consumed.
func (r *Registry) AttachLogRef(id string, ref domain.LogRef) bool {
	id = NormalizeID(id)

	r.mu.Lock()
	defer r.mu.Unlock()

	record, ok := r.pending[id]
	if !ok {
		return false
	}

	record.LogRef = ref
	return true
}

// List returns pending transfers, oldest first.
func (r *Registry) List() []domain.PendingTransfer {
	r.mu.Lock()
	out := make([]domain.PendingTransfer, 0, len(r.pending))
	for _, record := range r.pending {
		out = append(out, *record)
	}
	r.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})

	return out
}

// Len returns the number of pending transfers.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.pending)
}

func (r *Registry) notifyLocked() {
	if r.onChange != nil {
		r.onChange(len(r.pending))
	}
}
