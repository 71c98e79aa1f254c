package state

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	lockKeyPattern = "ledger:state:lock:%d"
	lockTTL        = 5 * time.Second
	lockAttempts   = 3
	lockBackoff    = 50 * time.Millisecond
)

var (
	ErrInvalidTransition = errors.New("invalid state transition")
	ErrStateNotFound     = errors.New("user state not found")
	// ErrStateLocked means another update for the same member holds the lock.
	ErrStateLocked = errors.New("state is locked, try again later")
	// ErrNoDraft is returned by TakeDraft when no deposit is waiting for proof.
	ErrNoDraft = errors.New("no deposit awaiting proof")
)

// unlockScript deletes the lock only while it still carries our token, so an
// expired lock re-acquired by someone else is left alone.
var unlockScript = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
	return redis.call('DEL', KEYS[1])
end
return 0
`)

var transitionRecorder = func(from, to string) {}

// RegisterTransitionRecorder sets the hook called on every state change.
func RegisterTransitionRecorder(recorder func(from, to string)) {
	if recorder == nil {
		recorder = func(string, string) {}
	}
	transitionRecorder = recorder
}

// StateMachine drives the deposit conversation.
type StateMachine interface {
	// Current returns the member's state, idle when nothing is stored.
	Current(ctx context.Context, userID int64) (*UserState, error)
	// BeginDeposit stores draft and waits for proof, replacing an earlier draft.
	BeginDeposit(ctx context.Context, userID int64, draft DepositDraft) error
	// TakeDraft hands out the waiting draft once and returns the member to idle.
	TakeDraft(ctx context.Context, userID int64) (*DepositDraft, error)
	// Reset drops whatever conversation is in progress.
	Reset(ctx context.Context, userID int64) error
	List(ctx context.Context) ([]*UserState, error)
}

type machine struct {
	storage Storage
	log     *slog.Logger
	locks   *redis.Client
}

// NewStateMachine builds a StateMachine over storage. A nil redis client
// disables the per-member lock, which is only safe with a single replica.
func NewStateMachine(storage Storage, log *slog.Logger, redisClient *redis.Client) StateMachine {
	if log == nil {
		log = slog.Default()
	}

	return &machine{
		storage: storage,
		log:     log.With(slog.String("component", "fsm")),
		locks:   redisClient,
	}
}

func (m *machine) Current(ctx context.Context, userID int64) (*UserState, error) {
	st, err := m.storage.Load(ctx, userID)
	if errors.Is(err, ErrStateNotFound) {
		return idle(userID), nil
	}
	if err != nil {
		return nil, err
	}
	return st, nil
}

func (m *machine) List(ctx context.Context) ([]*UserState, error) {
	return m.storage.List(ctx)
}

func (m *machine) BeginDeposit(ctx context.Context, userID int64, draft DepositDraft) error {
	release, err := m.lock(ctx, userID)
	if err != nil {
		return err
	}
	defer release()

	current, err := m.Current(ctx, userID)
	if err != nil {
		return err
	}

	if !IsTransitionAllowed(current.CurrentState, StateAwaitingProof) {
		m.log.Warn("invalid state transition",
			slog.Int64("user_id", userID),
			slog.String("from", string(current.CurrentState)),
			slog.String("to", string(StateAwaitingProof)),
		)
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current.CurrentState, StateAwaitingProof)
	}

	if err := m.storage.Save(ctx, &UserState{
		UserID:       userID,
		CurrentState: StateAwaitingProof,
		Draft:        &draft,
	}); err != nil {
		return err
	}

	transitionRecorder(string(current.CurrentState), string(StateAwaitingProof))
	return nil
}

func (m *machine) TakeDraft(ctx context.Context, userID int64) (*DepositDraft, error) {
	st, err := m.storage.Take(ctx, userID)
	if errors.Is(err, ErrStateNotFound) {
		return nil, ErrNoDraft
	}
	if err != nil {
		return nil, err
	}

	transitionRecorder(string(st.CurrentState), string(StateIdle))

	if st.CurrentState != StateAwaitingProof || st.Draft == nil {
		return nil, ErrNoDraft
	}
	return st.Draft, nil
}

func (m *machine) Reset(ctx context.Context, userID int64) error {
	release, err := m.lock(ctx, userID)
	if err != nil {
		return err
	}
	defer release()

	if err := m.storage.Delete(ctx, userID); err != nil {
		return err
	}

	transitionRecorder("", string(StateIdle))
	return nil
}

// lock takes the member's lock, retrying briefly so two quick updates from
// one member queue up instead of failing.
func (m *machine) lock(ctx context.Context, userID int64) (func(), error) {
	if m.locks == nil {
		return func() {}, nil
	}

	key := fmt.Sprintf(lockKeyPattern, userID)
	token := uuid.NewString()

	for attempt := 1; ; attempt++ {
		acquired, err := m.locks.SetNX(ctx, key, token, lockTTL).Result()
		if err != nil {
			m.log.Error("failed to acquire state lock", slog.Int64("user_id", userID), slog.Any("error", err))
			return nil, err
		}
		if acquired {
			break
		}
		if attempt == lockAttempts {
			m.log.Warn("state lock busy", slog.Int64("user_id", userID))
			return nil, ErrStateLocked
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(lockBackoff * time.Duration(attempt)):
		}
	}

	return func() {
		// release even when the caller's context is already cancelled
		releaseCtx := context.WithoutCancel(ctx)
		if err := unlockScript.Run(releaseCtx, m.locks, []string{key}, token).Err(); err != nil {
			m.log.Error("failed to release state lock", slog.Int64("user_id", userID), slog.Any("error", err))
		}
	}, nil
}
