package bot

import (
	"context"
	"log/slog"
	"sync"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/guild-ledger/internal/bot/handlers"
	"github.com/Proton-105/guild-ledger/internal/state"
)

// Dispatcher picks the handler for a message based on the sender's conversation state.
type Dispatcher struct {
	fsm           state.StateMachine
	stateHandlers map[state.State]handlers.Handler
	log           *slog.Logger
	mu            sync.RWMutex
}

// NewDispatcher creates a Dispatcher with an empty handlers registry.
func NewDispatcher(fsm state.StateMachine, log *slog.Logger) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}

	return &Dispatcher{
		fsm:           fsm,
		stateHandlers: make(map[state.State]handlers.Handler),
		log:           log,
	}
}

// RegisterStateHandler registers a handler for the provided state.
func (d *Dispatcher) RegisterStateHandler(s state.State, h handlers.Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stateHandlers[s] = h
}

// Resolve returns the handler for the sender's current state, or nil when the
// sender is idle or the state has no handler.
func (d *Dispatcher) Resolve(c telebot.Context) (handlers.Handler, error) {
	if d == nil || d.fsm == nil || c == nil || c.Sender() == nil {
		return nil, nil
	}

	userID := c.Sender().ID

	userState, err := d.fsm.Current(context.Background(), userID)
	if err != nil {
		return nil, err
	}
	if userState.CurrentState == state.StateIdle {
		return nil, nil
	}

	handler := d.getHandler(userState.CurrentState)
	if handler == nil {
		d.log.Debug("no handler registered for state",
			slog.String("state", string(userState.CurrentState)),
			slog.Int64("user_id", userID),
		)
	}

	return handler, nil
}

func (d *Dispatcher) getHandler(s state.State) handlers.Handler {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.stateHandlers[s]
}
