package bot

import (
	"log/slog"
	"sync"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/guild-ledger/internal/bot/handlers"
	"github.com/Proton-105/guild-ledger/internal/bot/keyboard"
)

// Router dispatches commands, callbacks, and state-aware updates.
type Router struct {
	mu             sync.RWMutex
	commands       map[string]handlers.Handler
	callbacks      map[string]handlers.Handler
	dispatcher     *Dispatcher
	defaultHandler handlers.Handler
	middlewares    []handlers.Middleware
	log            *slog.Logger
}

// NewRouter builds a Router with empty registries.
func NewRouter(dispatcher *Dispatcher, log *slog.Logger) *Router {
	if log == nil {
		log = slog.Default()
	}

	return &Router{
		commands:    make(map[string]handlers.Handler),
		callbacks:   make(map[string]handlers.Handler),
		dispatcher:  dispatcher,
		middlewares: make([]handlers.Middleware, 0),
		log:         log,
	}
}

// RegisterCommand registers a handler for a bot command such as "/deposit".
func (r *Router) RegisterCommand(cmd string, h handlers.Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands[cmd] = h
}

// RegisterCallback registers a handler for a callback unique, the part of the
// callback data before the separator.
func (r *Router) RegisterCallback(unique string, h handlers.Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.callbacks[unique] = h
}

// Use appends a middleware to the chain.
func (r *Router) Use(mw handlers.Middleware) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.middlewares = append(r.middlewares, mw)
}

// SetDefault sets the fallback handler for unmatched commands or states.
func (r *Router) SetDefault(h handlers.Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.defaultHandler = h
}

// Route directs the incoming update to the appropriate handler.
func (r *Router) Route(c telebot.Context) error {
	if c == nil {
		return nil
	}

	if callback := c.Callback(); callback != nil {
		return r.handleCallback(c, callback.Data)
	}

	return r.handleMessage(c)
}

func (r *Router) handleCallback(c telebot.Context, data string) error {
	unique, _, err := keyboard.DecodeCallback(data)
	if err != nil {
		r.log.Debug("ignoring malformed callback", slog.String("data", data))
		return c.Respond()
	}

	handler := r.getCallbackHandler(unique)
	if handler == nil {
		r.log.Info("no callback handler found", slog.String("unique", unique))
		return c.Respond()
	}

	return r.executeHandler(handlers.Handler(handler), c)
}

func (r *Router) handleMessage(c telebot.Context) error {
	if cmd := handlers.CommandOf(c.Text()); cmd != "" {
		if handler := r.getCommandHandler(cmd); handler != nil {
			return r.executeHandler(handler, c)
		}
	}

	if acceptsStateInput(c) {
		handler, err := r.dispatcher.Resolve(c)
		if err != nil {
			return err
		}
		if handler != nil {
			return r.executeHandler(handler, c)
		}
	}

	if handler := r.getDefaultHandler(); handler != nil && isPrivate(c) {
		return r.executeHandler(handler, c)
	}

	return nil
}

// acceptsStateInput keeps group chatter from being read as answers to a
// pending conversation step. Photos count everywhere, text only in private.
func acceptsStateInput(c telebot.Context) bool {
	if isPrivate(c) {
		return true
	}
	msg := c.Message()
	return msg != nil && msg.Photo != nil
}

func isPrivate(c telebot.Context) bool {
	return c.Chat() != nil && c.Chat().Type == telebot.ChatPrivate
}

func (r *Router) executeHandler(h handlers.Handler, c telebot.Context) error {
	wrapped := r.applyMiddlewares(h)
	if wrapped == nil {
		return nil
	}
	return wrapped(c)
}

func (r *Router) getCallbackHandler(unique string) handlers.Handler {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.callbacks[unique]
}

func (r *Router) getCommandHandler(cmd string) handlers.Handler {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.commands[cmd]
}

func (r *Router) getDefaultHandler() handlers.Handler {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.defaultHandler
}

// applyMiddlewares wraps the handler with all registered middlewares.
func (r *Router) applyMiddlewares(h handlers.Handler) handlers.Handler {
	if h == nil {
		return nil
	}

	middlewares := r.middlewaresSnapshot()
	wrapped := h
	for i := len(middlewares) - 1; i >= 0; i-- {
		wrapped = middlewares[i](wrapped)
	}

	return wrapped
}

func (r *Router) middlewaresSnapshot() []handlers.Middleware {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.middlewares) == 0 {
		return nil
	}

	snapshot := make([]handlers.Middleware, len(r.middlewares))
	copy(snapshot, r.middlewares)
	return snapshot
}
