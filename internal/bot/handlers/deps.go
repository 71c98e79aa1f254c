package handlers

import (
	"log/slog"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/guild-ledger/internal/approval"
	"github.com/Proton-105/guild-ledger/internal/i18n"
	"github.com/Proton-105/guild-ledger/internal/state"
)

// Handler serves one routed update: a command, a callback or a state step.
type Handler func(c telebot.Context) error

// Middleware wraps a Handler.
type Middleware func(Handler) Handler

// Deps groups what the command handlers need.
type Deps struct {
	Service *approval.Service
	Policy  approval.PolicySource
	FSM     state.StateMachine
	I18n    *i18n.Manager
	Log     *slog.Logger
}

func (d Deps) tr(c telebot.Context) i18n.Translator {
	lang := ""
	if c != nil && c.Sender() != nil {
		lang = c.Sender().LanguageCode
	}
	return d.I18n.Translator(lang)
}

func (d Deps) logger() *slog.Logger {
	if d.Log == nil {
		return slog.Default()
	}
	return d.Log
}

func (d Deps) isApprover(userID int64) bool {
	return d.Policy != nil && d.Policy.Load().IsAuthorizedResolver(userID)
}

func senderID(c telebot.Context) int64 {
	if c == nil || c.Sender() == nil {
		return 0
	}
	return c.Sender().ID
}

func chatID(c telebot.Context) int64 {
	if c == nil || c.Chat() == nil {
		return 0
	}
	return c.Chat().ID
}
