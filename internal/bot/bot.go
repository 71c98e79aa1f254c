package bot

import (
	"fmt"
	"log/slog"
	"time"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/guild-ledger/internal/approval"
	"github.com/Proton-105/guild-ledger/internal/bot/handlers"
	"github.com/Proton-105/guild-ledger/internal/bot/keyboard"
	"github.com/Proton-105/guild-ledger/internal/domain"
	errors "github.com/Proton-105/guild-ledger/internal/errors"
	"github.com/Proton-105/guild-ledger/internal/i18n"
	"github.com/Proton-105/guild-ledger/internal/idempotency"
	"github.com/Proton-105/guild-ledger/internal/identity"
	"github.com/Proton-105/guild-ledger/internal/middleware"
	"github.com/Proton-105/guild-ledger/internal/ratelimit"
	"github.com/Proton-105/guild-ledger/internal/state"
	"github.com/Proton-105/guild-ledger/pkg/config"
)

// NewAPI creates the telebot client in polling or webhook mode. It is built
// before the Bot so the notification sink can share it.
func NewAPI(cfg config.BotConfig, log *slog.Logger) (*telebot.Bot, error) {
	if log == nil {
		log = slog.Default()
	}

	settings := telebot.Settings{
		Token: cfg.Token,
		OnError: func(err error, c telebot.Context) {
			log.Error("telegram update failed", slog.Any("error", err))
		},
	}

	if cfg.Mode == "webhook" {
		settings.Poller = &telebot.Webhook{
			Listen:   cfg.WebhookListen,
			Endpoint: &telebot.WebhookEndpoint{PublicURL: cfg.WebhookURL},
		}
	} else {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		settings.Poller = &telebot.LongPoller{Timeout: timeout}
	}

	tb, err := telebot.NewBot(settings)
	if err != nil {
		return nil, fmt.Errorf("initialize telebot: %w", err)
	}

	return tb, nil
}

// Deps groups what the bot needs besides the telebot client.
type Deps struct {
	Config      config.Config
	Log         *slog.Logger
	Service     *approval.Service
	Policy      approval.PolicySource
	Identity    *identity.Registry
	FSM         state.StateMachine
	I18n        *i18n.Manager
	Idempotency idempotency.Manager
	Limiter     ratelimit.Limiter
}

// Bot wraps telebot.Bot with application dependencies required for handling updates.
type Bot struct {
	telebot    *telebot.Bot
	log        *slog.Logger
	router     *Router
	dispatcher *Dispatcher
	errHandler *errors.Handler
	menu       []telebot.Command
}

// New registers the router on tb.
func New(tb *telebot.Bot, deps Deps) *Bot {
	log := deps.Log
	if log == nil {
		log = slog.Default()
	}

	var reporter errors.Reporter
	if deps.Config.Sentry.Enabled {
		reporter = errors.SentryReporter{}
	}

	dispatcher := NewDispatcher(deps.FSM, log)
	b := &Bot{
		telebot:    tb,
		log:        log,
		router:     NewRouter(dispatcher, log),
		dispatcher: dispatcher,
		errHandler: errors.NewHandler(log, reporter),
	}
	if deps.I18n != nil {
		b.menu = CommandMenu(deps.I18n.Translator(""))
	}

	b.setupRouter(deps)
	b.registerTelebotHandlers()

	return b
}

// Start runs the telegram bot event loop.
func (b *Bot) Start() {
	if b.telebot == nil {
		return
	}

	if len(b.menu) > 0 {
		if err := b.telebot.SetCommands(b.menu); err != nil {
			b.log.Warn("failed to publish command menu", slog.Any("error", err))
		}
	}
	b.telebot.Start()
}

// Stop gracefully stops the telegram bot.
func (b *Bot) Stop() {
	if b.telebot == nil {
		return
	}

	b.log.Info("stopping telegram bot...")
	b.telebot.Stop()
}

// Telebot exposes the underlying telebot.Bot instance for integrations such as health checks.
func (b *Bot) Telebot() *telebot.Bot {
	return b.telebot
}

// Router exposes the update router.
func (b *Bot) Router() *Router {
	return b.router
}

func (b *Bot) setupRouter(deps Deps) {
	rules := ratelimit.NewRules(deps.Config.RateLimit)

	b.router.Use(RecoveryMiddleware(b.log, b.errHandler))
	b.router.Use(ErrorHandlingMiddleware(b.errHandler, deps.I18n))
	b.router.Use(LoggingMiddleware(b.log))
	b.router.Use(middleware.Idempotency(deps.Idempotency, middleware.DefaultUpdateTTL, b.log))
	b.router.Use(middleware.RateLimit(deps.Limiter, rules, b.log))
	b.router.Use(ProfileTouchMiddleware(deps.Identity, b.log))
	b.router.Use(middleware.Metrics)

	h := handlers.Deps{
		Service: deps.Service,
		Policy:  deps.Policy,
		FSM:     deps.FSM,
		I18n:    deps.I18n,
		Log:     b.log,
	}

	b.router.RegisterCommand(CommandStart, handlers.NewStartHandler(h))
	b.router.RegisterCommand(CommandHelp, handlers.NewHelpHandler(h))
	b.router.RegisterCommand(CommandRegister, handlers.NewRegisterHandler(h))
	b.router.RegisterCommand(CommandDeposit, handlers.NewDepositHandler(h))
	b.router.RegisterCommand(CommandWithdraw, handlers.NewWithdrawHandler(h))
	b.router.RegisterCommand(CommandBalance, handlers.NewBalanceHandler(h))
	b.router.RegisterCommand(CommandHistory, handlers.NewHistoryHandler(h))
	b.router.RegisterCommand(CommandCancel, handlers.NewCancelHandler(h))
	b.router.RegisterCommand(CommandPending, handlers.NewPendingHandler(h))
	b.router.RegisterCommand(CommandApprove, handlers.NewResolveHandler(h, domain.DecisionApprove))
	b.router.RegisterCommand(CommandDeny, handlers.NewResolveHandler(h, domain.DecisionDeny))

	b.router.RegisterCallback(keyboard.CallbackApprove, handlers.NewResolveCallback(h, domain.DecisionApprove))
	b.router.RegisterCallback(keyboard.CallbackDeny, handlers.NewResolveCallback(h, domain.DecisionDeny))
	b.router.RegisterCallback(keyboard.CallbackPending, handlers.NewPendingPageCallback(h))

	b.dispatcher.RegisterStateHandler(state.StateAwaitingProof, handlers.NewProofHandler(h))

	b.router.SetDefault(handlers.NewHelpHandler(h))
}

func (b *Bot) registerTelebotHandlers() {
	if b.telebot == nil {
		return
	}

	b.telebot.Handle(telebot.OnText, b.router.Route)
	b.telebot.Handle(telebot.OnPhoto, b.router.Route)
	b.telebot.Handle(telebot.OnCallback, b.router.Route)
}
