package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/hibiken/asynq"

	"github.com/Proton-105/guild-ledger/internal/approval"
	"github.com/Proton-105/guild-ledger/internal/audit"
	"github.com/Proton-105/guild-ledger/internal/authz"
	"github.com/Proton-105/guild-ledger/internal/bot"
	"github.com/Proton-105/guild-ledger/internal/database"
	"github.com/Proton-105/guild-ledger/internal/domain"
	"github.com/Proton-105/guild-ledger/internal/health"
	"github.com/Proton-105/guild-ledger/internal/i18n"
	"github.com/Proton-105/guild-ledger/internal/idempotency"
	"github.com/Proton-105/guild-ledger/internal/identity"
	"github.com/Proton-105/guild-ledger/internal/jobs"
	jobhandlers "github.com/Proton-105/guild-ledger/internal/jobs/handlers"
	"github.com/Proton-105/guild-ledger/internal/ledger"
	"github.com/Proton-105/guild-ledger/internal/lifecycle"
	"github.com/Proton-105/guild-ledger/internal/middleware"
	"github.com/Proton-105/guild-ledger/internal/notify"
	"github.com/Proton-105/guild-ledger/internal/ratelimit"
	"github.com/Proton-105/guild-ledger/internal/state"
	"github.com/Proton-105/guild-ledger/internal/transfer"
	"github.com/Proton-105/guild-ledger/pkg/config"
	"github.com/Proton-105/guild-ledger/pkg/graceful"
	"github.com/Proton-105/guild-ledger/pkg/logger"
	"github.com/Proton-105/guild-ledger/pkg/metrics"
	pkgredis "github.com/Proton-105/guild-ledger/pkg/redis"
)

func main() {
	if err := run(); err != nil {
		slog.Error("ledger bot exited with error", slog.Any("error", err))
		os.Exit(1)
	}
}

func run() error {
	bootTime := time.Now()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, v, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if cfg.Sentry.Enabled {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.Sentry.DSN,
			Environment:      cfg.Sentry.Environment,
			TracesSampleRate: cfg.Sentry.SampleRate,
		}); err != nil {
			return fmt.Errorf("init sentry: %w", err)
		}
		defer sentry.Flush(2 * time.Second)
	}

	log := logger.New(*cfg)
	slog.SetDefault(log)

	log.Info("starting ledger bot",
		slog.String("env", cfg.AppEnv),
		slog.String("http_port", cfg.Server.Port),
		slog.String("bot_mode", cfg.Bot.Mode),
	)

	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		return err
	}

	if err := database.NewMigrator(db, log).ApplyDir(ctx, cfg.Database.MigrationsDir); err != nil {
		_ = db.Close()
		return fmt.Errorf("apply migrations: %w", err)
	}
	log.Info("database migrations applied")

	redisClient, err := pkgredis.New(ctx, cfg.Redis)
	if err != nil {
		_ = db.Close()
		return fmt.Errorf("connect redis: %w", err)
	}

	catalog, err := loadCatalog(cfg.I18n)
	if err != nil {
		return err
	}

	policy, err := authz.FromConfig(cfg.Access)
	if err != nil {
		return fmt.Errorf("access policy: %w", err)
	}
	holder := authz.NewHolder(policy)

	maxAmount, err := domain.ParseAmount(cfg.Ledger.MaxAmount)
	if err != nil {
		return fmt.Errorf("ledger.max_amount: %w", err)
	}

	store := ledger.NewPostgresStore(db, log)
	registry := identity.NewRegistry(store, log)
	transfers := transfer.NewRegistry(
		transfer.NewIDAllocator(
			transfer.WithWidth(cfg.Ledger.IDWidth),
			transfer.WithMaxAttempts(cfg.Ledger.IDAttempts),
		),
		transfer.WithMaxPending(cfg.Ledger.MaxPending),
		transfer.WithSizeObserver(metrics.SetPendingTransfers),
	)

	tb, err := bot.NewAPI(cfg.Bot, log)
	if err != nil {
		return fmt.Errorf("create telegram bot: %w", err)
	}

	telegramSink := notify.NewTelegramSink(tb, cfg.Bot.LogChatID, notify.NewRenderer(catalog.Translator(cfg.I18n.DefaultLang)), log)

	shutdown := lifecycle.NewShutdown(log)

	var (
		sink      approval.Sink = telegramSink
		worker    jobs.Worker
		scheduler jobs.Scheduler
		queue     *jobs.Client
	)
	if cfg.Jobs.Enabled {
		redisOpt := asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}
		queue = jobs.NewManager(redisOpt, log)
		sink = notify.NewQueuedSink(telegramSink, queue, log)
		worker = jobs.NewWorker(redisOpt, jobs.Queues, cfg.Jobs.Concurrency, log)
		scheduler = jobs.NewScheduler(redisOpt, cfg.Jobs.DigestCron, cfg.Jobs.DigestMinAge, log)
	}

	service := approval.NewService(approval.Deps{
		Identity:  registry,
		Ledger:    store,
		Transfers: transfers,
		Policy:    holder,
		Sink:      sink,
		Audit:     audit.NewPostgresLog(db, log),
		Logger:    log,
	}, approval.Config{
		MaxAmount:     maxAmount,
		NotifyTimeout: cfg.Ledger.NotifyTimeout,
	})

	if worker != nil {
		worker.RegisterHandler(jobs.TaskTypeNotifyUser, jobhandlers.NewNotifyUserHandler(telegramSink, log))
		worker.RegisterHandler(jobs.TaskTypeLogUpdate, jobhandlers.NewLogUpdateHandler(telegramSink, log))
		worker.RegisterHandler(jobs.TaskTypePendingDigest, jobhandlers.NewPendingDigestHandler(service, telegramSink, log))

		if err := worker.Start(); err != nil {
			return fmt.Errorf("start jobs worker: %w", err)
		}
		if err := scheduler.RegisterTasks(); err != nil {
			return fmt.Errorf("register scheduled tasks: %w", err)
		}
		if err := scheduler.Start(); err != nil {
			return fmt.Errorf("start scheduler: %w", err)
		}
	}

	// The registry lives in memory, so anything filed before a restart is gone.
	if _, err := service.ReportLostTransfers(ctx, bootTime); err != nil {
		log.Warn("lost transfer report failed", slog.Any("error", err))
	}

	config.Watch(v, log, func(next *config.Config) {
		p, err := authz.FromConfig(next.Access)
		if err != nil {
			log.Error("access policy reload rejected", slog.Any("error", err))
			return
		}
		holder.Store(p)
		log.Info("access policy reloaded", slog.Int("approvers", len(p.Approvers())))
	})

	stateStorage := state.NewRedisStorage(redisClient.Client, log, cfg.State.TTL)
	fsm := state.NewStateMachine(stateStorage, log, redisClient.Client)

	idemManager := idempotency.NewManager(idempotency.NewRedisStore(redisClient.Client, log), log)
	fallbackLimiter := ratelimit.NewMemoryLimiter(log)
	limiter := ratelimit.NewAdaptiveLimiter(ratelimit.NewRedisLimiter(redisClient.Client, log), fallbackLimiter, log)

	bgCtx, cancelBackground := context.WithCancel(context.Background())
	go state.NewCleaner(stateStorage, log, cfg.State.TTL, cfg.State.CleanupInterval).Run(bgCtx)
	go idempotency.NewCleaner(redisClient.Client, log, time.Hour, middleware.DefaultUpdateTTL).Run(bgCtx)
	go ratelimit.NewCleaner(redisClient.Client, log, 5*time.Minute, time.Hour).Run(bgCtx)
	go fallbackLimiter.RunCleanup(bgCtx, 5*time.Minute, time.Hour)
	go metrics.NewStateCollector(fsm, 0).Run(bgCtx)

	checker := health.NewChecker(log)
	checker.AddCheck("postgres", store)
	checker.AddCheck("redis", health.NewRedisChecker(redisClient.Client))
	checker.AddCheck("telegram", health.NewTelegramChecker(tb))
	if queue != nil {
		checker.AddCheck("jobs", queue)
	}
	probes := lifecycle.NewProbes(checker, log)

	httpServer := graceful.NewServer(log, &http.Server{
		Addr:              cfg.Server.Port,
		Handler:           graceful.NewOpsRouter(probes, checker, middleware.HTTPLogging(log)),
		ReadHeaderTimeout: 5 * time.Second,
	}, cfg.Server.ShutdownTimeout)

	httpCtx, cancelHTTP := context.WithCancel(context.Background())
	httpDone := make(chan error, 1)
	go func() {
		httpDone <- httpServer.ListenAndServe(httpCtx)
	}()

	ledgerBot := bot.New(tb, bot.Deps{
		Config:      *cfg,
		Log:         log,
		Service:     service,
		Policy:      holder,
		Identity:    registry,
		FSM:         fsm,
		I18n:        catalog,
		Idempotency: idemManager,
		Limiter:     limiter,
	})
	go ledgerBot.Start()
	log.Info("ledger bot started", slog.String("username", tb.Me.Username))

	// Stop intake first, then the stores the handlers write to.
	shutdown.Register("telegram", func(context.Context) error {
		ledgerBot.Stop()
		return nil
	})
	shutdown.Register("http", func(ctx context.Context) error {
		cancelHTTP()
		select {
		case err := <-httpDone:
			return err
		case <-ctx.Done():
			return ctx.Err()
		}
	})
	if worker != nil {
		shutdown.Register("jobs-worker", func(context.Context) error {
			worker.Shutdown()
			return nil
		})
		shutdown.Register("jobs-scheduler", func(context.Context) error {
			scheduler.Shutdown()
			return nil
		})
	}
	shutdown.NextStage()
	shutdown.Register("background", func(context.Context) error {
		cancelBackground()
		return nil
	})
	if queue != nil {
		shutdown.Register("jobs-client", func(context.Context) error {
			return queue.Close()
		})
	}
	shutdown.NextStage()
	shutdown.Register("redis", func(context.Context) error {
		return redisClient.Close()
	})
	shutdown.Register("postgres", func(context.Context) error {
		return db.Close()
	})

	select {
	case <-ctx.Done():
	case err := <-httpDone:
		// ops server died on its own; put the value back for the shutdown hook
		httpDone <- err
		if err != nil {
			log.Error("http server stopped unexpectedly", slog.Any("error", err))
		}
	}
	log.Info("ledger bot shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := shutdown.Execute(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("shutdown: %w", err)
	}

	return nil
}

func loadCatalog(cfg config.I18nConfig) (*i18n.Manager, error) {
	if cfg.Dir == "" {
		catalog, err := i18n.Load(cfg.DefaultLang)
		if err != nil {
			return nil, fmt.Errorf("load bundled translations: %w", err)
		}
		return catalog, nil
	}

	catalog, err := i18n.LoadFromDir(cfg.Dir, cfg.DefaultLang)
	if err != nil {
		return nil, fmt.Errorf("load translations from %s: %w", cfg.Dir, err)
	}
	return catalog, nil
}
