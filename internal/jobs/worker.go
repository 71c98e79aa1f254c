package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/Proton-105/guild-ledger/pkg/metrics"
)

const defaultShutdownTimeout = 10 * time.Second

// Worker processes queued tasks.
type Worker interface {
	RegisterHandler(taskType string, handler asynq.Handler)
	Start() error
	Shutdown()
}

type worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	log    *slog.Logger
}

var _ Worker = (*worker)(nil)

// NewWorker builds an asynq server over queues with weighted priorities.
func NewWorker(redisOpt asynq.RedisConnOpt, queues map[string]int, concurrency int, log *slog.Logger) Worker {
	if concurrency <= 0 {
		concurrency = 10
	}
	if log == nil {
		log = slog.Default()
	}
	log = log.With(slog.String("component", "jobs_worker"))

	server := asynq.NewServer(redisOpt, asynq.Config{
		Queues:          queues,
		Concurrency:     concurrency,
		ShutdownTimeout: defaultShutdownTimeout,
		RetryDelayFunc:  asynq.DefaultRetryDelayFunc,
		// SkipRetry errors are final and still counted
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			metrics.RecordJobFailure(task.Type())

			retried, _ := asynq.GetRetryCount(ctx)
			maxRetry, _ := asynq.GetMaxRetry(ctx)
			log.WarnContext(ctx, "task failed",
				slog.String("task_type", task.Type()),
				slog.Int("retried", retried),
				slog.Int("max_retry", maxRetry),
				slog.Any("error", err),
			)
		}),
	})

	mux := asynq.NewServeMux()
	mux.Use(logTask(log))

	return &worker{
		server: server,
		mux:    mux,
		log:    log,
	}
}

func (w *worker) RegisterHandler(taskType string, handler asynq.Handler) {
	w.mux.Handle(taskType, handler)
}

// Start begins processing in the background. Signal handling stays with the caller.
func (w *worker) Start() error {
	w.log.Info("starting processing loop")
	return w.server.Start(w.mux)
}

func (w *worker) Shutdown() {
	w.log.Info("shutting down")
	w.server.Shutdown()
}

func logTask(log *slog.Logger) asynq.MiddlewareFunc {
	return func(next asynq.Handler) asynq.Handler {
		return asynq.HandlerFunc(func(ctx context.Context, task *asynq.Task) error {
			start := time.Now()
			err := next.ProcessTask(ctx, task)

			taskID, _ := asynq.GetTaskID(ctx)
			log.DebugContext(ctx, "task processed",
				slog.String("task_type", task.Type()),
				slog.String("task_id", taskID),
				slog.Duration("elapsed", time.Since(start)),
				slog.Bool("ok", err == nil),
			)
			return err
		})
	}
}
