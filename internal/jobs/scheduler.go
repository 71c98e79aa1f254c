package jobs

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

// Scheduler enqueues periodic tasks.
type Scheduler interface {
	RegisterTasks() error
	Start() error
	Shutdown()
}

type scheduler struct {
	inner        *asynq.Scheduler
	digestCron   string
	digestMinAge time.Duration
	log          *slog.Logger
}

// NewScheduler registers the pending digest on digestCron, evaluated in UTC.
// An empty cron disables it.
func NewScheduler(redisOpt asynq.RedisConnOpt, digestCron string, digestMinAge time.Duration, log *slog.Logger) Scheduler {
	if log == nil {
		log = slog.Default()
	}
	log = log.With(slog.String("component", "jobs_scheduler"))

	return &scheduler{
		inner: asynq.NewScheduler(redisOpt, &asynq.SchedulerOpts{
			Location: time.UTC,
			PostEnqueueFunc: func(info *asynq.TaskInfo, err error) {
				if err != nil {
					log.Error("scheduled enqueue failed", slog.Any("error", err))
					return
				}
				log.Debug("scheduled task enqueued", slog.String("task_type", info.Type), slog.String("task_id", info.ID))
			},
		}),
		digestCron:   digestCron,
		digestMinAge: digestMinAge,
		log:          log,
	}
}

func (s *scheduler) RegisterTasks() error {
	if s.digestCron == "" {
		s.log.Info("pending digest disabled")
		return nil
	}

	task, err := NewPendingDigestTask(s.digestMinAge)
	if err != nil {
		return err
	}

	entryID, err := s.inner.Register(s.digestCron, task)
	if err != nil {
		return fmt.Errorf("register pending digest on %q: %w", s.digestCron, err)
	}

	s.log.Info("pending digest registered",
		slog.String("entry_id", entryID),
		slog.String("cron", s.digestCron),
		slog.Duration("min_age", s.digestMinAge),
	)
	return nil
}

// Start runs the scheduler loop in the background.
func (s *scheduler) Start() error {
	return s.inner.Start()
}

func (s *scheduler) Shutdown() {
	s.log.Info("shutting down")
	s.inner.Shutdown()
}
