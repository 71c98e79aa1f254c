package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/Proton-105/guild-ledger/pkg/metrics"
)

// Manager enqueues background tasks.
type Manager interface {
	Enqueue(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
	Close() error
}

// Client is the asynq-backed Manager. It also answers health checks.
type Client struct {
	client *asynq.Client
	log    *slog.Logger
}

var _ Manager = (*Client)(nil)

func NewManager(redisOpt asynq.RedisConnOpt, log *slog.Logger) *Client {
	if log == nil {
		log = slog.Default()
	}

	return &Client{
		client: asynq.NewClient(redisOpt),
		log:    log.With(slog.String("component", "jobs")),
	}
}

// Enqueue submits task. A task whose id is already queued counts as
// delivered and returns a nil TaskInfo.
func (c *Client) Enqueue(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	info, err := c.client.EnqueueContext(ctx, task, opts...)
	switch {
	case errors.Is(err, asynq.ErrTaskIDConflict), errors.Is(err, asynq.ErrDuplicateTask):
		metrics.RecordJobEnqueued(task.Type(), "duplicate")
		c.log.DebugContext(ctx, "task already queued", slog.String("task_type", task.Type()))
		return nil, nil
	case err != nil:
		metrics.RecordJobEnqueued(task.Type(), "failed")
		return nil, fmt.Errorf("enqueue %s: %w", task.Type(), err)
	}

	metrics.RecordJobEnqueued(task.Type(), "enqueued")
	c.log.DebugContext(ctx, "task enqueued",
		slog.String("task_type", task.Type()),
		slog.String("task_id", info.ID),
		slog.String("queue", info.Queue),
	)
	return info, nil
}

// HealthCheck pings the queue's Redis.
func (c *Client) HealthCheck(context.Context) error {
	return c.client.Ping()
}

func (c *Client) Close() error {
	return c.client.Close()
}
