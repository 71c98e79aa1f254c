package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"

	"github.com/Proton-105/guild-ledger/internal/approval"
	"github.com/Proton-105/guild-ledger/internal/domain"
)

const (
	TaskTypeNotifyUser    = "notify:user"
	TaskTypeLogUpdate     = "notify:log_update"
	TaskTypePendingDigest = "pending:digest"
)

const (
	QueueCritical = "critical"
	QueueDefault  = "default"
	QueueLow      = "low"
)

// Queues is the priority map handed to the worker.
var Queues = map[string]int{
	QueueCritical: 6,
	QueueDefault:  3,
	QueueLow:      1,
}

const notifyMaxRetry = 5

type NotifyUserPayload struct {
	UserID int64           `json:"user_id"`
	Notice approval.Notice `json:"notice"`
}

type LogUpdatePayload struct {
	Ref   domain.LogRef     `json:"ref"`
	Entry approval.LogEntry `json:"entry"`
}

type PendingDigestPayload struct {
	MinAge time.Duration `json:"min_age"`
}

func NewNotifyUserTask(userID int64, notice approval.Notice) (*asynq.Task, error) {
	payload, err := json.Marshal(NotifyUserPayload{UserID: userID, Notice: notice})
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(TaskTypeNotifyUser, payload,
		asynq.Queue(QueueCritical),
		asynq.MaxRetry(notifyMaxRetry),
		asynq.Timeout(30*time.Second),
	), nil
}

func NewLogUpdateTask(ref domain.LogRef, entry approval.LogEntry) (*asynq.Task, error) {
	payload, err := json.Marshal(LogUpdatePayload{Ref: ref, Entry: entry})
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(TaskTypeLogUpdate, payload,
		asynq.Queue(QueueDefault),
		asynq.MaxRetry(notifyMaxRetry),
		asynq.Timeout(30*time.Second),
	), nil
}

func NewPendingDigestTask(minAge time.Duration) (*asynq.Task, error) {
	payload, err := json.Marshal(PendingDigestPayload{MinAge: minAge})
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(TaskTypePendingDigest, payload, asynq.Queue(QueueLow), asynq.MaxRetry(1)), nil
}
