package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/Proton-105/guild-ledger/internal/approval"
	"github.com/Proton-105/guild-ledger/internal/domain"
	"github.com/Proton-105/guild-ledger/internal/jobs"
	"github.com/Proton-105/guild-ledger/internal/notify"
)

// Delivery performs the actual Bot API calls for queued notifications.
type Delivery interface {
	SendToUser(ctx context.Context, userID int64, notice approval.Notice) error
	UpdateLog(ctx context.Context, ref domain.LogRef, entry approval.LogEntry) error
}

type NotifyUserHandler struct {
	delivery Delivery
	log      *slog.Logger
}

func NewNotifyUserHandler(delivery Delivery, log *slog.Logger) *NotifyUserHandler {
	return &NotifyUserHandler{delivery: delivery, log: log}
}

func (h *NotifyUserHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload jobs.NotifyUserPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		h.logDecodeError(ctx, t, err)
		return fmt.Errorf("decode %s: %v: %w", t.Type(), err, asynq.SkipRetry)
	}

	err := h.delivery.SendToUser(ctx, payload.UserID, payload.Notice)
	return finish(ctx, h.log, t, err,
		slog.Int64("user_id", payload.UserID),
		slog.String("transfer_id", payload.Notice.Transfer.ID),
	)
}

func (h *NotifyUserHandler) logDecodeError(ctx context.Context, t *asynq.Task, err error) {
	if h.log != nil {
		h.log.ErrorContext(ctx, "notify user: failed to decode payload", slog.String("task_type", t.Type()), slog.String("error", err.Error()))
	}
}

type LogUpdateHandler struct {
	delivery Delivery
	log      *slog.Logger
}

func NewLogUpdateHandler(delivery Delivery, log *slog.Logger) *LogUpdateHandler {
	return &LogUpdateHandler{delivery: delivery, log: log}
}

func (h *LogUpdateHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload jobs.LogUpdatePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		if h.log != nil {
			h.log.ErrorContext(ctx, "log update: failed to decode payload", slog.String("task_type", t.Type()), slog.String("error", err.Error()))
		}
		return fmt.Errorf("decode %s: %v: %w", t.Type(), err, asynq.SkipRetry)
	}

	err := h.delivery.UpdateLog(ctx, payload.Ref, payload.Entry)
	return finish(ctx, h.log, t, err,
		slog.String("message_id", payload.Ref.MessageID),
		slog.String("transfer_id", payload.Entry.Transfer.ID),
	)
}

// finish turns permanent delivery failures into SkipRetry so asynq drops them.
func finish(ctx context.Context, log *slog.Logger, t *asynq.Task, err error, attrs ...any) error {
	if err == nil {
		return nil
	}

	if notify.IsPermanent(err) {
		if log != nil {
			log.WarnContext(ctx, "notification dropped", append(attrs, slog.String("task_type", t.Type()), slog.Any("error", err))...)
		}
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	return err
}
