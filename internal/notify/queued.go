package notify

import (
	"context"
	"log/slog"

	"github.com/Proton-105/guild-ledger/internal/approval"
	"github.com/Proton-105/guild-ledger/internal/domain"
	"github.com/Proton-105/guild-ledger/internal/jobs"
)

// QueuedSink hands direct messages and log edits to the background queue so
// resolves return without waiting on the Bot API. SendToLog stays synchronous
// because the caller needs the resulting LogRef.
type QueuedSink struct {
	direct approval.Sink
	queue  jobs.Manager
	log    *slog.Logger
}

var _ approval.Sink = (*QueuedSink)(nil)

func NewQueuedSink(direct approval.Sink, queue jobs.Manager, log *slog.Logger) *QueuedSink {
	if log == nil {
		log = slog.Default()
	}

	return &QueuedSink{direct: direct, queue: queue, log: log}
}

func (s *QueuedSink) SendToUser(ctx context.Context, userID int64, notice approval.Notice) error {
	task, err := jobs.NewNotifyUserTask(userID, notice)
	if err == nil {
		_, err = s.queue.Enqueue(ctx, task)
	}
	if err != nil {
		s.log.Warn("enqueue user notice failed, sending directly",
			slog.Int64("user_id", userID),
			slog.Any("error", err),
		)
		return s.direct.SendToUser(ctx, userID, notice)
	}

	return nil
}

func (s *QueuedSink) SendToLog(ctx context.Context, entry approval.LogEntry) (domain.LogRef, error) {
	return s.direct.SendToLog(ctx, entry)
}

func (s *QueuedSink) UpdateLog(ctx context.Context, ref domain.LogRef, entry approval.LogEntry) error {
	if ref.Empty() {
		return nil
	}

	task, err := jobs.NewLogUpdateTask(ref, entry)
	if err == nil {
		_, err = s.queue.Enqueue(ctx, task)
	}
	if err != nil {
		s.log.Warn("enqueue log update failed, editing directly",
			slog.String("message_id", ref.MessageID),
			slog.Any("error", err),
		)
		return s.direct.UpdateLog(ctx, ref, entry)
	}

	return nil
}
