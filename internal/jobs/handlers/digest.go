package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/Proton-105/guild-ledger/internal/domain"
	"github.com/Proton-105/guild-ledger/internal/jobs"
)

// PendingSource lists transfers waiting longer than a given age.
type PendingSource interface {
	PendingOlderThan(age time.Duration, now time.Time) []domain.PendingTransfer
}

// DigestPoster publishes the digest.
type DigestPoster interface {
	SendDigest(ctx context.Context, items []domain.PendingTransfer, minAge time.Duration) error
}

type PendingDigestHandler struct {
	source PendingSource
	poster DigestPoster
	log    *slog.Logger
	now    func() time.Time
}

func NewPendingDigestHandler(source PendingSource, poster DigestPoster, log *slog.Logger) *PendingDigestHandler {
	return &PendingDigestHandler{
		source: source,
		poster: poster,
		log:    log,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (h *PendingDigestHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload jobs.PendingDigestPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		if h.log != nil {
			h.log.ErrorContext(ctx, "pending digest: failed to decode payload", slog.String("task_type", t.Type()), slog.String("error", err.Error()))
		}
		return fmt.Errorf("decode %s: %v: %w", t.Type(), err, asynq.SkipRetry)
	}

	stale := h.source.PendingOlderThan(payload.MinAge, h.now())
	if len(stale) == 0 {
		return nil
	}

	if h.log != nil {
		h.log.InfoContext(ctx, "posting pending digest",
			slog.Int("count", len(stale)),
			slog.Duration("min_age", payload.MinAge),
		)
	}

	return h.poster.SendDigest(ctx, stale, payload.MinAge)
}
