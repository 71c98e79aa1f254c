package errors

import (
	"context"
	"errors"
	"log/slog"

	"github.com/getsentry/sentry-go"

	"github.com/Proton-105/guild-ledger/pkg/logger"
	"github.com/Proton-105/guild-ledger/pkg/metrics"
)

const defaultUserMessage = "Something went wrong. Please try again later."

// Outcome is what the chat layer needs to know about a failed update.
type Outcome struct {
	Code      string
	Message   string
	Retryable bool
}

// Reporter forwards severe errors to an external tracker.
type Reporter interface {
	Report(ctx context.Context, err error, code string, severity Severity)
}

// Handler turns handler errors into user-facing outcomes and records them.
type Handler struct {
	log      *slog.Logger
	reporter Reporter
}

// NewHandler builds a Handler. A nil reporter disables external reporting.
func NewHandler(log *slog.Logger, reporter Reporter) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{log: log, reporter: reporter}
}

// Handle classifies err. Errors outside the AppError taxonomy are treated as
// high severity with the generic message.
func (h *Handler) Handle(ctx context.Context, err error) Outcome {
	if err == nil {
		return Outcome{}
	}
	if ctx == nil {
		ctx = context.Background()
	}

	code, severity := "unknown", SeverityHigh
	out := Outcome{Message: defaultUserMessage}

	var appErr *AppError
	if errors.As(err, &appErr) && appErr != nil {
		code, severity = appErr.Code, appErr.Severity
		out.Code = appErr.Code
		out.Retryable = appErr.Retryable
		if appErr.UserMessage != "" {
			out.Message = appErr.UserMessage
		}
	}

	h.log.LogAttrs(ctx, levelFor(severity), "update failed",
		slog.String("code", code),
		slog.String("severity", string(severity)),
		slog.Bool("retryable", out.Retryable),
		slog.Any("error", err),
	)
	metrics.RecordError(code, string(severity))

	if h.reporter != nil && (severity == SeverityHigh || severity == SeverityCritical) {
		h.reporter.Report(ctx, err, code, severity)
	}

	return out
}

// SentryReporter captures errors on the Sentry hub in ctx, falling back to the
// current hub.
type SentryReporter struct{}

func (SentryReporter) Report(ctx context.Context, err error, code string, severity Severity) {
	hub := sentry.GetHubFromContext(ctx)
	if hub == nil {
		hub = sentry.CurrentHub()
	}

	hub.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("code", code)
		scope.SetTag("severity", string(severity))
		if id := logger.CorrelationIDFromContext(ctx); id != "" {
			scope.SetTag("correlation_id", id)
		}
		hub.CaptureException(err)
	})
}

// Expected user mistakes stay at info so they don't drown real failures.
func levelFor(severity Severity) slog.Level {
	switch severity {
	case SeverityLow:
		return slog.LevelInfo
	case SeverityMedium:
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}
