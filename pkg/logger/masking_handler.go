package logger

import (
	"context"
	"log/slog"
	"strings"
)

const masked = "***"

// sensitiveFragments are matched as substrings, so "bot_token" and
// "database_password" are covered as well.
var sensitiveFragments = []string{
	"password",
	"token",
	"secret",
	"api_key",
	"authorization",
	"dsn",
}

// MaskingHandler hides secret attributes and stamps every record logged with
// a context that carries a correlation id.
type MaskingHandler struct {
	next slog.Handler
}

func NewMaskingHandler(next slog.Handler) *MaskingHandler {
	return &MaskingHandler{next: next}
}

func (h *MaskingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *MaskingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make([]slog.Attr, len(attrs))
	for i, attr := range attrs {
		out[i] = maskAttr(attr)
	}
	return &MaskingHandler{next: h.next.WithAttrs(out)}
}

func (h *MaskingHandler) WithGroup(name string) slog.Handler {
	return &MaskingHandler{next: h.next.WithGroup(name)}
}

func (h *MaskingHandler) Handle(ctx context.Context, record slog.Record) error {
	out := slog.NewRecord(record.Time, record.Level, record.Message, record.PC)

	hasCorrelation := false
	record.Attrs(func(attr slog.Attr) bool {
		if attr.Key == correlationAttr {
			hasCorrelation = true
		}
		out.AddAttrs(maskAttr(attr))
		return true
	})

	if id := CorrelationIDFromContext(ctx); id != "" && !hasCorrelation {
		out.AddAttrs(slog.String(correlationAttr, id))
	}

	return h.next.Handle(ctx, out)
}

func maskAttr(attr slog.Attr) slog.Attr {
	if isSensitiveKey(attr.Key) {
		return slog.String(attr.Key, masked)
	}

	if attr.Value.Kind() == slog.KindGroup {
		group := attr.Value.Group()
		out := make([]slog.Attr, len(group))
		for i, a := range group {
			out[i] = maskAttr(a)
		}
		attr.Value = slog.GroupValue(out...)
	}

	return attr
}

func isSensitiveKey(key string) bool {
	key = strings.ToLower(key)
	for _, fragment := range sensitiveFragments {
		if strings.Contains(key, fragment) {
			return true
		}
	}
	return false
}
