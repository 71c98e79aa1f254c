package logger

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// correlationIDKey marks the context storage slot for the correlation identifier.
type correlationIDKey struct{}

// CorrelationIDHeader lets callers supply their own correlation identifier.
const CorrelationIDHeader = "X-Correlation-ID"

// correlationAttr is the log attribute the masking handler stamps on records.
const correlationAttr = "correlation_id"

// WithCorrelationID returns a copy of ctx carrying id, generating one when id is empty.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	if id == "" {
		id = uuid.NewString()
	}
	return context.WithValue(ctx, correlationIDKey{}, id)
}

// CorrelationIDFromContext returns the correlation identifier stored in ctx, or an empty string when absent.
func CorrelationIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if id, ok := ctx.Value(correlationIDKey{}).(string); ok {
		return id
	}

	return ""
}

// Middleware gives every request a correlation id, honouring one sent by the
// caller when it is short enough to be an id.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		supplied := r.Header.Get(CorrelationIDHeader)
		if len(supplied) > 64 {
			supplied = ""
		}
		ctx := WithCorrelationID(r.Context(), supplied)
		w.Header().Set(CorrelationIDHeader, CorrelationIDFromContext(ctx))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
