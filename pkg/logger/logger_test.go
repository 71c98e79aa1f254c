package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()

	var out map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	return out
}

func TestMaskingHandler_HidesSecrets(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewMaskingHandler(slog.NewJSONHandler(&buf, nil)))

	log.With(slog.String("bot_token", "123:abc")).Info("boot",
		slog.String("database_password", "hunter2"),
		slog.Group("sentry", slog.String("dsn", "https://key@sentry")),
		slog.Int64("user_id", 42),
	)

	line := decodeLine(t, &buf)
	assert.Equal(t, masked, line["bot_token"])
	assert.Equal(t, masked, line["database_password"])
	assert.Equal(t, masked, line["sentry"].(map[string]any)["dsn"])
	assert.EqualValues(t, 42, line["user_id"])
	assert.NotContains(t, buf.String(), "hunter2")
}

func TestMaskingHandler_StampsCorrelationID(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewMaskingHandler(slog.NewJSONHandler(&buf, nil)))

	ctx := WithCorrelationID(context.Background(), "corr-1")
	log.InfoContext(ctx, "resolved", slog.String(correlationAttr, "corr-1"))
	assert.Equal(t, 1, strings.Count(buf.String(), "corr-1"))

	buf.Reset()
	log.InfoContext(ctx, "resolved")
	assert.Equal(t, "corr-1", decodeLine(t, &buf)[correlationAttr])
}

func TestMiddleware_CorrelationID(t *testing.T) {
	var seen string
	h := Middleware(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen = CorrelationIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(CorrelationIDHeader, "abc")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "abc", seen)
	assert.Equal(t, "abc", rec.Header().Get(CorrelationIDHeader))

	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(CorrelationIDHeader, strings.Repeat("x", 100))
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.Len(t, seen, 36, "oversized ids are replaced with a uuid")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel(" warn "))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}
