package errors

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type mockReporter struct {
	mock.Mock
}

func (m *mockReporter) Report(ctx context.Context, err error, code string, severity Severity) {
	m.Called(err, code, severity)
}

func newTestHandler(reporter Reporter) (*Handler, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	log := slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return NewHandler(log, reporter), buf
}

func TestHandler_AppErrorOutcome(t *testing.T) {
	reporter := &mockReporter{}
	h, buf := newTestHandler(reporter)

	out := h.Handle(context.Background(), fmt.Errorf("withdraw: %w", NewUnknownTransferError("0042")))

	assert.Equal(t, CodeUnknownTransfer, out.Code)
	assert.Equal(t, "Transfer 0042 does not exist or was already resolved.", out.Message)
	assert.False(t, out.Retryable)
	assert.Contains(t, buf.String(), "level=INFO")
	assert.Contains(t, buf.String(), "code="+CodeUnknownTransfer)
	reporter.AssertNotCalled(t, "Report", mock.Anything, mock.Anything, mock.Anything)
}

func TestHandler_SevereErrorsAreReported(t *testing.T) {
	reporter := &mockReporter{}
	h, buf := newTestHandler(reporter)

	err := NewReconciliationError("0042", fmt.Errorf("connection reset"))
	reporter.On("Report", err, CodeReconciliationRequired, SeverityCritical).Once()

	out := h.Handle(context.Background(), err)

	assert.Equal(t, CodeReconciliationRequired, out.Code)
	assert.Contains(t, buf.String(), "level=ERROR")
	reporter.AssertExpectations(t)
}

func TestHandler_UnknownError(t *testing.T) {
	reporter := &mockReporter{}
	h, _ := newTestHandler(reporter)

	err := fmt.Errorf("boom")
	reporter.On("Report", err, "unknown", SeverityHigh).Once()

	out := h.Handle(context.Background(), err)

	assert.Equal(t, Outcome{Message: defaultUserMessage}, out)
	reporter.AssertExpectations(t)
}

func TestHandler_EmptyUserMessageFallsBack(t *testing.T) {
	h, _ := newTestHandler(nil)

	out := h.Handle(context.Background(), NewNotificationError("notify requester", fmt.Errorf("blocked")))

	assert.Equal(t, defaultUserMessage, out.Message)
	assert.True(t, out.Retryable)
}

func TestHandler_NilError(t *testing.T) {
	h, buf := newTestHandler(nil)

	assert.Equal(t, Outcome{}, h.Handle(context.Background(), nil))
	assert.Empty(t, buf.String())
}
