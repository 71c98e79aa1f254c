package errors

import (
	"context"
	stdErrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var fastPolicy = RetryPolicy{
	MaxRetries:        2,
	InitialBackoff:    time.Millisecond,
	MaxBackoff:        time.Millisecond,
	BackoffMultiplier: 2,
}

func TestRetryPolicy_RetriesRetryableErrors(t *testing.T) {
	calls := 0
	err := fastPolicy.Do(context.Background(), func() error {
		calls++
		return NewDatabaseError(stdErrors.New("connection reset"))
	})

	assert.Equal(t, 3, calls)
	assert.ErrorIs(t, err, &AppError{Code: CodeDatabase})
}

func TestRetryPolicy_StopsOnPermanentError(t *testing.T) {
	calls := 0
	err := fastPolicy.Do(context.Background(), func() error {
		calls++
		return NewUnknownTransferError("AB12CD")
	})

	assert.Equal(t, 1, calls)
	assert.ErrorIs(t, err, ErrUnknownTransfer)
}

func TestAppError_UnwrapReachesCause(t *testing.T) {
	cause := stdErrors.New("connection reset")
	err := NewReconciliationError("AB12CD", cause)

	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, ErrReconciliationRequired)
}
