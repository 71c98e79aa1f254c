package errors

import (
	stdErrors "errors"
	"fmt"
)

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

const (
	CodeValidation             = "E100"
	CodeNotRegistered          = "E101"
	CodeAlreadyRegistered      = "E102"
	CodeIdentityMismatch       = "E103"
	CodeInsufficientFunds      = "E110"
	CodeUnknownTransfer        = "E120"
	CodeUnauthorized           = "E130"
	CodeForbiddenChannel       = "E131"
	CodeDatabase               = "E200"
	CodeExternalAPI            = "E300"
	CodeNotificationDelivery   = "E310"
	CodeState                  = "E400"
	CodeReconciliationRequired = "E410"
	CodeIDSpaceExhausted       = "E420"
	CodeRateLimit              = "E500"
)

// Sentinels for errors.Is; AppError values match by Code.
var (
	ErrValidation             = &AppError{Code: CodeValidation}
	ErrNotRegistered          = &AppError{Code: CodeNotRegistered}
	ErrAlreadyRegistered      = &AppError{Code: CodeAlreadyRegistered}
	ErrIdentityMismatch       = &AppError{Code: CodeIdentityMismatch}
	ErrInsufficientFunds      = &AppError{Code: CodeInsufficientFunds}
	ErrUnknownTransfer        = &AppError{Code: CodeUnknownTransfer}
	ErrUnauthorized           = &AppError{Code: CodeUnauthorized}
	ErrForbiddenChannel       = &AppError{Code: CodeForbiddenChannel}
	ErrNotificationDelivery   = &AppError{Code: CodeNotificationDelivery}
	ErrReconciliationRequired = &AppError{Code: CodeReconciliationRequired}
	ErrIDSpaceExhausted       = &AppError{Code: CodeIDSpaceExhausted}
)

type AppError struct {
	Code        string
	Message     string
	UserMessage string
	Severity    Severity
	Retryable   bool
	cause       error
}

func (e *AppError) Error() string {
	if e == nil {
		return ""
	}

	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}

	return e.Message
}

func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}

	return e.cause
}

// Is matches any AppError carrying the same code.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok || e == nil || t == nil {
		return false
	}

	return e.Code == t.Code
}

// CodeOf returns the code of the first AppError in err's chain.
func CodeOf(err error) string {
	var appErr *AppError
	if stdErrors.As(err, &appErr) && appErr != nil {
		return appErr.Code
	}

	return ""
}

func NewValidationError(msg string) *AppError {
	return &AppError{
		Code:        CodeValidation,
		Message:     msg,
		UserMessage: fmt.Sprintf("Invalid request. %s", msg),
		Severity:    SeverityLow,
		Retryable:   false,
	}
}

func NewNotRegisteredError(userID int64) *AppError {
	return &AppError{
		Code:        CodeNotRegistered,
		Message:     fmt.Sprintf("user %d has no bound in-game name", userID),
		UserMessage: "You are not registered yet. Use /register <in-game name> first.",
		Severity:    SeverityLow,
		Retryable:   false,
	}
}

func NewAlreadyRegisteredError(userID int64) *AppError {
	return &AppError{
		Code:        CodeAlreadyRegistered,
		Message:     fmt.Sprintf("user %d already has a bound in-game name", userID),
		UserMessage: "You are already registered. Contact staff to change your in-game name.",
		Severity:    SeverityLow,
		Retryable:   false,
	}
}

// NewIdentityMismatchError never carries the bound name in either message.
func NewIdentityMismatchError(userID int64) *AppError {
	return &AppError{
		Code:        CodeIdentityMismatch,
		Message:     fmt.Sprintf("supplied in-game name does not match the name bound to user %d", userID),
		UserMessage: "The in-game name does not match your registration.",
		Severity:    SeverityMedium,
		Retryable:   false,
	}
}

func NewInsufficientFundsError(balance, requested fmt.Stringer) *AppError {
	return &AppError{
		Code:        CodeInsufficientFunds,
		Message:     fmt.Sprintf("insufficient funds: balance %s, requested %s", balance, requested),
		UserMessage: fmt.Sprintf("Insufficient balance for withdrawal. Your balance is %s.", balance),
		Severity:    SeverityLow,
		Retryable:   false,
	}
}

func NewUnknownTransferError(id string) *AppError {
	return &AppError{
		Code:        CodeUnknownTransfer,
		Message:     fmt.Sprintf("transfer %q is not pending", id),
		UserMessage: fmt.Sprintf("Transfer %s does not exist or was already resolved.", id),
		Severity:    SeverityLow,
		Retryable:   false,
	}
}

func NewUnauthorizedError(userID int64, reason string) *AppError {
	return &AppError{
		Code:        CodeUnauthorized,
		Message:     fmt.Sprintf("user %d is not authorized: %s", userID, reason),
		UserMessage: "You are not authorized to perform this action.",
		Severity:    SeverityMedium,
		Retryable:   false,
	}
}

func NewForbiddenChannelError(channelID int64) *AppError {
	return &AppError{
		Code:        CodeForbiddenChannel,
		Message:     fmt.Sprintf("channel %d is not allowed", channelID),
		UserMessage: "This command is not available in this chat.",
		Severity:    SeverityLow,
		Retryable:   false,
	}
}

func NewDatabaseError(cause error) *AppError {
	var underlyingMsg string
	if cause != nil {
		underlyingMsg = cause.Error()
	}

	return &AppError{
		Code:        CodeDatabase,
		Message:     fmt.Sprintf("Database error: %s", underlyingMsg),
		UserMessage: "Temporary problem, please try again later.",
		Severity:    SeverityHigh,
		Retryable:   true,
		cause:       cause,
	}
}

func NewExternalAPIError(apiName string, cause error) *AppError {
	return &AppError{
		Code:        CodeExternalAPI,
		Message:     fmt.Sprintf("External API error: %s", apiName),
		UserMessage: "Service temporarily unavailable.",
		Severity:    SeverityMedium,
		Retryable:   true,
		cause:       cause,
	}
}

// NewNotificationError marks a failed outbound message. It is never fatal to ledger state.
func NewNotificationError(operation string, cause error) *AppError {
	return &AppError{
		Code:        CodeNotificationDelivery,
		Message:     fmt.Sprintf("notification delivery failed: %s", operation),
		UserMessage: "",
		Severity:    SeverityLow,
		Retryable:   true,
		cause:       cause,
	}
}

func NewStateError(msg string) *AppError {
	return &AppError{
		Code:        CodeState,
		Message:     msg,
		UserMessage: "This action is not possible right now.",
		Severity:    SeverityMedium,
		Retryable:   false,
	}
}

// NewReconciliationError reports a ledger failure after the transfer was consumed.
// The pending record is gone, so the outcome needs manual reconciliation.
func NewReconciliationError(transferID string, cause error) *AppError {
	return &AppError{
		Code:        CodeReconciliationRequired,
		Message:     fmt.Sprintf("transfer %s consumed but ledger update failed; manual reconciliation required", transferID),
		UserMessage: fmt.Sprintf("Transfer %s could not be applied and is no longer pending. Manual reconciliation is required.", transferID),
		Severity:    SeverityCritical,
		Retryable:   false,
		cause:       cause,
	}
}

func NewIDSpaceExhaustedError(attempts int) *AppError {
	return &AppError{
		Code:        CodeIDSpaceExhausted,
		Message:     fmt.Sprintf("transfer id space exhausted after %d attempts", attempts),
		UserMessage: "Too many requests are pending. Please try again later.",
		Severity:    SeverityCritical,
		Retryable:   false,
	}
}

func NewRateLimitError(retryAfter int) *AppError {
	return &AppError{
		Code:        CodeRateLimit,
		Message:     fmt.Sprintf("Rate limit exceeded: retry after %d seconds", retryAfter),
		UserMessage: fmt.Sprintf("Too many requests. Try again in %d seconds.", retryAfter),
		Severity:    SeverityLow,
		Retryable:   false,
	}
}

// NewPendingLimitError reports that the pending registry is full. It shares
// the exhaustion code because both mean no id can be handed out.
func NewPendingLimitError(limit int) *AppError {
	return &AppError{
		Code:        CodeIDSpaceExhausted,
		Message:     fmt.Sprintf("pending transfer limit of %d reached", limit),
		UserMessage: "Too many requests are pending. Please try again later.",
		Severity:    SeverityCritical,
		Retryable:   false,
	}
}
