package keyboard

import (
	"errors"
	"fmt"
	"strings"
)

const (
	CallbackDataSeparator = ":"
	// CallbackDataLimitBytes is Telegram's cap on callback_data.
	CallbackDataLimitBytes = 64
)

var (
	ErrEmptyCallback   = errors.New("callback data is empty")
	ErrCallbackTooLong = errors.New("callback data too long")
	ErrInvalidCallback = errors.New("callback identifier is invalid")
)

// EncodeCallback joins unique and data as "unique:data". unique must not
// contain the separator, data may.
func EncodeCallback(unique, data string) (string, error) {
	if unique == "" || strings.Contains(unique, CallbackDataSeparator) {
		return "", fmt.Errorf("%w: %q", ErrInvalidCallback, unique)
	}

	payload := unique
	if data != "" {
		payload += CallbackDataSeparator + data
	}
	if len(payload) > CallbackDataLimitBytes {
		return "", fmt.Errorf("%w: %d bytes, limit %d", ErrCallbackTooLong, len(payload), CallbackDataLimitBytes)
	}

	return payload, nil
}

// DecodeCallback splits callback data at the first separator. A leading
// form feed, which telebot prepends to its own unique buttons, is ignored.
func DecodeCallback(callbackData string) (unique, data string, err error) {
	callbackData = strings.TrimPrefix(callbackData, "\f")
	if callbackData == "" {
		return "", "", ErrEmptyCallback
	}

	unique, data, _ = strings.Cut(callbackData, CallbackDataSeparator)
	if unique == "" {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidCallback, callbackData)
	}
	return unique, data, nil
}
