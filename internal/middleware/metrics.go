package middleware

import (
	"time"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/guild-ledger/internal/bot/handlers"
	"github.com/Proton-105/guild-ledger/internal/bot/keyboard"
	"github.com/Proton-105/guild-ledger/pkg/metrics"
)

// Metrics measures execution time and status for bot handlers, reporting them to Prometheus.
func Metrics(next handlers.Handler) handlers.Handler {
	if next == nil {
		return nil
	}

	return func(c telebot.Context) error {
		start := time.Now()
		err := next(c)

		status := "ok"
		if err != nil {
			status = "error"
		}

		metrics.RecordCommand(commandLabel(c), status, time.Since(start))

		return err
	}
}

// commandLabel keeps label cardinality bounded: arguments and callback
// payloads such as transfer ids are dropped.
func commandLabel(c telebot.Context) string {
	if c == nil {
		return "unknown"
	}

	if cb := c.Callback(); cb != nil {
		if unique, _, err := keyboard.DecodeCallback(cb.Data); err == nil {
			return "cb:" + unique
		}
		return "cb:unknown"
	}

	if cmd := handlers.CommandOf(c.Text()); cmd != "" {
		return cmd
	}

	if msg := c.Message(); msg != nil && msg.Photo != nil {
		return "photo"
	}

	return "message"
}
