package ratelimit

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	checksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_ratelimit_checks_total",
		Help: "Rate limit checks by backend and result.",
	}, []string{"backend", "result"})

	backendErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ledger_ratelimit_backend_errors_total",
		Help: "Redis failures that forced the in-memory fallback.",
	})
)

const (
	backendRedis    = "redis"
	backendFallback = "fallback"
)

// AdaptiveLimiter asks Redis first and falls back to a stricter in-memory
// limiter while Redis is unavailable. A rejected check returns ErrLimitExceeded
// together with the result.
type AdaptiveLimiter struct {
	primary  Limiter
	fallback Limiter
	log      *slog.Logger
}

var _ Limiter = (*AdaptiveLimiter)(nil)

func NewAdaptiveLimiter(primary, fallback Limiter, log *slog.Logger) *AdaptiveLimiter {
	if log == nil {
		log = slog.Default()
	}

	return &AdaptiveLimiter{
		primary:  primary,
		fallback: fallback,
		log:      log,
	}
}

func (a *AdaptiveLimiter) Check(ctx context.Context, key string, limit int, window time.Duration) (*Result, error) {
	result, err := a.primary.Check(ctx, key, limit, window)
	if err == nil {
		return observe(backendRedis, result)
	}

	backendErrorsTotal.Inc()
	a.log.Warn("redis limiter failed, falling back to in-memory",
		slog.String("key", key),
		slog.Any("error", err),
	)

	// each replica only sees its own traffic, so halve the budget
	fallbackLimit := limit / 2
	if fallbackLimit <= 0 {
		fallbackLimit = 1
	}

	result, err = a.fallback.Check(ctx, key, fallbackLimit, window)
	if err != nil {
		return result, err
	}

	return observe(backendFallback, result)
}

func observe(backend string, result *Result) (*Result, error) {
	if result.Allowed {
		checksTotal.WithLabelValues(backend, "allowed").Inc()
		return result, nil
	}

	checksTotal.WithLabelValues(backend, "rejected").Inc()
	return result, ErrLimitExceeded
}
