package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"
)

// ErrRequestInProgress is returned while another worker holds the key.
var ErrRequestInProgress = errors.New("request with this key is already in progress")

const (
	lockTTL      = 5 * time.Minute
	pollInterval = 100 * time.Millisecond
)

type Operation func(ctx context.Context) (interface{}, error)

type Result struct {
	Response  interface{}
	FromCache bool
}

// Manager runs an operation at most once per key within the ttl.
type Manager interface {
	Execute(ctx context.Context, key string, ttl time.Duration, fn Operation) (*Result, error)
}

type manager struct {
	store Store
	log   *slog.Logger
}

func NewManager(store Store, log *slog.Logger) Manager {
	if log == nil {
		log = slog.Default()
	}

	return &manager{
		store: store,
		log:   log,
	}
}

// Execute returns the stored result when key already completed, and
// ErrRequestInProgress while another caller holds it. A failed fn leaves no
// record so the operation can be retried.
func (m *manager) Execute(ctx context.Context, key string, ttl time.Duration, fn Operation) (*Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if fn == nil {
		return nil, errors.New("operation fn cannot be nil")
	}

	for {
		locked, err := m.store.Lock(ctx, key, lockTTL)
		if err != nil {
			return nil, err
		}
		if locked {
			return m.run(ctx, key, ttl, fn)
		}

		record, err := m.store.Get(ctx, key)
		if err != nil {
			return nil, err
		}

		switch {
		case record == nil:
			// lock holder has not written yet; fall through to wait
		case record.Status == StatusCompleted:
			return cachedResult(record)
		case record.Status == StatusProcessing:
			return nil, ErrRequestInProgress
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}

func (m *manager) run(ctx context.Context, key string, ttl time.Duration, fn Operation) (*Result, error) {
	defer func() {
		if err := m.store.ReleaseLock(context.WithoutCancel(ctx), key); err != nil {
			m.log.Warn("failed to release idempotency lock", slog.String("key", key), slog.Any("error", err))
		}
	}()

	// an earlier holder may have finished and released the lock
	existing, err := m.store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if existing != nil && existing.Status == StatusCompleted {
		return cachedResult(existing)
	}

	if err := m.store.Set(ctx, key, &Record{Status: StatusProcessing}, lockTTL); err != nil {
		return nil, err
	}

	result, err := fn(ctx)
	if err != nil {
		if delErr := m.store.Delete(context.WithoutCancel(ctx), key); delErr != nil {
			m.log.Warn("failed to drop idempotency record", slog.String("key", key), slog.Any("error", delErr))
		}
		return nil, err
	}

	responseBytes, err := json.Marshal(result)
	if err != nil {
		return nil, err
	}

	if err := m.store.Set(ctx, key, &Record{Status: StatusCompleted, Response: responseBytes}, ttl); err != nil {
		return nil, err
	}

	return &Result{Response: result}, nil
}

func cachedResult(record *Record) (*Result, error) {
	var response interface{}
	if len(record.Response) > 0 {
		if err := json.Unmarshal(record.Response, &response); err != nil {
			return nil, err
		}
	}
	return &Result{Response: response, FromCache: true}, nil
}
