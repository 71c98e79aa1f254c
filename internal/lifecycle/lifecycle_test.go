package lifecycle

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticReporter map[string]string

func (r staticReporter) Check(context.Context) map[string]string { return r }

func TestProbes_Readiness(t *testing.T) {
	ctx := context.Background()

	ready := NewProbes(staticReporter{"postgres": "OK", "redis": "OK"}, nil)
	assert.NoError(t, ready.Readiness(ctx))
	assert.NoError(t, ready.Liveness(ctx))

	degraded := NewProbes(staticReporter{"postgres": "OK", "redis": "connection refused"}, nil)
	err := degraded.Readiness(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis: connection refused")
	assert.NoError(t, degraded.Liveness(ctx))
}

func TestShutdown_RunsAllHooksAndJoinsErrors(t *testing.T) {
	s := NewShutdown(nil)

	var ran int32
	s.Register("bot", func(context.Context) error {
		atomic.AddInt32(&ran, 1)
		return nil
	})
	s.Register("worker", func(context.Context) error {
		atomic.AddInt32(&ran, 1)
		return errors.New("still draining")
	})
	s.Register("nil", nil)

	err := s.Execute(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "worker: still draining")
	assert.Equal(t, int32(2), atomic.LoadInt32(&ran))
}

func TestShutdown_StagesRunInOrder(t *testing.T) {
	s := NewShutdown(nil)

	var order []string
	s.Register("bot", func(context.Context) error {
		order = append(order, "bot")
		return nil
	})
	s.NextStage()
	s.Register("database", func(context.Context) error {
		order = append(order, "database")
		return nil
	})

	require.NoError(t, s.Execute(context.Background()))
	assert.Equal(t, []string{"bot", "database"}, order)
}
