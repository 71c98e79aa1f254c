package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Proton-105/guild-ledger/internal/state"
)

var (
	botCommandsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_commands_total",
			Help: "Total number of bot commands received labeled by command and status",
		},
		[]string{"command", "status"},
	)
	commandDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "command_duration_seconds",
			Help:    "Duration of bot commands in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"command"},
	)
	stateTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "state_transitions_total",
			Help: "Total number of conversation state transitions",
		},
		[]string{"from", "to"},
	)
	errorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "errors_total",
			Help: "Total number of errors split by code and severity",
		},
		[]string{"type", "severity"},
	)
	usersByState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "users_by_state",
			Help: "Number of users per conversation state",
		},
		[]string{"state"},
	)
	transferRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_transfer_requests_total",
			Help: "Deposit and withdrawal requests by kind and outcome",
		},
		[]string{"kind", "outcome"},
	)
	transferResolutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_transfer_resolutions_total",
			Help: "Resolution attempts by kind, decision and outcome",
		},
		[]string{"kind", "decision", "outcome"},
	)
	pendingTransfers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ledger_pending_transfers",
			Help: "Transfers currently awaiting resolution",
		},
	)
	reconciliationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ledger_reconciliation_required_total",
			Help: "Transfers consumed whose ledger update failed",
		},
	)
	identityMismatchesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ledger_identity_mismatches_total",
			Help: "Requests whose in-game name did not match the bound name",
		},
	)
	notificationFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_notification_failures_total",
			Help: "Outbound notifications that could not be delivered",
		},
		[]string{"operation"},
	)
	jobsEnqueuedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_jobs_enqueued_total",
			Help: "Background tasks handed to the queue by type and outcome",
		},
		[]string{"type", "outcome"},
	)
	jobFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_job_failures_total",
			Help: "Background task attempts that returned an error",
		},
		[]string{"type"},
	)
	circuitState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0 closed, 1 open, 2 half-open)",
		},
		[]string{"name"},
	)
)

var trackedStates = []state.State{
	state.StateIdle,
	state.StateAwaitingProof,
}

func init() {
	state.RegisterTransitionRecorder(RecordStateTransition)
}

// RecordCommand increments command counters and records duration.
func RecordCommand(command, status string, duration time.Duration) {
	command = orUnknown(command)
	status = orUnknown(status)

	botCommandsTotal.WithLabelValues(command, status).Inc()
	commandDurationSeconds.WithLabelValues(command).Observe(duration.Seconds())
}

// RecordStateTransition tracks FSM transitions.
func RecordStateTransition(from, to string) {
	stateTransitionsTotal.WithLabelValues(orUnknown(from), orUnknown(to)).Inc()
}

// RecordError increments error counters with metadata.
func RecordError(errType, severity string) {
	errorsTotal.WithLabelValues(orUnknown(errType), orUnknown(severity)).Inc()
}

// RecordTransferRequest counts a deposit or withdrawal request outcome ("created" or an error code).
func RecordTransferRequest(kind, outcome string) {
	transferRequestsTotal.WithLabelValues(orUnknown(kind), orUnknown(outcome)).Inc()
}

// RecordResolution counts a resolve attempt.
func RecordResolution(kind, decision, outcome string) {
	transferResolutionsTotal.WithLabelValues(orUnknown(kind), orUnknown(decision), orUnknown(outcome)).Inc()
}

// SetPendingTransfers updates the pending gauge.
func SetPendingTransfers(count int) {
	pendingTransfers.Set(float64(count))
}

// RecordReconciliation counts a consumed transfer whose ledger update failed.
func RecordReconciliation() {
	reconciliationsTotal.Inc()
}

// RecordIdentityMismatch counts a possible spoofing attempt.
func RecordIdentityMismatch() {
	identityMismatchesTotal.Inc()
}

// RecordNotificationFailure counts an undelivered outbound message.
func RecordNotificationFailure(operation string) {
	notificationFailuresTotal.WithLabelValues(orUnknown(operation)).Inc()
}

// RecordJobEnqueued counts an enqueue attempt ("enqueued", "duplicate" or "failed").
func RecordJobEnqueued(taskType, outcome string) {
	jobsEnqueuedTotal.WithLabelValues(orUnknown(taskType), orUnknown(outcome)).Inc()
}

// RecordJobFailure counts a failed task attempt.
func RecordJobFailure(taskType string) {
	jobFailuresTotal.WithLabelValues(orUnknown(taskType)).Inc()
}

// SetCircuitState publishes a breaker state.
func SetCircuitState(name string, value int) {
	circuitState.WithLabelValues(orUnknown(name)).Set(float64(value))
}

// SetUsersByState updates the gauge for the given state.
func SetUsersByState(state string, count int) {
	usersByState.WithLabelValues(orUnknown(state)).Set(float64(count))
}

func orUnknown(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}

// StateCollector periodically gathers FSM state counts and emits gauge metrics.
type StateCollector struct {
	fsm      state.StateMachine
	interval time.Duration
}

// NewStateCollector builds a metrics collector bound to the provided FSM.
func NewStateCollector(fsm state.StateMachine, interval time.Duration) *StateCollector {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &StateCollector{fsm: fsm, interval: interval}
}

// Run polls the FSM on every interval, updating per-state gauges until ctx is cancelled.
func (c *StateCollector) Run(ctx context.Context) {
	if c == nil || c.fsm == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	for {
		_ = c.collect(ctx)

		select {
		case <-ctx.Done():
			return
		case <-time.After(c.interval):
		}
	}
}

func (c *StateCollector) collect(ctx context.Context) error {
	states, err := c.fsm.List(ctx)
	if err != nil {
		return err
	}

	stateCounts := make(map[string]int, len(states))
	for _, st := range states {
		label := "unknown"
		if st != nil && st.CurrentState != "" {
			label = string(st.CurrentState)
		}
		stateCounts[label]++
	}

	usersByState.Reset()

	for _, tracked := range trackedStates {
		label := string(tracked)
		SetUsersByState(label, stateCounts[label])
		delete(stateCounts, label)
	}

	for label, count := range stateCounts {
		SetUsersByState(label, count)
	}

	return nil
}
