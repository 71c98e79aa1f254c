package lifecycle

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
)

// HealthChecker exposes liveness and readiness probes.
type HealthChecker interface {
	Liveness(ctx context.Context) error
	Readiness(ctx context.Context) error
}

// StatusReporter runs component checks, returning "OK" or the failure per component.
type StatusReporter interface {
	Check(ctx context.Context) map[string]string
}

// Probes answers liveness unconditionally and readiness from the component checks.
type Probes struct {
	reporter StatusReporter
	log      *slog.Logger
}

var _ HealthChecker = (*Probes)(nil)

func NewProbes(reporter StatusReporter, log *slog.Logger) *Probes {
	if log == nil {
		log = slog.Default()
	}
	return &Probes{reporter: reporter, log: log}
}

// Liveness reports that the process is up.
func (p *Probes) Liveness(ctx context.Context) error {
	return nil
}

// Readiness fails when any component check fails.
func (p *Probes) Readiness(ctx context.Context) error {
	if p.reporter == nil {
		return nil
	}

	var failed []string
	for name, status := range p.reporter.Check(ctx) {
		if status != "OK" {
			failed = append(failed, fmt.Sprintf("%s: %s", name, status))
		}
	}
	if len(failed) == 0 {
		return nil
	}

	sort.Strings(failed)
	p.log.Debug("readiness probe failed", slog.Any("failed", failed))
	return fmt.Errorf("not ready: %s", strings.Join(failed, "; "))
}
