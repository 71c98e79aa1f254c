package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Hook is a named shutdown step.
type Hook struct {
	Name string
	Fn   func(ctx context.Context) error
}

// Shutdown runs registered hooks in stages. Hooks of one stage run
// concurrently; the next stage starts once all of them returned. Stages let
// the update source stop before the stores it writes to are closed.
type Shutdown struct {
	mu     sync.Mutex
	stages [][]Hook
	log    *slog.Logger
}

func NewShutdown(log *slog.Logger) *Shutdown {
	if log == nil {
		log = slog.Default()
	}

	return &Shutdown{log: log}
}

// Register adds a hook to the current stage.
func (s *Shutdown) Register(name string, fn func(context.Context) error) {
	if fn == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.stages) == 0 {
		s.stages = append(s.stages, nil)
	}
	last := len(s.stages) - 1
	s.stages[last] = append(s.stages[last], Hook{Name: name, Fn: fn})
}

// NextStage makes later Register calls run after everything registered so far.
func (s *Shutdown) NextStage() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.stages) > 0 && len(s.stages[len(s.stages)-1]) > 0 {
		s.stages = append(s.stages, nil)
	}
}

// Execute runs every stage and joins the hook errors.
func (s *Shutdown) Execute(ctx context.Context) error {
	s.mu.Lock()
	stages := make([][]Hook, len(s.stages))
	for i, stage := range s.stages {
		stages[i] = append([]Hook(nil), stage...)
	}
	s.mu.Unlock()

	start := time.Now()
	s.log.Info("shutdown sequence started", slog.Int("stage_count", len(stages)))

	var errs []error
	for _, stage := range stages {
		errs = append(errs, s.runStage(ctx, stage)...)
	}

	s.log.Info("shutdown sequence finished", slog.Duration("elapsed", time.Since(start)))

	return errors.Join(errs...)
}

func (s *Shutdown) runStage(ctx context.Context, hooks []Hook) []error {
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)

	for _, h := range hooks {
		wg.Add(1)
		go func() {
			defer wg.Done()

			if err := h.Fn(ctx); err != nil {
				s.log.Error("shutdown hook failed", slog.String("hook", h.Name), slog.Any("error", err))
				mu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", h.Name, err))
				mu.Unlock()
				return
			}

			s.log.Info("shutdown hook completed", slog.String("hook", h.Name))
		}()
	}

	wg.Wait()
	return errs
}
