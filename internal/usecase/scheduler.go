package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"CinemaScanner/internal/domain"
	"CinemaScanner/internal/ports"
)

// Runner is the unit of work a Scheduler repeats.
type Runner interface {
	Run(ctx context.Context) (RunReport, error)
}

// Scheduler wires the interval driver with the pipeline use case.
type Scheduler struct {
	driver ports.Scheduler
	runner Runner
	logger *slog.Logger
}

// NewScheduler returns a helper to start/stop recurring runs.
func NewScheduler(driver ports.Scheduler, runner Runner, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Scheduler{driver: driver, runner: runner, logger: logger}
}

// Start registers the pipeline with the provided scheduler. Failed runs are
// logged and the next tick runs again.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.runner == nil {
		return nil
	}

	job := func(trigger time.Time) {
		report, err := s.runner.Run(ctx)
		switch {
		case errors.Is(err, domain.ErrCircuitOpen):
			s.logger.Warn("scheduled run cut short", "trigger", trigger, "run_id", report.RunID, "error", err)
		case err != nil:
			s.logger.Error("scheduled run failed", "trigger", trigger, "run_id", report.RunID, "error", err)
		default:
			s.logger.Info("scheduled run done", "trigger", trigger, "run_id", report.RunID, "fetched", report.Fetched)
		}
	}

	return s.driver.Start(ctx, job)
}

// Stop gracefully tears down the underlying scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	return s.driver.Stop(ctx)
}
