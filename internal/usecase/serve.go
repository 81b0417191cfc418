package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
)

// Serve runs a backup on every tick of cfg.Schedule until ctx is canceled.
// A tick that fires while the previous run is still active is skipped.
func Serve(ctx context.Context, cfg *Config, deps *Dependencies, logger *slog.Logger) error {
	if logger == nil {
		panic("logger is required")
	}
	if cfg == nil {
		return fmt.Errorf("config is nil: %w", ErrCritical)
	}
	if cfg.Schedule == "" {
		return fmt.Errorf("schedule.cron not configured: %w", ErrUsage)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if deps == nil || deps.Scheduler == nil {
		return fmt.Errorf("scheduler adapter not available: %w", ErrCritical)
	}

	var running atomic.Bool
	runs := 0
	job := func(jobCtx context.Context) {
		if !running.CompareAndSwap(false, true) {
			logger.WarnContext(jobCtx, "Previous backup still running, skipping tick")
			return
		}
		defer running.Store(false)
		runs++
		logger.InfoContext(jobCtx, "Scheduled backup started", "run", runs)
		if _, err := Backup(jobCtx, cfg, deps, logger); err != nil {
			logger.ErrorContext(jobCtx, "Scheduled backup failed", "run", runs, "error", err)
		}
	}

	logger.InfoContext(ctx, "Serving scheduled backups", "cron", cfg.Schedule, "destination", cfg.Destination)
	err := deps.Scheduler.Run(ctx, cfg.Schedule, job)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("scheduler: %v: %w", err, ErrUsage)
	}
	logger.InfoContext(ctx, "Scheduler stopped")
	return nil
}
