// Package scheduler runs jobs on cron schedules.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// Adapter implements usecase.SchedulerPort.
type Adapter struct {
	logger *slog.Logger
}

// New creates a scheduler adapter.
func New(logger *slog.Logger) *Adapter {
	if logger == nil {
		panic("scheduler adapter requires logger")
	}
	return &Adapter{logger: logger}
}

// Validate reports whether spec is a standard five-field expression or a
// descriptor such as @daily or @every 6h.
func Validate(spec string) error {
	if _, err := cron.ParseStandard(spec); err != nil {
		return fmt.Errorf("invalid cron spec %q: %w", spec, err)
	}
	return nil
}

// Run schedules job on spec and blocks until ctx is done. Ticks that fire
// while job is still running are skipped. Run waits for a running job to
// return before it returns ctx.Err().
func (a *Adapter) Run(ctx context.Context, spec string, job func(context.Context)) error {
	if err := Validate(spec); err != nil {
		return err
	}
	logger := cronLogger{logger: a.logger}
	c := cron.New(
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	id, err := c.AddFunc(spec, func() { job(ctx) })
	if err != nil {
		return fmt.Errorf("schedule job: %w", err)
	}
	c.Start()
	a.logger.Info("Scheduler started", "spec", spec, "next", c.Entry(id).Next)

	<-ctx.Done()
	stopped := c.Stop()
	<-stopped.Done()
	return ctx.Err()
}

// cronLogger adapts slog to cron.Logger. cron's Info messages are
// per-tick chatter and go to debug.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error("cron: "+msg, append([]interface{}{"error", err}, keysAndValues...)...)
}
