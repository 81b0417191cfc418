package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/arumata/genback/internal/adapters/clock"
	"github.com/arumata/genback/internal/adapters/config"
	"github.com/arumata/genback/internal/adapters/filesystem"
	"github.com/arumata/genback/internal/adapters/journal"
	"github.com/arumata/genback/internal/adapters/noop"
	"github.com/arumata/genback/internal/adapters/notification"
	"github.com/arumata/genback/internal/adapters/probe"
	"github.com/arumata/genback/internal/adapters/progress"
	"github.com/arumata/genback/internal/adapters/prompt"
	"github.com/arumata/genback/internal/adapters/scheduler"
	"github.com/arumata/genback/internal/usecase"
)

// NewDefaultDependencies creates dependencies with real adapters for an
// interactive terminal session. The journal is opened separately with
// OpenJournal once its path is known.
func NewDefaultDependencies(logger *slog.Logger) *usecase.Dependencies {
	if logger == nil {
		panic("default dependencies require logger")
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		logger.Debug("Cannot resolve home dir for mount check", "error", err)
	}

	return &usecase.Dependencies{
		FileSystem:   filesystem.New(logger),
		Probe:        probe.New(logger, homeDir),
		Operator:     prompt.NewStdio(logger, true),
		Progress:     progress.New(os.Stderr, "Replicating"),
		Clock:        clock.New(),
		Config:       config.New(logger),
		Notification: notification.New(logger),
		Scheduler:    scheduler.New(logger),
	}
}

// RunMode adjusts dependencies to how genback was started.
type RunMode struct {
	// NonInteractive never prompts; unreachable destinations abort.
	NonInteractive bool
	// Unattended is a scheduled run: no prompt and no progress bar.
	Unattended bool
	// Quiet hides the progress bar.
	Quiet bool
}

// ApplyRunMode swaps interactive adapters for their unattended versions.
func ApplyRunMode(deps *usecase.Dependencies, logger *slog.Logger, mode RunMode) {
	if deps == nil {
		return
	}
	if mode.NonInteractive || mode.Unattended {
		deps.Operator = noop.NewOperator(logger)
	}
	if mode.Quiet || mode.Unattended {
		deps.Progress = noop.Progress{}
	}
}

// OpenJournal opens the run journal at path and attaches it to deps. An
// empty path leaves the journal disabled. The returned func closes it.
func OpenJournal(ctx context.Context, deps *usecase.Dependencies, path string, logger *slog.Logger) (func(), error) {
	if path == "" {
		return func() {}, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return func() {}, fmt.Errorf("create journal directory: %w", err)
	}
	store, err := journal.Open(ctx, path)
	if err != nil {
		return func() {}, err
	}
	deps.Journal = store
	logger.Debug("Run journal opened", "path", path)
	return func() {
		if err := store.Close(); err != nil {
			logger.Debug("Cannot close run journal", "error", err)
		}
	}, nil
}
