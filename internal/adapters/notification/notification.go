package notification

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os/exec"
	"time"
)

const (
	appName = "genback"
	// sendTimeout bounds how long a notification helper may run after a backup.
	sendTimeout = 10 * time.Second
)

// errNoBackend is returned by buildCommand when no notification tool exists.
var errNoBackend = errors.New("notification backend not found")

// Adapter implements NotificationPort by shelling out to the desktop's
// notification tool. Failures are logged at debug level and never returned.
type Adapter struct {
	logger *slog.Logger
}

// New creates a new notification adapter.
func New(logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Adapter{logger: logger}
}

// Send shows a desktop notification. sound can be empty.
func (a *Adapter) Send(ctx context.Context, title, message, sound string) error {
	if ctx.Err() != nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	cmd, err := buildCommand(ctx, title, message, sound)
	if err != nil {
		a.logger.Debug("notification skipped", slog.Any("err", err))
		return nil
	}
	cmd.Stdout = io.Discard
	cmd.Stderr = io.Discard
	if runErr := cmd.Run(); runErr != nil {
		a.logger.Debug("notification failed", slog.String("tool", cmd.Path), slog.Any("err", runErr))
	}
	return nil
}

func lookPath(names ...string) (string, error) {
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path, nil
		}
	}
	return "", errNoBackend
}
