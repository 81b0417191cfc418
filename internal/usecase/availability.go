package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// AvailabilityChecker guards destination access. It probes the destination,
// retries with a fixed delay and finally asks the operator whether to keep
// trying. Calls are serialized so at most one prompt is outstanding.
type AvailabilityChecker struct {
	probe    ProbePort
	operator OperatorPort
	clock    ClockPort
	logger   *slog.Logger
	attempts int
	delay    time.Duration
	opts     ProbeOptions

	mu      sync.Mutex
	aborted error
}

// NewAvailabilityChecker creates a checker with attempts total probes per round.
func NewAvailabilityChecker(
	probe ProbePort,
	operator OperatorPort,
	clock ClockPort,
	attempts int,
	delay time.Duration,
	opts ProbeOptions,
	logger *slog.Logger,
) *AvailabilityChecker {
	if logger == nil {
		panic("availability checker requires logger")
	}
	if attempts < 1 {
		attempts = 1
	}
	return &AvailabilityChecker{
		probe:    probe,
		operator: operator,
		clock:    clock,
		logger:   logger,
		attempts: attempts,
		delay:    delay,
		opts:     opts,
	}
}

// EnsureAvailable returns nil once root exists and is reachable. It returns
// an error matching ErrUnavailable when the operator aborts, and
// ErrInterrupted when ctx is canceled while waiting. An abort is final: later
// calls return the same error without probing.
func (c *AvailabilityChecker) EnsureAvailable(ctx context.Context, root string) error {
	return c.ensure(ctx, root, c.opts)
}

// EnsureCreatable is EnsureAvailable for the checks made before the snapshot
// exists: a missing root passes when it can be created.
func (c *AvailabilityChecker) EnsureCreatable(ctx context.Context, root string) error {
	opts := c.opts
	opts.AllowMissingRoot = true
	return c.ensure(ctx, root, opts)
}

func (c *AvailabilityChecker) ensure(ctx context.Context, root string, opts ProbeOptions) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.aborted != nil {
		return c.aborted
	}

	for {
		lastErr := c.probeRound(ctx, root, opts)
		if lastErr == nil {
			return nil
		}
		if errors.Is(lastErr, ErrInterrupted) {
			return lastErr
		}

		msg := fmt.Sprintf("Lost connection to backup destination %s after %d attempts (%v).", root, c.attempts, lastErr)
		decision, decideErr := c.operator.Decide(ctx, msg)
		if decideErr != nil {
			if ctx.Err() != nil {
				return fmt.Errorf("operator prompt: %w", ErrInterrupted)
			}
			c.logger.WarnContext(ctx, "Operator decision failed, aborting", "error", decideErr)
			decision = DecisionAbort
		}
		if decision != DecisionRetry {
			c.logger.ErrorContext(ctx, "Backup aborted: destination unavailable", "path", root)
			c.aborted = newBackupError(KindUnavailable, root, errors.Join(errors.New("aborted by operator"), lastErr))
			return c.aborted
		}
		c.logger.InfoContext(ctx, "Retrying destination", "path", root)
	}
}

// probeRound runs up to c.attempts probes and returns the last probe error,
// nil when a probe succeeded, or ErrInterrupted on cancellation.
func (c *AvailabilityChecker) probeRound(ctx context.Context, root string, opts ProbeOptions) error {
	var lastErr error
	for attempt := 1; attempt <= c.attempts; attempt++ {
		if ctx.Err() != nil {
			return fmt.Errorf("availability check: %w", ErrInterrupted)
		}
		lastErr = c.probe.Probe(ctx, root, opts)
		if lastErr == nil {
			if attempt > 1 {
				c.logger.InfoContext(ctx, "Destination reachable again", "path", root, "attempt", attempt)
			}
			return nil
		}
		c.logger.WarnContext(ctx, "Destination unreachable",
			"path", root,
			"attempt", attempt,
			"of", c.attempts,
			"error", lastErr,
		)
		if attempt == c.attempts {
			break
		}
		if err := c.clock.Sleep(ctx, c.delay); err != nil {
			return fmt.Errorf("availability retry wait: %w", ErrInterrupted)
		}
	}
	return lastErr
}
