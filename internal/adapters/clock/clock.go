// Package clock provides wall-clock time.
package clock

import (
	"context"
	"time"
)

// System implements usecase.ClockPort with the local wall clock.
type System struct{}

// New creates a system clock.
func New() System {
	return System{}
}

// Now returns the current local time.
func (System) Now() time.Time {
	return time.Now()
}

// Sleep waits for d, returning ctx.Err() if ctx ends first.
func (System) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
