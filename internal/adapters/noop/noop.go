// Package noop provides adapters that do nothing, for unattended runs and
// disabled features.
package noop

import (
	"context"
	"log/slog"

	"github.com/arumata/genback/internal/usecase"
)

// Progress discards progress updates.
type Progress struct{}

// Start does nothing.
func (Progress) Start(total int) {}

// Advance does nothing.
func (Progress) Advance(n int) {}

// Finish does nothing.
func (Progress) Finish() {}

// Notification drops desktop notifications.
type Notification struct{}

// Send does nothing and returns nil.
func (Notification) Send(ctx context.Context, title, message, sound string) error {
	return nil
}

// Operator answers every question with DecisionAbort. Scheduled runs use it
// because nobody is there to type "retry".
type Operator struct {
	logger *slog.Logger
}

// NewOperator creates an operator that always aborts.
func NewOperator(logger *slog.Logger) *Operator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Operator{logger: logger}
}

// Decide logs message and returns DecisionAbort.
func (o *Operator) Decide(ctx context.Context, message string) (usecase.Decision, error) {
	o.logger.WarnContext(ctx, "Unattended run, giving up on destination", "reason", message)
	return usecase.DecisionAbort, nil
}

var (
	_ usecase.ProgressPort     = Progress{}
	_ usecase.NotificationPort = Notification{}
	_ usecase.OperatorPort     = (*Operator)(nil)
)
