package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// History returns up to limit recent runs from the journal, newest first.
func History(ctx context.Context, deps *Dependencies, limit int, logger *slog.Logger) ([]RunRecord, error) {
	if logger == nil {
		panic("logger is required")
	}
	if deps == nil || deps.Journal == nil {
		return nil, fmt.Errorf("run journal disabled (set journal.path): %w", ErrUsage)
	}
	if limit <= 0 {
		limit = 20
	}
	records, err := deps.Journal.Recent(ctx, limit)
	if err != nil {
		logger.ErrorContext(ctx, "Cannot read run journal", "error", err)
		return nil, fmt.Errorf("read journal: %w", ErrCritical)
	}
	return records, nil
}

// FormatHistory renders journal records as a table.
func FormatHistory(records []RunRecord, useColor bool) string {
	p := newPalette(useColor)
	var b strings.Builder

	writeTitle(&b, "Backup History", p)
	if len(records) == 0 {
		b.WriteString("  (no runs recorded)\n")
		return b.String()
	}
	fmt.Fprintf(&b, "  %-19s  %-6s  %7s  %9s  %6s  %7s  %s\n",
		"STARTED", "STATE", "COPIED", "UNCHANGED", "FAILED", "REMOVED", "SNAPSHOT")
	for _, rec := range records {
		state := rec.State
		color := p.green
		if rec.State != StateDone.String() {
			color = p.red
		}
		fmt.Fprintf(&b, "  %-19s  %s%-6s%s  %7d  %9d  %6d  %7d  %s\n",
			formatTime(rec.StartedAt, p),
			color, state, p.reset,
			rec.Copied, rec.Skipped, rec.Failed, rec.Removed,
			snapshotBase(rec.Snapshot),
		)
		if rec.Error != "" {
			fmt.Fprintf(&b, "  %s└ %s%s\n", p.dim, rec.Error, p.reset)
		}
	}
	return b.String()
}

func snapshotBase(path string) string {
	if path == "" {
		return "-"
	}
	if i := strings.LastIndexAny(path, `/\`); i >= 0 {
		return path[i+1:]
	}
	return path
}
