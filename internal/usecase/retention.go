package usecase

import (
	"context"
	"log/slog"
)

// RetentionManager removes the oldest snapshots beyond a fixed count.
type RetentionManager struct {
	fs      FileSystemPort
	checker *AvailabilityChecker
	logger  *slog.Logger
}

// NewRetentionManager creates a retention manager.
func NewRetentionManager(fs FileSystemPort, checker *AvailabilityChecker, logger *slog.Logger) *RetentionManager {
	if logger == nil {
		panic("retention manager requires logger")
	}
	return &RetentionManager{fs: fs, checker: checker, logger: logger}
}

// Enforce keeps the keep most recent snapshots under root, ordered by name,
// plus current when set, and removes the rest. A listing failure is returned;
// removal failures are collected in the result and the remaining snapshots
// are still processed.
func (m *RetentionManager) Enforce(ctx context.Context, root string, keep int, current string) (RetentionResult, error) {
	if keep < 1 {
		keep = 1
	}
	if err := m.checker.EnsureAvailable(ctx, root); err != nil {
		return RetentionResult{}, err
	}
	snapshots, err := listSnapshots(ctx, m.fs, root)
	if err != nil {
		m.logger.ErrorContext(ctx, "Cannot list snapshots", "path", root, "error", err)
		return RetentionResult{}, newBackupError(KindRetentionListFailed, root, err)
	}

	var res RetentionResult
	kept := 0
	for _, snap := range snapshots {
		if kept < keep || snap.Name == current {
			res.Retained = append(res.Retained, snap)
			kept++
			continue
		}
		if err := m.checker.EnsureAvailable(ctx, root); err != nil {
			return res, err
		}
		m.logger.InfoContext(ctx, "Removing old snapshot", "name", snap.Name)
		if err := m.fs.RemoveAll(ctx, snap.Path); err != nil {
			m.logger.ErrorContext(ctx, "Cannot remove snapshot", "path", snap.Path, "error", err)
			res.Failures = append(res.Failures, newBackupError(KindRetentionRemoveFailed, snap.Path, err))
			continue
		}
		res.Removed = append(res.Removed, snap)
	}
	return res, nil
}

// planRetention returns the snapshots Enforce would remove, without touching
// anything. existing must be ordered most recent first.
func planRetention(existing []Snapshot, keep int) []Snapshot {
	if keep < 1 {
		keep = 1
	}
	if len(existing) <= keep {
		return nil
	}
	return existing[keep:]
}
