package usecase

import (
	"context"
	"time"
)

// ChangeDetector decides whether a source file must be copied into a new
// snapshot, using modification time and size only.
type ChangeDetector struct {
	// Tolerance is the largest mtime difference still treated as equal.
	// Zero requires exact equality.
	Tolerance time.Duration
}

// NeedsCopy reports whether source differs from prior. A nil prior means no
// counterpart exists in the previous snapshot.
func (d ChangeDetector) NeedsCopy(source, prior FileInfo) bool {
	if prior == nil {
		return true
	}
	if source.Size() != prior.Size() {
		return true
	}
	diff := source.ModTime().Sub(prior.ModTime())
	if diff < 0 {
		diff = -diff
	}
	return diff > d.Tolerance
}

// priorCounterpart returns the non-directory entry at priorPath when its
// symlink-ness matches source, and nil otherwise.
func priorCounterpart(ctx context.Context, fs FileSystemPort, priorPath string, source FileInfo) FileInfo {
	if priorPath == "" {
		return nil
	}
	info, err := fs.Lstat(ctx, priorPath)
	if err != nil || info.IsDir() || info.IsSymlink() != source.IsSymlink() {
		return nil
	}
	return info
}
