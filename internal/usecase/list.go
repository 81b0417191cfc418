package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// ListOptions describes snapshot listing behavior.
type ListOptions struct {
	// Scan walks every snapshot to count files and bytes.
	Scan    bool
	HomeDir string
}

// SnapshotInfo is a listed snapshot with optional scan results.
type SnapshotInfo struct {
	Snapshot
	Scanned bool
	Files   int
	Bytes   int64
}

// ListReport contains the snapshots found at the destination.
type ListReport struct {
	Destination string
	Exists      bool
	Keep        int
	Snapshots   []SnapshotInfo
}

// ListSnapshots reports snapshots under the configured destination, most
// recent first. The destination is probed once without retrying.
func ListSnapshots(ctx context.Context, cfg *Config, deps *Dependencies, opts ListOptions, logger *slog.Logger) (*ListReport, error) {
	if logger == nil {
		panic("logger is required")
	}
	if deps == nil || deps.FileSystem == nil {
		return nil, fmt.Errorf("filesystem adapter not available: %w", ErrCritical)
	}
	if strings.TrimSpace(cfg.Destination) == "" {
		return nil, fmt.Errorf("backup.destination not configured: %w", ErrUsage)
	}
	fs := deps.FileSystem
	report := &ListReport{Destination: cfg.Destination, Keep: cfg.Keep}

	if deps.Probe != nil {
		if err := deps.Probe.Probe(ctx, cfg.Destination, ProbeOptions{RequireMount: cfg.RequireMount, AllowMissingRoot: true}); err != nil {
			return nil, newBackupError(KindUnavailable, cfg.Destination, err)
		}
	}
	snapshots, err := listSnapshots(ctx, fs, cfg.Destination)
	if err != nil {
		if fs.IsNotExist(err) {
			return report, nil
		}
		return nil, newBackupError(KindRetentionListFailed, cfg.Destination, err)
	}
	report.Exists = true

	for _, snap := range snapshots {
		info := SnapshotInfo{Snapshot: snap}
		if opts.Scan {
			files, bytes, err := scanSnapshot(ctx, fs, snap.Path)
			if err != nil {
				logger.WarnContext(ctx, "Cannot scan snapshot", "path", snap.Path, "error", err)
			} else {
				info.Scanned = true
				info.Files = files
				info.Bytes = bytes
			}
		}
		report.Snapshots = append(report.Snapshots, info)
	}
	logger.DebugContext(ctx, "Listed snapshots", "count", len(report.Snapshots))
	return report, nil
}

func scanSnapshot(ctx context.Context, fs FileSystemPort, root string) (int, int64, error) {
	var files int
	var bytes int64
	err := fs.Walk(ctx, root, func(path string, info FileInfo, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if info != nil && !info.IsDir() {
			files++
			bytes += info.Size()
		}
		return nil
	})
	return files, bytes, err
}

// FormatSnapshotList renders a ListReport.
func FormatSnapshotList(report *ListReport, opts ListOptions, useColor bool) string {
	p := newPalette(useColor)
	var b strings.Builder

	writeTitle(&b, "Snapshots", p)
	appendLine(&b, "Destination:", contractHomeDir(report.Destination, opts.HomeDir))
	appendLine(&b, "Keep:", fmt.Sprintf("%d", report.Keep))
	if !report.Exists {
		appendLine(&b, "Status:", fmt.Sprintf("%s✗%s %s(not created yet)%s", p.red, p.reset, p.dim, p.reset))
		return b.String()
	}
	appendLine(&b, "Count:", fmt.Sprintf("%d", len(report.Snapshots)))
	b.WriteString("\n")
	if len(report.Snapshots) == 0 {
		b.WriteString("  (none)\n")
		return b.String()
	}
	for i, snap := range report.Snapshots {
		marker := "  "
		if i == 0 {
			marker = p.green + "▶ " + p.reset
		}
		line := fmt.Sprintf("%s%s  %s%s%s", marker, snap.Name, p.dim, formatTime(snap.CreatedAt, p), p.reset)
		if snap.Scanned {
			line += fmt.Sprintf("  %d files, %s", snap.Files, humanBytes(snap.Bytes))
		} else if opts.Scan {
			line += fmt.Sprintf("  %s(scan failed)%s", p.yellow, p.reset)
		}
		fmt.Fprintf(&b, "  %s\n", line)
	}
	return b.String()
}
