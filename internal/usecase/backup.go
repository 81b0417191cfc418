package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// Orchestrator drives one backup run through its states:
// Idle, CheckingAvailability, CreatingSnapshot, Replicating,
// EnforcingRetention and finally Done or Failed.
type Orchestrator struct {
	cfg        Config
	deps       *Dependencies
	logger     *slog.Logger
	checker    *AvailabilityChecker
	replicator *Replicator
	retention  *RetentionManager
	detector   ChangeDetector
	progress   ProgressPort

	state  RunState
	states []RunState
}

// NewOrchestrator validates cfg and deps and prepares a run. cfg is copied.
func NewOrchestrator(cfg Config, deps *Dependencies, logger *slog.Logger) (*Orchestrator, error) {
	if logger == nil {
		panic("logger is required")
	}
	if deps == nil || deps.FileSystem == nil || deps.Probe == nil || deps.Operator == nil || deps.Clock == nil {
		return nil, fmt.Errorf("backup dependencies not available: %w", ErrCritical)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.Sources = append([]string(nil), cfg.Sources...)

	checker := NewAvailabilityChecker(
		deps.Probe,
		deps.Operator,
		deps.Clock,
		cfg.Retries,
		cfg.RetryDelay,
		ProbeOptions{RequireMount: cfg.RequireMount},
		logger,
	)
	detector := ChangeDetector{Tolerance: cfg.MtimeTolerance}
	progress := deps.Progress
	if progress == nil {
		progress = discardProgress{}
	}

	return &Orchestrator{
		cfg:     cfg,
		deps:    deps,
		logger:  logger,
		checker: checker,
		replicator: NewReplicator(deps.FileSystem, checker, ReplicatorOptions{
			DestinationRoot: cfg.Destination,
			Workers:         cfg.Workers,
			LinkUnchanged:   cfg.LinkUnchanged,
			Detector:        detector,
		}, logger),
		retention: NewRetentionManager(deps.FileSystem, checker, logger),
		detector:  detector,
		progress:  progress,
		state:     StateIdle,
		states:    []RunState{StateIdle},
	}, nil
}

// State returns the current state.
func (o *Orchestrator) State() RunState {
	return o.state
}

// Backup runs one backup with cfg.
func Backup(ctx context.Context, cfg *Config, deps *Dependencies, logger *slog.Logger) (*RunReport, error) {
	if logger == nil {
		panic("logger is required")
	}
	if cfg == nil {
		return nil, fmt.Errorf("config is nil: %w", ErrCritical)
	}
	o, err := NewOrchestrator(*cfg, deps, logger)
	if err != nil {
		return nil, err
	}
	return o.Run(ctx)
}

// Run executes the run. The returned report is never nil; err is non-nil
// when the run ended in the Failed state.
func (o *Orchestrator) Run(ctx context.Context) (*RunReport, error) {
	if o.state != StateIdle {
		return nil, fmt.Errorf("orchestrator already ran (state %s): %w", o.state, ErrUsage)
	}
	fs := o.deps.FileSystem
	report := &RunReport{StartedAt: o.deps.Clock.Now(), DryRun: o.cfg.DryRun}

	o.logger.InfoContext(ctx, "Starting backup",
		"destination", o.cfg.Destination,
		"sources", len(o.cfg.Sources),
		"keep", o.cfg.Keep,
		"dry_run", o.cfg.DryRun,
	)
	o.logConfig(ctx)

	trees, err := resolveSourceTrees(ctx, fs, o.cfg.Sources, o.logger)
	if err != nil {
		return o.fail(ctx, report, err)
	}
	if err := checkDestinationOverlap(ctx, fs, o.cfg.Destination, trees); err != nil {
		return o.fail(ctx, report, err)
	}

	o.transition(StateCheckingAvailability)
	if err := o.checker.EnsureCreatable(ctx, o.cfg.Destination); err != nil {
		return o.fail(ctx, report, err)
	}
	prior, err := latestSnapshot(ctx, fs, o.cfg.Destination)
	if err != nil {
		o.logger.WarnContext(ctx, "Cannot determine previous snapshot, copying everything", "error", err)
		prior = nil
	}
	report.Prior = prior
	if prior != nil {
		o.logger.InfoContext(ctx, "Previous snapshot", "name", prior.Name)
	} else {
		o.logger.InfoContext(ctx, "No previous snapshot, full copy")
	}

	if o.cfg.DryRun {
		return o.plan(ctx, report, trees, prior)
	}

	o.transition(StateCreatingSnapshot)
	snap, err := o.createSnapshot(ctx)
	if err != nil {
		return o.fail(ctx, report, err)
	}
	report.Snapshot = snap
	o.logger.InfoContext(ctx, "Created snapshot", "path", snap.Path)

	o.transition(StateReplicating)
	res, err := o.replicator.Replicate(ctx, trees, snap.Path, prior, o.progress)
	report.Replication = res
	if err != nil {
		return o.fail(ctx, report, err)
	}

	o.transition(StateEnforcingRetention)
	ret, err := o.retention.Enforce(ctx, o.cfg.Destination, o.cfg.Keep, snap.Name)
	report.Retention = ret
	if err != nil {
		return o.fail(ctx, report, err)
	}

	o.transition(StateDone)
	o.finish(ctx, report)
	return report, nil
}

func (o *Orchestrator) transition(next RunState) {
	o.logger.Debug("State transition", "from", o.state.String(), "to", next.String())
	o.state = next
	o.states = append(o.states, next)
}

func (o *Orchestrator) fail(ctx context.Context, report *RunReport, err error) (*RunReport, error) {
	o.transition(StateFailed)
	report.Err = err
	o.logger.ErrorContext(ctx, "Backup failed", "error", err)
	o.finish(ctx, report)
	return report, err
}

func (o *Orchestrator) finish(ctx context.Context, report *RunReport) {
	report.States = append([]RunState(nil), o.states...)
	report.Final = o.state
	report.FinishedAt = o.deps.Clock.Now()
	if report.DryRun {
		return
	}
	o.logSummary(ctx, report)
	o.record(ctx, report)
	o.notify(ctx, report)
}

// createSnapshot creates the destination root if needed and a fresh,
// exclusively created snapshot directory below it.
func (o *Orchestrator) createSnapshot(ctx context.Context) (*Snapshot, error) {
	fs := o.deps.FileSystem
	if err := o.checker.EnsureCreatable(ctx, o.cfg.Destination); err != nil {
		return nil, err
	}
	if err := fs.CreateDir(ctx, o.cfg.Destination, 0o755); err != nil {
		return nil, newBackupError(KindSnapshotCreateFailed, o.cfg.Destination, err)
	}
	now := o.deps.Clock.Now()
	name := NewSnapshotName(now)
	path := fs.Join(o.cfg.Destination, name)
	if err := fs.CreateDirExclusive(ctx, path, 0o755); err != nil {
		if fs.IsExist(err) {
			err = fmt.Errorf("snapshot %s already exists: %w", name, err)
		}
		return nil, newBackupError(KindSnapshotCreateFailed, path, err)
	}
	created, _ := ParseSnapshotName(name)
	return &Snapshot{Name: name, Path: path, CreatedAt: created}, nil
}

func (o *Orchestrator) logConfig(ctx context.Context) {
	o.logger.DebugContext(ctx, "Configuration",
		"sources", strings.Join(o.cfg.Sources, ","),
		"retries", o.cfg.Retries,
		"retry_delay", o.cfg.RetryDelay,
		"workers", o.cfg.Workers,
		"link_unchanged", o.cfg.LinkUnchanged,
		"mtime_tolerance", o.cfg.MtimeTolerance,
		"require_mount", o.cfg.RequireMount,
	)
}

func (o *Orchestrator) logSummary(ctx context.Context, report *RunReport) {
	res := report.Replication
	o.logger.InfoContext(ctx, "Replication finished",
		"files", res.Total,
		"copied", res.Copied,
		"skipped", res.Skipped,
		"linked", res.Linked,
		"failed", res.Failed,
		"bytes", res.BytesCopied,
	)
	const maxListed = 5
	for i, be := range res.Errors {
		if i == maxListed {
			o.logger.WarnContext(ctx, fmt.Sprintf("... and %d more errors", len(res.Errors)-maxListed))
			break
		}
		o.logger.WarnContext(ctx, "Not backed up", "kind", be.Kind.String(), "path", be.Path, "error", be.Err)
	}
	for _, be := range report.Retention.Failures {
		o.logger.WarnContext(ctx, "Old snapshot not removed", "path", be.Path, "error", be.Err)
	}
	if report.Final == StateDone {
		o.logger.InfoContext(ctx, "✓ Backup finished", "snapshot", report.Snapshot.Path, "removed", len(report.Retention.Removed))
	}
}

func (o *Orchestrator) record(ctx context.Context, report *RunReport) {
	if o.deps.Journal == nil {
		return
	}
	if err := o.deps.Journal.Record(ctx, NewRunRecord(report)); err != nil {
		o.logger.WarnContext(ctx, "Cannot record run in journal", "error", err)
	}
}

func (o *Orchestrator) notify(ctx context.Context, report *RunReport) {
	if !o.cfg.Notify || o.deps.Notification == nil {
		return
	}
	title := "genback: backup finished"
	msg := fmt.Sprintf("%d copied, %d unchanged, %d failed", report.Replication.Copied,
		report.Replication.Skipped, report.Replication.Failed)
	if report.Final == StateFailed {
		title = "genback: backup failed"
		msg = errorSummary(report.Err)
	}
	if err := o.deps.Notification.Send(ctx, title, msg, o.cfg.NotifySound); err != nil {
		o.logger.DebugContext(ctx, "Notification failed", "error", err)
	}
}

// NewRunRecord converts a report into a journal record.
func NewRunRecord(report *RunReport) RunRecord {
	rec := RunRecord{
		StartedAt:   report.StartedAt,
		FinishedAt:  report.FinishedAt,
		State:       report.Final.String(),
		Copied:      report.Replication.Copied,
		Linked:      report.Replication.Linked,
		Skipped:     report.Replication.Skipped,
		Failed:      report.Replication.Failed,
		BytesCopied: report.Replication.BytesCopied,
		Removed:     len(report.Retention.Removed),
	}
	if report.Snapshot != nil {
		rec.Snapshot = report.Snapshot.Path
	}
	if report.Err != nil {
		rec.Error = report.Err.Error()
	}
	return rec
}

func errorSummary(err error) string {
	if err == nil {
		return ""
	}
	if kind, ok := KindOf(err); ok {
		return kind.String()
	}
	if errors.Is(err, ErrInterrupted) {
		return "interrupted"
	}
	return err.Error()
}

// resolveSourceTrees turns configured source paths into absolute, readable
// directories with stable namespaces. Unreadable sources are skipped with a
// warning; having none left is an error.
func resolveSourceTrees(ctx context.Context, fs FileSystemPort, sources []string, logger *slog.Logger) ([]SourceTree, error) {
	seen := make(map[string]bool, len(sources))
	paths := make([]string, 0, len(sources))
	for _, src := range sources {
		abs, err := fs.Abs(ctx, src)
		if err != nil {
			logger.WarnContext(ctx, "Cannot resolve source path, skipping", "path", src, "error", err)
			continue
		}
		if resolved, err := fs.EvalSymlinks(ctx, abs); err == nil {
			abs = resolved
		}
		abs = fs.Clean(abs)
		if seen[abs] {
			continue
		}
		info, err := fs.Stat(ctx, abs)
		if err != nil {
			logger.WarnContext(ctx, "Source directory not readable, skipping", "path", abs, "error", err)
			continue
		}
		if !info.IsDir() {
			logger.WarnContext(ctx, "Source is not a directory, skipping", "path", abs)
			continue
		}
		seen[abs] = true
		paths = append(paths, abs)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no readable source directory: %w", ErrCritical)
	}
	return assignNamespaces(fs, paths), nil
}

// checkDestinationOverlap rejects a destination inside a source tree, which
// would replicate the snapshots being written, and a source inside the
// destination, which retention would delete.
func checkDestinationOverlap(ctx context.Context, fs FileSystemPort, destination string, trees []SourceTree) error {
	dest := resolvePath(ctx, fs, destination)
	for _, tree := range trees {
		if isWithin(fs, dest, tree.Path) {
			return fmt.Errorf("destination %s is inside source %s: %w", destination, tree.Path, ErrUsage)
		}
		if isWithin(fs, tree.Path, dest) {
			return fmt.Errorf("source %s is inside destination %s: %w", tree.Path, destination, ErrUsage)
		}
	}
	return nil
}

// assignNamespaces names each tree after its base directory. Trees sharing a
// base name get a hash of their absolute path appended so the mapping does
// not depend on configuration order.
func assignNamespaces(fs FileSystemPort, paths []string) []SourceTree {
	counts := make(map[string]int, len(paths))
	for _, p := range paths {
		counts[sanitizeSegment(fs.Base(p))]++
	}
	trees := make([]SourceTree, 0, len(paths))
	for _, p := range paths {
		ns := sanitizeSegment(fs.Base(p))
		if counts[ns] > 1 {
			ns = ns + "--" + shortHash(p)
		}
		trees = append(trees, SourceTree{Path: p, Namespace: ns})
	}
	return trees
}

type discardProgress struct{}

func (discardProgress) Start(int)   {}
func (discardProgress) Advance(int) {}
func (discardProgress) Finish()     {}
