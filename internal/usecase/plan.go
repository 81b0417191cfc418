package usecase

import (
	"context"
	"fmt"
)

// plan evaluates what a run would do without writing to the destination.
// Replication counters report files that would be copied and skipped, and
// Retention.Removed lists snapshots that would be removed.
func (o *Orchestrator) plan(ctx context.Context, report *RunReport, trees []SourceTree, prior *Snapshot) (*RunReport, error) {
	fs := o.deps.FileSystem
	name := NewSnapshotName(o.deps.Clock.Now())
	created, _ := ParseSnapshotName(name)
	report.Snapshot = &Snapshot{Name: name, Path: fs.Join(o.cfg.Destination, name), CreatedAt: created}
	o.logger.InfoContext(ctx, "Dry run: no changes will be made", "would_create", report.Snapshot.Path)

	var res ReplicationResult
	for _, tree := range trees {
		err := fs.Walk(ctx, tree.Path, func(path string, info FileInfo, walkErr error) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if walkErr != nil || info == nil || info.IsDir() {
				return nil
			}
			res.Total++
			var priorPath string
			if prior != nil {
				if rel, err := fs.Rel(tree.Path, path); err == nil {
					priorPath = fs.Join(prior.Path, tree.Namespace, rel)
				}
			}
			if o.detector.NeedsCopy(info, priorCounterpart(ctx, fs, priorPath, info)) {
				res.Copied++
				res.BytesCopied += info.Size()
				o.logger.DebugContext(ctx, "Would copy", "path", path)
			} else {
				res.Skipped++
			}
			return nil
		})
		if err != nil {
			if ctx.Err() != nil {
				return o.fail(ctx, report, fmt.Errorf("dry run: %w", ErrInterrupted))
			}
			o.logger.WarnContext(ctx, "Dry run walk failed", "path", tree.Path, "error", err)
		}
	}
	report.Replication = res

	existing, err := listSnapshots(ctx, fs, o.cfg.Destination)
	if err != nil && !fs.IsNotExist(err) {
		o.logger.WarnContext(ctx, "Dry run: cannot list snapshots", "error", err)
	}
	all := append([]Snapshot{*report.Snapshot}, existing...)
	removed := planRetention(all, o.cfg.Keep)
	report.Retention.Removed = removed
	report.Retention.Retained = all[:len(all)-len(removed)]
	for _, snap := range removed {
		o.logger.InfoContext(ctx, "Dry run: would remove snapshot", "name", snap.Name)
	}
	o.logger.InfoContext(ctx, "Dry run finished",
		"would_copy", res.Copied,
		"would_skip", res.Skipped,
		"would_remove", len(removed),
	)

	o.transition(StateDone)
	o.finish(ctx, report)
	return report, nil
}
