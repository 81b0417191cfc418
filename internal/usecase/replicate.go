package usecase

import (
	"context"
	"errors"
	"fmt"
	iofs "io/fs"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"
)

// errSkipDir tells Walk to skip the current directory.
var errSkipDir = iofs.SkipDir

// WorkItem is one file to bring into the new snapshot.
type WorkItem struct {
	Source string
	Target string
	// Prior is the counterpart path in the previous snapshot, empty when
	// there is no previous snapshot.
	Prior string
	Rel   string
}

// Replicator mirrors source trees into a snapshot directory.
type Replicator struct {
	fs       FileSystemPort
	checker  *AvailabilityChecker
	detector ChangeDetector
	destRoot string
	workers  int
	link     bool
	logger   *slog.Logger
}

// ReplicatorOptions configures a Replicator.
type ReplicatorOptions struct {
	// DestinationRoot is probed before every destination write.
	DestinationRoot string
	Workers         int
	LinkUnchanged   bool
	Detector        ChangeDetector
}

// NewReplicator creates a replicator.
func NewReplicator(fs FileSystemPort, checker *AvailabilityChecker, opts ReplicatorOptions, logger *slog.Logger) *Replicator {
	if logger == nil {
		panic("replicator requires logger")
	}
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}
	return &Replicator{
		fs:       fs,
		checker:  checker,
		detector: opts.Detector,
		destRoot: opts.DestinationRoot,
		workers:  workers,
		link:     opts.LinkUnchanged,
		logger:   logger,
	}
}

// tally collects per-item outcomes from concurrent consumers.
type tally struct {
	mu  sync.Mutex
	res ReplicationResult
}

func (t *tally) add(fn func(r *ReplicationResult)) {
	t.mu.Lock()
	fn(&t.res)
	t.mu.Unlock()
}

func (t *tally) fail(be *BackupError, n int) {
	t.add(func(r *ReplicationResult) {
		r.Failed += n
		r.Errors = append(r.Errors, be)
	})
}

// Replicate copies every file of trees into snapshotDir, skipping files that
// are unchanged relative to prior (nil when there is no prior snapshot).
// progress receives exactly one advance per file counted in the pre-pass.
// Per-file and per-directory failures are recorded in the result; only an
// unresolved unavailability or cancellation is returned as an error.
func (r *Replicator) Replicate(
	ctx context.Context,
	trees []SourceTree,
	snapshotDir string,
	prior *Snapshot,
	progress ProgressPort,
) (ReplicationResult, error) {
	total := 0
	for _, tree := range trees {
		n, err := r.countFiles(ctx, tree.Path)
		if err != nil {
			return ReplicationResult{}, err
		}
		total += n
	}
	r.logger.DebugContext(ctx, "Counted source files", "total", total, "trees", len(trees))

	t := &tally{res: ReplicationResult{Total: total}}
	progress.Start(total)
	defer progress.Finish()

	g, gctx := errgroup.WithContext(ctx)
	items := make(chan WorkItem, r.workers*2)

	g.Go(func() error {
		defer close(items)
		for _, tree := range trees {
			if err := r.produce(gctx, tree, snapshotDir, prior, items, t, progress); err != nil {
				return err
			}
		}
		return nil
	})
	for range r.workers {
		g.Go(func() error {
			for item := range items {
				if err := r.process(gctx, item, t, progress); err != nil {
					return err
				}
			}
			return nil
		})
	}

	err := g.Wait()
	t.mu.Lock()
	res := t.res
	t.mu.Unlock()
	if err != nil {
		if errors.Is(err, context.Canceled) && ctx.Err() != nil {
			return res, fmt.Errorf("replication: %w", ErrInterrupted)
		}
		return res, err
	}
	return res, nil
}

// countFiles counts non-directory entries below root the same way produce
// walks them.
func (r *Replicator) countFiles(ctx context.Context, root string) (int, error) {
	n := 0
	err := r.fs.Walk(ctx, root, func(path string, info FileInfo, err error) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil || info == nil {
			return nil
		}
		if !info.IsDir() {
			n++
		}
		return nil
	})
	if err != nil && ctx.Err() != nil {
		return 0, fmt.Errorf("count source files: %w", ErrInterrupted)
	}
	return n, nil
}

func (r *Replicator) produce(
	ctx context.Context,
	tree SourceTree,
	snapshotDir string,
	prior *Snapshot,
	items chan<- WorkItem,
	t *tally,
	progress ProgressPort,
) error {
	return r.fs.Walk(ctx, tree.Path, func(path string, info FileInfo, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if walkErr != nil || info == nil {
			r.logger.WarnContext(ctx, "Cannot read source entry", "path", path, "error", walkErr)
			return nil
		}
		rel, err := r.fs.Rel(tree.Path, path)
		if err != nil {
			r.logger.WarnContext(ctx, "Cannot resolve relative path", "path", path, "error", err)
			return nil
		}
		target := r.fs.Join(snapshotDir, tree.Namespace, rel)

		if info.IsDir() {
			return r.mirrorDir(ctx, path, target, t, progress)
		}

		item := WorkItem{
			Source: path,
			Target: target,
			Rel:    r.fs.Join(tree.Namespace, rel),
		}
		if prior != nil {
			item.Prior = r.fs.Join(prior.Path, tree.Namespace, rel)
		}
		select {
		case items <- item:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
}

// mirrorDir creates target for the source directory at path. Parents are
// never created, so a vanished snapshot is not rebuilt below the destination
// parent. On failure the whole subtree is accounted for as failed and skipped.
func (r *Replicator) mirrorDir(ctx context.Context, path, target string, t *tally, progress ProgressPort) error {
	if err := r.checker.EnsureAvailable(ctx, r.destRoot); err != nil {
		return err
	}
	if err := r.createDirOnce(ctx, target); err != nil {
		be := newBackupError(KindDirectoryCreateFailed, target, err)
		n, countErr := r.countFiles(ctx, path)
		if countErr != nil {
			return countErr
		}
		r.logger.ErrorContext(ctx, "Cannot create directory, skipping subtree",
			"path", target,
			"files", n,
			"cause", r.failureCause(err),
			"error", err,
		)
		t.fail(be, n)
		if n > 0 {
			progress.Advance(n)
		}
		return errSkipDir
	}
	return nil
}

func (r *Replicator) createDirOnce(ctx context.Context, target string) error {
	err := r.fs.CreateDirExclusive(ctx, target, 0o755)
	if err == nil || !r.fs.IsExist(err) {
		return err
	}
	info, statErr := r.fs.Lstat(ctx, target)
	if statErr != nil {
		return statErr
	}
	if !info.IsDir() {
		return fmt.Errorf("%s exists and is not a directory", target)
	}
	return nil
}

func (r *Replicator) process(ctx context.Context, item WorkItem, t *tally, progress ProgressPort) error {
	defer progress.Advance(1)
	if err := ctx.Err(); err != nil {
		return err
	}

	srcInfo, err := r.fs.Lstat(ctx, item.Source)
	if err != nil {
		r.recordCopyFailure(ctx, t, item, err)
		return nil
	}
	needsCopy := r.detector.NeedsCopy(srcInfo, priorCounterpart(ctx, r.fs, item.Prior, srcInfo))

	switch {
	case srcInfo.IsSymlink():
		return r.replicateSymlink(ctx, item, needsCopy, t)
	case !srcInfo.IsRegular():
		r.recordCopyFailure(ctx, t, item, errors.New("unsupported file type"))
		return nil
	}

	if !needsCopy {
		if !r.link {
			r.logger.DebugContext(ctx, "Unchanged", "path", item.Rel)
			t.add(func(res *ReplicationResult) { res.Skipped++ })
			return nil
		}
		if err := r.checker.EnsureAvailable(ctx, r.destRoot); err != nil {
			return err
		}
		linkErr := r.fs.Link(ctx, item.Prior, item.Target)
		if linkErr == nil {
			r.logger.DebugContext(ctx, "Unchanged, linked", "path", item.Rel)
			t.add(func(res *ReplicationResult) {
				res.Skipped++
				res.Linked++
			})
			return nil
		}
		r.logger.DebugContext(ctx, "Link failed, copying instead", "path", item.Rel, "error", linkErr)
	}

	if err := r.checker.EnsureAvailable(ctx, r.destRoot); err != nil {
		return err
	}
	n, err := r.fs.CopyFile(ctx, item.Source, item.Target)
	if err != nil {
		r.recordCopyFailure(ctx, t, item, err)
		return nil
	}
	r.logger.DebugContext(ctx, "Copied", "path", item.Rel, "bytes", n)
	t.add(func(res *ReplicationResult) {
		res.Copied++
		res.BytesCopied += n
	})
	return nil
}

func (r *Replicator) replicateSymlink(ctx context.Context, item WorkItem, changed bool, t *tally) error {
	linkTarget, err := r.fs.Readlink(ctx, item.Source)
	if err != nil {
		r.recordCopyFailure(ctx, t, item, err)
		return nil
	}
	if err := r.checker.EnsureAvailable(ctx, r.destRoot); err != nil {
		return err
	}
	if err := r.fs.Symlink(ctx, linkTarget, item.Target); err != nil {
		r.recordCopyFailure(ctx, t, item, err)
		return nil
	}
	t.add(func(res *ReplicationResult) {
		if changed {
			res.Copied++
		} else {
			res.Skipped++
		}
	})
	return nil
}

func (r *Replicator) recordCopyFailure(ctx context.Context, t *tally, item WorkItem, err error) {
	r.logger.ErrorContext(ctx, "Copy failed", "path", item.Source, "cause", r.failureCause(err), "error", err)
	t.fail(newBackupError(KindFileCopyFailed, item.Source, err), 1)
}

// failureCause classifies a per-item error for the log.
func (r *Replicator) failureCause(err error) string {
	switch {
	case r.fs.IsPermission(err):
		return "permission"
	case r.fs.IsNotExist(err):
		return "missing"
	default:
		return "other"
	}
}
