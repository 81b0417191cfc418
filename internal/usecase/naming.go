package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
)

const (
	snapshotPrefix     = "backup_"
	snapshotTimeLayout = "2006_01_02__150405"
)

// NewSnapshotName derives the snapshot directory name for now (local time,
// second resolution). Names sort lexicographically in creation order.
func NewSnapshotName(now time.Time) string {
	return snapshotPrefix + now.Local().Format(snapshotTimeLayout)
}

// ParseSnapshotName returns the creation time encoded in name.
func ParseSnapshotName(name string) (time.Time, error) {
	if !strings.HasPrefix(name, snapshotPrefix) {
		return time.Time{}, fmt.Errorf("not a snapshot name: %q", name)
	}
	t, err := time.ParseInLocation(snapshotTimeLayout, name[len(snapshotPrefix):], time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("not a snapshot name: %q: %w", name, err)
	}
	return t, nil
}

// IsSnapshotName reports whether name matches the snapshot naming scheme.
func IsSnapshotName(name string) bool {
	_, err := ParseSnapshotName(name)
	return err == nil
}

// listSnapshots returns snapshot directories under root, most recent first.
// Entries that are not directories or do not match the naming scheme are ignored.
func listSnapshots(ctx context.Context, fs FileSystemPort, root string) ([]Snapshot, error) {
	entries, err := fs.ReadDir(ctx, root)
	if err != nil {
		return nil, err
	}
	snapshots := make([]Snapshot, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		created, err := ParseSnapshotName(entry.Name())
		if err != nil {
			continue
		}
		snapshots = append(snapshots, Snapshot{
			Name:      entry.Name(),
			Path:      fs.Join(root, entry.Name()),
			CreatedAt: created,
		})
	}
	sort.Slice(snapshots, func(i, j int) bool {
		return snapshots[i].Name > snapshots[j].Name
	})
	return snapshots, nil
}

// latestSnapshot returns the newest snapshot under root, or nil when there is
// none or root does not exist yet.
func latestSnapshot(ctx context.Context, fs FileSystemPort, root string) (*Snapshot, error) {
	snapshots, err := listSnapshots(ctx, fs, root)
	if err != nil {
		if fs.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	if len(snapshots) == 0 {
		return nil, nil
	}
	latest := snapshots[0]
	return &latest, nil
}
