package usecase

import "time"

// Config contains all application configuration for a backup run.
// It is copied by value into the orchestrator and never mutated afterwards.
type Config struct {
	Sources        []string
	Destination    string
	Keep           int
	Retries        int
	RetryDelay     time.Duration
	LinkUnchanged  bool
	Workers        int
	MtimeTolerance time.Duration
	RequireMount   bool
	Verbose        bool
	DryRun         bool
	NonInteractive bool
	Notify         bool
	NotifySound    string
	JournalPath    string
	Schedule       string
}

// FileInfo represents file information.
type FileInfo interface {
	Name() string
	Size() int64
	Mode() int
	ModTime() time.Time
	IsDir() bool
	IsSymlink() bool
	IsRegular() bool
	Sys() interface{}
}

// WalkFunc is called for each file/directory during Walk.
type WalkFunc func(path string, info FileInfo, err error) error

// DirEntry represents a directory entry.
type DirEntry interface {
	Name() string
	IsDir() bool
}

// ProbeOptions tunes destination probing.
type ProbeOptions struct {
	// RequireMount rejects destinations that resolve to the root filesystem
	// outside the user's home directory.
	RequireMount bool
	// AllowMissingRoot accepts a root that does not exist yet when its
	// parent is a writable directory. Only valid before the snapshot exists.
	AllowMissingRoot bool
}

// Decision is the operator answer after availability retries run out.
type Decision int

const (
	DecisionAbort Decision = iota
	DecisionRetry
)

func (d Decision) String() string {
	if d == DecisionRetry {
		return "retry"
	}
	return "abort"
}

// SourceTree is one configured source directory and the namespace it is
// mirrored into inside every snapshot.
type SourceTree struct {
	Path      string
	Namespace string
}

// Snapshot is a timestamped backup directory under the destination root.
type Snapshot struct {
	Name      string
	Path      string
	CreatedAt time.Time
}

// ReplicationResult contains replication statistics.
type ReplicationResult struct {
	Total       int
	Copied      int
	Linked      int
	Skipped     int
	Failed      int
	BytesCopied int64
	Errors      []*BackupError
}

// RetentionResult describes what retention removed and kept.
type RetentionResult struct {
	Removed  []Snapshot
	Retained []Snapshot
	Failures []*BackupError
}

// RunState is a backup orchestrator state.
type RunState int

const (
	StateIdle RunState = iota
	StateCheckingAvailability
	StateCreatingSnapshot
	StateReplicating
	StateEnforcingRetention
	StateDone
	StateFailed
)

func (s RunState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateCheckingAvailability:
		return "checking-availability"
	case StateCreatingSnapshot:
		return "creating-snapshot"
	case StateReplicating:
		return "replicating"
	case StateEnforcingRetention:
		return "enforcing-retention"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// RunReport is the outcome of one backup run.
type RunReport struct {
	Snapshot    *Snapshot
	Prior       *Snapshot
	Replication ReplicationResult
	Retention   RetentionResult
	States      []RunState
	Final       RunState
	StartedAt   time.Time
	FinishedAt  time.Time
	DryRun      bool
	Err         error
}

// RunRecord is a journal entry for one run.
type RunRecord struct {
	ID          int64
	StartedAt   time.Time
	FinishedAt  time.Time
	State       string
	Snapshot    string
	Copied      int
	Linked      int
	Skipped     int
	Failed      int
	BytesCopied int64
	Removed     int
	Error       string
}
