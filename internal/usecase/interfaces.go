package usecase

import (
	"context"
	"time"
)

// Dependencies represents all external dependencies needed by use cases
type Dependencies struct {
	FileSystem   FileSystemPort
	Probe        ProbePort
	Operator     OperatorPort
	Progress     ProgressPort
	Clock        ClockPort
	Config       ConfigPort
	Notification NotificationPort
	Journal      JournalPort
	Scheduler    SchedulerPort
}

// Ports define the interfaces that use cases need (hexagonal architecture)

// FileSystemPort defines filesystem operations needed by use cases
type FileSystemPort interface {
	// Core file operations
	CreateDir(ctx context.Context, path string, perm int) error
	RemoveAll(ctx context.Context, path string) error
	Stat(ctx context.Context, path string) (FileInfo, error)
	Lstat(ctx context.Context, path string) (FileInfo, error)

	// Directory operations
	Walk(ctx context.Context, root string, walkFn WalkFunc) error
	ReadDir(ctx context.Context, path string) ([]DirEntry, error)
	CreateDirExclusive(ctx context.Context, path string, perm int) error

	// File operations

	// CopyFile copies bytes, mode and modification time of src to dst and
	// returns the number of bytes written.
	CopyFile(ctx context.Context, src, dst string) (int64, error)
	Link(ctx context.Context, oldname, newname string) error
	Move(ctx context.Context, src, dst string) error
	Readlink(ctx context.Context, path string) (string, error)
	Symlink(ctx context.Context, target, path string) error

	// Path operations
	Abs(ctx context.Context, path string) (string, error)
	EvalSymlinks(ctx context.Context, path string) (string, error)
	Join(elements ...string) string
	Base(path string) string
	Dir(path string) string
	Rel(basepath, targpath string) (string, error)
	Clean(path string) string

	// Error classification
	IsNotExist(err error) bool
	IsExist(err error) bool
	IsPermission(err error) bool
}

// ProbePort checks whether the backup destination can currently be used.
type ProbePort interface {
	// Probe returns nil when root is reachable and writable.
	Probe(ctx context.Context, root string, opts ProbeOptions) error
}

// OperatorPort asks a human (or a policy) what to do once retries are exhausted.
type OperatorPort interface {
	Decide(ctx context.Context, message string) (Decision, error)
}

// ProgressPort receives replication progress. Implementations must be safe
// for concurrent use.
type ProgressPort interface {
	Start(total int)
	Advance(n int)
	Finish()
}

// ClockPort provides time for snapshot naming and retry delays.
type ClockPort interface {
	Now() time.Time
	// Sleep waits for d or until ctx is done.
	Sleep(ctx context.Context, d time.Duration) error
}

// ConfigPort defines configuration operations needed by use cases
type ConfigPort interface {
	Load(ctx context.Context, path string) (ConfigFile, error)
	Save(ctx context.Context, path string, cfg ConfigFile) error
}

// NotificationPort defines desktop notification operations needed by use cases
type NotificationPort interface {
	// Send sends a desktop notification. sound can be empty.
	Send(ctx context.Context, title, message, sound string) error
}

// JournalPort persists a history of backup runs.
type JournalPort interface {
	Record(ctx context.Context, rec RunRecord) error
	Recent(ctx context.Context, limit int) ([]RunRecord, error)
}

// SchedulerPort runs job on a cron schedule until ctx is canceled.
type SchedulerPort interface {
	Run(ctx context.Context, spec string, job func(context.Context)) error
}
