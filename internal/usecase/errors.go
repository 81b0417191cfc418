package usecase

import (
	"errors"
	"fmt"
)

var (
	// ErrUsage indicates user input/usage errors.
	ErrUsage = errors.New("usage error")
	// ErrCritical indicates critical failures that should exit with error.
	ErrCritical = errors.New("critical error")
	// ErrInterrupted indicates a canceled or interrupted operation.
	ErrInterrupted = errors.New("interrupted")
	// ErrUnavailable indicates the destination stayed unreachable and the
	// operator chose to abort.
	ErrUnavailable = errors.New("destination unavailable")
)

// ErrorKind classifies failures of the backup engine.
type ErrorKind int

const (
	KindUnavailable ErrorKind = iota + 1
	KindSnapshotCreateFailed
	KindDirectoryCreateFailed
	KindFileCopyFailed
	KindRetentionListFailed
	KindRetentionRemoveFailed
)

func (k ErrorKind) String() string {
	switch k {
	case KindUnavailable:
		return "unavailable"
	case KindSnapshotCreateFailed:
		return "snapshot create failed"
	case KindDirectoryCreateFailed:
		return "directory create failed"
	case KindFileCopyFailed:
		return "file copy failed"
	case KindRetentionListFailed:
		return "retention list failed"
	case KindRetentionRemoveFailed:
		return "retention remove failed"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Fatal reports whether an error of this kind ends the whole run.
func (k ErrorKind) Fatal() bool {
	return k == KindUnavailable || k == KindSnapshotCreateFailed
}

// BackupError is a classified failure bound to a path.
type BackupError struct {
	Kind ErrorKind
	Path string
	Err  error
}

func (e *BackupError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Path, e.Err)
}

func (e *BackupError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is match ErrUnavailable for unavailability failures.
func (e *BackupError) Is(target error) bool {
	return target == ErrUnavailable && e.Kind == KindUnavailable
}

func newBackupError(kind ErrorKind, path string, err error) *BackupError {
	return &BackupError{Kind: kind, Path: path, Err: err}
}

// KindOf returns the kind of the first BackupError in err's chain.
func KindOf(err error) (ErrorKind, bool) {
	var be *BackupError
	if errors.As(err, &be) {
		return be.Kind, true
	}
	return 0, false
}
