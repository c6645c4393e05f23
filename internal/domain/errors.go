package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrOperationInProgress is returned when another backup or restore holds
// the operation lock.
var ErrOperationInProgress = errors.New("another backup or restore is already running")

// DirectoryError means the backup directory could not be created or read.
type DirectoryError struct {
	Path string
	Err  error
}

func (e *DirectoryError) Error() string {
	return fmt.Sprintf("backup directory %s: %v", e.Path, e.Err)
}

func (e *DirectoryError) Unwrap() error { return e.Err }

// DumpError means the external dump process or the write of its output failed.
type DumpError struct {
	Stderr string
	Err    error
}

func (e *DumpError) Error() string {
	return processMessage("dump failed", e.Err, e.Stderr)
}

func (e *DumpError) Unwrap() error { return e.Err }

// LoadError means the external load process or the read of the artifact failed.
type LoadError struct {
	Stderr string
	Err    error
}

func (e *LoadError) Error() string {
	return processMessage("load failed", e.Err, e.Stderr)
}

func (e *LoadError) Unwrap() error { return e.Err }

type ArtifactNotFoundError struct {
	Filename string
}

func (e *ArtifactNotFoundError) Error() string {
	return fmt.Sprintf("backup not found: %s", e.Filename)
}

// SnapshotFailedError means the safety snapshot failed and the live
// database was left untouched.
type SnapshotFailedError struct {
	Err error
}

func (e *SnapshotFailedError) Error() string {
	return fmt.Sprintf("safety snapshot failed, restore aborted: %v", e.Err)
}

func (e *SnapshotFailedError) Unwrap() error { return e.Err }

// RestoreFailedAfterSnapshotError means the load failed after a safety
// snapshot was written. The database may be in an indeterminate state;
// Snapshot names the artifact to recover from manually.
type RestoreFailedAfterSnapshotError struct {
	Snapshot string
	Err      error
}

func (e *RestoreFailedAfterSnapshotError) Error() string {
	return fmt.Sprintf("restore failed after safety snapshot %s: %v", e.Snapshot, e.Err)
}

func (e *RestoreFailedAfterSnapshotError) Unwrap() error { return e.Err }

// RetentionError is a failed deletion of an old artifact. It is never fatal
// to the backup that triggered retention.
type RetentionError struct {
	Filename string
	Err      error
}

func (e *RetentionError) Error() string {
	return fmt.Sprintf("delete old backup %s: %v", e.Filename, e.Err)
}

func (e *RetentionError) Unwrap() error { return e.Err }

func processMessage(prefix string, err error, stderr string) string {
	msg := prefix
	if err != nil {
		msg += ": " + err.Error()
	}
	if s := strings.TrimSpace(stderr); s != "" {
		msg += ", output: " + s
	}
	return msg
}
