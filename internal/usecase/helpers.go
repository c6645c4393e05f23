package usecase

import (
	"context"

	"github.com/caminhar/backupctl/internal/domain"
)

type Logger interface {
	Infof(template string, args ...interface{})
	Errorf(template string, args ...interface{})
	Warnf(template string, args ...interface{})
}

// Notifier pushes a short human-readable message to operators.
type Notifier interface {
	Notify(ctx context.Context, message string) error
}

// Recorder receives outcome events for metrics.
type Recorder interface {
	BackupSucceeded(prefix string, artifact domain.Artifact)
	BackupFailed(prefix string)
	RestoreSucceeded()
	RestoreFailed(state domain.RestoreState)
	Pruned(prefix string, count int)
}

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, string) error { return nil }

type nopRecorder struct{}

func (nopRecorder) BackupSucceeded(string, domain.Artifact) {}
func (nopRecorder) BackupFailed(string)                     {}
func (nopRecorder) RestoreSucceeded()                       {}
func (nopRecorder) RestoreFailed(domain.RestoreState)       {}
func (nopRecorder) Pruned(string, int)                      {}

func orNopNotifier(n Notifier) Notifier {
	if n == nil {
		return nopNotifier{}
	}
	return n
}

func orNopRecorder(r Recorder) Recorder {
	if r == nil {
		return nopRecorder{}
	}
	return r
}

// audit appends to the audit trail. A failed append is reported on the
// operational log and otherwise ignored: the trail must never turn a
// finished backup or restore into a failure.
func audit(log domain.AuditLog, logger Logger, status domain.Status, message string) {
	if err := log.Append(status, message); err != nil {
		logger.Errorf("Failed to write audit log (%s %s): %v", status, message, err)
	}
}

func notify(ctx context.Context, n Notifier, logger Logger, message string) {
	if err := n.Notify(ctx, message); err != nil {
		logger.Warnf("Failed to send notification: %v", err)
	}
}
