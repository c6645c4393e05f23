package usecase

import (
	"context"
	"fmt"

	"github.com/caminhar/backupctl/internal/domain"
)

// Snapshotter takes the safety snapshot before a restore. restoreTarget
// must survive any retention the snapshot triggers.
type Snapshotter interface {
	Snapshot(ctx context.Context, prefix, restoreTarget string) (*domain.Artifact, error)
}

// Restore loads an artifact into the live database. The load never runs
// unless a safety snapshot of the current state was written first. A failed
// load is not rolled back: the snapshot is the recovery path and its name is
// returned to the caller.
type Restore struct {
	db           domain.Database
	storage      domain.Storage
	auditLog     domain.AuditLog
	snapshots    Snapshotter
	logger       Logger
	notifier     Notifier
	recorder     Recorder
	safetyPrefix string
	safetyLimit  int
}

func NewRestore(
	db domain.Database,
	storage domain.Storage,
	auditLog domain.AuditLog,
	snapshots Snapshotter,
	logger Logger,
	notifier Notifier,
	recorder Recorder,
	safetyPrefix string,
	safetyLimit int,
) *Restore {
	return &Restore{
		db:           db,
		storage:      storage,
		auditLog:     auditLog,
		snapshots:    snapshots,
		logger:       logger,
		notifier:     orNopNotifier(notifier),
		recorder:     orNopRecorder(recorder),
		safetyPrefix: safetyPrefix,
		safetyLimit:  safetyLimit,
	}
}

func (uc *Restore) Execute(ctx context.Context, filename string) (*domain.RestoreResult, error) {
	result := &domain.RestoreResult{Filename: filename, State: domain.RestoreIdle}

	uc.transition(result, domain.RestoreVerifyingArtifact)
	exists, err := uc.storage.Exists(filename)
	if err != nil {
		return result, uc.abort(ctx, result, fmt.Errorf("verify backup %s: %w", filename, err))
	}
	if !exists {
		return result, uc.abort(ctx, result, &domain.ArtifactNotFoundError{Filename: filename})
	}

	audit(uc.auditLog, uc.logger, domain.StatusInfo, "Starting restore from "+filename)

	uc.transition(result, domain.RestoreSnapshotting)
	snapshot, err := uc.snapshots.Snapshot(ctx, uc.safetyPrefix, filename)
	if err != nil {
		return result, uc.abort(ctx, result, &domain.SnapshotFailedError{Err: err})
	}
	result.Snapshot = snapshot.Filename
	uc.logger.Infof("Safety snapshot written: %s", snapshot.Filename)
	uc.warnUnboundedSnapshots()

	uc.transition(result, domain.RestoreRestoring)
	if err := uc.db.Load(ctx, uc.storage.Path(filename)); err != nil {
		return result, uc.abort(ctx, result, &domain.RestoreFailedAfterSnapshotError{Snapshot: snapshot.Filename, Err: err})
	}

	uc.transition(result, domain.RestoreDone)
	message := fmt.Sprintf("Restored %s (safety snapshot: %s)", filename, snapshot.Filename)
	audit(uc.auditLog, uc.logger, domain.StatusRestoreSuccess, message)
	uc.recorder.RestoreSucceeded()
	notify(ctx, uc.notifier, uc.logger, "✅ "+message)

	return result, nil
}

func (uc *Restore) transition(result *domain.RestoreResult, next domain.RestoreState) {
	uc.logger.Infof("[restore %s] %s -> %s", result.Filename, result.State, next)
	result.State = next
}

func (uc *Restore) abort(ctx context.Context, result *domain.RestoreResult, err error) error {
	failedIn := result.State
	uc.transition(result, domain.RestoreAborted)

	uc.logger.Errorf("[restore %s] Aborted while %s: %v", result.Filename, failedIn, err)
	audit(uc.auditLog, uc.logger, domain.StatusRestoreError, err.Error())
	uc.recorder.RestoreFailed(failedIn)

	message := fmt.Sprintf("❌ Restore of %s failed\n\n%v", result.Filename, err)
	if result.Snapshot != "" {
		message += "\n\nSafety snapshot for manual recovery: " + result.Snapshot
	}
	notify(ctx, uc.notifier, uc.logger, message)

	return err
}

// warnUnboundedSnapshots reminds operators that safety snapshots pile up
// when their prefix has no retention limit.
func (uc *Restore) warnUnboundedSnapshots() {
	if uc.safetyLimit > 0 {
		return
	}
	snapshots, err := uc.storage.List(uc.safetyPrefix, domain.ArtifactExt)
	if err != nil {
		return
	}
	uc.logger.Warnf("%d %s artifact(s) on disk; safety snapshots are never pruned automatically (set backup.max_safety_snapshots to bound them)",
		len(snapshots), uc.safetyPrefix)
}
