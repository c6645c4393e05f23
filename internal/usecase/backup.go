package usecase

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/caminhar/backupctl/internal/domain"
)

type RetentionEnforcer interface {
	Enforce(ctx context.Context, prefix string, keep ...string) error
}

type Backup struct {
	db        domain.Database
	storage   domain.Storage
	auditLog  domain.AuditLog
	retention RetentionEnforcer
	logger    Logger
	notifier  Notifier
	recorder  Recorder
	prefix    string
	now       func() time.Time
}

func NewBackup(
	db domain.Database,
	storage domain.Storage,
	auditLog domain.AuditLog,
	retention RetentionEnforcer,
	logger Logger,
	notifier Notifier,
	recorder Recorder,
	prefix string,
) *Backup {
	return &Backup{
		db:        db,
		storage:   storage,
		auditLog:  auditLog,
		retention: retention,
		logger:    logger,
		notifier:  orNopNotifier(notifier),
		recorder:  orNopRecorder(recorder),
		prefix:    prefix,
		now:       time.Now,
	}
}

// Execute creates a regular backup. It is what both the scheduler and the
// manual "backup now" entry point run.
func (uc *Backup) Execute(ctx context.Context) error {
	_, err := uc.Run(ctx)
	return err
}

// Run creates a regular backup under the standard prefix.
func (uc *Backup) Run(ctx context.Context) (*domain.Artifact, error) {
	return uc.Create(ctx, uc.prefix)
}

// Create dumps the database into a new artifact named after prefix, audits
// it and then applies the retention policy of prefix. Retention problems
// are logged but never fail the backup; a failed dump skips retention.
func (uc *Backup) Create(ctx context.Context, prefix string) (*domain.Artifact, error) {
	return uc.create(ctx, prefix, true)
}

// Snapshot is Create for the safety copy taken before a restore. The
// restore target is never pruned by the retention run that follows, and
// failures are left to the restore to report.
func (uc *Backup) Snapshot(ctx context.Context, prefix, restoreTarget string) (*domain.Artifact, error) {
	return uc.create(ctx, prefix, false, restoreTarget)
}

func (uc *Backup) create(ctx context.Context, prefix string, alert bool, keep ...string) (*domain.Artifact, error) {
	start := time.Now()
	uc.logger.Infof("[%s] Starting backup...", prefix)

	if err := uc.storage.Ensure(); err != nil {
		return nil, uc.fail(ctx, prefix, alert, err)
	}

	filename := domain.MakeFilename(prefix, uc.now())
	path := uc.storage.Path(filename)

	uc.logger.Infof("[%s] Dumping %s database to: %s", prefix, uc.db.GetType(), path)
	if err := uc.db.Dump(ctx, path); err != nil {
		return nil, uc.fail(ctx, prefix, alert, err)
	}

	timestamp, _ := domain.ParseTimestamp(filename)
	artifact := domain.Artifact{
		Filename:   filename,
		Prefix:     prefix,
		Timestamp:  timestamp,
		Compressed: true,
	}
	if info, err := os.Stat(path); err == nil {
		artifact.SizeBytes = info.Size()
	} else {
		uc.logger.Warnf("[%s] Could not stat %s: %v", prefix, filename, err)
	}

	audit(uc.auditLog, uc.logger, domain.StatusSuccess, filename)
	uc.recorder.BackupSucceeded(prefix, artifact)
	uc.logger.Infof("[%s] Backup completed in %s: %s (%s)",
		prefix, time.Since(start).Round(time.Millisecond), filename, humanize.Bytes(uint64(artifact.SizeBytes)))

	if err := uc.retention.Enforce(ctx, prefix, keep...); err != nil {
		uc.logger.Errorf("[%s] Retention finished with errors: %v", prefix, err)
	}

	return &artifact, nil
}

func (uc *Backup) fail(ctx context.Context, prefix string, alert bool, err error) error {
	uc.logger.Errorf("[%s] Backup failed: %v", prefix, err)
	audit(uc.auditLog, uc.logger, domain.StatusError, fmt.Sprintf("Backup failed: %v", err))
	uc.recorder.BackupFailed(prefix)
	if alert {
		notify(ctx, uc.notifier, uc.logger, fmt.Sprintf("❌ Backup failed (%s)\n\n%v", prefix, err))
	}
	return err
}
