package usecase

import (
	"context"
	"fmt"
	"slices"

	"go.uber.org/multierr"

	"github.com/caminhar/backupctl/internal/domain"
)

// Retention keeps the newest N artifacts of each naming prefix. Prefixes
// without a positive limit are never pruned.
type Retention struct {
	storage  domain.Storage
	auditLog domain.AuditLog
	logger   Logger
	policies map[string]int
	recorder Recorder
}

func NewRetention(
	storage domain.Storage,
	auditLog domain.AuditLog,
	logger Logger,
	policies map[string]int,
	recorder Recorder,
) *Retention {
	return &Retention{
		storage:  storage,
		auditLog: auditLog,
		logger:   logger,
		policies: policies,
		recorder: orNopRecorder(recorder),
	}
}

// Enforce deletes every artifact of prefix beyond the newest maxBackups.
// Filenames in keep are never deleted, even when expired. Deletion is
// best-effort: each failure is audited and the rest are still attempted.
// The returned error aggregates *domain.RetentionError values.
func (uc *Retention) Enforce(ctx context.Context, prefix string, keep ...string) error {
	maxBackups := uc.policies[prefix]
	if maxBackups <= 0 {
		return nil
	}

	artifacts, err := uc.storage.List(prefix, domain.ArtifactExt)
	if err != nil {
		audit(uc.auditLog, uc.logger, domain.StatusError, fmt.Sprintf("Retention failed for %s: %v", prefix, err))
		return fmt.Errorf("list backups: %w", err)
	}

	if len(artifacts) <= maxBackups {
		return nil
	}

	domain.SortNewestFirst(artifacts)
	expired := artifacts[maxBackups:]

	uc.logger.Infof("[%s] %d backup(s) found, keeping %d", prefix, len(artifacts), maxBackups)

	var errs error
	deleted := 0
	for _, artifact := range expired {
		if slices.Contains(keep, artifact.Filename) {
			uc.logger.Infof("[%s] Keeping %s: in use by a restore", prefix, artifact.Filename)
			continue
		}
		if err := uc.storage.Delete(artifact.Filename); err != nil {
			retentionErr := &domain.RetentionError{Filename: artifact.Filename, Err: err}
			uc.logger.Errorf("[%s] %v", prefix, retentionErr)
			audit(uc.auditLog, uc.logger, domain.StatusError, retentionErr.Error())
			errs = multierr.Append(errs, retentionErr)
			continue
		}

		deleted++
		uc.logger.Infof("[%s] Deleted old backup: %s", prefix, artifact.Filename)
		audit(uc.auditLog, uc.logger, domain.StatusInfo, "Deleted old backup: "+artifact.Filename)
	}

	uc.recorder.Pruned(prefix, deleted)
	uc.logger.Infof("[%s] Deleted %d old backup(s)", prefix, deleted)
	return errs
}
