package usecase

import (
	"context"
	"time"

	"github.com/caminhar/backupctl/internal/domain"
)

// Locker serializes backups and restores across processes. Acquire returns
// domain.ErrOperationInProgress when another holder keeps the lock.
type Locker interface {
	Acquire(ctx context.Context) (release func(), err error)
}

// Coordinator runs the backup and restore entry points under one exclusive
// lock, so a scheduled backup never races a manual restore.
type Coordinator struct {
	backup  *Backup
	restore *Restore
	locker  Locker
	logger  Logger
	timeout time.Duration
}

func NewCoordinator(backup *Backup, restore *Restore, locker Locker, logger Logger, timeout time.Duration) *Coordinator {
	return &Coordinator{
		backup:  backup,
		restore: restore,
		locker:  locker,
		logger:  logger,
		timeout: timeout,
	}
}

// Backup creates a regular backup. It is the job the scheduler runs.
func (c *Coordinator) Backup(ctx context.Context) (*domain.Artifact, error) {
	release, err := c.locker.Acquire(ctx)
	if err != nil {
		c.logger.Warnf("Backup skipped: %v", err)
		return nil, err
	}
	defer release()

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	return c.backup.Run(ctx)
}

// Execute satisfies the scheduler job signature.
func (c *Coordinator) Execute(ctx context.Context) error {
	_, err := c.Backup(ctx)
	return err
}

func (c *Coordinator) Restore(ctx context.Context, filename string) (*domain.RestoreResult, error) {
	release, err := c.locker.Acquire(ctx)
	if err != nil {
		c.logger.Warnf("Restore of %s refused: %v", filename, err)
		return &domain.RestoreResult{Filename: filename, State: domain.RestoreIdle}, err
	}
	defer release()

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	return c.restore.Execute(ctx, filename)
}

func (c *Coordinator) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}
