package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/caminhar/backupctl/internal/adapter/auditlog"
	"github.com/caminhar/backupctl/internal/adapter/compressor"
	"github.com/caminhar/backupctl/internal/adapter/database"
	"github.com/caminhar/backupctl/internal/adapter/notifier"
	"github.com/caminhar/backupctl/internal/adapter/storage"
	"github.com/caminhar/backupctl/internal/config"
	"github.com/caminhar/backupctl/internal/domain"
	"github.com/caminhar/backupctl/internal/infrastructure/lock"
	"github.com/caminhar/backupctl/internal/infrastructure/logger"
	"github.com/caminhar/backupctl/internal/infrastructure/metrics"
	"github.com/caminhar/backupctl/internal/infrastructure/scheduler"
	"github.com/caminhar/backupctl/internal/usecase"
)

const pingTimeout = 10 * time.Second

type App struct {
	config      *config.Config
	logger      *logger.Logger
	db          domain.Database
	storage     *storage.LocalStorage
	auditLog    *auditlog.FileLog
	catalog     *usecase.Catalog
	coordinator *usecase.Coordinator
	scheduler   *scheduler.Scheduler
	registry    *prometheus.Registry
	server      *http.Server
}

func New(cfg *config.Config, opts ...logger.Option) (*App, error) {
	log, err := logger.New(cfg.App.LogLevel, cfg.App.LogFile, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	db, err := newDatabase(&cfg.Database, cfg.Backup.CompressionLevel)
	if err != nil {
		return nil, err
	}

	localStorage := storage.NewLocal(cfg.Backup.Dir)
	auditLog := auditlog.NewFile(cfg.Backup.AuditLog, cfg.Backup.AuditMaxEntries)

	collector := metrics.NewCollector()
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collector,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	var notify usecase.Notifier
	if cfg.Notify.Telegram.Enabled {
		telegram, err := notifier.NewTelegram(cfg.Notify.Telegram, cfg.App.Name)
		if err != nil {
			log.Warnf("Telegram notifications disabled: %v", err)
		} else {
			notify = telegram
			log.Infof("✓ Telegram notifications enabled")
		}
	}

	retention := usecase.NewRetention(localStorage, auditLog, log, cfg.RetentionPolicies(), collector)
	backupUC := usecase.NewBackup(db, localStorage, auditLog, retention, log, notify, collector, cfg.Backup.Prefix)
	restoreUC := usecase.NewRestore(
		db,
		localStorage,
		auditLog,
		backupUC,
		log,
		notify,
		collector,
		cfg.Backup.SafetyPrefix,
		cfg.Backup.MaxSafetySnapshots,
	)

	locker := lock.NewMachine(cfg.Backup.LockName, cfg.Backup.LockTimeout)

	return &App{
		config:      cfg,
		logger:      log,
		db:          db,
		storage:     localStorage,
		auditLog:    auditLog,
		catalog:     usecase.NewCatalog(localStorage),
		coordinator: usecase.NewCoordinator(backupUC, restoreUC, locker, log, cfg.Backup.Timeout),
		scheduler:   scheduler.New(log),
		registry:    registry,
	}, nil
}

func newDatabase(cfg *config.DatabaseConfig, level int) (domain.Database, error) {
	comp := compressor.NewGzipLevel(level)

	switch cfg.Engine {
	case config.EnginePostgreSQL:
		return database.NewPostgreSQL(cfg, comp), nil
	case config.EngineMySQL:
		return database.NewMySQL(cfg, comp), nil
	default:
		return nil, fmt.Errorf("unsupported database engine: %s", cfg.Engine)
	}
}

func (a *App) Logger() *logger.Logger {
	return a.logger
}

// Backup creates a regular backup now.
func (a *App) Backup(ctx context.Context) (*domain.Artifact, error) {
	return a.coordinator.Backup(ctx)
}

// Restore replaces the live database with filename after taking a safety
// snapshot.
func (a *App) Restore(ctx context.Context, filename string) (*domain.RestoreResult, error) {
	return a.coordinator.Restore(ctx, filename)
}

// List returns every artifact in the backup directory, newest first.
func (a *App) List(ctx context.Context) ([]domain.Artifact, error) {
	return a.catalog.List(ctx)
}

// History returns the audit trail, oldest first.
func (a *App) History() ([]domain.LogEntry, error) {
	return a.auditLog.ReadAll()
}

// Run starts the daemon: it checks connectivity, schedules the daily backup
// and serves metrics until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	a.logger.Infof("Starting %s (%s)", a.config.App.Name, a.db.GetType())

	if err := a.storage.Ensure(); err != nil {
		return err
	}
	a.logger.Infof("Backups are kept in %s", a.storage.Dir())

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	err := a.db.Ping(pingCtx)
	cancel()
	if err != nil {
		// The schedule still runs; each failed backup is audited.
		a.logger.Errorf("Database is not reachable: %v", err)
	} else {
		a.logger.Infof("✓ Connected to %s database", a.db.GetType())
	}

	if a.config.Schedule.Enabled {
		hour, minute := a.config.Schedule.Hour, a.config.Schedule.Minute
		if err := a.scheduler.AddDaily("backup", hour, minute, a.scheduledBackup); err != nil {
			return err
		}
		a.scheduler.Start()
		a.logger.Infof("Daily backup at %02d:%02d, next run %s", hour, minute,
			scheduler.NextDaily(time.Now(), hour, minute).Format("2006-01-02 15:04"))
	} else {
		a.logger.Warnf("Scheduled backups are disabled")
	}

	if a.config.Metrics.Listen != "" {
		a.startMetrics()
	}

	<-ctx.Done()
	return nil
}

func (a *App) scheduledBackup(ctx context.Context) error {
	a.logger.Infof("=== Triggered scheduled backup ===")
	artifact, err := a.coordinator.Backup(ctx)
	if err == nil {
		a.logger.Infof("Scheduled backup written: %s (%s)", artifact.Filename, humanize.Bytes(uint64(artifact.SizeBytes)))
	}
	if next := a.scheduler.Next(); !next.IsZero() {
		a.logger.Infof("Next scheduled backup at %s", next.Format("2006-01-02 15:04"))
	}
	return err
}

func (a *App) startMetrics() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}))

	a.server = &http.Server{
		Addr:              a.config.Metrics.Listen,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		a.logger.Infof("Serving metrics on %s/metrics", a.config.Metrics.Listen)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Errorf("Metrics server stopped: %v", err)
		}
	}()
}

func (a *App) Shutdown() {
	a.logger.Infof("Shutting down...")
	a.scheduler.Stop()

	if a.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.server.Shutdown(ctx); err != nil {
			a.logger.Warnf("Metrics server shutdown: %v", err)
		}
	}

	a.logger.Close()
}

// Close releases resources for the one-shot commands.
func (a *App) Close() {
	a.logger.Close()
}
