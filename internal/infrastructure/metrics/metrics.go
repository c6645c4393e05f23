package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/caminhar/backupctl/internal/domain"
)

const namespace = "caminhar_backup"

// Collector exposes backup and restore outcomes. It satisfies the usecase
// Recorder interface.
type Collector struct {
	backups         *prometheus.CounterVec
	lastSuccess     *prometheus.GaugeVec
	lastSize        *prometheus.GaugeVec
	restores        *prometheus.CounterVec
	restoreFailures *prometheus.CounterVec
	pruned          *prometheus.CounterVec
}

func NewCollector() *Collector {
	return &Collector{
		backups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "backups_total",
				Help:      "Backup runs by prefix and result.",
			}, []string{"prefix", "result"},
		),
		lastSuccess: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "last_success_timestamp_seconds",
				Help:      "Unix time of the last successful backup per prefix.",
			}, []string{"prefix"},
		),
		lastSize: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "last_size_bytes",
				Help:      "Size of the last successful artifact per prefix.",
			}, []string{"prefix"},
		),
		restores: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "restores_total",
				Help:      "Restore runs by result.",
			}, []string{"result"},
		),
		restoreFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "restore_failures_total",
				Help:      "Failed restores by the state they failed in.",
			}, []string{"state"},
		),
		pruned: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "pruned_total",
				Help:      "Artifacts deleted by retention per prefix.",
			}, []string{"prefix"},
		),
	}
}

// Describe is part of the prometheus.Collector interface.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	c.backups.Describe(ch)
	c.lastSuccess.Describe(ch)
	c.lastSize.Describe(ch)
	c.restores.Describe(ch)
	c.restoreFailures.Describe(ch)
	c.pruned.Describe(ch)
}

// Collect is part of the prometheus.Collector interface.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.backups.Collect(ch)
	c.lastSuccess.Collect(ch)
	c.lastSize.Collect(ch)
	c.restores.Collect(ch)
	c.restoreFailures.Collect(ch)
	c.pruned.Collect(ch)
}

func (c *Collector) BackupSucceeded(prefix string, artifact domain.Artifact) {
	c.backups.WithLabelValues(prefix, "success").Inc()
	c.lastSuccess.WithLabelValues(prefix).SetToCurrentTime()
	c.lastSize.WithLabelValues(prefix).Set(float64(artifact.SizeBytes))
}

func (c *Collector) BackupFailed(prefix string) {
	c.backups.WithLabelValues(prefix, "error").Inc()
}

func (c *Collector) RestoreSucceeded() {
	c.restores.WithLabelValues("success").Inc()
}

func (c *Collector) RestoreFailed(state domain.RestoreState) {
	c.restores.WithLabelValues("error").Inc()
	c.restoreFailures.WithLabelValues(state.String()).Inc()
}

func (c *Collector) Pruned(prefix string, count int) {
	c.pruned.WithLabelValues(prefix).Add(float64(count))
}
