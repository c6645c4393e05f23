package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/caminhar/backupctl/internal/domain"
)

func TestCollector(t *testing.T) {
	Convey("Given a registered collector", t, func() {
		c := NewCollector()
		reg := prometheus.NewPedanticRegistry()
		So(reg.Register(c), ShouldBeNil)

		Convey("When backups succeed and fail", func() {
			c.BackupSucceeded("caminhar-pg-backup", domain.Artifact{SizeBytes: 2048})
			c.BackupSucceeded("caminhar-pg-backup", domain.Artifact{SizeBytes: 4096})
			c.BackupFailed("caminhar-pg-backup")

			Convey("It should count by result", func() {
				So(testutil.ToFloat64(c.backups.WithLabelValues("caminhar-pg-backup", "success")), ShouldEqual, 2.0)
				So(testutil.ToFloat64(c.backups.WithLabelValues("caminhar-pg-backup", "error")), ShouldEqual, 1.0)
			})

			Convey("It should keep the last size and a timestamp", func() {
				So(testutil.ToFloat64(c.lastSize.WithLabelValues("caminhar-pg-backup")), ShouldEqual, 4096.0)
				So(testutil.ToFloat64(c.lastSuccess.WithLabelValues("caminhar-pg-backup")), ShouldBeGreaterThan, 0)
			})
		})

		Convey("When a restore fails while snapshotting", func() {
			c.RestoreFailed(domain.RestoreSnapshotting)
			c.RestoreSucceeded()

			So(testutil.ToFloat64(c.restores.WithLabelValues("error")), ShouldEqual, 1.0)
			So(testutil.ToFloat64(c.restores.WithLabelValues("success")), ShouldEqual, 1.0)
			So(testutil.ToFloat64(c.restoreFailures.WithLabelValues("snapshotting-current-state")), ShouldEqual, 1.0)
		})

		Convey("When retention prunes", func() {
			c.Pruned("caminhar-pg-backup", 2)
			c.Pruned("caminhar-pg-backup", 0)

			expected := `
# HELP caminhar_backup_pruned_total Artifacts deleted by retention per prefix.
# TYPE caminhar_backup_pruned_total counter
caminhar_backup_pruned_total{prefix="caminhar-pg-backup"} 2
`
			err := testutil.GatherAndCompare(reg, strings.NewReader(expected), "caminhar_backup_pruned_total")
			So(err, ShouldBeNil)
		})
	})
}
