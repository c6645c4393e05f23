package usecase

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/caminhar/backupctl/internal/adapter/storage"
	"github.com/caminhar/backupctl/internal/domain"
)

func TestBackup(t *testing.T) {
	Convey("Given a backup usecase", t, func() {
		tempDir, err := os.MkdirTemp("", "backup_usecase_test")
		So(err, ShouldBeNil)
		defer os.RemoveAll(tempDir)

		f := newFixture(tempDir, map[string]int{testPrefix: 10})
		ctx := context.Background()

		Convey("When the dump succeeds", func() {
			artifact, err := f.backup.Run(ctx)
			So(err, ShouldBeNil)

			Convey("It should write a named artifact", func() {
				So(artifact.Filename, ShouldEqual, testPrefix+"_2026-03-01_03-00-00.sql.gz")
				So(artifact.Prefix, ShouldEqual, testPrefix)
				So(artifact.Timestamp, ShouldEqual, "2026-03-01_03-00-00")
				So(artifact.SizeBytes, ShouldBeGreaterThan, 0)

				exists, err := f.storage.Exists(artifact.Filename)
				So(err, ShouldBeNil)
				So(exists, ShouldBeTrue)
			})

			Convey("It should audit the filename as SUCCESS", func() {
				entries, err := f.audit.ReadAll()
				So(err, ShouldBeNil)
				So(len(entries), ShouldEqual, 1)
				So(entries[0].Status, ShouldEqual, domain.StatusSuccess)
				So(entries[0].Message, ShouldEqual, artifact.Filename)
			})
		})

		Convey("When the backup directory is missing", func() {
			_, err := f.backup.Run(ctx)
			So(err, ShouldBeNil)
			_, err = os.Stat(filepath.Join(tempDir, "backups"))
			So(err, ShouldBeNil)
		})

		Convey("When 10 backups already exist", func() {
			f.seed(dailyArtifacts(testPrefix, 10)...)
			_, err := f.backup.Run(ctx)
			So(err, ShouldBeNil)

			Convey("It should prune the oldest one", func() {
				left := remaining(f.storage, testPrefix)
				So(len(left), ShouldEqual, 10)
				So(left[0], ShouldEqual, testPrefix+"_2026-03-01_03-00-00.sql.gz")
				So(left, ShouldNotContain, testPrefix+"_2026-01-01_03-00-00.sql.gz")
			})
		})

		Convey("When the dump fails", func() {
			spy := &spyRetention{}
			f.db.dumpErr = &domain.DumpError{Stderr: "pg_dump: connection refused", Err: errors.New("exit status 1")}
			uc := NewBackup(f.db, f.storage, f.audit, spy, silentLogger{}, f.notices, nil, testPrefix)

			_, err := uc.Run(ctx)

			Convey("It should return the dump error", func() {
				var dumpErr *domain.DumpError
				So(errors.As(err, &dumpErr), ShouldBeTrue)
			})

			Convey("It should not run retention", func() {
				So(spy.calls, ShouldEqual, 0)
			})

			Convey("It should alert operators", func() {
				So(len(f.notices.messages), ShouldEqual, 1)
				So(f.notices.messages[0], ShouldContainSubstring, "Backup failed ("+testPrefix+")")
			})

			Convey("It should audit an ERROR", func() {
				entries, err := f.audit.ReadAll()
				So(err, ShouldBeNil)
				So(len(entries), ShouldEqual, 1)
				So(entries[0].Status, ShouldEqual, domain.StatusError)
				So(entries[0].Message, ShouldContainSubstring, "connection refused")
			})
		})

		Convey("When the backup directory cannot be created", func() {
			blocker := filepath.Join(tempDir, "blocker")
			So(os.WriteFile(blocker, []byte("x"), 0o640), ShouldBeNil)
			blocked := storage.NewLocal(filepath.Join(blocker, "backups"))
			uc := NewBackup(f.db, blocked, f.audit, &spyRetention{}, silentLogger{}, nil, nil, testPrefix)

			_, err := uc.Run(ctx)

			Convey("It should fail with a directory error before dumping", func() {
				var dirErr *domain.DirectoryError
				So(errors.As(err, &dirErr), ShouldBeTrue)
				So(f.db.count("dump"), ShouldEqual, 0)
			})
		})

		Convey("When Execute is used as the scheduled job", func() {
			So(f.backup.Execute(ctx), ShouldBeNil)
			left := remaining(f.storage, testPrefix)
			So(len(left), ShouldEqual, 1)
			So(strings.HasPrefix(left[0], testPrefix+"_"), ShouldBeTrue)
		})
	})
}
