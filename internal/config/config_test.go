package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestLoad(t *testing.T) {
	Convey("Given the config loader", t, func() {
		tempDir, err := os.MkdirTemp("", "config_test")
		So(err, ShouldBeNil)
		defer os.RemoveAll(tempDir)

		So(os.Setenv(ConnectionEnvVar, "postgres://blog@localhost:5432/caminhar"), ShouldBeNil)
		defer os.Unsetenv(ConnectionEnvVar)

		Convey("When no config file exists", func() {
			cfg, err := Load(filepath.Join(tempDir, "missing.yaml"))

			Convey("It should fall back to defaults and the environment", func() {
				So(err, ShouldBeNil)
				So(cfg.Database.URL, ShouldEqual, "postgres://blog@localhost:5432/caminhar")
				So(cfg.Database.Engine, ShouldEqual, EnginePostgreSQL)
				So(cfg.Backup.Dir, ShouldEqual, "backups")
				So(cfg.Backup.Prefix, ShouldEqual, "caminhar-pg-backup")
				So(cfg.Backup.SafetyPrefix, ShouldEqual, "pre-restore-backup")
				So(cfg.Backup.MaxBackups, ShouldEqual, 10)
				So(cfg.Backup.AuditMaxEntries, ShouldEqual, 100)
				So(cfg.Backup.CompressionLevel, ShouldEqual, -1)
				So(cfg.Backup.AuditLog, ShouldEqual, filepath.Join("backups", "backup.log"))
				So(cfg.Backup.LockTimeout, ShouldEqual, 2*time.Second)
				So(cfg.Schedule.Enabled, ShouldBeTrue)
				So(cfg.Schedule.Hour, ShouldEqual, 3)
			})
		})

		Convey("When a YAML file is present", func() {
			path := filepath.Join(tempDir, "config.yaml")
			content := `
app:
  log_level: debug
backup:
  dir: /var/backups/caminhar
  max_backups: 5
  max_safety_snapshots: 3
  compression_level: 9
  lock_timeout: 10s
schedule:
  hour: 23
  minute: 30
`
			So(os.WriteFile(path, []byte(content), 0o644), ShouldBeNil)

			cfg, err := Load(path)

			Convey("It should override the defaults", func() {
				So(err, ShouldBeNil)
				So(cfg.App.LogLevel, ShouldEqual, "debug")
				So(cfg.Backup.Dir, ShouldEqual, "/var/backups/caminhar")
				So(cfg.Backup.AuditLog, ShouldEqual, "/var/backups/caminhar/backup.log")
				So(cfg.Backup.MaxBackups, ShouldEqual, 5)
				So(cfg.Backup.CompressionLevel, ShouldEqual, 9)
				So(cfg.Backup.LockTimeout, ShouldEqual, 10*time.Second)
				So(cfg.Schedule.Hour, ShouldEqual, 23)
				So(cfg.Schedule.Minute, ShouldEqual, 30)
				So(cfg.RetentionPolicies(), ShouldResemble, map[string]int{
					"caminhar-pg-backup": 5,
					"pre-restore-backup": 3,
				})
			})
		})

		Convey("When the environment overrides a nested key", func() {
			So(os.Setenv("CAMINHAR_BACKUP_MAX_BACKUPS", "7"), ShouldBeNil)
			defer os.Unsetenv("CAMINHAR_BACKUP_MAX_BACKUPS")

			cfg, err := Load("")

			Convey("It should win over the default", func() {
				So(err, ShouldBeNil)
				So(cfg.Backup.MaxBackups, ShouldEqual, 7)
			})
		})

		Convey("When the connection string is missing", func() {
			So(os.Unsetenv(ConnectionEnvVar), ShouldBeNil)

			_, err := Load("")

			Convey("It should return an error naming the variable", func() {
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, ConnectionEnvVar)
			})
		})

		Convey("When the YAML is malformed", func() {
			path := filepath.Join(tempDir, "broken.yaml")
			So(os.WriteFile(path, []byte("backup: [unclosed"), 0o644), ShouldBeNil)

			_, err := Load(path)
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "failed to read config")
		})
	})
}

func TestValidate(t *testing.T) {
	Convey("Given a valid config", t, func() {
		valid := func() *Config {
			return &Config{
				Database: DatabaseConfig{Engine: EnginePostgreSQL, URL: "postgres://localhost/caminhar"},
				Backup: BackupConfig{
					Dir:             "backups",
					Prefix:          "caminhar-pg-backup",
					SafetyPrefix:    "pre-restore-backup",
					MaxBackups:      10,
					AuditMaxEntries: 100,
					LockName:        "caminhar-backup",
					LockTimeout:     2 * time.Second,
				},
				Schedule: ScheduleConfig{Enabled: true, Hour: 3},
			}
		}

		So(valid().Validate(), ShouldBeNil)

		Convey("It should reject an unknown engine", func() {
			cfg := valid()
			cfg.Database.Engine = "sqlite"
			So(cfg.Validate(), ShouldNotBeNil)
		})

		Convey("It should reject identical prefixes", func() {
			cfg := valid()
			cfg.Backup.SafetyPrefix = cfg.Backup.Prefix
			So(cfg.Validate().Error(), ShouldContainSubstring, "must differ")
		})

		Convey("It should reject max_backups below one", func() {
			cfg := valid()
			cfg.Backup.MaxBackups = 0
			So(cfg.Validate().Error(), ShouldContainSubstring, "max_backups")
		})

		Convey("It should reject an out of range schedule", func() {
			cfg := valid()
			cfg.Schedule.Hour = 24
			So(cfg.Validate().Error(), ShouldContainSubstring, "schedule.hour")

			cfg = valid()
			cfg.Schedule.Minute = 60
			So(cfg.Validate().Error(), ShouldContainSubstring, "schedule.minute")
		})

		Convey("It should reject lock names the system lock cannot use", func() {
			for _, name := range []string{"", "Caminhar", "caminhar/backup", "caminhar-backup-" + strings.Repeat("x", 30)} {
				cfg := valid()
				cfg.Backup.LockName = name
				So(cfg.Validate(), ShouldNotBeNil)
			}
		})

		Convey("It should reject a lock timeout that would wait forever", func() {
			cfg := valid()
			cfg.Backup.LockTimeout = 0
			So(cfg.Validate().Error(), ShouldContainSubstring, "backup.lock_timeout")

			cfg.Backup.LockTimeout = -time.Second
			So(cfg.Validate(), ShouldNotBeNil)
		})

		Convey("It should reject an unsupported compression level", func() {
			cfg := valid()
			cfg.Backup.CompressionLevel = 10
			So(cfg.Validate().Error(), ShouldContainSubstring, "backup.compression_level")

			cfg.Backup.CompressionLevel = -3
			So(cfg.Validate(), ShouldNotBeNil)
		})

		Convey("It should reject a negative operation timeout", func() {
			cfg := valid()
			cfg.Backup.Timeout = -time.Second
			So(cfg.Validate().Error(), ShouldContainSubstring, "backup.timeout")
		})

		Convey("It should require Telegram credentials when enabled", func() {
			cfg := valid()
			cfg.Notify.Telegram.Enabled = true
			So(cfg.Validate(), ShouldNotBeNil)
		})

		Convey("It should pick executables per engine", func() {
			cfg := valid()
			So(cfg.Database.DumpBinary(), ShouldEqual, "pg_dump")
			So(cfg.Database.LoadBinary(), ShouldEqual, "psql")

			cfg.Database.Engine = EngineMySQL
			So(cfg.Database.DumpBinary(), ShouldEqual, "mysqldump")
			So(cfg.Database.LoadBinary(), ShouldEqual, "mysql")
		})
	})
}
