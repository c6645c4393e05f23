package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	EnginePostgreSQL = "postgresql"
	EngineMySQL      = "mysql"

	// ConnectionEnvVar carries the connection string for the dump and load
	// utilities. It is opaque to the orchestrator.
	ConnectionEnvVar = "DATABASE_URL"
	envPrefix        = "CAMINHAR"
)

var lockNamePattern = regexp.MustCompile(`^[a-z][a-z0-9-]*$`)

type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Database DatabaseConfig `mapstructure:"database"`
	Backup   BackupConfig   `mapstructure:"backup"`
	Schedule ScheduleConfig `mapstructure:"schedule"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Notify   NotifyConfig   `mapstructure:"notify"`
}

type AppConfig struct {
	Name     string `mapstructure:"name"`
	LogLevel string `mapstructure:"log_level"`
	LogFile  string `mapstructure:"log_file"`
}

type DatabaseConfig struct {
	Engine      string `mapstructure:"engine"`
	URL         string `mapstructure:"url"`
	DumpCommand string `mapstructure:"dump_command"`
	LoadCommand string `mapstructure:"load_command"`
}

type BackupConfig struct {
	Dir                string        `mapstructure:"dir"`
	Prefix             string        `mapstructure:"prefix"`
	SafetyPrefix       string        `mapstructure:"safety_prefix"`
	MaxBackups         int           `mapstructure:"max_backups"`
	MaxSafetySnapshots int           `mapstructure:"max_safety_snapshots"`
	CompressionLevel   int           `mapstructure:"compression_level"`
	AuditLog           string        `mapstructure:"audit_log"`
	AuditMaxEntries    int           `mapstructure:"audit_max_entries"`
	LockName           string        `mapstructure:"lock_name"`
	LockTimeout        time.Duration `mapstructure:"lock_timeout"`
	Timeout            time.Duration `mapstructure:"timeout"`
}

type ScheduleConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Hour    int  `mapstructure:"hour"`
	Minute  int  `mapstructure:"minute"`
}

type MetricsConfig struct {
	Listen string `mapstructure:"listen"`
}

type NotifyConfig struct {
	Telegram TelegramConfig `mapstructure:"telegram"`
}

type TelegramConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
}

// Load reads path when it exists and layers the environment on top. A
// missing config file is not an error: the connection string alone is
// enough to run.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("database.url", ConnectionEnvVar, envPrefix+"_DATABASE_URL"); err != nil {
		return nil, fmt.Errorf("failed to bind env: %w", err)
	}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			v.SetConfigType("yaml")
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to stat config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.Backup.AuditLog == "" {
		cfg.Backup.AuditLog = filepath.Join(cfg.Backup.Dir, "backup.log")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "caminhar-backup")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.log_file", "")

	v.SetDefault("database.engine", EnginePostgreSQL)
	v.SetDefault("database.url", "")
	v.SetDefault("database.dump_command", "")
	v.SetDefault("database.load_command", "")

	v.SetDefault("backup.dir", "backups")
	v.SetDefault("backup.prefix", "caminhar-pg-backup")
	v.SetDefault("backup.safety_prefix", "pre-restore-backup")
	v.SetDefault("backup.max_backups", 10)
	v.SetDefault("backup.max_safety_snapshots", 0)
	v.SetDefault("backup.compression_level", -1)
	v.SetDefault("backup.audit_log", "")
	v.SetDefault("backup.audit_max_entries", 100)
	v.SetDefault("backup.lock_name", "caminhar-backup")
	v.SetDefault("backup.lock_timeout", 2*time.Second)
	v.SetDefault("backup.timeout", time.Duration(0))

	v.SetDefault("schedule.enabled", true)
	v.SetDefault("schedule.hour", 3)
	v.SetDefault("schedule.minute", 0)

	v.SetDefault("metrics.listen", "")

	v.SetDefault("notify.telegram.enabled", false)
	v.SetDefault("notify.telegram.bot_token", "")
	v.SetDefault("notify.telegram.chat_id", "")
}

func (c *Config) Validate() error {
	switch c.Database.Engine {
	case EnginePostgreSQL, EngineMySQL:
	default:
		return fmt.Errorf("database.engine: unsupported engine %q", c.Database.Engine)
	}
	if c.Database.URL == "" {
		return fmt.Errorf("database.url is required (set %s)", ConnectionEnvVar)
	}

	if c.Backup.Dir == "" {
		return fmt.Errorf("backup.dir is required")
	}
	if c.Backup.Prefix == "" || c.Backup.SafetyPrefix == "" {
		return fmt.Errorf("backup.prefix and backup.safety_prefix are required")
	}
	if c.Backup.Prefix == c.Backup.SafetyPrefix {
		return fmt.Errorf("backup.safety_prefix must differ from backup.prefix")
	}
	if strings.ContainsAny(c.Backup.Prefix+c.Backup.SafetyPrefix, `/\`) {
		return fmt.Errorf("backup prefixes must not contain path separators")
	}
	if c.Backup.MaxBackups < 1 {
		return fmt.Errorf("backup.max_backups must be at least 1, got: %d", c.Backup.MaxBackups)
	}
	if c.Backup.MaxSafetySnapshots < 0 {
		return fmt.Errorf("backup.max_safety_snapshots must not be negative, got: %d", c.Backup.MaxSafetySnapshots)
	}
	if c.Backup.CompressionLevel < -2 || c.Backup.CompressionLevel > 9 {
		return fmt.Errorf("backup.compression_level must be between -2 and 9, got: %d", c.Backup.CompressionLevel)
	}
	if c.Backup.AuditMaxEntries < 1 {
		return fmt.Errorf("backup.audit_max_entries must be at least 1, got: %d", c.Backup.AuditMaxEntries)
	}
	if len(c.Backup.LockName) > 40 || !lockNamePattern.MatchString(c.Backup.LockName) {
		return fmt.Errorf("backup.lock_name must be up to 40 lowercase letters, digits or hyphens, got: %q", c.Backup.LockName)
	}
	if c.Backup.LockTimeout <= 0 {
		return fmt.Errorf("backup.lock_timeout must be positive, got: %s", c.Backup.LockTimeout)
	}
	if c.Backup.Timeout < 0 {
		return fmt.Errorf("backup.timeout must not be negative, got: %s", c.Backup.Timeout)
	}

	if c.Schedule.Hour < 0 || c.Schedule.Hour > 23 {
		return fmt.Errorf("schedule.hour must be between 0 and 23, got: %d", c.Schedule.Hour)
	}
	if c.Schedule.Minute < 0 || c.Schedule.Minute > 59 {
		return fmt.Errorf("schedule.minute must be between 0 and 59, got: %d", c.Schedule.Minute)
	}

	if t := c.Notify.Telegram; t.Enabled && (t.BotToken == "" || t.ChatID == "") {
		return fmt.Errorf("notify.telegram: bot_token and chat_id are required when enabled")
	}

	return nil
}

// RetentionPolicies maps each naming prefix to the number of artifacts to
// keep. A zero value exempts the prefix from retention.
func (c *Config) RetentionPolicies() map[string]int {
	return map[string]int{
		c.Backup.Prefix:       c.Backup.MaxBackups,
		c.Backup.SafetyPrefix: c.Backup.MaxSafetySnapshots,
	}
}

func (d *DatabaseConfig) DumpBinary() string {
	if d.DumpCommand != "" {
		return d.DumpCommand
	}
	if d.Engine == EngineMySQL {
		return "mysqldump"
	}
	return "pg_dump"
}

func (d *DatabaseConfig) LoadBinary() string {
	if d.LoadCommand != "" {
		return d.LoadCommand
	}
	if d.Engine == EngineMySQL {
		return "mysql"
	}
	return "psql"
}
