package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/caminhar/backupctl/internal/config"
	"github.com/caminhar/backupctl/internal/domain"
)

type PostgreSQLDatabase struct {
	config     *config.DatabaseConfig
	compressor domain.Compressor
}

func NewPostgreSQL(cfg *config.DatabaseConfig, comp domain.Compressor) *PostgreSQLDatabase {
	return &PostgreSQLDatabase{config: cfg, compressor: comp}
}

// Dump writes a plain SQL dump that drops and recreates objects on load, so
// it can be replayed over a live database.
func (p *PostgreSQLDatabase) Dump(ctx context.Context, destPath string) error {
	return dumpTo(ctx, p.dumpCommand(), p.compressor, destPath)
}

func (p *PostgreSQLDatabase) Load(ctx context.Context, sourcePath string) error {
	return loadFrom(ctx, p.loadCommand(), p.compressor, sourcePath)
}

func (p *PostgreSQLDatabase) dumpCommand() command {
	return command{
		bin: p.config.DumpBinary(),
		args: []string{
			fmt.Sprintf("--dbname=%s", p.config.URL),
			"--clean",
			"--if-exists",
			"--no-owner",
			"--no-privileges",
		},
	}
}

func (p *PostgreSQLDatabase) loadCommand() command {
	return command{
		bin: p.config.LoadBinary(),
		args: []string{
			fmt.Sprintf("--dbname=%s", p.config.URL),
			"--quiet",
			"--no-psqlrc",
			"--single-transaction",
			"--set", "ON_ERROR_STOP=1",
		},
	}
}

func (p *PostgreSQLDatabase) GetType() string {
	return config.EnginePostgreSQL
}

func (p *PostgreSQLDatabase) Ping(ctx context.Context) error {
	conn, err := pgx.Connect(ctx, p.config.URL)
	if err != nil {
		return fmt.Errorf("postgresql ping failed: %w", err)
	}
	defer conn.Close(ctx)

	if err := conn.Ping(ctx); err != nil {
		return fmt.Errorf("postgresql ping failed: %w", err)
	}

	return nil
}
