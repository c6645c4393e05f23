// cmd/backup/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os/signal"
	"syscall"

	"github.com/dustin/go-humanize"

	"github.com/caminhar/backupctl/internal/app"
	"github.com/caminhar/backupctl/internal/config"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Error: %v\n", err)
	}
}

func run() error {
	configPath := flag.String("config", "configs/config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	application, err := app.New(cfg)
	if err != nil {
		return fmt.Errorf("initialize app: %w", err)
	}
	defer application.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	artifact, err := application.Backup(ctx)
	if err != nil {
		return fmt.Errorf("backup: %w", err)
	}

	fmt.Printf("Backup created: %s (%s)\n", artifact.Filename, humanize.Bytes(uint64(artifact.SizeBytes)))
	return nil
}
