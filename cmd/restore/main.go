// cmd/restore/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/caminhar/backupctl/internal/app"
	"github.com/caminhar/backupctl/internal/config"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to config file")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [-config path] <backup-filename>\n\n", os.Args[0])
		fmt.Fprintln(flag.CommandLine.Output(), "Restores the database from a backup in the backup directory.")
		fmt.Fprintln(flag.CommandLine.Output(), "A safety snapshot of the current database is taken first.")
		fmt.Fprintln(flag.CommandLine.Output())
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	if err := run(*configPath, flag.Arg(0)); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, filename string) error {
	cfg, err := config.Load(configPath)
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

	result, err := application.Restore(ctx, filename)
	if err != nil {
		if result != nil && result.Snapshot != "" {
			fmt.Fprintf(os.Stderr, "Safety snapshot of the previous state: %s\n", result.Snapshot)
		}
		return fmt.Errorf("restore %s: %w", filename, err)
	}

	fmt.Printf("Restored %s\n", result.Filename)
	fmt.Printf("Safety snapshot of the previous state: %s\n", result.Snapshot)
	return nil
}
