// cmd/backups/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/caminhar/backupctl/internal/app"
	"github.com/caminhar/backupctl/internal/config"
	"github.com/caminhar/backupctl/internal/domain"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Error: %v\n", err)
	}
}

func run() error {
	configPath := flag.String("config", "configs/config.yaml", "path to config file")
	history := flag.Bool("log", false, "print the audit trail instead of the backups")
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

	if *history {
		entries, err := application.History()
		if err != nil {
			return fmt.Errorf("read audit log: %w", err)
		}
		for _, e := range entries {
			fmt.Printf("[%s] [%s] %s\n", e.Timestamp, e.Status, e.Message)
		}
		return nil
	}

	artifacts, err := application.List(context.Background())
	if err != nil {
		return err
	}
	if len(artifacts) == 0 {
		fmt.Printf("No backups in %s\n", cfg.Backup.Dir)
		return nil
	}

	return printArtifacts(artifacts)
}

func printArtifacts(artifacts []domain.Artifact) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "FILENAME\tPREFIX\tCREATED\tSIZE")
	for _, a := range artifacts {
		created := a.Timestamp
		if t, err := domain.ParseTime(a.Timestamp, time.Local); err == nil {
			created = t.Format("2006-01-02 15:04:05") + " (" + humanize.Time(t) + ")"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", a.Filename, a.Prefix, created, humanize.Bytes(uint64(a.SizeBytes)))
	}
	return w.Flush()
}
