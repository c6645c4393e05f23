package usecase

import (
	"context"
	"fmt"

	"github.com/caminhar/backupctl/internal/domain"
)

// Catalog lists every recognized artifact in the backup directory,
// regardless of prefix.
type Catalog struct {
	storage domain.Storage
}

func NewCatalog(storage domain.Storage) *Catalog {
	return &Catalog{storage: storage}
}

// List returns artifacts newest first. A missing directory yields an empty list.
func (uc *Catalog) List(ctx context.Context) ([]domain.Artifact, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	artifacts, err := uc.storage.ListAll()
	if err != nil {
		return nil, fmt.Errorf("list backups: %w", err)
	}

	domain.SortNewestFirst(artifacts)
	return artifacts, nil
}
