package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/caminhar/backupctl/internal/domain"
)

type LocalStorage struct {
	basePath string
}

func NewLocal(basePath string) *LocalStorage {
	return &LocalStorage{basePath: basePath}
}

// Ensure creates the backup directory and its parents. It is safe to call
// concurrently and when the directory already exists.
func (l *LocalStorage) Ensure() error {
	if err := os.MkdirAll(l.basePath, 0o750); err != nil {
		return &domain.DirectoryError{Path: l.basePath, Err: err}
	}
	return nil
}

// List returns the artifacts named <prefix>_<timestamp><suffix>. Entries
// without a parseable timestamp are skipped.
func (l *LocalStorage) List(prefix, suffix string) ([]domain.Artifact, error) {
	return l.scan(func(name string) bool {
		return domain.HasPrefix(name, prefix) && strings.HasSuffix(name, suffix)
	})
}

// ListAll returns every artifact that follows the naming pattern.
func (l *LocalStorage) ListAll() ([]domain.Artifact, error) {
	return l.scan(func(string) bool { return true })
}

func (l *LocalStorage) scan(match func(name string) bool) ([]domain.Artifact, error) {
	entries, err := os.ReadDir(l.basePath)
	if err != nil {
		if os.IsNotExist(err) {
			return []domain.Artifact{}, nil
		}
		return nil, &domain.DirectoryError{Path: l.basePath, Err: fmt.Errorf("failed to read directory: %w", err)}
	}

	artifacts := make([]domain.Artifact, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !match(entry.Name()) {
			continue
		}

		timestamp, ok := domain.ParseTimestamp(entry.Name())
		if !ok {
			continue
		}
		prefix, _ := domain.ParsePrefix(entry.Name())

		info, err := entry.Info()
		if err != nil {
			// Removed between ReadDir and Info.
			continue
		}

		artifacts = append(artifacts, domain.Artifact{
			Filename:   entry.Name(),
			Prefix:     prefix,
			Timestamp:  timestamp,
			SizeBytes:  info.Size(),
			Compressed: true,
		})
	}

	return artifacts, nil
}

// Exists reports whether filename is a regular file directly inside the
// backup directory. Names that would escape the directory never exist.
func (l *LocalStorage) Exists(filename string) (bool, error) {
	if !validName(filename) {
		return false, nil
	}

	info, err := os.Stat(l.Path(filename))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat %s: %w", filename, err)
	}
	return info.Mode().IsRegular(), nil
}

func (l *LocalStorage) Delete(filename string) error {
	if !validName(filename) {
		return fmt.Errorf("failed to delete file: invalid name %q", filename)
	}
	if err := os.Remove(l.Path(filename)); err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

func (l *LocalStorage) Path(filename string) string {
	return filepath.Join(l.basePath, filename)
}

func (l *LocalStorage) Dir() string {
	return l.basePath
}

func validName(filename string) bool {
	return filename != "" &&
		filename != "." &&
		filename != ".." &&
		!strings.ContainsAny(filename, `/\`)
}
