package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/semmidev/rdsbackup/internal/domain"
)

// LocalStorage copies artifacts into a directory tree mirroring the key.
type LocalStorage struct {
	basePath string
}

func NewLocal(basePath string) (*LocalStorage, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create backup directory: %w", err)
	}
	return &LocalStorage{basePath: basePath}, nil
}

// Upload copies localPath to basePath/key. The copy is written to a
// temporary file and renamed so a partial object is never visible.
func (l *LocalStorage) Upload(ctx context.Context, localPath string, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	destPath := l.path(key)

	source, err := os.Open(localPath)
	if err != nil {
		return domain.Permanent(fmt.Errorf("failed to open source: %w", err))
	}
	defer source.Close()

	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return domain.Permanent(fmt.Errorf("failed to create dest dir: %w", err))
	}

	tmp, err := os.CreateTemp(filepath.Dir(destPath), ".upload-*")
	if err != nil {
		return domain.Permanent(fmt.Errorf("failed to create dest: %w", err))
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, source); err != nil {
		tmp.Close()
		return domain.Permanent(fmt.Errorf("failed to copy: %w", err))
	}
	if err := tmp.Close(); err != nil {
		return domain.Permanent(fmt.Errorf("failed to copy: %w", err))
	}

	if err := os.Rename(tmp.Name(), destPath); err != nil {
		return domain.Permanent(fmt.Errorf("failed to move into place: %w", err))
	}

	return nil
}

func (l *LocalStorage) Location(key string) string {
	return "file://" + l.path(key)
}

func (l *LocalStorage) Name() string { return "local" }

func (l *LocalStorage) path(key string) string {
	return filepath.Join(l.basePath, filepath.FromSlash(key))
}
