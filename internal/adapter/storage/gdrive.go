package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/semmidev/rdsbackup/internal/config"
)

// GDriveStorage uploads artifacts into a single Drive folder. Drive has no
// directories in the key sense, so the file is named after the last key
// segment and the full key is kept as a file property.
type GDriveStorage struct {
	service  *drive.Service
	folderID string
}

func NewGDrive(ctx context.Context, cfg config.StorageConfig) (*GDriveStorage, error) {
	service, err := drive.NewService(ctx, option.WithCredentialsFile(cfg.CredentialsFile))
	if err != nil {
		return nil, fmt.Errorf("failed to create drive service: %w", err)
	}

	return &GDriveStorage{
		service:  service,
		folderID: cfg.FolderID,
	}, nil
}

func (g *GDriveStorage) Upload(ctx context.Context, localPath string, key string) error {
	file, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	metadata := &drive.File{
		Name:          path.Base(key),
		Parents:       []string{g.folderID},
		AppProperties: map[string]string{"key": key},
	}

	_, err = g.service.Files.Create(metadata).
		Media(file).
		Context(ctx).
		Do()
	if err != nil {
		return classifyGoogle(fmt.Errorf("failed to upload to gdrive: %w", err))
	}

	return nil
}

func (g *GDriveStorage) Location(key string) string {
	return "gdrive://" + g.folderID + "/" + path.Base(key)
}

func (g *GDriveStorage) Name() string { return "gdrive" }

func classifyGoogle(err error) error {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return err
	}

	var reason string
	if len(apiErr.Errors) > 0 {
		reason = apiErr.Errors[0].Reason
	}
	return classifyCode(err, reason, apiErr.Code)
}
