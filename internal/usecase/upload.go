package usecase

import (
	"context"
	"errors"
	"io"
	"net"
	"os"
	"syscall"
	"time"

	"github.com/semmidev/rdsbackup/internal/domain"
)

type UploadResult struct {
	Key      string
	Location string
	Attempts int
}

// Uploader transfers an artifact to storage, retrying transient failures
// with a linearly increasing delay.
type Uploader struct {
	storage     domain.Storage
	prefix      string
	maxAttempts int
	retryDelay  time.Duration
	logger      Logger
	wait        func(ctx context.Context, d time.Duration) error
}

func NewUploader(storage domain.Storage, prefix string, maxAttempts int, retryDelay time.Duration, logger Logger) *Uploader {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Uploader{
		storage:     storage,
		prefix:      prefix,
		maxAttempts: maxAttempts,
		retryDelay:  retryDelay,
		logger:      logger,
		wait:        sleep,
	}
}

// Upload stores the artifact under its storage key. The local file is
// removed once the upload concludes, whatever the result.
func (u *Uploader) Upload(ctx context.Context, artifact domain.Artifact) (UploadResult, error) {
	defer u.removeArtifact(artifact)

	key := domain.StorageKey(u.prefix, artifact.Database, artifact.CreatedAt)
	result := UploadResult{Key: key, Location: u.storage.Location(key)}

	for attempt := 1; ; attempt++ {
		result.Attempts = attempt
		u.logger.Infof("[%s] Uploading to %s (attempt %d/%d)", artifact.Database, result.Location, attempt, u.maxAttempts)

		err := u.storage.Upload(ctx, artifact.Path, key)
		if err == nil {
			u.logger.Infof("[%s] Successfully uploaded to %s", artifact.Database, u.storage.Name())
			return result, nil
		}

		retryable := isTransient(err)
		if ctx.Err() != nil || !retryable || attempt >= u.maxAttempts {
			return result, &domain.UploadError{Key: key, Attempts: attempt, Retryable: retryable, Err: err}
		}

		delay := u.retryDelay * time.Duration(attempt)
		u.logger.Warnf("[%s] Upload attempt %d failed, retrying in %s: %v", artifact.Database, attempt, delay, err)
		if err := u.wait(ctx, delay); err != nil {
			return result, &domain.UploadError{Key: key, Attempts: attempt, Retryable: true, Err: err}
		}
	}
}

func (u *Uploader) removeArtifact(artifact domain.Artifact) {
	if err := os.Remove(artifact.Path); err != nil && !os.IsNotExist(err) {
		u.logger.Warnf("[%s] Failed to remove local artifact %s: %v", artifact.Database, artifact.Path, err)
		return
	}
	u.logger.Infof("[%s] Removed local artifact", artifact.Database)
}

// isTransient reports whether an upload error looks like a network or
// timeout problem worth retrying. Storage classification takes precedence.
func isTransient(err error) bool {
	var storageErr *domain.StorageError
	if errors.As(err, &storageErr) {
		return storageErr.Transient
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	return errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.EPIPE)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
