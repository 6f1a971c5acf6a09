package domain

import "context"

type Storage interface {
	// Upload transfers the file at localPath to key. Failures should be
	// classified with Transient or Permanent.
	Upload(ctx context.Context, localPath string, key string) error
	// Location renders a human-readable address of key, e.g. s3://bucket/key.
	Location(key string) string
	Name() string
}
