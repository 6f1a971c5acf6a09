package storage

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/semmidev/rdsbackup/internal/config"
)

// MinIOStorage writes artifacts to an S3-compatible endpoint.
type MinIOStorage struct {
	client   *minio.Client
	endpoint string
	bucket   string
}

func NewMinIO(cfg config.StorageConfig, region string) (*MinIOStorage, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:     credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure:    cfg.UseSSL,
		Region:    region,
		Transport: newTransport(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	return &MinIOStorage{
		client:   client,
		endpoint: cfg.Endpoint,
		bucket:   cfg.Bucket,
	}, nil
}

func (m *MinIOStorage) Upload(ctx context.Context, localPath string, key string) error {
	_, err := m.client.FPutObject(ctx, m.bucket, key, localPath, minio.PutObjectOptions{
		ContentType: "application/octet-stream",
	})
	if err != nil {
		resp := minio.ToErrorResponse(err)
		return classifyCode(fmt.Errorf("failed to upload to minio: %w", err), resp.Code, resp.StatusCode)
	}
	return nil
}

func (m *MinIOStorage) Location(key string) string {
	return "s3://" + m.bucket + "/" + key
}

func (m *MinIOStorage) Name() string { return "minio" }

func newTransport() *http.Transport {
	dialer := &net.Dialer{
		Timeout:   5 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
}
