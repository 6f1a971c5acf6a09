package storage

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	s3manager "github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/semmidev/rdsbackup/internal/config"
)

type S3Storage struct {
	uploader *s3manager.Uploader
	bucket   string
}

// NewS3 creates an S3Storage. Static credentials are used when both keys are
// set, otherwise the default AWS credential chain applies. A custom endpoint
// switches the client to path-style addressing.
func NewS3(ctx context.Context, cfg config.StorageConfig, region string) (*S3Storage, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Storage{
		uploader: s3manager.NewUploader(client),
		bucket:   cfg.Bucket,
	}, nil
}

// Upload streams a local file to the bucket under key. Failures are
// classified as transient or permanent.
func (s *S3Storage) Upload(ctx context.Context, localPath string, key string) error {
	file, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	_, err = s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:               aws.String(s.bucket),
		Key:                  aws.String(key),
		Body:                 file,
		ContentType:          aws.String("application/octet-stream"),
		ServerSideEncryption: types.ServerSideEncryptionAes256,
	})
	if err != nil {
		return classifyAWS(fmt.Errorf("failed to upload to S3: %w", err))
	}

	return nil
}

func (s *S3Storage) Location(key string) string {
	return "s3://" + s.bucket + "/" + key
}

func (s *S3Storage) Name() string { return "s3" }
