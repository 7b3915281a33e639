package persistence

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"

	"github.com/personahub/chat-backend/internal/config"
)

type objectPutter interface {
	PutObject(ctx context.Context, bucket, key string, reader io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// ObjectStore keeps uploaded files in an S3-compatible bucket.
type ObjectStore struct {
	client  objectPutter
	bucket  string
	baseURL string
}

// NewObjectStore connects to the configured endpoint and makes sure the
// bucket exists. It returns nil when no endpoint is configured.
func NewObjectStore(ctx context.Context, cfg config.StorageConfig, logger *zap.Logger) (*ObjectStore, error) {
	if cfg.Endpoint == "" {
		logger.Warn("STORAGE_ENDPOINT not provided; file uploads are disabled")
		return nil, nil
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("storage client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{Region: cfg.Region}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", cfg.Bucket, err)
		}
		logger.Info("created storage bucket", zap.String("bucket", cfg.Bucket))
	}

	return newObjectStore(client, cfg.Bucket, cfg.PublicBaseURL), nil
}

func newObjectStore(client objectPutter, bucket, baseURL string) *ObjectStore {
	return &ObjectStore{client: client, bucket: bucket, baseURL: strings.TrimRight(baseURL, "/")}
}

// Put uploads body under key and returns the path clients fetch it from.
func (s *ObjectStore) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) (string, error) {
	if s == nil || s.client == nil {
		return "", errors.New("object store not configured")
	}
	key = strings.TrimLeft(key, "/")
	if _, err := s.client.PutObject(ctx, s.bucket, key, body, size, minio.PutObjectOptions{
		ContentType: contentType,
	}); err != nil {
		return "", fmt.Errorf("put object %s: %w", key, err)
	}
	return s.baseURL + "/" + s.bucket + "/" + key, nil
}
