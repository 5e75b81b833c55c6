package storage

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/storage"
	"github.com/resumeforge/resumeforge/internal/config"
	"google.golang.org/api/option"
)

// GCSStore implements ArtifactStore on a Google Cloud Storage bucket.
// The underlying client is process-lifetime; construct once in main and inject.
type GCSStore struct {
	client *storage.Client
	bucket string
}

// NewGCSStore creates a GCS-backed artifact store. When cfg.CredentialsJSON is
// empty the client uses application default credentials.
func NewGCSStore(ctx context.Context, cfg config.StorageConfig) (*GCSStore, error) {
	var opts []option.ClientOption
	if cfg.CredentialsJSON != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(cfg.CredentialsJSON)))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	return &GCSStore{client: client, bucket: cfg.Bucket}, nil
}

func (s *GCSStore) Close() error {
	return s.client.Close()
}

// Upload writes data to the bucket at path and returns the stored path.
func (s *GCSStore) Upload(ctx context.Context, path, contentType string, data []byte) (string, error) {
	w := s.client.Bucket(s.bucket).Object(path).NewWriter(ctx)
	w.ContentType = contentType

	if _, err := w.Write(data); err != nil {
		w.Close()
		return "", fmt.Errorf("%w: write %s: %v", ErrUploadFailed, path, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("%w: finalize %s: %v", ErrUploadFailed, path, err)
	}
	return path, nil
}

// SignedURL mints a fresh V4 signed read URL for path, valid for ttl.
func (s *GCSStore) SignedURL(_ context.Context, path string, ttl time.Duration) (string, error) {
	url, err := s.client.Bucket(s.bucket).SignedURL(path, &storage.SignedURLOptions{
		Scheme:  storage.SigningSchemeV4,
		Method:  "GET",
		Expires: time.Now().Add(ttl),
	})
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrSignFailed, path, err)
	}
	return url, nil
}
