package storage

import (
	"context"
	"fmt"
	"io"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// GCSConfig holds the configuration for Google Cloud Storage.
type GCSConfig struct {
	Bucket        string
	PublicBaseURL string // Optional: CDN base URL returned instead of storage.googleapis.com
	// ClientOptions are passed to the GCS client (credentials, endpoint).
	ClientOptions []option.ClientOption
}

// GCSStorage publishes objects to a Google Cloud Storage bucket.
type GCSStorage struct {
	client    *gcs.Client
	bucket    string
	publicURL string
}

// NewGCSStorage creates a GCSStorage. Credentials come from the environment
// (application default credentials) unless overridden in cfg.ClientOptions.
func NewGCSStorage(ctx context.Context, cfg GCSConfig) (*GCSStorage, error) {
	if cfg.Bucket == "" {
		return nil, ErrBucketRequired
	}

	client, err := gcs.NewClient(ctx, cfg.ClientOptions...)
	if err != nil {
		return nil, fmt.Errorf("create GCS client: %w", err)
	}

	publicURL := cfg.PublicBaseURL
	if publicURL == "" {
		publicURL = "https://storage.googleapis.com/" + cfg.Bucket
	}

	return &GCSStorage{
		client:    client,
		bucket:    cfg.Bucket,
		publicURL: publicURL,
	}, nil
}

// Name implements Storage.
func (s *GCSStorage) Name() string { return "gcs" }

// Upload streams data to gs://bucket/key and returns the public URL.
func (s *GCSStorage) Upload(ctx context.Context, key string, data io.Reader, contentType string) (string, error) {
	w := s.client.Bucket(s.bucket).Object(key).NewWriter(ctx)
	if contentType != "" {
		w.ContentType = contentType
	}

	if _, err := io.Copy(w, data); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("upload gs://%s/%s: %w", s.bucket, key, err)
	}
	// Close finalizes the object; the upload is not committed before it returns.
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("finalize GCS upload: %w", err)
	}

	return objectURL(s.publicURL, key), nil
}

// Close releases the GCS client.
func (s *GCSStorage) Close() error {
	return s.client.Close()
}
