// Package storage publishes run outputs to a CDN-backed store (local publish
// directory, S3 or Google Cloud Storage) and prunes old run directories.
package storage

import (
	"context"
	"errors"
	"io"
	"strings"
)

var (
	// ErrUploadNotConfigured is returned when an upload is attempted on a
	// backend with nowhere to publish.
	ErrUploadNotConfigured = errors.New("storage: remote upload is not configured")

	// ErrBucketRequired is returned when a bucket backend has no bucket name.
	ErrBucketRequired = errors.New("storage: bucket is required")
)

// Storage is the destination for published run outputs.
type Storage interface {
	// Name identifies the backend in logs.
	Name() string

	// Upload stores data under key and returns its public URL.
	Upload(ctx context.Context, key string, data io.Reader, contentType string) (url string, err error)
}

// objectURL joins a public base URL and an object key.
func objectURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(key, "/")
}
