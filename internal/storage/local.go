package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// LocalStorage publishes files into a directory served by a static web
// server. Without a publish directory it only keeps outputs on disk and
// Upload returns ErrUploadNotConfigured.
type LocalStorage struct {
	publishDir string
	publicURL  string
}

// NewLocalStorage creates a LocalStorage. publishDir may be empty. When
// publicBaseURL is empty, URLs are returned as file:// paths.
func NewLocalStorage(publishDir, publicBaseURL string) (*LocalStorage, error) {
	if publishDir == "" {
		return &LocalStorage{}, nil
	}

	abs, err := filepath.Abs(publishDir)
	if err != nil {
		return nil, fmt.Errorf("resolve publish dir: %w", err)
	}
	if err := os.MkdirAll(abs, 0750); err != nil {
		return nil, fmt.Errorf("create publish dir: %w", err)
	}

	publicURL := publicBaseURL
	if publicURL == "" {
		publicURL = "file://" + filepath.ToSlash(abs)
	}
	return &LocalStorage{publishDir: abs, publicURL: publicURL}, nil
}

// Name implements Storage.
func (s *LocalStorage) Name() string { return "local" }

// CanUpload reports whether a publish directory is configured.
func (s *LocalStorage) CanUpload() bool { return s.publishDir != "" }

// Upload copies data to publishDir/key. The file is written under a
// temporary name and renamed, so readers never see a partial video.
func (s *LocalStorage) Upload(ctx context.Context, key string, data io.Reader, _ string) (string, error) {
	if !s.CanUpload() {
		return "", ErrUploadNotConfigured
	}
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("context cancelled: %w", err)
	}

	dst := filepath.Join(s.publishDir, filepath.FromSlash(key))
	if !strings.HasPrefix(dst, s.publishDir+string(filepath.Separator)) {
		return "", fmt.Errorf("storage: key %q escapes publish dir", key)
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0750); err != nil {
		return "", fmt.Errorf("create %s: %w", filepath.Dir(dst), err)
	}

	f, err := os.CreateTemp(filepath.Dir(dst), ".upload_*")
	if err != nil {
		return "", fmt.Errorf("create publish file: %w", err)
	}
	tmp := f.Name()
	if _, err := io.Copy(f, data); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return "", fmt.Errorf("write publish file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("close publish file: %w", err)
	}
	if err := os.Rename(tmp, dst); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("publish %s: %w", key, err)
	}

	return objectURL(s.publicURL, key), nil
}

// pruneDir deletes the direct entries of dir (run directories or files)
// modified before cutoff. A missing dir is not an error. Removal continues
// past individual failures and returns the first.
func pruneDir(ctx context.Context, dir string, cutoff time.Time) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}

	var (
		removed  []string
		firstErr error
	)
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return removed, fmt.Errorf("context cancelled: %w", err)
		}
		info, err := e.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		path := filepath.Join(dir, e.Name())
		if err := os.RemoveAll(path); err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("remove %s: %w", path, err)
			}
			continue
		}
		removed = append(removed, path)
	}
	return removed, firstErr
}
