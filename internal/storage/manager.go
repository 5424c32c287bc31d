package storage

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"time"

	"github.com/h2non/filetype"
)

const defaultContentType = "application/octet-stream"

// Manager uploads run outputs by local path and prunes old runs.
type Manager struct {
	backend Storage
	logger  *slog.Logger
}

// NewManager creates a Manager over backend.
func NewManager(backend Storage, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{backend: backend, logger: logger}
}

// UploadFile uploads the file at localPath under key. The content type is
// sniffed from the file header.
func (m *Manager) UploadFile(ctx context.Context, localPath, key string) (string, error) {
	f, err := os.Open(localPath) // #nosec G304 - path produced by the pipeline
	if err != nil {
		return "", fmt.Errorf("open %s: %w", localPath, err)
	}
	defer func() { _ = f.Close() }()

	url, err := m.backend.Upload(ctx, key, f, contentType(localPath))
	if err != nil {
		return "", err
	}

	m.logger.Info("file uploaded",
		slog.String("backend", m.backend.Name()),
		slog.String("key", key),
		slog.String("url", url),
	)
	return url, nil
}

// RunKey is the object key of a run output file.
func RunKey(runID, name string) string {
	return path.Join("runs", runID, name)
}

// RemoveOlderThan deletes entries of the local dir older than retention.
// Published copies are left to the backend's own lifecycle rules.
func (m *Manager) RemoveOlderThan(ctx context.Context, dir string, retention time.Duration) ([]string, error) {
	return pruneDir(ctx, dir, time.Now().Add(-retention))
}

func contentType(localPath string) string {
	kind, err := filetype.MatchFile(localPath)
	if err != nil || kind == filetype.Unknown {
		return defaultContentType
	}
	return kind.MIME.Value
}
