package storage

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
)

// recordingStorage captures uploads in memory.
type recordingStorage struct {
	uploads map[string][]byte
	types   map[string]string
	fail    error
}

func (r *recordingStorage) Name() string { return "recording" }

func (r *recordingStorage) Upload(_ context.Context, key string, data io.Reader, contentType string) (string, error) {
	if r.fail != nil {
		return "", r.fail
	}
	b, err := io.ReadAll(data)
	if err != nil {
		return "", err
	}
	r.uploads[key] = b
	r.types[key] = contentType
	return "https://cdn.test/" + key, nil
}

func newRecording(t *testing.T) *recordingStorage {
	t.Helper()
	return &recordingStorage{
		uploads: make(map[string][]byte),
		types:   make(map[string]string),
	}
}

func mp4Header() []byte {
	return append([]byte{0, 0, 0, 0x18}, []byte("ftypmp42\x00\x00\x00\x00mp42isom")...)
}

func TestManager_UploadFile(t *testing.T) {
	backend := newRecording(t)
	m := NewManager(backend, nil)
	dir := t.TempDir()
	video := filepath.Join(dir, "final_video.mp4")
	require.NoError(t, os.WriteFile(video, mp4Header(), 0600))

	url, err := m.UploadFile(context.Background(), video, "runs/r1/final_video.mp4")

	require.NoError(t, err)
	assert.Equal(t, "https://cdn.test/runs/r1/final_video.mp4", url)
	assert.Equal(t, "video/mp4", backend.types["runs/r1/final_video.mp4"])
}

func TestManager_UploadFileUnknownType(t *testing.T) {
	backend := newRecording(t)
	m := NewManager(backend, nil)
	f := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(f, []byte("plain"), 0600))

	_, err := m.UploadFile(context.Background(), f, "k")

	require.NoError(t, err)
	assert.Equal(t, defaultContentType, backend.types["k"])
}

func TestManager_UploadFileErrors(t *testing.T) {
	local, err := NewLocalStorage("", "")
	require.NoError(t, err)
	m := NewManager(local, nil)

	_, err = m.UploadFile(context.Background(), "/does/not/exist.mp4", "k")
	assert.Error(t, err)

	f := filepath.Join(t.TempDir(), "a.mp4")
	require.NoError(t, os.WriteFile(f, mp4Header(), 0600))
	_, err = m.UploadFile(context.Background(), f, "k")
	assert.ErrorIs(t, err, ErrUploadNotConfigured)
}

func TestManager_UploadFileBackendError(t *testing.T) {
	backend := newRecording(t)
	backend.fail = errors.New("network unreachable")
	m := NewManager(backend, nil)
	f := filepath.Join(t.TempDir(), "final_video.mp4")
	require.NoError(t, os.WriteFile(f, mp4Header(), 0600))

	url, err := m.UploadFile(context.Background(), f, RunKey("r2", "final_video.mp4"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "network unreachable")
	assert.Empty(t, url)
	assert.Empty(t, backend.uploads)
}

func TestManager_RemoveOlderThan(t *testing.T) {
	m := NewManager(newRecording(t), nil)
	root := t.TempDir()
	old := filepath.Join(root, "old")
	require.NoError(t, os.Mkdir(old, 0750))
	past := time.Now().Add(-200 * time.Hour)
	require.NoError(t, os.Chtimes(old, past, past))

	removed, err := m.RemoveOlderThan(context.Background(), root, 168*time.Hour)

	require.NoError(t, err)
	assert.Equal(t, []string{old}, removed)
}

func TestNewGCSStorage(t *testing.T) {
	s, err := NewGCSStorage(context.Background(), GCSConfig{
		Bucket:        "media",
		ClientOptions: []option.ClientOption{option.WithoutAuthentication()},
	})
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	assert.Equal(t, "gcs", s.Name())
	assert.Equal(t, "media", s.bucket)
	assert.Equal(t, "https://storage.googleapis.com/media", s.publicURL)

	_, err = NewGCSStorage(context.Background(), GCSConfig{})
	assert.ErrorIs(t, err, ErrBucketRequired)
}

func TestObjectURL(t *testing.T) {
	assert.Equal(t, "https://cdn.test/runs/a/final_video.mp4", objectURL("https://cdn.test/", "/runs/a/final_video.mp4"))
	assert.Equal(t, "https://cdn.test/k", objectURL("https://cdn.test", "k"))
}
