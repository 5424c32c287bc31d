package storage

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestNewLocalStorage(t *testing.T) {
	t.Run("without publish dir", func(t *testing.T) {
		s, err := NewLocalStorage("", "")
		if err != nil {
			t.Fatalf("NewLocalStorage() error = %v", err)
		}
		if s.CanUpload() {
			t.Error("CanUpload() = true, want false")
		}
	})

	t.Run("creates publish dir", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "public", "videos")
		s, err := NewLocalStorage(dir, "")
		if err != nil {
			t.Fatalf("NewLocalStorage() error = %v", err)
		}
		if !s.CanUpload() {
			t.Error("CanUpload() = false, want true")
		}
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Errorf("publish dir not created: %v", err)
		}
		if !strings.HasPrefix(s.publicURL, "file://") {
			t.Errorf("publicURL = %v, want file:// URL", s.publicURL)
		}
	})
}

func TestLocalStorage_Upload(t *testing.T) {
	dir := t.TempDir()
	s, err := NewLocalStorage(dir, "https://videos.example.com/")
	if err != nil {
		t.Fatalf("NewLocalStorage() error = %v", err)
	}

	url, err := s.Upload(context.Background(), "runs/abc/final_video.mp4", bytes.NewReader([]byte("video")), "video/mp4")
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if url != "https://videos.example.com/runs/abc/final_video.mp4" {
		t.Errorf("url = %v", url)
	}

	got, err := os.ReadFile(filepath.Join(dir, "runs", "abc", "final_video.mp4"))
	if err != nil {
		t.Fatalf("read published file: %v", err)
	}
	if string(got) != "video" {
		t.Errorf("content = %q, want %q", got, "video")
	}

	leftovers, _ := filepath.Glob(filepath.Join(dir, "runs", "abc", ".upload_*"))
	if len(leftovers) != 0 {
		t.Errorf("temporary files left behind: %v", leftovers)
	}
}

func TestLocalStorage_UploadErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("not configured", func(t *testing.T) {
		s, _ := NewLocalStorage("", "")
		_, err := s.Upload(ctx, "key", bytes.NewReader([]byte("data")), "video/mp4")
		if !errors.Is(err, ErrUploadNotConfigured) {
			t.Errorf("expected ErrUploadNotConfigured, got %v", err)
		}
	})

	t.Run("key escapes publish dir", func(t *testing.T) {
		s, err := NewLocalStorage(t.TempDir(), "")
		if err != nil {
			t.Fatalf("NewLocalStorage() error = %v", err)
		}
		if _, err := s.Upload(ctx, "../outside.mp4", bytes.NewReader([]byte("x")), ""); err == nil {
			t.Error("expected error for escaping key")
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		s, err := NewLocalStorage(t.TempDir(), "")
		if err != nil {
			t.Fatalf("NewLocalStorage() error = %v", err)
		}
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		if _, err := s.Upload(cctx, "k.mp4", bytes.NewReader([]byte("x")), ""); !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})
}

func TestPruneDir(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()

	oldRun := filepath.Join(root, "old-run")
	newRun := filepath.Join(root, "new-run")
	for _, dir := range []string{oldRun, newRun} {
		if err := os.MkdirAll(filepath.Join(dir, "scenes"), 0750); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
	}
	past := time.Now().Add(-48 * time.Hour)
	if err := os.Chtimes(oldRun, past, past); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	removed, err := pruneDir(ctx, root, time.Now().Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("pruneDir() error = %v", err)
	}
	if len(removed) != 1 || removed[0] != oldRun {
		t.Errorf("removed = %v, want [%s]", removed, oldRun)
	}
	if _, err := os.Stat(oldRun); !os.IsNotExist(err) {
		t.Errorf("old run still exists")
	}
	if _, err := os.Stat(newRun); err != nil {
		t.Errorf("new run removed: %v", err)
	}

	t.Run("missing dir is not an error", func(t *testing.T) {
		removed, err := pruneDir(ctx, filepath.Join(root, "nope"), time.Now())
		if err != nil || len(removed) != 0 {
			t.Errorf("got %v, %v", removed, err)
		}
	})
}
