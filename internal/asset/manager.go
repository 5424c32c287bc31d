// Package asset manages the per-run directory layout and the registry of
// artifacts produced while a storyboard is turned into a video.
package asset

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// Type classifies an artifact.
type Type string

// Asset types produced by a run.
const (
	TypeImage     Type = "image"
	TypeAudio     Type = "audio"
	TypeCharacter Type = "character"
	TypeScene     Type = "scene"
	TypeFinal     Type = "final"
)

// Run subdirectories. Images and audio live in the run root.
const (
	CharactersDir = "characters"
	ScenesDir     = "scenes"
	TempDir       = "temp"
)

// Static errors for asset registry operations.
var (
	// ErrAssetExists is returned when registering an already registered asset.
	ErrAssetExists = errors.New("asset: already registered")
	// ErrAssetNotFound is returned when an asset is not registered.
	ErrAssetNotFound = errors.New("asset: not found")
	// ErrRunIDRequired is returned when creating a manager without a run ID.
	ErrRunIDRequired = errors.New("asset: run ID is required")
)

type key struct {
	typ   Type
	index int
}

// Entry is a registered artifact.
type Entry struct {
	Type  Type
	Index int
	Path  string
}

// Manager owns one run directory and its artifact registry. It is safe for
// concurrent use.
type Manager struct {
	runID string
	root  string

	mu     sync.RWMutex
	assets map[key]string
}

// NewManager creates {baseDir}/{runID} and its subdirectories.
func NewManager(baseDir, runID string) (*Manager, error) {
	if runID == "" {
		return nil, ErrRunIDRequired
	}
	root := filepath.Join(baseDir, runID)
	for _, dir := range []string{root, filepath.Join(root, CharactersDir), filepath.Join(root, ScenesDir), filepath.Join(root, TempDir)} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("asset: create run dir: %w", err)
		}
	}
	return &Manager{
		runID:  runID,
		root:   root,
		assets: make(map[key]string),
	}, nil
}

// RunID returns the run identifier.
func (m *Manager) RunID() string { return m.runID }

// Root returns the run directory.
func (m *Manager) Root() string { return m.root }

// Dir returns a subdirectory of the run.
func (m *Manager) Dir(sub string) string { return filepath.Join(m.root, sub) }

// ScenePath returns the path of the rendered video for scene i.
func (m *Manager) ScenePath(i int) string {
	return filepath.Join(m.root, ScenesDir, fmt.Sprintf("scene_%03d.mp4", i))
}

// Register records an artifact. Registering the same (type, index) twice
// fails with ErrAssetExists.
func (m *Manager) Register(t Type, index int, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := key{t, index}
	if existing, ok := m.assets[k]; ok {
		return fmt.Errorf("%w: %s %d at %s", ErrAssetExists, t, index, existing)
	}
	m.assets[k] = path
	return nil
}

// Replace records an artifact, overwriting any previous registration.
func (m *Manager) Replace(t Type, index int, path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.assets[key{t, index}] = path
}

// Get returns the path registered for (type, index).
func (m *Manager) Get(t Type, index int) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	path, ok := m.assets[key{t, index}]
	if !ok {
		return "", fmt.Errorf("%w: %s %d", ErrAssetNotFound, t, index)
	}
	return path, nil
}

// List returns the artifacts of one type ordered by index.
func (m *Manager) List(t Type) []Entry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Entry
	for k, p := range m.assets {
		if k.typ == t {
			out = append(out, Entry{Type: t, Index: k.index, Path: p})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

// Cleanup removes the run's temp directory.
func (m *Manager) Cleanup() error {
	if err := os.RemoveAll(m.Dir(TempDir)); err != nil {
		return fmt.Errorf("asset: cleanup temp: %w", err)
	}
	return nil
}
