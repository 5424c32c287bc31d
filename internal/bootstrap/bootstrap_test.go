package bootstrap

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maauso/newsvideo-api/internal/config"
	"github.com/maauso/newsvideo-api/internal/elevenlabs"
	"github.com/maauso/newsvideo-api/internal/layout"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		OutputDir:        filepath.Join(dir, "generated"),
		PublishDir:       filepath.Join(dir, "public"),
		AssetsDir:        filepath.Join(dir, "assets"),
		LayoutPreset:     layout.PresetHalf,
		ElevenLabsAPIKey: "test-key",
		TTSRateLimit:     2,
		ImageConcurrency: 5,
		AudioConcurrency: 2,
		ImageTimeout:     time.Minute,
		AudioTimeout:     time.Minute,
		CharacterTimeout: time.Minute,
		SceneTimeout:     time.Minute,
		FinalTimeout:     time.Minute,
		AudioRetries:     3,
		SceneRetries:     2,
		PollInterval:     time.Second,
		PollMaxAttempts:  3,
		StorageBackend:   config.StorageLocal,
		CleanupSchedule:  "0 0 * * *",
		RunRetention:     time.Hour,
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestNewDependencies_Local(t *testing.T) {
	cfg := testConfig(t)

	deps, err := NewDependencies(t.Context(), cfg, discardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = deps.Close() })

	assert.NotNil(t, deps.VideoService)
	assert.NotNil(t, deps.Storage)
	assert.Equal(t, layout.PresetHalf, deps.Preset.Name)
	assert.Equal(t, []string{"cleanup_runs"}, deps.Scheduler.Jobs())

	info, err := os.Stat(cfg.OutputDir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestNewDependencies_OptionalStages(t *testing.T) {
	cfg := testConfig(t)
	cfg.LeonardoAPIKey = "leo-key"
	cfg.RunPodAPIKey = "rp-key"
	cfg.RunPodEndpointID = "endpoint-1"
	cfg.AvatarImagePath = filepath.Join(t.TempDir(), "portrait.png")

	stages, err := initStages(cfg, layout.Builtin()[0], nil, discardLogger())
	require.NoError(t, err)
	assert.NotNil(t, stages.Sourcing)
	assert.NotNil(t, stages.Characters)
}

func TestNewDependencies_StagesWithoutOptionalServices(t *testing.T) {
	stages, err := initStages(testConfig(t), layout.Builtin()[0], nil, discardLogger())
	require.NoError(t, err)
	assert.Nil(t, stages.Sourcing)
	assert.Nil(t, stages.Characters)
	assert.NotNil(t, stages.Images)
	assert.NotNil(t, stages.Audio)
	assert.NotNil(t, stages.Scenes)
	assert.NotNil(t, stages.Final)
}

func TestNewDependencies_Errors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(cfg *config.Config)
		wantErr error
	}{
		{
			name:    "unknown preset",
			mutate:  func(cfg *config.Config) { cfg.LayoutPreset = "portrait" },
			wantErr: layout.ErrUnknownPreset,
		},
		{
			name:    "missing TTS key",
			mutate:  func(cfg *config.Config) { cfg.ElevenLabsAPIKey = "" },
			wantErr: elevenlabs.ErrAPIKeyNotSet,
		},
		{
			name: "bad presets file",
			mutate: func(cfg *config.Config) {
				cfg.LayoutPresetsFile = filepath.Join(cfg.OutputDir, "missing.yaml")
			},
		},
		{
			name:   "bad cleanup schedule",
			mutate: func(cfg *config.Config) { cfg.CleanupSchedule = "every day" },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			tt.mutate(cfg)

			_, err := NewDependencies(t.Context(), cfg, discardLogger())
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestNewDependencies_PresetsFile(t *testing.T) {
	cfg := testConfig(t)
	cfg.LayoutPresetsFile = filepath.Join(t.TempDir(), "presets.yaml")
	cfg.LayoutPreset = "square"
	yaml := `presets:
  - name: square
    width: 1080
    height: 1080
`
	require.NoError(t, os.WriteFile(cfg.LayoutPresetsFile, []byte(yaml), 0644))

	deps, err := NewDependencies(t.Context(), cfg, discardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = deps.Close() })

	assert.Equal(t, "square", deps.Preset.Name)
	assert.Equal(t, 1080, deps.Preset.Width)
}
