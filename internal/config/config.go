// Package config provides configuration loading from environment variables.
package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Storage backends.
const (
	StorageLocal = "local"
	StorageS3    = "s3"
	StorageGCS   = "gcs"
)

// Static errors for configuration validation.
var (
	// ErrElevenLabsAPIKeyRequired is returned when ELEVENLABS_API_KEY is not set.
	ErrElevenLabsAPIKeyRequired = errors.New("config: ELEVENLABS_API_KEY is required")
	// ErrRunPodEndpointIDRequired is returned when RUNPOD_API_KEY is set without RUNPOD_ENDPOINT_ID.
	ErrRunPodEndpointIDRequired = errors.New("config: RUNPOD_ENDPOINT_ID is required when RUNPOD_API_KEY is set")
	// ErrAvatarImageRequired is returned when avatars are enabled without a portrait.
	ErrAvatarImageRequired = errors.New("config: AVATAR_IMAGE_PATH is required when RunPod is configured")
	// ErrUnknownStorageBackend is returned for an unsupported STORAGE_BACKEND.
	ErrUnknownStorageBackend = errors.New("config: STORAGE_BACKEND must be local, s3 or gcs")
	// ErrStorageBucketRequired is returned when a remote backend has no bucket.
	ErrStorageBucketRequired = errors.New("config: bucket is required for the selected storage backend")
	// ErrInvalidTTSRateLimit is returned when TTS_RATE_LIMIT is not positive.
	ErrInvalidTTSRateLimit = errors.New("config: TTS_RATE_LIMIT must be greater than zero")
)

// Config holds all configuration for the application.
type Config struct {
	// Server settings
	Port int `env:"PORT, default=8080" json:"port"`

	// Filesystem layout
	OutputDir string `env:"OUTPUT_DIR, default=generated" json:"output_dir"`
	AssetsDir string `env:"ASSETS_DIR, default=assets" json:"assets_dir"`
	FontFile  string `env:"FONT_FILE" json:"font_file,omitempty"`

	// Layout settings
	LayoutPreset      string `env:"LAYOUT_PRESET, default=half" json:"layout_preset"`
	LayoutPresetsFile string `env:"LAYOUT_PRESETS_FILE" json:"layout_presets_file,omitempty"`

	// Text-to-speech settings
	ElevenLabsAPIKey  string  `env:"ELEVENLABS_API_KEY, required" json:"-"` // Masked in JSON
	ElevenLabsVoiceID string  `env:"ELEVENLABS_VOICE_ID" json:"elevenlabs_voice_id,omitempty"`
	ElevenLabsModelID string  `env:"ELEVENLABS_MODEL_ID" json:"elevenlabs_model_id,omitempty"`
	TTSRateLimit      float64 `env:"TTS_RATE_LIMIT, default=2" json:"tts_rate_limit"`

	// Image generation (optional)
	LeonardoAPIKey string `env:"LEONARDO_API_KEY" json:"-"` // Masked in JSON

	// Avatar generation (optional)
	RunPodAPIKey     string `env:"RUNPOD_API_KEY" json:"-"` // Masked in JSON
	RunPodEndpointID string `env:"RUNPOD_ENDPOINT_ID" json:"runpod_endpoint_id,omitempty"`
	AvatarImagePath  string `env:"AVATAR_IMAGE_PATH" json:"avatar_image_path,omitempty"`

	// Processing settings
	ImageConcurrency int           `env:"IMAGE_CONCURRENCY, default=5" json:"image_concurrency"`
	AudioConcurrency int           `env:"AUDIO_CONCURRENCY, default=2" json:"audio_concurrency"`
	ImageTimeout     time.Duration `env:"IMAGE_TIMEOUT, default=300s" json:"image_timeout"`
	AudioTimeout     time.Duration `env:"AUDIO_TIMEOUT, default=180s" json:"audio_timeout"`
	CharacterTimeout time.Duration `env:"CHARACTER_TIMEOUT, default=600s" json:"character_timeout"`
	SceneTimeout     time.Duration `env:"SCENE_TIMEOUT, default=300s" json:"scene_timeout"`
	FinalTimeout     time.Duration `env:"FINAL_TIMEOUT, default=900s" json:"final_timeout"`
	ImageRetries     int           `env:"IMAGE_RETRIES, default=3" json:"image_retries"`
	AudioRetries     int           `env:"AUDIO_RETRIES, default=3" json:"audio_retries"`
	CharacterRetries int           `env:"CHARACTER_RETRIES, default=2" json:"character_retries"`
	SceneRetries     int           `env:"SCENE_RETRIES, default=2" json:"scene_retries"`
	PollInterval     time.Duration `env:"POLL_INTERVAL, default=5s" json:"poll_interval"`
	PollMaxAttempts  int           `env:"POLL_MAX_ATTEMPTS, default=40" json:"poll_max_attempts"`

	// Branding applied to the final video
	BrandingLogo      string `env:"BRANDING_LOGO" json:"branding_logo,omitempty"`
	BrandingWatermark string `env:"BRANDING_WATERMARK" json:"branding_watermark,omitempty"`

	// Storage settings
	StorageBackend   string `env:"STORAGE_BACKEND, default=local" json:"storage_backend"`
	UploadFinalVideo bool   `env:"UPLOAD_FINAL_VIDEO, default=false" json:"upload_final_video"`
	PublicBaseURL    string `env:"PUBLIC_BASE_URL" json:"public_base_url,omitempty"`
	PublishDir       string `env:"PUBLISH_DIR" json:"publish_dir,omitempty"` // local backend only

	// S3 settings
	S3Bucket           string `env:"S3_BUCKET" json:"s3_bucket,omitempty"`
	S3Region           string `env:"S3_REGION" json:"s3_region,omitempty"`
	S3Endpoint         string `env:"S3_ENDPOINT" json:"s3_endpoint,omitempty"`
	AWSAccessKeyID     string `env:"AWS_ACCESS_KEY_ID" json:"-"`     // Masked in JSON
	AWSSecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY" json:"-"` // Masked in JSON

	// GCS settings
	GCSBucket string `env:"GCS_BUCKET" json:"gcs_bucket,omitempty"`

	// Cleanup settings
	CleanupSchedule string        `env:"CLEANUP_SCHEDULE, default=0 0 * * *" json:"cleanup_schedule"`
	RunRetention    time.Duration `env:"RUN_RETENTION, default=168h" json:"run_retention"`

	// Logging settings
	LogFormat string `env:"LOG_FORMAT, default=text" json:"log_format"` // "json" or "text"
	LogLevel  string `env:"LOG_LEVEL, default=info" json:"log_level"`   // "debug", "info", "warn", "error"
}

// RunPodEnabled returns true if avatar generation is configured.
func (c *Config) RunPodEnabled() bool {
	return c.RunPodAPIKey != ""
}

// LeonardoEnabled returns true if prompt-based image sourcing is configured.
func (c *Config) LeonardoEnabled() bool {
	return c.LeonardoAPIKey != ""
}

// UploadEnabled returns true if final videos are published after a run.
// The local backend needs a publish directory to upload to.
func (c *Config) UploadEnabled() bool {
	if !c.UploadFinalVideo {
		return false
	}
	return c.StorageBackend != StorageLocal || c.PublishDir != ""
}

// Load reads configuration from environment variables using go-envconfig.
// It returns an error if required variables are not set or the result does
// not validate.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := envconfig.Process(context.Background(), cfg); err != nil {
		// Map envconfig errors to our domain errors for required fields
		if strings.Contains(err.Error(), "ELEVENLABS_API_KEY") {
			return nil, ErrElevenLabsAPIKeyRequired
		}
		return nil, fmt.Errorf("config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the configuration is consistent.
func (c *Config) Validate() error {
	if c.ElevenLabsAPIKey == "" {
		return ErrElevenLabsAPIKeyRequired
	}
	if c.TTSRateLimit <= 0 {
		return fmt.Errorf("%w: got %g", ErrInvalidTTSRateLimit, c.TTSRateLimit)
	}
	if c.RunPodEnabled() {
		if c.RunPodEndpointID == "" {
			return ErrRunPodEndpointIDRequired
		}
		if c.AvatarImagePath == "" {
			return ErrAvatarImageRequired
		}
	}

	switch c.StorageBackend {
	case StorageLocal:
	case StorageS3:
		if c.S3Bucket == "" || c.S3Region == "" {
			return fmt.Errorf("%w: S3_BUCKET and S3_REGION", ErrStorageBucketRequired)
		}
	case StorageGCS:
		if c.GCSBucket == "" {
			return fmt.Errorf("%w: GCS_BUCKET", ErrStorageBucketRequired)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownStorageBackend, c.StorageBackend)
	}
	return nil
}

// NewLogger creates a structured logger based on the configuration.
// When LogFormat is "json", it outputs JSON logs suitable for production.
// Otherwise, it outputs human-readable text logs.
func (c *Config) NewLogger() *slog.Logger {
	level := parseLogLevel(c.LogLevel)

	var handler slog.Handler
	if strings.ToLower(c.LogFormat) == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	}

	return slog.New(handler)
}

// String returns a string representation of the config with sensitive values masked.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Port: %d, OutputDir: %s, PublishDir: %s, LayoutPreset: %s, RunPodEndpointID: %s, Leonardo: %t, StorageBackend: %s, S3Bucket: %s, GCSBucket: %s, UploadFinalVideo: %t, LogFormat: %s, LogLevel: %s}",
		c.Port,
		c.OutputDir,
		c.PublishDir,
		c.LayoutPreset,
		c.RunPodEndpointID,
		c.LeonardoEnabled(),
		c.StorageBackend,
		c.S3Bucket,
		c.GCSBucket,
		c.UploadFinalVideo,
		c.LogFormat,
		c.LogLevel,
	)
}

// parseLogLevel converts a string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
