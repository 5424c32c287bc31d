// Package bootstrap provides dependency initialization for the news video API
// and CLI.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"golang.org/x/time/rate"

	"github.com/maauso/newsvideo-api/internal/compositor"
	"github.com/maauso/newsvideo-api/internal/config"
	"github.com/maauso/newsvideo-api/internal/elevenlabs"
	"github.com/maauso/newsvideo-api/internal/layout"
	"github.com/maauso/newsvideo-api/internal/leonardo"
	"github.com/maauso/newsvideo-api/internal/media"
	"github.com/maauso/newsvideo-api/internal/pipeline"
	"github.com/maauso/newsvideo-api/internal/poll"
	"github.com/maauso/newsvideo-api/internal/processor"
	"github.com/maauso/newsvideo-api/internal/remote"
	"github.com/maauso/newsvideo-api/internal/run"
	"github.com/maauso/newsvideo-api/internal/runpod"
	"github.com/maauso/newsvideo-api/internal/scheduler"
	"github.com/maauso/newsvideo-api/internal/storage"
	"github.com/maauso/newsvideo-api/internal/video"
)

// Dependencies holds all initialized dependencies for the HTTP server and CLI.
type Dependencies struct {
	VideoService *video.Service
	Scheduler    *scheduler.Scheduler
	Presets      *layout.Registry
	Preset       layout.Preset
	Storage      *storage.Manager

	closers []func() error
}

// Close releases clients that hold connections.
func (d *Dependencies) Close() error {
	var first error
	for _, c := range d.closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// NewDependencies creates and initializes all dependencies for the application.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	deps := &Dependencies{}

	backend, closer, err := initStorage(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	if closer != nil {
		deps.closers = append(deps.closers, closer)
	}
	deps.Storage = storage.NewManager(backend, logger)

	deps.Presets = layout.NewRegistry()
	if cfg.LayoutPresetsFile != "" {
		if err := deps.Presets.LoadFile(cfg.LayoutPresetsFile); err != nil {
			return nil, err
		}
	}
	deps.Preset, err = deps.Presets.Get(cfg.LayoutPreset)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(cfg.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	stages, err := initStages(cfg, deps.Preset, deps.Storage, logger)
	if err != nil {
		return nil, err
	}

	pcfg := pipeline.Config{
		BaseDir: cfg.OutputDir,
		Branding: media.Branding{
			LogoPath:  cfg.BrandingLogo,
			Watermark: cfg.BrandingWatermark,
			FontFile:  cfg.FontFile,
		},
		Upload:       cfg.UploadEnabled(),
		ImageTimeout: cfg.ImageTimeout,
		AudioTimeout: cfg.AudioTimeout,
	}
	factory := func(rec pipeline.Recorder) video.Runner {
		return pipeline.New(stages, pcfg, logger, pipeline.WithRecorder(rec))
	}
	runs := run.NewMemoryRepository()
	deps.VideoService = video.NewService(factory, runs, cfg.OutputDir, logger)

	deps.Scheduler = scheduler.New(0, logger)
	if err := deps.Scheduler.AddJob(&scheduler.CleanupJob{
		Cleaner:      deps.Storage,
		Runs:         runs,
		Dir:          cfg.OutputDir,
		Retention:    cfg.RunRetention,
		CronSchedule: cfg.CleanupSchedule,
		Logger:       logger,
	}); err != nil {
		return nil, err
	}

	return deps, nil
}

// initStages builds the pipeline processors. Avatars and prompt sourcing are
// enabled only when their services are configured.
func initStages(cfg *config.Config, preset layout.Preset, uploader *storage.Manager, logger *slog.Logger) (pipeline.Stages, error) {
	mp := media.NewFFmpegProcessor("")
	polling := poll.Config{Interval: cfg.PollInterval, MaxAttempts: cfg.PollMaxAttempts}

	voice := elevenlabs.DefaultVoiceSettings()
	if cfg.ElevenLabsVoiceID != "" {
		voice.VoiceID = cfg.ElevenLabsVoiceID
	}
	if cfg.ElevenLabsModelID != "" {
		voice.ModelID = cfg.ElevenLabsModelID
	}
	tts, err := elevenlabs.NewClient(
		[]remote.Option{remote.WithAPIKey(cfg.ElevenLabsAPIKey), remote.WithMaxRetries(cfg.AudioRetries)},
		elevenlabs.WithVoice(voice),
		elevenlabs.WithRateLimit(rate.Limit(cfg.TTSRateLimit), max(1, cfg.AudioConcurrency)),
	)
	if err != nil {
		return pipeline.Stages{}, fmt.Errorf("create ElevenLabs client: %w", err)
	}

	stages := pipeline.Stages{
		Images: processor.NewImageProcessor(logger, processor.WithImageConcurrency(cfg.ImageConcurrency)),
		Audio:  processor.NewAudioProcessor(tts, cfg.AudioConcurrency, logger),
		Scenes: compositor.NewSceneCompositor(mp, preset, logger,
			compositor.WithAssetsDir(cfg.AssetsDir),
			compositor.WithFontFile(cfg.FontFile),
			compositor.WithSceneRetries(cfg.SceneRetries),
			compositor.WithSceneTimeout(cfg.SceneTimeout),
		),
		Final:    compositor.NewFinalCompositor(mp, cfg.FinalTimeout, logger),
		Uploader: uploader,
	}

	if cfg.LeonardoEnabled() {
		gen, err := leonardo.NewClient(
			[]remote.Option{remote.WithAPIKey(cfg.LeonardoAPIKey), remote.WithMaxRetries(cfg.ImageRetries)},
			leonardo.WithPolling(polling),
		)
		if err != nil {
			return pipeline.Stages{}, fmt.Errorf("create Leonardo client: %w", err)
		}
		stages.Sourcing = processor.NewSourcingProcessor(gen, cfg.ImageConcurrency, logger)
		logger.Info("prompt image sourcing enabled")
	}

	if cfg.RunPodEnabled() {
		rp, err := runpod.NewClient(cfg.RunPodEndpointID, remote.WithAPIKey(cfg.RunPodAPIKey))
		if err != nil {
			return pipeline.Stages{}, fmt.Errorf("create RunPod client: %w", err)
		}
		stages.Characters = processor.NewCharacterProcessor(rp, mp, processor.CharacterConfig{
			PortraitPath: cfg.AvatarImagePath,
			Submit:       runpod.DefaultSubmitOptions(),
			Polling:      polling,
			Timeout:      cfg.CharacterTimeout,
			Attempts:     cfg.CharacterRetries,
		}, logger)
		logger.Info("avatar generation enabled",
			slog.String("endpoint_id", cfg.RunPodEndpointID),
		)
	}

	return stages, nil
}

// initStorage creates the storage backend selected by configuration.
func initStorage(ctx context.Context, cfg *config.Config, logger *slog.Logger) (storage.Storage, func() error, error) {
	switch cfg.StorageBackend {
	case config.StorageS3:
		s3Store, err := storage.NewS3Storage(ctx, storage.S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
			PublicBaseURL:   cfg.PublicBaseURL,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("create S3 storage: %w", err)
		}
		logger.Info("S3 storage configured",
			slog.String("bucket", cfg.S3Bucket),
			slog.String("region", cfg.S3Region),
		)
		return s3Store, nil, nil

	case config.StorageGCS:
		gcsStore, err := storage.NewGCSStorage(ctx, storage.GCSConfig{
			Bucket:        cfg.GCSBucket,
			PublicBaseURL: cfg.PublicBaseURL,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("create GCS storage: %w", err)
		}
		logger.Info("GCS storage configured",
			slog.String("bucket", cfg.GCSBucket),
		)
		return gcsStore, gcsStore.Close, nil
	}

	localStore, err := storage.NewLocalStorage(cfg.PublishDir, cfg.PublicBaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("create local storage: %w", err)
	}
	logger.Info("local storage configured",
		slog.String("publish_dir", cfg.PublishDir),
		slog.Bool("can_upload", localStore.CanUpload()),
	)
	return localStore, nil, nil
}
