package processor

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/maauso/newsvideo-api/internal/poll"
	"github.com/maauso/newsvideo-api/internal/runpod"
)

const (
	defaultCharacterTimeout  = 600 * time.Second
	defaultCharacterAttempts = 2
)

// Static errors for avatar generation.
var (
	// ErrNoAudioFile is returned when the scene audio does not exist.
	ErrNoAudioFile = errors.New("processor: scene audio file not found")
	// ErrNoPortrait is returned when no presenter portrait is configured.
	ErrNoPortrait = errors.New("processor: presenter portrait is not configured")
)

// AudioConverter converts narration audio to the WAV format the avatar
// service expects.
type AudioConverter interface {
	ConvertToWAV(ctx context.Context, src, dst string) error
}

// CharacterInput is the input of CharacterProcessor for one scene.
type CharacterInput struct {
	SceneIndex int
	AudioPath  string
	// OutputDir receives the avatar video, normally the run's characters dir.
	OutputDir string
}

// CharacterConfig holds the avatar generation settings.
type CharacterConfig struct {
	PortraitPath string
	Submit       runpod.SubmitOptions
	Polling      poll.Config
	Timeout      time.Duration
	Attempts     int
}

// CharacterProcessor renders a talking-presenter clip for one scene.
type CharacterProcessor struct {
	client    runpod.Client
	converter AudioConverter
	cfg       CharacterConfig
	logger    *slog.Logger
}

// NewCharacterProcessor creates a CharacterProcessor.
func NewCharacterProcessor(client runpod.Client, converter AudioConverter, cfg CharacterConfig, logger *slog.Logger) *CharacterProcessor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultCharacterTimeout
	}
	if cfg.Attempts <= 0 {
		cfg.Attempts = defaultCharacterAttempts
	}
	if cfg.Polling.Interval <= 0 || cfg.Polling.MaxAttempts <= 0 {
		cfg.Polling = poll.DefaultConfig()
	}
	return &CharacterProcessor{client: client, converter: converter, cfg: cfg, logger: logger}
}

// Name implements Processor.
func (p *CharacterProcessor) Name() string { return "character_processor" }

// Validate implements Processor.
func (p *CharacterProcessor) Validate(in CharacterInput) error {
	if in.OutputDir == "" {
		return ErrNoOutputDir
	}
	if p.cfg.PortraitPath == "" {
		return ErrNoPortrait
	}
	if _, err := os.Stat(in.AudioPath); err != nil {
		return fmt.Errorf("%w: %s", ErrNoAudioFile, in.AudioPath)
	}
	return nil
}

// CharacterFileName is the avatar clip name for scene i.
func CharacterFileName(i int) string {
	return fmt.Sprintf("scene_%03d.mp4", i)
}

// Process implements Processor. It returns the path of the avatar video.
func (p *CharacterProcessor) Process(ctx context.Context, in CharacterInput, t *Tracker) (string, error) {
	if err := os.MkdirAll(in.OutputDir, 0755); err != nil {
		return "", fmt.Errorf("create characters dir: %w", err)
	}

	var lastErr error
	for attempt := 1; attempt <= p.cfg.Attempts; attempt++ {
		if t.Cancelled() {
			return "", ErrCancelled
		}
		path, err := p.generate(ctx, in, t)
		if err == nil {
			return path, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
		p.logger.Warn("avatar generation attempt failed",
			slog.Int("scene", in.SceneIndex),
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", p.cfg.Attempts),
			slog.String("error", err.Error()),
		)
	}
	return "", fmt.Errorf("scene %d avatar: %w", in.SceneIndex, lastErr)
}

func (p *CharacterProcessor) generate(ctx context.Context, in CharacterInput, t *Tracker) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	wavPath := filepath.Join(in.OutputDir, fmt.Sprintf("scene_%03d.wav", in.SceneIndex))
	if err := p.converter.ConvertToWAV(ctx, in.AudioPath, wavPath); err != nil {
		return "", fmt.Errorf("convert audio: %w", err)
	}
	defer func() { _ = os.Remove(wavPath) }()
	t.Report(10)

	imageB64, err := encodeFile(p.cfg.PortraitPath)
	if err != nil {
		return "", fmt.Errorf("read portrait: %w", err)
	}
	audioB64, err := encodeFile(wavPath)
	if err != nil {
		return "", fmt.Errorf("read wav: %w", err)
	}

	jobID, err := p.client.Submit(ctx, imageB64, audioB64, p.cfg.Submit)
	if err != nil {
		return "", fmt.Errorf("submit: %w", err)
	}
	p.logger.Info("avatar job submitted",
		slog.Int("scene", in.SceneIndex),
		slog.String("job_id", jobID),
	)
	t.Report(20)

	res, err := runpod.Await(ctx, p.client, jobID, p.cfg.Polling)
	if err != nil {
		return "", err
	}
	t.Report(90)

	video, err := base64.StdEncoding.DecodeString(res.VideoBase64)
	if err != nil {
		return "", fmt.Errorf("decode video: %w", err)
	}
	path := filepath.Join(in.OutputDir, CharacterFileName(in.SceneIndex))
	if err := os.WriteFile(path, video, 0600); err != nil {
		return "", fmt.Errorf("write video: %w", err)
	}
	return path, nil
}

func encodeFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}
