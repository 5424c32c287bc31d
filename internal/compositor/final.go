package compositor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/maauso/newsvideo-api/internal/media"
	"github.com/maauso/newsvideo-api/internal/processor"
)

// FinalVideoName is the file name of the composed run output.
const FinalVideoName = "final_video.mp4"

const defaultFinalTimeout = 900 * time.Second

// Static errors for final composition.
var (
	// ErrMissingSceneVideo is returned when a scene has no rendered video.
	ErrMissingSceneVideo = errors.New("compositor: missing scene video")
	// ErrNoSceneVideos is returned when there is nothing to join.
	ErrNoSceneVideos = errors.New("compositor: no scene videos")
)

// FinalInput is the input of FinalCompositor.
type FinalInput struct {
	RunID       string
	OutputDir   string
	TempDir     string
	SceneVideos []processor.Artifact
	SceneCount  int
	Branding    media.Branding
}

// FinalCompositor joins the scene videos in order and applies branding.
type FinalCompositor struct {
	media   media.Processor
	timeout time.Duration
	logger  *slog.Logger
}

// NewFinalCompositor creates a FinalCompositor. timeout <= 0 uses 900s.
func NewFinalCompositor(mp media.Processor, timeout time.Duration, logger *slog.Logger) *FinalCompositor {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = defaultFinalTimeout
	}
	return &FinalCompositor{media: mp, timeout: timeout, logger: logger}
}

// Name implements processor.Processor.
func (c *FinalCompositor) Name() string { return "final_compositor" }

// Validate implements processor.Processor. Every scene 0..SceneCount-1 must
// have a video on disk.
func (c *FinalCompositor) Validate(in FinalInput) error {
	if in.OutputDir == "" {
		return processor.ErrNoOutputDir
	}
	if in.SceneCount <= 0 {
		return ErrNoSceneVideos
	}

	have := processor.ByIndex(in.SceneVideos)
	var missing []int
	for i := range in.SceneCount {
		path, ok := have[i]
		if !ok {
			missing = append(missing, i)
			continue
		}
		if _, err := os.Stat(path); err != nil {
			missing = append(missing, i)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: scenes %v", ErrMissingSceneVideo, missing)
	}
	return nil
}

// Process implements processor.Processor and returns the final video path.
func (c *FinalCompositor) Process(ctx context.Context, in FinalInput, t *processor.Tracker) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	videos := make([]processor.Artifact, 0, in.SceneCount)
	for _, a := range in.SceneVideos {
		if a.Index >= 0 && a.Index < in.SceneCount {
			videos = append(videos, a)
		}
	}
	processor.SortArtifacts(videos)

	output := filepath.Join(in.OutputDir, FinalVideoName)
	if err := c.compose(ctx, in, videos, output, t); err != nil {
		return "", err
	}

	c.logger.Info("final video composed",
		slog.String("run_id", in.RunID),
		slog.Int("scenes", len(videos)),
		slog.String("path", output),
	)
	return output, nil
}

func (c *FinalCompositor) compose(ctx context.Context, in FinalInput, videos []processor.Artifact, output string, t *processor.Tracker) error {
	if in.Branding.Empty() {
		if err := c.media.JoinVideos(ctx, processor.Paths(videos), output); err != nil {
			return fmt.Errorf("join scenes: %w", err)
		}
		return nil
	}

	tempDir := in.TempDir
	if tempDir == "" {
		tempDir = in.OutputDir
	}
	if err := os.MkdirAll(tempDir, 0755); err != nil {
		return fmt.Errorf("create temp dir: %w", err)
	}
	joined := filepath.Join(tempDir, "joined.mp4")
	if err := c.media.JoinVideos(ctx, processor.Paths(videos), joined); err != nil {
		return fmt.Errorf("join scenes: %w", err)
	}
	defer func() { _ = os.Remove(joined) }()
	t.Report(60)

	if err := c.media.ApplyBranding(ctx, joined, output, in.Branding); err != nil {
		return fmt.Errorf("apply branding: %w", err)
	}
	return nil
}
