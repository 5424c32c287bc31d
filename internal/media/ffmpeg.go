package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Static errors for media operations.
var (
	// ErrInvalidDimensions is returned when the provided dimensions are not positive.
	ErrInvalidDimensions = errors.New("media: invalid dimensions: width and height must be positive")
	// ErrNoVideoPaths is returned when no video paths are provided for joining.
	ErrNoVideoPaths = errors.New("media: no video paths provided")
	// ErrNoAudio is returned when a scene has no narration track.
	ErrNoAudio = errors.New("media: scene audio is required")
	// ErrFFprobeExecution is returned when ffprobe command fails.
	ErrFFprobeExecution = errors.New("media: ffprobe execution failed")
)

// Compile-time check that FFmpegProcessor implements Processor.
var _ Processor = (*FFmpegProcessor)(nil)

// FFmpegProcessor implements Processor using the ffmpeg CLI.
type FFmpegProcessor struct {
	// ffmpegPath is the path to the ffmpeg binary. Defaults to "ffmpeg".
	ffmpegPath string
	// ffprobePath is the path to the ffprobe binary. Defaults to "ffprobe".
	ffprobePath string
}

// NewFFmpegProcessor creates a new FFmpegProcessor.
// If ffmpegPath is empty, it defaults to "ffmpeg" (found via PATH); ffprobe is
// looked up next to it.
func NewFFmpegProcessor(ffmpegPath string) *FFmpegProcessor {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	ffprobe := "ffprobe"
	if dir := filepath.Dir(ffmpegPath); dir != "." {
		ffprobe = filepath.Join(dir, "ffprobe")
	}
	return &FFmpegProcessor{ffmpegPath: ffmpegPath, ffprobePath: ffprobe}
}

// ComposeScene renders one scene video.
func (p *FFmpegProcessor) ComposeScene(ctx context.Context, spec SceneSpec) error {
	if spec.Width <= 0 || spec.Height <= 0 {
		return fmt.Errorf("%w: width=%d, height=%d", ErrInvalidDimensions, spec.Width, spec.Height)
	}
	if spec.AudioPath == "" {
		return ErrNoAudio
	}

	var titleFile string
	if spec.TitleText != "" && spec.FontFile != "" {
		f, err := writeTextFile(filepath.Dir(spec.Output), spec.TitleText)
		if err != nil {
			return err
		}
		defer func() { _ = os.Remove(f) }()
		titleFile = f
	}

	return p.runFFmpeg(ctx, sceneArgs(spec, titleFile))
}

// ApplyBranding overlays the logo (top right) and watermark (bottom right).
func (p *FFmpegProcessor) ApplyBranding(ctx context.Context, input, output string, b Branding) error {
	if b.Empty() {
		return p.copyFile(input, output)
	}

	var watermarkFile string
	if b.Watermark != "" {
		f, err := writeTextFile(filepath.Dir(output), b.Watermark)
		if err != nil {
			return err
		}
		defer func() { _ = os.Remove(f) }()
		watermarkFile = f
	}

	return p.runFFmpeg(ctx, brandingArgs(input, output, b, watermarkFile))
}

// ConvertToWAV converts src to mono 16 kHz PCM WAV at dst.
func (p *FFmpegProcessor) ConvertToWAV(ctx context.Context, src, dst string) error {
	args := []string{
		"-y",
		"-i", src,
		"-ac", "1",
		"-ar", "16000",
		"-c:a", "pcm_s16le",
		dst,
	}
	return p.runFFmpeg(ctx, args)
}

// JoinVideos concatenates multiple video files into a single output file.
// It first attempts a fast copy (no re-encoding) and falls back to re-encoding
// with libx264/aac if the copy fails.
func (p *FFmpegProcessor) JoinVideos(ctx context.Context, videoPaths []string, output string) error {
	if len(videoPaths) == 0 {
		return ErrNoVideoPaths
	}

	if len(videoPaths) == 1 {
		return p.copyFile(videoPaths[0], output)
	}

	listFile, err := p.createConcatList(filepath.Dir(output), videoPaths)
	if err != nil {
		return fmt.Errorf("media: create concat list: %w", err)
	}
	defer func() { _ = os.Remove(listFile) }()

	if err := p.joinWithCopy(ctx, listFile, output); err == nil {
		return nil
	}

	return p.joinWithReencode(ctx, listFile, output)
}

func (p *FFmpegProcessor) joinWithCopy(ctx context.Context, listFile, output string) error {
	args := []string{
		"-y",
		"-f", "concat",
		"-safe", "0",
		"-i", listFile,
		"-c", "copy",
		output,
	}
	return p.runFFmpeg(ctx, args)
}

func (p *FFmpegProcessor) joinWithReencode(ctx context.Context, listFile, output string) error {
	args := []string{
		"-y",
		"-f", "concat",
		"-safe", "0",
		"-i", listFile,
		"-c:v", "libx264",
		"-preset", "fast",
		"-crf", "23",
		"-pix_fmt", "yuv420p",
		"-c:a", "aac",
		"-b:a", "128k",
		output,
	}
	return p.runFFmpeg(ctx, args)
}

// createConcatList writes the file list for ffmpeg's concat demuxer.
func (p *FFmpegProcessor) createConcatList(dir string, videoPaths []string) (string, error) {
	f, err := os.CreateTemp(dir, "concat-*.txt")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer func() { _ = f.Close() }()

	for _, path := range videoPaths {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("get absolute path for %s: %w", path, err)
		}
		escapedPath := strings.ReplaceAll(absPath, "'", "'\\''")
		if _, err := fmt.Fprintf(f, "file '%s'\n", escapedPath); err != nil {
			return "", fmt.Errorf("write to concat list: %w", err)
		}
	}

	return f.Name(), nil
}

func (p *FFmpegProcessor) copyFile(src, dst string) error {
	input, err := os.ReadFile(src) // #nosec G304 - src is provided by trusted internal code
	if err != nil {
		return fmt.Errorf("media: read source file: %w", err)
	}
	if err := os.WriteFile(dst, input, 0600); err != nil {
		return fmt.Errorf("media: write destination file: %w", err)
	}
	return nil
}

func writeTextFile(dir, text string) (string, error) {
	f, err := os.CreateTemp(dir, "text-*.txt")
	if err != nil {
		return "", fmt.Errorf("media: create text file: %w", err)
	}
	defer func() { _ = f.Close() }()
	if _, err := f.WriteString(text); err != nil {
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("media: write text file: %w", err)
	}
	return f.Name(), nil
}

// runFFmpeg executes ffmpeg with the given arguments and returns an error
// containing stderr output if the command fails.
func (p *FFmpegProcessor) runFFmpeg(ctx context.Context, args []string) error {
	// #nosec G204 - ffmpegPath is set by the application, not user input
	cmd := exec.CommandContext(ctx, p.ffmpegPath, append([]string{"-hide_banner", "-loglevel", "error"}, args...)...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("media: ffmpeg cancelled: %w", ctx.Err())
		}
		return &FFmpegError{
			Args:   args,
			Stderr: stderr.String(),
			Err:    err,
		}
	}

	return nil
}

// FFmpegError represents an error from running ffmpeg, including the stderr output.
type FFmpegError struct {
	Args   []string
	Stderr string
	Err    error
}

func (e *FFmpegError) Error() string {
	return fmt.Sprintf("ffmpeg error: %v\nargs: %v\nstderr: %s", e.Err, e.Args, e.Stderr)
}

func (e *FFmpegError) Unwrap() error {
	return e.Err
}

// GetMediaDuration returns the duration in seconds of a media file.
func (p *FFmpegProcessor) GetMediaDuration(ctx context.Context, path string) (float64, error) {
	// #nosec G204 - ffprobePath is set by the application, not user input
	cmd := exec.CommandContext(ctx, p.ffprobePath,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return 0, fmt.Errorf("media: ffprobe cancelled: %w", ctx.Err())
		}
		return 0, fmt.Errorf("%w: %w, stderr: %s", ErrFFprobeExecution, err, stderr.String())
	}

	var duration float64
	if _, err := fmt.Sscanf(strings.TrimSpace(stdout.String()), "%f", &duration); err != nil {
		return 0, fmt.Errorf("media: parse duration: %w", err)
	}

	return duration, nil
}
