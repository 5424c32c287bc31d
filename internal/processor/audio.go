package processor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"
)

const defaultAudioConcurrency = 2

// ErrEmptyNarration is returned for a scene with nothing to narrate.
var ErrEmptyNarration = errors.New("processor: narration is empty")

// Synthesizer converts narration text to speech, streaming the encoded audio
// to w.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string, w io.Writer) error
}

// httpStatusError is implemented by synthesizer errors that carry the
// remote status code and response body.
type httpStatusError interface {
	HTTPStatus() (int, string)
}

// AudioBatch is the input of AudioProcessor: one narration per scene.
type AudioBatch struct {
	Narrations []string
	OutputDir  string
	Title      string
}

// AudioProcessor synthesizes scene narrations to MP3 files.
type AudioProcessor struct {
	tts         Synthesizer
	concurrency int
	logger      *slog.Logger
}

// NewAudioProcessor creates an AudioProcessor. concurrency <= 0 uses the
// default of 2 parallel calls.
func NewAudioProcessor(tts Synthesizer, concurrency int, logger *slog.Logger) *AudioProcessor {
	if logger == nil {
		logger = slog.Default()
	}
	if concurrency <= 0 {
		concurrency = defaultAudioConcurrency
	}
	return &AudioProcessor{tts: tts, concurrency: concurrency, logger: logger}
}

// Name implements Processor.
func (p *AudioProcessor) Name() string { return "audio_processor" }

// Validate implements Processor.
func (p *AudioProcessor) Validate(in AudioBatch) error {
	if in.OutputDir == "" {
		return ErrNoOutputDir
	}
	return nil
}

// Process implements Processor. It returns the successful artifacts in
// ascending scene order.
func (p *AudioProcessor) Process(ctx context.Context, in AudioBatch, t *Tracker) ([]Artifact, error) {
	if len(in.Narrations) == 0 {
		return []Artifact{}, nil
	}
	if err := os.MkdirAll(in.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("create audio dir: %w", err)
	}

	results := make([]*Artifact, len(in.Narrations))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(len(in.Narrations), p.concurrency))

	for i, text := range in.Narrations {
		if t.Cancelled() {
			break
		}
		g.Go(func() error {
			defer t.Step(len(in.Narrations))

			path := filepath.Join(in.OutputDir, AssetFileName(in.Title, i, ".mp3"))
			if err := p.synthesize(gctx, text, path); err != nil {
				attrs := []any{slog.Int("scene", i), slog.String("error", err.Error())}
				var se httpStatusError
				if errors.As(err, &se) {
					code, body := se.HTTPStatus()
					attrs = append(attrs, slog.Int("status", code), slog.String("body", body))
				}
				p.logger.Warn("audio synthesis failed", attrs...)
				return nil
			}
			results[i] = &Artifact{Index: i, Path: path}
			return nil
		})
	}
	_ = g.Wait()

	out := make([]Artifact, 0, len(results))
	for _, r := range results {
		if r != nil {
			out = append(out, *r)
		}
	}
	SortArtifacts(out)
	return out, nil
}

func (p *AudioProcessor) synthesize(ctx context.Context, text, path string) (err error) {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyNarration
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create audio file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("close audio file: %w", cerr)
		}
		if err != nil {
			_ = os.Remove(path)
		}
	}()

	return p.tts.Synthesize(ctx, text, f)
}

// GenerateAll synthesizes every narration in the batch. ok is true only when
// each scene produced a file.
func (p *AudioProcessor) GenerateAll(ctx context.Context, in AudioBatch) (bool, []Artifact) {
	out, err := Execute[AudioBatch, []Artifact](ctx, p, NewTracker(p.Name()), in)
	if err != nil {
		p.logger.Error("audio batch failed", slog.String("error", err.Error()))
		return false, nil
	}
	return len(out) == len(in.Narrations), out
}
