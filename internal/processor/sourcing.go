package processor

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
)

// ImageGenerator turns a text prompt into the URL of a generated image.
type ImageGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// SourcingProcessor fills in image URLs for scenes that only carry a prompt.
// Its input is the per-scene prompt list (blank for scenes that already have
// an image or have nothing to generate); its output maps scene index to URL.
type SourcingProcessor struct {
	gen         ImageGenerator
	concurrency int
	logger      *slog.Logger
}

// NewSourcingProcessor creates a SourcingProcessor. concurrency <= 0 uses the
// image pool default.
func NewSourcingProcessor(gen ImageGenerator, concurrency int, logger *slog.Logger) *SourcingProcessor {
	if logger == nil {
		logger = slog.Default()
	}
	if concurrency <= 0 {
		concurrency = defaultImageConcurrency
	}
	return &SourcingProcessor{gen: gen, concurrency: concurrency, logger: logger}
}

// Name implements Processor.
func (p *SourcingProcessor) Name() string { return "image_sourcing" }

// Validate implements Processor.
func (p *SourcingProcessor) Validate([]string) error { return nil }

// Process implements Processor. Failed generations are logged and omitted.
func (p *SourcingProcessor) Process(ctx context.Context, prompts []string, t *Tracker) (map[int]string, error) {
	var (
		mu   sync.Mutex
		urls = make(map[int]string)
	)
	if len(prompts) == 0 {
		return urls, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(len(prompts), p.concurrency))
	for i, prompt := range prompts {
		prompt = strings.TrimSpace(prompt)
		if prompt == "" {
			t.Step(len(prompts))
			continue
		}
		if t.Cancelled() {
			break
		}
		g.Go(func() error {
			defer t.Step(len(prompts))
			url, err := p.gen.Generate(gctx, prompt)
			if err != nil {
				p.logger.Warn("image generation failed",
					slog.Int("scene", i),
					slog.String("error", err.Error()),
				)
				return nil
			}
			mu.Lock()
			urls[i] = url
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return urls, nil
}
