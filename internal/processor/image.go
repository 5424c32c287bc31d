package processor

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/h2non/filetype"
	"golang.org/x/sync/errgroup"
)

const (
	defaultImageConcurrency = 5
	defaultFetchTimeout     = 30 * time.Second
	dataImagePrefix         = "data:image"
)

// Static errors for image retrieval.
var (
	// ErrNoOutputDir is returned when a batch has no output directory.
	ErrNoOutputDir = errors.New("processor: output directory is required")
	// ErrNotAnImage is returned when fetched bytes are not a recognised image.
	ErrNotAnImage = errors.New("processor: payload is not an image")
	// ErrFetchStatus is returned for non-200 responses when fetching an image.
	ErrFetchStatus = errors.New("processor: unexpected status fetching image")
	// ErrInvalidDataURI is returned for malformed inline data URIs.
	ErrInvalidDataURI = errors.New("processor: invalid data URI")
)

// ImageBatch is the input of ImageProcessor: one reference per scene.
type ImageBatch struct {
	Refs      []string
	OutputDir string
	Title     string
}

// ImageProcessor downloads scene images (or decodes inline data URIs) into
// the run directory.
type ImageProcessor struct {
	httpClient  *http.Client
	concurrency int
	timeout     time.Duration
	logger      *slog.Logger
}

// ImageOption configures an ImageProcessor.
type ImageOption func(*ImageProcessor)

// WithImageHTTPClient sets the client used to fetch remote images.
func WithImageHTTPClient(hc *http.Client) ImageOption {
	return func(p *ImageProcessor) {
		if hc != nil {
			p.httpClient = hc
		}
	}
}

// WithImageConcurrency caps the number of parallel fetches.
func WithImageConcurrency(n int) ImageOption {
	return func(p *ImageProcessor) {
		if n > 0 {
			p.concurrency = n
		}
	}
}

// WithFetchTimeout sets the per-image fetch timeout.
func WithFetchTimeout(d time.Duration) ImageOption {
	return func(p *ImageProcessor) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// NewImageProcessor creates an ImageProcessor.
func NewImageProcessor(logger *slog.Logger, opts ...ImageOption) *ImageProcessor {
	if logger == nil {
		logger = slog.Default()
	}
	p := &ImageProcessor{
		httpClient:  http.DefaultClient,
		concurrency: defaultImageConcurrency,
		timeout:     defaultFetchTimeout,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name implements Processor.
func (p *ImageProcessor) Name() string { return "image_processor" }

// Validate implements Processor.
func (p *ImageProcessor) Validate(in ImageBatch) error {
	if in.OutputDir == "" {
		return ErrNoOutputDir
	}
	return nil
}

// Process implements Processor. Individual failures are logged and skipped;
// only a failure to create the output directory aborts the batch.
func (p *ImageProcessor) Process(ctx context.Context, in ImageBatch, t *Tracker) ([]Artifact, error) {
	if len(in.Refs) == 0 {
		return []Artifact{}, nil
	}
	if err := os.MkdirAll(in.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("create image dir: %w", err)
	}

	results := make([]*Artifact, len(in.Refs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(len(in.Refs), p.concurrency))

	for i, ref := range in.Refs {
		ref = strings.TrimSpace(ref)
		if ref == "" {
			t.Step(len(in.Refs))
			continue
		}
		if t.Cancelled() {
			break
		}
		g.Go(func() error {
			defer t.Step(len(in.Refs))

			path := filepath.Join(in.OutputDir, AssetFileName(in.Title, i, ".png"))
			if err := p.retrieve(gctx, ref, path); err != nil {
				p.logger.Warn("image retrieval failed",
					slog.Int("scene", i),
					slog.String("error", err.Error()),
				)
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
	return out, nil
}

func (p *ImageProcessor) retrieve(ctx context.Context, ref, path string) error {
	var (
		data []byte
		err  error
	)
	if strings.HasPrefix(ref, dataImagePrefix) {
		data, err = decodeDataURI(ref)
	} else {
		data, err = p.fetch(ctx, ref)
	}
	if err != nil {
		return err
	}
	if !filetype.IsImage(data) {
		return ErrNotAnImage
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("write image: %w", err)
	}
	return nil
}

func (p *ImageProcessor) fetch(ctx context.Context, url string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch image: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %d", ErrFetchStatus, resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	return data, nil
}

// decodeDataURI decodes "data:image/<type>;base64,<payload>".
func decodeDataURI(ref string) ([]byte, error) {
	_, payload, ok := strings.Cut(ref, ",")
	if !ok || payload == "" {
		return nil, ErrInvalidDataURI
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDataURI, err)
	}
	return data, nil
}
