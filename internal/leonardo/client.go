// Package leonardo provides a client for the Leonardo image-generation API.
// Generation is asynchronous: a job is submitted, polled until it finishes,
// and the URL of the first generated image is returned.
package leonardo

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/maauso/newsvideo-api/internal/poll"
	"github.com/maauso/newsvideo-api/internal/remote"
)

const (
	defaultBaseURL = "https://cloud.leonardo.ai/api/rest/v1"
	defaultModelID = "aa77f04e-3eec-4034-9c07-d0f619684628"
)

// Static errors for Leonardo client operations.
var (
	// ErrAPIKeyNotSet is returned when no API key is configured.
	ErrAPIKeyNotSet = errors.New("leonardo: API key is required")
	// ErrEmptyPrompt is returned when the prompt is blank.
	ErrEmptyPrompt = errors.New("leonardo: prompt is required")
	// ErrNoGenerationID is returned when the submit response has no generation ID.
	ErrNoGenerationID = errors.New("leonardo: submit failed: no generation ID returned")
	// ErrGenerationFailed is returned when Leonardo reports the generation as failed.
	ErrGenerationFailed = errors.New("leonardo: generation failed")
)

// Client generates images from text prompts.
type Client struct {
	api     *remote.Client
	params  GenerationParams
	polling poll.Config
}

// Option configures a Client beyond the transport options.
type Option func(*Client)

// WithParams overrides the default generation parameters.
func WithParams(p GenerationParams) Option {
	return func(c *Client) {
		c.params = p
	}
}

// WithPolling overrides the default 5s x 40 polling budget.
func WithPolling(cfg poll.Config) Option {
	return func(c *Client) {
		c.polling = cfg
	}
}

// NewClient creates a Leonardo client. Transport settings (API key, base URL,
// retries) are passed as remote options.
func NewClient(transport []remote.Option, opts ...Option) (*Client, error) {
	api := remote.New("leonardo", defaultBaseURL, transport...)
	if !api.HasAPIKey() {
		return nil, ErrAPIKeyNotSet
	}

	c := &Client{
		api:     api,
		params:  DefaultGenerationParams(),
		polling: poll.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Submit starts a generation for prompt and returns its generation ID.
func (c *Client) Submit(ctx context.Context, prompt string) (string, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", ErrEmptyPrompt
	}

	req := generationRequest{
		Prompt:      prompt,
		ModelID:     c.params.ModelID,
		Width:       c.params.Width,
		Height:      c.params.Height,
		NumImages:   1,
		Alchemy:     c.params.Alchemy,
		PresetStyle: c.params.PresetStyle,
	}

	var resp generationResponse
	if err := c.api.DoJSON(ctx, http.MethodPost, "generations", req, &resp); err != nil {
		return "", err
	}
	if resp.Job.GenerationID == "" {
		return "", ErrNoGenerationID
	}
	return resp.Job.GenerationID, nil
}

// Poll fetches the current state of a generation.
func (c *Client) Poll(ctx context.Context, generationID string) (Generation, error) {
	var resp statusResponse
	if err := c.api.DoJSON(ctx, http.MethodGet, "generations/"+generationID, nil, &resp); err != nil {
		return Generation{}, err
	}

	g := Generation{Status: Status(resp.Generation.Status)}
	for _, img := range resp.Generation.Images {
		if img.URL != "" {
			g.ImageURLs = append(g.ImageURLs, img.URL)
		}
	}
	return g, nil
}

// Generate submits prompt, waits for the generation to finish and returns the
// URL of the first image. Exhausting the polling budget returns poll.ErrTimeout;
// a generation Leonardo marks as failed returns ErrGenerationFailed.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	id, err := c.Submit(ctx, prompt)
	if err != nil {
		return "", err
	}

	var url string
	err = poll.Until(ctx, c.polling, func(ctx context.Context) (bool, error) {
		g, err := c.Poll(ctx, id)
		if err != nil {
			return false, err
		}
		if g.Status == StatusFailed {
			return false, fmt.Errorf("%w: generation %s", ErrGenerationFailed, id)
		}
		if len(g.ImageURLs) == 0 {
			return false, nil
		}
		url = g.ImageURLs[0]
		return true, nil
	})
	if err != nil {
		return "", err
	}
	return url, nil
}
