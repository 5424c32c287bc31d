// Package elevenlabs provides a text-to-speech client for the ElevenLabs API.
// Each call synthesizes one narration and streams the MP3 body to a writer.
package elevenlabs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/maauso/newsvideo-api/internal/remote"
)

const (
	defaultBaseURL = "https://api.elevenlabs.io/v1"
	maxErrorBody   = 4 << 10

	// headerTimeout bounds the wait for the first response byte. The audio
	// body itself is only bounded by the caller's context.
	headerTimeout = 30 * time.Second
)

// Static errors for ElevenLabs client operations.
var (
	// ErrAPIKeyNotSet is returned when no API key is configured.
	ErrAPIKeyNotSet = errors.New("elevenlabs: API key is required")
	// ErrEmptyText is returned when there is nothing to synthesize.
	ErrEmptyText = errors.New("elevenlabs: text is required")
)

// StatusError is returned when the API answers with a non-200 status.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("elevenlabs: unexpected status %d: %s", e.Code, e.Body)
}

// HTTPStatus returns the response status code and body.
func (e *StatusError) HTTPStatus() (int, string) {
	return e.Code, e.Body
}

// VoiceSettings fixes the voice and model used for every narration.
type VoiceSettings struct {
	VoiceID         string
	ModelID         string
	Stability       float64
	SimilarityBoost float64
}

// DefaultVoiceSettings returns the multilingual model with balanced settings.
func DefaultVoiceSettings() VoiceSettings {
	return VoiceSettings{
		VoiceID:         "21m00Tcm4TlvDq8ikWAM",
		ModelID:         "eleven_multilingual_v2",
		Stability:       0.5,
		SimilarityBoost: 0.75,
	}
}

// Client synthesizes speech.
type Client struct {
	api     *remote.Client
	voice   VoiceSettings
	limiter *rate.Limiter
}

// Option configures a Client beyond the transport options.
type Option func(*Client)

// WithVoice overrides the voice settings. Stability and similarity are
// clamped to [0, 1].
func WithVoice(v VoiceSettings) Option {
	return func(c *Client) {
		c.voice = v
	}
}

// WithRateLimit caps the request rate to the API.
func WithRateLimit(r rate.Limit, burst int) Option {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(r, burst)
	}
}

// NewClient creates an ElevenLabs client. The API key is sent in the
// xi-api-key header. Unless transport supplies its own HTTP client, responses
// are streamed without a whole-request timeout.
func NewClient(transport []remote.Option, opts ...Option) (*Client, error) {
	all := append([]remote.Option{
		remote.WithAuthHeader("xi-api-key", ""),
		remote.WithHTTPClient(streamingHTTPClient()),
	}, transport...)
	api := remote.New("elevenlabs", defaultBaseURL, all...)
	if !api.HasAPIKey() {
		return nil, ErrAPIKeyNotSet
	}

	c := &Client{
		api:     api,
		voice:   DefaultVoiceSettings(),
		limiter: rate.NewLimiter(rate.Limit(2), 2),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.voice.Stability = clamp01(c.voice.Stability)
	c.voice.SimilarityBoost = clamp01(c.voice.SimilarityBoost)
	return c, nil
}

type synthesisRequest struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	VoiceSettings voiceSettings `json:"voice_settings"`
}

type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

// Synthesize converts text to speech and streams the MP3 response into w.
// Transport errors, 5xx and 429 responses are retried until audio starts
// flowing; a failure while copying the body is returned as is. A non-200
// response is returned as *StatusError.
func (c *Client) Synthesize(ctx context.Context, text string, w io.Writer) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyText
	}

	payload, err := json.Marshal(synthesisRequest{
		Text:    text,
		ModelID: c.voice.ModelID,
		VoiceSettings: voiceSettings{
			Stability:       c.voice.Stability,
			SimilarityBoost: c.voice.SimilarityBoost,
		},
	})
	if err != nil {
		return fmt.Errorf("elevenlabs: marshal request: %w", err)
	}

	return c.api.Retry(ctx, func(ctx context.Context) error {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("elevenlabs: rate limiter: %w", err)
		}
		return c.stream(ctx, payload, w)
	})
}

func (c *Client) stream(ctx context.Context, payload []byte, w io.Writer) error {
	url := c.api.URL("text-to-speech/" + c.voice.VoiceID + "/stream")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("elevenlabs: create request: %w", err)
	}
	c.api.Authorize(req)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")

	resp, err := c.api.HTTPClient().Do(req)
	if err != nil {
		err = fmt.Errorf("elevenlabs: request failed: %w", err)
		if ctx.Err() != nil {
			return err
		}
		return remote.Retryable(err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		se := &StatusError{Code: resp.StatusCode, Body: string(body)}
		if remote.IsRetryableStatus(resp.StatusCode) {
			return remote.Retryable(se)
		}
		return se
	}

	if _, err := io.Copy(w, resp.Body); err != nil {
		return fmt.Errorf("elevenlabs: stream audio: %w", err)
	}
	return nil
}

func streamingHTTPClient() *http.Client {
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.ResponseHeaderTimeout = headerTimeout
	return &http.Client{Transport: t}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
