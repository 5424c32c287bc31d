// Package remote provides the JSON-over-HTTPS client shared by the generation
// service clients (avatar, image). It handles authentication headers and
// exponential-backoff retries on transport errors, 5xx and 429 responses.
package remote

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
)

// Static errors for remote requests.
var (
	// ErrServerError is returned when the server returns a 5xx status code.
	ErrServerError = errors.New("server error")
	// ErrRateLimited is returned when the server returns a 429 status code.
	ErrRateLimited = errors.New("rate limited")
	// ErrRequestFailed is returned when the request fails with a non-2xx status code.
	ErrRequestFailed = errors.New("request failed")
)

// Client performs authenticated JSON requests against a single service.
type Client struct {
	service     string
	baseURL     string
	apiKey      string
	authHeader  string
	authScheme  string
	httpClient  *http.Client
	maxRetries  int
	baseBackoff time.Duration
}

// Option is a function that configures a Client.
type Option func(*Client)

// WithAPIKey sets the API key for authentication.
func WithAPIKey(key string) Option {
	return func(c *Client) {
		c.apiKey = key
	}
}

// WithAuthHeader sets the header carrying the API key and an optional scheme
// prefix. The default is "Authorization: Bearer <key>".
func WithAuthHeader(header, scheme string) Option {
	return func(c *Client) {
		c.authHeader = header
		c.authScheme = scheme
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithBaseURL sets a custom base URL.
func WithBaseURL(url string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(url, "/")
	}
}

// WithMaxRetries sets the maximum number of retries for transient failures.
func WithMaxRetries(n int) Option {
	return func(c *Client) {
		c.maxRetries = n
	}
}

// WithBaseBackoff sets the initial backoff duration for retries.
func WithBaseBackoff(d time.Duration) Option {
	return func(c *Client) {
		c.baseBackoff = d
	}
}

// New creates a Client for the named service. The name prefixes every error.
func New(service, baseURL string, opts ...Option) *Client {
	c := &Client{
		service:     service,
		baseURL:     strings.TrimRight(baseURL, "/"),
		authHeader:  "Authorization",
		authScheme:  "Bearer",
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		maxRetries:  3,
		baseBackoff: 1 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// HasAPIKey reports whether an API key is configured.
func (c *Client) HasAPIKey() bool {
	return c.apiKey != ""
}

// URL joins path onto the base URL.
func (c *Client) URL(path string) string {
	return c.baseURL + "/" + strings.TrimLeft(path, "/")
}

// HTTPClient returns the underlying HTTP client.
func (c *Client) HTTPClient() *http.Client {
	return c.httpClient
}

// Authorize sets the configured auth header on req.
func (c *Client) Authorize(req *http.Request) {
	if c.apiKey == "" {
		return
	}
	value := c.apiKey
	if c.authScheme != "" {
		value = c.authScheme + " " + c.apiKey
	}
	req.Header.Set(c.authHeader, value)
}

// DoJSON marshals body (if non-nil), sends it to path and decodes the response
// into result (if non-nil), retrying transient failures with exponential backoff.
func (c *Client) DoJSON(ctx context.Context, method, path string, body, result any) error {
	var payload []byte
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: marshal request: %w", c.service, err)
		}
		payload = b
	}

	return c.Retry(ctx, func(ctx context.Context) error {
		return c.do(ctx, method, c.URL(path), payload, result)
	})
}

// Retry calls fn until it succeeds or returns an error not marked with
// Retryable, waiting with exponential backoff between attempts. At most
// maxRetries retries are made.
func (c *Client) Retry(ctx context.Context, fn func(context.Context) error) error {
	var lastErr error
	backoff := c.baseBackoff

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return fmt.Errorf("%s: context cancelled: %w", c.service, ctx.Err())
			case <-time.After(backoff):
				backoff *= 2
			}
		}

		err := fn(ctx)
		if err == nil {
			return nil
		}
		if !isRetryable(err) {
			return err
		}
		lastErr = err
	}

	return fmt.Errorf("%s: max retries exceeded: %w", c.service, lastErr)
}

func (c *Client) do(ctx context.Context, method, url string, body []byte, result any) error {
	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return fmt.Errorf("%s: create request: %w", c.service, err)
	}
	c.Authorize(req)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("%s: request cancelled: %w", c.service, ctx.Err())
		}
		return &retryableError{err: fmt.Errorf("%s: request failed: %w", c.service, err)}
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &retryableError{err: fmt.Errorf("%s: read response: %w", c.service, err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if resp.StatusCode >= 500 {
			return &retryableError{err: fmt.Errorf("%s: %w %d: %s", c.service, ErrServerError, resp.StatusCode, string(respBody))}
		}
		if resp.StatusCode == http.StatusTooManyRequests {
			return &retryableError{err: fmt.Errorf("%s: %w: %s", c.service, ErrRateLimited, string(respBody))}
		}
		return fmt.Errorf("%s: %w with status %d: %s", c.service, ErrRequestFailed, resp.StatusCode, string(respBody))
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("%s: unmarshal response: %w", c.service, err)
		}
	}

	return nil
}

// Retryable marks err as transient so that Retry tries again.
func Retryable(err error) error {
	return &retryableError{err: err}
}

// IsRetryableStatus reports whether an HTTP status is worth retrying.
func IsRetryableStatus(code int) bool {
	return code >= 500 || code == http.StatusTooManyRequests
}

// retryableError wraps errors that should be retried.
type retryableError struct {
	err error
}

func (e *retryableError) Error() string {
	return e.err.Error()
}

func (e *retryableError) Unwrap() error {
	return e.err
}

func isRetryable(err error) bool {
	var re *retryableError
	return errors.As(err, &re)
}
