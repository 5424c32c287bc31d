package runpod

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/maauso/newsvideo-api/internal/poll"
	"github.com/maauso/newsvideo-api/internal/remote"
)

const defaultBaseURL = "https://api.runpod.ai/v2"

// Static errors for RunPod client operations.
var (
	// ErrEndpointIDRequired is returned when the endpoint ID is not provided.
	ErrEndpointIDRequired = errors.New("runpod: endpoint ID is required")
	// ErrAPIKeyNotSet is returned when no API key is configured.
	ErrAPIKeyNotSet = errors.New("runpod: RUNPOD_API_KEY is not set")
	// ErrJobIDRequired is returned when the job ID is not provided.
	ErrJobIDRequired = errors.New("runpod: job ID is required")
	// ErrNoJobIDReturned is returned when the submit response contains no job ID.
	ErrNoJobIDReturned = errors.New("runpod: submit failed: no job ID returned")
	// ErrSubmitFailed is returned when the submit operation fails.
	ErrSubmitFailed = errors.New("runpod: submit failed")
	// ErrJobFailed is returned when RunPod reports the job as failed, cancelled or timed out.
	ErrJobFailed = errors.New("runpod: job did not complete")
	// ErrEmptyOutput is returned when a completed job carries no video.
	ErrEmptyOutput = errors.New("runpod: completed job has no video output")
)

// Client defines the interface for the avatar lip-sync service.
type Client interface {
	// Submit uploads the portrait and narration and returns the job ID.
	Submit(ctx context.Context, imageB64, audioB64 string, opts SubmitOptions) (string, error)
	// Poll fetches the current status of a job.
	Poll(ctx context.Context, jobID string) (PollResult, error)
}

// HTTPClient talks to a RunPod serverless endpoint.
type HTTPClient struct {
	api        *remote.Client
	endpointID string
}

var _ Client = (*HTTPClient)(nil)

// NewClient creates a client for endpointID. The API key defaults to
// RUNPOD_API_KEY and can be overridden with remote.WithAPIKey.
func NewClient(endpointID string, opts ...remote.Option) (*HTTPClient, error) {
	if endpointID == "" {
		return nil, ErrEndpointIDRequired
	}

	all := append([]remote.Option{remote.WithAPIKey(os.Getenv("RUNPOD_API_KEY"))}, opts...)
	api := remote.New("runpod", defaultBaseURL, all...)
	if !api.HasAPIKey() {
		return nil, ErrAPIKeyNotSet
	}

	return &HTTPClient{api: api, endpointID: endpointID}, nil
}

// Submit starts a lip-sync job and returns its ID.
func (c *HTTPClient) Submit(ctx context.Context, imageB64, audioB64 string, opts SubmitOptions) (string, error) {
	opts = opts.withDefaults()
	body := map[string]lipSyncInput{
		"input": {
			InputType:   opts.InputType,
			PersonCount: opts.PersonCount,
			Prompt:      opts.Prompt,
			ImageBase64: imageB64,
			WavBase64:   audioB64,
			Width:       opts.Width,
			Height:      opts.Height,
		},
	}

	var resp job
	if err := c.api.DoJSON(ctx, http.MethodPost, c.endpointID+"/run", body, &resp); err != nil {
		return "", err
	}

	switch {
	case resp.ID != "":
		return resp.ID, nil
	case resp.Error != "":
		return "", fmt.Errorf("%w: %s", ErrSubmitFailed, resp.Error)
	default:
		return "", ErrNoJobIDReturned
	}
}

// Poll fetches the current status of a job.
func (c *HTTPClient) Poll(ctx context.Context, jobID string) (PollResult, error) {
	if jobID == "" {
		return PollResult{}, ErrJobIDRequired
	}

	var resp job
	if err := c.api.DoJSON(ctx, http.MethodGet, c.endpointID+"/status/"+jobID, nil, &resp); err != nil {
		return PollResult{}, err
	}

	res := PollResult{Status: resp.Status, Error: resp.Error}
	if resp.Status == StatusCompleted {
		res.VideoBase64 = resp.Output.Video
	}
	return res, nil
}

// Await polls jobID until it reaches a terminal status within the bounds of
// cfg. A job the service reports as failed yields ErrJobFailed; running out of
// attempts yields poll.ErrTimeout.
func Await(ctx context.Context, c Client, jobID string, cfg poll.Config) (PollResult, error) {
	var final PollResult
	err := poll.Until(ctx, cfg, func(ctx context.Context) (bool, error) {
		res, err := c.Poll(ctx, jobID)
		if err != nil {
			return false, err
		}
		if !res.Status.IsTerminal() {
			return false, nil
		}
		if res.Status != StatusCompleted {
			return false, fmt.Errorf("%w: job %s %s: %s", ErrJobFailed, jobID, res.Status, res.Error)
		}
		if res.VideoBase64 == "" {
			return false, fmt.Errorf("%w: job %s", ErrEmptyOutput, jobID)
		}
		final = res
		return true, nil
	})
	if err != nil {
		return PollResult{}, err
	}
	return final, nil
}
