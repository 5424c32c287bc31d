// Package server provides the HTTP server for the news video API.
// It includes handlers, middleware, routes, and DTOs separated from domain types.
package server

import (
	"time"

	"github.com/maauso/newsvideo-api/internal/storyboard"
)

// SceneRequest is one storyboard entry of a generation request.
type SceneRequest struct {
	// Text is the on-screen text; it is narrated when Voiceover is empty.
	Text      string `json:"text" validate:"required"`
	Voiceover string `json:"voiceover"`
	// ImageURL is an http(s) URL or a data:image URI.
	ImageURL string `json:"imageUrl"`
	// ImagePrompt generates the image when ImageURL is empty.
	ImagePrompt string `json:"imagePrompt" validate:"max=1000"`
	NeedAvatar  bool   `json:"needAvatar"`
}

// GenerateVideoRequest is the HTTP request body for POST /storyboard/gen-video.
type GenerateVideoRequest struct {
	Title      string         `json:"title" validate:"required,max=200"`
	Storyboard []SceneRequest `json:"storyboard" validate:"required,min=1,dive"`
}

// ToStoryboard converts the request to the domain type.
func (r GenerateVideoRequest) ToStoryboard() storyboard.Storyboard {
	sb := storyboard.Storyboard{
		Title:  r.Title,
		Scenes: make([]storyboard.Scene, len(r.Storyboard)),
	}
	for i, s := range r.Storyboard {
		sb.Scenes[i] = storyboard.Scene{
			Index:       i,
			ImageURL:    s.ImageURL,
			ImagePrompt: s.ImagePrompt,
			Text:        s.Text,
			Voiceover:   s.Voiceover,
			NeedAvatar:  s.NeedAvatar,
		}
	}
	return sb
}

// GenerateVideoResponse is the HTTP response of a generation run.
type GenerateVideoResponse struct {
	// Status is "success" or "error".
	Status string `json:"status"`
	// RandomID is the run id; pass it to get-generated-video.
	RandomID     string `json:"random_id"`
	ErrorMessage string `json:"error_message,omitempty"`
	// VideoURL is set when the final video was uploaded.
	VideoURL string `json:"video_url,omitempty"`
}

// RunResponse is the HTTP response for GET /runs/{id}.
type RunResponse struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Status      string     `json:"status"`
	Stage       string     `json:"stage"`
	Progress    int        `json:"progress"`
	SceneCount  int        `json:"scene_count"`
	Error       string     `json:"error,omitempty"`
	VideoURL    string     `json:"video_url,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	// Error is the human-readable error message.
	Error string `json:"error"`
	// Code is the error code for programmatic handling.
	Code string `json:"code"`
}

// HealthResponse is the HTTP response for the health check endpoint.
type HealthResponse struct {
	// Status is the health status of the service.
	Status string `json:"status"`
}
