package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"

	"github.com/maauso/newsvideo-api/internal/pipeline"
	"github.com/maauso/newsvideo-api/internal/run"
	"github.com/maauso/newsvideo-api/internal/storyboard"
	"github.com/maauso/newsvideo-api/internal/video"
)

const maxRequestBody = 8 << 20

// VideoService is the use case layer behind the handlers.
type VideoService interface {
	Generate(ctx context.Context, sb storyboard.Storyboard) (pipeline.Result, error)
	GetRun(ctx context.Context, runID string) (*run.Run, error)
	FinalVideoPath(runID string) (string, error)
}

// Handlers contains the HTTP handlers for the API.
type Handlers struct {
	service   VideoService
	validator *validator.Validate
	logger    *slog.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(service VideoService, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{
		service:   service,
		validator: validator.New(),
		logger:    logger,
	}
}

// Health handles GET /health requests.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// GenerateVideo handles POST /storyboard/gen-video. The run is synchronous:
// the response is written once the final video exists or the run failed.
func (h *Handlers) GenerateVideo(w http.ResponseWriter, r *http.Request) {
	var req GenerateVideoRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&req); err != nil {
		h.logger.Warn("failed to decode request body",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, "invalid JSON body", "INVALID_JSON")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		h.logger.Warn("request validation failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, err.Error(), "VALIDATION_ERROR")
		return
	}

	// The run outlives a dropped client connection.
	res, err := h.service.Generate(context.WithoutCancel(r.Context()), req.ToStoryboard())
	if err != nil {
		if errors.Is(err, video.ErrInvalidStoryboard) {
			writeError(w, http.StatusBadRequest, err.Error(), "INVALID_STORYBOARD")
			return
		}
		h.logger.Error("video generation failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "video generation failed", "GENERATION_FAILED")
		return
	}

	h.logger.Info("video generation finished",
		slog.String("run_id", res.RunID),
		slog.String("status", res.Status),
	)

	writeJSON(w, http.StatusOK, GenerateVideoResponse{
		Status:       res.Status,
		RandomID:     res.RunID,
		ErrorMessage: res.ErrorMessage,
		VideoURL:     res.VideoURL,
	})
}

// GetGeneratedVideo handles GET /storyboard/get-generated-video?id=...
// and streams the final video with range support.
func (h *Handlers) GetGeneratedVideo(w http.ResponseWriter, r *http.Request) {
	runID := r.URL.Query().Get("id")
	if runID == "" {
		writeError(w, http.StatusBadRequest, "id is required", "MISSING_ID")
		return
	}

	path, err := h.service.FinalVideoPath(runID)
	switch {
	case errors.Is(err, video.ErrInvalidID):
		writeError(w, http.StatusBadRequest, "invalid id", "INVALID_ID")
		return
	case errors.Is(err, video.ErrVideoNotFound):
		writeError(w, http.StatusNotFound, "video not found", "VIDEO_NOT_FOUND")
		return
	case err != nil:
		h.logger.Error("failed to locate video",
			slog.String("run_id", runID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to locate video", "VIDEO_LOOKUP_FAILED")
		return
	}

	f, err := os.Open(path) // #nosec G304 - path is resolved from a validated run id
	if err != nil {
		writeError(w, http.StatusNotFound, "video not found", "VIDEO_NOT_FOUND")
		return
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to read video", "VIDEO_READ_FAILED")
		return
	}

	w.Header().Set("Content-Type", "video/mp4")
	http.ServeContent(w, r, filepath.Base(path), info.ModTime(), f)
}

// GetRun handles GET /runs/{id} requests.
func (h *Handlers) GetRun(w http.ResponseWriter, r *http.Request) {
	runID := r.PathValue("id")
	if runID == "" {
		writeError(w, http.StatusBadRequest, "run ID is required", "MISSING_ID")
		return
	}

	found, err := h.service.GetRun(r.Context(), runID)
	if err != nil {
		switch {
		case errors.Is(err, video.ErrInvalidID):
			writeError(w, http.StatusBadRequest, "invalid id", "INVALID_ID")
		case errors.Is(err, run.ErrRunNotFound):
			writeError(w, http.StatusNotFound, "run not found", "RUN_NOT_FOUND")
		default:
			h.logger.Error("failed to get run",
				slog.String("run_id", runID),
				slog.String("error", err.Error()),
			)
			writeError(w, http.StatusInternalServerError, "failed to get run", "RUN_FETCH_FAILED")
		}
		return
	}

	resp := RunResponse{
		ID:         found.ID,
		Title:      found.Title,
		Status:     string(found.Status),
		Stage:      found.Stage,
		Progress:   found.Progress,
		SceneCount: found.SceneCount,
		Error:      found.Error,
		VideoURL:   found.VideoURL,
		CreatedAt:  found.CreatedAt,
	}
	if !found.CompletedAt.IsZero() {
		completed := found.CompletedAt
		resp.CompletedAt = &completed
	}

	writeJSON(w, http.StatusOK, resp)
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
	}
}

// writeError writes an error response in the standard format.
func writeError(w http.ResponseWriter, status int, message, code string) {
	writeJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}
