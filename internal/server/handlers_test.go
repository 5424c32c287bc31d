package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/maauso/newsvideo-api/internal/pipeline"
	"github.com/maauso/newsvideo-api/internal/run"
	"github.com/maauso/newsvideo-api/internal/storyboard"
	"github.com/maauso/newsvideo-api/internal/video"
)

const testRunID = "3f2b8c4e-1d2a-4b5c-9e8f-0a1b2c3d4e5f"

// mockService implements VideoService for testing.
type mockService struct {
	mock.Mock
}

func (m *mockService) Generate(ctx context.Context, sb storyboard.Storyboard) (pipeline.Result, error) {
	args := m.Called(ctx, sb)
	return args.Get(0).(pipeline.Result), args.Error(1)
}

func (m *mockService) GetRun(ctx context.Context, runID string) (*run.Run, error) {
	args := m.Called(ctx, runID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*run.Run), args.Error(1)
}

func (m *mockService) FinalVideoPath(runID string) (string, error) {
	args := m.Called(runID)
	return args.String(0), args.Error(1)
}

func newTestRouter(svc VideoService) http.Handler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewRouter(NewHandlers(svc, logger), logger, DefaultConfig())
}

func validBody(t *testing.T) []byte {
	t.Helper()
	body, err := json.Marshal(map[string]any{
		"title": "Rates decision",
		"storyboard": []map[string]any{
			{"text": "intro", "imageUrl": "https://img/0.png", "needAvatar": true},
			{"text": "body", "voiceover": "spoken body", "imagePrompt": "central bank"},
		},
	})
	require.NoError(t, err)
	return body
}

func TestHealth(t *testing.T) {
	router := newTestRouter(&mockService{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp HealthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "ok", resp.Status)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestGenerateVideo_Success(t *testing.T) {
	svc := &mockService{}
	svc.On("Generate", mock.Anything, mock.MatchedBy(func(sb storyboard.Storyboard) bool {
		return sb.Title == "Rates decision" &&
			len(sb.Scenes) == 2 &&
			sb.Scenes[0].NeedAvatar &&
			sb.Scenes[1].Index == 1 &&
			sb.Scenes[1].Voiceover == "spoken body" &&
			sb.Scenes[1].ImagePrompt == "central bank"
	})).Return(pipeline.Result{
		Status:   pipeline.StatusSuccess,
		RunID:    testRunID,
		VideoURL: "https://cdn/v.mp4",
	}, nil)
	router := newTestRouter(svc)

	req := httptest.NewRequest(http.MethodPost, "/storyboard/gen-video", bytes.NewReader(validBody(t)))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp GenerateVideoResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "success", resp.Status)
	assert.Equal(t, testRunID, resp.RandomID)
	assert.Equal(t, "https://cdn/v.mp4", resp.VideoURL)
	assert.Empty(t, resp.ErrorMessage)
	svc.AssertExpectations(t)
}

func TestGenerateVideo_RunFailureIs200(t *testing.T) {
	svc := &mockService{}
	svc.On("Generate", mock.Anything, mock.Anything).Return(pipeline.Result{
		Status:       pipeline.StatusError,
		RunID:        testRunID,
		ErrorMessage: "scene video missing: scenes [1]",
	}, nil)
	router := newTestRouter(svc)

	req := httptest.NewRequest(http.MethodPost, "/storyboard/gen-video", bytes.NewReader(validBody(t)))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp GenerateVideoResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, testRunID, resp.RandomID)
	assert.Contains(t, resp.ErrorMessage, "scenes [1]")
}

func TestGenerateVideo_BadRequests(t *testing.T) {
	tests := []struct {
		name string
		body string
		code string
	}{
		{"invalid json", "{not json", "INVALID_JSON"},
		{"missing title", `{"storyboard":[{"text":"a"}]}`, "VALIDATION_ERROR"},
		{"empty storyboard", `{"title":"t","storyboard":[]}`, "VALIDATION_ERROR"},
		{"scene without text", `{"title":"t","storyboard":[{"voiceover":"v"}]}`, "VALIDATION_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockService{}
			router := newTestRouter(svc)

			req := httptest.NewRequest(http.MethodPost, "/storyboard/gen-video", bytes.NewReader([]byte(tt.body)))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			var resp ErrorResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
			assert.Equal(t, tt.code, resp.Code)
			svc.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)
		})
	}
}

func TestGenerateVideo_InitializeRejected(t *testing.T) {
	svc := &mockService{}
	svc.On("Generate", mock.Anything, mock.Anything).
		Return(pipeline.Result{}, errors.Join(video.ErrInvalidStoryboard, storyboard.ErrEmptyNarration))
	router := newTestRouter(svc)

	req := httptest.NewRequest(http.MethodPost, "/storyboard/gen-video", bytes.NewReader(validBody(t)))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "INVALID_STORYBOARD", resp.Code)
}

func TestGenerateVideo_UnexpectedError(t *testing.T) {
	svc := &mockService{}
	svc.On("Generate", mock.Anything, mock.Anything).Return(pipeline.Result{}, errors.New("boom"))
	router := newTestRouter(svc)

	req := httptest.NewRequest(http.MethodPost, "/storyboard/gen-video", bytes.NewReader(validBody(t)))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestGenerateVideo_PanicRecovered(t *testing.T) {
	svc := &mockService{}
	svc.On("Generate", mock.Anything, mock.Anything).Run(func(mock.Arguments) {
		panic("pipeline exploded")
	}).Return(pipeline.Result{}, nil)
	router := newTestRouter(svc)

	req := httptest.NewRequest(http.MethodPost, "/storyboard/gen-video", bytes.NewReader(validBody(t)))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "INTERNAL_ERROR", resp.Code)
}

func TestGetGeneratedVideo(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "final_video.mp4")
	content := []byte("0123456789fake-mp4-bytes")
	require.NoError(t, os.WriteFile(path, content, 0600))

	svc := &mockService{}
	svc.On("FinalVideoPath", testRunID).Return(path, nil)
	svc.On("FinalVideoPath", "bad").Return("", video.ErrInvalidID)
	svc.On("FinalVideoPath", "3f2b8c4e-0000-4b5c-9e8f-0a1b2c3d4e5f").Return("", video.ErrVideoNotFound)
	router := newTestRouter(svc)

	t.Run("streams the file", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/storyboard/get-generated-video?id="+testRunID, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "video/mp4", rec.Header().Get("Content-Type"))
		assert.Equal(t, content, rec.Body.Bytes())
	})

	t.Run("honours range requests", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/storyboard/get-generated-video?id="+testRunID, nil)
		req.Header.Set("Range", "bytes=0-9")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusPartialContent, rec.Code)
		assert.Equal(t, "0123456789", rec.Body.String())
	})

	t.Run("missing id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/storyboard/get-generated-video", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("invalid id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/storyboard/get-generated-video?id=bad", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("not found", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/storyboard/get-generated-video?id=3f2b8c4e-0000-4b5c-9e8f-0a1b2c3d4e5f", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestGetRun(t *testing.T) {
	completed := run.NewWithID(testRunID)
	completed.Title = "Rates decision"
	completed.SceneCount = 2
	require.NoError(t, completed.Start())
	completed.SetStage("done", 100)
	require.NoError(t, completed.Complete("/out/final_video.mp4", "https://cdn/v.mp4"))

	svc := &mockService{}
	svc.On("GetRun", mock.Anything, testRunID).Return(completed, nil)
	svc.On("GetRun", mock.Anything, "missing").Return(nil, run.ErrRunNotFound)
	svc.On("GetRun", mock.Anything, "bad").Return(nil, video.ErrInvalidID)
	router := newTestRouter(svc)

	req := httptest.NewRequest(http.MethodGet, "/runs/"+testRunID, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp RunResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, testRunID, resp.ID)
	assert.Equal(t, "COMPLETED", resp.Status)
	assert.Equal(t, "done", resp.Stage)
	assert.Equal(t, 100, resp.Progress)
	assert.Equal(t, 2, resp.SceneCount)
	assert.Equal(t, "https://cdn/v.mp4", resp.VideoURL)
	require.NotNil(t, resp.CompletedAt)
	assert.WithinDuration(t, time.Now(), *resp.CompletedAt, time.Minute)

	for path, code := range map[string]int{"/runs/missing": http.StatusNotFound, "/runs/bad": http.StatusBadRequest} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, code, rec.Code, path)
	}
}

func TestCORSPreflight(t *testing.T) {
	router := newTestRouter(&mockService{})

	req := httptest.NewRequest(http.MethodOptions, "/storyboard/gen-video", nil)
	req.Header.Set("Origin", "https://newsroom.example")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://newsroom.example", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Expose-Headers"), "Content-Range")
}

func TestRequestIDPropagated(t *testing.T) {
	router := newTestRouter(&mockService{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))
}

func TestRequestIDGenerated(t *testing.T) {
	router := newTestRouter(&mockService{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Len(t, rec.Header().Get("X-Request-ID"), 36)
}

func TestCORSRejectsUnknownOrigin(t *testing.T) {
	router := NewRouter(NewHandlers(&mockService{}, nil), nil, Config{AllowedOrigins: []string{"https://newsroom.example"}})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://elsewhere.example")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestStatusLevel(t *testing.T) {
	assert.Equal(t, slog.LevelInfo, statusLevel(http.StatusOK))
	assert.Equal(t, slog.LevelInfo, statusLevel(http.StatusPartialContent))
	assert.Equal(t, slog.LevelWarn, statusLevel(http.StatusNotFound))
	assert.Equal(t, slog.LevelError, statusLevel(http.StatusInternalServerError))
}
