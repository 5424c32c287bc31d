// Package run provides the Run aggregate that tracks one storyboard-to-video
// execution for the API: its status, current pipeline stage, progress and
// outputs, plus the repository used to look runs up by ID.
package run

import (
	"errors"
	"sync"
	"time"

	"github.com/maauso/newsvideo-api/internal/run/id"
)

// Status represents the current state of a Run.
type Status string

const (
	// StatusQueued indicates the run was created but has not started.
	StatusQueued Status = "QUEUED"
	// StatusRunning indicates the pipeline is executing.
	StatusRunning Status = "RUNNING"
	// StatusCompleted indicates a final video was produced.
	StatusCompleted Status = "COMPLETED"
	// StatusFailed indicates the run ended without a final video.
	StatusFailed Status = "FAILED"
)

// ErrInvalidTransition is returned when an invalid state transition is attempted.
var ErrInvalidTransition = errors.New("run: invalid state transition")

var validTransitions = map[Status][]Status{
	StatusQueued:    {StatusRunning, StatusFailed},
	StatusRunning:   {StatusCompleted, StatusFailed},
	StatusCompleted: {},
	StatusFailed:    {},
}

func canTransition(from, to Status) bool {
	for _, s := range validTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Run is one execution of the video pipeline.
type Run struct {
	mu sync.RWMutex

	ID    string
	Title string
	// Status is the coarse lifecycle state.
	Status Status
	// Stage is the pipeline state name (initialized, scenes_processed, ...).
	Stage      string
	Progress   int
	SceneCount int
	Error      string
	// FinalVideoPath is the local path of the composed video.
	FinalVideoPath string
	// VideoURL is set when the final video was uploaded.
	VideoURL string

	CreatedAt   time.Time
	UpdatedAt   time.Time
	StartedAt   time.Time
	CompletedAt time.Time
}

// New creates a queued Run with a generated ID.
func New() *Run {
	return NewWithID(id.Generate())
}

// NewWithID creates a queued Run with the given ID.
func NewWithID(runID string) *Run {
	now := time.Now()
	return &Run{
		ID:        runID,
		Status:    StatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// TransitionTo changes the run status.
// Returns ErrInvalidTransition if the transition is not allowed.
func (r *Run) TransitionTo(status Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.transitionLocked(status)
}

func (r *Run) transitionLocked(status Status) error {
	if !canTransition(r.Status, status) {
		return ErrInvalidTransition
	}

	r.Status = status
	r.UpdatedAt = time.Now()

	switch status {
	case StatusRunning:
		r.StartedAt = r.UpdatedAt
	case StatusCompleted, StatusFailed:
		r.CompletedAt = r.UpdatedAt
	}
	return nil
}

// Start transitions the run from QUEUED to RUNNING.
func (r *Run) Start() error {
	return r.TransitionTo(StatusRunning)
}

// Complete records the outputs and transitions to COMPLETED.
func (r *Run) Complete(videoPath, videoURL string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.transitionLocked(StatusCompleted); err != nil {
		return err
	}
	r.FinalVideoPath = videoPath
	r.VideoURL = videoURL
	r.Progress = 100
	return nil
}

// Fail records errMsg and transitions to FAILED.
func (r *Run) Fail(errMsg string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.transitionLocked(StatusFailed); err != nil {
		return err
	}
	r.Error = errMsg
	return nil
}

// SetStage records the current pipeline stage and progress (clamped to
// 0-100).
func (r *Run) SetStage(stage string, progress int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Stage = stage
	r.Progress = max(0, min(progress, 100))
	r.UpdatedAt = time.Now()
}

// GetStatus returns the current status (thread-safe).
func (r *Run) GetStatus() Status {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.Status
}

// IsTerminal returns true if the run is completed or failed.
func (r *Run) IsTerminal() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(validTransitions[r.Status]) == 0
}

// Clone creates a copy of the run for safe reads.
func (r *Run) Clone() *Run {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return &Run{
		ID:             r.ID,
		Title:          r.Title,
		Status:         r.Status,
		Stage:          r.Stage,
		Progress:       r.Progress,
		SceneCount:     r.SceneCount,
		Error:          r.Error,
		FinalVideoPath: r.FinalVideoPath,
		VideoURL:       r.VideoURL,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
		StartedAt:      r.StartedAt,
		CompletedAt:    r.CompletedAt,
	}
}
