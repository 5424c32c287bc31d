package run

import (
	"testing"

	"github.com/maauso/newsvideo-api/internal/run/id"
)

func TestNew(t *testing.T) {
	r := New()

	if !id.Valid(r.ID) {
		t.Errorf("expected generated ID to be valid, got %q", r.ID)
	}
	if r.Status != StatusQueued {
		t.Errorf("expected status %s, got %s", StatusQueued, r.Status)
	}
	if r.CreatedAt.IsZero() || r.UpdatedAt.IsZero() {
		t.Error("expected timestamps to be set")
	}
}

func TestNewWithID(t *testing.T) {
	r := NewWithID("run-123")

	if r.ID != "run-123" {
		t.Errorf("expected ID run-123, got %s", r.ID)
	}
	if r.Status != StatusQueued {
		t.Errorf("expected status %s, got %s", StatusQueued, r.Status)
	}
}

func TestRun_Transitions(t *testing.T) {
	tests := []struct {
		name    string
		from    Status
		to      Status
		wantErr bool
	}{
		{"QUEUED to RUNNING", StatusQueued, StatusRunning, false},
		{"QUEUED to FAILED", StatusQueued, StatusFailed, false},
		{"RUNNING to COMPLETED", StatusRunning, StatusCompleted, false},
		{"RUNNING to FAILED", StatusRunning, StatusFailed, false},
		{"QUEUED to COMPLETED", StatusQueued, StatusCompleted, true},
		{"COMPLETED to RUNNING", StatusCompleted, StatusRunning, true},
		{"FAILED to RUNNING", StatusFailed, StatusRunning, true},
		{"RUNNING to QUEUED", StatusRunning, StatusQueued, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New()
			r.Status = tt.from

			err := r.TransitionTo(tt.to)
			if tt.wantErr {
				if err != ErrInvalidTransition {
					t.Errorf("expected ErrInvalidTransition, got %v", err)
				}
				if r.Status != tt.from {
					t.Errorf("expected status to remain %s, got %s", tt.from, r.Status)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if r.Status != tt.to {
				t.Errorf("expected status %s, got %s", tt.to, r.Status)
			}
		})
	}
}

func TestRun_Complete(t *testing.T) {
	r := New()
	if err := r.Start(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.StartedAt.IsZero() {
		t.Error("expected StartedAt to be set")
	}

	if err := r.Complete("/out/final_video.mp4", "https://cdn/v.mp4"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if r.Status != StatusCompleted {
		t.Errorf("expected COMPLETED, got %s", r.Status)
	}
	if r.Progress != 100 {
		t.Errorf("expected progress 100, got %d", r.Progress)
	}
	if r.FinalVideoPath != "/out/final_video.mp4" || r.VideoURL != "https://cdn/v.mp4" {
		t.Errorf("unexpected outputs: %q %q", r.FinalVideoPath, r.VideoURL)
	}
	if r.CompletedAt.IsZero() {
		t.Error("expected CompletedAt to be set")
	}
	if !r.IsTerminal() {
		t.Error("expected completed run to be terminal")
	}
}

func TestRun_Fail(t *testing.T) {
	r := New()
	_ = r.Start()

	if err := r.Fail("scene video 2 missing"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Error != "scene video 2 missing" {
		t.Errorf("unexpected error message %q", r.Error)
	}

	// Terminal runs cannot fail twice.
	if err := r.Fail("again"); err != ErrInvalidTransition {
		t.Errorf("expected ErrInvalidTransition, got %v", err)
	}
	if r.Error != "scene video 2 missing" {
		t.Errorf("error message overwritten: %q", r.Error)
	}
}

func TestRun_SetStage(t *testing.T) {
	tests := []struct {
		in   int
		want int
	}{
		{-5, 0},
		{0, 0},
		{40, 40},
		{150, 100},
	}

	for _, tt := range tests {
		r := New()
		r.SetStage("initialized", tt.in)
		if r.Progress != tt.want {
			t.Errorf("SetStage(%d): expected %d, got %d", tt.in, tt.want, r.Progress)
		}
		if r.Stage != "initialized" {
			t.Errorf("expected stage initialized, got %s", r.Stage)
		}
	}
}

func TestRun_Clone(t *testing.T) {
	r := New()
	r.Title = "Budget vote"
	r.SceneCount = 3
	r.SetStage("composed", 80)

	c := r.Clone()
	c.Title = "changed"

	if r.Title != "Budget vote" {
		t.Error("expected original to be unaffected by clone mutation")
	}
	if c.ID != r.ID || c.Stage != "composed" || c.Progress != 80 || c.SceneCount != 3 {
		t.Errorf("clone mismatch: %+v", c)
	}
}

func TestRun_GetStatus(t *testing.T) {
	r := New()
	if r.GetStatus() != StatusQueued {
		t.Errorf("expected QUEUED, got %s", r.GetStatus())
	}
	_ = r.Start()
	if r.GetStatus() != StatusRunning {
		t.Errorf("expected RUNNING, got %s", r.GetStatus())
	}
	if r.IsTerminal() {
		t.Error("running run should not be terminal")
	}
}
