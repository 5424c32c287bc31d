// Package processor provides the uniform lifecycle wrapper for units of work
// in the video pipeline and the leaf processors that produce per-scene
// artifacts: images, narration audio and presenter avatars.
package processor

import (
	"errors"
	"sync"
	"time"
)

// Status is the lifecycle state of a processor run.
type Status string

// Processor statuses.
const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Static errors for processor lifecycle operations.
var (
	// ErrInvalidTransition is returned when a status change is not allowed.
	ErrInvalidTransition = errors.New("processor: invalid status transition")
	// ErrValidation wraps input validation failures.
	ErrValidation = errors.New("processor: invalid input")
	// ErrCancelled is returned when Execute is called on a cancelled tracker.
	ErrCancelled = errors.New("processor: cancelled")
)

var validTransitions = map[Status][]Status{
	StatusPending:   {StatusRunning, StatusCancelled},
	StatusRunning:   {StatusCompleted, StatusFailed, StatusCancelled},
	StatusCompleted: {},
	StatusFailed:    {},
	StatusCancelled: {},
}

func canTransition(from, to Status) bool {
	for _, s := range validTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are possible.
func (s Status) IsTerminal() bool {
	return len(validTransitions[s]) == 0
}

// Snapshot is a point-in-time copy of a tracker's state.
type Snapshot struct {
	Name      string
	Status    Status
	Progress  float64
	Error     string
	StartedAt time.Time
	EndedAt   time.Time
}

// Tracker records the status, progress and timing of one processor run.
// It is safe for concurrent use by the processor's workers.
type Tracker struct {
	mu        sync.Mutex
	name      string
	status    Status
	progress  float64
	errMsg    string
	startedAt time.Time
	endedAt   time.Time
	done      int
	now       func() time.Time
}

// NewTracker returns a pending tracker.
func NewTracker(name string) *Tracker {
	return &Tracker{
		name:   name,
		status: StatusPending,
		now:    time.Now,
	}
}

func (t *Tracker) transitionLocked(to Status) error {
	if !canTransition(t.status, to) {
		return ErrInvalidTransition
	}
	t.status = to
	switch to {
	case StatusRunning:
		t.startedAt = t.now()
	case StatusCompleted, StatusFailed, StatusCancelled:
		if t.endedAt.IsZero() {
			t.endedAt = t.now()
		}
	}
	return nil
}

func (t *Tracker) start() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status == StatusCancelled {
		return ErrCancelled
	}
	return t.transitionLocked(StatusRunning)
}

// finish records the outcome. A run cancelled while in flight stays cancelled.
func (t *Tracker) finish(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status == StatusCancelled {
		return
	}
	if err != nil {
		t.errMsg = err.Error()
		_ = t.transitionLocked(StatusFailed)
		return
	}
	t.progress = 100
	_ = t.transitionLocked(StatusCompleted)
}

// Cancel marks the run cancelled. Work already in flight is not interrupted;
// processors stop scheduling new items once they observe Cancelled.
func (t *Tracker) Cancel() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.transitionLocked(StatusCancelled)
}

// Cancelled reports whether Cancel has been called.
func (t *Tracker) Cancelled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status == StatusCancelled
}

// Report sets progress as a percentage, clamped to [0, 100]. Progress never
// moves backwards.
func (t *Tracker) Report(pct float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.reportLocked(pct)
}

func (t *Tracker) reportLocked(pct float64) {
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	if pct > t.progress {
		t.progress = pct
	}
}

// Step counts one finished item out of total and updates progress.
func (t *Tracker) Step(total int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.done++
	if total > 0 {
		t.reportLocked(float64(t.done) * 100 / float64(total))
	}
}

// Status returns the current status.
func (t *Tracker) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

// Progress returns the current progress percentage.
func (t *Tracker) Progress() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.progress
}

// ExecutionTime returns the elapsed wall-clock time of the run. It is zero
// before the run starts and fixed once the run has ended.
func (t *Tracker) ExecutionTime() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.startedAt.IsZero() {
		return 0
	}
	end := t.endedAt
	if end.IsZero() {
		end = t.now()
	}
	if d := end.Sub(t.startedAt); d > 0 {
		return d
	}
	return 0
}

// Snapshot returns a copy of the tracker state.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Snapshot{
		Name:      t.name,
		Status:    t.status,
		Progress:  t.progress,
		Error:     t.errMsg,
		StartedAt: t.startedAt,
		EndedAt:   t.endedAt,
	}
}
