package processor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProcessor struct {
	validateErr error
	process     func(ctx context.Context, in string, t *Tracker) (string, error)
}

func (s *stubProcessor) Name() string { return "stub" }

func (s *stubProcessor) Validate(string) error { return s.validateErr }

func (s *stubProcessor) Process(ctx context.Context, in string, t *Tracker) (string, error) {
	return s.process(ctx, in, t)
}

func TestTracker_Report(t *testing.T) {
	tr := NewTracker("x")

	tr.Report(40)
	assert.Equal(t, 40.0, tr.Progress())

	tr.Report(20)
	assert.Equal(t, 40.0, tr.Progress(), "progress must not decrease")

	tr.Report(250)
	assert.Equal(t, 100.0, tr.Progress())

	tr2 := NewTracker("y")
	tr2.Report(-5)
	assert.Equal(t, 0.0, tr2.Progress())
}

func TestTracker_StepIsConcurrencySafe(t *testing.T) {
	tr := NewTracker("x")

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tr.Step(50)
		}()
	}
	wg.Wait()

	assert.InDelta(t, 100.0, tr.Progress(), 0.001)
}

func TestTracker_ExecutionTimeFrozenAfterEnd(t *testing.T) {
	tr := NewTracker("x")
	assert.Zero(t, tr.ExecutionTime())

	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tr.now = func() time.Time { return clock }

	require.NoError(t, tr.start())
	clock = clock.Add(2 * time.Second)
	assert.Equal(t, 2*time.Second, tr.ExecutionTime())

	tr.finish(nil)
	clock = clock.Add(time.Hour)
	assert.Equal(t, 2*time.Second, tr.ExecutionTime())
}

func TestTracker_Transitions(t *testing.T) {
	tr := NewTracker("x")
	require.NoError(t, tr.start())
	assert.ErrorIs(t, tr.start(), ErrInvalidTransition)

	tr.finish(nil)
	assert.Equal(t, StatusCompleted, tr.Status())
	assert.True(t, tr.Status().IsTerminal())
	assert.ErrorIs(t, tr.Cancel(), ErrInvalidTransition)
}

func TestExecute_Success(t *testing.T) {
	p := &stubProcessor{process: func(_ context.Context, in string, tr *Tracker) (string, error) {
		tr.Report(50)
		return in + "!", nil
	}}
	tr := NewTracker(p.Name())

	out, err := Execute[string, string](context.Background(), p, tr, "hi")

	require.NoError(t, err)
	assert.Equal(t, "hi!", out)
	snap := tr.Snapshot()
	assert.Equal(t, StatusCompleted, snap.Status)
	assert.Equal(t, 100.0, snap.Progress)
	assert.Empty(t, snap.Error)
	assert.False(t, snap.EndedAt.Before(snap.StartedAt))
}

func TestExecute_ValidationFailure(t *testing.T) {
	called := false
	p := &stubProcessor{
		validateErr: errors.New("missing field"),
		process: func(context.Context, string, *Tracker) (string, error) {
			called = true
			return "", nil
		},
	}
	tr := NewTracker(p.Name())

	_, err := Execute[string, string](context.Background(), p, tr, "")

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidation)
	assert.False(t, called)
	assert.Equal(t, StatusFailed, tr.Status())
	assert.Contains(t, tr.Snapshot().Error, "missing field")
}

func TestExecute_ProcessFailureKeepsChain(t *testing.T) {
	sentinel := errors.New("boom")
	p := &stubProcessor{process: func(context.Context, string, *Tracker) (string, error) {
		return "partial", sentinel
	}}
	tr := NewTracker(p.Name())

	out, err := Execute[string, string](context.Background(), p, tr, "x")

	assert.ErrorIs(t, err, sentinel)
	assert.Empty(t, out)
	assert.Equal(t, StatusFailed, tr.Status())
}

func TestExecute_PanicBecomesError(t *testing.T) {
	p := &stubProcessor{process: func(context.Context, string, *Tracker) (string, error) {
		panic("kaboom")
	}}
	tr := NewTracker(p.Name())

	_, err := Execute[string, string](context.Background(), p, tr, "x")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "kaboom")
	assert.Equal(t, StatusFailed, tr.Status())
}

func TestExecute_CancelledDuringProcessStaysCancelled(t *testing.T) {
	p := &stubProcessor{process: func(_ context.Context, _ string, tr *Tracker) (string, error) {
		_ = tr.Cancel()
		return "done", nil
	}}
	tr := NewTracker(p.Name())

	_, err := Execute[string, string](context.Background(), p, tr, "x")

	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, tr.Status())
}

func TestExecute_CancelledBeforeStart(t *testing.T) {
	p := &stubProcessor{process: func(context.Context, string, *Tracker) (string, error) {
		return "", nil
	}}
	tr := NewTracker(p.Name())
	require.NoError(t, tr.Cancel())

	_, err := Execute[string, string](context.Background(), p, tr, "x")

	assert.ErrorIs(t, err, ErrCancelled)
}
