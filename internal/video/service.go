// Package video provides the use cases behind the HTTP API: generating a
// video from a storyboard, looking up a run and locating its final video.
package video

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/maauso/newsvideo-api/internal/pipeline"
	"github.com/maauso/newsvideo-api/internal/run"
	"github.com/maauso/newsvideo-api/internal/run/id"
	"github.com/maauso/newsvideo-api/internal/storyboard"
)

const finalVideoMarker = "final_video"

var (
	// ErrInvalidStoryboard is returned when the pipeline rejects the storyboard.
	ErrInvalidStoryboard = errors.New("video: invalid storyboard")
	// ErrInvalidID is returned for a run id with the wrong format.
	ErrInvalidID = errors.New("video: invalid run id")
	// ErrVideoNotFound is returned when a run has no final video on disk.
	ErrVideoNotFound = errors.New("video: final video not found")
)

// Runner is a single-use pipeline.
type Runner interface {
	Initialize(sb storyboard.Storyboard) bool
	InitError() error
	Execute(ctx context.Context) (pipeline.Result, error)
}

// Factory builds a fresh Runner that reports to rec.
type Factory func(rec pipeline.Recorder) Runner

// Service orchestrates pipeline runs and keeps the run registry current.
type Service struct {
	factory Factory
	repo    run.Repository
	baseDir string
	logger  *slog.Logger
}

// NewService creates a Service. baseDir is the parent of every run directory.
func NewService(factory Factory, repo run.Repository, baseDir string, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		factory: factory,
		repo:    repo,
		baseDir: baseDir,
		logger:  logger,
	}
}

// Generate runs the whole pipeline for sb and blocks until it finishes.
// A storyboard the pipeline refuses yields ErrInvalidStoryboard; any other
// failure is reported in the Result.
func (s *Service) Generate(ctx context.Context, sb storyboard.Storyboard) (pipeline.Result, error) {
	r := s.factory(&recorder{repo: s.repo, logger: s.logger})
	if !r.Initialize(sb) {
		return pipeline.Result{}, fmt.Errorf("%w: %w", ErrInvalidStoryboard, r.InitError())
	}
	return r.Execute(ctx)
}

// GetRun returns the run record for runID.
func (s *Service) GetRun(ctx context.Context, runID string) (*run.Run, error) {
	if !id.Valid(runID) {
		return nil, ErrInvalidID
	}
	return s.repo.FindByID(ctx, runID)
}

// FinalVideoPath returns the path of the final video of runID.
func (s *Service) FinalVideoPath(runID string) (string, error) {
	if !id.Valid(runID) {
		return "", ErrInvalidID
	}

	dir := filepath.Join(s.baseDir, runID)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", ErrVideoNotFound
		}
		return "", fmt.Errorf("video: read run dir: %w", err)
	}
	for _, e := range entries {
		if !e.IsDir() && strings.Contains(e.Name(), finalVideoMarker) {
			return filepath.Join(dir, e.Name()), nil
		}
	}
	return "", ErrVideoNotFound
}

// recorder mirrors pipeline events into the run repository.
type recorder struct {
	repo   run.Repository
	logger *slog.Logger
}

var _ pipeline.Recorder = (*recorder)(nil)

func (r *recorder) RecordStart(ctx context.Context, runID, title string, scenes int) {
	rn := run.NewWithID(runID)
	rn.Title = title
	rn.SceneCount = scenes
	rn.SetStage(string(pipeline.StateInitialized), 0)
	if err := rn.Start(); err != nil {
		r.logger.Warn("failed to start run", slog.String("run_id", runID), slog.String("error", err.Error()))
	}
	r.save(ctx, rn)
}

func (r *recorder) RecordProgress(ctx context.Context, runID, stage string, progress int) {
	rn, err := r.repo.FindByID(ctx, runID)
	if err != nil {
		r.logger.Warn("run not found", slog.String("run_id", runID), slog.String("error", err.Error()))
		return
	}
	rn.SetStage(stage, progress)
	r.save(ctx, rn)
}

func (r *recorder) RecordResult(ctx context.Context, res pipeline.Result) {
	rn, err := r.repo.FindByID(ctx, res.RunID)
	if err != nil {
		r.logger.Warn("run not found", slog.String("run_id", res.RunID), slog.String("error", err.Error()))
		return
	}
	if res.Succeeded() {
		err = rn.Complete(res.FinalVideoPath, res.VideoURL)
	} else {
		rn.SetStage(string(pipeline.StateFailed), rn.Progress)
		err = rn.Fail(res.ErrorMessage)
	}
	if err != nil {
		r.logger.Warn("failed to finish run", slog.String("run_id", res.RunID), slog.String("error", err.Error()))
	}
	r.save(ctx, rn)
}

func (r *recorder) save(ctx context.Context, rn *run.Run) {
	if err := r.repo.Save(ctx, rn); err != nil {
		r.logger.Error("failed to save run",
			slog.String("run_id", rn.ID),
			slog.String("error", err.Error()),
		)
	}
}
