package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/maauso/newsvideo-api/internal/run"
)

const (
	defaultCleanupSchedule = "0 0 * * *"
	defaultRetention       = 168 * time.Hour
)

// ErrNoCleanupDir is returned when the cleanup job has no directory.
var ErrNoCleanupDir = errors.New("scheduler: cleanup directory is required")

// Cleaner removes entries of dir older than retention.
type Cleaner interface {
	RemoveOlderThan(ctx context.Context, dir string, retention time.Duration) ([]string, error)
}

// RunDeleter drops the record of a run whose output was removed.
type RunDeleter interface {
	Delete(ctx context.Context, id string) error
}

// CleanupJob removes run directories past their retention. When Runs is
// set, the matching run records are deleted too.
type CleanupJob struct {
	Cleaner      Cleaner
	Runs         RunDeleter
	Dir          string
	Retention    time.Duration
	CronSchedule string
	Logger       *slog.Logger
}

// Name implements Job.
func (j *CleanupJob) Name() string { return "cleanup_runs" }

// Schedule implements Job. Defaults to daily at midnight.
func (j *CleanupJob) Schedule() string {
	if j.CronSchedule != "" {
		return j.CronSchedule
	}
	return defaultCleanupSchedule
}

// Run implements Job.
func (j *CleanupJob) Run(ctx context.Context) error {
	if j.Dir == "" {
		return ErrNoCleanupDir
	}
	retention := j.Retention
	if retention <= 0 {
		retention = defaultRetention
	}
	logger := j.Logger
	if logger == nil {
		logger = slog.Default()
	}

	removed, err := j.Cleaner.RemoveOlderThan(ctx, j.Dir, retention)
	if len(removed) > 0 {
		logger.Info("old runs removed",
			slog.String("dir", j.Dir),
			slog.Int("count", len(removed)),
			slog.Duration("retention", retention),
		)
	}
	if j.Runs != nil {
		j.forget(ctx, removed, logger)
	}
	return err
}

// forget deletes the records of removed run directories. Entries that are
// not run directories have no record and are skipped.
func (j *CleanupJob) forget(ctx context.Context, removed []string, logger *slog.Logger) {
	for _, p := range removed {
		runID := filepath.Base(p)
		if err := j.Runs.Delete(ctx, runID); err != nil && !errors.Is(err, run.ErrRunNotFound) {
			logger.Warn("failed to delete run record",
				slog.String("run_id", runID),
				slog.String("error", err.Error()),
			)
		}
	}
}
