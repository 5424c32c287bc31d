// Package scheduler runs periodic background jobs on cron schedules.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

const defaultJobTimeout = time.Hour

// Job is a schedulable task.
type Job interface {
	Name() string
	// Schedule is a standard 5-field cron expression or a descriptor such as
	// "@daily".
	Schedule() string
	Run(ctx context.Context) error
}

// Scheduler manages background jobs.
type Scheduler struct {
	cron    *cron.Cron
	timeout time.Duration
	logger  *slog.Logger

	mu   sync.Mutex
	jobs map[string]cron.EntryID
}

// New creates a Scheduler. Each job run gets its own context bounded by
// timeout; timeout <= 0 uses one hour.
func New(timeout time.Duration, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = defaultJobTimeout
	}
	return &Scheduler{
		cron:    cron.New(),
		timeout: timeout,
		logger:  logger,
		jobs:    make(map[string]cron.EntryID),
	}
}

// AddJob registers j. Adding a job with a name already in use replaces it.
func (s *Scheduler) AddJob(j Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := s.cron.AddFunc(j.Schedule(), func() { s.run(j) })
	if err != nil {
		return fmt.Errorf("scheduler: add job %s: %w", j.Name(), err)
	}
	if prev, ok := s.jobs[j.Name()]; ok {
		s.cron.Remove(prev)
	}
	s.jobs[j.Name()] = id

	s.logger.Info("job scheduled",
		slog.String("job", j.Name()),
		slog.String("schedule", j.Schedule()),
	)
	return nil
}

// Jobs returns the names of the registered jobs, sorted.
func (s *Scheduler) Jobs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.jobs))
	for n := range s.jobs {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (s *Scheduler) run(j Job) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	start := time.Now()
	if err := j.Run(ctx); err != nil {
		s.logger.Error("job failed",
			slog.String("job", j.Name()),
			slog.String("error", err.Error()),
		)
		return
	}
	s.logger.Info("job completed",
		slog.String("job", j.Name()),
		slog.Duration("elapsed", time.Since(start)),
	)
}

// Start runs the scheduler in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("scheduler started", slog.Any("jobs", s.Jobs()))
}

// Stop stops the scheduler and waits for running jobs until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.logger.Warn("scheduler stop timed out")
	}
}
