// Package poll implements the bounded wait used to await asynchronous jobs on
// third-party generation services.
package poll

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrTimeout is returned when the job did not finish within the attempt cap
// or before the context deadline. It is distinct from any error the check
// function returns for a job the remote side rejected.
var ErrTimeout = errors.New("poll: timed out waiting for job")

// Config bounds a polling loop.
type Config struct {
	Interval    time.Duration
	MaxAttempts int
}

// DefaultConfig returns the 5s interval, 40 attempt budget.
func DefaultConfig() Config {
	return Config{
		Interval:    5 * time.Second,
		MaxAttempts: 40,
	}
}

// CheckFunc reports whether the awaited job is finished. A non-nil error
// stops the loop and is returned unchanged.
type CheckFunc func(ctx context.Context) (done bool, err error)

// Until calls check until it reports done, fails, the attempt cap is reached
// or ctx ends. The first check runs immediately.
func Until(ctx context.Context, cfg Config, check CheckFunc) error {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return deadlineError(err)
		}

		done, err := check(ctx)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
		if attempt >= cfg.MaxAttempts {
			return fmt.Errorf("%w after %d attempts", ErrTimeout, attempt)
		}

		timer := time.NewTimer(cfg.Interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return deadlineError(ctx.Err())
		case <-timer.C:
		}
	}
}

func deadlineError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}
	return fmt.Errorf("poll: %w", err)
}
