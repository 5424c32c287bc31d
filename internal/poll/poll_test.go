package poll

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 5*time.Second, cfg.Interval)
	assert.Equal(t, 40, cfg.MaxAttempts)
}

func TestUntil_DoneAfterSomeAttempts(t *testing.T) {
	calls := 0
	err := Until(context.Background(), Config{Interval: time.Millisecond, MaxAttempts: 5}, func(context.Context) (bool, error) {
		calls++
		return calls == 3, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestUntil_AttemptCapIsTimeout(t *testing.T) {
	calls := 0
	err := Until(context.Background(), Config{Interval: time.Millisecond, MaxAttempts: 4}, func(context.Context) (bool, error) {
		calls++
		return false, nil
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTimeout)
	assert.Equal(t, 4, calls)
}

func TestUntil_CheckErrorIsNotTimeout(t *testing.T) {
	rejected := errors.New("remote said no")
	err := Until(context.Background(), Config{Interval: time.Millisecond, MaxAttempts: 4}, func(context.Context) (bool, error) {
		return false, rejected
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, rejected)
	assert.NotErrorIs(t, err, ErrTimeout)
}

func TestUntil_DeadlineIsTimeout(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := Until(ctx, Config{Interval: time.Hour, MaxAttempts: 40}, func(context.Context) (bool, error) {
		return false, nil
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTimeout)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestUntil_CancelIsNotTimeout(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Until(ctx, DefaultConfig(), func(context.Context) (bool, error) {
		t.Fatal("check must not run on a cancelled context")
		return false, nil
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrTimeout)
}
