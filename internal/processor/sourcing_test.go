package processor

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGenerator struct {
	calls atomic.Int32
	fail  map[string]error
}

func (f *fakeGenerator) Generate(_ context.Context, prompt string) (string, error) {
	f.calls.Add(1)
	if err := f.fail[prompt]; err != nil {
		return "", err
	}
	return "https://cdn.test/" + prompt + ".png", nil
}

func TestSourcingProcessor_Process(t *testing.T) {
	gen := &fakeGenerator{fail: map[string]error{"storm": errors.New("generation failed")}}
	p := NewSourcingProcessor(gen, 2, quietLogger())
	tr := NewTracker(p.Name())

	urls, err := Execute[[]string, map[int]string](context.Background(), p, tr, []string{"harbor", "", "storm", "  ", "parliament"})

	require.NoError(t, err)
	assert.Equal(t, map[int]string{
		0: "https://cdn.test/harbor.png",
		4: "https://cdn.test/parliament.png",
	}, urls)
	assert.Equal(t, int32(3), gen.calls.Load())
	assert.Equal(t, StatusCompleted, tr.Status())
	assert.InDelta(t, 100.0, tr.Progress(), 0.001)
}

func TestSourcingProcessor_Empty(t *testing.T) {
	gen := &fakeGenerator{}
	p := NewSourcingProcessor(gen, 0, nil)

	urls, err := p.Process(context.Background(), nil, NewTracker(p.Name()))

	require.NoError(t, err)
	assert.Empty(t, urls)
	assert.Zero(t, gen.calls.Load())
}

func TestSourcingProcessor_CancelledBeforeStart(t *testing.T) {
	gen := &fakeGenerator{}
	p := NewSourcingProcessor(gen, 1, quietLogger())
	tr := NewTracker(p.Name())
	require.NoError(t, tr.Cancel())

	urls, err := p.Process(context.Background(), []string{"a", "b"}, tr)

	require.NoError(t, err)
	assert.Empty(t, urls)
	assert.Zero(t, gen.calls.Load())
}
