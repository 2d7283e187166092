package assemble

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeptools/gw-invoicer/invoice"
	"github.com/zeptools/gw-invoicer/locks/keyonlylocks"
)

type recorder struct {
	mu     sync.Mutex
	events []string
	fail   bool
}

func (r *recorder) add(e string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	if r.fail {
		return errors.New("journal down")
	}
	return nil
}

func (r *recorder) Start(_ context.Context, kind string, layer string) error {
	return r.add("start " + kind + " " + layer)
}

func (r *recorder) Stage(_ context.Context, _ string, _ string, stage string) error {
	return r.add("stage " + stage)
}

func (r *recorder) Finish(_ context.Context, _ string, _ string, runErr error) error {
	if runErr != nil {
		return r.add("failed")
	}
	return r.add("done")
}

type counter struct{ n int }

func stages(names ...string) []Stage[counter] {
	out := make([]Stage[counter], 0, len(names))
	for _, name := range names {
		out = append(out, Stage[counter]{Name: name, Run: func(_ context.Context, c *counter) error {
			c.n++
			return nil
		}})
	}
	return out
}

func TestRunStagesInOrder(t *testing.T) {
	rec := &recorder{}
	state := &counter{}
	err := RunStages(context.Background(), Run{Kind: "invoice", Layer: "1"}, stages("a", "b", "c"), state, rec)
	require.NoError(t, err)
	assert.Equal(t, 3, state.n)
	assert.Equal(t, []string{"start invoice 1", "stage a", "stage b", "stage c", "done"}, rec.events)
}

func TestRunStagesStopsOnError(t *testing.T) {
	boom := errors.New("boom")
	s := stages("a", "b", "c")
	s[1].Run = func(context.Context, *counter) error { return boom }

	rec := &recorder{}
	state := &counter{}
	err := RunStages(context.Background(), Run{Kind: "invoice", Layer: "1"}, s, state, rec)
	assert.ErrorIs(t, err, boom)
	assert.EqualError(t, err, `stage "b": boom`)
	assert.Equal(t, 1, state.n)
	assert.Equal(t, []string{"start invoice 1", "stage a", "stage b", "failed"}, rec.events)
}

func TestRunStagesCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	state := &counter{}
	err := RunStages(ctx, Run{Kind: "template", Layer: "t"}, stages("a"), state, nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, state.n)
}

func TestRecorderFailuresDoNotFailTheRun(t *testing.T) {
	rec := &recorder{fail: true}
	state := &counter{}
	require.NoError(t, RunStages(context.Background(), Run{Kind: "template", Layer: "t"}, stages("a", "b"), state, rec))
	assert.Equal(t, 2, state.n)
}

func TestSameRunIsExclusive(t *testing.T) {
	a := New(nil, nil, DefaultOptions())
	release, err := a.lockRun(Run{Kind: "invoice", Layer: "7"})
	require.NoError(t, err)

	_, err = a.BuildInvoice(context.Background(), &invoice.Invoice{Number: "7"}, "")
	assert.ErrorIs(t, err, keyonlylocks.ErrHeld)

	release()
	_, err = a.lockRun(Run{Kind: "invoice", Layer: "7"})
	assert.NoError(t, err)
}
