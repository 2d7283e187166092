package keyonlylocks

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTryAcquireAllOrNothing(t *testing.T) {
	var s Set
	release, err := s.TryAcquire("a", "b")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, s.Held())

	_, err = s.TryAcquire("c", "b")
	assert.ErrorIs(t, err, ErrHeld)
	assert.EqualError(t, err, "key b: lock already held")
	assert.Equal(t, []string{"a", "b"}, s.Held(), "c is rolled back")

	release()
	release()
	assert.Empty(t, s.Held())

	release, err = s.TryAcquire("b")
	require.NoError(t, err)
	release()
}

func TestTryAcquireSingleWinner(t *testing.T) {
	var s Set
	var wins atomic.Int32
	var wg sync.WaitGroup
	start := make(chan struct{})
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if _, err := s.TryAcquire(Key("invoice", "42")); err == nil {
				wins.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load())
}
