package syncx

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimedMutexAcquireRelease(t *testing.T) {
	t.Parallel()

	var mu TimedMutex

	release, ok := mu.Acquire(time.Second)
	require.True(t, ok)
	release()

	release, ok = mu.Acquire(time.Second)
	require.True(t, ok)
	release()
	release()

	release, ok = mu.TryAcquire()
	require.True(t, ok)
	release()
}

func TestTimedMutexAcquireTimesOutAndProceeds(t *testing.T) {
	t.Parallel()

	var mu TimedMutex
	held, ok := mu.Acquire(0)
	require.True(t, ok)

	start := time.Now()
	release, ok := mu.Acquire(30 * time.Millisecond)
	assert.False(t, ok)
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)

	release()
	_, ok = mu.TryAcquire()
	assert.False(t, ok, "releasing a timed-out acquisition must not free the holder's lock")

	held()
	release, ok = mu.TryAcquire()
	require.True(t, ok)
	release()
}

func TestTimedMutexSerializesHolders(t *testing.T) {
	t.Parallel()

	var (
		mu      TimedMutex
		inside  atomic.Int32
		overlap atomic.Bool
		done    = make(chan struct{})
	)

	for i := 0; i < 8; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			release, ok := mu.Acquire(5 * time.Second)
			if !ok {
				return
			}
			defer release()
			if inside.Add(1) > 1 {
				overlap.Store(true)
			}
			time.Sleep(time.Millisecond)
			inside.Add(-1)
		}()
	}

	for i := 0; i < 8; i++ {
		<-done
	}
	assert.False(t, overlap.Load())
}
