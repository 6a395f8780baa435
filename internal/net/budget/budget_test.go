package budget

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func TestTrackerExhaustsAndResets(t *testing.T) {
	clock := &fakeClock{t: time.Date(2025, 3, 10, 15, 0, 0, 0, time.UTC)}
	tr := newTrackerAt("llm", 3, 0, 0.8, clock.Now)

	for i := 0; i < 3; i++ {
		require.NoError(t, tr.Consume(), "call %d", i+1)
	}

	err := tr.Consume()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrExhausted))

	var exhausted *ExhaustedError
	require.True(t, errors.As(err, &exhausted))
	assert.Equal(t, int64(3), exhausted.Used)
	assert.Equal(t, time.Date(2025, 3, 11, 0, 0, 0, 0, time.UTC), exhausted.ETA)

	clock.Advance(9 * time.Hour)
	assert.NoError(t, tr.Consume())
	assert.Equal(t, int64(1), tr.Stats().Used)
}

func TestTrackerResetHour(t *testing.T) {
	clock := &fakeClock{t: time.Date(2025, 3, 10, 5, 0, 0, 0, time.UTC)}
	tr := newTrackerAt("llm", 1, 6, 0.8, clock.Now)

	require.NoError(t, tr.Consume())
	require.Error(t, tr.Consume())

	clock.Advance(time.Hour)
	assert.NoError(t, tr.Consume())
	assert.Equal(t, time.Date(2025, 3, 11, 6, 0, 0, 0, time.UTC), tr.Stats().NextReset)
}

func TestTrackerUnlimited(t *testing.T) {
	tr := NewTracker("llm", 0, 0, 0)
	for i := 0; i < 100; i++ {
		require.NoError(t, tr.Consume())
	}
	assert.Equal(t, int64(-1), tr.Stats().Remaining)

	var nilTracker *Tracker
	assert.NoError(t, nilTracker.Consume())
}

func TestTrackerConcurrentConsume(t *testing.T) {
	tr := NewTracker("llm", 50, 0, 0.8)

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if tr.Consume() == nil {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, allowed)
	assert.Equal(t, int64(0), tr.Stats().Remaining)
}
