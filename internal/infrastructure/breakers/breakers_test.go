package breakers

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBreakerTripsOnConsecutiveFailures(t *testing.T) {
	b := New("llm", Settings{ConsecutiveFailures: 2, OpenTimeout: time.Minute})
	boom := errors.New("boom")

	for i := 0; i < 2; i++ {
		_, err := Do(b, func() (string, error) { return "", boom })
		require.ErrorIs(t, err, boom)
	}
	assert.Equal(t, "open", b.State())

	calls := 0
	_, err := Do(b, func() (string, error) { calls++; return "ok", nil })
	assert.ErrorIs(t, err, ErrOpen)
	assert.Zero(t, calls)
}

func TestBreakerPassesValues(t *testing.T) {
	b := New("llm", DefaultSettings())
	got, err := Do(b, func() (int, error) { return 42, nil })
	require.NoError(t, err)
	assert.Equal(t, 42, got)
	assert.Equal(t, "closed", b.State())
	assert.Equal(t, "llm", b.Name())
}
