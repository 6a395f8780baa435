package breakers

import (
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	cb "github.com/sony/gobreaker"
)

// ErrOpen is returned while the breaker rejects calls.
var ErrOpen = errors.New("circuit open")

type Settings struct {
	// ConsecutiveFailures trips the breaker outright.
	ConsecutiveFailures uint32
	// MinRequests before FailureRatio is considered.
	MinRequests  uint32
	FailureRatio float64
	Interval     time.Duration
	OpenTimeout  time.Duration
}

func DefaultSettings() Settings {
	return Settings{
		ConsecutiveFailures: 3,
		MinRequests:         10,
		FailureRatio:        0.5,
		Interval:            60 * time.Second,
		OpenTimeout:         30 * time.Second,
	}
}

type Breaker struct{ cb *cb.CircuitBreaker }

func New(name string, s Settings) *Breaker {
	st := cb.Settings{Name: name, Interval: s.Interval, Timeout: s.OpenTimeout}
	st.ReadyToTrip = func(counts cb.Counts) bool {
		if s.ConsecutiveFailures > 0 && counts.ConsecutiveFailures >= s.ConsecutiveFailures {
			return true
		}
		if counts.Requests < s.MinRequests || s.FailureRatio <= 0 {
			return false
		}
		return float64(counts.TotalFailures)/float64(counts.Requests) > s.FailureRatio
	}
	st.OnStateChange = func(name string, from, to cb.State) {
		log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("Circuit breaker state change")
	}
	return &Breaker{cb: cb.NewCircuitBreaker(st)}
}

func (b *Breaker) Name() string  { return b.cb.Name() }
func (b *Breaker) State() string { return b.cb.State().String() }

// Do runs fn through the breaker.
func Do[T any](b *Breaker, fn func() (T, error)) (T, error) {
	out, err := b.cb.Execute(func() (any, error) { return fn() })
	if errors.Is(err, cb.ErrOpenState) || errors.Is(err, cb.ErrTooManyRequests) {
		var zero T
		return zero, ErrOpen
	}
	if err != nil {
		var zero T
		return zero, err
	}
	v, _ := out.(T)
	return v, nil
}
