package ratelimit

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/time/rate"
)

// Limiter is a set of token buckets keyed by upstream (one per LLM host
// in practice). A non-positive rate disables limiting.
type Limiter struct {
	mu      sync.RWMutex
	buckets map[string]*rate.Limiter
	rps     float64
	burst   int
}

func NewLimiter(rps float64, burst int) *Limiter {
	if burst < 1 {
		burst = 1
	}
	return &Limiter{
		buckets: make(map[string]*rate.Limiter),
		rps:     rps,
		burst:   burst,
	}
}

func (l *Limiter) bucket(key string) *rate.Limiter {
	l.mu.RLock()
	b, ok := l.buckets[key]
	l.mu.RUnlock()
	if ok {
		return b
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if b, ok := l.buckets[key]; ok {
		return b
	}
	b = rate.NewLimiter(l.limit(), l.burst)
	l.buckets[key] = b
	return b
}

func (l *Limiter) limit() rate.Limit {
	if l.rps <= 0 {
		return rate.Inf
	}
	return rate.Limit(l.rps)
}

// Allow reports whether a call to key may proceed now.
func (l *Limiter) Allow(key string) bool {
	return l.bucket(key).Allow()
}

// Wait blocks until key has a token or ctx is done.
func (l *Limiter) Wait(ctx context.Context, key string) error {
	if err := l.bucket(key).Wait(ctx); err != nil {
		return fmt.Errorf("rate limit %s: %w", key, err)
	}
	return nil
}

type Stats struct {
	Key    string  `json:"key"`
	RPS    float64 `json:"rps"`
	Burst  int     `json:"burst"`
	Tokens float64 `json:"tokens_available"`
}

func (l *Limiter) Stats() []Stats {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Stats, 0, len(l.buckets))
	for k, b := range l.buckets {
		out = append(out, Stats{Key: k, RPS: l.rps, Burst: b.Burst(), Tokens: b.Tokens()})
	}
	return out
}
