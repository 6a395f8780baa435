package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"
)

// Cache stores opaque forecast responses.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
	Name() string
}

type Config struct {
	Addr       string        `yaml:"addr"`
	DB         int           `yaml:"db"`
	Password   string        `yaml:"password"`
	TTL        time.Duration `yaml:"ttl"`
	Prefix     string        `yaml:"prefix"`
	MaxEntries int           `yaml:"max_entries"`
}

func DefaultConfig() Config {
	return Config{TTL: 10 * time.Minute, Prefix: "growthcast:", MaxEntries: 512}
}

// New returns a redis cache when an address is configured and the
// server answers a ping, else an in-memory one.
func New(ctx context.Context, cfg Config) Cache {
	if cfg.Addr == "" {
		return NewMemory(cfg.MaxEntries)
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.Addr, DB: cfg.DB, Password: cfg.Password})
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		log.Warn().Err(err).Str("addr", cfg.Addr).Msg("Redis unavailable, using in-memory cache")
		client.Close()
		return NewMemory(cfg.MaxEntries)
	}
	log.Info().Str("addr", cfg.Addr).Int("db", cfg.DB).Msg("Redis cache connected")
	return NewRedis(client, cfg.Prefix)
}

// Stats counts lookups.
type Stats struct {
	hits   atomic.Int64
	misses atomic.Int64
}

func (s *Stats) record(hit bool) {
	if hit {
		s.hits.Add(1)
	} else {
		s.misses.Add(1)
	}
}

func (s *Stats) Hits() int64   { return s.hits.Load() }
func (s *Stats) Misses() int64 { return s.misses.Load() }

// HitRatio is hits over lookups, 0 before the first lookup.
func (s *Stats) HitRatio() float64 {
	h, m := s.Hits(), s.Misses()
	if h+m == 0 {
		return 0
	}
	return float64(h) / float64(h+m)
}

type Memory struct {
	Stats
	mu    sync.Mutex
	m     map[string]entry
	order []string
	max   int
	now   func() time.Time
}

type entry struct {
	b   []byte
	exp time.Time
}

// NewMemory keeps at most maxEntries values, evicting the oldest
// insertion first. Non-positive means unbounded.
func NewMemory(maxEntries int) *Memory {
	return &Memory{m: make(map[string]entry), max: maxEntries, now: time.Now}
}

func (c *Memory) Name() string { return "memory" }

func (c *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.m[key]
	if ok && !e.exp.IsZero() && c.now().After(e.exp) {
		delete(c.m, key)
		ok = false
	}
	c.record(ok)
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), e.b...), true, nil
}

func (c *Memory) Set(_ context.Context, key string, val []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := entry{b: append([]byte(nil), val...)}
	if ttl > 0 {
		e.exp = c.now().Add(ttl)
	}
	if _, exists := c.m[key]; !exists {
		c.order = append(c.order, key)
	}
	c.m[key] = e
	for c.max > 0 && len(c.m) > c.max && len(c.order) > 0 {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.m, oldest)
	}
	if len(c.order) > 2*len(c.m)+16 {
		c.compact()
	}
	return nil
}

func (c *Memory) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.m)
}

func (c *Memory) compact() {
	kept := c.order[:0]
	for _, k := range c.order {
		if _, ok := c.m[k]; ok {
			kept = append(kept, k)
		}
	}
	c.order = kept
}

type Redis struct {
	Stats
	client *redis.Client
	prefix string
}

func NewRedis(client *redis.Client, prefix string) *Redis {
	return &Redis{client: client, prefix: prefix}
}

func (r *Redis) Name() string { return "redis" }

func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	v, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		r.record(false)
		return nil, false, nil
	}
	if err != nil {
		r.record(false)
		return nil, false, fmt.Errorf("redis get %s: %w", key, err)
	}
	r.record(true)
	return v, true, nil
}

func (r *Redis) Set(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	if err := r.client.Set(ctx, r.prefix+key, val, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}
