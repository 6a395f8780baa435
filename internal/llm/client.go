package llm

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/sawpanic/growthcast/internal/infrastructure/breakers"
	"github.com/sawpanic/growthcast/internal/net/budget"
	"github.com/sawpanic/growthcast/internal/net/ratelimit"
)

// ErrDisabled means no LLM endpoint is configured.
var ErrDisabled = errors.New("llm disabled")

type Config struct {
	Provider    string        `yaml:"provider"`
	Model       string        `yaml:"model"`
	APIKey      string        `yaml:"api_key"`
	APIURL      string        `yaml:"api_url"`
	Timeout     time.Duration `yaml:"timeout"`
	MaxTokens   int           `yaml:"max_tokens"`
	Temperature float64       `yaml:"temperature"`
	RPS         float64       `yaml:"requests_per_second"`
	Burst       int           `yaml:"burst"`
	// DailyBudget caps completions per UTC day; 0 is unlimited.
	DailyBudget int64         `yaml:"daily_budget"`
}

func DefaultConfig() Config {
	return Config{
		Provider:    "openai",
		Model:       "gpt-4-turbo-preview",
		Timeout:     60 * time.Second,
		MaxTokens:   2000,
		Temperature: 0.7,
		RPS:         1,
		Burst:       2,
	}
}

// ApplyEnv overlays LLM_* variables. OPENAI_API_KEY is honoured when
// LLM_API_KEY is unset.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("LLM_PROVIDER"); v != "" {
		c.Provider = v
	}
	if v := os.Getenv("LLM_MODEL"); v != "" {
		c.Model = v
	}
	if v := os.Getenv("LLM_API_URL"); v != "" {
		c.APIURL = v
	}
	if v := os.Getenv("LLM_API_KEY"); v != "" {
		c.APIKey = v
	} else if v := os.Getenv("OPENAI_API_KEY"); v != "" && c.APIKey == "" {
		c.APIKey = v
	}
}

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type Request struct {
	Messages    []Message
	JSON        bool
	MaxTokens   int
	Temperature float64
}

// Completer returns the assistant text for a chat request.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// New builds the configured provider. It returns ErrDisabled when there
// is neither an API key nor an explicit endpoint.
func New(cfg Config) (Completer, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", "openai":
	case "none", "disabled":
		return nil, ErrDisabled
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", cfg.Provider)
	}
	if cfg.APIKey == "" && cfg.APIURL == "" {
		return nil, ErrDisabled
	}
	return NewOpenAI(cfg), nil
}

// Guarded rate limits and circuit-breaks another Completer.
type Guarded struct {
	next    Completer
	breaker *breakers.Breaker
	limiter *ratelimit.Limiter
	budget  *budget.Tracker
	key     string
}

func Guard(next Completer, breaker *breakers.Breaker, limiter *ratelimit.Limiter, key string) *Guarded {
	return &Guarded{next: next, breaker: breaker, limiter: limiter, key: key}
}

// WithBudget charges every call that passes the limiter to t.
func (g *Guarded) WithBudget(t *budget.Tracker) *Guarded {
	g.budget = t
	return g
}

// HostKey is the limiter key for an endpoint.
func HostKey(apiURL string) string {
	if apiURL == "" {
		return "api.openai.com"
	}
	if u, err := url.Parse(apiURL); err == nil && u.Host != "" {
		return u.Host
	}
	return apiURL
}

func (g *Guarded) Complete(ctx context.Context, req Request) (string, error) {
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx, g.key); err != nil {
			return "", err
		}
	}
	if err := g.budget.Consume(); err != nil {
		return "", err
	}
	if g.breaker == nil {
		return g.next.Complete(ctx, req)
	}
	return breakers.Do(g.breaker, func() (string, error) {
		return g.next.Complete(ctx, req)
	})
}
