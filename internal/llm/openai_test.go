package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/growthcast/internal/infrastructure/breakers"
	"github.com/sawpanic/growthcast/internal/net/budget"
	"github.com/sawpanic/growthcast/internal/net/ratelimit"
)

func TestOpenAIComplete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "/chat/completions", r.URL.Path)

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-test", req.Model)
		require.NotNil(t, req.ResponseFormat)
		assert.Equal(t, "json_object", req.ResponseFormat.Type)
		assert.Equal(t, 2000, req.MaxTokens)

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"choices":[{"message":{"role":"assistant","content":"{\"analysis\":\"ok\"}"}}]}`)
	}))
	defer server.Close()

	cfg := DefaultConfig()
	cfg.APIURL = server.URL + "/"
	cfg.APIKey = "test-key"
	cfg.Model = "gpt-test"

	c, err := New(cfg)
	require.NoError(t, err)
	got, err := c.Complete(context.Background(), Request{
		Messages: []Message{{Role: "user", Content: "hi"}},
		JSON:     true,
	})
	require.NoError(t, err)
	assert.Equal(t, `{"analysis":"ok"}`, got)
}

func TestOpenAIErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer server.Close()

	c := NewOpenAI(Config{APIURL: server.URL, Model: "m"})
	_, err := c.Complete(context.Background(), Request{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestOpenAIRequiresModel(t *testing.T) {
	_, err := NewOpenAI(Config{APIURL: "http://localhost"}).Complete(context.Background(), Request{})
	assert.EqualError(t, err, "openai model is required")
}

func TestNewDisabled(t *testing.T) {
	_, err := New(Config{Provider: "openai"})
	assert.ErrorIs(t, err, ErrDisabled)

	_, err = New(Config{Provider: "none", APIKey: "k"})
	assert.ErrorIs(t, err, ErrDisabled)

	_, err = New(Config{Provider: "mystery", APIKey: "k"})
	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("LLM_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "legacy")
	t.Setenv("LLM_MODEL", "gpt-x")

	cfg := DefaultConfig()
	cfg.ApplyEnv()
	assert.Equal(t, "legacy", cfg.APIKey)
	assert.Equal(t, "gpt-x", cfg.Model)
}

type stubCompleter struct {
	calls atomic.Int32
	err   error
}

func (s *stubCompleter) Complete(context.Context, Request) (string, error) {
	s.calls.Add(1)
	if s.err != nil {
		return "", s.err
	}
	return "ok", nil
}

func TestGuardedOpensBreaker(t *testing.T) {
	stub := &stubCompleter{err: errors.New("upstream down")}
	b := breakers.New("llm", breakers.Settings{ConsecutiveFailures: 2, OpenTimeout: time.Minute})
	g := Guard(stub, b, ratelimit.NewLimiter(0, 1), "test")

	for i := 0; i < 2; i++ {
		_, err := g.Complete(context.Background(), Request{})
		require.Error(t, err)
	}
	_, err := g.Complete(context.Background(), Request{})
	assert.ErrorIs(t, err, breakers.ErrOpen)
	assert.Equal(t, int32(2), stub.calls.Load())
}

func TestGuardedWaitsForLimiter(t *testing.T) {
	stub := &stubCompleter{}
	g := Guard(stub, nil, ratelimit.NewLimiter(0.01, 1), "slow")

	_, err := g.Complete(context.Background(), Request{})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = g.Complete(ctx, Request{})
	assert.Error(t, err)
	assert.Equal(t, int32(1), stub.calls.Load())
}

func TestHostKey(t *testing.T) {
	assert.Equal(t, "api.openai.com", HostKey(""))
	assert.Equal(t, "localhost:11434", HostKey("http://localhost:11434/v1"))
}

func TestGuardedStopsAtDailyBudget(t *testing.T) {
	stub := &stubCompleter{}
	g := Guard(stub, nil, nil, "test").WithBudget(budget.NewTracker("llm", 2, 0, 0.8))

	for i := 0; i < 2; i++ {
		_, err := g.Complete(context.Background(), Request{})
		require.NoError(t, err)
	}
	_, err := g.Complete(context.Background(), Request{})
	assert.ErrorIs(t, err, budget.ErrExhausted)
	assert.Equal(t, int32(2), stub.calls.Load())
}
