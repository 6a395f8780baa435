package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/growthcast/internal/application"
	"github.com/sawpanic/growthcast/internal/audience"
	"github.com/sawpanic/growthcast/internal/forecast"
	"github.com/sawpanic/growthcast/internal/infrastructure/cache"
	"github.com/sawpanic/growthcast/internal/insights"
	"github.com/sawpanic/growthcast/internal/persistence"
)

func forecastRequest() application.ForecastRequest {
	mix := make(map[forecast.Platform]map[forecast.ContentType]float64)
	for _, p := range forecast.Platforms {
		mix[p] = map[forecast.ContentType]float64{forecast.ShortVideo: 50, forecast.Image: 50}
	}
	return application.ForecastRequest{Input: forecast.Input{
		CurrentFollowers: map[forecast.Platform]float64{
			forecast.Instagram: 50000, forecast.TikTok: 20000, forecast.YouTube: 10000, forecast.Facebook: 30000,
		},
		Plan: forecast.Plan{
			PostsPerWeekTotal:  20,
			PlatformAllocation: map[forecast.Platform]float64{forecast.Instagram: 40, forecast.TikTok: 30, forecast.YouTube: 10, forecast.Facebook: 20},
			ContentMix:         mix,
			Months:             6,
			CampaignLift:       0.15,
			Sensitivity:        0.5,
			AcqScalar:          1,
		},
		Engagement: []float64{0.4, 0.5, 0.6},
	}}
}

// memPresets is an in-memory PresetRepo.
type memPresets struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]persistence.UserPreset
}

func newMemPresets() *memPresets {
	return &memPresets{rows: make(map[int64]persistence.UserPreset)}
}

func (m *memPresets) List(context.Context) ([]persistence.UserPreset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]persistence.UserPreset, 0, len(m.rows))
	for _, p := range m.rows {
		out = append(out, p)
	}
	return out, nil
}

func (m *memPresets) Get(_ context.Context, id int64) (*persistence.UserPreset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.rows[id]
	if !ok {
		return nil, persistence.ErrPresetNotFound
	}
	return &p, nil
}

func (m *memPresets) Create(_ context.Context, p persistence.UserPreset) (*persistence.UserPreset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	p.ID = m.nextID
	p.CreatedAt = time.Now().UTC()
	m.rows[p.ID] = p
	return &p, nil
}

func (m *memPresets) Update(_ context.Context, id int64, patch persistence.PresetPatch) (*persistence.UserPreset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.rows[id]
	if !ok {
		return nil, persistence.ErrPresetNotFound
	}
	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.Description != nil {
		p.Description = patch.Description
	}
	if patch.Config != nil {
		p.Config = patch.Config
	}
	now := time.Now().UTC()
	p.UpdatedAt = &now
	m.rows[id] = p
	return &p, nil
}

func (m *memPresets) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[id]; !ok {
		return persistence.ErrPresetNotFound
	}
	delete(m.rows, id)
	return nil
}

type stubHealth struct{ check persistence.HealthCheck }

func (s stubHealth) Health(context.Context) persistence.HealthCheck { return s.check }
func (s stubHealth) Ping(context.Context) error                     { return nil }

type fixture struct {
	server  *Server
	metrics *Metrics
}

func newFixture(t *testing.T, deps application.Deps, database persistence.RepositoryHealth) fixture {
	t.Helper()
	metrics := NewMetrics()
	deps.Observer = metrics
	planner := application.NewPlanner(deps)
	cfg := application.DefaultAppConfig().Server
	cfg.AllowedOrigins = []string{"http://localhost:3000"}
	srv := NewServer(cfg, Options{Planner: planner, Metrics: metrics, Database: database, Version: "test"})
	return fixture{server: srv, metrics: metrics}
}

func (f fixture) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	rr := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rr, req)
	return rr
}

func decodeBody[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out), rr.Body.String())
	return out
}

func TestHealthEndpoint(t *testing.T) {
	f := newFixture(t, application.Deps{}, stubHealth{check: persistence.HealthCheck{Healthy: true, Status: "not_configured"}})

	rr := f.do(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	assert.Len(t, rr.Header().Get("X-Request-ID"), 8)

	resp := decodeBody[HealthResponse](t, rr)
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, "test", resp.Version)
	assert.Equal(t, "warn", resp.Checks["history"].Status)
	assert.Equal(t, "pass", resp.Checks["database"].Status)
}

func TestHealthDegradedOnDatabaseFailure(t *testing.T) {
	f := newFixture(t, application.Deps{}, stubHealth{check: persistence.HealthCheck{
		Healthy: false, Status: "error", Errors: []string{"ping failed"},
	}})

	resp := decodeBody[HealthResponse](t, f.do(t, http.MethodGet, "/health", nil))
	assert.Equal(t, "degraded", resp.Status)
	assert.Equal(t, "fail", resp.Checks["database"].Status)
	assert.Equal(t, "ping failed", resp.Checks["database"].Message)
}

func TestForecastEndpointCachesAndCountsRuns(t *testing.T) {
	f := newFixture(t, application.Deps{Cache: cache.NewMemory(8), CacheTTL: time.Minute}, nil)

	rr := f.do(t, http.MethodPost, "/api/forecast", forecastRequest())
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	first := decodeBody[application.ForecastResponse](t, rr)
	require.NotNil(t, first.Result)
	assert.False(t, first.Cached)
	assert.Len(t, first.Result.Months, 6)

	second := decodeBody[application.ForecastResponse](t, f.do(t, http.MethodPost, "/api/forecast", forecastRequest()))
	assert.True(t, second.Cached)
	assert.Equal(t, first.RequestHash, second.RequestHash)

	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.ForecastRuns.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.ForecastRuns.WithLabelValues("cached")))
	assert.InDelta(t, 0.5, testutil.ToFloat64(f.metrics.CacheHitRatio), 1e-9)
	assert.Equal(t, 2.0, testutil.ToFloat64(f.metrics.HTTPRequests.WithLabelValues("/api/forecast", http.MethodPost, "200")))
}

func TestForecastEndpointErrors(t *testing.T) {
	f := newFixture(t, application.Deps{}, nil)

	bad := forecastRequest()
	bad.Plan.Months = 0
	rr := f.do(t, http.MethodPost, "/api/forecast", bad)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	errResp := decodeBody[ErrorResponse](t, rr)
	assert.Equal(t, "invalid_configuration", errResp.Code)
	assert.Contains(t, errResp.Message, "months")
	assert.Len(t, errResp.RequestID, 8)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.ForecastRuns.WithLabelValues("error")))

	unknown := forecastRequest()
	unknown.Preset = "reckless"
	rr = f.do(t, http.MethodPost, "/api/forecast", unknown)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = f.do(t, http.MethodPost, "/api/forecast", "{not json")
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "invalid_json", decodeBody[ErrorResponse](t, rr).Code)
}

func TestInsightsEndpoints(t *testing.T) {
	f := newFixture(t, application.Deps{}, nil)

	rr := f.do(t, http.MethodPost, "/api/insights", forecastRequest())
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	ins := decodeBody[application.InsightsResponse](t, rr)
	assert.Equal(t, insights.SourceRules, ins.Insight.Source)
	assert.NotEmpty(t, ins.Insight.Text)

	rr = f.do(t, http.MethodPost, "/api/ai-insights", forecastRequest())
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	analysis := decodeBody[insights.Analysis](t, rr)
	assert.Len(t, analysis.Scenarios, 3)
	assert.Len(t, analysis.Phases, 1)
}

func TestHistoricalWithoutDataIsUnavailable(t *testing.T) {
	f := newFixture(t, application.Deps{}, nil)

	rr := f.do(t, http.MethodGet, "/api/historical", nil)
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Equal(t, "data_unavailable", decodeBody[ErrorResponse](t, rr).Code)
}

func TestBenchmarksEndpoint(t *testing.T) {
	f := newFixture(t, application.Deps{}, nil)

	rr := f.do(t, http.MethodGet, "/api/benchmarks", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	resp := decodeBody[application.BenchmarksResponse](t, rr)
	assert.Len(t, resp.Presets, 3)
	assert.Equal(t, resp.Defaults.BaseMonthlyRate, resp.Effective.BaseMonthlyRate)
}

func TestUserPresetsDisabled(t *testing.T) {
	f := newFixture(t, application.Deps{}, nil)

	rr := f.do(t, http.MethodGet, "/api/user-presets", nil)
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Equal(t, "persistence_disabled", decodeBody[ErrorResponse](t, rr).Code)
}

func TestUserPresetsLifecycle(t *testing.T) {
	f := newFixture(t, application.Deps{Presets: newMemPresets()}, nil)

	rr := f.do(t, http.MethodPost, "/api/user-presets", map[string]interface{}{
		"name":   "Holiday push",
		"config": map[string]interface{}{"posts_per_week_total": 30},
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	created := decodeBody[persistence.UserPreset](t, rr)
	assert.Equal(t, int64(1), created.ID)
	assert.JSONEq(t, `{"posts_per_week_total":30}`, string(created.Config))

	rr = f.do(t, http.MethodPost, "/api/user-presets", map[string]interface{}{"name": "", "config": map[string]interface{}{}})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = f.do(t, http.MethodPut, "/api/user-presets/1", map[string]interface{}{"name": "Spring push"})
	require.Equal(t, http.StatusOK, rr.Code)
	updated := decodeBody[persistence.UserPreset](t, rr)
	assert.Equal(t, "Spring push", updated.Name)
	assert.NotNil(t, updated.UpdatedAt)

	rr = f.do(t, http.MethodPut, "/api/user-presets/1", map[string]interface{}{})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	list := decodeBody[[]persistence.UserPreset](t, f.do(t, http.MethodGet, "/api/user-presets", nil))
	assert.Len(t, list, 1)

	rr = f.do(t, http.MethodDelete, "/api/user-presets/1", nil)
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = f.do(t, http.MethodGet, "/api/user-presets/1", nil)
	require.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "preset_not_found", decodeBody[ErrorResponse](t, rr).Code)
}

func TestResearchEndpoints(t *testing.T) {
	f := newFixture(t, application.Deps{}, nil)

	presets := decodeBody[ResearchPresetsResponse](t, f.do(t, http.MethodGet, "/api/research/presets", nil))
	assert.Len(t, presets.Presets, 5)
	assert.Equal(t, audience.DefaultPresetID, presets.Default)

	rr := f.do(t, http.MethodPost, "/api/research/allocation/recommend", RecommendRequest{
		AudienceMix: audience.Mix{audience.Parents: 1},
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	rec := decodeBody[audience.Recommendation](t, rr)
	assert.Equal(t, 0.89, rec.Confidence)

	rr = f.do(t, http.MethodPost, "/api/research/allocation/recommend", `{"audience_mix":{"teens":1}}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = f.do(t, http.MethodGet, "/api/research/platforms/TikTok", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.InDelta(t, 1.2, decodeBody[audience.PlatformInsight](t, rr).AvgIndex, 1e-9)

	rr = f.do(t, http.MethodGet, "/api/research/platforms/myspace", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestRoutingFallbacksAndCORS(t *testing.T) {
	f := newFixture(t, application.Deps{}, nil)

	rr := f.do(t, http.MethodGet, "/api/nothing", nil)
	require.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "endpoint_not_found", decodeBody[ErrorResponse](t, rr).Code)

	rr = f.do(t, http.MethodGet, "/api/forecast", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)

	req := httptest.NewRequest(http.MethodOptions, "/api/forecast", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	out := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(out, req)
	assert.Equal(t, http.StatusOK, out.Code)
	assert.Equal(t, "http://localhost:3000", out.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/api/forecast", nil)
	req.Header.Set("Origin", "http://evil.example")
	out = httptest.NewRecorder()
	f.server.Handler().ServeHTTP(out, req)
	assert.Empty(t, out.Header().Get("Access-Control-Allow-Origin"))
}

func TestWrongMethodOnAPIRoutes(t *testing.T) {
	f := newFixture(t, application.Deps{}, nil)

	tests := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/forecast"},
		{http.MethodGet, "/api/insights"},
		{http.MethodDelete, "/api/benchmarks"},
		{http.MethodPost, "/api/user-presets/3"},
		{http.MethodPut, "/api/research/presets"},
		{http.MethodPost, "/health"},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rr := f.do(t, tt.method, tt.path, nil)
			require.Equal(t, http.StatusMethodNotAllowed, rr.Code)
			body := decodeBody[ErrorResponse](t, rr)
			assert.Equal(t, "method_not_allowed", body.Code)
			assert.Contains(t, body.Message, tt.path)
		})
	}

	rr := f.do(t, http.MethodGet, "/api/forecast", nil)
	assert.Len(t, rr.Header().Get("X-Request-ID"), 8, "api fallbacks run through the middleware chain")
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t, application.Deps{}, nil)
	f.do(t, http.MethodPost, "/api/forecast", forecastRequest())

	rr := f.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "growthcast_forecasts_total")
	assert.Contains(t, rr.Body.String(), "growthcast_http_requests_total")
}

func TestLiveForecastWebsocket(t *testing.T) {
	f := newFixture(t, application.Deps{}, nil)
	ts := httptest.NewServer(f.server.Handler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/forecast"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(forecastRequest()))
	var frame liveFrame
	require.NoError(t, conn.ReadJSON(&frame))
	assert.Equal(t, 1, frame.Seq)
	require.NotNil(t, frame.Forecast)
	assert.Nil(t, frame.Error)
	assert.Len(t, frame.Forecast.Result.Months, 6)

	bad := forecastRequest()
	bad.Plan.PostsPerWeekTotal = -1
	require.NoError(t, conn.WriteJSON(bad))
	frame = liveFrame{}
	require.NoError(t, conn.ReadJSON(&frame))
	assert.Equal(t, 2, frame.Seq)
	require.NotNil(t, frame.Error)
	assert.Equal(t, "invalid_configuration", frame.Error.Code)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{")))
	frame = liveFrame{}
	require.NoError(t, conn.ReadJSON(&frame))
	require.NotNil(t, frame.Error)
	assert.Equal(t, "invalid_json", frame.Error.Code)
}
