package application

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sawpanic/growthcast/internal/audience"
	"github.com/sawpanic/growthcast/internal/calibration"
	"github.com/sawpanic/growthcast/internal/events"
	"github.com/sawpanic/growthcast/internal/forecast"
	"github.com/sawpanic/growthcast/internal/history"
	"github.com/sawpanic/growthcast/internal/infrastructure/cache"
	"github.com/sawpanic/growthcast/internal/insights"
	"github.com/sawpanic/growthcast/internal/persistence"
)

// ErrPersistenceDisabled is returned by preset operations when no
// database is configured.
var ErrPersistenceDisabled = errors.New("preset persistence is not configured")

// ForecastRequest is a forecast input plus optional named presets. A
// strategy preset sets lift, sensitivity and acquisition scalar; a
// research preset sets cadence and platform allocation.
type ForecastRequest struct {
	forecast.Input `yaml:",inline"`
	Preset         string `json:"preset,omitempty" yaml:"preset,omitempty"`
	ResearchPreset string `json:"research_preset,omitempty" yaml:"research_preset,omitempty"`
}

type ForecastResponse struct {
	Result                 *forecast.Result `json:"result"`
	Warnings               []string         `json:"warnings"`
	Cached                 bool             `json:"cached"`
	RequestHash            string           `json:"request_hash"`
	CalibrationFingerprint string           `json:"calibration_fingerprint,omitempty"`
	DataVersion            string           `json:"data_version,omitempty"`
}

type InsightsResponse struct {
	Insight  insights.Insight `json:"insight"`
	Summary  insights.Summary `json:"summary"`
	Warnings []string         `json:"warnings"`
}

// Observer receives one call per forecast served.
type Observer interface {
	ObserveForecast(d time.Duration, cached bool, err error)
}

type Deps struct {
	Benchmarks  forecast.Benchmarks
	Calibration *calibration.Calibration
	History     *history.Store
	Cache       cache.Cache
	CacheTTL    time.Duration
	Events      *events.Publisher
	Narrator    *insights.Narrator
	Analyst     *insights.Analyst
	Presets     persistence.PresetRepo
	Observer    Observer
}

// Planner runs forecasts and everything derived from them.
type Planner struct {
	engine   *forecast.Engine
	calib    *calibration.Calibration
	history  *history.Store
	cache    cache.Cache
	ttl      time.Duration
	events   *events.Publisher
	narrator *insights.Narrator
	analyst  *insights.Analyst
	presets  persistence.PresetRepo
	observer Observer
}

func NewPlanner(d Deps) *Planner {
	if d.Benchmarks.BaseMonthlyRate == nil {
		d.Benchmarks = forecast.DefaultBenchmarks()
	}
	if d.Calibration == nil {
		d.Calibration = &calibration.Calibration{}
	}
	if d.Narrator == nil {
		d.Narrator = insights.NewNarrator(nil)
	}
	if d.Analyst == nil {
		d.Analyst = insights.NewAnalyst(nil)
	}
	return &Planner{
		engine:   forecast.NewEngine(d.Benchmarks),
		calib:    d.Calibration,
		history:  d.History,
		cache:    d.Cache,
		ttl:      d.CacheTTL,
		events:   d.Events,
		narrator: d.Narrator,
		analyst:  d.Analyst,
		presets:  d.Presets,
		observer: d.Observer,
	}
}

// Forecast serves a forecast, from cache when an identical request was
// answered under the same calibration and data files.
func (p *Planner) Forecast(ctx context.Context, req ForecastRequest) (*ForecastResponse, error) {
	start := time.Now()
	resp, err := p.forecast(ctx, req, true)
	if p.observer != nil {
		p.observer.ObserveForecast(time.Since(start), resp != nil && resp.Cached, err)
	}
	if err != nil {
		return nil, err
	}

	err = p.events.PublishForecast(events.ForecastCompleted{
		RequestHash:    resp.RequestHash,
		Months:         len(resp.Result.Months),
		StartTotal:     resp.Result.StartTotal,
		ProjectedTotal: resp.Result.ProjectedTotal,
		ProgressPct:    resp.Result.ProgressPct,
		GoalMonth:      resp.Result.GoalMonth,
		Cached:         resp.Cached,
		DurationMS:     time.Since(start).Milliseconds(),
	})
	if err != nil {
		log.Warn().Err(err).Msg("Forecast event not published")
	}
	return resp, nil
}

func (p *Planner) forecast(ctx context.Context, req ForecastRequest, useCache bool) (*ForecastResponse, error) {
	in, err := p.resolve(req)
	if err != nil {
		return nil, err
	}

	resp := &ForecastResponse{
		Warnings:               []string{},
		CalibrationFingerprint: p.calib.Fingerprint,
	}
	if p.history != nil {
		resp.DataVersion = p.history.Version()
	}
	resp.RequestHash, err = requestHash(req, resp.CalibrationFingerprint, resp.DataVersion)
	if err != nil {
		return nil, err
	}

	key := "forecast:" + resp.RequestHash
	if useCache && p.cache != nil {
		if cached, ok := p.lookup(ctx, key); ok {
			return cached, nil
		}
	}

	if len(in.Engagement) == 0 {
		in.Engagement, resp.Warnings = p.engagement(resp.Warnings)
	}

	res, err := p.engine.Run(in)
	if err != nil {
		return nil, err
	}
	if res.EngagementFallback {
		resp.Warnings = append(resp.Warnings, "no engagement history; using neutral baseline 0.5")
	}
	resp.Result = res

	if useCache && p.cache != nil {
		p.store(ctx, key, resp)
	}
	return resp, nil
}

func (p *Planner) resolve(req ForecastRequest) (forecast.Input, error) {
	in := req.Input
	if req.ResearchPreset != "" {
		rp, err := audience.PresetByID(req.ResearchPreset)
		if err != nil {
			return in, &forecast.ConfigurationError{Field: "research_preset", Reason: err.Error()}
		}
		rp.Apply(&in.Plan)
	}
	if req.Preset != "" {
		sp, err := forecast.PresetByName(req.Preset)
		if err != nil {
			return in, err
		}
		sp.Apply(&in.Plan)
	}
	if p.calib.Overrides != nil {
		in.Overrides = p.calib.Overrides.Layer(in.Overrides)
	}
	return in, nil
}

// engagement loads the historical series, degrading to an empty one.
func (p *Planner) engagement(warnings []string) ([]float64, []string) {
	if p.history == nil {
		return nil, warnings
	}
	series, err := p.history.Engagement()
	if err != nil {
		log.Warn().Err(err).Str("dir", p.history.Dir()).Msg("Historical engagement unavailable")
		return nil, append(warnings, fmt.Sprintf("historical data unavailable: %v", err))
	}
	return series, warnings
}

func (p *Planner) lookup(ctx context.Context, key string) (*ForecastResponse, bool) {
	raw, ok, err := p.cache.Get(ctx, key)
	if err != nil {
		log.Warn().Err(err).Str("cache", p.cache.Name()).Msg("Cache read failed")
		return nil, false
	}
	if !ok {
		return nil, false
	}
	var resp ForecastResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Discarding undecodable cache entry")
		return nil, false
	}
	resp.Cached = true
	return &resp, true
}

func (p *Planner) store(ctx context.Context, key string, resp *ForecastResponse) {
	raw, err := json.Marshal(resp)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to encode forecast for cache")
		return
	}
	if err := p.cache.Set(ctx, key, raw, p.ttl); err != nil {
		log.Warn().Err(err).Str("cache", p.cache.Name()).Msg("Cache write failed")
	}
}

// requestHash digests the canonical request JSON together with the
// calibration fingerprint and data version.
func requestHash(req ForecastRequest, fingerprint, version string) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("hash request: %w", err)
	}
	h := sha256.New()
	h.Write(body)
	h.Write([]byte{0})
	h.Write([]byte(fingerprint))
	h.Write([]byte{0})
	h.Write([]byte(version))
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Insights runs an uncached forecast and narrates it.
func (p *Planner) Insights(ctx context.Context, req ForecastRequest) (*InsightsResponse, error) {
	resp, err := p.forecast(ctx, req, false)
	if err != nil {
		return nil, err
	}

	var tags []history.TagRow
	var tagNames []string
	if p.history != nil {
		if ds, err := p.history.Get(); err == nil {
			tags, tagNames = ds.Tags, ds.TagNames
		}
	}
	engagement := req.Engagement
	if len(engagement) == 0 && p.history != nil {
		engagement, _ = p.history.Engagement()
	}

	summary := insights.BuildSummary(resp.Result, p.resolvedPlan(req), engagement, tags, tagNames)
	return &InsightsResponse{
		Insight:  p.narrator.Narrate(ctx, summary),
		Summary:  summary,
		Warnings: resp.Warnings,
	}, nil
}

func (p *Planner) resolvedPlan(req ForecastRequest) forecast.Plan {
	in, err := p.resolve(req)
	if err != nil {
		return req.Plan
	}
	return in.Plan
}

// Analyze critiques the request's strategy and projects each proposed
// scenario through the engine.
func (p *Planner) Analyze(ctx context.Context, req ForecastRequest) (*insights.Analysis, error) {
	in, err := p.resolve(req)
	if err != nil {
		return nil, err
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}

	presetName := req.Preset
	if presetName == "" {
		presetName = req.ResearchPreset
	}
	if presetName == "" {
		presetName = "custom"
	}
	analysis := p.analyst.Analyze(ctx, insights.StrategyInput{
		CurrentFollowers: in.CurrentFollowers,
		PostsPerWeek:     in.Plan.PostsPerWeekTotal,
		Allocation:       in.Plan.PlatformAllocation,
		Months:           in.Plan.Months,
		Preset:           presetName,
	})

	for i := range analysis.Scenarios {
		sc := &analysis.Scenarios[i]
		alt := req
		alt.ResearchPreset = ""
		alt.Plan = in.Plan
		alt.Plan.PostsPerWeekTotal = sc.PostsPerWeek
		alt.Plan.PlatformAllocation = sc.Allocation
		resp, err := p.forecast(ctx, alt, true)
		if err != nil {
			log.Debug().Err(err).Str("scenario", sc.Name).Msg("Scenario projection skipped")
			continue
		}
		pct := resp.Result.ProgressPct
		sc.ProjectedProgressPct = &pct
	}
	return &analysis, nil
}

type HistoricalResponse struct {
	*history.Dataset
	Followers *calibration.FollowerHistory `json:"followers,omitempty"`
	Version   string                       `json:"version"`
}

// Historical returns the loaded data files and any follower history
// recovered from calibration.
func (p *Planner) Historical() (*HistoricalResponse, error) {
	if p.history == nil {
		return nil, &forecast.DataUnavailableError{Source: "history", Err: errors.New("no data directory configured")}
	}
	ds, err := p.history.Get()
	if err != nil {
		return nil, err
	}
	out := &HistoricalResponse{Dataset: ds, Version: p.history.Version()}
	if len(p.calib.History.Points) > 0 {
		h := p.calib.History
		out.Followers = &h
	}
	return out, nil
}

type BenchmarksResponse struct {
	Defaults    forecast.Benchmarks `json:"defaults"`
	Effective   forecast.Benchmarks `json:"effective"`
	Overrides   *forecast.Overrides `json:"overrides,omitempty"`
	Report      *calibration.Report `json:"calibration_report,omitempty"`
	Fingerprint string              `json:"fingerprint,omitempty"`
	Presets     []forecast.Preset   `json:"presets"`
}

func (p *Planner) Benchmarks() BenchmarksResponse {
	base := p.engine.Benchmarks()
	return BenchmarksResponse{
		Defaults:    base,
		Effective:   base.Merge(p.calib.Overrides),
		Overrides:   p.calib.Overrides,
		Report:      p.calib.Report,
		Fingerprint: p.calib.Fingerprint,
		Presets:     forecast.Presets,
	}
}

// UserPresets returns the preset repository or ErrPersistenceDisabled.
func (p *Planner) UserPresets() (persistence.PresetRepo, error) {
	if p.presets == nil {
		return nil, ErrPersistenceDisabled
	}
	return p.presets, nil
}
