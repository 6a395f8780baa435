package application

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/growthcast/internal/calibration"
	"github.com/sawpanic/growthcast/internal/forecast"
	"github.com/sawpanic/growthcast/internal/history"
	"github.com/sawpanic/growthcast/internal/infrastructure/cache"
	"github.com/sawpanic/growthcast/internal/insights"
)

func equalMix() map[forecast.Platform]map[forecast.ContentType]float64 {
	mix := make(map[forecast.Platform]map[forecast.ContentType]float64)
	for _, p := range forecast.Platforms {
		mix[p] = map[forecast.ContentType]float64{
			forecast.ShortVideo: 20, forecast.Image: 20, forecast.Carousel: 20, forecast.LongVideo: 20, forecast.StoryLive: 20,
		}
	}
	return mix
}

func request() ForecastRequest {
	return ForecastRequest{Input: forecast.Input{
		CurrentFollowers: map[forecast.Platform]float64{
			forecast.Instagram: 100000, forecast.TikTok: 100000, forecast.YouTube: 100000, forecast.Facebook: 100000,
		},
		Plan: forecast.Plan{
			PostsPerWeekTotal:  28,
			PlatformAllocation: map[forecast.Platform]float64{forecast.Instagram: 25, forecast.TikTok: 25, forecast.YouTube: 25, forecast.Facebook: 25},
			ContentMix:         equalMix(),
			Months:             12,
			CampaignLift:       0.15,
			Sensitivity:        0.5,
			AcqScalar:          1,
		},
	}}
}

func dataDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	mentions := "Time,Mentions\n"
	sentiment := "Time,Positive,Neutral,Negative\n"
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 20; i++ {
		day := start.AddDate(0, 0, 7*i).Format("02/01/2006")
		mentions += day + ",100\n"
		sentiment += day + ",6,3,1\n"
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "generaldynamics.csv"), []byte(mentions), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sentiment-dynamics.csv"), []byte(sentiment), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tags-dynamics.csv"), []byte("Time,plush,retro\n01/01/2024,4,9\n"), 0o644))
	return dir
}

type observed struct {
	mu     sync.Mutex
	calls  int
	cached int
	errs   int
}

func (o *observed) ObserveForecast(_ time.Duration, cached bool, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls++
	if cached {
		o.cached++
	}
	if err != nil {
		o.errs++
	}
}

func TestPlannerForecastCaches(t *testing.T) {
	obs := &observed{}
	mem := cache.NewMemory(0)
	p := NewPlanner(Deps{
		History:  history.NewStore(dataDir(t), history.DefaultFiles()),
		Cache:    mem,
		CacheTTL: time.Minute,
		Observer: obs,
	})

	first, err := p.Forecast(context.Background(), request())
	require.NoError(t, err)
	assert.False(t, first.Cached)
	assert.Empty(t, first.Warnings)
	assert.NotEmpty(t, first.DataVersion)
	assert.Len(t, first.RequestHash, 64)
	assert.False(t, first.Result.EngagementFallback)

	second, err := p.Forecast(context.Background(), request())
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.RequestHash, second.RequestHash)
	assert.InDelta(t, first.Result.ProjectedTotal, second.Result.ProjectedTotal, 1e-6)
	assert.Equal(t, 1, mem.Len())

	other := request()
	other.Plan.PostsPerWeekTotal = 30
	third, err := p.Forecast(context.Background(), other)
	require.NoError(t, err)
	assert.NotEqual(t, first.RequestHash, third.RequestHash)

	assert.Equal(t, 3, obs.calls)
	assert.Equal(t, 1, obs.cached)
}

func TestPlannerHistoryUnavailable(t *testing.T) {
	p := NewPlanner(Deps{History: history.NewStore(filepath.Join(t.TempDir(), "missing"), history.DefaultFiles())})

	resp, err := p.Forecast(context.Background(), request())
	require.NoError(t, err)
	require.Len(t, resp.Warnings, 2)
	assert.Contains(t, resp.Warnings[0], "historical data unavailable")
	assert.Contains(t, resp.Warnings[1], "neutral baseline")
	assert.True(t, resp.Result.EngagementFallback)
}

func TestPlannerRequestEngagementWins(t *testing.T) {
	p := NewPlanner(Deps{History: history.NewStore(filepath.Join(t.TempDir(), "missing"), history.DefaultFiles())})
	req := request()
	req.Engagement = []float64{0.5, 0.5}

	resp, err := p.Forecast(context.Background(), req)
	require.NoError(t, err)
	assert.Empty(t, resp.Warnings)
}

func TestPlannerPresets(t *testing.T) {
	p := NewPlanner(Deps{})

	req := request()
	req.Preset = "reckless"
	_, err := p.Forecast(context.Background(), req)
	assert.True(t, forecast.IsConfigurationError(err))

	req = request()
	req.ResearchPreset = "nope"
	_, err = p.Forecast(context.Background(), req)
	assert.True(t, forecast.IsConfigurationError(err))

	req = request()
	req.ResearchPreset = "gifter_reach"
	req.Preset = "Ambitious"
	resp, err := p.Forecast(context.Background(), req)
	require.NoError(t, err)
	ig := resp.Result.Breakdown[forecast.Instagram]
	assert.InDelta(t, 24*0.25, ig.PostsPerWeek, 1e-9)
}

func TestPlannerAppliesCalibration(t *testing.T) {
	overrides := &forecast.Overrides{BaseMonthlyRate: map[forecast.Platform]float64{forecast.Instagram: 0.05}}
	calib := &calibration.Calibration{Overrides: overrides, Fingerprint: calibration.Fingerprint(overrides)}

	plain, err := NewPlanner(Deps{}).Forecast(context.Background(), request())
	require.NoError(t, err)
	tuned, err := NewPlanner(Deps{Calibration: calib}).Forecast(context.Background(), request())
	require.NoError(t, err)

	assert.Greater(t, tuned.Result.Breakdown[forecast.Instagram].EndFollowers, plain.Result.Breakdown[forecast.Instagram].EndFollowers)
	assert.NotEqual(t, plain.RequestHash, tuned.RequestHash)
	assert.Equal(t, calib.Fingerprint, tuned.CalibrationFingerprint)

	bench := NewPlanner(Deps{Calibration: calib}).Benchmarks()
	assert.Equal(t, 0.05, bench.Effective.BaseMonthlyRate[forecast.Instagram])
	assert.Equal(t, 0.0045, bench.Defaults.BaseMonthlyRate[forecast.Instagram])
	assert.Len(t, bench.Presets, 3)
}

func TestPlannerInsights(t *testing.T) {
	p := NewPlanner(Deps{History: history.NewStore(dataDir(t), history.DefaultFiles())})

	resp, err := p.Insights(context.Background(), request())
	require.NoError(t, err)
	assert.Equal(t, insights.SourceRules, resp.Insight.Source)
	assert.NotEmpty(t, resp.Insight.Lines)
	assert.Equal(t, []string{"retro", "plush"}, resp.Summary.TopTags)
	assert.Len(t, resp.Summary.Contributions, 4)
}

func TestPlannerAnalyzeProjectsScenarios(t *testing.T) {
	p := NewPlanner(Deps{})

	a, err := p.Analyze(context.Background(), request())
	require.NoError(t, err)
	require.Len(t, a.Scenarios, 3)
	for _, sc := range a.Scenarios {
		require.NotNil(t, sc.ProjectedProgressPct, sc.Name)
		assert.Greater(t, *sc.ProjectedProgressPct, 0.0)
	}
	assert.Len(t, a.Phases, 3)

	bad := request()
	bad.Plan.Months = 0
	_, err = p.Analyze(context.Background(), bad)
	assert.True(t, forecast.IsConfigurationError(err))
}

func TestPlannerHistoricalAndPresets(t *testing.T) {
	_, err := NewPlanner(Deps{}).Historical()
	assert.True(t, forecast.IsDataUnavailable(err))

	p := NewPlanner(Deps{History: history.NewStore(dataDir(t), history.DefaultFiles())})
	h, err := p.Historical()
	require.NoError(t, err)
	assert.Len(t, h.Mentions, 20)
	assert.Nil(t, h.Followers)

	_, err = p.UserPresets()
	assert.ErrorIs(t, err, ErrPersistenceDisabled)
}
