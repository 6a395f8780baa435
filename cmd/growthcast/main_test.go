package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/growthcast/internal/application"
	"github.com/sawpanic/growthcast/internal/audience"
	"github.com/sawpanic/growthcast/internal/history"
)

const planYAML = `current_followers:
  Instagram: 40000
  TikTok: 25000
  YouTube: 8000
  Facebook: 30000
plan:
  posts_per_week_total: 21
  platform_allocation:
    Instagram: 35
    TikTok: 35
    YouTube: 10
    Facebook: 20
  content_mix:
    Instagram: {"Short Video": 50, "Carousel": 50}
    TikTok: {"Short Video": 100}
    YouTube: {"Long Video": 60, "Short Video": 40}
    Facebook: {"Image": 50, "Short Video": 50}
  months: 6
  campaign_lift: 0.1
  sensitivity: 0.5
  acq_scalar: 1
engagement: [0.5, 0.55, 0.6]
`

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--config", "", "--env-file", "", "--log-level", "error"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestForecastCommandJSON(t *testing.T) {
	plan := filepath.Join(t.TempDir(), "plan.yaml")
	require.NoError(t, os.WriteFile(plan, []byte(planYAML), 0o644))
	csvPath := filepath.Join(t.TempDir(), "months.csv")

	out, err := execute(t, "forecast", "--plan", plan, "--json", "--preset", "Balanced", "--csv", csvPath)
	require.NoError(t, err, out)

	var resp application.ForecastResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp), out)
	require.NotNil(t, resp.Result)
	assert.Len(t, resp.Result.Months, 6)
	assert.InDelta(t, 103000, resp.Result.StartTotal, 1e-6)
	assert.FileExists(t, csvPath)
}

func TestForecastCommandRequiresPlan(t *testing.T) {
	_, err := execute(t, "forecast")
	assert.Error(t, err)

	_, err = execute(t, "forecast", "--plan", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read plan")
}

func TestAudienceCommand(t *testing.T) {
	out, err := execute(t, "audience", "--parents", "1", "--json")
	require.NoError(t, err, out)

	var rec audience.Recommendation
	require.NoError(t, json.Unmarshal([]byte(out), &rec))
	assert.Equal(t, 0.89, rec.Confidence)

	_, err = execute(t, "audience", "--platform", "myspace")
	assert.Error(t, err)
}

func TestHistoryCommand(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "generaldynamics.csv"),
		[]byte("Time,Mentions\n01/01/2024,10\n08/01/2024,20\n"), 0o644))

	out, err := execute(t, "history", "--data-dir", dir, "--json")
	require.NoError(t, err, out)

	var ds history.Dataset
	require.NoError(t, json.Unmarshal([]byte(out), &ds))
	assert.Len(t, ds.Mentions, 2)
}

func TestInvalidLogLevel(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--log-level", "loud", "audience", "--json"})
	assert.ErrorContains(t, cmd.Execute(), "invalid log level")
}
