package output

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/growthcast/internal/forecast"
)

func sampleResult() *forecast.Result {
	return &forecast.Result{
		Platforms: []forecast.Platform{forecast.Instagram, forecast.TikTok},
		Months: []forecast.MonthRow{
			{Month: 1, Followers: map[forecast.Platform]float64{forecast.Instagram: 1100, forecast.TikTok: 2050.5}, Total: 3150.5, Added: 150.25, AddedOrganic: 150.25},
			{Month: 2, Followers: map[forecast.Platform]float64{forecast.Instagram: 1250, forecast.TikTok: 2200}, Total: 3450, Added: 299.5, AddedOrganic: 280, AddedPaid: 19.5},
		},
		StartTotal:         3000,
		Goal:               6000,
		ProjectedTotal:     3450,
		ProgressPct:        57.5,
		EngagementBaseline: 0.5,
		EngagementFallback: true,
	}
}

func TestWriteMonthsCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewEmitter().WriteMonthsCSV(&buf, sampleResult()))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"Month", "Instagram", "TikTok", "Total", "Added", "AddedOrganic", "AddedPaid"}, records[0])
	assert.Equal(t, []string{"1", "1100.00", "2050.50", "3150.50", "150.25", "150.25", "0.00"}, records[1])
}

func TestEmitMonthsCSVFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "months.csv")
	require.NoError(t, NewEmitter().EmitMonthsCSV(path, sampleResult()))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "2,1250.00,2200.00,3450.00")
}

func TestWriteTable(t *testing.T) {
	color.NoColor = true
	var buf bytes.Buffer
	require.NoError(t, NewEmitter().WriteTable(&buf, sampleResult(), []string{"historical data unavailable: mentions"}))

	out := buf.String()
	assert.Contains(t, out, "Instagram")
	assert.Contains(t, out, "+150")
	assert.Contains(t, out, "Start 3,000 -> projected 3,450 (goal 6,000, 57.5%), goal not reached")
	assert.Contains(t, out, "neutral fallback")
	assert.Contains(t, out, "warning: historical data unavailable: mentions")
}

func TestEmitJSONToWriter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewEmitter().EmitJSON(&buf, "", map[string]int{"months": 2}))
	assert.JSONEq(t, `{"months":2}`, buf.String())
}
