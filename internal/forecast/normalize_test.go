package forecast

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize_SumsToOne(t *testing.T) {
	inputs := []map[Platform]float64{
		{Instagram: 25, TikTok: 25, YouTube: 25, Facebook: 25},
		{Instagram: 40, TikTok: 35},
		{Instagram: 1e-9},
		{Instagram: 3, TikTok: -10, YouTube: 7},
		{Instagram: 33.3, TikTok: 33.3, YouTube: 33.3, Facebook: 0.1},
	}
	for _, raw := range inputs {
		got := Normalize(Platforms, raw)
		sum := 0.0
		for _, v := range got {
			assert.GreaterOrEqual(t, v, 0.0)
			sum += v
		}
		assert.InDelta(t, 1.0, sum, 1e-9, "input %v", raw)
	}
}

func TestNormalize_ClampsNegatives(t *testing.T) {
	got := Normalize(Platforms, map[Platform]float64{Instagram: 3, TikTok: -10, YouTube: 1})
	assert.InDelta(t, 0.75, got[Instagram], 1e-12)
	assert.Equal(t, 0.0, got[TikTok])
	assert.InDelta(t, 0.25, got[YouTube], 1e-12)
	assert.Equal(t, 0.0, got[Facebook])
}

func TestNormalize_UniformFallback(t *testing.T) {
	cases := map[string]map[Platform]float64{
		"nil":          nil,
		"all zero":     {Instagram: 0, TikTok: 0, YouTube: 0, Facebook: 0},
		"all negative": {Instagram: -1, TikTok: -5},
		"non-finite":   {Instagram: math.NaN(), TikTok: math.Inf(1)},
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			got := Normalize(Platforms, raw)
			for _, p := range Platforms {
				assert.Equal(t, 0.25, got[p])
			}
		})
	}
}

func TestNormalize_ContentTypes(t *testing.T) {
	got := Normalize(ContentTypes, map[ContentType]float64{ShortVideo: 60, Carousel: 40})
	assert.InDelta(t, 0.6, got[ShortVideo], 1e-12)
	assert.InDelta(t, 0.4, got[Carousel], 1e-12)
	assert.Len(t, got, len(ContentTypes))
}

func TestNormalize_EmptyContentMixIsEqualSplit(t *testing.T) {
	for name, raw := range map[string]map[ContentType]float64{
		"nil":      nil,
		"all zero": {ShortVideo: 0, Image: 0},
	} {
		t.Run(name, func(t *testing.T) {
			got := Normalize(ContentTypes, raw)
			require.Len(t, got, len(ContentTypes))
			for _, ct := range ContentTypes {
				assert.Equal(t, 0.2, got[ct])
			}
			assert.InDelta(t, 0.2, HHI(got), 1e-12)
		})
	}
}
