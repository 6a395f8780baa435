package forecast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultBenchmarks_CoverEveryPlatform(t *testing.T) {
	b := DefaultBenchmarks()
	require.NoError(t, b.Validate(Platforms))
	assert.Equal(t, Platforms, b.SortedPlatforms())
}

func TestBenchmarks_MergeIsDeep(t *testing.T) {
	defaults := DefaultBenchmarks()
	merged := defaults.Merge(&Overrides{
		BaseMonthlyRate: map[Platform]float64{TikTok: 0.009},
		ContentMult:     map[Platform]map[ContentType]float64{YouTube: {LongVideo: 1.5}},
		FreqBands:       map[Platform]PartialFreqBand{Facebook: {Soft: Float(12)}},
		PaidFunnel:      map[Platform]PartialFunnel{Instagram: {ViewThrough: Float(0.5)}},
		CPF:             map[Channel]PartialCPF{ChannelCreator: {Mid: Float(12.5)}},
	})

	assert.Equal(t, 0.009, merged.BaseMonthlyRate[TikTok])
	assert.Equal(t, 0.0045, merged.BaseMonthlyRate[Instagram], "absent keys keep defaults")

	assert.Equal(t, 1.5, merged.ContentMult[YouTube][LongVideo])
	assert.Equal(t, 0.85, merged.ContentMult[YouTube][ShortVideo])

	assert.Equal(t, FreqBand{Min: 3, Max: 10, Soft: 12, Hard: 20}, merged.FreqBands[Facebook])
	assert.Equal(t, Funnel{ViewThrough: 0.5, Engagement: 0.025, FollowConversion: 0.015}, merged.PaidFunnel[Instagram])
	assert.Equal(t, CPF{Min: 0.10, Mid: 12.5, Max: 12.5}, merged.CPF[ChannelCreator], "inherited max stretches to mid")
	assert.Equal(t, DefaultCPF, merged.CPF[ChannelPaid])

	// the source tables are untouched
	assert.Equal(t, 0.0040, defaults.BaseMonthlyRate[TikTok])
	assert.Equal(t, 1.30, defaults.ContentMult[YouTube][LongVideo])
	assert.Equal(t, 14.0, defaults.FreqBands[Facebook].Soft)
}

func TestBenchmarks_MergeNil(t *testing.T) {
	defaults := DefaultBenchmarks()
	assert.Equal(t, defaults, defaults.Merge(nil))
}

func TestBenchmarks_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Benchmarks)
		field  string
	}{
		{"missing cap", func(b *Benchmarks) { delete(b.MonthlyCap, TikTok) }, "platform_monthly_cap"},
		{"missing band", func(b *Benchmarks) { delete(b.FreqBands, YouTube) }, "recommended_freq"},
		{"band out of order", func(b *Benchmarks) {
			b.FreqBands[YouTube] = FreqBand{Min: 1, Max: 3, Soft: 9, Hard: 8}
		}, "recommended_freq"},
		{"missing content type", func(b *Benchmarks) { delete(b.ContentMult[Facebook], Carousel) }, "content_mult"},
		{"unknown content type", func(b *Benchmarks) { b.ContentMult[Facebook]["Reel"] = 1 }, "content_mult"},
		{"negative base rate", func(b *Benchmarks) { b.BaseMonthlyRate[Instagram] = -0.1 }, "base_monthly_rate"},
		{"negative decay", func(b *Benchmarks) { b.MonthDecayPerMonth = -0.1 }, "month_decay_per_month"},
		{"negative view-through", func(b *Benchmarks) {
			b.PaidFunnel[Instagram] = Funnel{ViewThrough: -1, Engagement: 0.025, FollowConversion: 0.015}
		}, "paid_funnel"},
		{"negative engagement rate", func(b *Benchmarks) {
			b.PaidFunnel[TikTok] = Funnel{ViewThrough: 0.35, Engagement: -0.1, FollowConversion: 0.015}
		}, "paid_funnel"},
		{"negative follow conversion", func(b *Benchmarks) {
			b.PaidFunnel[YouTube] = Funnel{ViewThrough: 0.35, Engagement: 0.025, FollowConversion: -0.5}
		}, "paid_funnel"},
		{"cpf min above mid", func(b *Benchmarks) { b.CPF[ChannelPaid] = CPF{Min: 0.3, Mid: 0.2, Max: 0.4} }, "cpf"},
		{"cpf mid above max", func(b *Benchmarks) { b.CPF[ChannelCreator] = CPF{Min: 0.1, Mid: 0.5, Max: 0.4} }, "cpf"},
		{"negative cpf", func(b *Benchmarks) { b.CPF[ChannelAcquisition] = CPF{Min: -0.1, Mid: 0.1, Max: 0.2} }, "cpf"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := DefaultBenchmarks()
			tt.mutate(&b)
			err := b.Validate(Platforms)
			var ce *ConfigurationError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tt.field, ce.Field)
		})
	}
}

func TestPartialCPF_ExplicitBoundsAreKept(t *testing.T) {
	low := PartialCPF{Mid: Float(0.05)}.apply(DefaultCPF)
	assert.Equal(t, CPF{Min: 0.05, Mid: 0.05, Max: 0.20}, low)

	explicit := PartialCPF{Min: Float(0.3), Mid: Float(0.2)}.apply(DefaultCPF)
	assert.Equal(t, CPF{Min: 0.3, Mid: 0.2, Max: 0.20}, explicit)
	assert.Error(t, explicit.check(), "explicitly inverted bounds are left for Validate to reject")
}

func TestBenchmarks_MissingFunnelUsesDefault(t *testing.T) {
	b := DefaultBenchmarks()
	delete(b.PaidFunnel, Facebook)
	require.NoError(t, b.Validate(Platforms))
	assert.Equal(t, DefaultFunnel, b.funnel(Facebook))
}

func TestOverrides_Layer(t *testing.T) {
	workbook := &Overrides{
		BaseMonthlyRate:    map[Platform]float64{Instagram: 0.01, TikTok: 0.02},
		CPF:                map[Channel]PartialCPF{ChannelPaid: {Min: Float(3), Mid: Float(5), Max: Float(6)}},
		MonthDecayPerMonth: Float(0.02),
	}
	file := &Overrides{
		BaseMonthlyRate: map[Platform]float64{TikTok: 0.03},
		CPF:             map[Channel]PartialCPF{ChannelPaid: {Mid: Float(4)}},
	}

	out := workbook.Layer(file)
	assert.Equal(t, 0.01, out.BaseMonthlyRate[Instagram])
	assert.Equal(t, 0.03, out.BaseMonthlyRate[TikTok])
	assert.Equal(t, 3.0, *out.CPF[ChannelPaid].Min)
	assert.Equal(t, 4.0, *out.CPF[ChannelPaid].Mid)
	assert.Equal(t, 0.02, *out.MonthDecayPerMonth)
	assert.Equal(t, 0.02, workbook.BaseMonthlyRate[TikTok], "inputs are not modified")

	assert.True(t, (*Overrides)(nil).IsEmpty())
	assert.True(t, (&Overrides{}).IsEmpty())
	assert.False(t, out.IsEmpty())
}

func TestParsePlatform(t *testing.T) {
	for in, want := range map[string]Platform{"IG": Instagram, "instagram": Instagram, " TikTok ": TikTok, "yt": YouTube, "FB": Facebook} {
		got, ok := ParsePlatform(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got)
	}
	_, ok := ParsePlatform("myspace")
	assert.False(t, ok)
}

func TestPresetByName(t *testing.T) {
	p, err := PresetByName("balanced")
	require.NoError(t, err)
	assert.Equal(t, Balanced, p)

	var plan Plan
	Ambitious.Apply(&plan)
	assert.Equal(t, 0.35, plan.CampaignLift)
	assert.Equal(t, 0.65, plan.Sensitivity)
	assert.Equal(t, 1.5, plan.AcqScalar)

	_, err = PresetByName("reckless")
	assert.True(t, IsConfigurationError(err))
}
