package forecast

import (
	"math"
	"sort"
)

// Benchmarks holds every constant table the simulation reads. A value is
// treated as read-only by Run; use Clone before mutating a shared copy.
type Benchmarks struct {
	BaseMonthlyRate    map[Platform]float64                 `json:"base_monthly_rate" yaml:"base_monthly_rate"`
	FreqHalfSat        map[Platform]float64                 `json:"freq_half_sat" yaml:"freq_half_sat"`
	FreqBands          map[Platform]FreqBand                `json:"recommended_freq" yaml:"recommended_freq"`
	MonthlyCap         map[Platform]float64                 `json:"platform_monthly_cap" yaml:"platform_monthly_cap"`
	ContentMult        map[Platform]map[ContentType]float64 `json:"content_mult" yaml:"content_mult"`
	PerPostGain        map[Platform]float64                 `json:"per_post_gain_base" yaml:"per_post_gain_base"`
	PaidFunnel         map[Platform]Funnel                  `json:"paid_funnel" yaml:"paid_funnel"`
	CPF                map[Channel]CPF                      `json:"cpf" yaml:"cpf"`
	MonthDecayPerMonth float64                              `json:"month_decay_per_month" yaml:"month_decay_per_month"`
}

// DefaultFunnel applies to a platform missing from the paid funnel table.
var DefaultFunnel = Funnel{ViewThrough: 0.3, Engagement: 0.02, FollowConversion: 0.01}

// DefaultCPF applies to every budget channel unless overridden.
var DefaultCPF = CPF{Min: 0.10, Mid: 0.15, Max: 0.20}

func DefaultBenchmarks() Benchmarks {
	return Benchmarks{
		BaseMonthlyRate: map[Platform]float64{
			Instagram: 0.0045,
			TikTok:    0.0040,
			YouTube:   0.0035,
			Facebook:  0.0025,
		},
		FreqHalfSat: map[Platform]float64{
			Instagram: 6,
			TikTok:    7,
			YouTube:   3,
			Facebook:  8,
		},
		FreqBands: map[Platform]FreqBand{
			Instagram: {Min: 2, Max: 7, Soft: 10, Hard: 14},
			TikTok:    {Min: 3, Max: 10, Soft: 15, Hard: 25},
			YouTube:   {Min: 1, Max: 3, Soft: 5, Hard: 8},
			Facebook:  {Min: 3, Max: 10, Soft: 14, Hard: 20},
		},
		MonthlyCap: map[Platform]float64{
			Instagram: 0.10,
			TikTok:    0.12,
			YouTube:   0.08,
			Facebook:  0.06,
		},
		ContentMult: map[Platform]map[ContentType]float64{
			Instagram: {ShortVideo: 1.10, Image: 1.12, Carousel: 1.25, LongVideo: 1.05, StoryLive: 1.00},
			TikTok:    {ShortVideo: 1.30, Image: 0.75, Carousel: 0.85, LongVideo: 0.85, StoryLive: 1.05},
			YouTube:   {ShortVideo: 0.85, Image: 0.70, Carousel: 0.80, LongVideo: 1.30, StoryLive: 0.95},
			Facebook:  {ShortVideo: 1.05, Image: 1.00, Carousel: 1.05, LongVideo: 1.10, StoryLive: 1.00},
		},
		PerPostGain: map[Platform]float64{
			Instagram: 640,
			TikTok:    450,
			YouTube:   500,
			Facebook:  300,
		},
		PaidFunnel: map[Platform]Funnel{
			Instagram: {ViewThrough: 0.35, Engagement: 0.025, FollowConversion: 0.015},
			TikTok:    {ViewThrough: 0.40, Engagement: 0.030, FollowConversion: 0.012},
			YouTube:   {ViewThrough: 0.30, Engagement: 0.020, FollowConversion: 0.010},
			Facebook:  {ViewThrough: 0.28, Engagement: 0.015, FollowConversion: 0.008},
		},
		CPF: map[Channel]CPF{
			ChannelPaid:        DefaultCPF,
			ChannelCreator:     DefaultCPF,
			ChannelAcquisition: DefaultCPF,
		},
	}
}

// Clone returns a deep copy.
func (b Benchmarks) Clone() Benchmarks {
	out := Benchmarks{
		BaseMonthlyRate:    cloneFloats(b.BaseMonthlyRate),
		FreqHalfSat:        cloneFloats(b.FreqHalfSat),
		FreqBands:          make(map[Platform]FreqBand, len(b.FreqBands)),
		MonthlyCap:         cloneFloats(b.MonthlyCap),
		ContentMult:        make(map[Platform]map[ContentType]float64, len(b.ContentMult)),
		PerPostGain:        cloneFloats(b.PerPostGain),
		PaidFunnel:         make(map[Platform]Funnel, len(b.PaidFunnel)),
		CPF:                make(map[Channel]CPF, len(b.CPF)),
		MonthDecayPerMonth: b.MonthDecayPerMonth,
	}
	for p, band := range b.FreqBands {
		out.FreqBands[p] = band
	}
	for p, table := range b.ContentMult {
		out.ContentMult[p] = cloneFloats(table)
	}
	for p, f := range b.PaidFunnel {
		out.PaidFunnel[p] = f
	}
	for c, cpf := range b.CPF {
		out.CPF[c] = cpf
	}
	return out
}

// Merge deep-merges o over a copy of b: every key present in o wins,
// every key absent keeps the value from b. A nil o yields a plain clone.
func (b Benchmarks) Merge(o *Overrides) Benchmarks {
	out := b.Clone()
	if o == nil {
		return out
	}
	mergeFloats(out.BaseMonthlyRate, o.BaseMonthlyRate)
	mergeFloats(out.FreqHalfSat, o.FreqHalfSat)
	mergeFloats(out.MonthlyCap, o.MonthlyCap)
	mergeFloats(out.PerPostGain, o.PerPostGain)

	for p, partial := range o.FreqBands {
		out.FreqBands[p] = partial.apply(out.FreqBands[p])
	}
	for p, table := range o.ContentMult {
		if out.ContentMult[p] == nil {
			out.ContentMult[p] = make(map[ContentType]float64, len(table))
		}
		mergeFloats(out.ContentMult[p], table)
	}
	for p, partial := range o.PaidFunnel {
		base, ok := out.PaidFunnel[p]
		if !ok {
			base = DefaultFunnel
		}
		out.PaidFunnel[p] = partial.apply(base)
	}
	for c, partial := range o.CPF {
		base, ok := out.CPF[c]
		if !ok {
			base = DefaultCPF
		}
		out.CPF[c] = partial.apply(base)
	}
	if o.MonthDecayPerMonth != nil {
		out.MonthDecayPerMonth = *o.MonthDecayPerMonth
	}
	return out
}

// Validate fails fast when a table lacks an entry for one of platforms or
// holds a value the simulation cannot use.
func (b Benchmarks) Validate(platforms []Platform) error {
	for _, p := range platforms {
		if err := requireRate("base_monthly_rate", b.BaseMonthlyRate, p); err != nil {
			return err
		}
		if err := requireRate("freq_half_sat", b.FreqHalfSat, p); err != nil {
			return err
		}
		if err := requireRate("platform_monthly_cap", b.MonthlyCap, p); err != nil {
			return err
		}
		if err := requireRate("per_post_gain_base", b.PerPostGain, p); err != nil {
			return err
		}

		band, ok := b.FreqBands[p]
		if !ok {
			return configErrorf("recommended_freq", "no entry for platform %q", p)
		}
		if !allFinite(band.Min, band.Max, band.Soft, band.Hard) {
			return configErrorf("recommended_freq", "non-finite threshold for %q", p)
		}
		if band.Min > band.Max || band.Soft > band.Hard {
			return configErrorf("recommended_freq", "thresholds out of order for %q", p)
		}

		table, ok := b.ContentMult[p]
		if !ok {
			return configErrorf("content_mult", "no entry for platform %q", p)
		}
		for _, ct := range ContentTypes {
			v, ok := table[ct]
			if !ok {
				return configErrorf("content_mult", "no %q multiplier for platform %q", ct, p)
			}
			if !isFinite(v) || v < 0 {
				return configErrorf("content_mult", "invalid %q multiplier for platform %q: %v", ct, p, v)
			}
		}
		for ct := range table {
			if !IsKnownContentType(ct) {
				return configErrorf("content_mult", "unknown content type %q for platform %q", ct, p)
			}
		}

		if f, ok := b.PaidFunnel[p]; ok && !f.valid() {
			return configErrorf("paid_funnel", "rates for %q must be finite and >= 0", p)
		}
	}

	for c, cpf := range b.CPF {
		if !IsKnownChannel(c) {
			return configErrorf("cpf", "unknown channel %q", c)
		}
		if err := cpf.check(); err != nil {
			return configErrorf("cpf", "channel %q: %v", c, err)
		}
	}
	if !isFinite(b.MonthDecayPerMonth) || b.MonthDecayPerMonth < 0 {
		return configErrorf("month_decay_per_month", "must be a finite value >= 0, got %v", b.MonthDecayPerMonth)
	}
	return nil
}

// funnel returns the paid funnel for p, falling back to DefaultFunnel.
func (b Benchmarks) funnel(p Platform) Funnel {
	if f, ok := b.PaidFunnel[p]; ok {
		return f
	}
	return DefaultFunnel
}

func (b Benchmarks) cpf(c Channel) CPF {
	if v, ok := b.CPF[c]; ok {
		return v
	}
	return DefaultCPF
}

// SortedPlatforms returns the platforms that have a base rate, in
// reference order first and then alphabetically.
func (b Benchmarks) SortedPlatforms() []Platform {
	out := make([]Platform, 0, len(b.BaseMonthlyRate))
	seen := make(map[Platform]bool)
	for _, p := range Platforms {
		if _, ok := b.BaseMonthlyRate[p]; ok {
			out = append(out, p)
			seen[p] = true
		}
	}
	var extra []Platform
	for p := range b.BaseMonthlyRate {
		if !seen[p] {
			extra = append(extra, p)
		}
	}
	sort.Slice(extra, func(i, j int) bool { return extra[i] < extra[j] })
	return append(out, extra...)
}

func requireRate(field string, table map[Platform]float64, p Platform) error {
	v, ok := table[p]
	if !ok {
		return configErrorf(field, "no entry for platform %q", p)
	}
	if !isFinite(v) || v < 0 {
		return configErrorf(field, "invalid value for platform %q: %v", p, v)
	}
	return nil
}

func cloneFloats[K comparable](in map[K]float64) map[K]float64 {
	out := make(map[K]float64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func mergeFloats[K comparable](dst, src map[K]float64) {
	for k, v := range src {
		dst[k] = v
	}
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func allFinite(vs ...float64) bool {
	for _, v := range vs {
		if !isFinite(v) {
			return false
		}
	}
	return true
}
