package forecast

// Overrides is a partial Benchmarks. Maps may carry any subset of keys and
// the pointer fields of the partial structs mark which values are present.
type Overrides struct {
	BaseMonthlyRate    map[Platform]float64                 `json:"base_monthly_rate,omitempty" yaml:"base_monthly_rate,omitempty"`
	FreqHalfSat        map[Platform]float64                 `json:"freq_half_sat,omitempty" yaml:"freq_half_sat,omitempty"`
	FreqBands          map[Platform]PartialFreqBand         `json:"recommended_freq,omitempty" yaml:"recommended_freq,omitempty"`
	MonthlyCap         map[Platform]float64                 `json:"platform_monthly_cap,omitempty" yaml:"platform_monthly_cap,omitempty"`
	ContentMult        map[Platform]map[ContentType]float64 `json:"content_mult,omitempty" yaml:"content_mult,omitempty"`
	PerPostGain        map[Platform]float64                 `json:"per_post_gain_base,omitempty" yaml:"per_post_gain_base,omitempty"`
	PaidFunnel         map[Platform]PartialFunnel           `json:"paid_funnel,omitempty" yaml:"paid_funnel,omitempty"`
	CPF                map[Channel]PartialCPF               `json:"cpf,omitempty" yaml:"cpf,omitempty"`
	MonthDecayPerMonth *float64                             `json:"month_decay_per_month,omitempty" yaml:"month_decay_per_month,omitempty"`
}

type PartialFreqBand struct {
	Min  *float64 `json:"min,omitempty" yaml:"min,omitempty"`
	Max  *float64 `json:"max,omitempty" yaml:"max,omitempty"`
	Soft *float64 `json:"soft,omitempty" yaml:"soft,omitempty"`
	Hard *float64 `json:"hard,omitempty" yaml:"hard,omitempty"`
}

func (p PartialFreqBand) apply(base FreqBand) FreqBand {
	setIf(&base.Min, p.Min)
	setIf(&base.Max, p.Max)
	setIf(&base.Soft, p.Soft)
	setIf(&base.Hard, p.Hard)
	return base
}

type PartialFunnel struct {
	ViewThrough      *float64 `json:"vtr,omitempty" yaml:"vtr,omitempty"`
	Engagement       *float64 `json:"er,omitempty" yaml:"er,omitempty"`
	FollowConversion *float64 `json:"fcr,omitempty" yaml:"fcr,omitempty"`
}

func (p PartialFunnel) apply(base Funnel) Funnel {
	setIf(&base.ViewThrough, p.ViewThrough)
	setIf(&base.Engagement, p.Engagement)
	setIf(&base.FollowConversion, p.FollowConversion)
	return base
}

type PartialCPF struct {
	Min *float64 `json:"min,omitempty" yaml:"min,omitempty"`
	Mid *float64 `json:"mid,omitempty" yaml:"mid,omitempty"`
	Max *float64 `json:"max,omitempty" yaml:"max,omitempty"`
}

// apply sets the given bounds. An inherited bound that would leave Mid
// outside [Min, Max] stretches to Mid.
func (p PartialCPF) apply(base CPF) CPF {
	setIf(&base.Min, p.Min)
	setIf(&base.Mid, p.Mid)
	setIf(&base.Max, p.Max)
	if p.Min == nil && base.Mid < base.Min {
		base.Min = base.Mid
	}
	if p.Max == nil && base.Mid > base.Max {
		base.Max = base.Mid
	}
	return base
}

// IsEmpty reports whether o would leave any Benchmarks unchanged.
func (o *Overrides) IsEmpty() bool {
	if o == nil {
		return true
	}
	return len(o.BaseMonthlyRate) == 0 &&
		len(o.FreqHalfSat) == 0 &&
		len(o.FreqBands) == 0 &&
		len(o.MonthlyCap) == 0 &&
		len(o.ContentMult) == 0 &&
		len(o.PerPostGain) == 0 &&
		len(o.PaidFunnel) == 0 &&
		len(o.CPF) == 0 &&
		o.MonthDecayPerMonth == nil
}

// Layer returns a new Overrides where every key present in top replaces
// the one in o. Neither input is modified.
func (o *Overrides) Layer(top *Overrides) *Overrides {
	out := &Overrides{}
	for _, src := range []*Overrides{o, top} {
		if src == nil {
			continue
		}
		out.BaseMonthlyRate = layerFloats(out.BaseMonthlyRate, src.BaseMonthlyRate)
		out.FreqHalfSat = layerFloats(out.FreqHalfSat, src.FreqHalfSat)
		out.MonthlyCap = layerFloats(out.MonthlyCap, src.MonthlyCap)
		out.PerPostGain = layerFloats(out.PerPostGain, src.PerPostGain)
		for p, table := range src.ContentMult {
			if out.ContentMult == nil {
				out.ContentMult = make(map[Platform]map[ContentType]float64)
			}
			out.ContentMult[p] = layerFloats(out.ContentMult[p], table)
		}
		for p, band := range src.FreqBands {
			if out.FreqBands == nil {
				out.FreqBands = make(map[Platform]PartialFreqBand)
			}
			cur := out.FreqBands[p]
			pickPtr(&cur.Min, band.Min)
			pickPtr(&cur.Max, band.Max)
			pickPtr(&cur.Soft, band.Soft)
			pickPtr(&cur.Hard, band.Hard)
			out.FreqBands[p] = cur
		}
		for p, f := range src.PaidFunnel {
			if out.PaidFunnel == nil {
				out.PaidFunnel = make(map[Platform]PartialFunnel)
			}
			cur := out.PaidFunnel[p]
			pickPtr(&cur.ViewThrough, f.ViewThrough)
			pickPtr(&cur.Engagement, f.Engagement)
			pickPtr(&cur.FollowConversion, f.FollowConversion)
			out.PaidFunnel[p] = cur
		}
		for c, cpf := range src.CPF {
			if out.CPF == nil {
				out.CPF = make(map[Channel]PartialCPF)
			}
			cur := out.CPF[c]
			pickPtr(&cur.Min, cpf.Min)
			pickPtr(&cur.Mid, cpf.Mid)
			pickPtr(&cur.Max, cpf.Max)
			out.CPF[c] = cur
		}
		pickPtr(&out.MonthDecayPerMonth, src.MonthDecayPerMonth)
	}
	return out
}

// Float returns a pointer to v, for building partial tables in code.
func Float(v float64) *float64 { return &v }

func setIf(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}

func pickPtr(dst **float64, v *float64) {
	if v != nil {
		c := *v
		*dst = &c
	}
}

func layerFloats[K comparable](dst, src map[K]float64) map[K]float64 {
	if len(src) == 0 {
		return dst
	}
	if dst == nil {
		dst = make(map[K]float64, len(src))
	}
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
