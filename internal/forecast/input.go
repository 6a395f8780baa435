package forecast

// Plan is the publishing plan for one run.
type Plan struct {
	PostsPerWeekTotal  float64                              `json:"posts_per_week_total" yaml:"posts_per_week_total"`
	PlatformAllocation map[Platform]float64                 `json:"platform_allocation" yaml:"platform_allocation"`
	ContentMix         map[Platform]map[ContentType]float64 `json:"content_mix" yaml:"content_mix"`
	Months             int                                  `json:"months" yaml:"months"`
	CampaignLift       float64                              `json:"campaign_lift" yaml:"campaign_lift"`
	Sensitivity        float64                              `json:"sensitivity" yaml:"sensitivity"`
	AcqScalar          float64                              `json:"acq_scalar" yaml:"acq_scalar"`
}

// PaidMedia describes impression-based paid distribution. A nil
// Allocation reuses the organic platform allocation.
type PaidMedia struct {
	ImpressionsPerWeek float64              `json:"impressions_per_week" yaml:"impressions_per_week"`
	Allocation         map[Platform]float64 `json:"allocation,omitempty" yaml:"allocation,omitempty"`
	Funnel             map[Platform]Funnel  `json:"funnel,omitempty" yaml:"funnel,omitempty"`
}

// Budget is weekly spend per channel. CPF entries take precedence over
// calibrated and default ranges.
type Budget struct {
	PaidPerWeek        float64         `json:"paid_per_week" yaml:"paid_per_week"`
	CreatorPerWeek     float64         `json:"creator_per_week" yaml:"creator_per_week"`
	AcquisitionPerWeek float64         `json:"acquisition_per_week" yaml:"acquisition_per_week"`
	CPF                map[Channel]CPF `json:"cpf,omitempty" yaml:"cpf,omitempty"`
}

func (b Budget) perWeek(c Channel) float64 {
	switch c {
	case ChannelPaid:
		return b.PaidPerWeek
	case ChannelCreator:
		return b.CreatorPerWeek
	case ChannelAcquisition:
		return b.AcquisitionPerWeek
	}
	return 0
}

// Input is everything a single run needs. Platforms defaults to the
// reference set when empty.
type Input struct {
	CurrentFollowers map[Platform]float64 `json:"current_followers" yaml:"current_followers"`
	Plan             Plan                 `json:"plan" yaml:"plan"`
	Engagement       []float64            `json:"engagement,omitempty" yaml:"engagement,omitempty"`
	Paid             PaidMedia            `json:"paid" yaml:"paid"`
	Budget           Budget               `json:"budget" yaml:"budget"`
	Overrides        *Overrides           `json:"overrides,omitempty" yaml:"overrides,omitempty"`
	Platforms        []Platform           `json:"platforms,omitempty" yaml:"platforms,omitempty"`
}

func (in Input) platforms() []Platform {
	if len(in.Platforms) == 0 {
		return Platforms
	}
	return in.Platforms
}
