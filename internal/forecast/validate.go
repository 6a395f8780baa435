package forecast

const MaxMonths = 24

// Validate checks the structural parts of in that do not depend on the
// constant tables. It never rejects extreme but well-formed plans.
func (in Input) Validate() error {
	platforms := in.platforms()
	known := make(map[Platform]bool, len(platforms))
	for _, p := range platforms {
		if p == "" {
			return configErrorf("platforms", "empty platform name")
		}
		if known[p] {
			return configErrorf("platforms", "duplicate platform %q", p)
		}
		known[p] = true
	}

	plan := in.Plan
	if plan.Months < 1 || plan.Months > MaxMonths {
		return configErrorf("months", "must be between 1 and %d, got %d", MaxMonths, plan.Months)
	}
	if !isFinite(plan.PostsPerWeekTotal) || plan.PostsPerWeekTotal < 0 {
		return configErrorf("posts_per_week_total", "must be a finite value >= 0, got %v", plan.PostsPerWeekTotal)
	}
	if !isFinite(plan.CampaignLift) || plan.CampaignLift < -1 {
		return configErrorf("campaign_lift", "must be a finite value >= -1, got %v", plan.CampaignLift)
	}
	if !isFinite(plan.Sensitivity) || plan.Sensitivity < 0 {
		return configErrorf("sensitivity", "must be a finite value >= 0, got %v", plan.Sensitivity)
	}
	if !isFinite(plan.AcqScalar) || plan.AcqScalar < 0 {
		return configErrorf("acq_scalar", "must be a finite value >= 0, got %v", plan.AcqScalar)
	}

	if err := checkPlatformKeys("current_followers", in.CurrentFollowers, known); err != nil {
		return err
	}
	if err := checkPlatformKeys("platform_allocation", plan.PlatformAllocation, known); err != nil {
		return err
	}
	for p, mix := range plan.ContentMix {
		if !known[p] {
			return configErrorf("content_mix", "unknown platform %q", p)
		}
		for ct, v := range mix {
			if !IsKnownContentType(ct) {
				return configErrorf("content_mix", "unknown content type %q for platform %q", ct, p)
			}
			if !isFinite(v) {
				return configErrorf("content_mix", "non-finite share for %q/%q", p, ct)
			}
		}
	}

	for i, v := range in.Engagement {
		if !isFinite(v) {
			return configErrorf("engagement", "non-finite value at week %d", i)
		}
	}

	if !isFinite(in.Paid.ImpressionsPerWeek) || in.Paid.ImpressionsPerWeek < 0 {
		return configErrorf("paid.impressions_per_week", "must be a finite value >= 0, got %v", in.Paid.ImpressionsPerWeek)
	}
	if err := checkPlatformKeys("paid.allocation", in.Paid.Allocation, known); err != nil {
		return err
	}
	for p, f := range in.Paid.Funnel {
		if !known[p] {
			return configErrorf("paid.funnel", "unknown platform %q", p)
		}
		if !f.valid() {
			return configErrorf("paid.funnel", "rates for %q must be finite and >= 0", p)
		}
	}

	for _, c := range Channels {
		v := in.Budget.perWeek(c)
		if !isFinite(v) || v < 0 {
			return configErrorf("budget."+string(c), "must be a finite value >= 0, got %v", v)
		}
	}
	for c, cpf := range in.Budget.CPF {
		if !IsKnownChannel(c) {
			return configErrorf("budget.cpf", "unknown channel %q", c)
		}
		if err := cpf.check(); err != nil {
			return configErrorf("budget.cpf", "channel %q: %v", c, err)
		}
	}
	return nil
}

func checkPlatformKeys(field string, m map[Platform]float64, known map[Platform]bool) error {
	for p, v := range m {
		if !known[p] {
			return configErrorf(field, "unknown platform %q", p)
		}
		if !isFinite(v) {
			return configErrorf(field, "non-finite value for %q", p)
		}
	}
	return nil
}
