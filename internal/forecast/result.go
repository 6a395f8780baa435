package forecast

// PlatformBreakdown exposes the per-platform figures a run derived from
// the plan. They are constant across weeks; WeeklyRate is the capped rate
// before any seasonal taper.
type PlatformBreakdown struct {
	StartFollowers         float64 `json:"start_followers"`
	PostsPerWeek           float64 `json:"posts_per_week"`
	AllocationFraction     float64 `json:"allocation_fraction"`
	PaidAllocationFraction float64 `json:"paid_allocation_fraction"`
	SaturatingEffect       float64 `json:"saturating_effect"`
	ContentMultiplier      float64 `json:"content_multiplier"`
	HHI                    float64 `json:"hhi"`
	DiversityFactor        float64 `json:"diversity_factor"`
	OversaturationPenalty  float64 `json:"oversaturation_penalty"`
	ConsistencyBoost       float64 `json:"consistency_boost"`
	PlanIntensity          float64 `json:"plan_intensity"`
	BaseWeeklyRate         float64 `json:"base_weekly_rate"`
	WeeklyRate             float64 `json:"weekly_rate"`
	CapWeekly              float64 `json:"cap_weekly"`
	Capped                 bool    `json:"capped"`
	PerPostGain            float64 `json:"per_post_gain"`
	PaidFollowsWeek        float64 `json:"paid_follows_per_week"`
	BudgetFollowsWeek      float64 `json:"budget_follows_per_week"`
	EndFollowers           float64 `json:"end_followers"`
}

// WeekRow is the state after one simulated week.
type WeekRow struct {
	Week         int                  `json:"week"`
	Followers    map[Platform]float64 `json:"followers"`
	Organic      map[Platform]float64 `json:"organic"`
	Paid         map[Platform]float64 `json:"paid"`
	Total        float64              `json:"total"`
	AddedOrganic float64              `json:"added_organic"`
	AddedPaid    float64              `json:"added_paid"`
}

// MonthRow is one row of the monthly trajectory.
type MonthRow struct {
	Month        int                  `json:"month"`
	Followers    map[Platform]float64 `json:"followers"`
	Total        float64              `json:"total"`
	Added        float64              `json:"added"`
	AddedOrganic float64              `json:"added_organic"`
	AddedPaid    float64              `json:"added_paid"`
}

type Result struct {
	Platforms          []Platform                     `json:"platforms"`
	Months             []MonthRow                     `json:"months"`
	Weeks              []WeekRow                      `json:"weeks"`
	Breakdown          map[Platform]PlatformBreakdown `json:"breakdown"`
	EngagementBaseline float64                        `json:"engagement_baseline"`
	EngagementForecast float64                        `json:"engagement_forecast"`
	EngagementFallback bool                           `json:"engagement_fallback"`
	StartTotal         float64                        `json:"start_total"`
	Goal               float64                        `json:"goal"`
	ProjectedTotal     float64                        `json:"projected_total"`
	ProgressPct        float64                        `json:"progress_pct"`
	GoalMonth          int                            `json:"goal_month"`
	Benchmarks         Benchmarks                     `json:"-"`
}

// Final returns the last monthly row.
func (r *Result) Final() MonthRow {
	if len(r.Months) == 0 {
		return MonthRow{}
	}
	return r.Months[len(r.Months)-1]
}

// GoalReached reports whether the projection meets the doubling goal.
func (r *Result) GoalReached() bool {
	return r.Goal > 0 && r.ProjectedTotal >= r.Goal
}

// Gap is how many followers the projection falls short of the goal, or 0.
func (r *Result) Gap() float64 {
	if gap := r.Goal - r.ProjectedTotal; gap > 0 {
		return gap
	}
	return 0
}
