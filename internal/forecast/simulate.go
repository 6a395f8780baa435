package forecast

import (
	"math"

	"github.com/rs/zerolog/log"
)

const weeksPerMonth = 4

// Engine runs forecasts against a fixed set of constant tables. It holds
// no mutable state, so one Engine may serve concurrent callers.
type Engine struct {
	benchmarks Benchmarks
}

// NewEngine copies b so later changes by the caller do not leak into runs.
func NewEngine(b Benchmarks) *Engine {
	return &Engine{benchmarks: b.Clone()}
}

// Benchmarks returns a copy of the engine's constant tables.
func (e *Engine) Benchmarks() Benchmarks {
	return e.benchmarks.Clone()
}

// Run forecasts with the default constant tables.
func Run(in Input) (*Result, error) {
	return NewEngine(DefaultBenchmarks()).Run(in)
}

// platformPlan holds everything about a platform that stays constant for
// the whole run.
type platformPlan struct {
	PlatformBreakdown
	cap           float64
	budgetFollows float64
}

// Run simulates months*4+4 weeks and aggregates them into months rows.
// It fails only with *ConfigurationError, before any week is simulated.
func (e *Engine) Run(in Input) (*Result, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	platforms := in.platforms()

	bench := e.resolveBenchmarks(in)
	if err := bench.Validate(platforms); err != nil {
		return nil, err
	}

	plan := in.Plan
	baseline, fallback := EngagementBaseline(in.Engagement)
	if fallback {
		log.Warn().Msg("Empty engagement series, using neutral baseline")
	}
	engagement := math.Max(baseline*(1+plan.CampaignLift), 0)

	profiles := e.plan(in, bench, engagement)

	weeks := plan.Months*weeksPerMonth + weeksPerMonth
	followers := make(map[Platform]float64, len(platforms))
	startTotal := 0.0
	for _, p := range platforms {
		followers[p] = profiles[p].StartFollowers
		startTotal += profiles[p].StartFollowers
	}

	rows := make([]WeekRow, 0, weeks)
	for w := 0; w < weeks; w++ {
		taper := taperFactor(bench.MonthDecayPerMonth, w, plan.Months)
		row := WeekRow{
			Week:      w,
			Followers: make(map[Platform]float64, len(platforms)),
			Organic:   make(map[Platform]float64, len(platforms)),
			Paid:      make(map[Platform]float64, len(platforms)),
		}

		for _, p := range platforms {
			pp := profiles[p]

			rate := pp.BaseWeeklyRate * pp.PlanIntensity * taper
			if rate > pp.CapWeekly {
				rate = pp.CapWeekly
			}
			multAdd := followers[p] * rate
			postAdd := pp.PostsPerWeek * pp.PerPostGain

			organic := multAdd + postAdd
			paid := pp.PaidFollowsWeek + pp.budgetFollows
			followers[p] += organic + paid

			row.Followers[p] = followers[p]
			row.Organic[p] = organic
			row.Paid[p] = paid
			row.AddedOrganic += organic
			row.AddedPaid += paid
		}
		for _, p := range platforms {
			row.Total += followers[p]
		}
		rows = append(rows, row)
	}

	result := &Result{
		Platforms:          append([]Platform(nil), platforms...),
		Months:             Aggregate(rows, plan.Months),
		Weeks:              rows,
		Breakdown:          make(map[Platform]PlatformBreakdown, len(platforms)),
		EngagementBaseline: baseline,
		EngagementForecast: engagement,
		EngagementFallback: fallback,
		Benchmarks:         bench,
	}
	for _, p := range platforms {
		b := profiles[p].PlatformBreakdown
		b.EndFollowers = followers[p]
		result.Breakdown[p] = b
	}
	result.trackGoal(startTotal)

	log.Debug().
		Int("months", plan.Months).
		Float64("posts_per_week", plan.PostsPerWeekTotal).
		Float64("engagement", engagement).
		Float64("projected_total", result.ProjectedTotal).
		Float64("progress_pct", result.ProgressPct).
		Msg("Forecast complete")

	return result, nil
}

// resolveBenchmarks layers calibration overrides over the engine tables
// and then request-level funnel and CPF values over both.
func (e *Engine) resolveBenchmarks(in Input) Benchmarks {
	bench := e.benchmarks.Merge(in.Overrides)
	for p, f := range in.Paid.Funnel {
		bench.PaidFunnel[p] = f
	}
	for c, cpf := range in.Budget.CPF {
		bench.CPF[c] = cpf
	}
	return bench
}

func (e *Engine) plan(in Input, bench Benchmarks, engagement float64) map[Platform]*platformPlan {
	platforms := in.platforms()
	plan := in.Plan

	alloc := Normalize(platforms, plan.PlatformAllocation)
	paidAlloc := alloc
	if in.Paid.Allocation != nil {
		paidAlloc = Normalize(platforms, in.Paid.Allocation)
	}

	out := make(map[Platform]*platformPlan, len(platforms))
	for _, p := range platforms {
		posts := plan.PostsPerWeekTotal * alloc[p]
		// A missing or all-zero mix is an equal split over ContentTypes.
		mix := Normalize(ContentTypes, plan.ContentMix[p])
		band := bench.FreqBands[p]

		pp := &platformPlan{cap: bench.MonthlyCap[p]}
		b := &pp.PlatformBreakdown
		b.StartFollowers = clampNonNegative(in.CurrentFollowers[p])
		b.PostsPerWeek = posts
		b.AllocationFraction = alloc[p]
		b.PaidAllocationFraction = paidAlloc[p]
		b.SaturatingEffect = SaturatingEffect(posts, bench.FreqHalfSat[p])
		b.ContentMultiplier = BlendedContentMultiplier(mix, bench.ContentMult[p])
		b.HHI = HHI(mix)
		b.DiversityFactor = DiversityFactor(mix)
		b.OversaturationPenalty = OversaturationPenalty(posts, band.Soft, band.Hard)
		b.ConsistencyBoost = ConsistencyBoost(posts, band.Min, band.Max)

		quality := b.ContentMultiplier * b.DiversityFactor * b.OversaturationPenalty * b.ConsistencyBoost
		b.PlanIntensity = 1 + plan.Sensitivity*engagement*b.SaturatingEffect*quality
		b.BaseWeeklyRate = bench.BaseMonthlyRate[p] / weeksPerMonth
		b.CapWeekly = WeeklyCap(pp.cap)
		b.WeeklyRate = b.BaseWeeklyRate * b.PlanIntensity
		if b.WeeklyRate > b.CapWeekly {
			b.WeeklyRate = b.CapWeekly
			b.Capped = true
		}

		b.PerPostGain = bench.PerPostGain[p] * plan.AcqScalar *
			(0.5 + 0.5*engagement) * (0.5 + 0.5*b.SaturatingEffect) * quality

		impressions := in.Paid.ImpressionsPerWeek * paidAlloc[p]
		b.PaidFollowsWeek = impressions * bench.funnel(p).FollowsPerImpression() * (0.8 + 0.2*b.ContentMultiplier)

		for _, c := range Channels {
			share := paidAlloc[p]
			if c == ChannelCreator {
				share = alloc[p]
			}
			pp.budgetFollows += channelFollows(in.Budget.perWeek(c), share, bench.cpf(c))
		}
		b.BudgetFollowsWeek = pp.budgetFollows

		out[p] = pp
	}
	return out
}

// WeeklyCap converts a monthly growth cap into the weekly compounding
// rate that reproduces it over four weeks.
func WeeklyCap(monthlyCap float64) float64 {
	return math.Pow(1+monthlyCap, 1.0/weeksPerMonth) - 1
}

// channelFollows converts one channel's weekly spend on a platform into
// follows at the mid cost per follower.
func channelFollows(budget, share float64, cpf CPF) float64 {
	if budget <= 0 || cpf.Mid <= 0 {
		return 0
	}
	return budget * share / cpf.Mid
}

// taperFactor is the seasonal decay for week w, floored at 0.5. The month
// index is clamped to the last forecast month.
func taperFactor(decayPerMonth float64, w, months int) float64 {
	if decayPerMonth <= 0 {
		return 1
	}
	m := w / weeksPerMonth
	if m > months-1 {
		m = months - 1
	}
	return math.Max(0.5, 1-decayPerMonth*float64(m))
}
