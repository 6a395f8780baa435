package insights

import (
	"sort"

	"github.com/sawpanic/growthcast/internal/forecast"
	"github.com/sawpanic/growthcast/internal/history"
)

// ConcentrationHHI is the mix HHI at or above which a platform's
// content is flagged as concentrated.
const ConcentrationHHI = 0.85

type CadenceLevel string

const (
	BelowMin CadenceLevel = "below_min"
	OverSoft CadenceLevel = "over_soft"
	OverHard CadenceLevel = "over_hard"
)

type CadenceFlag struct {
	Platform     forecast.Platform `json:"platform"`
	PostsPerWeek float64           `json:"posts_per_week"`
	Level        CadenceLevel      `json:"level"`
	Limit        float64           `json:"limit"`
}

type Contribution struct {
	Platform forecast.Platform `json:"platform"`
	Added    float64           `json:"added"`
}

// Summary is the structured view of a forecast that insight text is
// generated from.
type Summary struct {
	StartTotal       float64                       `json:"start_total"`
	EndTotal         float64                       `json:"end_total"`
	Goal             float64                       `json:"goal"`
	ProgressPct      float64                       `json:"progress_pct"`
	GoalMonth        int                           `json:"goal_month"`
	Months           int                           `json:"months"`
	PostsPerWeek     float64                       `json:"posts_per_week"`
	CurrentFollowers map[forecast.Platform]float64 `json:"current_followers"`
	Allocation       map[forecast.Platform]float64 `json:"allocation"`
	Contributions    []Contribution                `json:"contributions"`
	Cadence          []CadenceFlag                 `json:"cadence_flags,omitempty"`
	Concentrated     []forecast.Platform           `json:"concentrated,omitempty"`
	EngagementRecent float64                       `json:"engagement_recent"`
	EngagementPrior  float64                       `json:"engagement_prior"`
	HasTrend         bool                          `json:"has_trend"`
	TopTags          []string                      `json:"top_tags,omitempty"`
}

// BuildSummary condenses a forecast run and its inputs.
func BuildSummary(res *forecast.Result, plan forecast.Plan, engagement []float64, tags []history.TagRow, tagNames []string) Summary {
	s := Summary{
		StartTotal:       res.StartTotal,
		EndTotal:         res.ProjectedTotal,
		Goal:             res.Goal,
		ProgressPct:      res.ProgressPct,
		GoalMonth:        res.GoalMonth,
		Months:           len(res.Months),
		PostsPerWeek:     plan.PostsPerWeekTotal,
		CurrentFollowers: make(map[forecast.Platform]float64, len(res.Platforms)),
		Allocation:       make(map[forecast.Platform]float64, len(res.Platforms)),
	}
	if len(res.Months) == 0 {
		s.EndTotal = res.StartTotal
	}

	for _, p := range res.Platforms {
		b := res.Breakdown[p]
		s.CurrentFollowers[p] = b.StartFollowers
		s.Allocation[p] = b.AllocationFraction * 100

		added := b.EndFollowers - b.StartFollowers
		if added < 0 {
			added = 0
		}
		s.Contributions = append(s.Contributions, Contribution{Platform: p, Added: added})

		if band, ok := res.Benchmarks.FreqBands[p]; ok {
			switch {
			case b.PostsPerWeek < band.Min:
				s.Cadence = append(s.Cadence, CadenceFlag{p, b.PostsPerWeek, BelowMin, band.Min})
			case b.PostsPerWeek > band.Hard:
				s.Cadence = append(s.Cadence, CadenceFlag{p, b.PostsPerWeek, OverHard, band.Hard})
			case b.PostsPerWeek > band.Soft:
				s.Cadence = append(s.Cadence, CadenceFlag{p, b.PostsPerWeek, OverSoft, band.Soft})
			}
		}
		if b.HHI >= ConcentrationHHI {
			s.Concentrated = append(s.Concentrated, p)
		}
	}
	sort.SliceStable(s.Contributions, func(i, j int) bool { return s.Contributions[i].Added > s.Contributions[j].Added })

	s.EngagementRecent = mean(tail(engagement, 8))
	if len(engagement) >= 16 {
		s.EngagementPrior = mean(engagement[len(engagement)-16 : len(engagement)-8])
		s.HasTrend = true
	}
	s.TopTags = topTags(tags, tagNames, 4, 3)
	return s
}

// Trend classifies the recent engagement move: up, down or flat.
func (s Summary) Trend() string {
	delta := s.EngagementRecent - s.EngagementPrior
	switch {
	case delta > 0.02:
		return "up"
	case delta < -0.02:
		return "down"
	}
	return "flat"
}

func topTags(rows []history.TagRow, names []string, lastRows, n int) []string {
	if len(rows) == 0 || len(names) == 0 {
		return nil
	}
	sums := make(map[string]float64, len(names))
	for _, r := range tail(rows, lastRows) {
		for _, name := range names {
			sums[name] += r.Counts[name]
		}
	}
	ranked := append([]string(nil), names...)
	sort.SliceStable(ranked, func(i, j int) bool { return sums[ranked[i]] > sums[ranked[j]] })
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}

func tail[T any](xs []T, n int) []T {
	if len(xs) <= n {
		return xs
	}
	return xs[len(xs)-n:]
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}
