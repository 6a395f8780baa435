package insights

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/sawpanic/growthcast/internal/forecast"
	"github.com/sawpanic/growthcast/internal/llm"
)

// Posting range scenarios are held to.
const (
	MinScenarioPosts = 14
	MaxScenarioPosts = 50
)

type StrategyInput struct {
	CurrentFollowers map[forecast.Platform]float64 `json:"current_followers"`
	PostsPerWeek     float64                       `json:"posts_per_week"`
	Allocation       map[forecast.Platform]float64 `json:"platform_allocation"`
	Months           int                           `json:"months"`
	Preset           string                        `json:"preset"`
}

type Scenario struct {
	Name            string                        `json:"name"`
	PostsPerWeek    float64                       `json:"posts_per_week"`
	Allocation      map[forecast.Platform]float64 `json:"platform_allocation"`
	Reasoning       string                        `json:"reasoning"`
	RiskLevel       string                        `json:"risk_level"`
	ExpectedOutcome string                        `json:"expected_outcome"`
	// ProjectedProgressPct is filled by callers that re-run the forecast.
	ProjectedProgressPct *float64 `json:"projected_progress_pct,omitempty"`
}

type Phase struct {
	Phase        string   `json:"phase"`
	Months       string   `json:"months"`
	PostsPerWeek float64  `json:"posts_per_week"`
	Focus        string   `json:"focus"`
	KeyActions   []string `json:"key_actions"`
}

type Analysis struct {
	Analysis    string     `json:"analysis"`
	Scenarios   []Scenario `json:"scenarios"`
	KeyInsights []string   `json:"key_insights"`
	Phases      []Phase    `json:"phases"`
	Source      string     `json:"source"`
}

// Analyst critiques a posting strategy and proposes alternatives.
type Analyst struct {
	client llm.Completer
}

// NewAnalyst accepts a nil client, in which case every analysis is
// rule-based.
func NewAnalyst(c llm.Completer) *Analyst {
	return &Analyst{client: c}
}

func (a *Analyst) Analyze(ctx context.Context, in StrategyInput) Analysis {
	if a == nil || a.client == nil {
		out := FallbackAnalysis(in)
		out.Source = SourceRules
		return out
	}
	out, err := a.ask(ctx, in)
	if err != nil {
		log.Warn().Err(err).Msg("Strategy analysis failed, using fallback scenarios")
		return FallbackAnalysis(in)
	}
	out.Source = SourceLLM
	out.Phases = CampaignPhases(in.Months, in.PostsPerWeek)
	return out
}

func (a *Analyst) ask(ctx context.Context, in StrategyInput) (Analysis, error) {
	text, err := a.client.Complete(ctx, llm.Request{
		Messages: []llm.Message{
			{Role: "system", Content: "You are an expert social media growth strategist. Provide data-driven, actionable recommendations. Always return valid JSON."},
			{Role: "user", Content: StrategyPrompt(in)},
		},
		JSON: true,
	})
	if err != nil {
		return Analysis{}, err
	}
	return ParseAnalysis(text)
}

// StrategyPrompt describes the current plan and the JSON shape wanted.
func StrategyPrompt(in StrategyInput) string {
	total := 0.0
	for _, v := range in.CurrentFollowers {
		total += v
	}
	var b strings.Builder
	b.WriteString("You are a social media growth strategist analysing a brand campaign.\n\nCURRENT SITUATION:\n")
	fmt.Fprintf(&b, "- Total Followers: %s\n", Count(total))
	fmt.Fprintf(&b, "- %d-Month Goal: %s (double current)\n", in.Months, Count(total*2))
	fmt.Fprintf(&b, "- Current Strategy: %s\n", in.Preset)
	fmt.Fprintf(&b, "- Posts per Week: %g\n\nPLATFORM BREAKDOWN:\n", in.PostsPerWeek)
	for _, p := range forecast.Platforms {
		n, ok := in.CurrentFollowers[p]
		if !ok {
			continue
		}
		share := 0.0
		if total > 0 {
			share = n / total * 100
		}
		fmt.Fprintf(&b, "- %s: %s followers (%.1f%% of total)\n", p, Count(n), share)
	}
	b.WriteString("\nCURRENT POSTING ALLOCATION:\n")
	for _, p := range forecast.Platforms {
		pct, ok := in.Allocation[p]
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "- %s: %g%% (%d posts/week)\n", p, pct, int(in.PostsPerWeek*pct/100))
	}
	fmt.Fprintf(&b, `
TASK:
Analyse this strategy and provide 3 alternative scenarios named Optimized, Aggressive and Conservative.
For each give posts per week (%d-%d), platform allocation percentages summing to 100, 2-3 sentences of
reasoning, a risk level (LOW/MEDIUM/HIGH) and the expected outcome against the goal.
Oversaturation above 35 posts/week reduces engagement quality.

Return ONLY JSON of the form:
{"analysis": "...", "scenarios": [{"name": "Optimized", "posts_per_week": 28,
 "platform_allocation": {"Instagram": 35, "TikTok": 35, "YouTube": 15, "Facebook": 15},
 "reasoning": "...", "risk_level": "MEDIUM", "expected_outcome": "95%% of goal"}],
 "key_insights": ["...", "...", "..."]}
`, MinScenarioPosts, MaxScenarioPosts)
	return b.String()
}

type rawAnalysis struct {
	Analysis  string `json:"analysis"`
	Scenarios []struct {
		Name            string             `json:"name"`
		PostsPerWeek    float64            `json:"posts_per_week"`
		Allocation      map[string]float64 `json:"platform_allocation"`
		Reasoning       string             `json:"reasoning"`
		RiskLevel       string             `json:"risk_level"`
		ExpectedOutcome string             `json:"expected_outcome"`
	} `json:"scenarios"`
	KeyInsights []string `json:"key_insights"`
}

// ParseAnalysis decodes a model reply. Posting volumes are clamped to
// the scenario range and allocations rescaled to 100.
func ParseAnalysis(text string) (Analysis, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")

	var raw rawAnalysis
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return Analysis{}, fmt.Errorf("decode analysis: %w", err)
	}
	if len(raw.Scenarios) == 0 {
		return Analysis{}, errors.New("analysis has no scenarios")
	}

	out := Analysis{Analysis: raw.Analysis, KeyInsights: raw.KeyInsights}
	for _, rs := range raw.Scenarios {
		alloc := make(map[forecast.Platform]float64, len(rs.Allocation))
		for k, v := range rs.Allocation {
			p, ok := forecast.ParsePlatform(k)
			if !ok {
				return Analysis{}, fmt.Errorf("scenario %q: unknown platform %q", rs.Name, k)
			}
			alloc[p] += v
		}
		norm := forecast.Normalize(forecast.Platforms, alloc)
		for p, f := range norm {
			norm[p] = math.Round(f*1000) / 10
		}
		out.Scenarios = append(out.Scenarios, Scenario{
			Name:            rs.Name,
			PostsPerWeek:    math.Min(math.Max(math.Round(rs.PostsPerWeek), MinScenarioPosts), MaxScenarioPosts),
			Allocation:      norm,
			Reasoning:       rs.Reasoning,
			RiskLevel:       strings.ToUpper(rs.RiskLevel),
			ExpectedOutcome: rs.ExpectedOutcome,
		})
	}
	return out, nil
}

// FallbackAnalysis builds the three standard scenarios from simple
// heuristics on the current plan.
func FallbackAnalysis(in StrategyInput) Analysis {
	tiktokStrong := in.CurrentFollowers[forecast.TikTok] > in.CurrentFollowers[forecast.Instagram]
	postingHigh := in.PostsPerWeek > 30

	optimized := make(map[forecast.Platform]float64, len(in.Allocation))
	for k, v := range in.Allocation {
		optimized[k] = v
	}
	if tiktokStrong {
		optimized[forecast.TikTok] = math.Min(valueOr(in.Allocation, forecast.TikTok, 35)+5, 45)
		optimized[forecast.Instagram] = math.Max(valueOr(in.Allocation, forecast.Instagram, 35)-5, 25)
	}

	insights := []string{"Instagram is your primary platform - maintain focus there"}
	if tiktokStrong {
		insights[0] = "TikTok shows strong follower base - consider increasing allocation"
	}
	if postingHigh {
		insights = append(insights, "High posting frequency may risk oversaturation")
	} else {
		insights = append(insights, "Current posting volume is sustainable")
	}
	insights = append(insights, "Diversified platform presence reduces dependency risk")

	return Analysis{
		Analysis: fmt.Sprintf("Current strategy (%s, %g posts/week) provides a solid foundation. Consider testing alternative allocations to optimise growth.", in.Preset, in.PostsPerWeek),
		Scenarios: []Scenario{
			{
				Name:            "Optimized",
				PostsPerWeek:    28,
				Allocation:      optimized,
				Reasoning:       "Balanced approach focusing on high-performing platforms while maintaining presence across all channels.",
				RiskLevel:       "MEDIUM",
				ExpectedOutcome: "92-98% of goal",
			},
			{
				Name:            "Aggressive",
				PostsPerWeek:    35,
				Allocation:      allocation(30, 40, 20, 10),
				Reasoning:       "High-volume approach prioritising video-first platforms for maximum reach expansion.",
				RiskLevel:       "HIGH",
				ExpectedOutcome: "105-115% of goal",
			},
			{
				Name:            "Conservative",
				PostsPerWeek:    24,
				Allocation:      allocation(35, 30, 20, 15),
				Reasoning:       "Sustainable growth strategy focusing on engagement quality over volume.",
				RiskLevel:       "LOW",
				ExpectedOutcome: "85-92% of goal",
			},
		},
		KeyInsights: insights,
		Phases:      CampaignPhases(in.Months, in.PostsPerWeek),
		Source:      SourceFallback,
	}
}

// CampaignPhases splits a campaign of a year or more into launch,
// sustain and accelerate phases; shorter campaigns get one sprint.
func CampaignPhases(months int, postsPerWeek float64) []Phase {
	if months >= 12 {
		return []Phase{
			{
				Phase:        "Launch",
				Months:       "1-3",
				PostsPerWeek: math.Min(postsPerWeek+5, 40),
				Focus:        "Rapid audience building, content testing",
				KeyActions:   []string{"Test content formats", "Identify top performers", "Build momentum"},
			},
			{
				Phase:        "Sustain",
				Months:       fmt.Sprintf("4-%d", months-3),
				PostsPerWeek: postsPerWeek,
				Focus:        "Consistent growth, engagement optimisation",
				KeyActions:   []string{"Double down on winners", "Optimise posting times", "Build community"},
			},
			{
				Phase:        "Accelerate",
				Months:       fmt.Sprintf("%d-%d", months-2, months),
				PostsPerWeek: math.Min(postsPerWeek+3, 35),
				Focus:        "Final push to goal",
				KeyActions:   []string{"Increase frequency", "Launch campaigns", "Maximise reach"},
			},
		}
	}
	return []Phase{{
		Phase:        "Sprint",
		Months:       fmt.Sprintf("1-%d", months),
		PostsPerWeek: math.Min(postsPerWeek+7, 40),
		Focus:        "Rapid growth execution",
		KeyActions:   []string{"High-impact content", "Aggressive promotion", "Daily optimisation"},
	}}
}

func allocation(ig, tt, yt, fb float64) map[forecast.Platform]float64 {
	return map[forecast.Platform]float64{
		forecast.Instagram: ig,
		forecast.TikTok:    tt,
		forecast.YouTube:   yt,
		forecast.Facebook:  fb,
	}
}

func valueOr(m map[forecast.Platform]float64, p forecast.Platform, def float64) float64 {
	if v, ok := m[p]; ok {
		return v
	}
	return def
}
