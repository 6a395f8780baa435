package insights

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/sawpanic/growthcast/internal/llm"
)

const (
	SourceRules    = "rules"
	SourceLLM      = "llm"
	SourceFallback = "fallback"
)

// Generator turns a Summary into narrative text.
type Generator interface {
	Generate(ctx context.Context, s Summary) (string, error)
}

// RuleBased renders a Summary with fixed templates. It never fails.
type RuleBased struct{}

func (RuleBased) Generate(_ context.Context, s Summary) (string, error) {
	return strings.Join(Lines(s), "\n"), nil
}

// Lines is the rule-based insight, one observation per line.
func Lines(s Summary) []string {
	var lines []string

	if s.GoalMonth > 0 {
		lines = append(lines, fmt.Sprintf("On track to double total followers by month %d.", s.GoalMonth))
	} else {
		shortfall := math.Max(0, s.Goal-s.EndTotal)
		lines = append(lines, fmt.Sprintf("Projected to reach %.1f%% of the doubling goal; shortfall ~%s.", s.ProgressPct, Count(shortfall)))
	}

	if len(s.Contributions) > 0 {
		parts := make([]string, 0, 3)
		for _, c := range tail3(s.Contributions) {
			parts = append(parts, fmt.Sprintf("%s %s", c.Platform, Count(math.Trunc(c.Added))))
		}
		lines = append(lines, "Top growth contributors: "+strings.Join(parts, ", ")+".")
	}

	if len(s.Cadence) > 0 {
		issues := make([]string, 0, len(s.Cadence))
		for _, f := range s.Cadence {
			switch f.Level {
			case BelowMin:
				issues = append(issues, fmt.Sprintf("%s: below min (%.1f/wk < %g/wk)", f.Platform, f.PostsPerWeek, f.Limit))
			case OverHard:
				issues = append(issues, fmt.Sprintf("%s: over hard cap (%.1f/wk > %g/wk)", f.Platform, f.PostsPerWeek, f.Limit))
			case OverSoft:
				issues = append(issues, fmt.Sprintf("%s: over soft cap (%.1f/wk > %g/wk)", f.Platform, f.PostsPerWeek, f.Limit))
			}
		}
		lines = append(lines, "Posting cadence flags: "+strings.Join(issues, "; ")+".")
	}

	if len(s.Concentrated) > 0 {
		names := make([]string, len(s.Concentrated))
		for i, p := range s.Concentrated {
			names[i] = string(p)
		}
		lines = append(lines, "High format concentration detected on: "+strings.Join(names, ", ")+". Consider diversifying 1-2 slots.")
	}

	if s.HasTrend {
		lines = append(lines, fmt.Sprintf("Engagement trend: %s (last 8w avg %.2f).", s.Trend(), s.EngagementRecent))
	} else {
		lines = append(lines, fmt.Sprintf("Avg engagement index (last 8w): %.2f.", s.EngagementRecent))
	}
	if len(s.TopTags) > 0 {
		lines = append(lines, "Lean into recent tag pillars: "+strings.Join(s.TopTags, ", ")+".")
	}

	if s.GoalMonth == 0 {
		lines = append(lines, "Consider +15-25% posts/week and reweight toward high-yield formats (Carousel, Short Video, Long Video) while staying under soft caps.")
	}
	return lines
}

func tail3(cs []Contribution) []Contribution {
	if len(cs) > 3 {
		return cs[:3]
	}
	return cs
}

// Count formats a whole number with thousands separators.
func Count(v float64) string {
	neg := v < 0
	s := fmt.Sprintf("%.0f", math.Abs(v))
	var b strings.Builder
	if neg && s != "0" {
		b.WriteByte('-')
	}
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// LLMGenerator asks a chat model to narrate the Summary.
type LLMGenerator struct {
	client llm.Completer
}

func NewLLMGenerator(c llm.Completer) *LLMGenerator {
	return &LLMGenerator{client: c}
}

func (g *LLMGenerator) Generate(ctx context.Context, s Summary) (string, error) {
	if g == nil || g.client == nil {
		return "", llm.ErrDisabled
	}
	facts, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal summary: %w", err)
	}
	text, err := g.client.Complete(ctx, llm.Request{
		Messages: []llm.Message{
			{Role: "system", Content: "You are a social media growth analyst. Write 4-7 short, concrete observations, one per line, using only the figures provided."},
			{Role: "user", Content: "Forecast summary:\n" + string(facts)},
		},
	})
	if err != nil {
		return "", err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("empty completion")
	}
	return text, nil
}

// Insight is narrative text plus where it came from.
type Insight struct {
	Text   string   `json:"insights"`
	Source string   `json:"source"`
	Lines  []string `json:"lines"`
}

// Narrator prefers its primary generator and falls back to the rules.
type Narrator struct {
	primary Generator
}

func NewNarrator(primary Generator) *Narrator {
	return &Narrator{primary: primary}
}

func (n *Narrator) Narrate(ctx context.Context, s Summary) Insight {
	if n != nil && n.primary != nil {
		text, err := n.primary.Generate(ctx, s)
		if err == nil {
			return Insight{Text: text, Source: SourceLLM, Lines: strings.Split(text, "\n")}
		}
		log.Warn().Err(err).Msg("Insight generation failed, using rule-based text")
		lines := Lines(s)
		return Insight{Text: strings.Join(lines, "\n"), Source: SourceFallback, Lines: lines}
	}
	lines := Lines(s)
	return Insight{Text: strings.Join(lines, "\n"), Source: SourceRules, Lines: lines}
}
