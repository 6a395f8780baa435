package audience

import (
	"fmt"
	"math"

	"github.com/sawpanic/growthcast/internal/forecast"
)

type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// Preset is a research-backed starting plan for one audience focus.
type Preset struct {
	ID                 string                        `json:"id"`
	Name               string                        `json:"name"`
	Description        string                        `json:"description"`
	SegmentFocus       string                        `json:"segment_focus"`
	PlatformAllocation map[forecast.Platform]float64 `json:"platform_allocation"`
	PostsPerWeek       float64                       `json:"posts_per_week"`
	Rationale          string                        `json:"rationale"`
	DataSource         string                        `json:"data_source"`
	RiskLevel          RiskLevel                     `json:"risk_level"`
	ExpectedGoalRange  [2]float64                    `json:"expected_goal_range"`
	ContentTips        []string                      `json:"content_recommendations"`
}

// DefaultPresetID is the preset a fresh plan starts from.
const DefaultPresetID = "balanced"

func alloc(ig, tt, yt, fb float64) map[forecast.Platform]float64 {
	return map[forecast.Platform]float64{
		forecast.Instagram: ig,
		forecast.TikTok:    tt,
		forecast.YouTube:   yt,
		forecast.Facebook:  fb,
	}
}

var presets = []Preset{
	{
		ID:                 "parent_acquisition",
		Name:               "Parent Acquisition",
		Description:        "Optimised for reaching parents who are likely brand purchasers",
		SegmentFocus:       string(Parents),
		PlatformAllocation: alloc(30, 30, 20, 20),
		PostsPerWeek:       28,
		Rationale:          "Purchasing parents over-index on Instagram (1.15x) and TikTok (1.30x). Balanced frequency for sustained reach.",
		DataSource:         "GWI 2024 (n=22,184 parents)",
		RiskLevel:          RiskLow,
		ExpectedGoalRange:  [2]float64{0.85, 0.95},
		ContentTips: []string{
			"Focus on fun, safety, and values messaging (80% driver alignment)",
			"Educational content performs well with this segment",
			"Show children engaging with products",
		},
	},
	{
		ID:                 "gifter_reach",
		Name:               "Gifter Reach",
		Description:        "Optimised for gift-purchase consideration, brand trust focus",
		SegmentFocus:       string(Gifters),
		PlatformAllocation: alloc(25, 20, 20, 35),
		PostsPerWeek:       24,
		Rationale:          "Gifters show highest engagement on Facebook (1.14x index) with strong Instagram presence. Quality over quantity.",
		DataSource:         "GWI 2024 (n=5,104 gifters)",
		RiskLevel:          RiskLow,
		ExpectedGoalRange:  [2]float64{0.80, 0.90},
		ContentTips: []string{
			"Emphasise safety and age-appropriateness for under-5 gifts",
			"Brand reputation and trust messaging",
			"Gift guides and seasonal content",
		},
	},
	{
		ID:                 "collector_growth",
		Name:               "Collector Growth",
		Description:        "Optimised for adult collector segment, nostalgia-driven",
		SegmentFocus:       string(Collectors),
		PlatformAllocation: alloc(30, 30, 15, 25),
		PostsPerWeek:       21,
		Rationale:          "Collectors value exclusivity, not volume. Nostalgia (39%) and values (33%) drive purchases.",
		DataSource:         "GWI 2024 (n=1,942 collectors)",
		RiskLevel:          RiskMedium,
		ExpectedGoalRange:  [2]float64{0.75, 0.88},
		ContentTips: []string{
			"Heritage and nostalgia content performs best",
			"Limited edition and exclusive releases",
			"Community and collector showcases",
		},
	},
	{
		ID:                 "emerging_platforms",
		Name:               "Emerging Platform Play",
		Description:        "Aggressive allocation to high-index emerging platforms",
		SegmentFocus:       "emerging",
		PlatformAllocation: alloc(25, 45, 15, 15),
		PostsPerWeek:       32,
		Rationale:          "Purchasers are 1.3-2x more likely to be on emerging platforms. Higher frequency to build presence on growth platforms.",
		DataSource:         "GWI 2024 platform index analysis",
		RiskLevel:          RiskHigh,
		ExpectedGoalRange:  [2]float64{0.70, 1.05},
		ContentTips: []string{
			"Native format content for each platform",
			"Trend participation and challenges",
			"Short-form video focus",
		},
	},
	{
		ID:                 DefaultPresetID,
		Name:               "Balanced (Manual)",
		Description:        "Default balanced allocation, customise as needed",
		SegmentFocus:       "balanced",
		PlatformAllocation: alloc(35, 35, 15, 15),
		PostsPerWeek:       40,
		Rationale:          "Standard balanced allocation across platforms.",
		DataSource:         "Industry benchmarks",
		RiskLevel:          RiskMedium,
		ExpectedGoalRange:  [2]float64{0.60, 0.85},
		ContentTips: []string{
			"Mix of content types across platforms",
			"Test and learn approach",
		},
	},
}

// Presets returns copies of every research preset.
func Presets() []Preset {
	out := make([]Preset, len(presets))
	for i, p := range presets {
		out[i] = p.clone()
	}
	return out
}

func PresetByID(id string) (Preset, error) {
	for _, p := range presets {
		if p.ID == id {
			return p.clone(), nil
		}
	}
	return Preset{}, fmt.Errorf("unknown research preset %q", id)
}

// Apply sets the preset's allocation and cadence on plan.
func (p Preset) Apply(plan *forecast.Plan) {
	plan.PostsPerWeekTotal = p.PostsPerWeek
	plan.PlatformAllocation = make(map[forecast.Platform]float64, len(p.PlatformAllocation))
	for k, v := range p.PlatformAllocation {
		plan.PlatformAllocation[k] = v
	}
}

func (p Preset) clone() Preset {
	p.PlatformAllocation = alloc(
		p.PlatformAllocation[forecast.Instagram],
		p.PlatformAllocation[forecast.TikTok],
		p.PlatformAllocation[forecast.YouTube],
		p.PlatformAllocation[forecast.Facebook],
	)
	p.ContentTips = append([]string(nil), p.ContentTips...)
	return p
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func platformLine(platform string, avg float64) string {
	return fmt.Sprintf("Brand purchasers are %d%% more likely to use %s than average families", int((avg-1)*100+1e-9), platform)
}
