package audience

import (
	"sort"
	"strings"

	"github.com/sawpanic/growthcast/internal/forecast"
)

type Segment string

const (
	Parents    Segment = "parents"
	Gifters    Segment = "gifters"
	Collectors Segment = "collectors"
)

var Segments = []Segment{Parents, Gifters, Collectors}

// Usage is a segment's reach on one platform: the share of all
// respondents using it, the share of brand purchasers using it, and the
// ratio between the two.
type Usage struct {
	Total     float64 `json:"total"`
	Purchaser float64 `json:"purchaser"`
	Index     float64 `json:"index"`
}

// Driver is a ranked purchase driver or motivation.
type Driver struct {
	Name string  `json:"name"`
	Pct  float64 `json:"pct"`
}

type SegmentData struct {
	Name        Segment          `json:"name"`
	SampleSize  int              `json:"sample_size"`
	Description string           `json:"description"`
	Usage       map[string]Usage `json:"platform_usage"`
	Drivers     []Driver         `json:"drivers,omitempty"`
}

// Survey metadata.
const (
	SurveySource     = "GWI Social Discovery Survey 2024"
	TotalRespondents = 29230
	ConfidenceLevel  = 0.95
	MarginOfError    = 0.014
)

// ResearchPlatforms lists every platform the survey covers, lower case.
var ResearchPlatforms = []string{
	"instagram", "tiktok", "youtube", "facebook", "snapchat", "twitch", "discord", "twitter", "pinterest",
}

var research = map[Segment]SegmentData{
	Parents: {
		Name:        Parents,
		SampleSize:  22184,
		Description: "Parents of children, includes brand purchasers and considerers",
		Usage: map[string]Usage{
			"youtube":   {0.80, 0.85, 1.06},
			"facebook":  {0.57, 0.63, 1.11},
			"instagram": {0.61, 0.70, 1.15},
			"tiktok":    {0.46, 0.60, 1.30},
			"snapchat":  {0.20, 0.30, 1.50},
			"twitch":    {0.09, 0.18, 2.00},
			"discord":   {0.08, 0.15, 1.88},
			"twitter":   {0.24, 0.34, 1.42},
			"pinterest": {0.16, 0.26, 1.62},
		},
		Drivers: []Driver{
			{"fun", 0.80}, {"safe_durable", 0.80}, {"good_values", 0.79}, {"educational", 0.74},
			{"great_value", 0.71}, {"brand_reputation", 0.71}, {"mental_health_wellbeing", 0.70},
			{"child_watches_show", 0.64}, {"diversity_inclusivity", 0.59}, {"sustainable_packaging", 0.56},
			{"brand_everyone_knows", 0.48}, {"had_as_child", 0.43},
		},
	},
	Gifters: {
		Name:        Gifters,
		SampleSize:  5104,
		Description: "Adults purchasing the brand as gifts for children",
		Usage: map[string]Usage{
			"youtube":   {0.76, 0.80, 1.05},
			"facebook":  {0.63, 0.72, 1.14},
			"instagram": {0.64, 0.68, 1.06},
			"tiktok":    {0.44, 0.54, 1.23},
			"snapchat":  {0.20, 0.29, 1.45},
			"twitch":    {0.10, 0.14, 1.40},
			"discord":   {0.08, 0.11, 1.38},
			"twitter":   {0.27, 0.31, 1.15},
			"pinterest": {0.20, 0.26, 1.30},
		},
		Drivers: []Driver{
			{"fun", 0.39}, {"safe_age_appropriate", 0.36}, {"safe_durable", 0.36}, {"good_values", 0.35},
			{"brand_reputation", 0.30}, {"brand_everyone_knows", 0.28}, {"had_as_child", 0.26},
		},
	},
	Collectors: {
		Name:        Collectors,
		SampleSize:  1942,
		Description: "Adult collectors purchasing for themselves",
		Usage: map[string]Usage{
			"youtube":   {0.73, 0.72, 1.00},
			"facebook":  {0.62, 0.68, 1.10},
			"instagram": {0.59, 0.60, 1.02},
			"tiktok":    {0.40, 0.43, 1.08},
			"snapchat":  {0.19, 0.21, 1.11},
			"twitch":    {0.10, 0.12, 1.20},
			"discord":   {0.08, 0.09, 1.13},
			"twitter":   {0.25, 0.25, 1.00},
			"pinterest": {0.18, 0.20, 1.11},
		},
		Drivers: []Driver{
			{"nostalgia_had_as_child", 0.39}, {"fun_hobby", 0.36}, {"brand_reputation", 0.34},
			{"appreciate_values", 0.33}, {"mental_health_wellbeing", 0.29}, {"diversity_inclusivity", 0.26},
			{"use_with_family_friends", 0.23}, {"limited_edition", 0.20}, {"display_in_packaging", 0.20},
			{"charitable_causes", 0.20}, {"watch_or_read_content", 0.19}, {"community_connection", 0.18},
			{"sustainable_packaging", 0.18},
		},
	},
}

// SegmentByName returns a copy of one segment's survey data.
func SegmentByName(name string) (SegmentData, bool) {
	s, ok := research[Segment(strings.ToLower(strings.TrimSpace(name)))]
	if !ok {
		return SegmentData{}, false
	}
	usage := make(map[string]Usage, len(s.Usage))
	for k, v := range s.Usage {
		usage[k] = v
	}
	s.Usage = usage
	s.Drivers = append([]Driver(nil), s.Drivers...)
	return s, true
}

// SampleShare is a segment's share of all respondents.
func SampleShare(s Segment) float64 {
	return float64(research[s].SampleSize) / TotalRespondents
}

type PlatformIndex struct {
	Platform string  `json:"platform"`
	Index    float64 `json:"index"`
}

// SegmentInsight summarises a segment: its over-indexing platforms and
// top three drivers.
type SegmentInsight struct {
	Segment      Segment         `json:"segment"`
	SampleSize   int             `json:"sample_size"`
	Description  string          `json:"description"`
	TopPlatforms []PlatformIndex `json:"top_platforms"`
	TopDrivers   []Driver        `json:"top_drivers"`
}

func InsightForSegment(s Segment) (SegmentInsight, bool) {
	data, ok := research[s]
	if !ok {
		return SegmentInsight{}, false
	}
	out := SegmentInsight{Segment: s, SampleSize: data.SampleSize, Description: data.Description}

	ranked := make([]PlatformIndex, 0, len(data.Usage))
	for _, p := range ResearchPlatforms {
		ranked = append(ranked, PlatformIndex{Platform: p, Index: data.Usage[p].Index})
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Index > ranked[j].Index })
	for _, pi := range ranked[:3] {
		if pi.Index > 1 {
			out.TopPlatforms = append(out.TopPlatforms, pi)
		}
	}

	drivers := append([]Driver(nil), data.Drivers...)
	sort.SliceStable(drivers, func(i, j int) bool { return drivers[i].Pct > drivers[j].Pct })
	if len(drivers) > 3 {
		drivers = drivers[:3]
	}
	out.TopDrivers = drivers
	return out, true
}

// SegmentReach is one segment's usage of a platform.
type SegmentReach struct {
	TotalUsage     float64 `json:"total_usage"`
	PurchaserUsage float64 `json:"purchaser_usage"`
	Index          float64 `json:"index"`
}

type PlatformInsight struct {
	Platform string                   `json:"platform"`
	Segments map[Segment]SegmentReach `json:"segments"`
	AvgIndex float64                  `json:"avg_index"`
	Insight  string                   `json:"insight"`
}

// InsightForPlatform averages a platform's index across segments. The
// second result is false for platforms the survey does not cover.
func InsightForPlatform(platform string) (PlatformInsight, bool) {
	key := strings.ToLower(strings.TrimSpace(platform))
	out := PlatformInsight{Platform: platform, Segments: make(map[Segment]SegmentReach)}

	sum := 0.0
	for _, s := range Segments {
		u, ok := research[s].Usage[key]
		if !ok {
			continue
		}
		out.Segments[s] = SegmentReach{TotalUsage: u.Total, PurchaserUsage: u.Purchaser, Index: u.Index}
		sum += u.Index
	}
	if len(out.Segments) == 0 {
		return PlatformInsight{}, false
	}
	out.AvgIndex = round2(sum / float64(len(out.Segments)))

	switch {
	case out.AvgIndex > 1.1:
		out.Insight = platformLine(platform, out.AvgIndex)
	case out.AvgIndex < 0.9:
		out.Insight = platform + " shows below-average index for brand purchasers"
	default:
		out.Insight = platform + " shows baseline reach with brand purchasers"
	}
	return out, true
}

// SegmentIndex returns a segment's index for one of the forecast
// platforms, 1.0 when unknown.
func SegmentIndex(s Segment, p forecast.Platform) float64 {
	if u, ok := research[s].Usage[strings.ToLower(string(p))]; ok {
		return u.Index
	}
	return 1
}
