package calibration

import (
	"math"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/sawpanic/growthcast/internal/forecast"
)

// Sheet names the calibration workbook is expected to carry.
const (
	SheetHistoricalGrowth = "Historical Growth"
	SheetProjectedGrowth  = "Projected Follower Growth"
	SheetViews            = "Views and Engagements past 8 mo"
	SheetCompetitors      = "Competitor Benchmarks"
	SheetPaidCreators     = "Paid and Creators CPT"
)

// WorkbookDecay is the gentle monthly taper applied whenever a workbook
// calibration is in effect.
const WorkbookDecay = 0.02

// WorkbookOptions tunes how a workbook is read.
type WorkbookOptions struct {
	// BenchmarkBrand labels the competitor block used for views per post.
	BenchmarkBrand string `yaml:"benchmark_brand"`
	// OtherBrands end the benchmark block when they appear as a row label.
	OtherBrands []string `yaml:"other_brands"`
}

func DefaultWorkbookOptions() WorkbookOptions {
	return WorkbookOptions{
		BenchmarkBrand: "Care Bears",
		OtherBrands:    []string{"Barbie", "Strawberry Shortcake", "Peanuts", "Hello Kitty", "Squishmallows", "CreativeInc"},
	}
}

// Report lists what a workbook contributed, for logging and the CLI.
type Report struct {
	BaseRates         map[forecast.Platform]float64 `json:"base_rates,omitempty"`
	ProjectedGrowth   map[forecast.Platform]float64 `json:"projected_growth,omitempty"`
	FollowersPerView  float64                       `json:"followers_per_view,omitempty"`
	ViewsPerPost      map[forecast.Platform]float64 `json:"views_per_post,omitempty"`
	PaidCPFSamples    []float64                     `json:"paid_cpf_samples,omitempty"`
	CreatorCPFSamples []float64                     `json:"creator_cpf_samples,omitempty"`
}

// FromWorkbook derives benchmark overrides from a calibration workbook.
// Sheets that are missing or unparseable simply contribute nothing.
func FromWorkbook(wb Workbook, opts WorkbookOptions) (*forecast.Overrides, Report) {
	if opts.BenchmarkBrand == "" {
		opts = DefaultWorkbookOptions()
	}

	var rep Report
	rep.BaseRates = historicalGrowth(wb.Sheet(SheetHistoricalGrowth))
	rep.ProjectedGrowth = projectedGrowth(wb.Sheet(SheetProjectedGrowth))
	rep.FollowersPerView, _ = followersPerView(wb.Sheet(SheetViews))
	rep.ViewsPerPost = viewsPerPost(wb.Sheet(SheetCompetitors), opts)
	rep.PaidCPFSamples, rep.CreatorCPFSamples = cpfSamples(wb.Sheet(SheetPaidCreators))

	o := &forecast.Overrides{MonthDecayPerMonth: forecast.Float(WorkbookDecay)}
	if len(rep.BaseRates) > 0 {
		o.BaseMonthlyRate = rep.BaseRates
	}
	if len(rep.ProjectedGrowth) > 0 {
		o.MonthlyCap = make(map[forecast.Platform]float64, len(rep.ProjectedGrowth))
		for p, v := range rep.ProjectedGrowth {
			o.MonthlyCap[p] = clamp(v*1.6, 0.04, 0.15)
		}
	}
	if rep.FollowersPerView > 0 && len(rep.ViewsPerPost) > 0 {
		o.PerPostGain = make(map[forecast.Platform]float64, len(rep.ViewsPerPost))
		for p, vpp := range rep.ViewsPerPost {
			gain := rep.FollowersPerView * vpp
			if gain < 1 {
				gain = 1
			}
			o.PerPostGain[p] = gain
		}
	}
	o.CPF = map[forecast.Channel]forecast.PartialCPF{
		forecast.ChannelPaid:    cpfRange(3, meanOr(rep.PaidCPFSamples, 5), 6),
		forecast.ChannelCreator: cpfRange(10, meanOr(rep.CreatorCPFSamples, 12.5), 20),
	}

	log.Debug().
		Int("base_rates", len(o.BaseMonthlyRate)).
		Int("caps", len(o.MonthlyCap)).
		Int("per_post_gains", len(o.PerPostGain)).
		Msg("Workbook calibration derived")
	return o, rep
}

// historicalGrowth takes, per platform row, the largest cell that reads as
// a month-over-month rate in (0, 0.2).
func historicalGrowth(rows [][]string) map[forecast.Platform]float64 {
	out := make(map[forecast.Platform]float64)
	for _, r := range rows {
		if len(r) == 0 {
			continue
		}
		p, ok := forecast.ParsePlatform(r[0])
		if !ok {
			continue
		}
		best := 0.0
		for _, c := range r[1:] {
			if v, ok := parseNumber(c); ok && v > 0 && v < 0.2 && v > best {
				best = v
			}
		}
		if best > 0 {
			out[p] = best
		}
	}
	return out
}

// projectedGrowth reads the "Projected Growth" column when one of the
// first five rows names it, otherwise the largest plausible rate per row.
func projectedGrowth(rows [][]string) map[forecast.Platform]float64 {
	col := -1
	for i, r := range rows {
		if i >= 5 {
			break
		}
		if idx := findCell(r, "Projected Growth"); idx >= 0 {
			col = idx
			break
		}
	}

	out := make(map[forecast.Platform]float64)
	for _, r := range rows {
		if len(r) == 0 {
			continue
		}
		p := forecast.Platform(strings.TrimSpace(r[0]))
		if !forecast.IsKnownPlatform(p) {
			continue
		}
		if col >= 0 {
			if col < len(r) {
				if v, ok := parseNumber(r[col]); ok && v > 0 && v < 0.3 {
					out[p] = v
				}
			}
			continue
		}
		best := 0.0
		for _, c := range r[1:] {
			if v, ok := parseNumber(c); ok && v > 0 && v < 0.3 && v > best {
				best = v
			}
		}
		if best > 0 {
			out[p] = best
		}
	}
	return out
}

// followersPerView prefers a lone cell in (0, 0.05), then falls back to
// the TOTAL row's smallest over largest value.
func followersPerView(rows [][]string) (float64, bool) {
	for _, r := range rows {
		if len(r) != 1 {
			continue
		}
		if v, ok := parseNumber(r[0]); ok && v > 0 && v < 0.05 {
			return v, true
		}
	}
	for _, r := range rows {
		if len(r) == 0 || !strings.EqualFold(strings.TrimSpace(r[0]), "TOTAL") {
			continue
		}
		var nums []float64
		for _, c := range r[1:] {
			if v, ok := parseNumber(c); ok && v > 0 {
				nums = append(nums, v)
			}
		}
		if len(nums) < 2 {
			continue
		}
		lo, hi := nums[0], nums[0]
		for _, v := range nums[1:] {
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
		}
		return lo / hi, true
	}
	return 0, false
}

// viewsPerPost reads the benchmark brand's block: label, posts, views.
func viewsPerPost(rows [][]string, opts WorkbookOptions) map[forecast.Platform]float64 {
	stop := make(map[string]bool, len(opts.OtherBrands))
	for _, b := range opts.OtherBrands {
		stop[b] = true
	}

	out := make(map[forecast.Platform]float64)
	active := false
	for _, r := range rows {
		if len(r) == 0 {
			continue
		}
		if !active {
			active = findCell(r, opts.BenchmarkBrand) >= 0
			continue
		}
		label := strings.TrimSpace(r[0])
		if stop[label] {
			break
		}
		if len(r) < 3 {
			continue
		}
		posts, okPosts := parseNumber(r[1])
		views, okViews := parseNumber(r[2])
		if !okPosts || !okViews || posts <= 0 || views <= 0 {
			continue
		}
		switch {
		case strings.HasPrefix(label, "IG Reels"):
			out[forecast.Instagram] = views / posts
		case strings.HasPrefix(label, "FB Reels"):
			out[forecast.Facebook] = views / posts
		case strings.HasPrefix(label, "TT"), strings.HasPrefix(label, "TikTok"):
			out[forecast.TikTok] = views / posts
		case strings.HasPrefix(label, "YT"), strings.HasPrefix(label, "YouTube"):
			out[forecast.YouTube] = views / posts
		}
	}
	return out
}

// cpfSamples collects the last number of each TOTAL row inside a channel
// table (paid) and of each Creators row (creator).
func cpfSamples(rows [][]string) (paid, creator []float64) {
	inTable := false
	for _, r := range rows {
		if len(r) == 0 {
			continue
		}
		label := strings.TrimSpace(r[0])
		if label == "Channel" && (findCell(r, "Est CPV") >= 0 || findCell(r, "Est CPT") >= 0) {
			inTable = true
			continue
		}
		last, ok := lastNumber(r)
		if !ok {
			continue
		}
		switch label {
		case "TOTAL":
			if inTable {
				paid = append(paid, last)
			}
		case "Creators":
			creator = append(creator, last)
		}
	}
	return paid, creator
}

func findCell(row []string, needle string) int {
	for i, c := range row {
		if strings.Contains(c, needle) {
			return i
		}
	}
	return -1
}

func lastNumber(row []string) (float64, bool) {
	for i := len(row) - 1; i >= 0; i-- {
		if v, ok := parseNumber(row[i]); ok {
			return v, true
		}
	}
	return 0, false
}

// cpfRange keeps the observed mid and widens the nominal bounds to hold it.
func cpfRange(lo, mid, hi float64) forecast.PartialCPF {
	return forecast.PartialCPF{
		Min: forecast.Float(math.Min(lo, mid)),
		Mid: forecast.Float(mid),
		Max: forecast.Float(math.Max(hi, mid)),
	}
}

func meanOr(vals []float64, fallback float64) float64 {
	if len(vals) == 0 {
		return fallback
	}
	sum := 0.0
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
