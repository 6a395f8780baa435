package calibration

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/sawpanic/growthcast/internal/forecast"
)

// HistoryPoint is one month of observed (or filled-in) follower counts.
type HistoryPoint struct {
	Label        string                        `json:"label"`
	Followers    map[forecast.Platform]float64 `json:"followers"`
	Interpolated map[forecast.Platform]bool    `json:"interpolated,omitempty"`
	Total        float64                       `json:"total"`
}

// FollowerHistory is the monthly follower series behind the "actuals"
// part of a growth chart.
type FollowerHistory struct {
	Source string         `json:"source"`
	Points []HistoryPoint `json:"points"`
}

// Latest returns the most recent follower counts, or nil.
func (h FollowerHistory) Latest() map[forecast.Platform]float64 {
	if len(h.Points) == 0 {
		return nil
	}
	return h.Points[len(h.Points)-1].Followers
}

const (
	followersLabel     = "Followers"
	minExcelDateSerial = 40000
	reconstructMonths  = 8
)

// FollowerHistoryFromWorkbook looks for a "Followers" section in any sheet
// (a header row of Excel date serials followed by one row per platform).
// Without one it rebuilds a geometric series from the start and end counts
// on the historical growth sheet.
func FollowerHistoryFromWorkbook(wb Workbook) FollowerHistory {
	names := make([]string, 0, len(wb))
	for name := range wb {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if h, ok := followersSection(wb[name]); ok {
			h.Source = name
			return h
		}
	}
	return reconstructHistory(wb.Sheet(SheetHistoricalGrowth))
}

func followersSection(rows [][]string) (FollowerHistory, bool) {
	var header []string
	series := make(map[forecast.Platform][]string)
	for _, r := range rows {
		label := ""
		if len(r) > 0 {
			label = strings.TrimSpace(r[0])
		}
		if header == nil {
			if label == followersLabel {
				header = r
			}
			continue
		}
		if label == "" {
			if len(series) > 0 {
				break
			}
			continue
		}
		p := forecast.Platform(label)
		if !forecast.IsKnownPlatform(p) {
			break
		}
		series[p] = r
	}
	if header == nil || len(series) == 0 {
		return FollowerHistory{}, false
	}

	var labels []string
	for _, c := range header[1:] {
		if v, ok := parseNumber(c); ok && v > minExcelDateSerial {
			labels = append(labels, ExcelSerialToDate(v).Format("Jan 2006"))
		} else if s := strings.TrimSpace(c); s != "" {
			labels = append(labels, s)
		}
	}

	var points []HistoryPoint
	for i, label := range labels {
		pt := HistoryPoint{Label: label, Followers: make(map[forecast.Platform]float64)}
		for _, p := range forecast.Platforms {
			r, ok := series[p]
			if !ok || i+1 >= len(r) {
				continue
			}
			if v, ok := parseNumber(r[i+1]); ok && v > 0 {
				pt.Followers[p] = v
			}
		}
		if len(pt.Followers) > 0 {
			points = append(points, pt)
		}
	}
	if len(points) == 0 {
		return FollowerHistory{}, false
	}

	for _, p := range forecast.Platforms {
		if _, ok := series[p]; ok {
			fillGaps(points, p)
		}
	}
	for i := range points {
		points[i].Total = 0
		for _, v := range points[i].Followers {
			points[i].Total += v
		}
	}
	return FollowerHistory{Points: points}, true
}

// fillGaps linearly interpolates missing months for p and extrapolates
// the edges from the nearest two known months, flagging every filled
// value.
func fillGaps(points []HistoryPoint, p forecast.Platform) {
	var known []int
	for i, pt := range points {
		if _, ok := pt.Followers[p]; ok {
			known = append(known, i)
		}
	}
	if len(known) == 0 || len(known) == len(points) {
		return
	}

	set := func(i int, v float64) {
		if points[i].Interpolated == nil {
			points[i].Interpolated = make(map[forecast.Platform]bool)
		}
		points[i].Followers[p] = math.Max(v, 0)
		points[i].Interpolated[p] = true
	}

	if len(known) == 1 {
		only := points[known[0]].Followers[p]
		for i := range points {
			if i != known[0] {
				set(i, only)
			}
		}
		return
	}

	val := func(i int) float64 { return points[i].Followers[p] }
	slope := func(a, b int) float64 { return (val(b) - val(a)) / float64(b-a) }

	first, second := known[0], known[1]
	last, prev := known[len(known)-1], known[len(known)-2]
	k := 0
	for i := range points {
		for k+1 < len(known) && known[k+1] <= i {
			k++
		}
		if _, ok := points[i].Followers[p]; ok {
			continue
		}
		switch {
		case i < first:
			set(i, val(first)-slope(first, second)*float64(first-i))
		case i > last:
			set(i, val(last)+slope(prev, last)*float64(i-last))
		default:
			before, after := known[k], known[k+1]
			ratio := float64(i-before) / float64(after-before)
			set(i, val(before)+(val(after)-val(before))*ratio)
		}
	}
}

// reconstructHistory spreads each platform's start and end counts over
// eight months of constant growth.
func reconstructHistory(rows [][]string) FollowerHistory {
	series := make(map[forecast.Platform][]float64)
	for _, p := range forecast.Platforms {
		start, end, ok := startEnd(rows, shortCode(p))
		if !ok {
			continue
		}
		rate := math.Pow(end/start, 1.0/reconstructMonths) - 1
		seq := make([]float64, reconstructMonths+1)
		for i := range seq {
			seq[i] = start * math.Pow(1+rate, float64(i))
		}
		series[p] = seq
	}
	if len(series) == 0 {
		return FollowerHistory{Source: SheetHistoricalGrowth}
	}

	months := []string{"Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}
	points := make([]HistoryPoint, 0, len(months))
	for i, label := range months {
		pt := HistoryPoint{Label: label, Followers: make(map[forecast.Platform]float64)}
		for p, seq := range series {
			pt.Followers[p] = seq[i]
			pt.Total += seq[i]
		}
		points = append(points, pt)
	}
	return FollowerHistory{Source: SheetHistoricalGrowth, Points: points}
}

// startEnd finds the row labelled code and returns its first two
// positive numbers among columns B to F.
func startEnd(rows [][]string, code string) (float64, float64, bool) {
	for _, r := range rows {
		if len(r) == 0 || strings.TrimSpace(r[0]) != code {
			continue
		}
		var nums []float64
		for i := 1; i < len(r) && i <= 5; i++ {
			if v, ok := parseNumber(r[i]); ok {
				nums = append(nums, v)
			}
		}
		if len(nums) >= 2 && nums[0] > 0 && nums[1] > 0 {
			return nums[0], nums[1], true
		}
	}
	return 0, 0, false
}

func shortCode(p forecast.Platform) string {
	switch p {
	case forecast.Instagram:
		return "IG"
	case forecast.TikTok:
		return "TT"
	case forecast.YouTube:
		return "YT"
	case forecast.Facebook:
		return "FB"
	}
	return string(p)
}

// ExcelSerialToDate converts a 1900-system serial day number.
func ExcelSerialToDate(serial float64) time.Time {
	if serial > 59 {
		serial--
	}
	base := time.Date(1899, 12, 31, 0, 0, 0, 0, time.UTC)
	days := math.Floor(serial)
	frac := serial - days
	return base.AddDate(0, 0, int(days)).Add(time.Duration(frac * float64(24*time.Hour)))
}
