package forecast

import "time"

// MentionPoint is one week of mention volume.
type MentionPoint struct {
	Time     time.Time `json:"time"`
	Mentions float64   `json:"mentions"`
}

// SentimentPoint is one week of sentiment counts.
type SentimentPoint struct {
	Time     time.Time `json:"time"`
	Positive float64   `json:"positive"`
	Neutral  float64   `json:"neutral"`
	Negative float64   `json:"negative"`
}

// EngagementIndex combines mention volume and sentiment polarity into one
// non-negative scalar per mention week, in input order. A week with no
// sentiment row is treated as fully neutral.
func EngagementIndex(mentions []MentionPoint, sentiment []SentimentPoint) []float64 {
	byTime := make(map[int64]SentimentPoint, len(sentiment))
	for _, s := range sentiment {
		byTime[s.Time.UnixNano()] = s
	}

	peak := 0.0
	for _, m := range mentions {
		if v := clampNonNegative(m.Mentions); v > peak {
			peak = v
		}
	}
	if peak < 1 {
		peak = 1
	}

	out := make([]float64, len(mentions))
	for i, m := range mentions {
		count := clampNonNegative(m.Mentions)
		s, ok := byTime[m.Time.UnixNano()]
		if !ok {
			s = SentimentPoint{Neutral: count}
		}
		idx := (count / peak) * SentimentFactor(s.Positive, s.Neutral, s.Negative)
		if !isFinite(idx) || idx < 0 {
			idx = 0
		}
		out[i] = idx
	}
	return out
}

// SentimentFactor is (pos + neu/2 - neg/2) / total, or 1.0 when there is
// nothing to weigh.
func SentimentFactor(positive, neutral, negative float64) float64 {
	pos := clampNonNegative(positive)
	neu := clampNonNegative(neutral)
	neg := clampNonNegative(negative)
	total := pos + neu + neg
	if total <= 0 {
		return 1
	}
	return (pos + 0.5*neu - 0.5*neg) / total
}

const (
	baselineWindow    = 8
	neutralEngagement = 0.5
)

// EngagementBaseline is the mean of the trailing eight weeks of series.
// An empty series yields the neutral value 0.5 and fallback=true.
func EngagementBaseline(series []float64) (baseline float64, fallback bool) {
	if len(series) == 0 {
		return neutralEngagement, true
	}
	tail := series
	if len(tail) > baselineWindow {
		tail = tail[len(tail)-baselineWindow:]
	}
	sum := 0.0
	for _, v := range tail {
		sum += v
	}
	return sum / float64(len(tail)), false
}
