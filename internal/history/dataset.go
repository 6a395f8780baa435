package history

import (
	"errors"
	"io/fs"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sawpanic/growthcast/internal/forecast"
)

// Files names the three historical exports inside a data directory.
type Files struct {
	Mentions  string `yaml:"mentions"`
	Sentiment string `yaml:"sentiment"`
	Tags      string `yaml:"tags"`
}

func DefaultFiles() Files {
	return Files{
		Mentions:  "generaldynamics.csv",
		Sentiment: "sentiment-dynamics.csv",
		Tags:      "tags-dynamics.csv",
	}
}

func (f Files) names() []string {
	return []string{f.Mentions, f.Sentiment, f.Tags}
}

// TagRow is one week of per-tag mention counts.
type TagRow struct {
	Time   time.Time          `json:"time"`
	Counts map[string]float64 `json:"counts"`
}

// Dataset is everything loaded from one data directory.
type Dataset struct {
	Mentions   []forecast.MentionPoint   `json:"mentions"`
	Sentiment  []forecast.SentimentPoint `json:"sentiment"`
	Tags       []TagRow                  `json:"tags"`
	TagNames   []string                  `json:"tag_names"`
	Engagement []float64                 `json:"engagement_index"`
}

// Clone returns a deep copy so callers may not alter a cached dataset.
func (d *Dataset) Clone() *Dataset {
	out := &Dataset{
		Mentions:   append([]forecast.MentionPoint(nil), d.Mentions...),
		Sentiment:  append([]forecast.SentimentPoint(nil), d.Sentiment...),
		Tags:       make([]TagRow, len(d.Tags)),
		TagNames:   append([]string(nil), d.TagNames...),
		Engagement: append([]float64(nil), d.Engagement...),
	}
	for i, r := range d.Tags {
		counts := make(map[string]float64, len(r.Counts))
		for k, v := range r.Counts {
			counts[k] = v
		}
		out.Tags[i] = TagRow{Time: r.Time, Counts: counts}
	}
	return out
}

// Load reads a data directory. The mentions file is required and must
// yield rows; a missing sentiment file means every week is neutral and a
// missing tags file means no tags. Failures to produce the mentions series
// are reported as *forecast.DataUnavailableError.
func Load(dir string, files Files) (*Dataset, error) {
	mentionsPath := filepath.Join(dir, files.Mentions)
	mt, err := readTableFile(mentionsPath, "Mentions")
	if err != nil {
		return nil, &forecast.DataUnavailableError{Source: mentionsPath, Err: err}
	}
	if len(mt.rows) == 0 {
		return nil, &forecast.DataUnavailableError{Source: mentionsPath, Err: errors.New("no dated rows")}
	}

	ds := &Dataset{Mentions: make([]forecast.MentionPoint, len(mt.rows))}
	for i := range mt.rows {
		ds.Mentions[i] = forecast.MentionPoint{Time: mt.times[i], Mentions: mt.number(i, "Mentions")}
	}

	sentimentPath := filepath.Join(dir, files.Sentiment)
	st, err := readTableFile(sentimentPath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		log.Warn().Str("file", sentimentPath).Msg("Sentiment file missing, treating all weeks as neutral")
	case err != nil:
		return nil, &forecast.DataUnavailableError{Source: sentimentPath, Err: err}
	default:
		ds.Sentiment = make([]forecast.SentimentPoint, len(st.rows))
		for i := range st.rows {
			ds.Sentiment[i] = forecast.SentimentPoint{
				Time:     st.times[i],
				Positive: st.number(i, "Positive"),
				Neutral:  st.number(i, "Neutral"),
				Negative: st.number(i, "Negative"),
			}
		}
	}

	tagsPath := filepath.Join(dir, files.Tags)
	tt, err := readTableFile(tagsPath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		log.Debug().Str("file", tagsPath).Msg("Tags file missing")
	case err != nil:
		log.Warn().Err(err).Str("file", tagsPath).Msg("Tags file unreadable, skipping")
	default:
		for _, c := range tt.columns {
			if c != TimeColumn && c != "" {
				ds.TagNames = appendUnique(ds.TagNames, c)
			}
		}
		ds.Tags = make([]TagRow, len(tt.rows))
		for i := range tt.rows {
			counts := make(map[string]float64, len(ds.TagNames))
			for _, name := range ds.TagNames {
				counts[name] = tt.number(i, name)
			}
			ds.Tags[i] = TagRow{Time: tt.times[i], Counts: counts}
		}
	}

	ds.Engagement = forecast.EngagementIndex(ds.Mentions, ds.Sentiment)
	log.Debug().
		Str("dir", dir).
		Int("weeks", len(ds.Mentions)).
		Int("tags", len(ds.TagNames)).
		Msg("Historical data loaded")
	return ds, nil
}

func appendUnique(list []string, s string) []string {
	for _, v := range list {
		if v == s {
			return list
		}
	}
	return append(list, s)
}
