package budget

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// ErrExhausted is matched by every ExhaustedError.
var ErrExhausted = errors.New("daily budget exhausted")

// ExhaustedError reports a spent daily allowance and when it refills.
type ExhaustedError struct {
	Name  string
	Used  int64
	Limit int64
	ETA   time.Time
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("budget exhausted for %s: %d/%d calls used, resets at %s",
		e.Name, e.Used, e.Limit, e.ETA.Format("15:04 UTC"))
}

func (e *ExhaustedError) Is(target error) bool { return target == ErrExhausted }

// Tracker counts calls against a daily limit that resets at a fixed UTC
// hour. A non-positive limit means unlimited.
type Tracker struct {
	name          string
	limit         int64
	resetHour     int
	warnThreshold float64
	now           func() time.Time

	mu        sync.Mutex
	used      int64
	warned    bool
	lastReset time.Time
}

// NewTracker creates a tracker. resetHour outside 0..23 falls back to
// midnight and warnThreshold outside (0,1] to 0.8.
func NewTracker(name string, limit int64, resetHour int, warnThreshold float64) *Tracker {
	return newTrackerAt(name, limit, resetHour, warnThreshold, time.Now)
}

func newTrackerAt(name string, limit int64, resetHour int, warnThreshold float64, now func() time.Time) *Tracker {
	if resetHour < 0 || resetHour > 23 {
		resetHour = 0
	}
	if warnThreshold <= 0 || warnThreshold > 1 {
		warnThreshold = 0.8
	}
	return &Tracker{
		name:          name,
		limit:         limit,
		resetHour:     resetHour,
		warnThreshold: warnThreshold,
		now:           now,
		lastReset:     lastResetTime(now().UTC(), resetHour),
	}
}

func lastResetTime(now time.Time, resetHour int) time.Time {
	today := time.Date(now.Year(), now.Month(), now.Day(), resetHour, 0, 0, 0, time.UTC)
	if now.Hour() >= resetHour {
		return today
	}
	return today.AddDate(0, 0, -1)
}

// rollover must be called with mu held.
func (t *Tracker) rollover() {
	now := t.now().UTC()
	if !now.Before(t.lastReset.Add(24 * time.Hour)) {
		t.used = 0
		t.warned = false
		t.lastReset = lastResetTime(now, t.resetHour)
	}
}

// Consume takes one call from the allowance. Crossing the warning
// threshold is logged once per window.
func (t *Tracker) Consume() error {
	if t == nil || t.limit <= 0 {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rollover()

	if t.used >= t.limit {
		return &ExhaustedError{Name: t.name, Used: t.used, Limit: t.limit, ETA: t.lastReset.Add(24 * time.Hour)}
	}
	t.used++

	if !t.warned && float64(t.used)/float64(t.limit) >= t.warnThreshold {
		t.warned = true
		log.Warn().
			Str("budget", t.name).
			Int64("used", t.used).
			Int64("limit", t.limit).
			Msg("Daily budget nearly spent")
	}
	return nil
}

type Stats struct {
	Name      string    `json:"name"`
	Limit     int64     `json:"limit"`
	Used      int64     `json:"used"`
	Remaining int64     `json:"remaining"`
	NextReset time.Time `json:"next_reset"`
}

func (t *Tracker) Stats() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rollover()

	remaining := t.limit - t.used
	if t.limit <= 0 {
		remaining = -1
	}
	return Stats{
		Name:      t.name,
		Limit:     t.limit,
		Used:      t.used,
		Remaining: remaining,
		NextReset: t.lastReset.Add(24 * time.Hour),
	}
}
