package history

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"
)

// TimeColumn is the canonical timestamp column every dataset carries.
const TimeColumn = "Time"

// timeLayouts are tried in order. Ambiguous numeric dates are read day
// first.
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"02/01/2006 15:04:05",
	"02/01/2006 15:04",
	"02/01/2006",
	"2/1/2006 15:04",
	"2/1/2006",
	"02.01.2006 15:04",
	"02.01.2006",
	"02-01-2006",
	"02 Jan 2006",
	"Jan 2, 2006",
}

// ParseTime parses a dataset timestamp, trimming quotes and space.
func ParseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(strings.Trim(strings.TrimSpace(s), `"`))
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// table is a parsed CSV: a cleaned header and rows sorted by time.
type table struct {
	columns []string
	index   map[string]int
	times   []time.Time
	rows    [][]string
}

func (t *table) has(col string) bool {
	_, ok := t.index[col]
	return ok
}

// number reads a numeric cell; blanks and garbage count as 0.
func (t *table) number(row int, col string) float64 {
	i, ok := t.index[col]
	if !ok || i >= len(t.rows[row]) {
		return 0
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(strings.ReplaceAll(t.rows[row][i], ",", "")), 64)
	if err != nil {
		return 0
	}
	return v
}

func cleanHeader(s string) string {
	s = strings.TrimPrefix(s, "\ufeff")
	s = strings.TrimSpace(s)
	s = strings.Trim(s, `"`)
	return strings.TrimSpace(s)
}

// readTable parses r and requires every column in required. Rows whose
// timestamp does not parse are dropped; duplicate columns keep the first.
func readTable(r io.Reader, required ...string) (*table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("empty file")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	t := &table{index: make(map[string]int, len(header))}
	for i, h := range header {
		name := cleanHeader(h)
		t.columns = append(t.columns, name)
		if _, dup := t.index[name]; !dup && name != "" {
			t.index[name] = i
		}
	}
	for _, col := range append([]string{TimeColumn}, required...) {
		if !t.has(col) {
			return nil, fmt.Errorf("missing required column %q", col)
		}
	}

	timeIdx := t.index[TimeColumn]
	type timedRow struct {
		at  time.Time
		row []string
	}
	var rows []timedRow
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row: %w", err)
		}
		if timeIdx >= len(rec) {
			continue
		}
		at, ok := ParseTime(rec[timeIdx])
		if !ok {
			continue
		}
		rows = append(rows, timedRow{at: at, row: rec})
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].at.Before(rows[j].at) })

	t.times = make([]time.Time, len(rows))
	t.rows = make([][]string, len(rows))
	for i, r := range rows {
		t.times[i] = r.at
		t.rows[i] = r.row
	}
	return t, nil
}

func readTableFile(path string, required ...string) (*table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	t, err := readTable(f, required...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}
