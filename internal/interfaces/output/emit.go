package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"

	"github.com/sawpanic/growthcast/internal/forecast"
	"github.com/sawpanic/growthcast/internal/insights"
)

// Emitter renders forecast results for the terminal and for files.
type Emitter struct {
	good *color.Color
	warn *color.Color
	dim  *color.Color
}

func NewEmitter() *Emitter {
	return &Emitter{
		good: color.New(color.FgGreen, color.Bold),
		warn: color.New(color.FgYellow),
		dim:  color.New(color.Faint),
	}
}

// EmitMonthsCSV writes the monthly trajectory, one column per platform.
func (e *Emitter) EmitMonthsCSV(filePath string, res *forecast.Result) error {
	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer file.Close()

	if err := e.WriteMonthsCSV(file, res); err != nil {
		return err
	}
	return file.Close()
}

func (e *Emitter) WriteMonthsCSV(w io.Writer, res *forecast.Result) error {
	writer := csv.NewWriter(w)

	header := []string{"Month"}
	for _, p := range res.Platforms {
		header = append(header, string(p))
	}
	header = append(header, "Total", "Added", "AddedOrganic", "AddedPaid")
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, m := range res.Months {
		record := []string{strconv.Itoa(m.Month)}
		for _, p := range res.Platforms {
			record = append(record, formatFloat(m.Followers[p]))
		}
		record = append(record, formatFloat(m.Total), formatFloat(m.Added), formatFloat(m.AddedOrganic), formatFloat(m.AddedPaid))
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// EmitJSON writes v as indented JSON to filePath, or to w when filePath
// is empty.
func (e *Emitter) EmitJSON(w io.Writer, filePath string, v interface{}) error {
	if filePath != "" {
		file, err := os.Create(filePath)
		if err != nil {
			return fmt.Errorf("failed to create JSON file: %w", err)
		}
		defer file.Close()
		w = file
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

// WriteTable prints the monthly trajectory, the goal line and any
// warnings.
func (e *Emitter) WriteTable(w io.Writer, res *forecast.Result, warnings []string) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)

	cols := []string{"Month"}
	for _, p := range res.Platforms {
		cols = append(cols, string(p))
	}
	cols = append(cols, "Total", "Added")
	fmt.Fprintln(tw, strings.Join(cols, "\t")+"\t")

	for _, m := range res.Months {
		row := []string{strconv.Itoa(m.Month)}
		for _, p := range res.Platforms {
			row = append(row, insights.Count(m.Followers[p]))
		}
		row = append(row, insights.Count(m.Total), "+"+insights.Count(m.Added))
		fmt.Fprintln(tw, strings.Join(row, "\t")+"\t")
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(w)
	line := fmt.Sprintf("Start %s -> projected %s (goal %s, %.1f%%)",
		insights.Count(res.StartTotal), insights.Count(res.ProjectedTotal), insights.Count(res.Goal), res.ProgressPct)
	if res.GoalReached() {
		e.good.Fprintf(w, "%s, goal reached in month %d\n", line, res.GoalMonth)
	} else {
		e.warn.Fprintf(w, "%s, goal not reached\n", line)
	}
	if res.EngagementFallback {
		e.dim.Fprintf(w, "engagement baseline %.2f (neutral fallback)\n", res.EngagementBaseline)
	} else {
		e.dim.Fprintf(w, "engagement baseline %.2f\n", res.EngagementBaseline)
	}

	for _, msg := range warnings {
		e.warn.Fprintf(w, "warning: %s\n", msg)
	}
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
