package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sawpanic/growthcast/internal/audience"
	"github.com/sawpanic/growthcast/internal/forecast"
	"github.com/sawpanic/growthcast/internal/interfaces/output"
)

func newAudienceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audience",
		Short: "Recommend a platform allocation for an audience mix",
		Long: `Blend the audience research indices for a mix of parents, gifters and
collectors into a platform allocation, or look up one platform.

Examples:
  growthcast audience --parents .6 --gifters .25 --collectors .15
  growthcast audience --platform tiktok
  growthcast audience --presets`,
		RunE: runAudience,
	}

	cmd.Flags().Float64(string(audience.Parents), 0, "Weight of the parents segment")
	cmd.Flags().Float64(string(audience.Gifters), 0, "Weight of the gifters segment")
	cmd.Flags().Float64(string(audience.Collectors), 0, "Weight of the collectors segment")
	cmd.Flags().String("platform", "", "Show the research insight for one platform")
	cmd.Flags().Bool("presets", false, "List the research presets")
	cmd.Flags().Bool("json", false, "Print JSON")
	return cmd
}

func runAudience(cmd *cobra.Command, args []string) error {
	emitter := output.NewEmitter()
	w := cmd.OutOrStdout()

	if list, _ := cmd.Flags().GetBool("presets"); list {
		presets := audience.Presets()
		if wantJSON(cmd) {
			return emitter.EmitJSON(w, "", presets)
		}
		for _, p := range presets {
			fmt.Fprintf(w, "%-20s %-28s risk=%-6s posts/week=%.0f  %s\n",
				p.ID, p.Name, p.RiskLevel, p.PostsPerWeek, allocationLine(p.PlatformAllocation))
		}
		return nil
	}

	if platform, _ := cmd.Flags().GetString("platform"); platform != "" {
		insight, ok := audience.InsightForPlatform(platform)
		if !ok {
			return fmt.Errorf("no research data for platform %q", platform)
		}
		if wantJSON(cmd) {
			return emitter.EmitJSON(w, "", insight)
		}
		fmt.Fprintf(w, "%s: average index %.2f\n%s\n", insight.Platform, insight.AvgIndex, insight.Insight)
		return nil
	}

	mix := audience.Mix{}
	for _, s := range audience.Segments {
		if v, _ := cmd.Flags().GetFloat64(string(s)); v != 0 {
			mix[s] = v
		}
	}
	rec, err := audience.Recommend(mix)
	if err != nil {
		return err
	}
	if wantJSON(cmd) {
		return emitter.EmitJSON(w, "", rec)
	}
	fmt.Fprintf(w, "Recommended allocation: %s\n", allocationLine(rec.Allocation))
	fmt.Fprintf(w, "Confidence %.2f, %s\n", rec.Confidence, rec.DataSource)
	fmt.Fprintln(w, rec.Rationale)
	return nil
}

func allocationLine(alloc map[forecast.Platform]float64) string {
	parts := make([]string, 0, len(forecast.Platforms))
	for _, p := range forecast.Platforms {
		parts = append(parts, fmt.Sprintf("%s %.0f%%", p, alloc[p]))
	}
	return strings.Join(parts, ", ")
}
