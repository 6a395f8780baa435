package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sawpanic/growthcast/internal/application"
	"github.com/sawpanic/growthcast/internal/interfaces/output"
)

func newForecastCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "forecast",
		Short: "Run one forecast from a plan file",
		Long: `Run one forecast from a YAML (or JSON) plan file and print the monthly
trajectory. Output is a table on a terminal and JSON otherwise.

Examples:
  growthcast forecast --plan plan.yaml
  growthcast forecast --plan plan.yaml --preset Ambitious --json
  growthcast forecast --plan plan.yaml --research-preset gifter_reach --csv months.csv`,
		RunE: runForecast,
	}

	cmd.Flags().String("plan", "", "Plan file (required)")
	cmd.Flags().String("preset", "", "Strategy preset (Conservative|Balanced|Ambitious)")
	cmd.Flags().String("research-preset", "", "Audience research preset id")
	cmd.Flags().Bool("json", false, "Print the full response as JSON")
	cmd.Flags().String("csv", "", "Also write the monthly trajectory to this CSV file")
	cmd.Flags().Duration("timeout", 30*time.Second, "Forecast timeout")
	_ = cmd.MarkFlagRequired("plan")
	return cmd
}

func runForecast(cmd *cobra.Command, args []string) error {
	planPath, _ := cmd.Flags().GetString("plan")
	preset, _ := cmd.Flags().GetString("preset")
	researchPreset, _ := cmd.Flags().GetString("research-preset")
	csvPath, _ := cmd.Flags().GetString("csv")
	timeout, _ := cmd.Flags().GetDuration("timeout")

	req, err := readPlan(planPath)
	if err != nil {
		return err
	}
	if preset != "" {
		req.Preset = preset
	}
	if researchPreset != "" {
		req.ResearchPreset = researchPreset
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	rt, err := application.NewRuntime(ctx, cfg, nil)
	if err != nil {
		return err
	}
	defer rt.Close()

	resp, err := rt.Planner.Forecast(ctx, req)
	if err != nil {
		return fmt.Errorf("forecast failed: %w", err)
	}
	log.Debug().Str("request_hash", resp.RequestHash).Bool("cached", resp.Cached).Msg("Forecast complete")

	emitter := output.NewEmitter()
	if csvPath != "" {
		if err := emitter.EmitMonthsCSV(csvPath, resp.Result); err != nil {
			return err
		}
		log.Info().Str("path", csvPath).Msg("Monthly trajectory written")
	}
	if wantJSON(cmd) {
		return emitter.EmitJSON(cmd.OutOrStdout(), "", resp)
	}
	return emitter.WriteTable(cmd.OutOrStdout(), resp.Result, resp.Warnings)
}

// readPlan decodes a plan file. YAML is a superset of JSON, so both
// formats load through the same decoder.
func readPlan(path string) (application.ForecastRequest, error) {
	var req application.ForecastRequest
	data, err := os.ReadFile(path)
	if err != nil {
		return req, fmt.Errorf("failed to read plan %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &req); err != nil {
		return req, fmt.Errorf("failed to parse plan %s: %w", path, err)
	}
	return req, nil
}
