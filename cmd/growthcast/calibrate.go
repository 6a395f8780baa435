package main

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/sawpanic/growthcast/internal/calibration"
	"github.com/sawpanic/growthcast/internal/forecast"
	"github.com/sawpanic/growthcast/internal/interfaces/output"
)

func newCalibrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "calibrate",
		Short: "Derive benchmark overrides from a calibration workbook",
		Long: `Read an .xlsx calibration workbook, derive benchmark overrides and optionally
write them as a calibration YAML file for the calibration.file setting.

Examples:
  growthcast calibrate --workbook growth.xlsx
  growthcast calibrate --workbook growth.xlsx --out config/calibration.yaml`,
		RunE: runCalibrate,
	}

	cmd.Flags().String("workbook", "", "Calibration workbook (.xlsx, required)")
	cmd.Flags().String("out", "", "Write the derived overrides to this YAML file")
	cmd.Flags().String("brand", "", "Competitor benchmark brand (default Care Bears)")
	cmd.Flags().Bool("json", false, "Print the report as JSON")
	_ = cmd.MarkFlagRequired("workbook")
	return cmd
}

type calibrateReport struct {
	Workbook    string                      `json:"workbook"`
	Report      calibration.Report          `json:"report"`
	Overrides   *forecast.Overrides         `json:"overrides"`
	Fingerprint string                      `json:"fingerprint"`
	Followers   calibration.FollowerHistory `json:"followers"`
}

func runCalibrate(cmd *cobra.Command, args []string) error {
	path, _ := cmd.Flags().GetString("workbook")
	outPath, _ := cmd.Flags().GetString("out")
	brand, _ := cmd.Flags().GetString("brand")

	wb, err := calibration.ReadWorkbook(path)
	if err != nil {
		return err
	}
	opts := calibration.DefaultWorkbookOptions()
	if brand != "" {
		opts.BenchmarkBrand = brand
	}
	overrides, rep := calibration.FromWorkbook(wb, opts)

	if outPath != "" {
		if err := calibration.WriteFile(outPath, overrides); err != nil {
			return err
		}
		log.Info().Str("path", outPath).Msg("Calibration overrides written")
	}

	result := calibrateReport{
		Workbook:    path,
		Report:      rep,
		Overrides:   overrides,
		Fingerprint: calibration.Fingerprint(overrides),
		Followers:   calibration.FollowerHistoryFromWorkbook(wb),
	}
	if wantJSON(cmd) {
		return output.NewEmitter().EmitJSON(cmd.OutOrStdout(), "", result)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Workbook %s (fingerprint %s)\n", path, result.Fingerprint)
	for _, p := range forecast.Platforms {
		if v, ok := rep.BaseRates[p]; ok {
			fmt.Fprintf(w, "  base monthly rate  %-10s %.4f\n", p, v)
		}
	}
	for _, p := range forecast.Platforms {
		if v, ok := rep.ProjectedGrowth[p]; ok {
			fmt.Fprintf(w, "  projected growth   %-10s %.4f\n", p, v)
		}
	}
	if rep.FollowersPerView > 0 {
		fmt.Fprintf(w, "  followers per view %.5f\n", rep.FollowersPerView)
	}
	for _, p := range forecast.Platforms {
		if v, ok := rep.ViewsPerPost[p]; ok {
			fmt.Fprintf(w, "  views per post     %-10s %.0f\n", p, v)
		}
	}
	fmt.Fprintf(w, "  paid CPF samples %d, creator CPF samples %d\n", len(rep.PaidCPFSamples), len(rep.CreatorCPFSamples))
	fmt.Fprintf(w, "  follower history: %d months (%s)\n", len(result.Followers.Points), result.Followers.Source)
	return nil
}
