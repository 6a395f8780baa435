package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/sawpanic/growthcast/internal/forecast"
	"github.com/sawpanic/growthcast/internal/history"
	"github.com/sawpanic/growthcast/internal/interfaces/output"
)

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Load the historical data files and summarise them",
		RunE:  runHistory,
	}
	cmd.Flags().String("data-dir", "", "Data directory (overrides config)")
	cmd.Flags().Bool("json", false, "Print the full dataset as JSON")
	return cmd
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if dir, _ := cmd.Flags().GetString("data-dir"); dir != "" {
		cfg.Data.Dir = dir
	}

	store := history.NewStore(cfg.Data.Dir, cfg.Data.Files())
	ds, err := store.Get()
	if err != nil {
		return err
	}
	if wantJSON(cmd) {
		return output.NewEmitter().EmitJSON(cmd.OutOrStdout(), "", ds)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Data directory %s (version %s)\n", store.Dir(), store.Version())
	if n := len(ds.Mentions); n > 0 {
		fmt.Fprintf(w, "  mentions:  %d weeks, %s to %s\n", n,
			ds.Mentions[0].Time.Format("2006-01-02"), ds.Mentions[n-1].Time.Format("2006-01-02"))
	}
	fmt.Fprintf(w, "  sentiment: %d weeks\n", len(ds.Sentiment))
	fmt.Fprintf(w, "  tags:      %d weeks, %d tags\n", len(ds.Tags), len(ds.TagNames))

	baseline, fallback := forecast.EngagementBaseline(ds.Engagement)
	fmt.Fprintf(w, "  engagement baseline %.3f", baseline)
	if fallback {
		fmt.Fprint(w, " (neutral fallback)")
	}
	fmt.Fprintln(w)

	if len(ds.Tags) > 0 {
		last := ds.Tags[len(ds.Tags)-1]
		names := append([]string(nil), ds.TagNames...)
		sort.SliceStable(names, func(i, j int) bool { return last.Counts[names[i]] > last.Counts[names[j]] })
		if len(names) > 5 {
			names = names[:5]
		}
		fmt.Fprint(w, "  latest tags:")
		for _, n := range names {
			fmt.Fprintf(w, " %s=%.0f", n, last.Counts[n])
		}
		fmt.Fprintln(w)
	}
	return nil
}
