package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/sawpanic/growthcast/internal/application"
)

const (
	appName = "growthcast"
	version = "v1.4.0"
)

var (
	configPath string
	envFile    string
	logLevel   string
	logJSON    bool
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     appName,
		Short:   "Social follower growth forecasting",
		Version: version,
		Long: `growthcast projects follower growth for a brand across Instagram, TikTok,
YouTube and Facebook from a weekly publishing plan, paid media and budgets.

Run a single forecast from a plan file, serve the HTTP API, or calibrate the
benchmark tables from a workbook.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setupLogging(logLevel, logJSON)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", application.DefaultConfigPath, "Path to the YAML config file (optional)")
	flags.StringVar(&envFile, "env-file", ".env", "Path to an env file loaded before config resolution")
	flags.StringVar(&logLevel, "log-level", "info", "Log level (debug|info|warn|error)")
	flags.BoolVar(&logJSON, "log-json", false, "Emit JSON log lines instead of console output")

	rootCmd.AddCommand(newForecastCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newCalibrateCmd())
	rootCmd.AddCommand(newHistoryCmd())
	rootCmd.AddCommand(newAudienceCmd())
	return rootCmd
}

func setupLogging(level string, jsonLines bool) error {
	zerolog.TimeFieldFormat = time.RFC3339
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		return fmt.Errorf("invalid log level %q", level)
	}
	zerolog.SetGlobalLevel(lvl)
	if jsonLines {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	} else {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
	return nil
}

func loadConfig() (*application.AppConfig, error) {
	return application.LoadAppConfig(configPath, envFile)
}

// wantJSON reports whether output should be JSON: when asked for, or
// when stdout is not a terminal.
func wantJSON(cmd *cobra.Command) bool {
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		return true
	}
	return !term.IsTerminal(int(os.Stdout.Fd()))
}
