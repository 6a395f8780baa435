package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/sawpanic/growthcast/internal/application"
	httpapi "github.com/sawpanic/growthcast/internal/interfaces/http"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long:  "Starts the HTTP server with the forecast, insights, research and preset endpoints plus /health, /metrics and /ws/forecast",
		RunE:  runServe,
	}

	cmd.Flags().String("host", "", "HTTP server host (overrides config)")
	cmd.Flags().Int("port", 0, "HTTP server port (overrides config)")
	cmd.Flags().Duration("shutdown-timeout", 15*time.Second, "Grace period for in-flight requests")
	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if host, _ := cmd.Flags().GetString("host"); host != "" {
		cfg.Server.Host = host
	}
	if port, _ := cmd.Flags().GetInt("port"); port != 0 {
		cfg.Server.Port = port
	}
	grace, _ := cmd.Flags().GetDuration("shutdown-timeout")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics := httpapi.NewMetrics()
	rt, err := application.NewRuntime(ctx, cfg, metrics)
	if err != nil {
		return err
	}
	defer func() {
		if err := rt.Close(); err != nil {
			log.Warn().Err(err).Msg("Runtime close failed")
		}
	}()

	server := httpapi.NewServer(cfg.Server, httpapi.Options{
		Planner:  rt.Planner,
		Metrics:  metrics,
		Database: rt.Database.Health(),
		Version:  version,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()
	log.Info().Str("addr", server.Address()).Str("version", version).Msg("growthcast serving")

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-errCh
}
