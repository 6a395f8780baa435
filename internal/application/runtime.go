package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/sawpanic/growthcast/internal/calibration"
	"github.com/sawpanic/growthcast/internal/events"
	"github.com/sawpanic/growthcast/internal/forecast"
	"github.com/sawpanic/growthcast/internal/history"
	"github.com/sawpanic/growthcast/internal/infrastructure/breakers"
	"github.com/sawpanic/growthcast/internal/infrastructure/cache"
	"github.com/sawpanic/growthcast/internal/infrastructure/db"
	"github.com/sawpanic/growthcast/internal/insights"
	"github.com/sawpanic/growthcast/internal/llm"
	"github.com/sawpanic/growthcast/internal/net/budget"
	"github.com/sawpanic/growthcast/internal/net/ratelimit"
)

// Runtime is a fully wired Planner and the resources it holds open.
type Runtime struct {
	Config      *AppConfig
	Planner     *Planner
	Database    *db.Manager
	Events      *events.Publisher
	Cache       cache.Cache
	History     *history.Store
	Calibration *calibration.Calibration
	LLMEnabled  bool
}

// NewRuntime builds every collaborator named by cfg. Optional backends
// that are not configured degrade to their local or no-op forms; a
// configured backend that fails to start is an error.
func NewRuntime(ctx context.Context, cfg *AppConfig, observer Observer) (*Runtime, error) {
	calib, err := calibration.Load(cfg.Calibration)
	if err != nil {
		return nil, err
	}

	manager, err := db.NewManager(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}

	publisher, err := events.NewPublisher(cfg.Events)
	if err != nil {
		manager.Close()
		return nil, fmt.Errorf("events: %w", err)
	}

	rt := &Runtime{
		Config:      cfg,
		Database:    manager,
		Events:      publisher,
		Cache:       cache.New(ctx, cfg.Cache),
		History:     history.NewStore(cfg.Data.Dir, cfg.Data.Files()),
		Calibration: calib,
	}

	deps := Deps{
		Benchmarks:  forecast.DefaultBenchmarks(),
		Calibration: calib,
		History:     rt.History,
		Cache:       rt.Cache,
		CacheTTL:    cfg.Cache.TTL,
		Events:      publisher,
		Observer:    observer,
	}
	if manager.IsEnabled() {
		deps.Presets = manager.Repository().Presets
	}

	completer, err := newCompleter(cfg.LLM)
	switch {
	case errors.Is(err, llm.ErrDisabled):
		log.Info().Msg("LLM not configured, insights use rule-based text")
	case err != nil:
		rt.Close()
		return nil, fmt.Errorf("llm: %w", err)
	default:
		rt.LLMEnabled = true
		deps.Narrator = insights.NewNarrator(insights.NewLLMGenerator(completer))
		deps.Analyst = insights.NewAnalyst(completer)
	}

	rt.Planner = NewPlanner(deps)
	log.Info().
		Str("data_dir", cfg.Data.Dir).
		Str("cache", rt.Cache.Name()).
		Bool("database", manager.IsEnabled()).
		Bool("events", publisher.Enabled()).
		Bool("llm", rt.LLMEnabled).
		Str("calibration", calib.Fingerprint).
		Msg("Runtime ready")
	return rt, nil
}

// newCompleter guards the configured model behind a breaker, a per-host
// rate limit and the daily call budget.
func newCompleter(cfg llm.Config) (llm.Completer, error) {
	client, err := llm.New(cfg)
	if err != nil {
		return nil, err
	}
	breaker := breakers.New("llm", breakers.DefaultSettings())
	limiter := ratelimit.NewLimiter(cfg.RPS, cfg.Burst)
	guarded := llm.Guard(client, breaker, limiter, llm.HostKey(cfg.APIURL))
	if cfg.DailyBudget > 0 {
		guarded.WithBudget(budget.NewTracker("llm", cfg.DailyBudget, 0, 0.8))
	}
	return guarded, nil
}

// Close flushes events and releases connections.
func (r *Runtime) Close() error {
	var errs []error
	if err := r.Events.Close(); err != nil {
		errs = append(errs, fmt.Errorf("events: %w", err))
	}
	if closer, ok := r.Cache.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("cache: %w", err))
		}
	}
	if err := r.Database.Close(); err != nil {
		errs = append(errs, fmt.Errorf("database: %w", err))
	}
	return errors.Join(errs...)
}
