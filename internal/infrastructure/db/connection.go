package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/rs/zerolog/log"

	"github.com/sawpanic/growthcast/internal/persistence"
	"github.com/sawpanic/growthcast/internal/persistence/postgres"
)

// Manager owns the database handle and the repositories built on it.
type Manager struct {
	db     *sqlx.DB
	config Config
	repos  *persistence.Repository
	health *healthChecker
}

// NewManager connects when enabled; a disabled manager has no
// repositories and reports itself healthy.
func NewManager(ctx context.Context, config Config) (*Manager, error) {
	if !config.Enabled {
		return &Manager{config: config, health: &healthChecker{}}, nil
	}
	if config.DSN == "" {
		return nil, fmt.Errorf("database DSN is required when enabled")
	}

	db, err := sqlx.Open("postgres", config.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)
	db.SetConnMaxLifetime(config.ConnMaxLifetime)
	db.SetConnMaxIdleTime(config.ConnMaxIdleTime)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	m := NewManagerWithDB(db, config)
	if config.AutoMigrate {
		if err := Migrate(ctx, db); err != nil {
			db.Close()
			return nil, err
		}
	}
	log.Info().Int("max_open", config.MaxOpenConns).Msg("Database connected")
	return m, nil
}

// NewManagerWithDB wraps an existing handle.
func NewManagerWithDB(db *sqlx.DB, config Config) *Manager {
	config.Enabled = true
	return &Manager{
		db:     db,
		config: config,
		repos:  &persistence.Repository{Presets: postgres.NewPresetRepo(db, config.QueryTimeout)},
		health: &healthChecker{enabled: true, db: db, timeout: config.QueryTimeout},
	}
}

// Repository returns nil when the database is disabled.
func (m *Manager) Repository() *persistence.Repository {
	return m.repos
}

func (m *Manager) Health() persistence.RepositoryHealth {
	return m.health
}

func (m *Manager) DB() *sqlx.DB {
	return m.db
}

func (m *Manager) IsEnabled() bool {
	return m.config.Enabled && m.db != nil
}

func (m *Manager) Close() error {
	if m.db == nil {
		return nil
	}
	return m.db.Close()
}

type healthChecker struct {
	enabled bool
	db      *sqlx.DB
	timeout time.Duration
}

func (h *healthChecker) Health(ctx context.Context) persistence.HealthCheck {
	if !h.enabled {
		return persistence.HealthCheck{
			Healthy:        true,
			Status:         "not_configured",
			Errors:         []string{"Database persistence disabled"},
			ConnectionPool: map[string]int{},
			LastCheck:      time.Now(),
		}
	}

	start := time.Now()
	check := persistence.HealthCheck{Healthy: true, Status: "connected"}
	if err := h.Ping(ctx); err != nil {
		check.Healthy = false
		check.Status = "error"
		check.Errors = append(check.Errors, fmt.Sprintf("ping failed: %v", err))
	}

	stats := h.db.Stats()
	check.ConnectionPool = map[string]int{
		"max_open": stats.MaxOpenConnections,
		"open":     stats.OpenConnections,
		"in_use":   stats.InUse,
		"idle":     stats.Idle,
	}
	check.LastCheck = time.Now()
	check.ResponseTimeMS = time.Since(start).Milliseconds()
	return check
}

func (h *healthChecker) Ping(ctx context.Context) error {
	if !h.enabled {
		return nil
	}
	pingCtx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()
	return h.db.PingContext(pingCtx)
}
