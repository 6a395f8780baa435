package db

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS user_presets (
		id          BIGSERIAL PRIMARY KEY,
		name        VARCHAR(100) NOT NULL,
		description VARCHAR(500),
		config      JSONB NOT NULL,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at  TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS idx_user_presets_updated ON user_presets (updated_at DESC NULLS FIRST, created_at DESC)`,
}

// Migrate creates missing tables. Statements are idempotent and run in
// one transaction.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("migrate: begin: %w", err)
	}
	for i, stmt := range schema {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			tx.Rollback()
			return fmt.Errorf("migrate: statement %d: %w", i+1, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("migrate: commit: %w", err)
	}
	log.Debug().Int("statements", len(schema)).Msg("Schema migrated")
	return nil
}
