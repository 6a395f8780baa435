package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/sawpanic/growthcast/internal/persistence"
)

const presetColumns = `id, name, description, config, created_at, updated_at`

type presetRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

func NewPresetRepo(db *sqlx.DB, timeout time.Duration) persistence.PresetRepo {
	return &presetRepo{db: db, timeout: timeout}
}

func (r *presetRepo) List(ctx context.Context) ([]persistence.UserPreset, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT ` + presetColumns + `
		FROM user_presets
		ORDER BY updated_at DESC NULLS FIRST, created_at DESC`

	var presets []persistence.UserPreset
	if err := r.db.SelectContext(ctx, &presets, query); err != nil {
		return nil, fmt.Errorf("failed to list presets: %w", err)
	}
	if presets == nil {
		presets = []persistence.UserPreset{}
	}
	return presets, nil
}

func (r *presetRepo) Get(ctx context.Context, id int64) (*persistence.UserPreset, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `SELECT ` + presetColumns + ` FROM user_presets WHERE id = $1`

	var p persistence.UserPreset
	if err := r.db.GetContext(ctx, &p, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrPresetNotFound
		}
		return nil, fmt.Errorf("failed to get preset %d: %w", id, err)
	}
	return &p, nil
}

func (r *presetRepo) Create(ctx context.Context, p persistence.UserPreset) (*persistence.UserPreset, error) {
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid preset: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		INSERT INTO user_presets (name, description, config)
		VALUES ($1, $2, $3)
		RETURNING ` + presetColumns

	var out persistence.UserPreset
	if err := r.db.QueryRowxContext(ctx, query, p.Name, p.Description, []byte(p.Config)).StructScan(&out); err != nil {
		return nil, fmt.Errorf("failed to create preset: %w", err)
	}
	return &out, nil
}

// Update applies the non-nil patch fields and stamps updated_at.
func (r *presetRepo) Update(ctx context.Context, id int64, patch persistence.PresetPatch) (*persistence.UserPreset, error) {
	if err := patch.Validate(); err != nil {
		return nil, fmt.Errorf("invalid preset: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var config any
	if patch.Config != nil {
		config = []byte(patch.Config)
	}
	query := `
		UPDATE user_presets SET
			name = COALESCE($2, name),
			description = COALESCE($3, description),
			config = COALESCE($4, config),
			updated_at = NOW()
		WHERE id = $1
		RETURNING ` + presetColumns

	var out persistence.UserPreset
	err := r.db.QueryRowxContext(ctx, query, id, patch.Name, patch.Description, config).StructScan(&out)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrPresetNotFound
		}
		return nil, fmt.Errorf("failed to update preset %d: %w", id, err)
	}
	return &out, nil
}

func (r *presetRepo) Delete(ctx context.Context, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `DELETE FROM user_presets WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete preset %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete preset %d: %w", id, err)
	}
	if n == 0 {
		return persistence.ErrPresetNotFound
	}
	return nil
}
