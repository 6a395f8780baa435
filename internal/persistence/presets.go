package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrPresetNotFound is returned when no preset has the requested id.
var ErrPresetNotFound = errors.New("preset not found")

// Column limits of user_presets.
const (
	MaxPresetName        = 100
	MaxPresetDescription = 500
)

// UserPreset is a saved dashboard configuration. Config is stored as
// an opaque JSON object.
type UserPreset struct {
	ID          int64           `json:"id" db:"id"`
	Name        string          `json:"name" db:"name"`
	Description *string         `json:"description" db:"description"`
	Config      json.RawMessage `json:"config" db:"config"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt   *time.Time      `json:"updated_at" db:"updated_at"`
}

// PresetPatch carries the fields of a partial update; nil fields are
// left unchanged.
type PresetPatch struct {
	Name        *string         `json:"name,omitempty"`
	Description *string         `json:"description,omitempty"`
	Config      json.RawMessage `json:"config,omitempty"`
}

func (p UserPreset) Validate() error {
	if err := validateName(p.Name); err != nil {
		return err
	}
	if p.Description != nil && len(*p.Description) > MaxPresetDescription {
		return fmt.Errorf("description exceeds %d characters", MaxPresetDescription)
	}
	return validateConfig(p.Config)
}

func (p PresetPatch) Validate() error {
	if p.Name != nil {
		if err := validateName(*p.Name); err != nil {
			return err
		}
	}
	if p.Description != nil && len(*p.Description) > MaxPresetDescription {
		return fmt.Errorf("description exceeds %d characters", MaxPresetDescription)
	}
	if p.Config != nil {
		return validateConfig(p.Config)
	}
	return nil
}

func (p PresetPatch) IsEmpty() bool {
	return p.Name == nil && p.Description == nil && p.Config == nil
}

func validateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return errors.New("name is required")
	}
	if len(name) > MaxPresetName {
		return fmt.Errorf("name exceeds %d characters", MaxPresetName)
	}
	return nil
}

func validateConfig(raw json.RawMessage) error {
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil || obj == nil {
		return errors.New("config must be a JSON object")
	}
	return nil
}

// PresetRepo stores user presets.
type PresetRepo interface {
	// List returns presets most recently updated first; never-updated
	// presets lead, newest first.
	List(ctx context.Context) ([]UserPreset, error)
	Get(ctx context.Context, id int64) (*UserPreset, error)
	Create(ctx context.Context, p UserPreset) (*UserPreset, error)
	Update(ctx context.Context, id int64, patch PresetPatch) (*UserPreset, error)
	Delete(ctx context.Context, id int64) error
}

// Repository groups the repositories backed by one database.
type Repository struct {
	Presets PresetRepo
}

type HealthCheck struct {
	Healthy        bool           `json:"healthy"`
	Status         string         `json:"status"`
	Errors         []string       `json:"errors,omitempty"`
	ConnectionPool map[string]int `json:"connection_pool"`
	LastCheck      time.Time      `json:"last_check"`
	ResponseTimeMS int64          `json:"response_time_ms"`
}

type RepositoryHealth interface {
	Health(ctx context.Context) HealthCheck
	Ping(ctx context.Context) error
}
