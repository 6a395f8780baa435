package http

import (
	"time"

	"github.com/sawpanic/growthcast/internal/audience"
)

// ErrorResponse is the body of every non-2xx answer.
type ErrorResponse struct {
	Error     string    `json:"error"`
	Message   string    `json:"message"`
	Code      string    `json:"code"`
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string                 `json:"status"` // "healthy", "degraded"
	Timestamp time.Time              `json:"timestamp"`
	Uptime    string                 `json:"uptime"`
	Version   string                 `json:"version"`
	Checks    map[string]CheckResult `json:"checks"`
}

// CheckResult represents individual health check results
type CheckResult struct {
	Status   string `json:"status"` // "pass", "warn", "fail"
	Message  string `json:"message"`
	Duration string `json:"duration"`
}

// RecommendRequest carries an audience mix as segment weights.
type RecommendRequest struct {
	AudienceMix audience.Mix `json:"audience_mix"`
}

type ResearchPresetsResponse struct {
	Presets    []audience.Preset `json:"presets"`
	Default    string            `json:"default"`
	DataSource string            `json:"data_source"`
}
