package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/sawpanic/growthcast/internal/application"
	"github.com/sawpanic/growthcast/internal/audience"
	"github.com/sawpanic/growthcast/internal/forecast"
	"github.com/sawpanic/growthcast/internal/persistence"
)

const maxBodyBytes = 1 << 20

// Handlers manages all HTTP endpoint handlers
type Handlers struct {
	planner   *application.Planner
	database  persistence.RepositoryHealth
	version   string
	startTime time.Time
}

func NewHandlers(planner *application.Planner, database persistence.RepositoryHealth, version string) *Handlers {
	if version == "" {
		version = "dev"
	}
	return &Handlers{planner: planner, database: database, version: version, startTime: time.Now()}
}

// writeJSON writes JSON response with proper error handling
func (h *Handlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

// writeError writes standardized error response
func (h *Handlers) writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	h.writeJSON(w, status, ErrorResponse{
		Error:     http.StatusText(status),
		Message:   message,
		Code:      code,
		RequestID: requestID(r),
		Timestamp: time.Now().UTC(),
	})
}

// writeFailure maps a service error onto a status and code.
func (h *Handlers) writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case forecast.IsConfigurationError(err):
		h.writeError(w, r, http.StatusBadRequest, "invalid_configuration", err.Error())
	case forecast.IsDataUnavailable(err):
		h.writeError(w, r, http.StatusServiceUnavailable, "data_unavailable", err.Error())
	case errors.Is(err, application.ErrPersistenceDisabled):
		h.writeError(w, r, http.StatusServiceUnavailable, "persistence_disabled", err.Error())
	case errors.Is(err, persistence.ErrPresetNotFound):
		h.writeError(w, r, http.StatusNotFound, "preset_not_found", err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		h.writeError(w, r, http.StatusGatewayTimeout, "timeout", "request timed out")
	default:
		log.Error().Err(err).Str("request_id", requestID(r)).Str("path", r.URL.Path).Msg("Request failed")
		h.writeError(w, r, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func (h *Handlers) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.writeError(w, r, http.StatusBadRequest, "invalid_json", fmt.Sprintf("request body: %v", err))
		return false
	}
	return true
}

// NotFound handles 404 responses
func (h *Handlers) NotFound(w http.ResponseWriter, r *http.Request) {
	h.writeError(w, r, http.StatusNotFound, "endpoint_not_found",
		"The requested endpoint does not exist")
}

func (h *Handlers) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	h.writeError(w, r, http.StatusMethodNotAllowed, "method_not_allowed",
		fmt.Sprintf("%s is not supported on %s", r.Method, r.URL.Path))
}

// Health reports service status. It answers 200 while the process can
// serve forecasts; failed dependencies degrade the status.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
		Version:   h.version,
		Checks:    make(map[string]CheckResult),
	}

	start := time.Now()
	if _, err := h.planner.Historical(); err != nil {
		resp.Checks["history"] = CheckResult{Status: "warn", Message: err.Error(), Duration: time.Since(start).String()}
	} else {
		resp.Checks["history"] = CheckResult{Status: "pass", Message: "data files loaded", Duration: time.Since(start).String()}
	}

	if h.database != nil {
		start = time.Now()
		hc := h.database.Health(r.Context())
		check := CheckResult{Status: "pass", Message: hc.Status, Duration: time.Since(start).String()}
		if !hc.Healthy {
			check.Status = "fail"
			if len(hc.Errors) > 0 {
				check.Message = hc.Errors[0]
			}
			resp.Status = "degraded"
		}
		resp.Checks["database"] = check
	}

	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handlers) Historical(w http.ResponseWriter, r *http.Request) {
	resp, err := h.planner.Historical()
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handlers) Forecast(w http.ResponseWriter, r *http.Request) {
	var req application.ForecastRequest
	if !h.decode(w, r, &req) {
		return
	}
	resp, err := h.planner.Forecast(r.Context(), req)
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handlers) Insights(w http.ResponseWriter, r *http.Request) {
	var req application.ForecastRequest
	if !h.decode(w, r, &req) {
		return
	}
	resp, err := h.planner.Insights(r.Context(), req)
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// AIInsights critiques the strategy and projects alternative scenarios.
func (h *Handlers) AIInsights(w http.ResponseWriter, r *http.Request) {
	var req application.ForecastRequest
	if !h.decode(w, r, &req) {
		return
	}
	resp, err := h.planner.Analyze(r.Context(), req)
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handlers) Benchmarks(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.planner.Benchmarks())
}

func (h *Handlers) ListPresets(w http.ResponseWriter, r *http.Request) {
	repo, err := h.planner.UserPresets()
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	presets, err := repo.List(r.Context())
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, presets)
}

func (h *Handlers) GetPreset(w http.ResponseWriter, r *http.Request) {
	repo, err := h.planner.UserPresets()
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	id, ok := h.presetID(w, r)
	if !ok {
		return
	}
	preset, err := repo.Get(r.Context(), id)
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, preset)
}

func (h *Handlers) CreatePreset(w http.ResponseWriter, r *http.Request) {
	repo, err := h.planner.UserPresets()
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	var body persistence.PresetPatch
	if !h.decode(w, r, &body) {
		return
	}
	preset := persistence.UserPreset{Description: body.Description, Config: body.Config}
	if body.Name != nil {
		preset.Name = *body.Name
	}
	if err := preset.Validate(); err != nil {
		h.writeError(w, r, http.StatusBadRequest, "invalid_preset", err.Error())
		return
	}
	created, err := repo.Create(r.Context(), preset)
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, created)
}

func (h *Handlers) UpdatePreset(w http.ResponseWriter, r *http.Request) {
	repo, err := h.planner.UserPresets()
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	id, ok := h.presetID(w, r)
	if !ok {
		return
	}
	var patch persistence.PresetPatch
	if !h.decode(w, r, &patch) {
		return
	}
	if patch.IsEmpty() {
		h.writeError(w, r, http.StatusBadRequest, "invalid_preset", "no fields to update")
		return
	}
	if err := patch.Validate(); err != nil {
		h.writeError(w, r, http.StatusBadRequest, "invalid_preset", err.Error())
		return
	}
	updated, err := repo.Update(r.Context(), id, patch)
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, updated)
}

func (h *Handlers) DeletePreset(w http.ResponseWriter, r *http.Request) {
	repo, err := h.planner.UserPresets()
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	id, ok := h.presetID(w, r)
	if !ok {
		return
	}
	if err := repo.Delete(r.Context(), id); err != nil {
		h.writeFailure(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) presetID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		h.writeError(w, r, http.StatusBadRequest, "invalid_id", "preset id must be a positive integer")
		return 0, false
	}
	return id, true
}

func (h *Handlers) ResearchPresets(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, ResearchPresetsResponse{
		Presets:    audience.Presets(),
		Default:    audience.DefaultPresetID,
		DataSource: audience.SurveySource,
	})
}

func (h *Handlers) Recommend(w http.ResponseWriter, r *http.Request) {
	var req RecommendRequest
	if !h.decode(w, r, &req) {
		return
	}
	rec, err := audience.Recommend(req.AudienceMix)
	if err != nil {
		h.writeError(w, r, http.StatusBadRequest, "invalid_audience_mix", err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, rec)
}

func (h *Handlers) PlatformResearch(w http.ResponseWriter, r *http.Request) {
	platform := mux.Vars(r)["platform"]
	insight, ok := audience.InsightForPlatform(platform)
	if !ok {
		h.writeError(w, r, http.StatusNotFound, "platform_not_found",
			fmt.Sprintf("no research data for platform %q", platform))
		return
	}
	h.writeJSON(w, http.StatusOK, insight)
}
