package http

import (
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// Metrics holds the Prometheus collectors for the service. Each
// instance owns its registry so servers can be built side by side.
type Metrics struct {
	registry *prometheus.Registry

	ForecastDuration *prometheus.HistogramVec
	ForecastRuns     *prometheus.CounterVec
	CacheHitRatio    prometheus.Gauge
	HTTPRequests     *prometheus.CounterVec
	HTTPDuration     *prometheus.HistogramVec
	WSConnections    prometheus.Gauge

	hits   atomic.Int64
	misses atomic.Int64
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		ForecastDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "growthcast_forecast_duration_seconds",
				Help:    "Duration of forecast runs in seconds",
				Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
			},
			[]string{"cached"},
		),

		ForecastRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "growthcast_forecasts_total",
				Help: "Total number of forecasts served by result",
			},
			[]string{"result"},
		),

		CacheHitRatio: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "growthcast_cache_hit_ratio",
				Help: "Forecast cache hit ratio (0.0 to 1.0)",
			},
		),

		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "growthcast_http_requests_total",
				Help: "HTTP requests by route and status code",
			},
			[]string{"route", "method", "status"},
		),

		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "growthcast_http_request_duration_seconds",
				Help:    "HTTP request latency by route",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route"},
		),

		WSConnections: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "growthcast_ws_connections",
				Help: "Open live forecast websocket connections",
			},
		),
	}

	m.registry.MustRegister(
		m.ForecastDuration,
		m.ForecastRuns,
		m.CacheHitRatio,
		m.HTTPRequests,
		m.HTTPDuration,
		m.WSConnections,
		prometheus.NewGoCollector(),
	)
	return m
}

// ObserveForecast records one forecast run.
func (m *Metrics) ObserveForecast(d time.Duration, cached bool, err error) {
	result := "ok"
	switch {
	case err != nil:
		result = "error"
	case cached:
		result = "cached"
	}
	m.ForecastRuns.WithLabelValues(result).Inc()
	if err != nil {
		log.Debug().Err(err).Dur("duration", d).Msg("Forecast failed")
		return
	}

	m.ForecastDuration.WithLabelValues(strconv.FormatBool(cached)).Observe(d.Seconds())
	if cached {
		m.hits.Add(1)
	} else {
		m.misses.Add(1)
	}
	m.updateCacheHitRatio()
}

func (m *Metrics) observeRequest(route, method string, status int, d time.Duration) {
	m.HTTPRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(route).Observe(d.Seconds())
}

func (m *Metrics) updateCacheHitRatio() {
	hits, misses := m.hits.Load(), m.misses.Load()
	if total := hits + misses; total > 0 {
		m.CacheHitRatio.Set(float64(hits) / float64(total))
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
