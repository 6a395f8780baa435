package http

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/sawpanic/growthcast/internal/application"
	"github.com/sawpanic/growthcast/internal/persistence"
)

type ctxKey string

const requestIDKey ctxKey = "request_id"

// Server is the growthcast HTTP API.
type Server struct {
	router   *mux.Router
	handler  http.Handler
	server   *http.Server
	handlers *Handlers
	metrics  *Metrics
	config   application.ServerConfig
}

// Options carries the collaborators of a Server. Only Planner is
// required.
type Options struct {
	Planner  *application.Planner
	Metrics  *Metrics
	Database persistence.RepositoryHealth
	Version  string
}

// NewServer creates a new HTTP server instance
func NewServer(config application.ServerConfig, opts Options) *Server {
	if opts.Metrics == nil {
		opts.Metrics = NewMetrics()
	}
	if config.RequestTimeout <= 0 {
		config.RequestTimeout = 10 * time.Second
	}

	s := &Server{
		router:   mux.NewRouter(),
		handlers: NewHandlers(opts.Planner, opts.Database, opts.Version),
		metrics:  opts.Metrics,
		config:   config,
	}
	s.setupRoutes()
	// CORS wraps the router so preflight requests reach it before
	// method matching.
	s.handler = s.corsMiddleware(s.router)

	s.server = &http.Server{
		Addr:         s.Address(),
		Handler:      s.handler,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}
	return s
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	s.router.Use(s.requestIDMiddleware)
	s.router.Use(s.requestLoggingMiddleware)

	s.router.HandleFunc("/health", s.handlers.Health).Methods(http.MethodGet)
	s.router.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)

	// The websocket route sits outside the timeout middleware; a
	// connection lives for many requests.
	live := newLiveForecast(s.handlers.planner, s.metrics, s.config.RequestTimeout, s.originAllowed)
	s.router.Handle("/ws/forecast", live).Methods(http.MethodGet)

	api := s.router.PathPrefix("/api").Subrouter()
	api.Use(s.timeoutMiddleware)
	api.Use(s.jsonContentTypeMiddleware)

	api.HandleFunc("/historical", s.handlers.Historical).Methods(http.MethodGet)
	api.HandleFunc("/forecast", s.handlers.Forecast).Methods(http.MethodPost)
	api.HandleFunc("/insights", s.handlers.Insights).Methods(http.MethodPost)
	api.HandleFunc("/ai-insights", s.handlers.AIInsights).Methods(http.MethodPost)
	api.HandleFunc("/benchmarks", s.handlers.Benchmarks).Methods(http.MethodGet)

	api.HandleFunc("/user-presets", s.handlers.ListPresets).Methods(http.MethodGet)
	api.HandleFunc("/user-presets", s.handlers.CreatePreset).Methods(http.MethodPost)
	api.HandleFunc("/user-presets/{id:[0-9]+}", s.handlers.GetPreset).Methods(http.MethodGet)
	api.HandleFunc("/user-presets/{id:[0-9]+}", s.handlers.UpdatePreset).Methods(http.MethodPut)
	api.HandleFunc("/user-presets/{id:[0-9]+}", s.handlers.DeletePreset).Methods(http.MethodDelete)

	api.HandleFunc("/research/presets", s.handlers.ResearchPresets).Methods(http.MethodGet)
	api.HandleFunc("/research/allocation/recommend", s.handlers.Recommend).Methods(http.MethodPost)
	api.HandleFunc("/research/platforms/{platform}", s.handlers.PlatformResearch).Methods(http.MethodGet)

	// A method mismatch inside a subrouter never reaches the root's
	// handlers, so the api subrouter carries its own.
	for _, r := range []*mux.Router{s.router, api} {
		r.NotFoundHandler = http.HandlerFunc(s.handlers.NotFound)
		r.MethodNotAllowedHandler = http.HandlerFunc(s.handlers.MethodNotAllowed)
	}
}

// requestIDMiddleware adds unique request ID to each request
func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.New().String()[:8]
		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		w.Header().Set("X-Request-ID", requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requestLoggingMiddleware logs one line per request and feeds the
// request metrics.
func (s *Server) requestLoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapper := &responseWrapper{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapper, r)
		duration := time.Since(start)

		route := "unmatched"
		if cr := mux.CurrentRoute(r); cr != nil {
			if tpl, err := cr.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		s.metrics.observeRequest(route, r.Method, wrapper.statusCode, duration)

		log.Info().
			Str("request_id", requestID(r)).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", wrapper.statusCode).
			Dur("duration", duration).
			Str("remote", r.RemoteAddr).
			Msg("REQ")
	})
}

// timeoutMiddleware enforces request timeouts
func (s *Server) timeoutMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), s.config.RequestTimeout)
		defer cancel()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// corsMiddleware answers preflight requests for the configured origins.
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := r.Header.Get("Origin"); origin != "" && s.originAllowed(origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Vary", "Origin")
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) originAllowed(origin string) bool {
	for _, o := range s.config.AllowedOrigins {
		if o == "*" || o == origin {
			return true
		}
	}
	return false
}

// jsonContentTypeMiddleware sets JSON content type for API responses
func (s *Server) jsonContentTypeMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

// Handler exposes the full handler chain, mainly for tests.
func (s *Server) Handler() http.Handler { return s.handler }

// Start listens on the configured address and serves until Shutdown.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("port %d is busy or unavailable: %w", s.config.Port, err)
	}
	log.Info().Str("addr", s.server.Addr).Msg("Starting HTTP server")

	if err := s.server.Serve(listener); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

func (s *Server) Address() string {
	return fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
}

func requestID(r *http.Request) string {
	if id, ok := r.Context().Value(requestIDKey).(string); ok {
		return id
	}
	return "unknown"
}

// responseWrapper captures HTTP status codes for logging
type responseWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWrapper) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Hijack lets the websocket upgrader take over the connection.
func (rw *responseWrapper) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	return h.Hijack()
}
