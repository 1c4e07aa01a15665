// Package server implements the producer side of the generation session
// protocol: an HTTP endpoint that authenticates a request, applies rate
// and quota limits, and streams the generator's progress and terminal
// outcome as SSE frames. One session per connection; the handler stops
// emitting the moment the consumer disconnects.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/scribehq/scribe"
	"github.com/scribehq/scribe/sse"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Config holds server wiring. Generator and Verifier are required.
type Config struct {
	Logger    zerolog.Logger
	Generator scribe.Generator
	Verifier  Verifier
	Version   string

	// RateLimit caps sessions per credential per RateWindow. Zero
	// disables rate limiting. RateWindow defaults to one minute.
	RateLimit  int
	RateWindow time.Duration

	// QuotaTokens is the per-credential session balance per QuotaWindow.
	// Zero disables quota accounting. QuotaWindow defaults to three hours.
	QuotaTokens int
	QuotaWindow time.Duration

	// Checks report collaborator health on /healthz, keyed by service name.
	Checks map[string]HealthCheck

	// Tracing wraps the router in otelhttp instrumentation.
	Tracing bool
}

// HealthCheck probes one collaborator.
type HealthCheck func(ctx context.Context) error

// Server serves the session endpoint plus health and metrics.
type Server struct {
	cfg     Config
	quota   *Ledger
	handler http.Handler
}

// New builds a Server from cfg.
func New(cfg Config) *Server {
	if cfg.RateWindow <= 0 {
		cfg.RateWindow = time.Minute
	}
	if cfg.QuotaWindow <= 0 {
		cfg.QuotaWindow = 3 * time.Hour
	}
	s := &Server{
		cfg:   cfg,
		quota: NewLedger(cfg.QuotaTokens, cfg.QuotaWindow),
	}

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	r.Group(func(r chi.Router) {
		if cfg.RateLimit > 0 {
			r.Use(rateLimit(cfg.RateLimit, cfg.RateWindow))
		}
		r.Get("/v1/generate", s.handleGenerate)
	})

	s.handler = http.Handler(r)
	if cfg.Tracing {
		s.handler = otelhttp.NewHandler(s.handler, "scribe.server")
	}
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// handleHealth reports service status and collaborator health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	services := make(map[string]string, len(s.cfg.Checks))
	status := "ok"
	for name, check := range s.cfg.Checks {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		if err := check(ctx); err != nil {
			services[name] = "unavailable"
			status = "degraded"
		} else {
			services[name] = "ok"
		}
		cancel()
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":   status,
		"version":  s.cfg.Version,
		"services": services,
	})
}

// reject writes a structured non-200 rejection in the wire error shape so
// the consumer's one decoder handles stream and non-stream failures alike.
func reject(w http.ResponseWriter, status int, e *scribe.SessionError) {
	body, err := sse.MarshalError(e)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if remaining, ok := e.TimeRemaining(); ok && status == http.StatusTooManyRequests {
		w.Header().Set("Retry-After", strconv.Itoa(int(remaining.Seconds())))
	}
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
