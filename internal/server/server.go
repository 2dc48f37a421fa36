// Package server assembles the Grandline HTTP server: the envelope writer,
// the middleware chain and the core routes. Feature handlers mount
// themselves through RouteRegistrar.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"

	"github.com/HerbHall/grandline/internal/apperr"
	_ "github.com/HerbHall/grandline/internal/docs" // registers the OpenAPI document
	"github.com/HerbHall/grandline/internal/metrics"
	"github.com/HerbHall/grandline/internal/version"
)

// RouteRegistrar mounts a group of routes on the server mux.
type RouteRegistrar interface {
	RegisterRoutes(mux *http.ServeMux)
}

// Pinger reports database reachability for the health endpoint.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options configures the HTTP server.
type Options struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	RateLimit    RateLimitConfig
}

// Server is the main Grandline server.
type Server struct {
	httpServer *http.Server
	db         Pinger
	responder  *Responder
	metrics    *metrics.Metrics
	logger     *zap.Logger
	mux        *http.ServeMux
}

// New creates a Server and mounts the core routes plus every registrar.
func New(opts Options, db Pinger, rs *Responder, m *metrics.Metrics, logger *zap.Logger, registrars ...RouteRegistrar) *Server {
	mux := http.NewServeMux()

	s := &Server{
		db:        db,
		responder: rs,
		metrics:   m,
		logger:    logger.Named("server"),
		mux:       mux,
	}

	s.registerCoreRoutes()
	for _, reg := range registrars {
		reg.RegisterRoutes(mux)
	}

	s.httpServer = &http.Server{
		Addr: opts.Addr,
		Handler: Chain(mux,
			RequestLogger(logger),
			Instrument(m),
			RateLimit(opts.RateLimit, rs),
		),
		ReadTimeout:  opts.ReadTimeout,
		WriteTimeout: opts.WriteTimeout,
		IdleTimeout:  opts.IdleTimeout,
	}
	return s
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// registerCoreRoutes sets up routes that are always available.
func (s *Server) registerCoreRoutes() {
	s.mux.HandleFunc("GET /api/health", s.handleHealth)
	s.mux.Handle("GET /metrics", s.metrics.Handler())
	s.mux.Handle("GET /swagger/", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))
	s.mux.HandleFunc("/api/", s.handleNotFound)
}

// Start begins serving HTTP requests.
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("HTTP server error: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

// HealthStatus is the payload of GET /api/health.
type HealthStatus struct {
	Status   string        `json:"status"`
	Database string        `json:"database"`
	Version  version.Build `json:"version"`
}

// handleHealth godoc
//
//	@Summary		Health check
//	@Description	Reports server liveness and database reachability.
//	@Tags			system
//	@Produce		json
//	@Success		200	{object}	Envelope{data=HealthStatus}
//	@Failure		503	{object}	Envelope{data=HealthStatus}
//	@Router			/health [get]
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	h := HealthStatus{Status: "ok", Database: "ok", Version: version.Current()}
	status := http.StatusOK
	if err := s.db.Ping(r.Context()); err != nil {
		s.logger.Warn("health check: database unreachable", zap.Error(err))
		h.Status = "degraded"
		h.Database = "unreachable"
		status = http.StatusServiceUnavailable
	}
	w.Header().Set("X-Grandline-Version", version.Version)
	s.responder.JSON(w, status, Envelope{Success: status == http.StatusOK, Data: h})
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	s.responder.JSON(w, http.StatusNotFound, Envelope{
		Error:   apperr.CodeNotFound,
		Message: fmt.Sprintf("route %s %s not found", r.Method, r.URL.Path),
	})
}
