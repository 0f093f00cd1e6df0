// Package server exposes the modeling engine over HTTP. The surface is a
// thin JSON mapping onto session operations; all geometry lives below it.
package server

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/latticecad/lattice/internal/config"
	"github.com/latticecad/lattice/internal/server/sse"
	"github.com/latticecad/lattice/internal/session"
)

// Service is the HTTP front end over a session registry.
type Service struct {
	version     string
	config      *config.Config
	registry    *session.Registry
	router      chi.Router
	broadcaster *sse.Broadcaster
	ready       atomic.Bool
	startTime   time.Time

	requestCounter metric.Int64Counter
	errorCounter   metric.Int64Counter
}

// NewService creates the service and wires its routes.
func NewService(version string, cfg *config.Config, registry *session.Registry) *Service {
	meter := otel.Meter("lattice/server")
	requests, err := meter.Int64Counter("lattice.requests",
		metric.WithDescription("Handled modeling requests"))
	if err != nil {
		log.Warn().Err(err).Msg("request counter unavailable")
	}
	errors, err := meter.Int64Counter("lattice.errors",
		metric.WithDescription("Failed modeling requests"))
	if err != nil {
		log.Warn().Err(err).Msg("error counter unavailable")
	}

	svc := &Service{
		version:        version,
		config:         cfg,
		registry:       registry,
		router:         chi.NewRouter(),
		broadcaster:    sse.NewBroadcaster(),
		startTime:      time.Now(),
		requestCounter: requests,
		errorCounter:   errors,
	}
	svc.setupRoutes()
	svc.ready.Store(true)
	return svc
}

// Router returns the HTTP handler for serving and for tests.
func (s *Service) Router() http.Handler { return s.router }

func (s *Service) setupRoutes() {
	r := s.router
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.countRequests)

	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)
	r.Get("/version", s.handleVersion)

	r.Route("/api", func(r chi.Router) {
		r.Get("/events", s.broadcaster.HandleSSE)

		r.Post("/sessions", s.handleCreateSession)
		r.Get("/sessions/count", s.handleSessionCount)
		r.Delete("/sessions", s.handleCleanupAllSessions)
		r.Delete("/sessions/{sessionID}", s.handleCleanupSession)

		// Everything below operates inside one session resolved from the
		// X-Session-ID header or the session_id query parameter.
		r.Group(func(r chi.Router) {
			r.Use(s.requireSession)

			r.Post("/planes", s.handleCreatePlane)
			r.Get("/planes", s.handleListPlanes)
			r.Get("/planes/{planeID}/visualization", s.handlePlaneViz)

			r.Post("/sketches", s.handleCreateSketch)
			r.Get("/sketches", s.handleListSketches)
			r.Get("/sketches/{sketchID}/visualization", s.handleSketchViz)
			r.Post("/sketches/{sketchID}/elements", s.handleAddElement)
			r.Delete("/sketches/{sketchID}/elements", s.handleClearSketch)
			r.Delete("/sketches/{sketchID}/elements/{elementID}", s.handleRemoveElement)
			r.Get("/sketches/{sketchID}/elements/{elementID}/visualization", s.handleElementViz)

			r.Post("/extrude", s.handleExtrude)

			r.Post("/shapes/primitives", s.handleCreatePrimitive)
			r.Post("/shapes/boolean", s.handleBoolean)
			r.Get("/shapes", s.handleListShapes)
			r.Delete("/shapes/{shapeID}", s.handleRemoveShape)
			r.Get("/shapes/{shapeID}/mesh", s.handleMesh)
			r.Get("/shapes/{shapeID}/export", s.handleExport)

			r.Post("/parameters", s.handleUpdateParameter)
			r.Post("/rebuild", s.handleRebuild)
			r.Delete("/model", s.handleClearModel)
		})
	})
}

// countRequests feeds the otel counters.
func (s *Service) countRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		attrs := metric.WithAttributes(
			attribute.String("method", r.Method),
			attribute.Int("status", ww.Status()),
		)
		if s.requestCounter != nil {
			s.requestCounter.Add(r.Context(), 1, attrs)
		}
		if ww.Status() >= 400 && s.errorCounter != nil {
			s.errorCounter.Add(r.Context(), 1, attrs)
		}
	})
}

// Run serves until the context is canceled, then shuts down gracefully.
func (s *Service) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.config.Addr(),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Str("version", s.version).Msg("server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		s.ready.Store(false)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		log.Info().Msg("server stopped")
		return ctx.Err()
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}
