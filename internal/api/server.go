// Package api provides the HTTP API for entity resolution and book association.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	domainerrors "github.com/listenupapp/catalog-resolver/internal/errors"
	"github.com/listenupapp/catalog-resolver/internal/logger"
	"github.com/listenupapp/catalog-resolver/internal/ratelimit"
)

// Version is reported in the OpenAPI document.
const Version = "1.0.0"

// Server holds dependencies for HTTP handlers.
type Server struct {
	services *Services
	router   chi.Router
	api      huma.API
	logger   *slog.Logger
	limiter  *ratelimit.KeyedRateLimiter
}

// NewServer creates a new HTTP server with all routes configured. A nil
// limiter disables rate limiting.
func NewServer(services *Services, limiter *ratelimit.KeyedRateLimiter, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}

	s := &Server{
		services: services,
		router:   chi.NewRouter(),
		logger:   log,
		limiter:  limiter,
	}

	s.setupMiddleware()

	humaConfig := huma.DefaultConfig("Catalog Resolver API", Version)
	humaConfig.Transformers = append(humaConfig.Transformers, EnvelopeTransformer)
	s.api = humachi.New(s.router, humaConfig)
	RegisterErrorHandler()

	s.registerHealthRoutes()
	s.registerEntityRoutes()
	s.registerBookRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// API exposes the huma API, mainly for tests and OpenAPI export.
func (s *Server) API() huma.API {
	return s.api
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(requestLogger(s.logger))
	s.router.Use(middleware.Recoverer)
	s.router.Use(corsMiddleware())
	if s.limiter != nil {
		s.router.Use(RateLimitMiddleware(s.limiter, s.logger))
	}
}

// fail logs unexpected errors before handing them back to huma. Coded
// domain errors are client-facing and pass through silently.
func (s *Server) fail(ctx context.Context, msg string, err error) error {
	var domainErr *domainerrors.Error
	if !errors.As(err, &domainErr) || domainErr.HTTPStatus() >= http.StatusInternalServerError {
		logger.FromContext(ctx, s.logger).Error(msg, "error", err)
	}
	return err
}
