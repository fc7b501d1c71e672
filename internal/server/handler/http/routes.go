package http

import (
	"net/http"

	"github.com/atinyakov/memedesk/internal/middleware"
	"go.uber.org/zap"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

// NewRouter constructs and returns an HTTP handler that serves the relay API.
//
// Routes:
//
//	POST /api/warmup → warmupHandler.Warmup
//	GET  /healthz    → Health
//
// Middleware chain (applied in order):
//  1. AllowContentType("application/json")  - rejects non-JSON bodies; bodyless requests pass
//  2. WithRequestLogging(logger)          - logs requests with a request id
//  3. SameOrigin                          - rejects cross-origin browser calls
func NewRouter(warmupHandler *WarmupHandler, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.AllowContentType("application/json"))
	r.Use(middleware.WithRequestLogging(logger))
	r.Use(middleware.SameOrigin)

	r.Get("/healthz", Health)
	r.Route("/api", func(r chi.Router) {
		r.Post("/warmup", warmupHandler.Warmup)
	})

	return r
}
