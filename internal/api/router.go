// Package api serves the backlog as a JSON HTTP API.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Deps holds what the router needs.
type Deps struct {
	Service        Backlog
	BaseKey        string
	Metrics        http.Handler
	CORSOrigins    []string
	RequestTimeout time.Duration
}

// NewRouter builds the HTTP handler with middleware and routes.
func NewRouter(deps Deps) http.Handler {
	h := NewHandler(deps.Service, deps.BaseKey)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(RequestLogger)
	r.Use(chimiddleware.Recoverer)
	if deps.RequestTimeout > 0 {
		r.Use(chimiddleware.Timeout(deps.RequestTimeout))
	}

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", OwnerHeader},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", h.HealthCheck)
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/meta", h.GetMeta)
		r.Get("/stats", h.GetStats)

		r.Route("/games", func(r chi.Router) {
			r.Get("/", h.ListGames)
			r.Post("/", h.CreateGame)
			r.Get("/{id}", h.GetGame)
			r.Patch("/{id}", h.UpdateGame)
			r.Delete("/{id}", h.DeleteGame)
			r.Post("/{id}/complete", h.CompleteGame)
			r.Post("/{id}/start", h.StartGame)
			r.Post("/{id}/move", h.MoveGame)
		})
	})

	return r
}
