package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/safetrack-hq/escalator/internal/api/auth"
	"github.com/safetrack-hq/escalator/internal/api/middleware"
)

// setupRouter creates and configures the chi router with all routes.
func (s *Server) setupRouter() *chi.Mux {
	r := chi.NewRouter()

	jwtService := auth.NewJWTService(s.config.JWTSecret, s.config.TokenTTL)

	// Global middleware
	r.Use(middleware.RequestLogger(s.config.Verbose))
	r.Use(middleware.PrometheusMiddleware)
	r.Use(middleware.Recoverer)

	// API v1 routes (protected)
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.JWTAuth(jwtService))

		r.Route("/incidents/{id}", func(r chi.Router) {
			r.Post("/escalate", s.handleEscalate)
			r.Post("/escalate/manual", s.handleManualEscalate)
			r.Get("/history", s.handleIncidentHistory)
		})

		r.Post("/scan", s.handleScan)

		r.Route("/rules", func(r chi.Router) {
			r.Get("/", s.handleListRules)
			r.Post("/reload", s.handleReloadRules)
		})

		r.Get("/history", s.handleHistory)
	})

	// Health check (public)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		OK(w, map[string]string{"status": "ok"})
	})

	return r
}
