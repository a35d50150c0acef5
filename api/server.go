/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route
  definitions. This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. CORS:       Cross-origin requests for the console frontend

SECURITY NOTE:
  No authentication middleware. The console runs inside the salon's
  network; session presentation is an external collaborator.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a router with all routes configured.
func NewRouter(h *Handler, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Route("/entitlements", func(r chi.Router) {
			r.Get("/{client}", h.GetEntitlement)
		})

		r.Route("/packages", func(r chi.Router) {
			r.Get("/", h.ListPackages)
			r.Post("/", h.CreateGrant)
			r.Post("/{id}/approve", h.ApproveGrant)
			r.Post("/{id}/reject", h.RejectGrant)
		})

		r.Route("/transactions", func(r chi.Router) {
			r.Get("/", h.ListTransactions)
			r.Post("/", h.SubmitTransaction)
			r.Post("/{id}/status", h.UpdateWorkStatus)
		})

		r.Route("/dues", func(r chi.Router) {
			r.Get("/", h.ListDues)
			r.Post("/review", h.Review)
			r.Post("/{id}/payment", h.ApplyPayment)
		})

		r.Route("/session", func(r chi.Router) {
			r.Post("/reset", h.ResetSession)
		})
	})

	return r
}
