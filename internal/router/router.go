package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/relense/influencer-markt-sub003/internal/auth"
	"github.com/relense/influencer-markt-sub003/internal/credits"
	"github.com/relense/influencer-markt-sub003/internal/listings"
	"github.com/relense/influencer-markt-sub003/internal/middleware"
	"github.com/relense/influencer-markt-sub003/internal/profiles"
)

// Handlers groups the HTTP handlers mounted under /api/v1.
type Handlers struct {
	Auth     *auth.Handler
	Profiles *profiles.Handler
	Listings *listings.Handler
	Credits  *credits.Handler
}

// New returns an http.Handler that serves the API under /api/v1 plus /health.
// Everything except register and login requires a bearer token.
func New(h Handlers, tokens middleware.TokenValidator) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(nil))
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(30 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/register", h.Auth.Register)
		r.Post("/auth/login", h.Auth.Login)

		r.Group(func(r chi.Router) {
			r.Use(middleware.BearerAuth(tokens))

			r.Get("/profiles/me", h.Profiles.GetMe)
			r.Put("/profiles/me", h.Profiles.UpdateMe)

			r.Post("/listings", h.Listings.Create)
			r.Get("/listings", h.Listings.List)
			r.Get("/listings/{id}", h.Listings.Get)
			r.Post("/listings/{id}/apply", h.Listings.Apply)
			r.Post("/listings/{id}/applications/{profileID}/accept", h.Listings.Accept)
			r.Post("/listings/{id}/applications/{profileID}/reject", h.Listings.Reject)
			r.Post("/listings/{id}/close", h.Listings.Close)

			r.Get("/credits/balance", h.Credits.GetBalance)
			r.Get("/credits/transactions", h.Credits.ListTransactions)
			r.With(middleware.SpendCheck()).Post("/orders/{id}/spend-credits", h.Credits.SpendCredits)
			r.Post("/orders/{id}/refunds", h.Credits.CreateRefund)
		})
	})
	return r
}
