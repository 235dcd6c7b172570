/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route
  definitions. This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:
  /api/tenants/*      Tenants, deposits, payments, clearance
  /api/payments/*     Period-addressed payment updates
  /api/clearances/*   Clearance-addressed corrections
  /api/apartments/*   Property registration
  /api/houses/*       Unit registration

SECURITY NOTE:
  No authentication middleware currently. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Tenant routes
		r.Route("/tenants", func(r chi.Router) {
			r.Get("/", h.ListTenants)
			r.Post("/", h.OnboardTenant)
			r.Get("/{id}", h.GetTenant)
			r.Delete("/{id}", h.RemoveTenant)

			r.Post("/{id}/deposits", h.RecordDeposit)
			r.Post("/{id}/deposits/itemized", h.RecordItemizedDeposit)

			r.Get("/{id}/payments", h.ListPayments)
			r.Get("/{id}/payments/unpaid", h.ListUnpaid)
			r.Post("/{id}/payments/initial", h.RegisterInitialPayment)
			r.Post("/{id}/payments/monthly", h.ProcessMonthly)
			r.Post("/{id}/payments/extra", h.ApplyExtraAmount)

			r.Get("/{id}/clearance", h.GetClearances)
			r.Post("/{id}/clearance", h.SettleTenant)
			r.Post("/{id}/clearance/final", h.SettleFinalPeriod)
		})

		// Payment routes addressed by period ledger
		r.Route("/payments", func(r chi.Router) {
			r.Put("/{id}", h.UpdatePayment)
			r.Put("/{id}/deficit", h.CorrectDeficit)
		})

		// Clearance routes addressed by record
		r.Route("/clearances", func(r chi.Router) {
			r.Put("/{id}", h.UpdateClearance)
			r.Delete("/{id}", h.DeleteClearance)
		})

		// Property routes
		r.Route("/apartments", func(r chi.Router) {
			r.Get("/", h.ListApartments)
			r.Post("/", h.RegisterApartment)
		})
		r.Route("/houses", func(r chi.Router) {
			r.Get("/", h.ListHouses)
			r.Post("/", h.RegisterHouse)
		})
	})

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	return r
}
