/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Logger:     zerolog request logging (method, path, status, duration)
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. CORS:       Cross-origin requests for the dashboard

ROUTE GROUPS:
  /api/reports/*         Statements
  /api/residences/*      Residence registry and statement bundles
  /api/entries           Journal posting
  /api/petty-cash/*      Custodian floats
  /api/reconciliation/*  Scheduler history and manual trigger
  /api/scenarios/*       Demo data
  /healthz               Liveness

SECURITY NOTE:
  No authentication middleware. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - middleware.go: Request logger
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
func NewRouter(h *Handler, corsOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(h.Log))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		AllowCredentials: true,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Route("/reports", func(r chi.Router) {
			r.Get("/income-statement", h.GetIncomeStatement)
			r.Get("/cash-flow", h.GetCashFlow)
			r.Get("/balance-sheet", h.GetBalanceSheet)
			r.Get("/reconciliation", h.GetReconciliation)
		})

		r.Route("/residences", func(r chi.Router) {
			r.Get("/", h.ListResidences)
			r.Post("/", h.CreateResidence)
			r.Get("/{id}/statements", h.GetResidenceStatements)
		})

		r.Post("/entries", h.PostEntry)

		r.Route("/petty-cash/{userID}", func(r chi.Router) {
			r.Get("/balance", h.GetPettyCashBalance)
			r.Get("/transactions", h.GetPettyCashTransactions)
			r.Post("/allocations", h.AllocatePettyCash)
			r.Post("/expenses", h.RecordPettyCashExpense)
			r.Post("/replenishments", h.ReplenishPettyCash)
		})

		r.Route("/reconciliation", func(r chi.Router) {
			r.Get("/runs", h.ListReconciliationRuns)
			r.Post("/process", h.ProcessReconciliation)
		})

		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Post("/load", h.LoadScenario)
		})
	})

	return r
}
