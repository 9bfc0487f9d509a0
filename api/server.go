/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:     Unique ID per request for tracing
  2. RealIP:        Client address behind a proxy
  3. RequestLogger: One structured slog line per request
  4. Recoverer:     Panic recovery (500 instead of crash)
  5. CORS:          Cross-origin requests for a local frontend

ROUTE GROUPS:
  /api/settings        One-time fiscal setup
  /api/periods/*       Fiscal month resolution
  /api/forecast        Cashflow projection
  /api/holidays/*      Holiday calendar
  /api/closing/*       Month-end close
  /api/history/*       Frozen monthly history
  /api/savings         Accounts and goals
  /api/goals/*         Goal withdrawals
  /api/scenarios/*     Demo households
  /healthz             Liveness

SECURITY NOTE:
  No authentication middleware. The engine serves one household and is
  meant to sit behind the household's own gateway.

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

	"github.com/warp/budget-engine/logging"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, logger *logging.Logger) *chi.Mux {
	if logger == nil {
		logger = logging.Discard()
	}
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logging.RequestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Get("/settings", h.GetSettings)
		r.Post("/settings", h.SaveSettings)

		r.Route("/periods", func(r chi.Router) {
			r.Get("/current", h.GetCurrentPeriod)
			r.Get("/{year}/{month}", h.GetPeriod)
		})

		r.Get("/forecast", h.GetForecast)

		r.Route("/holidays", func(r chi.Router) {
			r.Get("/", h.ListHolidays)
			r.Post("/refresh", h.RefreshHolidays)
		})

		r.Route("/closing", func(r chi.Router) {
			r.Get("/runs", h.ListCloseRuns)
			r.Get("/{year}/{month}/status", h.GetCloseStatus)
			r.Post("/{year}/{month}/run", h.RunClose)
		})

		r.Get("/history/{year}/{month}", h.GetHistory)
		r.Get("/savings", h.ListSavings)
		r.Post("/goals/{id}/withdraw", h.WithdrawFromGoal)

		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
		})
	})

	return r
}
