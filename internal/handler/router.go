package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	custommiddleware "github.com/mmeshcher/cafe-loyalty/internal/middleware"
)

// SetupRouter настраивает HTTP-маршруты и middleware программы лояльности.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	if h.trustProxy {
		r.Use(chimw.RealIP)
	}
	r.Use(chimw.Recoverer)
	r.Use(custommiddleware.Logger(h.logger))
	r.Use(custommiddleware.GzipMiddleware)

	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(h.rateLimiter.Middleware)

		r.Route("/api/user", func(r chi.Router) {
			r.Post("/register", h.Register)
			r.Post("/login", h.Login)

			r.Group(func(r chi.Router) {
				r.Use(h.authMiddleware.RequireCustomer)

				r.Post("/tokens/earn", h.IssueEarnToken)
				r.Post("/campaigns/{campaignID}/tokens", h.IssueCampaignToken)

				r.Post("/redemptions", h.RequestRedemption)
				r.Get("/redemptions", h.ListPendingRedemptions)

				r.Get("/balance", h.GetBalance)
				r.Get("/ledger", h.GetLedger)
			})
		})

		r.Route("/api/branch", func(r chi.Router) {
			r.Use(h.authMiddleware.RequireBranch)

			r.Post("/tokens/earn/redeem", h.RedeemEarnToken)
			r.Post("/tokens/campaign/redeem", h.RedeemCampaignToken)
			r.Post("/redemptions/confirm", h.ConfirmRedemption)
			r.Get("/campaigns/{campaignID}/usage", h.CampaignUsage)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	})

	return r
}
