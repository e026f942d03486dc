// Package httpapi exposes the admin controller over HTTP.
package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func NewRouter(h *Handler, auth Authenticator, logger *slog.Logger) http.Handler {
	if auth == nil {
		auth = HeaderAuthenticator{}
	}
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(authenticate(auth))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(r.Context(), w, http.StatusNotFound, "not_found", errNoRoute.Error(), nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(r.Context(), w, http.StatusMethodNotAllowed, "method_not_allowed", r.Method+" is not allowed here", nil)
	})

	r.Get("/healthz", h.Health)

	r.Route("/admin/orders", func(r chi.Router) {
		r.Get("/", h.ListOrders)
		r.Get("/stats", h.GetOrderStats)
		r.With(requireActor).Get("/export", h.ExportOrders)
		r.Get("/{id}", h.GetOrderDetail)

		r.Group(func(r chi.Router) {
			r.Use(requireActor)
			r.Post("/{id}/status", h.UpdateOrderStatus)
			r.Post("/{id}/payment-status", h.UpdatePaymentStatus)
			r.Put("/{id}/tracking", h.UpdateTracking)
		})
	})

	return r
}
