// Package router assembles the chi router for the delivery service.
package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"delivery-dispatch/internal/http/handlers"
	"delivery-dispatch/internal/http/middleware"
	"delivery-dispatch/internal/logx"
)

// New constructs a chi-based http.Handler with base middleware and routes.
// The tracker is mounted outside the timeout group: websocket sessions are
// long-lived.
func New(h *handlers.Handlers, dh *handlers.DeliveryHandler, tracker http.Handler, logger logx.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(middleware.Observability(logger))

	r.Group(func(r chi.Router) {
		r.Use(chimw.Timeout(5 * time.Second))

		r.Get("/ping", h.Ping)
		r.Method(http.MethodHead, "/healthcheck", http.HandlerFunc(h.HealthcheckHead))

		r.Route("/deliveries", func(r chi.Router) {
			r.Get("/{id}", dh.Get)
			r.Patch("/{id}/status", dh.UpdateStatus)
			r.Post("/{id}/location", dh.ReportLocation)
		})
	})

	r.Handle("/metrics", promhttp.Handler())
	if tracker != nil {
		r.Handle("/ws/track", tracker)
	}
	r.NotFound(http.HandlerFunc(h.NotFound))

	return r
}
