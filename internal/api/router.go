package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter creates the chi router exposing the peripheral contract to the
// kiosk host.
func NewRouter(peripheral Peripheral, lifecycle Lifecycle, records RecordLister) http.Handler {
	h := &Handlers{
		peripheral: peripheral,
		lifecycle:  lifecycle,
		records:    records,
	}

	r := chi.NewRouter()

	// Middleware.
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", h.Health)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/terminal", func(r chi.Router) {
			r.Post("/init", h.InitTerminal)
			r.Get("/test", h.TestTerminal)
			r.Post("/pay", h.PayTerminal)
			r.Post("/unload", h.UnloadTerminal)
			r.Put("/settings", h.UpdateSettings)
			r.Get("/settings/schema", h.SettingsSchema)
		})

		r.Get("/transactions", h.ListTransactions)
	})

	return r
}
