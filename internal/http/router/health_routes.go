package router

import "github.com/go-chi/chi/v5"

// RegisterHealthRoutes registra /healthz, /readyz y /metrics.
func RegisterHealthRoutes(r chi.Router, d Deps) {
	if d.Health != nil {
		r.Get("/healthz", d.Health.Health.Live)
		r.Get("/readyz", d.Health.Health.Ready)
	}
	if d.Metrics != nil {
		r.Method("GET", "/metrics", d.Metrics)
	}
}
