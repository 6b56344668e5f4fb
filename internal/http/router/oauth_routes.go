package router

import (
	"github.com/go-chi/chi/v5"

	mw "github.com/dropDatabas3/izzu/internal/http/middlewares"
)

// RegisterOAuthRoutes registra el login social de la consola.
func RegisterOAuthRoutes(r chi.Router, d Deps) {
	if d.OAuth == nil {
		return
	}
	r.Route("/auth/oauth/{provider}", func(r chi.Router) {
		r.Use(mw.WithNoStore(), mw.WithRateLimit(mw.RateLimitConfig{
			Limiter: d.Limits.Admin,
			Limit:   d.Limits.AdminLimit,
			KeyFunc: mw.IPOnlyRateKey,
		}))
		r.Get("/", d.OAuth.Redirect)
		r.Get("/callback", d.OAuth.Callback)
	})
}
