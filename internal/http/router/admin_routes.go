package router

import (
	"github.com/go-chi/chi/v5"

	mw "github.com/dropDatabas3/izzu/internal/http/middlewares"
)

// RegisterAdminRoutes registra la API de la consola. El login por OTP es
// público y con rate limit por IP; el resto exige la cookie de sesión.
func RegisterAdminRoutes(r chi.Router, d Deps) {
	if d.Admin == nil {
		return
	}
	c := d.Admin

	r.Route("/admin", func(r chi.Router) {
		r.Use(mw.Group(mw.WithCORS(d.AdminCORSOrigins), mw.WithNoStore())...)

		r.Group(func(r chi.Router) {
			r.Use(mw.WithRateLimit(mw.RateLimitConfig{
				Limiter: d.Limits.Admin,
				Limit:   d.Limits.AdminLimit,
				KeyFunc: mw.IPPathRateKey,
			}))
			r.With(d.Limits.otpSend()).Post("/auth/otp/send", c.Auth.SendOTP)
			r.Post("/auth/otp/verify", c.Auth.VerifyOTP)
		})

		r.Group(func(r chi.Router) {
			r.Use(mw.RequireAdminSession(d.AdminAuth, d.AdminCookieName))

			r.Post("/auth/logout", c.Auth.Logout)
			r.Get("/me", c.Auth.Me)

			r.Get("/projects", c.Projects.List)
			r.Post("/projects", c.Projects.Create)

			r.Route("/projects/{projectID}", func(r chi.Router) {
				r.Get("/keys", c.Keys.List)
				r.Post("/keys", c.Keys.Create)
				r.Get("/users", c.Users.List)
				r.Get("/audit-logs", c.Users.AuditLogs)
				r.Get("/analytics", c.Users.Analytics)
				r.Get("/webhooks", c.Webhooks.List)
				r.Post("/webhooks", c.Webhooks.Create)
			})
		})
	})
}
