package router

import (
	"github.com/go-chi/chi/v5"

	"github.com/dropDatabas3/izzu/internal/domain/repository"
	mw "github.com/dropDatabas3/izzu/internal/http/middlewares"
)

// RegisterSDKRoutes registra /sdk/*. El SDK corre en el browser de los
// clientes del tenant, así que CORS acepta cualquier origen.
func RegisterSDKRoutes(r chi.Router, d Deps) {
	if d.SDK == nil {
		return
	}
	c := d.SDK
	publishable := mw.RequireAPIKey(mw.APIKeyConfig{
		Authorizer:     d.Authorizer,
		Scope:          repository.KeyTypePublishable,
		MaxUploadBytes: d.MaxUploadBytes,
	})
	secret := mw.RequireAPIKey(mw.APIKeyConfig{
		Authorizer:     d.Authorizer,
		Scope:          repository.KeyTypeSecret,
		MaxUploadBytes: d.MaxUploadBytes,
	})

	r.Route("/sdk", func(r chi.Router) {
		r.Use(mw.Group(
			mw.WithCORS([]string{"*"}),
			mw.WithNoStore(),
			mw.WithRateLimit(mw.RateLimitConfig{
				Limiter: d.Limits.SDK,
				Limit:   d.Limits.SDKLimit,
				KeyFunc: mw.IPPathRateKey,
			}),
		)...)

		r.With(d.Limits.otpSend(), publishable).Post("/otp/send", c.OTP.Send)
		r.With(publishable).Post("/otp/verify", c.OTP.Verify)

		r.With(secret).Post("/user/create", c.Users.Create)

		// operaciones sobre la cuenta propia: requieren la sesión del end user
		enrolled := mw.RequireEndUserSession(d.Sessions)

		r.With(publishable).Post("/face/register", c.Face.Register)
		r.With(publishable).Post("/face/identify", c.Face.Identify)
		r.With(publishable, enrolled).Post("/face/verify", c.Face.Verify)
		r.With(publishable).Post("/face/liveness", c.Face.Liveness)

		r.With(publishable, enrolled).Post("/passkey/register/begin", c.Passkeys.RegisterBegin)
		r.With(publishable, enrolled).Post("/passkey/register/complete", c.Passkeys.RegisterComplete)
		r.With(publishable).Post("/passkey/login/begin", c.Passkeys.LoginBegin)
		r.With(publishable).Post("/passkey/login/complete", c.Passkeys.LoginComplete)

		r.With(secret).Post("/session/validate", c.Sessions.Validate)
	})
}
