// Package router arma el árbol de rutas chi del servicio: /sdk/* con API
// key, /admin/* con cookie de sesión, /auth/oauth/* y los endpoints de ops.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dropDatabas3/izzu/internal/apikey"
	adminctrl "github.com/dropDatabas3/izzu/internal/http/controllers/admin"
	healthctrl "github.com/dropDatabas3/izzu/internal/http/controllers/health"
	oauthctrl "github.com/dropDatabas3/izzu/internal/http/controllers/oauth"
	sdkctrl "github.com/dropDatabas3/izzu/internal/http/controllers/sdk"
	httperrors "github.com/dropDatabas3/izzu/internal/http/errors"
	mw "github.com/dropDatabas3/izzu/internal/http/middlewares"
	adminsvc "github.com/dropDatabas3/izzu/internal/http/services/admin"
	"github.com/dropDatabas3/izzu/internal/rate"
	"github.com/dropDatabas3/izzu/internal/session"
)

// Limits agrupa los limiters por superficie. nil deshabilita el límite.
// OTP se suma a SDK/Admin en los endpoints que envían códigos.
type Limits struct {
	SDK        rate.Limiter
	SDKLimit   int
	Admin      rate.Limiter
	AdminLimit int
	OTP        rate.Limiter
	OTPLimit   int
}

func (l Limits) otpSend() func(http.Handler) http.Handler {
	return mw.WithRateLimit(mw.RateLimitConfig{
		Limiter: l.OTP,
		Limit:   l.OTPLimit,
		KeyFunc: mw.IPOnlyRateKey,
	})
}

// Deps contiene todo lo que el router necesita.
type Deps struct {
	SDK    *sdkctrl.Controllers
	Admin  *adminctrl.Controllers
	OAuth  *oauthctrl.Controller // nil si no hay proveedores
	Health *healthctrl.Controllers

	Metrics http.Handler // nil no expone /metrics

	Authorizer       apikey.Authorizer
	Sessions         session.Service
	AdminAuth        adminsvc.AuthService
	AdminCookieName  string
	AdminCORSOrigins []string
	MaxUploadBytes   int64
	Limits           Limits
}

// New construye el handler raíz.
func New(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(mw.Group(
		mw.WithRecover(),
		mw.WithRequestID(),
		mw.WithSecurityHeaders(),
		mw.WithMetrics(),
		mw.WithLogging(),
	)...)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httperrors.WriteError(w, httperrors.ErrNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		httperrors.WriteError(w, httperrors.ErrMethodNotAllowed)
	})

	RegisterHealthRoutes(r, d)
	RegisterSDKRoutes(r, d)
	RegisterAdminRoutes(r, d)
	RegisterOAuthRoutes(r, d)
	return r
}
