package middlewares

import (
	"errors"
	"net/http"
	"strings"

	httperrors "github.com/dropDatabas3/izzu/internal/http/errors"
	adminsvc "github.com/dropDatabas3/izzu/internal/http/services/admin"
	"github.com/dropDatabas3/izzu/internal/observability/logger"
)

// AdminSessionToken extrae el token de sesión del admin: cookie primero,
// luego "Authorization: Bearer" (CLI y tests).
func AdminSessionToken(r *http.Request, cookieName string) string {
	if c, err := r.Cookie(cookieName); err == nil && c.Value != "" {
		return c.Value
	}
	return BearerToken(r)
}

// BearerToken devuelve el token de "Authorization: Bearer <token>" o "".
func BearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

// RequireAdminSession valida la sesión del panel y deja el Principal en el contexto.
func RequireAdminSession(auth adminsvc.AuthService, cookieName string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := AdminSessionToken(r, cookieName)
			p, err := auth.Authenticate(r.Context(), raw)
			if err != nil {
				if errors.Is(err, adminsvc.ErrUnauthorized) {
					httperrors.WriteError(w, httperrors.ErrUnauthorized)
					return
				}
				logger.From(r.Context()).Error("admin session lookup failed",
					logger.Layer("middleware"), logger.Op("RequireAdminSession"), logger.Err(err))
				httperrors.WriteError(w, httperrors.ErrServiceUnavailable)
				return
			}
			log := logger.From(r.Context()).With(logger.AdminID(p.AdminID), logger.TenantID(p.TenantID))
			ctx := logger.ToContext(WithAdmin(r.Context(), p, raw), log)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
