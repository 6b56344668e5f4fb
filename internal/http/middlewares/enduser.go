package middlewares

import (
	"errors"
	"net/http"

	"github.com/dropDatabas3/izzu/internal/domain/repository"
	httperrors "github.com/dropDatabas3/izzu/internal/http/errors"
	"github.com/dropDatabas3/izzu/internal/observability/logger"
	"github.com/dropDatabas3/izzu/internal/session"
)

// RequireEndUserSession exige el bearer de sesión que emiten los logins del
// SDK. Va después de RequireAPIKey: la sesión tiene que ser de un end user
// del mismo proyecto que el grant.
func RequireEndUserSession(sessions session.Service) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			grant := GetGrant(r.Context())
			if grant == nil {
				httperrors.WriteError(w, httperrors.ErrUnauthorized)
				return
			}
			sess, err := sessions.Validate(r.Context(), BearerToken(r))
			if err != nil {
				if errors.Is(err, session.ErrInvalid) {
					httperrors.WriteError(w, httperrors.ErrUnauthorized.WithDetail("end user session required"))
					return
				}
				logger.From(r.Context()).Error("end user session lookup failed",
					logger.Layer("middleware"), logger.Op("RequireEndUserSession"), logger.Err(err))
				httperrors.WriteError(w, httperrors.ErrServiceUnavailable)
				return
			}
			if sess.PrincipalType != repository.PrincipalEndUser || sess.ProjectID != grant.ProjectID {
				httperrors.WriteError(w, httperrors.ErrForbidden)
				return
			}
			log := logger.From(r.Context()).With(logger.EndUserID(sess.PrincipalID))
			ctx := logger.ToContext(WithEndUserSession(r.Context(), sess), log)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
