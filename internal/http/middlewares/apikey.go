package middlewares

import (
	"errors"
	"net/http"
	"strings"

	"github.com/dropDatabas3/izzu/internal/apikey"
	"github.com/dropDatabas3/izzu/internal/domain/repository"
	httperrors "github.com/dropDatabas3/izzu/internal/http/errors"
	"github.com/dropDatabas3/izzu/internal/observability/logger"
)

// APIKeyHeader es el header que llevan todas las llamadas del SDK.
const APIKeyHeader = "X-API-Key"

// APIKeyConfig configura RequireAPIKey.
type APIKeyConfig struct {
	Authorizer   apikey.Authorizer
	Scope        repository.KeyType
	MaxJSONBytes int64
	// MaxUploadBytes acota los multipart de face; 0 = 10MB.
	MaxUploadBytes int64
}

// RequireAPIKey resuelve (X-API-Key, project_id) a un Grant y lo deja en el
// contexto. Proyecto inexistente y key incorrecta responden igual.
func RequireAPIKey(cfg APIKeyConfig) Middleware {
	if cfg.MaxJSONBytes <= 0 {
		cfg.MaxJSONBytes = DefaultMaxJSONBytes
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 10 << 20
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := strings.TrimSpace(r.Header.Get(APIKeyHeader))
			if key == "" {
				httperrors.WriteError(w, httperrors.ErrUnauthorized.WithDetail("missing X-API-Key header"))
				return
			}

			r.Body = http.MaxBytesReader(w, r.Body, cfg.MaxUploadBytes)
			projectID, err := projectIDFromRequest(r, cfg.MaxJSONBytes, cfg.MaxUploadBytes)
			if err != nil {
				var mbe *http.MaxBytesError
				if errors.As(err, &mbe) || errors.Is(err, errBodyTooLarge) {
					httperrors.WriteError(w, httperrors.ErrBodyTooLarge)
					return
				}
				httperrors.WriteError(w, httperrors.ErrBadRequest.WithDetail("could not read request body"))
				return
			}
			if projectID == "" {
				httperrors.WriteError(w, httperrors.ErrMissingFields.WithDetail("project_id is required"))
				return
			}

			grant, err := cfg.Authorizer.Authorize(r.Context(), key, projectID)
			if err == nil {
				err = grant.Require(cfg.Scope)
			}
			if err != nil {
				switch {
				case errors.Is(err, apikey.ErrMissingKey), errors.Is(err, apikey.ErrInvalidKey):
					httperrors.WriteError(w, httperrors.ErrInvalidAPIKey)
				case errors.Is(err, apikey.ErrInsufficientScope):
					httperrors.WriteError(w, httperrors.ErrInsufficientScope.WithDetail("this operation requires a secret key"))
				default:
					logger.From(r.Context()).Error("api key authorization failed",
						logger.Layer("middleware"), logger.Op("RequireAPIKey"), logger.Err(err))
					httperrors.WriteError(w, httperrors.ErrServiceUnavailable)
				}
				return
			}

			log := logger.From(r.Context()).With(logger.ProjectID(grant.ProjectID), logger.TenantID(grant.TenantID))
			ctx := logger.ToContext(WithGrant(r.Context(), grant), log)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
