package admin

import (
	"errors"
	"net/http"

	httperrors "github.com/dropDatabas3/izzu/internal/http/errors"
	svc "github.com/dropDatabas3/izzu/internal/http/services/admin"
	"github.com/dropDatabas3/izzu/internal/identity"
	"github.com/dropDatabas3/izzu/internal/observability/logger"
	"github.com/dropDatabas3/izzu/internal/otp"
	"github.com/dropDatabas3/izzu/internal/session"
)

// handleServiceError mapea errores de los services admin a AppError.
func handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, svc.ErrInvalidInput), errors.Is(err, otp.ErrInvalidIdentifier):
		httperrors.WriteError(w, httperrors.ErrBadRequest.WithDetail(err.Error()))
	case errors.Is(err, svc.ErrInvalidOTP):
		httperrors.WriteLegacyError(w, httperrors.ErrInvalidOTP)
	case errors.Is(err, svc.ErrUnauthorized):
		httperrors.WriteError(w, httperrors.ErrUnauthorized)
	case errors.Is(err, svc.ErrForbidden):
		httperrors.WriteError(w, httperrors.ErrForbidden)
	case errors.Is(err, svc.ErrNotFound):
		httperrors.WriteError(w, httperrors.ErrNotFound)
	case errors.Is(err, svc.ErrConflict), errors.Is(err, identity.ErrConflict):
		httperrors.WriteError(w, httperrors.ErrConflict)
	case errors.Is(err, otp.ErrRateLimited):
		httperrors.WriteError(w, httperrors.ErrRateLimitExceeded)
	case errors.Is(err, otp.ErrDelivery):
		logger.From(r.Context()).Error("admin otp delivery failed", logger.Layer("controller"), logger.Err(err))
		httperrors.WriteError(w, httperrors.ErrServiceUnavailable.WithDetail("could not deliver the code"))
	case errors.Is(err, svc.ErrUnavailable),
		errors.Is(err, otp.ErrUnavailable),
		errors.Is(err, session.ErrUnavailable):
		logger.From(r.Context()).Error("admin dependency unavailable", logger.Layer("controller"), logger.Err(err))
		httperrors.WriteError(w, httperrors.ErrServiceUnavailable)
	default:
		logger.From(r.Context()).Error("admin request failed", logger.Layer("controller"), logger.Err(err))
		httperrors.WriteError(w, httperrors.ErrInternalServerError)
	}
}
