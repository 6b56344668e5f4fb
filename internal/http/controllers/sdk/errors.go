package sdk

import (
	"errors"
	"net/http"
	"strings"

	"github.com/dropDatabas3/izzu/internal/face"
	httperrors "github.com/dropDatabas3/izzu/internal/http/errors"
	svc "github.com/dropDatabas3/izzu/internal/http/services/sdk"
	"github.com/dropDatabas3/izzu/internal/identity"
	"github.com/dropDatabas3/izzu/internal/observability/logger"
	"github.com/dropDatabas3/izzu/internal/otp"
	"github.com/dropDatabas3/izzu/internal/passkey"
	"github.com/dropDatabas3/izzu/internal/session"
)

// handleServiceError mapea errores de los services SDK a respuestas HTTP.
// Los fallos de credencial usan el cuerpo legacy {"error": "..."} del SDK.
func handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var policyErr *svc.PolicyError
	switch {
	case errors.As(err, &policyErr):
		httperrors.WriteLegacyError(w, httperrors.ErrPasswordTooWeak.WithDetail(strings.Join(policyErr.Reasons, ", ")))

	case errors.Is(err, svc.ErrInvalidOTP):
		httperrors.WriteLegacyError(w, httperrors.ErrInvalidOTP)
	case errors.Is(err, passkey.ErrChallengeExpired):
		httperrors.WriteLegacyError(w, httperrors.ErrChallengeExpired)
	case errors.Is(err, passkey.ErrVerification),
		errors.Is(err, passkey.ErrCredentialNotFound),
		errors.Is(err, passkey.ErrCounterReplay):
		httperrors.WriteLegacyError(w, httperrors.ErrVerificationFailed)

	case errors.Is(err, svc.ErrUserNotFound), errors.Is(err, passkey.ErrUserNotFound):
		httperrors.WriteLegacyError(w, httperrors.ErrUserNotFound)

	case errors.Is(err, svc.ErrInvalidInput),
		errors.Is(err, passkey.ErrInvalidInput),
		errors.Is(err, identity.ErrInvalidInput),
		errors.Is(err, face.ErrInvalidImage),
		errors.Is(err, otp.ErrInvalidIdentifier),
		errors.Is(err, otp.ErrUnsupportedChannel):
		httperrors.WriteLegacyError(w, httperrors.ErrBadRequest.WithDetail(detail(err)))

	case errors.Is(err, otp.ErrRateLimited):
		httperrors.WriteLegacyError(w, httperrors.ErrRateLimitExceeded)
	case errors.Is(err, identity.ErrConflict):
		httperrors.WriteLegacyError(w, httperrors.ErrConflict)

	case errors.Is(err, svc.ErrFaceDisabled):
		httperrors.WriteLegacyError(w, httperrors.ErrServiceUnavailable.WithDetail("face recognition is not configured"))
	case errors.Is(err, face.ErrUnavailable):
		httperrors.WriteLegacyError(w, httperrors.ErrServiceUnavailable.WithDetail("face service unavailable"))
	case errors.Is(err, otp.ErrDelivery):
		logger.From(r.Context()).Error("otp delivery failed", logger.Layer("controller"), logger.Err(err))
		httperrors.WriteLegacyError(w, httperrors.ErrServiceUnavailable.WithDetail("could not deliver the code"))
	case errors.Is(err, svc.ErrUnavailable),
		errors.Is(err, otp.ErrUnavailable),
		errors.Is(err, passkey.ErrUnavailable),
		errors.Is(err, identity.ErrUnavailable),
		errors.Is(err, session.ErrUnavailable):
		logger.From(r.Context()).Error("sdk dependency unavailable", logger.Layer("controller"), logger.Err(err))
		httperrors.WriteLegacyError(w, httperrors.ErrServiceUnavailable)

	default:
		logger.From(r.Context()).Error("sdk request failed", logger.Layer("controller"), logger.Err(err))
		httperrors.WriteLegacyError(w, httperrors.ErrInternalServerError)
	}
}

// detail quita el prefijo del paquete ("sdk: invalid input: x" -> "x").
func detail(err error) string {
	msg := err.Error()
	if i := strings.LastIndex(msg, ": "); i >= 0 {
		return msg[i+2:]
	}
	return msg
}
