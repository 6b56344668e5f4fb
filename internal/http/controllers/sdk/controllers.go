// Package sdk contiene los controllers de /sdk/*. El proyecto sale siempre
// del grant que dejó el middleware de API key, nunca del body.
package sdk

import (
	"net/http"

	"github.com/dropDatabas3/izzu/internal/http/middlewares"
	svc "github.com/dropDatabas3/izzu/internal/http/services/sdk"
)

// Controllers agrupa los controllers SDK.
type Controllers struct {
	OTP      *OTPController
	Users    *UsersController
	Face     *FaceController
	Passkeys *PasskeyController
	Sessions *SessionController
}

// NewControllers crea el agregador. maxUpload acota las imágenes de face.
func NewControllers(s svc.Services, maxUpload int64) *Controllers {
	return &Controllers{
		OTP:      &OTPController{service: s.OTP},
		Users:    &UsersController{service: s.Users},
		Face:     &FaceController{service: s.Face, maxUpload: maxUpload},
		Passkeys: &PasskeyController{service: s.Passkeys},
		Sessions: &SessionController{service: s.Sessions},
	}
}

func projectID(r *http.Request) string {
	if g := middlewares.GetGrant(r.Context()); g != nil {
		return g.ProjectID
	}
	return ""
}

// endUserID sale de la sesión validada por RequireEndUserSession.
func endUserID(r *http.Request) string {
	if s := middlewares.GetEndUserSession(r.Context()); s != nil {
		return s.PrincipalID
	}
	return ""
}
