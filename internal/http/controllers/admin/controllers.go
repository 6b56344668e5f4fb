// Package admin contiene los controllers de la consola: login de admins por
// OTP y los recursos por proyecto detrás de la cookie de sesión.
package admin

import (
	"github.com/dropDatabas3/izzu/internal/http/helpers"
	svc "github.com/dropDatabas3/izzu/internal/http/services/admin"
)

// Controllers agrupa todos los controllers del dominio admin.
type Controllers struct {
	Auth     *AuthController
	Projects *ProjectsController
	Keys     *KeysController
	Users    *UsersController
	Webhooks *WebhooksController
}

// NewControllers crea el agregador de controllers admin.
func NewControllers(s svc.Services, cookie helpers.CookieConfig) *Controllers {
	return &Controllers{
		Auth:     NewAuthController(s.Auth, cookie),
		Projects: &ProjectsController{service: s.Projects},
		Keys:     &KeysController{service: s.Keys},
		Users:    &UsersController{service: s.Users},
		Webhooks: &WebhooksController{service: s.Webhooks},
	}
}
