package admin

import (
	"net/http"

	dto "github.com/dropDatabas3/izzu/internal/http/dto/admin"
	httperrors "github.com/dropDatabas3/izzu/internal/http/errors"
	"github.com/dropDatabas3/izzu/internal/http/helpers"
	"github.com/dropDatabas3/izzu/internal/http/middlewares"
	svc "github.com/dropDatabas3/izzu/internal/http/services/admin"
)

type AuthController struct {
	service svc.AuthService
	cookie  helpers.CookieConfig
}

func NewAuthController(service svc.AuthService, cookie helpers.CookieConfig) *AuthController {
	return &AuthController{service: service, cookie: cookie}
}

// POST /admin/auth/otp/send
func (c *AuthController) SendOTP(w http.ResponseWriter, r *http.Request) {
	var req dto.OTPSendRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}
	issued, err := c.service.SendOTP(r.Context(), req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	res := dto.OTPSendResponse{Success: true, Message: "OTP sent"}
	if issued.DevMode {
		res.Message = "OTP generated (dev mode)"
		res.OTP = issued.Code
		res.DevMode = true
	}
	helpers.WriteJSON(w, http.StatusOK, res)
}

// POST /admin/auth/otp/verify
func (c *AuthController) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req dto.OTPVerifyRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}
	res, err := c.service.VerifyOTP(r.Context(), req, helpers.Meta(r))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	http.SetCookie(w, helpers.BuildCookie(c.cookie, res.SessionToken, res.ExpiresAt))
	helpers.WriteJSON(w, http.StatusOK, dto.VerifyResponse{Success: true, SignInResult: *res})
}

// POST /admin/auth/logout
func (c *AuthController) Logout(w http.ResponseWriter, r *http.Request) {
	if err := c.service.Logout(r.Context(), middlewares.GetAdminToken(r.Context())); err != nil {
		handleServiceError(w, r, err)
		return
	}
	http.SetCookie(w, helpers.BuildDeletionCookie(c.cookie))
	helpers.WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// GET /admin/me
func (c *AuthController) Me(w http.ResponseWriter, r *http.Request) {
	p := middlewares.GetAdmin(r.Context())
	if p == nil {
		httperrors.WriteError(w, httperrors.ErrUnauthorized)
		return
	}
	me, err := c.service.Me(r.Context(), *p)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, me)
}
