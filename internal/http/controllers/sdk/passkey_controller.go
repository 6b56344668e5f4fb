package sdk

import (
	"net/http"

	dto "github.com/dropDatabas3/izzu/internal/http/dto/sdk"
	"github.com/dropDatabas3/izzu/internal/http/helpers"
	svc "github.com/dropDatabas3/izzu/internal/http/services/sdk"
)

type PasskeyController struct {
	service svc.PasskeyService
}

// POST /sdk/passkey/register/begin (Authorization: Bearer <sesión del end user>)
func (c *PasskeyController) RegisterBegin(w http.ResponseWriter, r *http.Request) {
	var req dto.PasskeyRegisterBeginRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}
	opts, err := c.service.BeginRegistration(r.Context(), projectID(r), endUserID(r))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, opts)
}

// POST /sdk/passkey/register/complete (Authorization: Bearer)
func (c *PasskeyController) RegisterComplete(w http.ResponseWriter, r *http.Request) {
	var req dto.PasskeyRegisterCompleteRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}
	res, err := c.service.FinishRegistration(r.Context(), projectID(r), endUserID(r), req, helpers.Meta(r))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, res)
}

// POST /sdk/passkey/login/begin
func (c *PasskeyController) LoginBegin(w http.ResponseWriter, r *http.Request) {
	var req dto.PasskeyLoginBeginRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}
	res, err := c.service.BeginLogin(r.Context(), projectID(r), req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, res)
}

// POST /sdk/passkey/login/complete
func (c *PasskeyController) LoginComplete(w http.ResponseWriter, r *http.Request) {
	var req dto.PasskeyLoginCompleteRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}
	res, err := c.service.FinishLogin(r.Context(), projectID(r), req, helpers.Meta(r))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, res)
}
