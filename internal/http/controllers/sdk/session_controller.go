package sdk

import (
	"net/http"

	dto "github.com/dropDatabas3/izzu/internal/http/dto/sdk"
	"github.com/dropDatabas3/izzu/internal/http/helpers"
	svc "github.com/dropDatabas3/izzu/internal/http/services/sdk"
)

type SessionController struct {
	service svc.SessionService
}

// POST /sdk/session/validate (secret key)
func (c *SessionController) Validate(w http.ResponseWriter, r *http.Request) {
	var req dto.SessionValidateRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}
	res, err := c.service.Validate(r.Context(), projectID(r), req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, res)
}
