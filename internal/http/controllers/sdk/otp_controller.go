package sdk

import (
	"net/http"

	dto "github.com/dropDatabas3/izzu/internal/http/dto/sdk"
	"github.com/dropDatabas3/izzu/internal/http/helpers"
	svc "github.com/dropDatabas3/izzu/internal/http/services/sdk"
)

type OTPController struct {
	service svc.OTPService
}

// POST /sdk/otp/send
func (c *OTPController) Send(w http.ResponseWriter, r *http.Request) {
	var req dto.OTPSendRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}
	res, err := c.service.Send(r.Context(), projectID(r), req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, res)
}

// POST /sdk/otp/verify
func (c *OTPController) Verify(w http.ResponseWriter, r *http.Request) {
	var req dto.OTPVerifyRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}
	res, err := c.service.Verify(r.Context(), projectID(r), req, helpers.Meta(r))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, res)
}
