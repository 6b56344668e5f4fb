package sdk

import (
	"net/http"

	dto "github.com/dropDatabas3/izzu/internal/http/dto/sdk"
	"github.com/dropDatabas3/izzu/internal/http/helpers"
	svc "github.com/dropDatabas3/izzu/internal/http/services/sdk"
)

type UsersController struct {
	service svc.UsersService
}

// POST /sdk/user/create (secret key)
func (c *UsersController) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateUserRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}
	res, err := c.service.Create(r.Context(), projectID(r), req, helpers.Meta(r))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	status := http.StatusCreated
	if res.IsExisting {
		status = http.StatusOK
	}
	helpers.WriteJSON(w, status, res)
}
