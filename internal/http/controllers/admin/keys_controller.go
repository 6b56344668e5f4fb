package admin

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	dto "github.com/dropDatabas3/izzu/internal/http/dto/admin"
	"github.com/dropDatabas3/izzu/internal/http/helpers"
	svc "github.com/dropDatabas3/izzu/internal/http/services/admin"
)

type KeysController struct {
	service svc.KeysService
}

// GET /admin/projects/{projectID}/keys
func (c *KeysController) List(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	keys, err := c.service.List(r.Context(), p, chi.URLParam(r, "projectID"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	if keys == nil {
		keys = []dto.Key{}
	}
	helpers.WriteJSON(w, http.StatusOK, dto.KeysResponse{Keys: keys})
}

// POST /admin/projects/{projectID}/keys
func (c *KeysController) Create(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	var req dto.CreateKeyRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}
	key, err := c.service.Create(r.Context(), p, chi.URLParam(r, "projectID"), req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	helpers.WriteJSON(w, http.StatusCreated, dto.KeyCreatedResponse{Success: true, Key: *key, Message: "API key created"})
}
