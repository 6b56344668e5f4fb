package admin

import (
	"net/http"

	dto "github.com/dropDatabas3/izzu/internal/http/dto/admin"
	httperrors "github.com/dropDatabas3/izzu/internal/http/errors"
	"github.com/dropDatabas3/izzu/internal/http/helpers"
	"github.com/dropDatabas3/izzu/internal/http/middlewares"
	svc "github.com/dropDatabas3/izzu/internal/http/services/admin"
)

type ProjectsController struct {
	service svc.ProjectsService
}

// principal devuelve el admin autenticado o escribe 401.
func principal(w http.ResponseWriter, r *http.Request) (svc.Principal, bool) {
	p := middlewares.GetAdmin(r.Context())
	if p == nil {
		httperrors.WriteError(w, httperrors.ErrUnauthorized)
		return svc.Principal{}, false
	}
	return *p, true
}

// GET /admin/projects
func (c *ProjectsController) List(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	projects, err := c.service.List(r.Context(), p)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	if projects == nil {
		projects = []dto.Project{}
	}
	helpers.WriteJSON(w, http.StatusOK, dto.ProjectsResponse{Projects: projects})
}

// POST /admin/projects
func (c *ProjectsController) Create(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	var req dto.CreateProjectRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}
	created, err := c.service.Create(r.Context(), p, req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	helpers.WriteJSON(w, http.StatusCreated, dto.ProjectCreatedResponse{
		Project: *created,
		Message: "Project created. Store the secret key now: it will not be shown again.",
	})
}
