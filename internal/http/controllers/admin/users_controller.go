package admin

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	dto "github.com/dropDatabas3/izzu/internal/http/dto/admin"
	"github.com/dropDatabas3/izzu/internal/http/helpers"
	svc "github.com/dropDatabas3/izzu/internal/http/services/admin"
)

type UsersController struct {
	service svc.UsersService
}

// GET /admin/projects/{projectID}/users?limit=&offset=
func (c *UsersController) List(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	users, err := c.service.List(r.Context(), p, chi.URLParam(r, "projectID"), helpers.Page(r))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	if users == nil {
		users = []dto.EndUser{}
	}
	helpers.WriteJSON(w, http.StatusOK, dto.UsersResponse{Users: users})
}

// GET /admin/projects/{projectID}/audit-logs?limit=&offset=
func (c *UsersController) AuditLogs(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	logs, err := c.service.AuditLogs(r.Context(), p, chi.URLParam(r, "projectID"), helpers.Page(r))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	if logs == nil {
		logs = []dto.AuditEntry{}
	}
	helpers.WriteJSON(w, http.StatusOK, dto.AuditResponse{Logs: logs})
}

// GET /admin/projects/{projectID}/analytics
func (c *UsersController) Analytics(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	out, err := c.service.Analytics(r.Context(), p, chi.URLParam(r, "projectID"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, out)
}
