package admin

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	dto "github.com/dropDatabas3/izzu/internal/http/dto/admin"
	"github.com/dropDatabas3/izzu/internal/http/helpers"
	svc "github.com/dropDatabas3/izzu/internal/http/services/admin"
)

type WebhooksController struct {
	service svc.WebhooksService
}

// GET /admin/projects/{projectID}/webhooks
func (c *WebhooksController) List(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	hooks, err := c.service.List(r.Context(), p, chi.URLParam(r, "projectID"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	if hooks == nil {
		hooks = []dto.Webhook{}
	}
	helpers.WriteJSON(w, http.StatusOK, dto.WebhooksResponse{Webhooks: hooks})
}

// POST /admin/projects/{projectID}/webhooks
func (c *WebhooksController) Create(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	var req dto.CreateWebhookRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}
	hook, err := c.service.Create(r.Context(), p, chi.URLParam(r, "projectID"), req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	helpers.WriteJSON(w, http.StatusCreated, dto.WebhookCreatedResponse{
		Success: true,
		Webhook: *hook,
		Message: "Webhook created. Use the secret to verify X-Izzu-Signature.",
	})
}
