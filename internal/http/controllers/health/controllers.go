// Package health contiene los endpoints de liveness y readiness.
package health

import (
	"net/http"

	"github.com/dropDatabas3/izzu/internal/http/helpers"
	svc "github.com/dropDatabas3/izzu/internal/http/services/health"
)

// Controllers agrupa todos los controllers del dominio health.
type Controllers struct {
	Health *HealthController
}

// NewControllers crea el agregador de controllers health.
func NewControllers(s svc.Services) *Controllers {
	return &Controllers{Health: &HealthController{service: s.Health}}
}

type HealthController struct {
	service svc.HealthService
}

// GET /healthz: el proceso responde.
func (c *HealthController) Live(w http.ResponseWriter, _ *http.Request) {
	helpers.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GET /readyz: 503 si un componente crítico está caído.
func (c *HealthController) Ready(w http.ResponseWriter, r *http.Request) {
	res := c.service.Check(r.Context())
	status := http.StatusOK
	if res.Status == "unavailable" {
		status = http.StatusServiceUnavailable
	}
	w.Header().Set("Cache-Control", "no-store")
	helpers.WriteJSON(w, status, res)
}
