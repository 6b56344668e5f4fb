package admin

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/dropDatabas3/izzu/internal/audit"
	"github.com/dropDatabas3/izzu/internal/domain/repository"
	dto "github.com/dropDatabas3/izzu/internal/http/dto/admin"
	"github.com/dropDatabas3/izzu/internal/security/token"
)

// DefaultWebhookEvents se usan cuando el alta no indica eventos.
var DefaultWebhookEvents = []string{audit.ActionUserSignup, audit.ActionUserLogin, audit.ActionUserUpdated}

// WebhooksService define alta y listado de webhooks de un proyecto.
type WebhooksService interface {
	Create(ctx context.Context, p Principal, projectID string, req dto.CreateWebhookRequest) (*dto.Webhook, error)
	List(ctx context.Context, p Principal, projectID string) ([]dto.Webhook, error)
}

type webhooksService struct {
	guard    projectGuard
	webhooks repository.WebhookRepository
	audit    audit.Recorder
}

func NewWebhooksService(guard projectGuard, webhooks repository.WebhookRepository, rec audit.Recorder) WebhooksService {
	return &webhooksService{guard: guard, webhooks: webhooks, audit: rec}
}

func (s *webhooksService) Create(ctx context.Context, p Principal, projectID string, req dto.CreateWebhookRequest) (*dto.Webhook, error) {
	target := strings.TrimSpace(req.URL)
	u, err := url.Parse(target)
	if err != nil || (u.Scheme != "https" && u.Scheme != "http") || u.Host == "" {
		return nil, fmt.Errorf("%w: url must be an absolute http(s) url", ErrInvalidInput)
	}
	proj, err := s.guard.own(ctx, p.TenantID, projectID)
	if err != nil {
		return nil, err
	}

	events := cleanEvents(req.Events)
	if len(events) == 0 {
		events = append([]string(nil), DefaultWebhookEvents...)
	}
	h, err := token.RandomHex(24)
	if err != nil {
		return nil, err
	}
	secret := "whsec_" + h

	w, err := s.webhooks.Create(ctx, repository.CreateWebhookInput{
		ProjectID: proj.ID,
		URL:       target,
		Secret:    secret,
		Events:    events,
	})
	if err != nil {
		return nil, unavailable(err)
	}
	if s.audit != nil {
		s.audit.Record(ctx, repository.AuditEntry{
			ProjectID: proj.ID,
			ActorID:   p.AdminID,
			ActorType: repository.ActorAdmin,
			Action:    audit.ActionWebhookCreated,
			Resource:  "webhook:" + w.ID,
			Metadata:  map[string]any{"url": target, "events": events},
		})
	}
	out := toWebhookDTO(w)
	out.Secret = secret
	return &out, nil
}

func (s *webhooksService) List(ctx context.Context, p Principal, projectID string) ([]dto.Webhook, error) {
	proj, err := s.guard.own(ctx, p.TenantID, projectID)
	if err != nil {
		return nil, err
	}
	ws, err := s.webhooks.ListByProject(ctx, proj.ID)
	if err != nil {
		return nil, unavailable(err)
	}
	out := make([]dto.Webhook, 0, len(ws))
	for i := range ws {
		out = append(out, toWebhookDTO(&ws[i]))
	}
	return out, nil
}

func toWebhookDTO(w *repository.Webhook) dto.Webhook {
	return dto.Webhook{
		ID:        w.ID,
		URL:       w.URL,
		Events:    w.Events,
		Active:    w.Active,
		CreatedAt: w.CreatedAt,
	}
}

func cleanEvents(in []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, e := range in {
		e = strings.TrimSpace(e)
		if e == "" || seen[e] {
			continue
		}
		seen[e] = true
		out = append(out, e)
	}
	return out
}
