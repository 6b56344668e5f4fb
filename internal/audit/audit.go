// Package audit registra eventos append-only por proyecto. Registrar es
// best-effort: un fallo del sink se loguea y nunca afecta al request.
package audit

import (
	"context"
	"time"

	"github.com/dropDatabas3/izzu/internal/domain/repository"
	"github.com/dropDatabas3/izzu/internal/observability/logger"
)

// Acciones conocidas.
const (
	ActionUserSignup     = "user.signup"
	ActionUserLogin      = "user.login"
	ActionUserUpdated    = "user.updated"
	ActionPasskeyAdded   = "passkey.registered"
	ActionFaceRegistered = "face.registered"
	ActionFaceVerified   = "face.verified"
	ActionAPIKeyCreated  = "api_key.created"
	ActionWebhookCreated = "webhook.created"
)

// Eventos que además se notifican a los webhooks del proyecto.
var notifiable = map[string]bool{
	ActionUserSignup:  true,
	ActionUserLogin:   true,
	ActionUserUpdated: true,
}

// Notifier recibe los eventos notificables (webhook.Publisher).
type Notifier interface {
	Publish(ctx context.Context, projectID, event string, data map[string]any)
}

type Recorder interface {
	Record(ctx context.Context, e repository.AuditEntry)
	List(ctx context.Context, projectID string, page repository.Page) ([]repository.AuditEntry, error)
}

type recorder struct {
	repo     repository.AuditRepository
	notifier Notifier
	now      func() time.Time
}

// NewRecorder; notifier puede ser nil.
func NewRecorder(repo repository.AuditRepository, notifier Notifier) Recorder {
	return &recorder{repo: repo, notifier: notifier, now: time.Now}
}

func (r *recorder) Record(ctx context.Context, e repository.AuditEntry) {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = r.now().UTC()
	}
	if e.ActorType == "" {
		e.ActorType = repository.ActorSystem
	}
	if err := r.repo.Append(ctx, e); err != nil {
		logger.From(ctx).Warn("audit append failed",
			logger.Layer("service"),
			logger.Op("audit.Record"),
			logger.ProjectID(e.ProjectID),
			logger.String("action", e.Action),
			logger.Err(err))
	}

	if r.notifier != nil && notifiable[e.Action] && e.ProjectID != "" {
		data := map[string]any{
			"actorId":   e.ActorID,
			"resource":  e.Resource,
			"metadata":  e.Metadata,
			"timestamp": e.CreatedAt.Format(time.RFC3339),
		}
		r.notifier.Publish(ctx, e.ProjectID, e.Action, data)
	}
}

func (r *recorder) List(ctx context.Context, projectID string, page repository.Page) ([]repository.AuditEntry, error) {
	return r.repo.List(ctx, projectID, page.Normalize())
}
