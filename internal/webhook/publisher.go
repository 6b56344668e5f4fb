package webhook

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/dropDatabas3/izzu/internal/domain/repository"
	"github.com/dropDatabas3/izzu/internal/observability/logger"
	"github.com/dropDatabas3/izzu/internal/observability/metrics"
)

// Enqueuer es el subset de *asynq.Client que usamos.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Publisher implementa audit.Notifier sobre asynq.
type Publisher struct {
	repo repository.WebhookRepository
	q    Enqueuer
	now  func() time.Time
}

func NewPublisher(repo repository.WebhookRepository, q Enqueuer) *Publisher {
	return &Publisher{repo: repo, q: q, now: time.Now}
}

// Publish nunca falla hacia el caller: los errores se loguean.
func (p *Publisher) Publish(ctx context.Context, projectID, event string, data map[string]any) {
	log := logger.From(ctx).With(logger.Component("webhook"), logger.Op("Publish"),
		logger.ProjectID(projectID), logger.String("event", event))

	hooks, err := p.repo.ListActiveForEvent(ctx, projectID, event)
	if err != nil {
		log.Warn("list webhooks failed", logger.Err(err))
		return
	}
	if len(hooks) == 0 {
		return
	}

	body, err := json.Marshal(Event{
		ID:        uuid.NewString(),
		Event:     event,
		ProjectID: projectID,
		CreatedAt: p.now().UTC(),
		Data:      data,
	})
	if err != nil {
		log.Error("marshal event failed", logger.Err(err))
		return
	}

	for _, h := range hooks {
		payload, err := json.Marshal(DeliverPayload{WebhookID: h.ID, Event: event, Body: body})
		if err != nil {
			log.Error("marshal task failed", logger.Err(err))
			continue
		}
		task := asynq.NewTask(TypeDeliver, payload)
		if _, err := p.q.EnqueueContext(ctx, task, asynq.MaxRetry(MaxRetry), asynq.Timeout(TaskTimeout)); err != nil {
			metrics.Webhook("enqueue_error")
			log.Warn("enqueue webhook failed", logger.String("webhook_id", h.ID), logger.Err(err))
			continue
		}
		metrics.Webhook("enqueued")
	}
}

// LogPublisher reemplaza al Publisher cuando no hay Redis (driver memory).
type LogPublisher struct{}

func (LogPublisher) Publish(ctx context.Context, projectID, event string, data map[string]any) {
	logger.From(ctx).Info("webhook event (not delivered, no queue configured)",
		logger.Component("webhook"),
		logger.ProjectID(projectID),
		logger.String("event", event),
		logger.Int("fields", len(data)),
	)
}
