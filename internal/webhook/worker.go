package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hibiken/asynq"

	"github.com/dropDatabas3/izzu/internal/domain/repository"
	"github.com/dropDatabas3/izzu/internal/observability/logger"
	"github.com/dropDatabas3/izzu/internal/observability/metrics"
)

// Worker entrega tareas webhook:deliver.
type Worker struct {
	repo repository.WebhookRepository
	http *http.Client
	now  func() time.Time
}

func NewWorker(repo repository.WebhookRepository) *Worker {
	return &Worker{
		repo: repo,
		http: &http.Client{Timeout: deliveryTimeout},
		now:  time.Now,
	}
}

// Register engancha el handler en el mux del servidor asynq.
func (w *Worker) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TypeDeliver, w.ProcessTask)
}

// ProcessTask devuelve error ante respuestas no-2xx para que asynq reintente.
func (w *Worker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var p DeliverPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("webhook: bad payload: %v: %w", err, asynq.SkipRetry)
	}
	log := logger.From(ctx).With(logger.Component("webhook"), logger.Op("ProcessTask"),
		logger.String("webhook_id", p.WebhookID), logger.String("event", p.Event))

	hook, err := w.repo.GetByID(ctx, p.WebhookID)
	if err != nil {
		if repository.IsNotFound(err) {
			log.Info("webhook gone, dropping delivery")
			return fmt.Errorf("webhook %s not found: %w", p.WebhookID, asynq.SkipRetry)
		}
		return err
	}
	if !hook.Active {
		return nil
	}

	attempt := 1
	if n, ok := asynq.GetRetryCount(ctx); ok {
		attempt = n + 1
	}

	status, derr := w.deliver(ctx, hook, p)
	rec := repository.WebhookDelivery{
		WebhookID:      hook.ID,
		Event:          p.Event,
		Payload:        p.Body,
		ResponseStatus: status,
		Attempt:        attempt,
	}
	if derr == nil {
		now := w.now().UTC()
		rec.DeliveredAt = &now
	}
	if err := w.repo.RecordDelivery(ctx, rec); err != nil {
		log.Warn("record delivery failed", logger.Err(err))
	}

	if derr != nil {
		metrics.Webhook("failed")
		log.Warn("webhook delivery failed", logger.Int("attempt", attempt), logger.Status(status), logger.Err(derr))
		return derr
	}
	metrics.Webhook("delivered")
	return nil
}

func (w *Worker) deliver(ctx context.Context, hook *repository.Webhook, p DeliverPayload) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, hook.URL, bytes.NewReader(p.Body))
	if err != nil {
		return 0, fmt.Errorf("webhook: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "izzu-webhooks/1")
	req.Header.Set(HeaderEvent, p.Event)
	req.Header.Set(HeaderWebhookID, hook.ID)
	req.Header.Set(HeaderSignature, Sign(p.Body, hook.Secret))

	resp, err := w.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("webhook: post: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode/100 != 2 {
		return resp.StatusCode, fmt.Errorf("webhook: endpoint returned %d", resp.StatusCode)
	}
	return resp.StatusCode, nil
}
