package repository

import (
	"context"
	"time"
)

// Webhook es un endpoint del tenant suscripto a eventos de un proyecto.
type Webhook struct {
	ID        string
	ProjectID string
	URL       string
	Secret    string
	Events    []string
	Active    bool
	CreatedAt time.Time
}

// Subscribed reporta si el webhook está activo y escucha event.
func (w *Webhook) Subscribed(event string) bool {
	if !w.Active {
		return false
	}
	for _, e := range w.Events {
		if e == event || e == "*" {
			return true
		}
	}
	return false
}

// CreateWebhookInput contiene los datos de alta.
type CreateWebhookInput struct {
	ProjectID string
	URL       string
	Secret    string
	Events    []string
}

// WebhookDelivery registra un intento de entrega.
type WebhookDelivery struct {
	WebhookID      string
	Event          string
	Payload        []byte
	ResponseStatus int
	Attempt        int
	DeliveredAt    *time.Time
}

// WebhookRepository define operaciones sobre webhooks.
type WebhookRepository interface {
	Create(ctx context.Context, in CreateWebhookInput) (*Webhook, error)

	GetByID(ctx context.Context, id string) (*Webhook, error)

	ListByProject(ctx context.Context, projectID string) ([]Webhook, error)

	// ListActiveForEvent devuelve los webhooks activos que escuchan event.
	ListActiveForEvent(ctx context.Context, projectID, event string) ([]Webhook, error)

	RecordDelivery(ctx context.Context, d WebhookDelivery) error
}
