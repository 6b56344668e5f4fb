package admin

import "time"

// CreateWebhookRequest para POST /admin/projects/{projectID}/webhooks
type CreateWebhookRequest struct {
	URL    string   `json:"url"`
	Events []string `json:"events,omitempty"`
}

type Webhook struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	Events    []string  `json:"events"`
	Active    bool      `json:"active"`
	Secret    string    `json:"secret,omitempty"` // solo en el alta
	CreatedAt time.Time `json:"createdAt"`
}

type WebhookCreatedResponse struct {
	Success bool    `json:"success"`
	Webhook Webhook `json:"webhook"`
	Message string  `json:"message"`
}

type WebhooksResponse struct {
	Webhooks []Webhook `json:"webhooks"`
}
