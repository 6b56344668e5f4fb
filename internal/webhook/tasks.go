// Package webhook notifica eventos de proyecto a endpoints del tenant.
// El publisher encola una tarea asynq por webhook suscripto; el worker la
// entrega firmada con HMAC-SHA256 y registra cada intento.
package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"
)

const (
	TypeDeliver = "webhook:deliver"

	MaxRetry        = 5
	TaskTimeout     = 30 * time.Second
	deliveryTimeout = 10 * time.Second

	HeaderEvent     = "X-Izzu-Event"
	HeaderWebhookID = "X-Izzu-Webhook-Id"
	HeaderSignature = "X-Izzu-Signature"
)

// DeliverPayload es el cuerpo de la tarea webhook:deliver.
type DeliverPayload struct {
	WebhookID string          `json:"webhook_id"`
	Event     string          `json:"event"`
	Body      json.RawMessage `json:"body"`
}

// Event es lo que recibe el endpoint del cliente.
type Event struct {
	ID        string         `json:"id"`
	Event     string         `json:"event"`
	ProjectID string         `json:"projectId"`
	CreatedAt time.Time      `json:"createdAt"`
	Data      map[string]any `json:"data"`
}

// Sign devuelve el valor de X-Izzu-Signature para body.
func Sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// Verify compara en tiempo constante; útil para consumidores y tests.
func Verify(body []byte, secret, signature string) bool {
	return hmac.Equal([]byte(Sign(body, secret)), []byte(signature))
}
