package repository

import (
	"context"
	"time"
)

// ActorType identifica quién disparó el evento.
type ActorType string

const (
	ActorUser   ActorType = "user"
	ActorAPIKey ActorType = "api_key"
	ActorSystem ActorType = "system"
	ActorAdmin  ActorType = "admin"
)

// AuditEntry es un registro append-only.
type AuditEntry struct {
	ID        string
	ProjectID string
	ActorID   string
	ActorType ActorType
	Action    string // ej: user.login
	Resource  string // ej: user:<id>
	Metadata  map[string]any
	IPAddress string
	UserAgent string
	CreatedAt time.Time
}

// AuditRepository define el sink de auditoría.
type AuditRepository interface {
	Append(ctx context.Context, e AuditEntry) error

	// List devuelve las entradas más recientes primero.
	List(ctx context.Context, projectID string, page Page) ([]AuditEntry, error)
}
