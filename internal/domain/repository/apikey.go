package repository

import (
	"context"
	"time"
)

// KeyType determina el nivel de confianza del caller.
type KeyType string

const (
	// KeyTypePublishable es segura para embeber en clientes.
	KeyTypePublishable KeyType = "publishable"
	// KeyTypeSecret solo para servidores del tenant.
	KeyTypeSecret KeyType = "secret"
)

// Valid reporta si t es un tipo conocido.
func (t KeyType) Valid() bool {
	return t == KeyTypePublishable || t == KeyTypeSecret
}

// APIKey es una credencial bearer atada a un único proyecto.
// El valor es único globalmente y no expira.
type APIKey struct {
	ID         string
	ProjectID  string
	Key        string
	Type       KeyType
	Name       string
	LastUsedAt *time.Time
	CreatedAt  time.Time
}

// CreateAPIKeyInput contiene los datos para registrar una key.
type CreateAPIKeyInput struct {
	ProjectID string
	Key       string
	Type      KeyType
	Name      string
}

// APIKeyRepository es el registro de API keys.
type APIKeyRepository interface {
	// Create retorna ErrConflict si el valor ya existe.
	Create(ctx context.Context, in CreateAPIKeyInput) (*APIKey, error)

	// GetByKey busca por valor exacto. ErrNotFound si no existe.
	GetByKey(ctx context.Context, key string) (*APIKey, error)

	ListByProject(ctx context.Context, projectID string) ([]APIKey, error)

	TouchLastUsed(ctx context.Context, id string, at time.Time) error
}
