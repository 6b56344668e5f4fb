package repository

import (
	"context"
	"time"
)

// ProjectConfig es el blob de configuración del proyecto (jsonb).
type ProjectConfig struct {
	SecretKeyID    string   `json:"secretKeyId,omitempty"`
	AllowedOrigins []string `json:"allowedOrigins,omitempty"`
}

// Project es el límite lógico de una aplicación del tenant.
// APIKey es la publishable key activa guardada en la fila.
type Project struct {
	ID        string
	TenantID  string
	Name      string
	Slug      string
	APIKey    string
	Config    ProjectConfig
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CreateProjectInput crea el proyecto junto a su par de keys.
type CreateProjectInput struct {
	TenantID       string
	Name           string
	Slug           string
	PublishableKey string
	SecretKey      string
	AllowedOrigins []string
}

// ProjectRepository define operaciones sobre proyectos.
type ProjectRepository interface {
	// Create inserta proyecto + publishable key + secret key en una transacción
	// y deja Config.SecretKeyID apuntando a la secret. ErrConflict si el slug
	// ya existe en el tenant o si una key colisiona.
	Create(ctx context.Context, in CreateProjectInput) (*Project, []APIKey, error)

	GetByID(ctx context.Context, id string) (*Project, error)

	ListByTenant(ctx context.Context, tenantID string) ([]Project, error)
}
