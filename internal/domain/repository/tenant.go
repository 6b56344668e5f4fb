package repository

import (
	"context"
	"time"
)

// Tenant es la organización dueña de uno o más proyectos.
type Tenant struct {
	ID        string
	Name      string
	Slug      string
	Email     string // owner
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CreateTenantInput contiene los datos para crear un tenant.
type CreateTenantInput struct {
	Name  string
	Slug  string
	Email string
}

// TenantRepository define operaciones sobre tenants. Este core nunca los borra.
type TenantRepository interface {
	// Create retorna ErrConflict si el slug ya existe.
	Create(ctx context.Context, in CreateTenantInput) (*Tenant, error)

	GetByID(ctx context.Context, id string) (*Tenant, error)
}
