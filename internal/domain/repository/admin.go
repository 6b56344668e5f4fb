package repository

import (
	"context"
	"time"
)

// AdminRole es el rol del operador dentro de su tenant.
type AdminRole string

const (
	AdminRoleOwner  AdminRole = "owner"
	AdminRoleAdmin  AdminRole = "admin"
	AdminRoleMember AdminRole = "member"
)

// Admin es un operador del dashboard.
type Admin struct {
	ID              string
	TenantID        string
	Email           string
	DisplayName     string
	Mobile          string
	Location        *Location
	Role            AdminRole
	EmailVerifiedAt *time.Time
	LastLoginAt     *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// CreateAdminInput contiene los datos del admin owner en el signup.
type CreateAdminInput struct {
	Email         string
	DisplayName   string
	Mobile        string
	Location      *Location
	Role          AdminRole
	EmailVerified bool
}

// AdminRepository define operaciones sobre admins.
type AdminRepository interface {
	GetByID(ctx context.Context, id string) (*Admin, error)

	// GetByEmail busca por email normalizado.
	GetByEmail(ctx context.Context, email string) (*Admin, error)

	// CreateWithTenant crea tenant + admin en una transacción.
	// Retorna ErrConflict si el email o el slug ya existen; nada queda escrito.
	CreateWithTenant(ctx context.Context, tenant CreateTenantInput, admin CreateAdminInput) (*Admin, *Tenant, error)

	// TouchLogin actualiza last_login_at y, si viene, la ubicación.
	TouchLogin(ctx context.Context, id string, at time.Time, loc *Location) error
}
