package repository

import (
	"context"
	"time"
)

// Proveedores de identidad soportados.
const (
	ProviderEmail     = "email"
	ProviderPhone     = "phone"
	ProviderGoogle    = "google"
	ProviderGitHub    = "github"
	ProviderApple     = "apple"
	ProviderMicrosoft = "microsoft"
)

// ValidProvider reporta si p es un proveedor conocido.
func ValidProvider(p string) bool {
	switch p {
	case ProviderEmail, ProviderPhone, ProviderGoogle, ProviderGitHub, ProviderApple, ProviderMicrosoft:
		return true
	}
	return false
}

// Identity vincula un end user con un proveedor.
// Únicos: (EndUserID, Provider) y (ProjectID, Provider, ProviderID).
type Identity struct {
	ID           string
	ProjectID    string
	EndUserID    string
	Provider     string
	ProviderID   string // email, teléfono o subject del proveedor
	PasswordHash string
	VerifiedAt   *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// CreateIdentityInput contiene los datos de un nuevo vínculo.
type CreateIdentityInput struct {
	ProjectID    string
	EndUserID    string
	Provider     string
	ProviderID   string
	PasswordHash string
	Verified     bool
}

// IdentityRepository define operaciones sobre identidades.
type IdentityRepository interface {
	// GetByProvider es la clave de lookup de OAuth/OTP dentro del proyecto.
	GetByProvider(ctx context.Context, projectID, provider, providerID string) (*Identity, error)

	GetByUserProvider(ctx context.Context, endUserID, provider string) (*Identity, error)

	ListByUser(ctx context.Context, endUserID string) ([]Identity, error)

	// Create retorna ErrConflict ante cualquier violación de unicidad.
	Create(ctx context.Context, in CreateIdentityInput) (*Identity, error)

	SetPasswordHash(ctx context.Context, id, hash string) error
}
