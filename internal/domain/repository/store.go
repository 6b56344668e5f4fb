package repository

import "context"

// Repositories agrupa todos los repositorios de un backend.
type Repositories struct {
	Tenants    TenantRepository
	Admins     AdminRepository
	Projects   ProjectRepository
	APIKeys    APIKeyRepository
	EndUsers   EndUserRepository
	Identities IdentityRepository
	Passkeys   PasskeyRepository
	Sessions   SessionRepository
	Audit      AuditRepository
	Webhooks   WebhookRepository
}

// Store es un backend de persistencia completo (pg o memory).
type Store interface {
	Repositories() Repositories
	Ping(ctx context.Context) error
	Close()
}

// Page pagina listados.
type Page struct {
	Limit  int
	Offset int
}

// Normalize aplica default 50 y tope 200.
func (p Page) Normalize() Page {
	if p.Limit <= 0 {
		p.Limit = 50
	}
	if p.Limit > 200 {
		p.Limit = 200
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}
