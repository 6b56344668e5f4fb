// Package memory implementa el Credential Repository en memoria.
//
// Pensado para desarrollo local (storage.driver=memory) y tests. Un único
// mutex protege todas las tablas, así que las operaciones "transaccionales"
// (CreateWithIdentity, CreateWithTenant, Project.Create) son atómicas y las
// restricciones de unicidad se comportan como en PostgreSQL.
package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/dropDatabas3/izzu/internal/domain/repository"
	"github.com/google/uuid"
)

// Store guarda todas las tablas detrás de un mutex.
type Store struct {
	mu  sync.RWMutex
	now func() time.Time

	tenants    map[string]*repository.Tenant
	tenantSlug map[string]string

	admins     map[string]*repository.Admin
	adminEmail map[string]string

	projects     map[string]*repository.Project
	projectSlugs map[string]string

	apiKeys       map[string]*repository.APIKey
	apiKeyByValue map[string]string // valor -> id

	users     map[string]*repository.EndUser
	userEmail map[string]string

	identities      map[string]*repository.Identity
	identityLookup  map[string]string // project|provider|providerId
	identityPerUser map[string]string // user|provider

	passkeys      map[string]*repository.Passkey
	passkeyByCred map[string]string

	sessions map[string]*repository.Session

	audit []repository.AuditEntry

	webhooks   map[string]*repository.Webhook
	deliveries []repository.WebhookDelivery
}

// New crea un store vacío.
func New() *Store {
	return &Store{
		now:             func() time.Time { return time.Now().UTC() },
		tenants:         map[string]*repository.Tenant{},
		tenantSlug:      map[string]string{},
		admins:          map[string]*repository.Admin{},
		adminEmail:      map[string]string{},
		projects:        map[string]*repository.Project{},
		projectSlugs:    map[string]string{},
		apiKeys:         map[string]*repository.APIKey{},
		apiKeyByValue:   map[string]string{},
		users:           map[string]*repository.EndUser{},
		userEmail:       map[string]string{},
		identities:      map[string]*repository.Identity{},
		identityLookup:  map[string]string{},
		identityPerUser: map[string]string{},
		passkeys:        map[string]*repository.Passkey{},
		passkeyByCred:   map[string]string{},
		sessions:        map[string]*repository.Session{},
		webhooks:        map[string]*repository.Webhook{},
	}
}

// WithClock reemplaza el reloj (tests).
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// Repositories implementa repository.Store.
func (s *Store) Repositories() repository.Repositories {
	return repository.Repositories{
		Tenants:    tenantRepo{s},
		Admins:     adminRepo{s},
		Projects:   projectRepo{s},
		APIKeys:    apiKeyRepo{s},
		EndUsers:   endUserRepo{s},
		Identities: identityRepo{s},
		Passkeys:   passkeyRepo{s},
		Sessions:   sessionRepo{s},
		Audit:      auditRepo{s},
		Webhooks:   webhookRepo{s},
	}
}

// Ping siempre responde OK.
func (s *Store) Ping(context.Context) error { return nil }

// Close no libera nada.
func (s *Store) Close() {}

// Deliveries devuelve una copia de las entregas registradas (tests).
func (s *Store) Deliveries() []repository.WebhookDelivery {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]repository.WebhookDelivery, len(s.deliveries))
	copy(out, s.deliveries)
	return out
}

func newID() string { return uuid.NewString() }

func key(parts ...string) string { return strings.Join(parts, "|") }

func norm(email string) string { return strings.ToLower(strings.TrimSpace(email)) }

func timePtr(t time.Time) *time.Time { return &t }
