// Package admin contiene los services de la consola de administración:
// login de admins (OTP / OAuth), proyectos, API keys, usuarios, auditoría
// y webhooks. Todo lo que cuelga de un proyecto valida que pertenezca al
// tenant del admin autenticado.
package admin

import (
	"context"
	"errors"
	"fmt"

	"github.com/dropDatabas3/izzu/internal/audit"
	"github.com/dropDatabas3/izzu/internal/domain/repository"
	"github.com/dropDatabas3/izzu/internal/identity"
	"github.com/dropDatabas3/izzu/internal/otp"
	"github.com/dropDatabas3/izzu/internal/session"
)

var (
	ErrInvalidInput = errors.New("admin: invalid input")
	ErrInvalidOTP   = errors.New("admin: invalid otp")
	ErrUnauthorized = errors.New("admin: not authenticated")
	ErrForbidden    = errors.New("admin: project belongs to another tenant")
	ErrNotFound     = errors.New("admin: not found")
	ErrConflict     = errors.New("admin: already exists")
	ErrUnavailable  = errors.New("admin: store unavailable")
)

// Deps contiene las dependencias para crear los services admin.
type Deps struct {
	Repos    repository.Repositories
	Sessions session.Service
	OTP      otp.Service
	Audit    audit.Recorder
	// Resolver + PlatformProjectID habilitan el espejo del admin como
	// end user del proyecto de plataforma. Ambos opcionales.
	Resolver          identity.Resolver
	PlatformProjectID string
}

// Services agrupa todos los services del dominio admin.
type Services struct {
	Auth     AuthService
	Projects ProjectsService
	Keys     KeysService
	Users    UsersService
	Webhooks WebhooksService
}

// NewServices crea el agregador de services admin.
func NewServices(d Deps) Services {
	guard := projectGuard{projects: d.Repos.Projects}
	return Services{
		Auth:     NewAuthService(d),
		Projects: NewProjectsService(d.Repos.Projects, d.Audit),
		Keys:     NewKeysService(guard, d.Repos.APIKeys, d.Audit),
		Users:    NewUsersService(guard, d.Repos.EndUsers, d.Audit),
		Webhooks: NewWebhooksService(guard, d.Repos.Webhooks, d.Audit),
	}
}

// projectGuard resuelve un proyecto verificando que sea del tenant.
type projectGuard struct {
	projects repository.ProjectRepository
}

func (g projectGuard) own(ctx context.Context, tenantID, projectID string) (*repository.Project, error) {
	if projectID == "" {
		return nil, fmt.Errorf("%w: project id required", ErrInvalidInput)
	}
	p, err := g.projects.GetByID(ctx, projectID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, unavailable(err)
	}
	if p.TenantID != tenantID {
		return nil, ErrForbidden
	}
	return p, nil
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}
