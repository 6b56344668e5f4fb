package admin

import (
	"context"
	"fmt"
	"strings"

	"github.com/dropDatabas3/izzu/internal/apikey"
	"github.com/dropDatabas3/izzu/internal/audit"
	"github.com/dropDatabas3/izzu/internal/domain/repository"
	dto "github.com/dropDatabas3/izzu/internal/http/dto/admin"
	"github.com/dropDatabas3/izzu/internal/observability/logger"
)

// ProjectsService define alta y listado de proyectos del tenant.
type ProjectsService interface {
	Create(ctx context.Context, p Principal, req dto.CreateProjectRequest) (*dto.ProjectCreated, error)
	List(ctx context.Context, p Principal) ([]dto.Project, error)
}

type projectsService struct {
	projects repository.ProjectRepository
	audit    audit.Recorder
}

func NewProjectsService(projects repository.ProjectRepository, rec audit.Recorder) ProjectsService {
	return &projectsService{projects: projects, audit: rec}
}

func (s *projectsService) Create(ctx context.Context, p Principal, req dto.CreateProjectRequest) (*dto.ProjectCreated, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("admin.projects"),
		logger.Op("Create"),
		logger.TenantID(p.TenantID),
	)

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	slug := Slugify(req.Slug)
	if slug == "" {
		slug = Slugify(name)
	}
	if slug == "" {
		return nil, fmt.Errorf("%w: slug is required", ErrInvalidInput)
	}

	pk, err := apikey.GenerateKey(repository.KeyTypePublishable)
	if err != nil {
		return nil, err
	}
	sk, err := apikey.GenerateKey(repository.KeyTypeSecret)
	if err != nil {
		return nil, err
	}

	proj, _, err := s.projects.Create(ctx, repository.CreateProjectInput{
		TenantID:       p.TenantID,
		Name:           name,
		Slug:           slug,
		PublishableKey: pk,
		SecretKey:      sk,
		AllowedOrigins: req.AllowedOrigins,
	})
	if err != nil {
		if repository.IsConflict(err) {
			return nil, fmt.Errorf("%w: project slug already exists", ErrConflict)
		}
		log.Error("create project failed", logger.Err(err))
		return nil, unavailable(err)
	}

	log.Info("project created", logger.ProjectID(proj.ID))
	if s.audit != nil {
		s.audit.Record(ctx, repository.AuditEntry{
			ProjectID: proj.ID,
			ActorID:   p.AdminID,
			ActorType: repository.ActorAdmin,
			Action:    "project.created",
			Resource:  "project:" + proj.ID,
		})
	}
	return &dto.ProjectCreated{Project: toProjectDTO(proj), SecretKey: sk}, nil
}

func (s *projectsService) List(ctx context.Context, p Principal) ([]dto.Project, error) {
	ps, err := s.projects.ListByTenant(ctx, p.TenantID)
	if err != nil {
		return nil, unavailable(err)
	}
	out := make([]dto.Project, 0, len(ps))
	for i := range ps {
		out = append(out, toProjectDTO(&ps[i]))
	}
	return out, nil
}

func toProjectDTO(p *repository.Project) dto.Project {
	return dto.Project{
		ID:             p.ID,
		Name:           p.Name,
		Slug:           p.Slug,
		APIKey:         p.APIKey,
		AllowedOrigins: p.Config.AllowedOrigins,
		CreatedAt:      p.CreatedAt,
	}
}

// Slugify deja [a-z0-9-], sin guiones repetidos ni en los bordes.
func Slugify(s string) string {
	s = slugUnsafe.ReplaceAllString(strings.ToLower(strings.TrimSpace(s)), "-")
	for strings.Contains(s, "--") {
		s = strings.ReplaceAll(s, "--", "-")
	}
	return strings.Trim(s, "-")
}
