package sdk

import (
	"context"
	"fmt"
	"strings"

	"github.com/dropDatabas3/izzu/internal/domain/repository"
	dto "github.com/dropDatabas3/izzu/internal/http/dto/sdk"
	"github.com/dropDatabas3/izzu/internal/identity"
	"github.com/dropDatabas3/izzu/internal/observability/logger"
	"github.com/dropDatabas3/izzu/internal/security/password"
)

// UsersService: alta directa con password (requiere secret key).
type UsersService interface {
	Create(ctx context.Context, projectID string, req dto.CreateUserRequest, meta Meta) (*dto.CreateUserResponse, error)
}

type usersService struct {
	users    repository.EndUserRepository
	resolver identity.Resolver
	policy   password.Policy
	params   password.Params
}

func NewUsersService(d Deps) UsersService {
	return &usersService{
		users:    d.Repos.EndUsers,
		resolver: d.Resolver,
		policy:   d.PasswordPolicy,
		params:   d.PasswordParams,
	}
}

// Create no modifica un usuario existente: lo devuelve con IsExisting.
func (s *usersService) Create(ctx context.Context, projectID string, req dto.CreateUserRequest, meta Meta) (*dto.CreateUserResponse, error) {
	email := normEmail(req.Email)
	if !strings.Contains(email, "@") || req.Password == "" {
		return nil, fmt.Errorf("%w: email and password are required", ErrInvalidInput)
	}
	if ok, reasons := s.policy.Validate(req.Password); !ok {
		return nil, &PolicyError{Reasons: reasons}
	}

	if u, err := s.users.GetByEmail(ctx, projectID, email); err == nil {
		return &dto.CreateUserResponse{Success: true, User: toUserDTO(u), IsExisting: true}, nil
	} else if !repository.IsNotFound(err) {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	hash, err := password.Hash(s.params, req.Password)
	if err != nil {
		return nil, err
	}
	res, err := s.resolver.Resolve(ctx, identity.Input{
		ProjectID:     projectID,
		Provider:      repository.ProviderEmail,
		ProviderID:    email,
		VerifiedEmail: email,
		DisplayName:   req.Name,
		Location:      toLocation(req.ResolvedLocation()),
		PasswordHash:  hash,
		Purpose:       identity.PurposeProvision,
		IPAddress:     meta.IPAddress,
		UserAgent:     meta.UserAgent,
	})
	if err != nil {
		return nil, err
	}
	logger.From(ctx).Info("sdk user provisioned",
		logger.Layer("service"), logger.ProjectID(projectID), logger.EndUserID(res.User.ID), logger.Bool("new", res.IsNew))
	return &dto.CreateUserResponse{Success: true, User: toUserDTO(res.User), IsExisting: !res.IsNew}, nil
}
