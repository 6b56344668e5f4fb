package sdk

import (
	"context"
	"errors"
	"fmt"

	"github.com/dropDatabas3/izzu/internal/domain/repository"
	dto "github.com/dropDatabas3/izzu/internal/http/dto/sdk"
	"github.com/dropDatabas3/izzu/internal/session"
)

// SessionService permite al backend del cliente validar tokens de end users.
type SessionService interface {
	Validate(ctx context.Context, projectID string, req dto.SessionValidateRequest) (*dto.SessionValidateResponse, error)
}

type sessionService struct {
	sessions session.Service
}

func NewSessionService(s session.Service) SessionService {
	return &sessionService{sessions: s}
}

// Validate responde valid=false ante token vencido, ajeno al proyecto o de admin.
func (s *sessionService) Validate(ctx context.Context, projectID string, req dto.SessionValidateRequest) (*dto.SessionValidateResponse, error) {
	if req.Token == "" {
		return nil, fmt.Errorf("%w: token is required", ErrInvalidInput)
	}
	sess, err := s.sessions.Validate(ctx, req.Token)
	if errors.Is(err, session.ErrInvalid) {
		return &dto.SessionValidateResponse{Valid: false}, nil
	}
	if err != nil {
		return nil, err
	}
	if sess.PrincipalType != repository.PrincipalEndUser || sess.ProjectID != projectID {
		return &dto.SessionValidateResponse{Valid: false}, nil
	}
	exp := sess.ExpiresAt
	return &dto.SessionValidateResponse{Valid: true, UserID: sess.PrincipalID, ExpiresAt: &exp}, nil
}
