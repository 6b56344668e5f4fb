package sdk

import (
	"context"
	"fmt"

	"github.com/go-webauthn/webauthn/protocol"

	"github.com/dropDatabas3/izzu/internal/audit"
	"github.com/dropDatabas3/izzu/internal/domain/repository"
	dto "github.com/dropDatabas3/izzu/internal/http/dto/sdk"
	"github.com/dropDatabas3/izzu/internal/observability/logger"
	"github.com/dropDatabas3/izzu/internal/passkey"
	"github.com/dropDatabas3/izzu/internal/session"
)

// PasskeyService envuelve las ceremonias WebAuthn y emite la sesión al final
// del login. El registro recibe el end user ya autenticado por su sesión.
type PasskeyService interface {
	BeginRegistration(ctx context.Context, projectID, endUserID string) (*protocol.CredentialCreation, error)
	FinishRegistration(ctx context.Context, projectID, endUserID string, req dto.PasskeyRegisterCompleteRequest, meta Meta) (*dto.PasskeyRegisterCompleteResponse, error)
	BeginLogin(ctx context.Context, projectID string, req dto.PasskeyLoginBeginRequest) (*dto.PasskeyLoginBeginResponse, error)
	FinishLogin(ctx context.Context, projectID string, req dto.PasskeyLoginCompleteRequest, meta Meta) (*dto.PasskeyLoginCompleteResponse, error)
}

type passkeyService struct {
	mgr      *passkey.Manager
	users    repository.EndUserRepository
	sessions session.Service
	audit    audit.Recorder
}

func NewPasskeyService(d Deps) PasskeyService {
	return &passkeyService{mgr: d.Passkeys, users: d.Repos.EndUsers, sessions: d.Sessions, audit: d.Audit}
}

func (s *passkeyService) BeginRegistration(ctx context.Context, projectID, endUserID string) (*protocol.CredentialCreation, error) {
	if endUserID == "" {
		return nil, fmt.Errorf("%w: end user session is required", ErrInvalidInput)
	}
	return s.mgr.BeginRegistration(ctx, projectID, endUserID, "")
}

func (s *passkeyService) FinishRegistration(ctx context.Context, projectID, endUserID string, req dto.PasskeyRegisterCompleteRequest, meta Meta) (*dto.PasskeyRegisterCompleteResponse, error) {
	if endUserID == "" || len(req.Response) == 0 {
		return nil, fmt.Errorf("%w: session and response are required", ErrInvalidInput)
	}
	pk, err := s.mgr.FinishRegistration(ctx, projectID, endUserID, req.Name, req.Response)
	if err != nil {
		return nil, err
	}
	if s.audit != nil {
		s.audit.Record(ctx, repository.AuditEntry{
			ProjectID: projectID,
			ActorID:   endUserID,
			ActorType: repository.ActorUser,
			Action:    audit.ActionPasskeyAdded,
			Resource:  "passkey:" + pk.ID,
			IPAddress: meta.IPAddress,
			UserAgent: meta.UserAgent,
		})
	}
	return &dto.PasskeyRegisterCompleteResponse{Success: true, PasskeyID: pk.ID}, nil
}

func (s *passkeyService) BeginLogin(ctx context.Context, projectID string, req dto.PasskeyLoginBeginRequest) (*dto.PasskeyLoginBeginResponse, error) {
	opts, err := s.mgr.BeginLogin(ctx, projectID, req.UserID)
	if err != nil {
		return nil, err
	}
	return &dto.PasskeyLoginBeginResponse{PublicKey: opts.Options.Response, AuthRequestID: opts.RequestID}, nil
}

func (s *passkeyService) FinishLogin(ctx context.Context, projectID string, req dto.PasskeyLoginCompleteRequest, meta Meta) (*dto.PasskeyLoginCompleteResponse, error) {
	if req.AuthRequestID == "" || len(req.Response) == 0 {
		return nil, fmt.Errorf("%w: authRequestId and response are required", ErrInvalidInput)
	}
	res, err := s.mgr.FinishLogin(ctx, projectID, req.AuthRequestID, req.Response)
	if err != nil {
		return nil, err
	}

	if err := s.users.TouchSignIn(ctx, res.EndUserID, repository.SignInUpdate{At: nowUTC()}); err != nil {
		logger.From(ctx).Warn("touch sign-in failed", logger.Layer("service"), logger.Err(err))
	}
	raw, sess, err := s.sessions.Create(ctx, session.Principal{Type: repository.PrincipalEndUser, ID: res.EndUserID, ProjectID: projectID}, meta)
	if err != nil {
		return nil, err
	}
	if s.audit != nil {
		s.audit.Record(ctx, repository.AuditEntry{
			ProjectID: projectID,
			ActorID:   res.EndUserID,
			ActorType: repository.ActorUser,
			Action:    audit.ActionUserLogin,
			Resource:  "user:" + res.EndUserID,
			Metadata:  map[string]any{"provider": "passkey", "passkeyId": res.PasskeyID},
			IPAddress: meta.IPAddress,
			UserAgent: meta.UserAgent,
		})
	}
	return &dto.PasskeyLoginCompleteResponse{Success: true, UserID: res.EndUserID, Session: toSessionDTO(raw, sess)}, nil
}
