package sdk

import (
	"context"
	"fmt"

	"github.com/dropDatabas3/izzu/internal/audit"
	"github.com/dropDatabas3/izzu/internal/domain/repository"
	"github.com/dropDatabas3/izzu/internal/face"
	dto "github.com/dropDatabas3/izzu/internal/http/dto/sdk"
	"github.com/dropDatabas3/izzu/internal/observability/logger"
	"github.com/dropDatabas3/izzu/internal/session"
)

// FaceService delega el reconocimiento al servicio externo. Un "no
// reconocido" es un resultado normal; solo la indisponibilidad es error.
type FaceService interface {
	Register(ctx context.Context, projectID, email string, img face.Image, loc *dto.Location) (*dto.FaceRegisterResponse, error)
	Identify(ctx context.Context, projectID string, img face.Image, loc *dto.Location, meta Meta) (*dto.FaceIdentifyResponse, error)
	// Verify compara la imagen contra el rostro registrado de endUserID (1:1).
	// No emite sesión: el usuario ya viene autenticado.
	Verify(ctx context.Context, projectID, endUserID string, img face.Image, meta Meta) (*dto.FaceVerifyResponse, error)
	Liveness(ctx context.Context, img face.Image) (*dto.FaceLivenessResponse, error)
}

type faceService struct {
	client   face.Client
	users    repository.EndUserRepository
	sessions session.Service
	audit    audit.Recorder
}

func NewFaceService(d Deps) FaceService {
	return &faceService{client: d.Face, users: d.Repos.EndUsers, sessions: d.Sessions, audit: d.Audit}
}

func (s *faceService) Register(ctx context.Context, projectID, email string, img face.Image, loc *dto.Location) (*dto.FaceRegisterResponse, error) {
	if s.client == nil {
		return nil, ErrFaceDisabled
	}
	email = normEmail(email)
	if email == "" || len(img.Data) == 0 {
		return nil, fmt.Errorf("%w: file and email are required", ErrInvalidInput)
	}
	log := logger.From(ctx).With(logger.Layer("service"), logger.Op("sdk.face.Register"), logger.ProjectID(projectID))

	u, err := s.users.GetByEmail(ctx, projectID, email)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	res, err := s.client.Register(ctx, img, u.ID)
	if err != nil {
		return nil, err
	}
	if !res.Success {
		msg := res.Error
		if msg == "" {
			msg = "Face registration failed"
		}
		return &dto.FaceRegisterResponse{Registered: false, Error: msg}, nil
	}

	updated, err := s.users.SetFace(ctx, u.ID, res.Encoding, res.PhotoURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if loc != nil {
		if err := s.users.TouchSignIn(ctx, u.ID, repository.SignInUpdate{At: nowUTC(), Location: toLocation(loc)}); err != nil {
			log.Warn("store location failed", logger.Err(err))
		}
	}
	if s.audit != nil {
		s.audit.Record(ctx, repository.AuditEntry{
			ProjectID: projectID,
			ActorID:   u.ID,
			ActorType: repository.ActorUser,
			Action:    audit.ActionFaceRegistered,
			Resource:  "user:" + u.ID,
		})
	}
	user := toUserDTO(updated)
	// el servicio puede no devolver el vector; el registro igual quedó hecho
	user.FaceVerified = true
	return &dto.FaceRegisterResponse{Registered: true, PhotoURL: res.PhotoURL, User: &user}, nil
}

func (s *faceService) Identify(ctx context.Context, projectID string, img face.Image, loc *dto.Location, meta Meta) (*dto.FaceIdentifyResponse, error) {
	if s.client == nil {
		return nil, ErrFaceDisabled
	}
	if len(img.Data) == 0 {
		return nil, fmt.Errorf("%w: file is required", ErrInvalidInput)
	}
	log := logger.From(ctx).With(logger.Layer("service"), logger.Op("sdk.face.Identify"), logger.ProjectID(projectID))

	res, err := s.client.Identify(ctx, img, projectID)
	if err != nil {
		return nil, err
	}
	if !res.Identified || res.UserID == "" {
		msg := res.Error
		if msg == "" {
			msg = "Face not recognized"
		}
		return &dto.FaceIdentifyResponse{Verified: false, Error: msg}, nil
	}

	// el match tiene que ser de este proyecto
	u, err := s.users.GetByID(ctx, projectID, res.UserID)
	if err != nil {
		if repository.IsNotFound(err) {
			log.Warn("face match outside project", logger.EndUserID(res.UserID))
			return &dto.FaceIdentifyResponse{Verified: false, Error: "User record missing"}, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	at := nowUTC()
	if err := s.users.TouchSignIn(ctx, u.ID, repository.SignInUpdate{At: at, Location: toLocation(loc), PhotoURL: res.PhotoURL}); err != nil {
		log.Warn("touch sign-in failed", logger.Err(err))
	}
	raw, sess, err := s.sessions.Create(ctx, session.Principal{Type: repository.PrincipalEndUser, ID: u.ID, ProjectID: projectID}, meta)
	if err != nil {
		return nil, err
	}
	if s.audit != nil {
		s.audit.Record(ctx, repository.AuditEntry{
			ProjectID: projectID,
			ActorID:   u.ID,
			ActorType: repository.ActorUser,
			Action:    audit.ActionUserLogin,
			Resource:  "user:" + u.ID,
			Metadata:  map[string]any{"provider": "face", "confidence": res.Confidence},
			IPAddress: meta.IPAddress,
			UserAgent: meta.UserAgent,
		})
	}
	user := toUserDTO(u)
	user.FaceVerified = true
	if loc != nil {
		user.Location = loc
	}
	return &dto.FaceIdentifyResponse{
		Verified:   true,
		Confidence: res.Confidence,
		PhotoURL:   res.PhotoURL,
		User:       &user,
		Session:    toSessionDTO(raw, sess),
	}, nil
}

func (s *faceService) Verify(ctx context.Context, projectID, endUserID string, img face.Image, meta Meta) (*dto.FaceVerifyResponse, error) {
	if s.client == nil {
		return nil, ErrFaceDisabled
	}
	if endUserID == "" || len(img.Data) == 0 {
		return nil, fmt.Errorf("%w: session and file are required", ErrInvalidInput)
	}
	u, err := s.users.GetByID(ctx, projectID, endUserID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if !u.FaceVerified() {
		return &dto.FaceVerifyResponse{Verified: false, Error: "Face not registered"}, nil
	}

	res, err := s.client.Verify(ctx, img, u.ID)
	if err != nil {
		return nil, err
	}
	if !res.Verified {
		msg := res.Error
		if msg == "" {
			msg = "Face does not match"
		}
		return &dto.FaceVerifyResponse{Verified: false, Error: msg}, nil
	}
	if s.audit != nil {
		s.audit.Record(ctx, repository.AuditEntry{
			ProjectID: projectID,
			ActorID:   u.ID,
			ActorType: repository.ActorUser,
			Action:    audit.ActionFaceVerified,
			Resource:  "user:" + u.ID,
			Metadata:  map[string]any{"confidence": res.Confidence},
			IPAddress: meta.IPAddress,
			UserAgent: meta.UserAgent,
		})
	}
	return &dto.FaceVerifyResponse{Verified: true, Confidence: res.Confidence, UserID: u.ID}, nil
}

func (s *faceService) Liveness(ctx context.Context, img face.Image) (*dto.FaceLivenessResponse, error) {
	if s.client == nil {
		return nil, ErrFaceDisabled
	}
	if len(img.Data) == 0 {
		return nil, fmt.Errorf("%w: file is required", ErrInvalidInput)
	}
	res, err := s.client.Liveness(ctx, img)
	if err != nil {
		return nil, err
	}
	return &dto.FaceLivenessResponse{Passed: res.Passed, IsLive: res.IsLive, Error: res.Error}, nil
}
