package admin

import (
	"context"
	"time"

	"github.com/dropDatabas3/izzu/internal/audit"
	"github.com/dropDatabas3/izzu/internal/domain/repository"
	dto "github.com/dropDatabas3/izzu/internal/http/dto/admin"
)

// UsersService expone end users, auditoría y métricas de uso de un proyecto.
type UsersService interface {
	List(ctx context.Context, p Principal, projectID string, page repository.Page) ([]dto.EndUser, error)
	AuditLogs(ctx context.Context, p Principal, projectID string, page repository.Page) ([]dto.AuditEntry, error)
	// Analytics cuenta solo end users del proyecto: totales, activos 24h,
	// con rostro, con ubicación y altas de los últimos 7 días.
	Analytics(ctx context.Context, p Principal, projectID string) (*dto.Analytics, error)
}

type usersService struct {
	guard projectGuard
	users repository.EndUserRepository
	audit audit.Recorder
	now   func() time.Time
}

func NewUsersService(guard projectGuard, users repository.EndUserRepository, rec audit.Recorder) UsersService {
	return &usersService{guard: guard, users: users, audit: rec, now: time.Now}
}

func (s *usersService) List(ctx context.Context, p Principal, projectID string, page repository.Page) ([]dto.EndUser, error) {
	proj, err := s.guard.own(ctx, p.TenantID, projectID)
	if err != nil {
		return nil, err
	}
	us, err := s.users.List(ctx, proj.ID, page.Normalize())
	if err != nil {
		return nil, unavailable(err)
	}
	out := make([]dto.EndUser, 0, len(us))
	for i := range us {
		u := &us[i]
		out = append(out, dto.EndUser{
			ID:                u.ID,
			Email:             u.Email,
			DisplayName:       u.DisplayName,
			Mobile:            u.Mobile,
			FaceVerified:      u.FaceVerified(),
			LastLoginPhotoURL: u.LastLoginPhotoURL,
			LastSignInAt:      u.LastSignInAt,
			CreatedAt:         u.CreatedAt,
		})
	}
	return out, nil
}

func (s *usersService) AuditLogs(ctx context.Context, p Principal, projectID string, page repository.Page) ([]dto.AuditEntry, error) {
	proj, err := s.guard.own(ctx, p.TenantID, projectID)
	if err != nil {
		return nil, err
	}
	if s.audit == nil {
		return []dto.AuditEntry{}, nil
	}
	es, err := s.audit.List(ctx, proj.ID, page.Normalize())
	if err != nil {
		return nil, unavailable(err)
	}
	out := make([]dto.AuditEntry, 0, len(es))
	for _, e := range es {
		out = append(out, dto.AuditEntry{
			ID:        e.ID,
			ActorID:   e.ActorID,
			ActorType: string(e.ActorType),
			Action:    e.Action,
			Resource:  e.Resource,
			Metadata:  e.Metadata,
			IPAddress: e.IPAddress,
			CreatedAt: e.CreatedAt,
		})
	}
	return out, nil
}

func (s *usersService) Analytics(ctx context.Context, p Principal, projectID string) (*dto.Analytics, error) {
	proj, err := s.guard.own(ctx, p.TenantID, projectID)
	if err != nil {
		return nil, err
	}
	st, err := s.users.Stats(ctx, proj.ID, s.now().UTC())
	if err != nil {
		return nil, unavailable(err)
	}
	out := &dto.Analytics{
		ProjectID:        proj.ID,
		TotalUsers:       st.Total,
		ActiveUsers:      st.Active24h,
		ActiveFaceIDs:    st.WithFace,
		LocationsTracked: st.WithLocation,
		Signups:          make([]dto.SignupDay, 0, len(st.Signups)),
	}
	for _, d := range st.Signups {
		out.Signups = append(out.Signups, dto.SignupDay{Date: d.Day.Format(time.DateOnly), Count: d.Count})
	}
	return out, nil
}
