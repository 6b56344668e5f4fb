package admin

import (
	"context"
	"fmt"
	"strings"

	"github.com/dropDatabas3/izzu/internal/apikey"
	"github.com/dropDatabas3/izzu/internal/audit"
	"github.com/dropDatabas3/izzu/internal/domain/repository"
	dto "github.com/dropDatabas3/izzu/internal/http/dto/admin"
)

// KeysService define operaciones de gestión de API keys de un proyecto.
type KeysService interface {
	Create(ctx context.Context, p Principal, projectID string, req dto.CreateKeyRequest) (*dto.Key, error)
	List(ctx context.Context, p Principal, projectID string) ([]dto.Key, error)
}

type keysService struct {
	guard projectGuard
	keys  repository.APIKeyRepository
	audit audit.Recorder
}

// NewKeysService crea un nuevo servicio de claves.
func NewKeysService(guard projectGuard, keys repository.APIKeyRepository, rec audit.Recorder) KeysService {
	return &keysService{guard: guard, keys: keys, audit: rec}
}

func (s *keysService) Create(ctx context.Context, p Principal, projectID string, req dto.CreateKeyRequest) (*dto.Key, error) {
	typ := repository.KeyType(strings.ToLower(strings.TrimSpace(req.Type)))
	if !typ.Valid() {
		return nil, fmt.Errorf("%w: type must be 'publishable' or 'secret'", ErrInvalidInput)
	}
	proj, err := s.guard.own(ctx, p.TenantID, projectID)
	if err != nil {
		return nil, err
	}

	value, err := apikey.GenerateKey(typ)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		if typ == repository.KeyTypeSecret {
			name = "Secret Key"
		} else {
			name = "Publishable Key"
		}
	}
	k, err := s.keys.Create(ctx, repository.CreateAPIKeyInput{ProjectID: proj.ID, Key: value, Type: typ, Name: name})
	if err != nil {
		return nil, unavailable(err)
	}
	if s.audit != nil {
		s.audit.Record(ctx, repository.AuditEntry{
			ProjectID: proj.ID,
			ActorID:   p.AdminID,
			ActorType: repository.ActorAdmin,
			Action:    audit.ActionAPIKeyCreated,
			Resource:  "api_key:" + k.ID,
			Metadata:  map[string]any{"type": string(typ)},
		})
	}
	out := toKeyDTO(k, false)
	return &out, nil
}

func (s *keysService) List(ctx context.Context, p Principal, projectID string) ([]dto.Key, error) {
	proj, err := s.guard.own(ctx, p.TenantID, projectID)
	if err != nil {
		return nil, err
	}
	ks, err := s.keys.ListByProject(ctx, proj.ID)
	if err != nil {
		return nil, unavailable(err)
	}
	out := make([]dto.Key, 0, len(ks))
	for i := range ks {
		out = append(out, toKeyDTO(&ks[i], true))
	}
	return out, nil
}

func toKeyDTO(k *repository.APIKey, mask bool) dto.Key {
	v := k.Key
	if mask && k.Type == repository.KeyTypeSecret {
		v = MaskKey(v)
	}
	return dto.Key{
		ID:         k.ID,
		Key:        v,
		Type:       string(k.Type),
		Name:       k.Name,
		LastUsedAt: k.LastUsedAt,
		CreatedAt:  k.CreatedAt,
	}
}

// MaskKey conserva el prefijo y los últimos 4 caracteres.
func MaskKey(v string) string {
	if len(v) <= len(apikey.SecretPrefix)+4 {
		return strings.Repeat("•", len(v))
	}
	return v[:len(apikey.SecretPrefix)] + "••••" + v[len(v)-4:]
}
