// Package apikey es la frontera multi-tenant: resuelve (API key, projectId)
// a un Grant o lo rechaza sin revelar si el proyecto existe.
package apikey

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dropDatabas3/izzu/internal/domain/repository"
	"github.com/dropDatabas3/izzu/internal/observability/logger"
	"github.com/dropDatabas3/izzu/internal/security/token"
)

var (
	ErrMissingKey        = errors.New("apikey: api key and project required")
	ErrInvalidKey        = errors.New("apikey: invalid api key")
	ErrInsufficientScope = errors.New("apikey: secret key required")
	ErrUnavailable       = errors.New("apikey: store unavailable")
)

const (
	PublishablePrefix = "izzu_pk_live_"
	SecretPrefix      = "izzu_sk_live_"
)

// Grant es el resultado de una autorización exitosa.
type Grant struct {
	ProjectID string
	TenantID  string
	KeyID     string // vacío si matcheó la publishable de la fila del proyecto
	KeyType   repository.KeyType
}

// Require valida que el grant alcance para la operación.
// Una publishable nunca satisface una operación secret.
func (g *Grant) Require(scope repository.KeyType) error {
	if scope == repository.KeyTypeSecret && g.KeyType != repository.KeyTypeSecret {
		return ErrInsufficientScope
	}
	return nil
}

type Authorizer interface {
	Authorize(ctx context.Context, apiKey, projectID string) (*Grant, error)
}

type authorizer struct {
	projects   repository.ProjectRepository
	keys       repository.APIKeyRepository
	touchAfter time.Duration
	now        func() time.Time
}

// NewAuthorizer crea el authorizer sobre los repos de proyectos y keys.
func NewAuthorizer(projects repository.ProjectRepository, keys repository.APIKeyRepository) Authorizer {
	return &authorizer{
		projects:   projects,
		keys:       keys,
		touchAfter: 5 * time.Second,
		now:        time.Now,
	}
}

// dummy para igualar el costo de la comparación cuando el proyecto no existe
const dummyKey = "izzu_pk_live_000000000000000000000000"

func (a *authorizer) Authorize(ctx context.Context, apiKey, projectID string) (*Grant, error) {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Op("apikey.Authorize"))

	apiKey = strings.TrimSpace(apiKey)
	projectID = strings.TrimSpace(projectID)
	if apiKey == "" || projectID == "" {
		return nil, ErrMissingKey
	}

	project, err := a.projects.GetByID(ctx, projectID)
	if repository.IsNotFound(err) {
		subtle.ConstantTimeCompare([]byte(dummyKey), []byte(apiKey))
		return nil, ErrInvalidKey
	}
	if err != nil {
		log.Error("project lookup failed", logger.Err(err))
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if project.APIKey != "" && subtle.ConstantTimeCompare([]byte(project.APIKey), []byte(apiKey)) == 1 {
		return &Grant{ProjectID: project.ID, TenantID: project.TenantID, KeyType: repository.KeyTypePublishable}, nil
	}

	key, err := a.keys.GetByKey(ctx, apiKey)
	if repository.IsNotFound(err) {
		return nil, ErrInvalidKey
	}
	if err != nil {
		log.Error("api key lookup failed", logger.Err(err))
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	// la key existe pero es de otro proyecto: misma respuesta que inexistente
	if key.ProjectID != project.ID || !key.Type.Valid() {
		log.Debug("api key project mismatch", logger.ProjectID(projectID))
		return nil, ErrInvalidKey
	}

	a.touch(ctx, key.ID)
	return &Grant{ProjectID: project.ID, TenantID: project.TenantID, KeyID: key.ID, KeyType: key.Type}, nil
}

// touch actualiza lastUsedAt fuera del request; los errores solo se loguean.
func (a *authorizer) touch(ctx context.Context, keyID string) {
	log := logger.From(ctx)
	at := a.now().UTC()
	go func() {
		tctx, cancel := context.WithTimeout(context.Background(), a.touchAfter)
		defer cancel()
		if err := a.keys.TouchLastUsed(tctx, keyID, at); err != nil {
			log.Warn("touch api key failed", logger.Op("apikey.touch"), logger.Err(err))
		}
	}()
}

// GenerateKey genera un valor nuevo para el tipo dado.
func GenerateKey(t repository.KeyType) (string, error) {
	switch t {
	case repository.KeyTypePublishable:
		h, err := token.RandomHex(12)
		if err != nil {
			return "", err
		}
		return PublishablePrefix + h, nil
	case repository.KeyTypeSecret:
		h, err := token.RandomHex(16)
		if err != nil {
			return "", err
		}
		return SecretPrefix + h, nil
	default:
		return "", fmt.Errorf("apikey: unknown key type %q", t)
	}
}
