// Package session emite tokens de sesión opacos para admins y end users.
// Solo se persiste sha256(token); el valor crudo sale una única vez.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dropDatabas3/izzu/internal/domain/repository"
	"github.com/dropDatabas3/izzu/internal/observability/logger"
	"github.com/dropDatabas3/izzu/internal/security/token"
)

var (
	ErrInvalid     = errors.New("session: invalid or expired")
	ErrUnavailable = errors.New("session: store unavailable")
)

// DefaultTTL es la vida fija de una sesión.
const DefaultTTL = 30 * 24 * time.Hour

// Principal es el dueño de la sesión.
type Principal struct {
	Type      repository.PrincipalType
	ID        string
	ProjectID string
}

// Meta del request que la originó.
type Meta struct {
	IPAddress string
	UserAgent string
}

type Service interface {
	Create(ctx context.Context, p Principal, meta Meta) (string, *repository.Session, error)
	Validate(ctx context.Context, raw string) (*repository.Session, error)
	Revoke(ctx context.Context, raw string) error
}

type service struct {
	repo repository.SessionRepository
	ttl  time.Duration
	now  func() time.Time
}

func NewService(repo repository.SessionRepository, ttl time.Duration) Service {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &service{repo: repo, ttl: ttl, now: time.Now}
}

func (s *service) Create(ctx context.Context, p Principal, meta Meta) (string, *repository.Session, error) {
	if p.ID == "" || (p.Type != repository.PrincipalAdmin && p.Type != repository.PrincipalEndUser) {
		return "", nil, fmt.Errorf("session: invalid principal")
	}
	raw, err := token.GenerateOpaqueToken(32)
	if err != nil {
		return "", nil, fmt.Errorf("session: generate token: %w", err)
	}
	now := s.now().UTC()
	sess, err := s.repo.Create(ctx, repository.Session{
		TokenHash:     token.SHA256Hex(raw),
		PrincipalType: p.Type,
		PrincipalID:   p.ID,
		ProjectID:     p.ProjectID,
		ExpiresAt:     now.Add(s.ttl),
		IPAddress:     meta.IPAddress,
		UserAgent:     meta.UserAgent,
		CreatedAt:     now,
	})
	if err != nil {
		logger.From(ctx).Error("create session failed", logger.Op("session.Create"), logger.Err(err))
		return "", nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return raw, sess, nil
}

func (s *service) Validate(ctx context.Context, raw string) (*repository.Session, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrInvalid
	}
	sess, err := s.repo.GetByTokenHash(ctx, token.SHA256Hex(raw))
	if repository.IsNotFound(err) {
		return nil, ErrInvalid
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if !sess.ExpiresAt.After(s.now()) {
		return nil, ErrInvalid
	}
	return sess, nil
}

// Revoke es idempotente.
func (s *service) Revoke(ctx context.Context, raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	err := s.repo.DeleteByTokenHash(ctx, token.SHA256Hex(raw))
	if err != nil && !repository.IsNotFound(err) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}
