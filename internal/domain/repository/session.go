package repository

import (
	"context"
	"time"
)

// PrincipalType distingue admins de end users.
type PrincipalType string

const (
	PrincipalAdmin   PrincipalType = "admin"
	PrincipalEndUser PrincipalType = "end_user"
)

// Session mapea el hash de un token opaco a un principal.
type Session struct {
	ID            string
	TokenHash     string
	PrincipalType PrincipalType
	PrincipalID   string
	ProjectID     string // vacío para admins
	ExpiresAt     time.Time
	IPAddress     string
	UserAgent     string
	CreatedAt     time.Time
}

// SessionRepository define operaciones sobre sesiones.
type SessionRepository interface {
	Create(ctx context.Context, s Session) (*Session, error)

	// GetByTokenHash busca por hash exacto. No filtra expiración.
	GetByTokenHash(ctx context.Context, tokenHash string) (*Session, error)

	DeleteByTokenHash(ctx context.Context, tokenHash string) error
}
