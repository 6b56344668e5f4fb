package repository

import (
	"context"
	"time"
)

// Passkey es una credencial WebAuthn de un end user.
// Counter solo puede crecer en cada autenticación exitosa.
type Passkey struct {
	ID              string
	EndUserID       string
	CredentialID    string // base64url sin padding
	PublicKey       []byte
	Counter         uint32
	Transports      []string
	Name            string
	AAGUID          []byte
	AttestationType string
	BackupEligible  bool
	BackupState     bool
	CreatedAt       time.Time
	LastUsedAt      *time.Time
}

// CreatePasskeyInput contiene la credencial verificada en el registro.
type CreatePasskeyInput struct {
	EndUserID       string
	CredentialID    string
	PublicKey       []byte
	Counter         uint32
	Transports      []string
	Name            string
	AAGUID          []byte
	AttestationType string
	BackupEligible  bool
	BackupState     bool
}

// PasskeyRepository define operaciones sobre passkeys.
type PasskeyRepository interface {
	// Create retorna ErrConflict si el credential id ya existe (en cualquier proyecto).
	Create(ctx context.Context, in CreatePasskeyInput) (*Passkey, error)

	// GetByCredentialID busca la credencial solo entre usuarios del proyecto.
	GetByCredentialID(ctx context.Context, projectID, credentialID string) (*Passkey, error)

	ListByUser(ctx context.Context, endUserID string) ([]Passkey, error)

	// UpdateCounter es compare-and-set: solo escribe si el counter actual es expected.
	// Retorna ErrConflict si otro request lo cambió antes.
	UpdateCounter(ctx context.Context, id string, expected, next uint32, usedAt time.Time) error
}
