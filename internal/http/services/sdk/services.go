// Package sdk orquesta los flujos de autenticación de end users expuestos en
// /sdk/*: OTP, alta directa, rostro, passkeys y validación de sesiones. El
// proyecto ya viene autorizado por el middleware de API key.
package sdk

import (
	"errors"
	"strings"
	"time"

	"github.com/dropDatabas3/izzu/internal/audit"
	"github.com/dropDatabas3/izzu/internal/domain/repository"
	"github.com/dropDatabas3/izzu/internal/face"
	dto "github.com/dropDatabas3/izzu/internal/http/dto/sdk"
	"github.com/dropDatabas3/izzu/internal/identity"
	"github.com/dropDatabas3/izzu/internal/otp"
	"github.com/dropDatabas3/izzu/internal/passkey"
	"github.com/dropDatabas3/izzu/internal/security/password"
	"github.com/dropDatabas3/izzu/internal/session"
)

var (
	ErrInvalidInput = errors.New("sdk: invalid input")
	ErrInvalidOTP   = errors.New("sdk: invalid otp")
	ErrUserNotFound = errors.New("sdk: user not found")
	ErrWeakPassword = errors.New("sdk: password does not meet policy")
	ErrFaceDisabled = errors.New("sdk: face service not configured")
	ErrUnavailable  = errors.New("sdk: store unavailable")
)

// PolicyError lleva los motivos del rechazo de password.
type PolicyError struct {
	Reasons []string
}

func (e *PolicyError) Error() string { return "password policy: " + strings.Join(e.Reasons, ", ") }
func (e *PolicyError) Unwrap() error { return ErrWeakPassword }

// Deps contiene las dependencias de los services SDK.
type Deps struct {
	Repos          repository.Repositories
	OTP            otp.Service
	Resolver       identity.Resolver
	Sessions       session.Service
	Audit          audit.Recorder
	Passkeys       *passkey.Manager
	Face           face.Client // nil deshabilita /sdk/face/*
	PasswordPolicy password.Policy
	PasswordParams password.Params
}

// Services agrupa los services SDK.
type Services struct {
	OTP      OTPService
	Users    UsersService
	Face     FaceService
	Passkeys PasskeyService
	Sessions SessionService
}

func NewServices(d Deps) Services {
	if d.PasswordParams == (password.Params{}) {
		d.PasswordParams = password.Default
	}
	if d.PasswordPolicy.MinLength == 0 {
		d.PasswordPolicy.MinLength = password.DefaultPolicy.MinLength
	}
	return Services{
		OTP:      NewOTPService(d),
		Users:    NewUsersService(d),
		Face:     NewFaceService(d),
		Passkeys: NewPasskeyService(d),
		Sessions: NewSessionService(d.Sessions),
	}
}

func toUserDTO(u *repository.EndUser) dto.User {
	out := dto.User{
		ID:           u.ID,
		Email:        u.Email,
		Name:         u.DisplayName,
		FaceVerified: u.FaceVerified(),
	}
	if u.Location != nil {
		out.Location = &dto.Location{Lat: u.Location.Lat, Lng: u.Location.Lng}
	}
	return out
}

func toSessionDTO(raw string, s *repository.Session) *dto.Session {
	return &dto.Session{Token: raw, ExpiresAt: s.ExpiresAt}
}

func toLocation(l *dto.Location) *repository.Location {
	if l == nil {
		return nil
	}
	return &repository.Location{Lat: l.Lat, Lng: l.Lng}
}

func normEmail(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// Meta del request que el controller propaga a sesión y auditoría.
type Meta = session.Meta

func nowUTC() time.Time { return time.Now().UTC() }
