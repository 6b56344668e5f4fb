// Package identity resuelve un credencial verificado a exactamente un End User.
//
// Algoritmo (por proyecto):
//
//  1. identidad (provider, providerId) existente → ese usuario.
//  2. email verificado que ya tiene usuario → se vincula una identidad nueva.
//  3. si no, usuario + identidad se crean en una transacción.
//
// La unicidad la garantiza la base. Un ErrConflict en 2 o 3 significa que
// otro request ganó la carrera: se reinicia desde 1 y se lee lo que escribió.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dropDatabas3/izzu/internal/audit"
	"github.com/dropDatabas3/izzu/internal/domain/repository"
	"github.com/dropDatabas3/izzu/internal/observability/logger"
	"github.com/dropDatabas3/izzu/internal/observability/metrics"
)

var (
	ErrInvalidInput = errors.New("identity: provider, providerId and project are required")
	// ErrConflict: la carrera no se resolvió tras maxRounds relecturas, o el
	// usuario ya tiene otra identidad del mismo proveedor.
	ErrConflict    = errors.New("identity: conflicting identity")
	ErrUnavailable = errors.New("identity: store unavailable")
)

const maxRounds = 3

// SyntheticDomain es el dominio de los emails generados para identidades sin email.
const SyntheticDomain = "users.izzu.local"

// Purpose distingue un login de un alta administrativa.
type Purpose int

const (
	// PurposeSignIn actualiza lastSignInAt y audita user.login/user.signup.
	PurposeSignIn Purpose = iota
	// PurposeProvision crea si hace falta, sin marcar un inicio de sesión.
	PurposeProvision
)

// Input de una resolución.
type Input struct {
	ProjectID  string
	Provider   string
	ProviderID string
	// VerifiedEmail solo se usa para vincular si el proveedor lo verificó.
	VerifiedEmail string
	DisplayName   string
	Mobile        string
	Location      *repository.Location
	// PasswordHash se guarda en la identidad solo al crearla.
	PasswordHash string
	Purpose      Purpose
	IPAddress    string
	UserAgent    string
}

// Result de una resolución.
type Result struct {
	User     *repository.EndUser
	Identity *repository.Identity
	IsNew    bool
	Linked   bool
}

type Resolver interface {
	Resolve(ctx context.Context, in Input) (*Result, error)
}

type resolver struct {
	users      repository.EndUserRepository
	identities repository.IdentityRepository
	audit      audit.Recorder
	now        func() time.Time
}

// NewResolver; rec puede ser nil.
func NewResolver(users repository.EndUserRepository, identities repository.IdentityRepository, rec audit.Recorder) Resolver {
	return &resolver{users: users, identities: identities, audit: rec, now: time.Now}
}

// SyntheticEmail arma el email placeholder de un proveedor sin email.
func SyntheticEmail(provider, providerID string) string {
	return fmt.Sprintf("%s+%s@%s", provider, strings.ToLower(providerID), SyntheticDomain)
}

func normalize(in Input) Input {
	in.ProjectID = strings.TrimSpace(in.ProjectID)
	in.Provider = strings.ToLower(strings.TrimSpace(in.Provider))
	in.ProviderID = strings.TrimSpace(in.ProviderID)
	in.VerifiedEmail = strings.ToLower(strings.TrimSpace(in.VerifiedEmail))
	in.DisplayName = strings.TrimSpace(in.DisplayName)
	if in.Provider == repository.ProviderEmail {
		in.ProviderID = strings.ToLower(in.ProviderID)
	}
	return in
}

func (r *resolver) Resolve(ctx context.Context, in Input) (*Result, error) {
	in = normalize(in)
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Op("identity.Resolve"),
		logger.ProjectID(in.ProjectID),
		logger.Provider(in.Provider),
	)
	if in.ProjectID == "" || in.ProviderID == "" || !repository.ValidProvider(in.Provider) {
		return nil, ErrInvalidInput
	}

	for round := 0; round < maxRounds; round++ {
		res, err := r.attempt(ctx, in)
		if errors.Is(err, repository.ErrConflict) {
			log.Debug("identity race, re-reading", logger.Int("round", round+1))
			continue
		}
		if errors.Is(err, ErrConflict) {
			metrics.Resolution("conflict")
			return nil, err
		}
		if err != nil {
			metrics.Resolution("error")
			return nil, err
		}
		r.finish(ctx, in, res)
		return res, nil
	}

	metrics.Resolution("conflict")
	log.Warn("identity conflict not resolved")
	return nil, ErrConflict
}

// attempt corre una ronda del algoritmo. ErrConflict pide otra ronda.
func (r *resolver) attempt(ctx context.Context, in Input) (*Result, error) {
	// 1. identidad existente
	ident, err := r.identities.GetByProvider(ctx, in.ProjectID, in.Provider, in.ProviderID)
	switch {
	case err == nil:
		user, err := r.users.GetByID(ctx, in.ProjectID, ident.EndUserID)
		if err != nil {
			return nil, unavailable(err)
		}
		return &Result{User: user, Identity: ident}, nil
	case !repository.IsNotFound(err):
		return nil, unavailable(err)
	}

	// 2. vincular por email verificado
	if in.VerifiedEmail != "" {
		user, err := r.users.GetByEmail(ctx, in.ProjectID, in.VerifiedEmail)
		switch {
		case err == nil:
			if _, err := r.identities.GetByUserProvider(ctx, user.ID, in.Provider); err == nil {
				// ya tiene otra cuenta de este proveedor; no se pisa
				return nil, ErrConflict
			}
			ident, err := r.identities.Create(ctx, repository.CreateIdentityInput{
				ProjectID:  in.ProjectID,
				EndUserID:  user.ID,
				Provider:   in.Provider,
				ProviderID: in.ProviderID,
				Verified:   true,
			})
			if err != nil {
				return nil, passConflict(err)
			}
			return &Result{User: user, Identity: ident, Linked: true}, nil
		case !repository.IsNotFound(err):
			return nil, unavailable(err)
		}
	}

	// 3. alta
	email := in.VerifiedEmail
	if email == "" {
		email = SyntheticEmail(in.Provider, in.ProviderID)
	}
	var signedIn *time.Time
	if in.Purpose == PurposeSignIn {
		at := r.now().UTC()
		signedIn = &at
	}
	user, ident, err := r.users.CreateWithIdentity(ctx,
		repository.CreateEndUserInput{
			ProjectID:   in.ProjectID,
			Email:       email,
			DisplayName: in.DisplayName,
			Mobile:      in.Mobile,
			Location:    in.Location,
			SignedInAt:  signedIn,
		},
		repository.CreateIdentityInput{
			ProjectID:    in.ProjectID,
			Provider:     in.Provider,
			ProviderID:   in.ProviderID,
			PasswordHash: in.PasswordHash,
			Verified:     true,
		})
	if err != nil {
		return nil, passConflict(err)
	}
	return &Result{User: user, Identity: ident, IsNew: true}, nil
}

// finish aplica el sign-in al usuario existente y audita. Best-effort.
func (r *resolver) finish(ctx context.Context, in Input, res *Result) {
	log := logger.From(ctx).With(logger.Op("identity.finish"), logger.EndUserID(res.User.ID))

	switch {
	case res.IsNew:
		metrics.Resolution("created")
	case res.Linked:
		metrics.Resolution("linked")
	default:
		metrics.Resolution("existing")
	}

	if !res.IsNew && in.Purpose == PurposeSignIn {
		at := r.now().UTC()
		if err := r.users.TouchSignIn(ctx, res.User.ID, repository.SignInUpdate{At: at, Location: in.Location}); err != nil {
			log.Warn("touch sign-in failed", logger.Err(err))
		} else {
			res.User.LastSignInAt = &at
			res.User.LastActiveAt = &at
			if in.Location != nil {
				res.User.Location = in.Location
			}
		}
		if in.DisplayName != "" && in.DisplayName != res.User.DisplayName {
			name := in.DisplayName
			if u, err := r.users.UpdateProfile(ctx, res.User.ID, repository.ProfileUpdate{DisplayName: &name}); err != nil {
				log.Warn("update display name failed", logger.Err(err))
			} else {
				res.User = u
			}
		}
	}

	if r.audit == nil {
		return
	}
	action := audit.ActionUserLogin
	if res.IsNew {
		action = audit.ActionUserSignup
	} else if in.Purpose == PurposeProvision {
		return
	}
	r.audit.Record(ctx, repository.AuditEntry{
		ProjectID: in.ProjectID,
		ActorID:   res.User.ID,
		ActorType: repository.ActorUser,
		Action:    action,
		Resource:  "user:" + res.User.ID,
		Metadata:  map[string]any{"provider": in.Provider, "linked": res.Linked},
		IPAddress: in.IPAddress,
		UserAgent: in.UserAgent,
	})
}

func passConflict(err error) error {
	if errors.Is(err, repository.ErrConflict) {
		return repository.ErrConflict
	}
	return unavailable(err)
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}
