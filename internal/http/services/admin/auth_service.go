package admin

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/dropDatabas3/izzu/internal/domain/repository"
	dto "github.com/dropDatabas3/izzu/internal/http/dto/admin"
	"github.com/dropDatabas3/izzu/internal/identity"
	"github.com/dropDatabas3/izzu/internal/observability/logger"
	"github.com/dropDatabas3/izzu/internal/otp"
	"github.com/dropDatabas3/izzu/internal/security/token"
	"github.com/dropDatabas3/izzu/internal/session"
)

// SignInInput es lo que OTP y OAuth aportan para loguear a un admin.
type SignInInput struct {
	Email      string
	Name       string
	Mobile     string
	Location   *repository.Location
	Provider   string
	ProviderID string
	Meta       session.Meta
}

// Principal autenticado por cookie.
type Principal struct {
	AdminID  string
	TenantID string
	Email    string
	Role     repository.AdminRole
}

// AuthService define las operaciones de autenticación para admins.
type AuthService interface {
	SendOTP(ctx context.Context, req dto.OTPSendRequest) (*otp.Issued, error)
	VerifyOTP(ctx context.Context, req dto.OTPVerifyRequest, meta session.Meta) (*dto.SignInResult, error)
	SignIn(ctx context.Context, in SignInInput) (*dto.SignInResult, error)
	Authenticate(ctx context.Context, rawToken string) (*Principal, error)
	Logout(ctx context.Context, rawToken string) error
	Me(ctx context.Context, p Principal) (*dto.Me, error)
}

type authService struct {
	admins    repository.AdminRepository
	tenants   repository.TenantRepository
	sessions  session.Service
	otp       otp.Service
	resolver  identity.Resolver
	platform  string
	now       func() time.Time
	slugNonce func() (string, error)
}

// NewAuthService crea el servicio de login de admins.
func NewAuthService(d Deps) AuthService {
	return &authService{
		admins:    d.Repos.Admins,
		tenants:   d.Repos.Tenants,
		sessions:  d.Sessions,
		otp:       d.OTP,
		resolver:  d.Resolver,
		platform:  d.PlatformProjectID,
		now:       time.Now,
		slugNonce: func() (string, error) { return token.RandomHex(4) },
	}
}

func (s *authService) SendOTP(ctx context.Context, req dto.OTPSendRequest) (*otp.Issued, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: email required", ErrInvalidInput)
	}
	return s.otp.Issue(ctx, email, otp.ChannelEmail)
}

func (s *authService) VerifyOTP(ctx context.Context, req dto.OTPVerifyRequest, meta session.Meta) (*dto.SignInResult, error) {
	if strings.TrimSpace(req.Identifier) == "" || strings.TrimSpace(req.Code) == "" {
		return nil, fmt.Errorf("%w: identifier and code are required", ErrInvalidInput)
	}
	ok, err := s.otp.Redeem(ctx, req.Identifier, req.Code)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidOTP
	}

	var loc *repository.Location
	if req.LocationLat != nil && req.LocationLng != nil {
		loc = &repository.Location{Lat: *req.LocationLat, Lng: *req.LocationLng}
	}
	email := otp.Normalize(req.Identifier)
	return s.SignIn(ctx, SignInInput{
		Email:      email,
		Name:       req.Name,
		Mobile:     req.Mobile,
		Location:   loc,
		Provider:   repository.ProviderEmail,
		ProviderID: email,
		Meta:       meta,
	})
}

// SignIn busca o crea al admin (con su tenant) y emite la sesión.
func (s *authService) SignIn(ctx context.Context, in SignInInput) (*dto.SignInResult, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("admin.auth"),
		logger.Op("SignIn"),
		logger.Provider(in.Provider),
	)
	if !strings.Contains(in.Email, "@") {
		return nil, fmt.Errorf("%w: email required", ErrInvalidInput)
	}

	s.mirrorPlatformUser(ctx, in)

	adm, isNew, err := s.findOrCreate(ctx, in)
	if err != nil {
		log.Error("admin find-or-create failed", logger.Err(err))
		return nil, err
	}
	if !isNew {
		if err := s.admins.TouchLogin(ctx, adm.ID, s.now().UTC(), in.Location); err != nil {
			log.Warn("touch admin login failed", logger.Err(err))
		}
	}

	raw, sess, err := s.sessions.Create(ctx, session.Principal{Type: repository.PrincipalAdmin, ID: adm.ID}, in.Meta)
	if err != nil {
		return nil, err
	}
	log.Info("admin signed in", logger.AdminID(adm.ID), logger.TenantID(adm.TenantID), logger.Bool("new", isNew))
	return &dto.SignInResult{
		AdminID:      adm.ID,
		TenantID:     adm.TenantID,
		IsNewAdmin:   isNew,
		SessionToken: raw,
		ExpiresAt:    sess.ExpiresAt,
	}, nil
}

func (s *authService) findOrCreate(ctx context.Context, in SignInInput) (*repository.Admin, bool, error) {
	for round := 0; round < 3; round++ {
		adm, err := s.admins.GetByEmail(ctx, in.Email)
		if err == nil {
			return adm, false, nil
		}
		if !repository.IsNotFound(err) {
			return nil, false, unavailable(err)
		}

		slug, err := s.tenantSlug(in.Email)
		if err != nil {
			return nil, false, err
		}
		local := localPart(in.Email)
		name := in.Name
		if name == "" {
			name = local
		}
		adm, _, err = s.admins.CreateWithTenant(ctx,
			repository.CreateTenantInput{Name: name, Slug: slug, Email: in.Email},
			repository.CreateAdminInput{
				Email:         in.Email,
				DisplayName:   in.Name,
				Mobile:        in.Mobile,
				Location:      in.Location,
				Role:          repository.AdminRoleOwner,
				EmailVerified: true,
			})
		if err == nil {
			return adm, true, nil
		}
		if !repository.IsConflict(err) {
			return nil, false, unavailable(err)
		}
		// carrera con otro login del mismo email (o slug repetido): releer
	}
	return nil, false, ErrConflict
}

var slugUnsafe = regexp.MustCompile(`[^a-z0-9]`)

func (s *authService) tenantSlug(email string) (string, error) {
	suffix, err := s.slugNonce()
	if err != nil {
		return "", err
	}
	return TenantSlug(email, suffix), nil
}

// TenantSlug arma "<local-part saneado>-<suffix>".
func TenantSlug(email, suffix string) string {
	return slugUnsafe.ReplaceAllString(strings.ToLower(localPart(email)), "-") + "-" + suffix
}

func localPart(email string) string {
	if i := strings.Index(email, "@"); i >= 0 {
		return email[:i]
	}
	return email
}

// mirrorPlatformUser registra al admin como end user del proyecto de
// plataforma. Es best-effort: un fallo no impide el login.
func (s *authService) mirrorPlatformUser(ctx context.Context, in SignInInput) {
	if s.resolver == nil || s.platform == "" {
		return
	}
	provider, providerID := in.Provider, in.ProviderID
	if provider == "" || providerID == "" {
		provider, providerID = repository.ProviderEmail, in.Email
	}
	_, err := s.resolver.Resolve(ctx, identity.Input{
		ProjectID:     s.platform,
		Provider:      provider,
		ProviderID:    providerID,
		VerifiedEmail: in.Email,
		DisplayName:   in.Name,
		Mobile:        in.Mobile,
		Location:      in.Location,
		Purpose:       identity.PurposeSignIn,
		IPAddress:     in.Meta.IPAddress,
		UserAgent:     in.Meta.UserAgent,
	})
	if err != nil {
		logger.From(ctx).Warn("platform user resolution failed",
			logger.Component("admin.auth"), logger.Err(err))
	}
}

func (s *authService) Authenticate(ctx context.Context, rawToken string) (*Principal, error) {
	if rawToken == "" {
		return nil, ErrUnauthorized
	}
	sess, err := s.sessions.Validate(ctx, rawToken)
	if err != nil {
		if errors.Is(err, session.ErrInvalid) {
			return nil, ErrUnauthorized
		}
		return nil, err
	}
	if sess.PrincipalType != repository.PrincipalAdmin {
		return nil, ErrUnauthorized
	}
	adm, err := s.admins.GetByID(ctx, sess.PrincipalID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrUnauthorized
		}
		return nil, unavailable(err)
	}
	return &Principal{AdminID: adm.ID, TenantID: adm.TenantID, Email: adm.Email, Role: adm.Role}, nil
}

func (s *authService) Logout(ctx context.Context, rawToken string) error {
	if rawToken == "" {
		return nil
	}
	return s.sessions.Revoke(ctx, rawToken)
}

func (s *authService) Me(ctx context.Context, p Principal) (*dto.Me, error) {
	adm, err := s.admins.GetByID(ctx, p.AdminID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrUnauthorized
		}
		return nil, unavailable(err)
	}
	me := &dto.Me{
		AdminID:     adm.ID,
		Email:       adm.Email,
		DisplayName: adm.DisplayName,
		Role:        string(adm.Role),
		TenantID:    adm.TenantID,
		LastLoginAt: adm.LastLoginAt,
	}
	if t, err := s.tenants.GetByID(ctx, adm.TenantID); err == nil {
		me.TenantName, me.TenantSlug = t.Name, t.Slug
	}
	return me, nil
}
