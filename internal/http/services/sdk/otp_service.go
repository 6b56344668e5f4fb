package sdk

import (
	"context"
	"fmt"
	"strings"

	"github.com/dropDatabas3/izzu/internal/domain/repository"
	dto "github.com/dropDatabas3/izzu/internal/http/dto/sdk"
	"github.com/dropDatabas3/izzu/internal/identity"
	"github.com/dropDatabas3/izzu/internal/observability/logger"
	"github.com/dropDatabas3/izzu/internal/otp"
	"github.com/dropDatabas3/izzu/internal/security/password"
	"github.com/dropDatabas3/izzu/internal/session"
)

// OTPService: emisión y canje de códigos para end users.
type OTPService interface {
	Send(ctx context.Context, projectID string, req dto.OTPSendRequest) (*dto.OTPSendResponse, error)
	Verify(ctx context.Context, projectID string, req dto.OTPVerifyRequest, meta Meta) (*dto.OTPVerifyResponse, error)
}

type otpService struct {
	otp      otp.Service
	resolver identity.Resolver
	sessions session.Service
	policy   password.Policy
	params   password.Params
}

func NewOTPService(d Deps) OTPService {
	return &otpService{
		otp:      d.OTP,
		resolver: d.Resolver,
		sessions: d.Sessions,
		policy:   d.PasswordPolicy,
		params:   d.PasswordParams,
	}
}

// identifierOf devuelve identificador, canal y proveedor de identidad.
func identifierOf(email, phone string) (string, otp.Channel, string, error) {
	if e := strings.TrimSpace(email); e != "" {
		return e, otp.ChannelEmail, repository.ProviderEmail, nil
	}
	if p := strings.TrimSpace(phone); p != "" {
		return p, otp.ChannelSMS, repository.ProviderPhone, nil
	}
	return "", "", "", fmt.Errorf("%w: email or phone is required", ErrInvalidInput)
}

func (s *otpService) Send(ctx context.Context, projectID string, req dto.OTPSendRequest) (*dto.OTPSendResponse, error) {
	id, ch, _, err := identifierOf(req.Email, req.Phone)
	if err != nil {
		return nil, err
	}
	issued, err := s.otp.Issue(ctx, id, ch)
	if err != nil {
		return nil, err
	}
	logger.From(ctx).Debug("sdk otp issued", logger.Layer("service"), logger.ProjectID(projectID))

	out := &dto.OTPSendResponse{Success: true, Message: "OTP sent"}
	if issued.DevMode {
		out.Message = "OTP generated (dev mode)"
		out.OTP = issued.Code
		out.DevMode = true
	}
	return out, nil
}

func (s *otpService) Verify(ctx context.Context, projectID string, req dto.OTPVerifyRequest, meta Meta) (*dto.OTPVerifyResponse, error) {
	id, _, provider, err := identifierOf(req.Email, req.Phone)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Code) == "" {
		return nil, fmt.Errorf("%w: code is required", ErrInvalidInput)
	}

	var hash string
	if req.Password != "" {
		if ok, reasons := s.policy.Validate(req.Password); !ok {
			return nil, &PolicyError{Reasons: reasons}
		}
	}

	ok, err := s.otp.Redeem(ctx, id, req.Code)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidOTP
	}

	if req.Password != "" {
		if hash, err = password.Hash(s.params, req.Password); err != nil {
			return nil, err
		}
	}

	norm := otp.Normalize(id)
	in := identity.Input{
		ProjectID:    projectID,
		Provider:     provider,
		ProviderID:   norm,
		DisplayName:  req.Name,
		Location:     toLocation(req.ResolvedLocation()),
		PasswordHash: hash,
		Purpose:      identity.PurposeSignIn,
		IPAddress:    meta.IPAddress,
		UserAgent:    meta.UserAgent,
	}
	if provider == repository.ProviderEmail {
		in.VerifiedEmail = norm
	}
	res, err := s.resolver.Resolve(ctx, in)
	if err != nil {
		return nil, err
	}

	raw, sess, err := s.sessions.Create(ctx, session.Principal{
		Type:      repository.PrincipalEndUser,
		ID:        res.User.ID,
		ProjectID: projectID,
	}, meta)
	if err != nil {
		return nil, err
	}
	return &dto.OTPVerifyResponse{
		Success:   true,
		IsNewUser: res.IsNew,
		User:      toUserDTO(res.User),
		Session:   toSessionDTO(raw, sess),
	}, nil
}
