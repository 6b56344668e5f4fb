// Package passkey gestiona las ceremonias WebAuthn de registro y login.
//
// Cada ceremonia guarda su SessionData en el Secret Store bajo una clave de
// correlación del servidor (challenge:<endUserId> o authReq:<requestId>) y
// la consume con GETDEL en el primer intento de verificación, salga bien o
// mal. El challenge nunca se toma del cliente.
package passkey

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/webauthn"

	"github.com/dropDatabas3/izzu/internal/domain/repository"
	"github.com/dropDatabas3/izzu/internal/observability/logger"
	"github.com/dropDatabas3/izzu/internal/observability/metrics"
	"github.com/dropDatabas3/izzu/internal/secretstore"
	"github.com/dropDatabas3/izzu/internal/security/token"
)

var (
	ErrInvalidInput       = errors.New("passkey: project, user and response are required")
	ErrUserNotFound       = errors.New("passkey: user not found")
	ErrChallengeExpired   = errors.New("passkey: challenge expired or invalid")
	ErrVerification       = errors.New("passkey: verification failed")
	ErrCredentialNotFound = errors.New("passkey: credential not found")
	ErrCounterReplay      = errors.New("passkey: signature counter did not increase")
	ErrUnavailable        = errors.New("passkey: store unavailable")
)

// DefaultChallengeTTL es la vida de un challenge pendiente.
const DefaultChallengeTTL = 300 * time.Second

type kind string

const (
	kindRegistration kind = "registration"
	kindLogin        kind = "login"
)

// Config del relying party.
type Config struct {
	RPID          string
	RPDisplayName string
	RPOrigins     []string
	ChallengeTTL  time.Duration
}

// LoginOptions se devuelve al cliente junto al requestId de correlación.
type LoginOptions struct {
	RequestID string
	Options   *protocol.CredentialAssertion
}

// LoginResult identifica al dueño de la credencial verificada.
type LoginResult struct {
	EndUserID string
	PasskeyID string
	Counter   uint32
}

// envelope es lo que se persiste por ceremonia.
type envelope struct {
	ProjectID string               `json:"projectId"`
	UserID    string               `json:"userId,omitempty"`
	Kind      kind                 `json:"kind"`
	Session   webauthn.SessionData `json:"session"`
}

type passkeyProvider interface {
	BeginRegistration(user webauthn.User, opts ...webauthn.RegistrationOption) (*protocol.CredentialCreation, *webauthn.SessionData, error)
	CreateCredential(user webauthn.User, session webauthn.SessionData, response *protocol.ParsedCredentialCreationData) (*webauthn.Credential, error)
	BeginLogin(user webauthn.User, opts ...webauthn.LoginOption) (*protocol.CredentialAssertion, *webauthn.SessionData, error)
	BeginDiscoverableLogin(opts ...webauthn.LoginOption) (*protocol.CredentialAssertion, *webauthn.SessionData, error)
	ValidateLogin(user webauthn.User, session webauthn.SessionData, response *protocol.ParsedCredentialAssertionData) (*webauthn.Credential, error)
	ValidatePasskeyLogin(handler webauthn.DiscoverableUserHandler, session webauthn.SessionData, response *protocol.ParsedCredentialAssertionData) (webauthn.User, *webauthn.Credential, error)
}

type passkeyParser interface {
	ParseCredentialCreationResponseBytes(data []byte) (*protocol.ParsedCredentialCreationData, error)
	ParseCredentialRequestResponseBytes(data []byte) (*protocol.ParsedCredentialAssertionData, error)
}

type defaultParser struct{}

func (defaultParser) ParseCredentialCreationResponseBytes(data []byte) (*protocol.ParsedCredentialCreationData, error) {
	return protocol.ParseCredentialCreationResponseBytes(data)
}

func (defaultParser) ParseCredentialRequestResponseBytes(data []byte) (*protocol.ParsedCredentialAssertionData, error) {
	return protocol.ParseCredentialRequestResponseBytes(data)
}

// Manager orquesta las ceremonias.
type Manager struct {
	provider passkeyProvider
	parser   passkeyParser
	store    secretstore.Store
	users    repository.EndUserRepository
	passkeys repository.PasskeyRepository
	ttl      time.Duration
	now      func() time.Time
}

// NewManager valida la config del RP y arma el Manager.
func NewManager(cfg Config, store secretstore.Store, users repository.EndUserRepository, passkeys repository.PasskeyRepository) (*Manager, error) {
	wa, err := webauthn.New(&webauthn.Config{
		RPID:          cfg.RPID,
		RPDisplayName: cfg.RPDisplayName,
		RPOrigins:     cfg.RPOrigins,
	})
	if err != nil {
		return nil, fmt.Errorf("passkey: webauthn config: %w", err)
	}
	ttl := cfg.ChallengeTTL
	if ttl <= 0 {
		ttl = DefaultChallengeTTL
	}
	return &Manager{
		provider: wa,
		parser:   defaultParser{},
		store:    store,
		users:    users,
		passkeys: passkeys,
		ttl:      ttl,
		now:      time.Now,
	}, nil
}

// ─── Registro ───

// BeginRegistration emite las opciones de creación para un usuario del proyecto.
func (m *Manager) BeginRegistration(ctx context.Context, projectID, endUserID, email string) (*protocol.CredentialCreation, error) {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Op("passkey.BeginRegistration"), logger.EndUserID(endUserID))

	projectID, endUserID = strings.TrimSpace(projectID), strings.TrimSpace(endUserID)
	if projectID == "" || endUserID == "" {
		return nil, ErrInvalidInput
	}
	user, err := m.loadUser(ctx, projectID, endUserID)
	if err != nil {
		return nil, err
	}
	if email != "" && user.name == "" {
		user.name = email
	}

	opts := []webauthn.RegistrationOption{
		webauthn.WithAuthenticatorSelection(protocol.AuthenticatorSelection{
			ResidentKey:      protocol.ResidentKeyRequirementPreferred,
			UserVerification: protocol.VerificationPreferred,
		}),
	}
	if len(user.credentials) > 0 {
		opts = append(opts, webauthn.WithExclusions(webauthn.Credentials(user.credentials).CredentialDescriptors()))
	}

	creation, session, err := m.provider.BeginRegistration(user, opts...)
	if err != nil {
		log.Error("begin registration failed", logger.Err(err))
		return nil, fmt.Errorf("passkey: begin registration: %w", err)
	}

	env := envelope{ProjectID: projectID, UserID: endUserID, Kind: kindRegistration, Session: *session}
	if err := m.put(ctx, secretstore.ChallengeKey(endUserID), env); err != nil {
		log.Error("store challenge failed", logger.Err(err))
		return nil, err
	}
	metrics.Passkey("register_begin", "ok")
	return creation, nil
}

// FinishRegistration verifica la attestation y persiste la credencial.
// El challenge se consume aunque la verificación falle.
func (m *Manager) FinishRegistration(ctx context.Context, projectID, endUserID, name string, raw []byte) (*repository.Passkey, error) {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Op("passkey.FinishRegistration"), logger.EndUserID(endUserID))

	projectID, endUserID = strings.TrimSpace(projectID), strings.TrimSpace(endUserID)
	if projectID == "" || endUserID == "" || len(raw) == 0 {
		return nil, ErrInvalidInput
	}

	env, err := m.take(ctx, secretstore.ChallengeKey(endUserID), kindRegistration)
	if err != nil {
		metrics.Passkey("register_finish", "expired")
		return nil, err
	}
	if env.ProjectID != projectID || env.UserID != endUserID {
		metrics.Passkey("register_finish", "mismatch")
		return nil, ErrVerification
	}

	user, err := m.loadUser(ctx, projectID, endUserID)
	if err != nil {
		return nil, err
	}

	parsed, err := m.parser.ParseCredentialCreationResponseBytes(raw)
	if err != nil {
		log.Debug("parse attestation failed", logger.Err(err))
		metrics.Passkey("register_finish", "invalid")
		return nil, ErrVerification
	}
	cred, err := m.provider.CreateCredential(user, env.Session, parsed)
	if err != nil {
		log.Debug("attestation rejected", logger.Err(err))
		metrics.Passkey("register_finish", "invalid")
		return nil, ErrVerification
	}

	if strings.TrimSpace(name) == "" {
		name = "Passkey"
	}
	pk, err := m.passkeys.Create(ctx, repository.CreatePasskeyInput{
		EndUserID:       endUserID,
		CredentialID:    EncodeCredentialID(cred.ID),
		PublicKey:       cred.PublicKey,
		Counter:         cred.Authenticator.SignCount,
		Transports:      transportsToStrings(cred.Transport),
		Name:            name,
		AAGUID:          cred.Authenticator.AAGUID,
		AttestationType: cred.AttestationType,
		BackupEligible:  cred.Flags.BackupEligible,
		BackupState:     cred.Flags.BackupState,
	})
	if repository.IsConflict(err) {
		metrics.Passkey("register_finish", "duplicate")
		return nil, ErrVerification
	}
	if err != nil {
		log.Error("persist passkey failed", logger.Err(err))
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	metrics.Passkey("register_finish", "ok")
	return pk, nil
}

// ─── Login ───

// BeginLogin emite las opciones de assertion. Con endUserID vacío la
// ceremonia es discoverable (allow-list vacía).
func (m *Manager) BeginLogin(ctx context.Context, projectID, endUserID string) (*LoginOptions, error) {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Op("passkey.BeginLogin"))

	projectID, endUserID = strings.TrimSpace(projectID), strings.TrimSpace(endUserID)
	if projectID == "" {
		return nil, ErrInvalidInput
	}
	userOpt := webauthn.WithUserVerification(protocol.VerificationPreferred)

	var (
		assertion *protocol.CredentialAssertion
		session   *webauthn.SessionData
		err       error
	)
	if endUserID == "" {
		assertion, session, err = m.provider.BeginDiscoverableLogin(userOpt)
	} else {
		user, lerr := m.loadUser(ctx, projectID, endUserID)
		if lerr != nil {
			return nil, lerr
		}
		if len(user.credentials) == 0 {
			return nil, ErrCredentialNotFound
		}
		assertion, session, err = m.provider.BeginLogin(user, userOpt)
	}
	if err != nil {
		log.Error("begin login failed", logger.Err(err))
		return nil, fmt.Errorf("passkey: begin login: %w", err)
	}

	requestID, err := token.GenerateOpaqueToken(16)
	if err != nil {
		return nil, fmt.Errorf("passkey: request id: %w", err)
	}
	env := envelope{ProjectID: projectID, UserID: endUserID, Kind: kindLogin, Session: *session}
	if err := m.put(ctx, secretstore.AuthRequestKey(requestID), env); err != nil {
		log.Error("store auth request failed", logger.Err(err))
		return nil, err
	}
	metrics.Passkey("login_begin", "ok")
	return &LoginOptions{RequestID: requestID, Options: assertion}, nil
}

// FinishLogin verifica la assertion, aplica la regla del counter y devuelve
// el end user dueño de la credencial.
func (m *Manager) FinishLogin(ctx context.Context, projectID, requestID string, raw []byte) (*LoginResult, error) {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Op("passkey.FinishLogin"), logger.ProjectID(projectID))

	projectID, requestID = strings.TrimSpace(projectID), strings.TrimSpace(requestID)
	if projectID == "" || requestID == "" || len(raw) == 0 {
		return nil, ErrInvalidInput
	}

	env, err := m.take(ctx, secretstore.AuthRequestKey(requestID), kindLogin)
	if err != nil {
		metrics.Passkey("login_finish", "expired")
		return nil, err
	}
	if env.ProjectID != projectID {
		metrics.Passkey("login_finish", "mismatch")
		return nil, ErrVerification
	}

	parsed, err := m.parser.ParseCredentialRequestResponseBytes(raw)
	if err != nil {
		log.Debug("parse assertion failed", logger.Err(err))
		metrics.Passkey("login_finish", "invalid")
		return nil, ErrVerification
	}

	stored, err := m.passkeys.GetByCredentialID(ctx, projectID, EncodeCredentialID(parsed.RawID))
	if repository.IsNotFound(err) {
		metrics.Passkey("login_finish", "unknown_credential")
		return nil, ErrCredentialNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if env.UserID != "" && stored.EndUserID != env.UserID {
		metrics.Passkey("login_finish", "mismatch")
		return nil, ErrVerification
	}

	if env.UserID != "" {
		user, lerr := m.loadUser(ctx, projectID, env.UserID)
		if lerr != nil {
			return nil, lerr
		}
		_, err = m.provider.ValidateLogin(user, env.Session, parsed)
	} else {
		_, _, err = m.provider.ValidatePasskeyLogin(m.discoverableHandler(ctx, projectID, stored), env.Session, parsed)
	}
	if err != nil {
		log.Debug("assertion rejected", logger.Err(err))
		metrics.Passkey("login_finish", "invalid")
		return nil, ErrVerification
	}

	reported := parsed.Response.AuthenticatorData.Counter
	if !CounterAdvances(stored.Counter, reported) {
		log.Warn("passkey counter replay",
			logger.EndUserID(stored.EndUserID),
			logger.Int("stored", int(stored.Counter)),
			logger.Int("reported", int(reported)))
		metrics.Passkey("login_finish", "replay")
		return nil, ErrCounterReplay
	}
	if err := m.passkeys.UpdateCounter(ctx, stored.ID, stored.Counter, reported, m.now().UTC()); err != nil {
		if repository.IsConflict(err) {
			// otro login con la misma credencial avanzó el counter primero
			metrics.Passkey("login_finish", "replay")
			return nil, ErrCounterReplay
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	metrics.Passkey("login_finish", "ok")
	return &LoginResult{EndUserID: stored.EndUserID, PasskeyID: stored.ID, Counter: reported}, nil
}

// CounterAdvances: se acepta si el counter reportado supera al guardado, o
// si ambos son cero (autenticadores que no implementan counter).
func CounterAdvances(stored, reported uint32) bool {
	if stored == 0 && reported == 0 {
		return true
	}
	return reported > stored
}

// ─── helpers ───

func (m *Manager) put(ctx context.Context, key string, env envelope) error {
	b, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("passkey: encode session: %w", err)
	}
	if err := m.store.Set(ctx, key, string(b), m.ttl); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (m *Manager) take(ctx context.Context, key string, want kind) (*envelope, error) {
	raw, err := m.store.Take(ctx, key)
	if secretstore.IsNotFound(err) {
		return nil, ErrChallengeExpired
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	var env envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil || env.Kind != want {
		return nil, ErrChallengeExpired
	}
	return &env, nil
}

func (m *Manager) loadUser(ctx context.Context, projectID, endUserID string) (*webUser, error) {
	u, err := m.users.GetByID(ctx, projectID, endUserID)
	if repository.IsNotFound(err) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	keys, err := m.passkeys.ListByUser(ctx, u.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return newWebUser(u, keys)
}

// discoverableHandler resuelve el user handle contra la credencial ya
// encontrada dentro del proyecto.
func (m *Manager) discoverableHandler(ctx context.Context, projectID string, stored *repository.Passkey) webauthn.DiscoverableUserHandler {
	return func(_, userHandle []byte) (webauthn.User, error) {
		if string(userHandle) != stored.EndUserID {
			return nil, fmt.Errorf("user handle does not own credential")
		}
		return m.loadUser(ctx, projectID, stored.EndUserID)
	}
}

// EncodeCredentialID codifica el raw id como se guarda en la base.
func EncodeCredentialID(raw []byte) string {
	return base64.RawURLEncoding.EncodeToString(raw)
}
