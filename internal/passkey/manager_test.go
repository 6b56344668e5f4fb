package passkey

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/webauthn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/izzu/internal/domain/repository"
	"github.com/dropDatabas3/izzu/internal/secretstore"
	"github.com/dropDatabas3/izzu/internal/store/memory"
)

type fakeProvider struct {
	credential *webauthn.Credential
	createErr  error
	loginErr   error
	userHandle []byte
}

func (f *fakeProvider) BeginRegistration(webauthn.User, ...webauthn.RegistrationOption) (*protocol.CredentialCreation, *webauthn.SessionData, error) {
	return &protocol.CredentialCreation{}, &webauthn.SessionData{Challenge: "reg-challenge"}, nil
}

func (f *fakeProvider) CreateCredential(webauthn.User, webauthn.SessionData, *protocol.ParsedCredentialCreationData) (*webauthn.Credential, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	return f.credential, nil
}

func (f *fakeProvider) BeginLogin(webauthn.User, ...webauthn.LoginOption) (*protocol.CredentialAssertion, *webauthn.SessionData, error) {
	return &protocol.CredentialAssertion{}, &webauthn.SessionData{Challenge: "login-challenge"}, nil
}

func (f *fakeProvider) BeginDiscoverableLogin(...webauthn.LoginOption) (*protocol.CredentialAssertion, *webauthn.SessionData, error) {
	return &protocol.CredentialAssertion{}, &webauthn.SessionData{Challenge: "disc-challenge"}, nil
}

func (f *fakeProvider) ValidateLogin(webauthn.User, webauthn.SessionData, *protocol.ParsedCredentialAssertionData) (*webauthn.Credential, error) {
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return f.credential, nil
}

func (f *fakeProvider) ValidatePasskeyLogin(handler webauthn.DiscoverableUserHandler, _ webauthn.SessionData, resp *protocol.ParsedCredentialAssertionData) (webauthn.User, *webauthn.Credential, error) {
	if f.loginErr != nil {
		return nil, nil, f.loginErr
	}
	u, err := handler(resp.RawID, f.userHandle)
	if err != nil {
		return nil, nil, err
	}
	return u, f.credential, nil
}

type fakeParser struct {
	rawID   []byte
	counter uint32
}

func (f *fakeParser) ParseCredentialCreationResponseBytes([]byte) (*protocol.ParsedCredentialCreationData, error) {
	return &protocol.ParsedCredentialCreationData{}, nil
}

func (f *fakeParser) ParseCredentialRequestResponseBytes([]byte) (*protocol.ParsedCredentialAssertionData, error) {
	return &protocol.ParsedCredentialAssertionData{
		ParsedPublicKeyCredential: protocol.ParsedPublicKeyCredential{RawID: f.rawID},
		Response: protocol.ParsedAssertionResponse{
			AuthenticatorData: protocol.AuthenticatorData{Counter: f.counter},
		},
	}, nil
}

type harness struct {
	m        *Manager
	provider *fakeProvider
	parser   *fakeParser
	repos    repository.Repositories
	project  string
	other    string
	userID   string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	ctx := context.Background()
	repos := memory.New().Repositories()
	tenant, err := repos.Tenants.Create(ctx, repository.CreateTenantInput{Name: "T", Slug: "t-1"})
	require.NoError(t, err)
	p, _, err := repos.Projects.Create(ctx, repository.CreateProjectInput{TenantID: tenant.ID, Name: "A", Slug: "a", PublishableKey: "pk_a", SecretKey: "sk_a"})
	require.NoError(t, err)
	o, _, err := repos.Projects.Create(ctx, repository.CreateProjectInput{TenantID: tenant.ID, Name: "B", Slug: "b", PublishableKey: "pk_b", SecretKey: "sk_b"})
	require.NoError(t, err)
	u, _, err := repos.EndUsers.CreateWithIdentity(ctx,
		repository.CreateEndUserInput{ProjectID: p.ID, Email: "pat@example.com"},
		repository.CreateIdentityInput{Provider: repository.ProviderEmail, ProviderID: "pat@example.com"})
	require.NoError(t, err)

	provider := &fakeProvider{credential: &webauthn.Credential{
		ID:            []byte("cred-1"),
		PublicKey:     []byte("pub"),
		Transport:     []protocol.AuthenticatorTransport{protocol.Internal},
		Authenticator: webauthn.Authenticator{SignCount: 5},
	}, userHandle: []byte(u.ID)}
	parser := &fakeParser{rawID: []byte("cred-1")}

	m := &Manager{
		provider: provider,
		parser:   parser,
		store:    secretstore.NewMemory(""),
		users:    repos.EndUsers,
		passkeys: repos.Passkeys,
		ttl:      time.Minute,
		now:      time.Now,
	}
	return &harness{m: m, provider: provider, parser: parser, repos: repos, project: p.ID, other: o.ID, userID: u.ID}
}

func (h *harness) register(t *testing.T) *repository.Passkey {
	t.Helper()
	ctx := context.Background()
	_, err := h.m.BeginRegistration(ctx, h.project, h.userID, "pat@example.com")
	require.NoError(t, err)
	pk, err := h.m.FinishRegistration(ctx, h.project, h.userID, "MacBook", []byte(`{}`))
	require.NoError(t, err)
	return pk
}

func (h *harness) login(t *testing.T, userID string, counter uint32) (*LoginResult, error) {
	t.Helper()
	opts, err := h.m.BeginLogin(context.Background(), h.project, userID)
	require.NoError(t, err)
	require.NotEmpty(t, opts.RequestID)
	h.parser.counter = counter
	return h.m.FinishLogin(context.Background(), h.project, opts.RequestID, []byte(`{}`))
}

func TestRegistration_PersistsCredential(t *testing.T) {
	h := newHarness(t)
	pk := h.register(t)

	assert.Equal(t, EncodeCredentialID([]byte("cred-1")), pk.CredentialID)
	assert.Equal(t, uint32(5), pk.Counter)
	assert.Equal(t, []string{"internal"}, pk.Transports)
	assert.Equal(t, "MacBook", pk.Name)
}

func TestRegistration_ChallengeConsumedOnFailure(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	_, err := h.m.BeginRegistration(ctx, h.project, h.userID, "")
	require.NoError(t, err)

	h.provider.createErr = errors.New("bad attestation")
	_, err = h.m.FinishRegistration(ctx, h.project, h.userID, "", []byte(`{}`))
	assert.ErrorIs(t, err, ErrVerification)

	h.provider.createErr = nil
	_, err = h.m.FinishRegistration(ctx, h.project, h.userID, "", []byte(`{}`))
	assert.ErrorIs(t, err, ErrChallengeExpired)

	keys, _ := h.repos.Passkeys.ListByUser(ctx, h.userID)
	assert.Empty(t, keys)
}

func TestRegistration_ProjectScoping(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	_, err := h.m.BeginRegistration(ctx, h.other, h.userID, "")
	assert.ErrorIs(t, err, ErrUserNotFound)

	_, err = h.m.BeginRegistration(ctx, h.project, h.userID, "")
	require.NoError(t, err)
	_, err = h.m.FinishRegistration(ctx, h.other, h.userID, "", []byte(`{}`))
	assert.ErrorIs(t, err, ErrVerification)
}

func TestLogin_CounterMustIncrease(t *testing.T) {
	h := newHarness(t)
	pk := h.register(t) // counter 5

	_, err := h.login(t, h.userID, 5)
	assert.ErrorIs(t, err, ErrCounterReplay)

	_, err = h.login(t, h.userID, 0)
	assert.ErrorIs(t, err, ErrCounterReplay)

	res, err := h.login(t, h.userID, 6)
	require.NoError(t, err)
	assert.Equal(t, h.userID, res.EndUserID)

	stored, err := h.repos.Passkeys.GetByCredentialID(context.Background(), h.project, pk.CredentialID)
	require.NoError(t, err)
	assert.Equal(t, uint32(6), stored.Counter)
	assert.NotNil(t, stored.LastUsedAt)
}

func TestLogin_RequestIsSingleUse(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.register(t)

	opts, err := h.m.BeginLogin(ctx, h.project, h.userID)
	require.NoError(t, err)
	h.parser.counter = 9

	_, err = h.m.FinishLogin(ctx, h.project, opts.RequestID, []byte(`{}`))
	require.NoError(t, err)
	_, err = h.m.FinishLogin(ctx, h.project, opts.RequestID, []byte(`{}`))
	assert.ErrorIs(t, err, ErrChallengeExpired)

	_, err = h.m.FinishLogin(ctx, h.project, "forged-request-id", []byte(`{}`))
	assert.ErrorIs(t, err, ErrChallengeExpired)
}

func TestLogin_Discoverable(t *testing.T) {
	h := newHarness(t)
	h.register(t)

	res, err := h.login(t, "", 7)
	require.NoError(t, err)
	assert.Equal(t, h.userID, res.EndUserID)

	// user handle de otro usuario no es aceptado
	h.provider.userHandle = []byte("someone-else")
	_, err = h.login(t, "", 8)
	assert.ErrorIs(t, err, ErrVerification)
}

func TestLogin_CredentialFromOtherProject(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.register(t)

	opts, err := h.m.BeginLogin(ctx, h.other, "")
	require.NoError(t, err)
	h.parser.counter = 10
	_, err = h.m.FinishLogin(ctx, h.other, opts.RequestID, []byte(`{}`))
	assert.ErrorIs(t, err, ErrCredentialNotFound)
}

func TestLogin_SignatureRejected(t *testing.T) {
	h := newHarness(t)
	h.register(t)
	h.provider.loginErr = errors.New("bad signature")

	_, err := h.login(t, h.userID, 6)
	assert.ErrorIs(t, err, ErrVerification)
}

func TestCounterAdvances(t *testing.T) {
	assert.True(t, CounterAdvances(0, 0))
	assert.True(t, CounterAdvances(5, 6))
	assert.False(t, CounterAdvances(5, 5))
	assert.False(t, CounterAdvances(5, 0))
	assert.True(t, CounterAdvances(0, 1))
}
