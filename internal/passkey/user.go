package passkey

import (
	"encoding/base64"
	"fmt"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/webauthn"

	"github.com/dropDatabas3/izzu/internal/domain/repository"
)

// webUser adapta un EndUser a webauthn.User. El user handle es el id.
type webUser struct {
	id          string
	name        string
	displayName string
	credentials []webauthn.Credential
}

func newWebUser(u *repository.EndUser, keys []repository.Passkey) (*webUser, error) {
	creds := make([]webauthn.Credential, 0, len(keys))
	for _, k := range keys {
		c, err := toCredential(k)
		if err != nil {
			return nil, err
		}
		creds = append(creds, c)
	}
	display := u.DisplayName
	if display == "" {
		display = u.Email
	}
	return &webUser{id: u.ID, name: u.Email, displayName: display, credentials: creds}, nil
}

func (u *webUser) WebAuthnID() []byte                         { return []byte(u.id) }
func (u *webUser) WebAuthnName() string                       { return u.name }
func (u *webUser) WebAuthnDisplayName() string                { return u.displayName }
func (u *webUser) WebAuthnIcon() string                       { return "" }
func (u *webUser) WebAuthnCredentials() []webauthn.Credential { return u.credentials }

func toCredential(p repository.Passkey) (webauthn.Credential, error) {
	raw, err := base64.RawURLEncoding.DecodeString(p.CredentialID)
	if err != nil {
		return webauthn.Credential{}, fmt.Errorf("decode credential %s: %w", p.ID, err)
	}
	transports := make([]protocol.AuthenticatorTransport, 0, len(p.Transports))
	for _, t := range p.Transports {
		transports = append(transports, protocol.AuthenticatorTransport(t))
	}
	return webauthn.Credential{
		ID:              raw,
		PublicKey:       p.PublicKey,
		AttestationType: p.AttestationType,
		Transport:       transports,
		Flags: webauthn.CredentialFlags{
			UserPresent:    true,
			BackupEligible: p.BackupEligible,
			BackupState:    p.BackupState,
		},
		Authenticator: webauthn.Authenticator{
			AAGUID:    p.AAGUID,
			SignCount: p.Counter,
		},
	}, nil
}

func transportsToStrings(ts []protocol.AuthenticatorTransport) []string {
	out := make([]string, 0, len(ts))
	for _, t := range ts {
		out = append(out, string(t))
	}
	return out
}
