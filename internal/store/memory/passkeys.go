package memory

import (
	"context"
	"sort"
	"time"

	"github.com/dropDatabas3/izzu/internal/domain/repository"
)

// ---- passkeys ----

type passkeyRepo struct{ s *Store }

func clonePasskey(p *repository.Passkey) repository.Passkey {
	c := *p
	c.PublicKey = append([]byte(nil), p.PublicKey...)
	c.AAGUID = append([]byte(nil), p.AAGUID...)
	c.Transports = append([]string(nil), p.Transports...)
	return c
}

func (r passkeyRepo) Create(_ context.Context, in repository.CreatePasskeyInput) (*repository.Passkey, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[in.EndUserID]; !ok {
		return nil, repository.ErrNotFound
	}
	if _, dup := r.s.passkeyByCred[in.CredentialID]; dup {
		return nil, repository.ErrConflict
	}
	p := &repository.Passkey{
		ID:              newID(),
		EndUserID:       in.EndUserID,
		CredentialID:    in.CredentialID,
		PublicKey:       in.PublicKey,
		Counter:         in.Counter,
		Transports:      in.Transports,
		Name:            in.Name,
		AAGUID:          in.AAGUID,
		AttestationType: in.AttestationType,
		BackupEligible:  in.BackupEligible,
		BackupState:     in.BackupState,
		CreatedAt:       r.s.now(),
	}
	r.s.passkeys[p.ID] = p
	r.s.passkeyByCred[p.CredentialID] = p.ID
	c := clonePasskey(p)
	return &c, nil
}

func (r passkeyRepo) GetByCredentialID(_ context.Context, projectID, credentialID string) (*repository.Passkey, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	id, ok := r.s.passkeyByCred[credentialID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	p := r.s.passkeys[id]
	if u, ok := r.s.users[p.EndUserID]; !ok || u.ProjectID != projectID {
		return nil, repository.ErrNotFound
	}
	c := clonePasskey(p)
	return &c, nil
}

func (r passkeyRepo) ListByUser(_ context.Context, endUserID string) ([]repository.Passkey, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []repository.Passkey
	for _, p := range r.s.passkeys {
		if p.EndUserID == endUserID {
			out = append(out, clonePasskey(p))
		}
	}
	sortByCreated(out, func(p repository.Passkey) time.Time { return p.CreatedAt })
	return out, nil
}

func (r passkeyRepo) UpdateCounter(_ context.Context, id string, expected, next uint32, usedAt time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.passkeys[id]
	if !ok {
		return repository.ErrNotFound
	}
	if p.Counter != expected {
		return repository.ErrConflict
	}
	p.Counter = next
	p.LastUsedAt = timePtr(usedAt)
	return nil
}

// ---- sessions ----

type sessionRepo struct{ s *Store }

func (r sessionRepo) Create(_ context.Context, sess repository.Session) (*repository.Session, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, dup := r.s.sessions[sess.TokenHash]; dup {
		return nil, repository.ErrConflict
	}
	if sess.ID == "" {
		sess.ID = newID()
	}
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = r.s.now()
	}
	c := sess
	r.s.sessions[sess.TokenHash] = &c
	return &sess, nil
}

func (r sessionRepo) GetByTokenHash(_ context.Context, tokenHash string) (*repository.Session, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	sess, ok := r.s.sessions[tokenHash]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c := *sess
	return &c, nil
}

func (r sessionRepo) DeleteByTokenHash(_ context.Context, tokenHash string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.sessions, tokenHash)
	return nil
}

// ---- audit ----

type auditRepo struct{ s *Store }

func (r auditRepo) Append(_ context.Context, e repository.AuditEntry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if e.ID == "" {
		e.ID = newID()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = r.s.now()
	}
	r.s.audit = append(r.s.audit, e)
	return nil
}

func (r auditRepo) List(_ context.Context, projectID string, page repository.Page) ([]repository.AuditEntry, error) {
	page = page.Normalize()
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []repository.AuditEntry
	// más recientes primero
	for i := len(r.s.audit) - 1; i >= 0; i-- {
		if r.s.audit[i].ProjectID == projectID {
			out = append(out, r.s.audit[i])
		}
	}
	return paginate(out, page), nil
}

// ---- webhooks ----

type webhookRepo struct{ s *Store }

func (r webhookRepo) Create(_ context.Context, in repository.CreateWebhookInput) (*repository.Webhook, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.projects[in.ProjectID]; !ok {
		return nil, repository.ErrNotFound
	}
	w := &repository.Webhook{
		ID:        newID(),
		ProjectID: in.ProjectID,
		URL:       in.URL,
		Secret:    in.Secret,
		Events:    append([]string(nil), in.Events...),
		Active:    true,
		CreatedAt: r.s.now(),
	}
	r.s.webhooks[w.ID] = w
	c := *w
	return &c, nil
}

func (r webhookRepo) GetByID(_ context.Context, id string) (*repository.Webhook, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	w, ok := r.s.webhooks[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c := *w
	return &c, nil
}

func (r webhookRepo) ListByProject(_ context.Context, projectID string) ([]repository.Webhook, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []repository.Webhook
	for _, w := range r.s.webhooks {
		if w.ProjectID == projectID {
			out = append(out, *w)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r webhookRepo) ListActiveForEvent(ctx context.Context, projectID, event string) ([]repository.Webhook, error) {
	all, err := r.ListByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	var out []repository.Webhook
	for i := range all {
		if all[i].Subscribed(event) {
			out = append(out, all[i])
		}
	}
	return out, nil
}

func (r webhookRepo) RecordDelivery(_ context.Context, d repository.WebhookDelivery) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.deliveries = append(r.s.deliveries, d)
	return nil
}
