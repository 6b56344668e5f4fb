package pg

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/izzu/internal/domain/repository"
)

// ---- passkeys ----

type passkeyRepo struct{ pool *pgxpool.Pool }

const passkeyCols = `p.id, p.end_user_id, p.credential_id, p.public_key, p.counter, p.transports, p.name,
	p.aaguid, p.attestation_type, p.backup_eligible, p.backup_state, p.created_at, p.last_used_at`

func scanPasskey(row rowScanner) (*repository.Passkey, error) {
	var (
		p       repository.Passkey
		counter int64
	)
	err := row.Scan(&p.ID, &p.EndUserID, &p.CredentialID, &p.PublicKey, &counter, &p.Transports, &p.Name,
		&p.AAGUID, &p.AttestationType, &p.BackupEligible, &p.BackupState, &p.CreatedAt, &p.LastUsedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	p.Counter = uint32(counter)
	return &p, nil
}

func (r *passkeyRepo) Create(ctx context.Context, in repository.CreatePasskeyInput) (*repository.Passkey, error) {
	transports := in.Transports
	if transports == nil {
		transports = []string{}
	}
	const query = `
		INSERT INTO passkeys AS p (end_user_id, credential_id, public_key, counter, transports, name,
			aaguid, attestation_type, backup_eligible, backup_state)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING ` + passkeyCols
	return scanPasskey(r.pool.QueryRow(ctx, query, in.EndUserID, in.CredentialID, in.PublicKey, int64(in.Counter),
		transports, in.Name, in.AAGUID, in.AttestationType, in.BackupEligible, in.BackupState))
}

// GetByCredentialID solo devuelve la credencial si su dueño es del proyecto.
func (r *passkeyRepo) GetByCredentialID(ctx context.Context, projectID, credentialID string) (*repository.Passkey, error) {
	const query = `
		SELECT ` + passkeyCols + `
		FROM passkeys p
		JOIN end_users u ON u.id = p.end_user_id
		WHERE p.credential_id = $1 AND u.project_id = $2`
	return scanPasskey(r.pool.QueryRow(ctx, query, credentialID, projectID))
}

func (r *passkeyRepo) ListByUser(ctx context.Context, endUserID string) ([]repository.Passkey, error) {
	const query = `SELECT ` + passkeyCols + ` FROM passkeys p WHERE p.end_user_id = $1 ORDER BY p.created_at ASC`
	rows, err := r.pool.Query(ctx, query, endUserID)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var out []repository.Passkey
	for rows.Next() {
		p, err := scanPasskey(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// UpdateCounter es un compare-and-set: si otro login ya movió el contador la
// fila no matchea y devolvemos ErrConflict.
func (r *passkeyRepo) UpdateCounter(ctx context.Context, id string, expected, next uint32, usedAt time.Time) error {
	const query = `
		UPDATE passkeys
		SET counter = $3, last_used_at = $4
		WHERE id = $1 AND counter = $2`
	tag, err := r.pool.Exec(ctx, query, id, int64(expected), int64(next), usedAt)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}
	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM passkeys WHERE id = $1)`, id).Scan(&exists); err != nil {
		return mapErr(err)
	}
	if !exists {
		return repository.ErrNotFound
	}
	return repository.ErrConflict
}

// ---- sessions ----

type sessionRepo struct{ pool *pgxpool.Pool }

const sessionCols = `id, token_hash, principal_type, principal_id, project_id, expires_at,
	ip_address, user_agent, created_at`

func scanSession(row rowScanner) (*repository.Session, error) {
	var (
		s         repository.Session
		principal string
		projectID *string
	)
	err := row.Scan(&s.ID, &s.TokenHash, &principal, &s.PrincipalID, &projectID, &s.ExpiresAt,
		&s.IPAddress, &s.UserAgent, &s.CreatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	s.PrincipalType = repository.PrincipalType(principal)
	s.ProjectID = deref(projectID)
	return &s, nil
}

func (r *sessionRepo) Create(ctx context.Context, s repository.Session) (*repository.Session, error) {
	const query = `
		INSERT INTO sessions (token_hash, principal_type, principal_id, project_id, expires_at, ip_address, user_agent)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + sessionCols
	return scanSession(r.pool.QueryRow(ctx, query, s.TokenHash, string(s.PrincipalType), s.PrincipalID,
		nullString(s.ProjectID), s.ExpiresAt, s.IPAddress, s.UserAgent))
}

func (r *sessionRepo) GetByTokenHash(ctx context.Context, tokenHash string) (*repository.Session, error) {
	const query = `SELECT ` + sessionCols + ` FROM sessions WHERE token_hash = $1`
	return scanSession(r.pool.QueryRow(ctx, query, tokenHash))
}

func (r *sessionRepo) DeleteByTokenHash(ctx context.Context, tokenHash string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE token_hash = $1`, tokenHash)
	return mapErr(err)
}

// ---- audit ----

type auditRepo struct{ pool *pgxpool.Pool }

func (r *auditRepo) Append(ctx context.Context, e repository.AuditEntry) error {
	meta := e.Metadata
	if meta == nil {
		meta = map[string]any{}
	}
	createdAt := e.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	const query = `
		INSERT INTO audit_logs (project_id, actor_id, actor_type, action, resource, metadata, ip_address, user_agent, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.pool.Exec(ctx, query, e.ProjectID, e.ActorID, string(e.ActorType), e.Action, e.Resource,
		meta, e.IPAddress, e.UserAgent, createdAt)
	return mapErr(err)
}

func (r *auditRepo) List(ctx context.Context, projectID string, page repository.Page) ([]repository.AuditEntry, error) {
	page = page.Normalize()
	const query = `
		SELECT id, project_id, actor_id, actor_type, action, resource, metadata, ip_address, user_agent, created_at
		FROM audit_logs
		WHERE project_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`
	rows, err := r.pool.Query(ctx, query, projectID, page.Limit, page.Offset)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var out []repository.AuditEntry
	for rows.Next() {
		var (
			e     repository.AuditEntry
			actor string
		)
		if err := rows.Scan(&e.ID, &e.ProjectID, &e.ActorID, &actor, &e.Action, &e.Resource,
			&e.Metadata, &e.IPAddress, &e.UserAgent, &e.CreatedAt); err != nil {
			return nil, mapErr(err)
		}
		e.ActorType = repository.ActorType(actor)
		out = append(out, e)
	}
	return out, rows.Err()
}

// ---- webhooks ----

type webhookRepo struct{ pool *pgxpool.Pool }

const webhookCols = `id, project_id, url, secret, events, is_active, created_at`

func scanWebhook(row rowScanner) (*repository.Webhook, error) {
	var w repository.Webhook
	if err := row.Scan(&w.ID, &w.ProjectID, &w.URL, &w.Secret, &w.Events, &w.Active, &w.CreatedAt); err != nil {
		return nil, mapErr(err)
	}
	return &w, nil
}

func (r *webhookRepo) list(ctx context.Context, query string, args ...any) ([]repository.Webhook, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var out []repository.Webhook
	for rows.Next() {
		w, err := scanWebhook(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *w)
	}
	return out, rows.Err()
}

func (r *webhookRepo) Create(ctx context.Context, in repository.CreateWebhookInput) (*repository.Webhook, error) {
	events := in.Events
	if events == nil {
		events = []string{}
	}
	const query = `
		INSERT INTO webhooks (project_id, url, secret, events)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + webhookCols
	return scanWebhook(r.pool.QueryRow(ctx, query, in.ProjectID, in.URL, in.Secret, events))
}

func (r *webhookRepo) GetByID(ctx context.Context, id string) (*repository.Webhook, error) {
	const query = `SELECT ` + webhookCols + ` FROM webhooks WHERE id = $1`
	return scanWebhook(r.pool.QueryRow(ctx, query, id))
}

func (r *webhookRepo) ListByProject(ctx context.Context, projectID string) ([]repository.Webhook, error) {
	const query = `SELECT ` + webhookCols + ` FROM webhooks WHERE project_id = $1 ORDER BY created_at DESC`
	return r.list(ctx, query, projectID)
}

func (r *webhookRepo) ListActiveForEvent(ctx context.Context, projectID, event string) ([]repository.Webhook, error) {
	const query = `
		SELECT ` + webhookCols + `
		FROM webhooks
		WHERE project_id = $1 AND is_active AND ($2 = ANY(events) OR '*' = ANY(events))
		ORDER BY created_at DESC`
	return r.list(ctx, query, projectID, event)
}

func (r *webhookRepo) RecordDelivery(ctx context.Context, d repository.WebhookDelivery) error {
	var status *int
	if d.ResponseStatus > 0 {
		s := d.ResponseStatus
		status = &s
	}
	attempt := d.Attempt
	if attempt < 1 {
		attempt = 1
	}
	const query = `
		INSERT INTO webhook_deliveries (webhook_id, event, payload, response_status, attempts, delivered_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.pool.Exec(ctx, query, d.WebhookID, d.Event, d.Payload, status, attempt, d.DeliveredAt)
	return mapErr(err)
}
