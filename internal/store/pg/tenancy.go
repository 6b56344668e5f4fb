package pg

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/izzu/internal/domain/repository"
)

// ---- tenants ----

type tenantRepo struct{ pool *pgxpool.Pool }

const tenantCols = `id, name, slug, email, created_at, updated_at`

func scanTenant(row rowScanner) (*repository.Tenant, error) {
	var t repository.Tenant
	if err := row.Scan(&t.ID, &t.Name, &t.Slug, &t.Email, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, mapErr(err)
	}
	return &t, nil
}

func insertTenant(ctx context.Context, q pgxQuerier, in repository.CreateTenantInput) (*repository.Tenant, error) {
	const query = `
		INSERT INTO tenants (name, slug, email)
		VALUES ($1, $2, $3)
		RETURNING ` + tenantCols
	return scanTenant(q.QueryRow(ctx, query, in.Name, in.Slug, strings.ToLower(strings.TrimSpace(in.Email))))
}

func (r *tenantRepo) Create(ctx context.Context, in repository.CreateTenantInput) (*repository.Tenant, error) {
	return insertTenant(ctx, r.pool, in)
}

func (r *tenantRepo) GetByID(ctx context.Context, id string) (*repository.Tenant, error) {
	const query = `SELECT ` + tenantCols + ` FROM tenants WHERE id = $1`
	return scanTenant(r.pool.QueryRow(ctx, query, id))
}

// pgxQuerier es lo común entre pool y tx.
type pgxQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// ---- admins ----

type adminRepo struct{ pool *pgxpool.Pool }

const adminCols = `id, tenant_id, email, display_name, mobile, location_lat, location_lng,
	role, email_verified_at, last_login_at, created_at, updated_at`

func scanAdmin(row rowScanner) (*repository.Admin, error) {
	var (
		a        repository.Admin
		lat, lng *float64
		role     string
	)
	err := row.Scan(&a.ID, &a.TenantID, &a.Email, &a.DisplayName, &a.Mobile, &lat, &lng,
		&role, &a.EmailVerifiedAt, &a.LastLoginAt, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	a.Role = repository.AdminRole(role)
	a.Location = toLocation(lat, lng)
	return &a, nil
}

func (r *adminRepo) GetByID(ctx context.Context, id string) (*repository.Admin, error) {
	const query = `SELECT ` + adminCols + ` FROM admins WHERE id = $1`
	return scanAdmin(r.pool.QueryRow(ctx, query, id))
}

func (r *adminRepo) GetByEmail(ctx context.Context, email string) (*repository.Admin, error) {
	const query = `SELECT ` + adminCols + ` FROM admins WHERE email = $1`
	return scanAdmin(r.pool.QueryRow(ctx, query, strings.ToLower(strings.TrimSpace(email))))
}

// CreateWithTenant crea tenant + admin owner en una sola transacción.
func (r *adminRepo) CreateWithTenant(ctx context.Context, tin repository.CreateTenantInput, ain repository.CreateAdminInput) (*repository.Admin, *repository.Tenant, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback(ctx)

	t, err := insertTenant(ctx, tx, tin)
	if err != nil {
		return nil, nil, err
	}

	role := ain.Role
	if role == "" {
		role = repository.AdminRoleOwner
	}
	var verifiedAt *time.Time
	if ain.EmailVerified {
		now := time.Now().UTC()
		verifiedAt = &now
	}
	lat, lng := locArgs(ain.Location)

	const query = `
		INSERT INTO admins (tenant_id, email, display_name, mobile, location_lat, location_lng, role, email_verified_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + adminCols
	a, err := scanAdmin(tx.QueryRow(ctx, query, t.ID, strings.ToLower(strings.TrimSpace(ain.Email)),
		ain.DisplayName, ain.Mobile, lat, lng, string(role), verifiedAt))
	if err != nil {
		return nil, nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, nil, err
	}
	return a, t, nil
}

func (r *adminRepo) TouchLogin(ctx context.Context, id string, at time.Time, loc *repository.Location) error {
	lat, lng := locArgs(loc)
	const query = `
		UPDATE admins
		SET last_login_at = $2,
		    location_lat = COALESCE($3, location_lat),
		    location_lng = COALESCE($4, location_lng),
		    updated_at = $2
		WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, id, at, lat, lng)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// ---- projects ----

type projectRepo struct{ pool *pgxpool.Pool }

const projectCols = `id, tenant_id, name, slug, api_key, config, created_at, updated_at`

func scanProject(row rowScanner) (*repository.Project, error) {
	var p repository.Project
	if err := row.Scan(&p.ID, &p.TenantID, &p.Name, &p.Slug, &p.APIKey, &p.Config, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, mapErr(err)
	}
	return &p, nil
}

// Create inserta el proyecto con su par de keys por defecto y guarda el id de
// la secret key en config.secretKeyId, todo en una transacción.
func (r *projectRepo) Create(ctx context.Context, in repository.CreateProjectInput) (*repository.Project, []repository.APIKey, error) {
	if in.PublishableKey == in.SecretKey {
		return nil, nil, repository.ErrConflict
	}
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback(ctx)

	cfg := repository.ProjectConfig{AllowedOrigins: in.AllowedOrigins}
	const insProject = `
		INSERT INTO projects (tenant_id, name, slug, api_key, config)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + projectCols
	p, err := scanProject(tx.QueryRow(ctx, insProject, in.TenantID, in.Name, in.Slug, in.PublishableKey, cfg))
	if err != nil {
		return nil, nil, err
	}

	pk, err := insertAPIKey(ctx, tx, repository.CreateAPIKeyInput{
		ProjectID: p.ID, Key: in.PublishableKey, Type: repository.KeyTypePublishable, Name: "Default publishable key",
	})
	if err != nil {
		return nil, nil, err
	}
	sk, err := insertAPIKey(ctx, tx, repository.CreateAPIKeyInput{
		ProjectID: p.ID, Key: in.SecretKey, Type: repository.KeyTypeSecret, Name: "Default secret key",
	})
	if err != nil {
		return nil, nil, err
	}

	p.Config.SecretKeyID = sk.ID
	const updConfig = `UPDATE projects SET config = $2 WHERE id = $1`
	if _, err := tx.Exec(ctx, updConfig, p.ID, p.Config); err != nil {
		return nil, nil, mapErr(err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, nil, err
	}
	return p, []repository.APIKey{*pk, *sk}, nil
}

func (r *projectRepo) GetByID(ctx context.Context, id string) (*repository.Project, error) {
	const query = `SELECT ` + projectCols + ` FROM projects WHERE id = $1`
	return scanProject(r.pool.QueryRow(ctx, query, id))
}

func (r *projectRepo) ListByTenant(ctx context.Context, tenantID string) ([]repository.Project, error) {
	const query = `SELECT ` + projectCols + ` FROM projects WHERE tenant_id = $1 ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, query, tenantID)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var out []repository.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// ---- api keys ----

type apiKeyRepo struct{ pool *pgxpool.Pool }

const apiKeyCols = `id, project_id, key, type, name, last_used_at, created_at`

func scanAPIKey(row rowScanner) (*repository.APIKey, error) {
	var (
		k   repository.APIKey
		typ string
	)
	if err := row.Scan(&k.ID, &k.ProjectID, &k.Key, &typ, &k.Name, &k.LastUsedAt, &k.CreatedAt); err != nil {
		return nil, mapErr(err)
	}
	k.Type = repository.KeyType(typ)
	return &k, nil
}

func insertAPIKey(ctx context.Context, q pgxQuerier, in repository.CreateAPIKeyInput) (*repository.APIKey, error) {
	const query = `
		INSERT INTO api_keys (project_id, key, type, name)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + apiKeyCols
	return scanAPIKey(q.QueryRow(ctx, query, in.ProjectID, in.Key, string(in.Type), in.Name))
}

func (r *apiKeyRepo) Create(ctx context.Context, in repository.CreateAPIKeyInput) (*repository.APIKey, error) {
	return insertAPIKey(ctx, r.pool, in)
}

func (r *apiKeyRepo) GetByKey(ctx context.Context, key string) (*repository.APIKey, error) {
	const query = `SELECT ` + apiKeyCols + ` FROM api_keys WHERE key = $1`
	return scanAPIKey(r.pool.QueryRow(ctx, query, key))
}

func (r *apiKeyRepo) ListByProject(ctx context.Context, projectID string) ([]repository.APIKey, error) {
	const query = `SELECT ` + apiKeyCols + ` FROM api_keys WHERE project_id = $1 ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, query, projectID)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var out []repository.APIKey
	for rows.Next() {
		k, err := scanAPIKey(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *k)
	}
	return out, rows.Err()
}

func (r *apiKeyRepo) TouchLastUsed(ctx context.Context, id string, at time.Time) error {
	tag, err := r.pool.Exec(ctx, `UPDATE api_keys SET last_used_at = $2 WHERE id = $1`, id, at)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}
