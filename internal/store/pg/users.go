package pg

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/dropDatabas3/izzu/internal/domain/repository"
)

// ---- end users ----

type endUserRepo struct{ pool *pgxpool.Pool }

// face_encoding se lee como texto y se parsea con pgvector; así no hace falta
// registrar el tipo en cada conexión del pool.
const endUserCols = `id, project_id, email, display_name, mobile, location_lat, location_lng,
	face_encoding::text, last_login_photo_url, last_sign_in_at, last_active_at, created_at, updated_at`

func scanEndUser(row rowScanner) (*repository.EndUser, error) {
	var (
		u        repository.EndUser
		lat, lng *float64
		face     *string
	)
	err := row.Scan(&u.ID, &u.ProjectID, &u.Email, &u.DisplayName, &u.Mobile, &lat, &lng,
		&face, &u.LastLoginPhotoURL, &u.LastSignInAt, &u.LastActiveAt, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	u.Location = toLocation(lat, lng)
	if face != nil {
		var v pgvector.Vector
		if err := v.Scan(*face); err != nil {
			return nil, err
		}
		u.FaceEncoding = v.Slice()
	}
	return &u, nil
}

func normEmail(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func (r *endUserRepo) GetByID(ctx context.Context, projectID, id string) (*repository.EndUser, error) {
	const query = `SELECT ` + endUserCols + ` FROM end_users WHERE id = $1 AND project_id = $2`
	return scanEndUser(r.pool.QueryRow(ctx, query, id, projectID))
}

func (r *endUserRepo) GetByEmail(ctx context.Context, projectID, email string) (*repository.EndUser, error) {
	const query = `SELECT ` + endUserCols + ` FROM end_users WHERE project_id = $1 AND email = $2`
	return scanEndUser(r.pool.QueryRow(ctx, query, projectID, normEmail(email)))
}

func (r *endUserRepo) List(ctx context.Context, projectID string, page repository.Page) ([]repository.EndUser, error) {
	page = page.Normalize()
	const query = `
		SELECT ` + endUserCols + `
		FROM end_users
		WHERE project_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`
	rows, err := r.pool.Query(ctx, query, projectID, page.Limit, page.Offset)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var out []repository.EndUser
	for rows.Next() {
		u, err := scanEndUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *u)
	}
	return out, rows.Err()
}

// CreateWithIdentity inserta usuario + primera identidad en una transacción.
// Una violación de unicidad en cualquiera de las dos vuelve como ErrConflict y
// el resolver re-lee.
func (r *endUserRepo) CreateWithIdentity(ctx context.Context, uin repository.CreateEndUserInput, iin repository.CreateIdentityInput) (*repository.EndUser, *repository.Identity, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback(ctx)

	lat, lng := locArgs(uin.Location)
	const insUser = `
		INSERT INTO end_users (project_id, email, display_name, mobile, location_lat, location_lng, last_sign_in_at, last_active_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
		RETURNING ` + endUserCols
	u, err := scanEndUser(tx.QueryRow(ctx, insUser, uin.ProjectID, normEmail(uin.Email),
		uin.DisplayName, uin.Mobile, lat, lng, uin.SignedInAt))
	if err != nil {
		return nil, nil, err
	}

	iin.ProjectID = u.ProjectID
	iin.EndUserID = u.ID
	id, err := insertIdentity(ctx, tx, iin)
	if err != nil {
		return nil, nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, nil, err
	}
	return u, id, nil
}

func (r *endUserRepo) TouchSignIn(ctx context.Context, id string, upd repository.SignInUpdate) error {
	lat, lng := locArgs(upd.Location)
	const query = `
		UPDATE end_users
		SET last_sign_in_at = $2,
		    last_active_at = $2,
		    location_lat = COALESCE($3, location_lat),
		    location_lng = COALESCE($4, location_lng),
		    last_login_photo_url = COALESCE($5, last_login_photo_url),
		    updated_at = $2
		WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, id, upd.At, lat, lng, nullString(upd.PhotoURL))
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *endUserRepo) UpdateProfile(ctx context.Context, id string, upd repository.ProfileUpdate) (*repository.EndUser, error) {
	lat, lng := locArgs(upd.Location)
	const query = `
		UPDATE end_users
		SET display_name = COALESCE($2, display_name),
		    mobile = COALESCE($3, mobile),
		    location_lat = COALESCE($4, location_lat),
		    location_lng = COALESCE($5, location_lng),
		    updated_at = now()
		WHERE id = $1
		RETURNING ` + endUserCols
	return scanEndUser(r.pool.QueryRow(ctx, query, id, upd.DisplayName, upd.Mobile, lat, lng))
}

func (r *endUserRepo) SetFace(ctx context.Context, id string, encoding []float32, photoURL string) (*repository.EndUser, error) {
	const query = `
		UPDATE end_users
		SET face_encoding = $2,
		    last_login_photo_url = COALESCE($3, last_login_photo_url),
		    updated_at = now()
		WHERE id = $1
		RETURNING ` + endUserCols
	return scanEndUser(r.pool.QueryRow(ctx, query, id, pgvector.NewVector(encoding), nullString(photoURL)))
}

func (r *endUserRepo) Stats(ctx context.Context, projectID string, now time.Time) (*repository.UserStats, error) {
	const counts = `
		SELECT count(*),
		       count(*) FILTER (WHERE last_sign_in_at >= $2),
		       count(*) FILTER (WHERE face_encoding IS NOT NULL),
		       count(*) FILTER (WHERE location_lat IS NOT NULL AND location_lng IS NOT NULL)
		FROM end_users
		WHERE project_id = $1`
	var out repository.UserStats
	err := r.pool.QueryRow(ctx, counts, projectID, now.Add(-repository.StatsActiveWindow)).
		Scan(&out.Total, &out.Active24h, &out.WithFace, &out.WithLocation)
	if err != nil {
		return nil, mapErr(err)
	}

	const signups = `
		SELECT date_trunc('day', created_at AT TIME ZONE 'UTC') AS day, count(*)
		FROM end_users
		WHERE project_id = $1 AND created_at >= $2
		GROUP BY day
		ORDER BY day ASC`
	rows, err := r.pool.Query(ctx, signups, projectID, now.Add(-repository.StatsSignupsWindow))
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()
	for rows.Next() {
		var d repository.DailyCount
		if err := rows.Scan(&d.Day, &d.Count); err != nil {
			return nil, err
		}
		d.Day = time.Date(d.Day.Year(), d.Day.Month(), d.Day.Day(), 0, 0, 0, 0, time.UTC)
		out.Signups = append(out.Signups, d)
	}
	return &out, rows.Err()
}

// ---- identities ----

type identityRepo struct{ pool *pgxpool.Pool }

const identityCols = `id, project_id, end_user_id, provider, provider_id, password_hash,
	verified_at, created_at, updated_at`

func scanIdentity(row rowScanner) (*repository.Identity, error) {
	var i repository.Identity
	err := row.Scan(&i.ID, &i.ProjectID, &i.EndUserID, &i.Provider, &i.ProviderID, &i.PasswordHash,
		&i.VerifiedAt, &i.CreatedAt, &i.UpdatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return &i, nil
}

func insertIdentity(ctx context.Context, q pgxQuerier, in repository.CreateIdentityInput) (*repository.Identity, error) {
	var verifiedAt *time.Time
	if in.Verified {
		now := time.Now().UTC()
		verifiedAt = &now
	}
	const query = `
		INSERT INTO identities (project_id, end_user_id, provider, provider_id, password_hash, verified_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + identityCols
	return scanIdentity(q.QueryRow(ctx, query, in.ProjectID, in.EndUserID, in.Provider, in.ProviderID, in.PasswordHash, verifiedAt))
}

func (r *identityRepo) GetByProvider(ctx context.Context, projectID, provider, providerID string) (*repository.Identity, error) {
	const query = `SELECT ` + identityCols + ` FROM identities WHERE project_id = $1 AND provider = $2 AND provider_id = $3`
	return scanIdentity(r.pool.QueryRow(ctx, query, projectID, provider, providerID))
}

func (r *identityRepo) GetByUserProvider(ctx context.Context, endUserID, provider string) (*repository.Identity, error) {
	const query = `SELECT ` + identityCols + ` FROM identities WHERE end_user_id = $1 AND provider = $2`
	return scanIdentity(r.pool.QueryRow(ctx, query, endUserID, provider))
}

func (r *identityRepo) ListByUser(ctx context.Context, endUserID string) ([]repository.Identity, error) {
	const query = `SELECT ` + identityCols + ` FROM identities WHERE end_user_id = $1 ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, query, endUserID)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var out []repository.Identity
	for rows.Next() {
		i, err := scanIdentity(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *i)
	}
	return out, rows.Err()
}

// Create toma el project_id del usuario dueño para que la identidad nunca
// quede en otro proyecto.
func (r *identityRepo) Create(ctx context.Context, in repository.CreateIdentityInput) (*repository.Identity, error) {
	var verifiedAt *time.Time
	if in.Verified {
		now := time.Now().UTC()
		verifiedAt = &now
	}
	const query = `
		INSERT INTO identities (project_id, end_user_id, provider, provider_id, password_hash, verified_at)
		SELECT u.project_id, u.id, $2, $3, $4, $5
		FROM end_users u
		WHERE u.id = $1
		RETURNING ` + identityCols
	return scanIdentity(r.pool.QueryRow(ctx, query, in.EndUserID, in.Provider, in.ProviderID, in.PasswordHash, verifiedAt))
}

func (r *identityRepo) SetPasswordHash(ctx context.Context, id, hash string) error {
	const query = `UPDATE identities SET password_hash = $2, updated_at = now() WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, id, hash)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}
