package memory

import (
	"context"
	"time"

	"github.com/dropDatabas3/izzu/internal/domain/repository"
)

// ---- tenants ----

type tenantRepo struct{ s *Store }

func (r tenantRepo) Create(_ context.Context, in repository.CreateTenantInput) (*repository.Tenant, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, err := r.s.insertTenant(in)
	if err != nil {
		return nil, err
	}
	c := *t
	return &c, nil
}

func (s *Store) insertTenant(in repository.CreateTenantInput) (*repository.Tenant, error) {
	if _, dup := s.tenantSlug[in.Slug]; dup {
		return nil, repository.ErrConflict
	}
	now := s.now()
	t := &repository.Tenant{ID: newID(), Name: in.Name, Slug: in.Slug, Email: norm(in.Email), CreatedAt: now, UpdatedAt: now}
	s.tenants[t.ID] = t
	s.tenantSlug[t.Slug] = t.ID
	return t, nil
}

func (r tenantRepo) GetByID(_ context.Context, id string) (*repository.Tenant, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	t, ok := r.s.tenants[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c := *t
	return &c, nil
}

// ---- admins ----

type adminRepo struct{ s *Store }

func (r adminRepo) GetByID(_ context.Context, id string) (*repository.Admin, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	a, ok := r.s.admins[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c := *a
	return &c, nil
}

func (r adminRepo) GetByEmail(ctx context.Context, email string) (*repository.Admin, error) {
	r.s.mu.RLock()
	id, ok := r.s.adminEmail[norm(email)]
	r.s.mu.RUnlock()
	if !ok {
		return nil, repository.ErrNotFound
	}
	return r.GetByID(ctx, id)
}

func (r adminRepo) CreateWithTenant(_ context.Context, tin repository.CreateTenantInput, ain repository.CreateAdminInput) (*repository.Admin, *repository.Tenant, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	email := norm(ain.Email)
	if _, dup := r.s.adminEmail[email]; dup {
		return nil, nil, repository.ErrConflict
	}
	t, err := r.s.insertTenant(tin)
	if err != nil {
		return nil, nil, err
	}
	now := r.s.now()
	role := ain.Role
	if role == "" {
		role = repository.AdminRoleOwner
	}
	a := &repository.Admin{
		ID:          newID(),
		TenantID:    t.ID,
		Email:       email,
		DisplayName: ain.DisplayName,
		Mobile:      ain.Mobile,
		Location:    ain.Location,
		Role:        role,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if ain.EmailVerified {
		a.EmailVerifiedAt = timePtr(now)
	}
	r.s.admins[a.ID] = a
	r.s.adminEmail[email] = a.ID

	ac, tc := *a, *t
	return &ac, &tc, nil
}

func (r adminRepo) TouchLogin(_ context.Context, id string, at time.Time, loc *repository.Location) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.admins[id]
	if !ok {
		return repository.ErrNotFound
	}
	a.LastLoginAt = timePtr(at)
	if loc != nil {
		l := *loc
		a.Location = &l
	}
	a.UpdatedAt = at
	return nil
}

// ---- projects ----

type projectRepo struct{ s *Store }

func (r projectRepo) Create(_ context.Context, in repository.CreateProjectInput) (*repository.Project, []repository.APIKey, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	slugKey := key(in.TenantID, in.Slug)
	if _, dup := r.s.projectSlugs[slugKey]; dup {
		return nil, nil, repository.ErrConflict
	}
	if in.PublishableKey == in.SecretKey {
		return nil, nil, repository.ErrConflict
	}
	for _, v := range []string{in.PublishableKey, in.SecretKey} {
		if _, dup := r.s.apiKeyByValue[v]; dup {
			return nil, nil, repository.ErrConflict
		}
	}

	now := r.s.now()
	p := &repository.Project{
		ID:        newID(),
		TenantID:  in.TenantID,
		Name:      in.Name,
		Slug:      in.Slug,
		APIKey:    in.PublishableKey,
		CreatedAt: now,
		UpdatedAt: now,
	}
	pk := r.s.insertKey(p.ID, in.PublishableKey, repository.KeyTypePublishable, "Default publishable key", now)
	sk := r.s.insertKey(p.ID, in.SecretKey, repository.KeyTypeSecret, "Default secret key", now)
	p.Config = repository.ProjectConfig{SecretKeyID: sk.ID, AllowedOrigins: append([]string(nil), in.AllowedOrigins...)}

	r.s.projects[p.ID] = p
	r.s.projectSlugs[slugKey] = p.ID

	c := *p
	return &c, []repository.APIKey{*pk, *sk}, nil
}

func (s *Store) insertKey(projectID, value string, typ repository.KeyType, name string, now time.Time) *repository.APIKey {
	k := &repository.APIKey{ID: newID(), ProjectID: projectID, Key: value, Type: typ, Name: name, CreatedAt: now}
	s.apiKeys[k.ID] = k
	s.apiKeyByValue[value] = k.ID
	return k
}

func (r projectRepo) GetByID(_ context.Context, id string) (*repository.Project, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	p, ok := r.s.projects[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c := *p
	return &c, nil
}

func (r projectRepo) ListByTenant(_ context.Context, tenantID string) ([]repository.Project, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []repository.Project
	for _, p := range r.s.projects {
		if p.TenantID == tenantID {
			out = append(out, *p)
		}
	}
	sortByCreated(out, func(p repository.Project) time.Time { return p.CreatedAt })
	return out, nil
}

// ---- api keys ----

type apiKeyRepo struct{ s *Store }

func (r apiKeyRepo) Create(_ context.Context, in repository.CreateAPIKeyInput) (*repository.APIKey, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.projects[in.ProjectID]; !ok {
		return nil, repository.ErrNotFound
	}
	if _, dup := r.s.apiKeyByValue[in.Key]; dup {
		return nil, repository.ErrConflict
	}
	k := r.s.insertKey(in.ProjectID, in.Key, in.Type, in.Name, r.s.now())
	c := *k
	return &c, nil
}

func (r apiKeyRepo) GetByKey(_ context.Context, value string) (*repository.APIKey, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	id, ok := r.s.apiKeyByValue[value]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c := *r.s.apiKeys[id]
	return &c, nil
}

func (r apiKeyRepo) ListByProject(_ context.Context, projectID string) ([]repository.APIKey, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []repository.APIKey
	for _, k := range r.s.apiKeys {
		if k.ProjectID == projectID {
			out = append(out, *k)
		}
	}
	sortByCreated(out, func(k repository.APIKey) time.Time { return k.CreatedAt })
	return out, nil
}

func (r apiKeyRepo) TouchLastUsed(_ context.Context, id string, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	k, ok := r.s.apiKeys[id]
	if !ok {
		return repository.ErrNotFound
	}
	k.LastUsedAt = timePtr(at)
	return nil
}
