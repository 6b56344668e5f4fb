package memory

import (
	"context"
	"sort"
	"time"

	"github.com/dropDatabas3/izzu/internal/domain/repository"
)

type endUserRepo struct{ s *Store }

func cloneUser(u *repository.EndUser) *repository.EndUser {
	c := *u
	if u.Location != nil {
		l := *u.Location
		c.Location = &l
	}
	if u.FaceEncoding != nil {
		c.FaceEncoding = append([]float32(nil), u.FaceEncoding...)
	}
	return &c
}

func (r endUserRepo) GetByID(_ context.Context, projectID, id string) (*repository.EndUser, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	u, ok := r.s.users[id]
	if !ok || u.ProjectID != projectID {
		return nil, repository.ErrNotFound
	}
	return cloneUser(u), nil
}

func (r endUserRepo) GetByEmail(_ context.Context, projectID, email string) (*repository.EndUser, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	id, ok := r.s.userEmail[key(projectID, norm(email))]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneUser(r.s.users[id]), nil
}

func (r endUserRepo) List(_ context.Context, projectID string, page repository.Page) ([]repository.EndUser, error) {
	page = page.Normalize()
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var all []repository.EndUser
	for _, u := range r.s.users {
		if u.ProjectID == projectID {
			all = append(all, *cloneUser(u))
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	return paginate(all, page), nil
}

func (r endUserRepo) CreateWithIdentity(_ context.Context, uin repository.CreateEndUserInput, iin repository.CreateIdentityInput) (*repository.EndUser, *repository.Identity, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	email := norm(uin.Email)
	if _, ok := r.s.projects[uin.ProjectID]; !ok {
		return nil, nil, repository.ErrNotFound
	}
	if _, dup := r.s.userEmail[key(uin.ProjectID, email)]; dup {
		return nil, nil, repository.ErrConflict
	}
	if _, dup := r.s.identityLookup[key(uin.ProjectID, iin.Provider, iin.ProviderID)]; dup {
		return nil, nil, repository.ErrConflict
	}

	now := r.s.now()
	u := &repository.EndUser{
		ID:           newID(),
		ProjectID:    uin.ProjectID,
		Email:        email,
		DisplayName:  uin.DisplayName,
		Mobile:       uin.Mobile,
		Location:     uin.Location,
		LastSignInAt: uin.SignedInAt,
		LastActiveAt: uin.SignedInAt,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	r.s.users[u.ID] = u
	r.s.userEmail[key(u.ProjectID, email)] = u.ID

	iin.ProjectID = u.ProjectID
	iin.EndUserID = u.ID
	id := r.s.insertIdentity(iin, now)

	ic := *id
	return cloneUser(u), &ic, nil
}

func (r endUserRepo) TouchSignIn(_ context.Context, id string, upd repository.SignInUpdate) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.LastSignInAt = timePtr(upd.At)
	u.LastActiveAt = timePtr(upd.At)
	if upd.Location != nil {
		l := *upd.Location
		u.Location = &l
	}
	if upd.PhotoURL != "" {
		u.LastLoginPhotoURL = upd.PhotoURL
	}
	u.UpdatedAt = upd.At
	return nil
}

func (r endUserRepo) UpdateProfile(_ context.Context, id string, upd repository.ProfileUpdate) (*repository.EndUser, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if upd.DisplayName != nil {
		u.DisplayName = *upd.DisplayName
	}
	if upd.Mobile != nil {
		u.Mobile = *upd.Mobile
	}
	if upd.Location != nil {
		l := *upd.Location
		u.Location = &l
	}
	u.UpdatedAt = r.s.now()
	return cloneUser(u), nil
}

func (r endUserRepo) SetFace(_ context.Context, id string, encoding []float32, photoURL string) (*repository.EndUser, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	u.FaceEncoding = append([]float32(nil), encoding...)
	if photoURL != "" {
		u.LastLoginPhotoURL = photoURL
	}
	u.UpdatedAt = r.s.now()
	return cloneUser(u), nil
}

// ---- identities ----

type identityRepo struct{ s *Store }

func (s *Store) insertIdentity(in repository.CreateIdentityInput, now time.Time) *repository.Identity {
	id := &repository.Identity{
		ID:           newID(),
		ProjectID:    in.ProjectID,
		EndUserID:    in.EndUserID,
		Provider:     in.Provider,
		ProviderID:   in.ProviderID,
		PasswordHash: in.PasswordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if in.Verified {
		id.VerifiedAt = timePtr(now)
	}
	s.identities[id.ID] = id
	s.identityLookup[key(in.ProjectID, in.Provider, in.ProviderID)] = id.ID
	s.identityPerUser[key(in.EndUserID, in.Provider)] = id.ID
	return id
}

func (r identityRepo) GetByProvider(_ context.Context, projectID, provider, providerID string) (*repository.Identity, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	id, ok := r.s.identityLookup[key(projectID, provider, providerID)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c := *r.s.identities[id]
	return &c, nil
}

func (r identityRepo) GetByUserProvider(_ context.Context, endUserID, provider string) (*repository.Identity, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	id, ok := r.s.identityPerUser[key(endUserID, provider)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c := *r.s.identities[id]
	return &c, nil
}

func (r identityRepo) ListByUser(_ context.Context, endUserID string) ([]repository.Identity, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []repository.Identity
	for _, id := range r.s.identities {
		if id.EndUserID == endUserID {
			out = append(out, *id)
		}
	}
	sortByCreated(out, func(i repository.Identity) time.Time { return i.CreatedAt })
	return out, nil
}

func (r identityRepo) Create(_ context.Context, in repository.CreateIdentityInput) (*repository.Identity, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[in.EndUserID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	in.ProjectID = u.ProjectID
	if _, dup := r.s.identityPerUser[key(in.EndUserID, in.Provider)]; dup {
		return nil, repository.ErrConflict
	}
	if _, dup := r.s.identityLookup[key(in.ProjectID, in.Provider, in.ProviderID)]; dup {
		return nil, repository.ErrConflict
	}
	id := r.s.insertIdentity(in, r.s.now())
	c := *id
	return &c, nil
}

func (r identityRepo) SetPasswordHash(_ context.Context, id, hash string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	i, ok := r.s.identities[id]
	if !ok {
		return repository.ErrNotFound
	}
	i.PasswordHash = hash
	i.UpdatedAt = r.s.now()
	return nil
}

// ---- helpers ----

func sortByCreated[T any](items []T, created func(T) time.Time) {
	sort.SliceStable(items, func(i, j int) bool { return created(items[i]).Before(created(items[j])) })
}

func paginate[T any](items []T, page repository.Page) []T {
	if page.Offset >= len(items) {
		return nil
	}
	end := page.Offset + page.Limit
	if end > len(items) {
		end = len(items)
	}
	return items[page.Offset:end]
}

func (r endUserRepo) Stats(_ context.Context, projectID string, now time.Time) (*repository.UserStats, error) {
	activeSince := now.Add(-repository.StatsActiveWindow)
	signupSince := now.Add(-repository.StatsSignupsWindow)

	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := &repository.UserStats{}
	perDay := map[time.Time]int{}
	for _, u := range r.s.users {
		if u.ProjectID != projectID {
			continue
		}
		out.Total++
		if u.LastSignInAt != nil && !u.LastSignInAt.Before(activeSince) {
			out.Active24h++
		}
		if u.FaceVerified() {
			out.WithFace++
		}
		if u.Location != nil {
			out.WithLocation++
		}
		if !u.CreatedAt.Before(signupSince) {
			perDay[u.CreatedAt.UTC().Truncate(24*time.Hour)]++
		}
	}
	for day, n := range perDay {
		out.Signups = append(out.Signups, repository.DailyCount{Day: day, Count: n})
	}
	sort.Slice(out.Signups, func(i, j int) bool { return out.Signups[i].Day.Before(out.Signups[j].Day) })
	return out, nil
}
