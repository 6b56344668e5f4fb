package repository

import (
	"context"
	"time"
)

// Location es la última ubicación reportada por el cliente.
type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// EndUser pertenece a exactamente un proyecto. (ProjectID, Email) es único.
type EndUser struct {
	ID                string
	ProjectID         string
	Email             string
	DisplayName       string
	Mobile            string
	Location          *Location
	FaceEncoding      []float32
	LastLoginPhotoURL string
	LastSignInAt      *time.Time
	LastActiveAt      *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// FaceVerified reporta si el usuario tiene un encoding facial registrado.
func (u *EndUser) FaceVerified() bool {
	return len(u.FaceEncoding) > 0
}

// UserStats resume la actividad de end users de un proyecto.
type UserStats struct {
	Total        int
	Active24h    int // con sign-in en las últimas 24h
	WithFace     int
	WithLocation int
	// Signups por día (UTC) de los últimos 7 días; solo días con altas, ascendente.
	Signups []DailyCount
}

// DailyCount es un conteo agrupado por día UTC.
type DailyCount struct {
	Day   time.Time
	Count int
}

// Ventanas de UserStats.
const (
	StatsActiveWindow  = 24 * time.Hour
	StatsSignupsWindow = 7 * 24 * time.Hour
)

// CreateEndUserInput contiene los datos de alta de un end user.
type CreateEndUserInput struct {
	ProjectID   string
	Email       string
	DisplayName string
	Mobile      string
	Location    *Location
	SignedInAt  *time.Time
}

// SignInUpdate se aplica en cada verificación exitosa.
type SignInUpdate struct {
	At       time.Time
	Location *Location
	PhotoURL string
}

// ProfileUpdate actualiza solo los campos no nil.
type ProfileUpdate struct {
	DisplayName *string
	Mobile      *string
	Location    *Location
}

// EndUserRepository define operaciones sobre end users. Nunca se borran desde este core.
type EndUserRepository interface {
	// GetByID busca dentro del proyecto; un id de otro proyecto es ErrNotFound.
	GetByID(ctx context.Context, projectID, id string) (*EndUser, error)

	// GetByEmail busca por (projectID, email normalizado).
	GetByEmail(ctx context.Context, projectID, email string) (*EndUser, error)

	List(ctx context.Context, projectID string, page Page) ([]EndUser, error)

	// CreateWithIdentity inserta usuario + identidad en una transacción.
	// ErrConflict si (project,email) o (project,provider,providerId) ya existen.
	CreateWithIdentity(ctx context.Context, user CreateEndUserInput, identity CreateIdentityInput) (*EndUser, *Identity, error)

	TouchSignIn(ctx context.Context, id string, upd SignInUpdate) error

	UpdateProfile(ctx context.Context, id string, upd ProfileUpdate) (*EndUser, error)

	// SetFace guarda el encoding facial y la foto de evidencia.
	SetFace(ctx context.Context, id string, encoding []float32, photoURL string) (*EndUser, error)

	// Stats cuenta solo usuarios del proyecto; las ventanas se miden desde now.
	Stats(ctx context.Context, projectID string, now time.Time) (*UserStats, error)
}
