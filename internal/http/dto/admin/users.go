package admin

import "time"

// EndUser como lo ve el dashboard.
type EndUser struct {
	ID                string     `json:"id"`
	Email             string     `json:"email"`
	DisplayName       string     `json:"displayName,omitempty"`
	Mobile            string     `json:"mobile,omitempty"`
	FaceVerified      bool       `json:"faceVerified"`
	LastLoginPhotoURL string     `json:"lastLoginPhotoUrl,omitempty"`
	LastSignInAt      *time.Time `json:"lastSignInAt,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
}

type UsersResponse struct {
	Users []EndUser `json:"users"`
}

// AuditEntry para /audit-logs.
type AuditEntry struct {
	ID        string         `json:"id"`
	ActorID   string         `json:"actorId,omitempty"`
	ActorType string         `json:"actorType"`
	Action    string         `json:"action"`
	Resource  string         `json:"resource,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	IPAddress string         `json:"ipAddress,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
}

type AuditResponse struct {
	Logs []AuditEntry `json:"logs"`
}

// SignupDay es un punto de la serie de altas diarias.
type SignupDay struct {
	Date  string `json:"date"` // YYYY-MM-DD, UTC
	Count int    `json:"count"`
}

// Analytics para GET /admin/projects/{projectID}/analytics.
type Analytics struct {
	ProjectID        string      `json:"projectId"`
	TotalUsers       int         `json:"totalUsers"`
	ActiveUsers      int         `json:"activeUsers"`
	ActiveFaceIDs    int         `json:"activeFaceIds"`
	LocationsTracked int         `json:"locationsTracked"`
	Signups          []SignupDay `json:"signups"`
}
