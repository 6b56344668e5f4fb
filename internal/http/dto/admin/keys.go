package admin

import "time"

// CreateKeyRequest para POST /admin/projects/{projectID}/keys
type CreateKeyRequest struct {
	Name string `json:"name,omitempty"`
	Type string `json:"type"` // publishable | secret
}

// Key en listados; el valor de una secret se enmascara.
type Key struct {
	ID         string     `json:"id"`
	Key        string     `json:"key"`
	Type       string     `json:"type"`
	Name       string     `json:"name"`
	LastUsedAt *time.Time `json:"lastUsedAt,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
}

type KeyCreatedResponse struct {
	Success bool   `json:"success"`
	Key     Key    `json:"key"`
	Message string `json:"message"`
}

type KeysResponse struct {
	Keys []Key `json:"keys"`
}
