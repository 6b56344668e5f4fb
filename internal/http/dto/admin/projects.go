package admin

import "time"

// CreateProjectRequest para POST /admin/projects
type CreateProjectRequest struct {
	Name           string   `json:"name"`
	Slug           string   `json:"slug,omitempty"`
	AllowedOrigins []string `json:"allowedOrigins,omitempty"`
}

// Project en listados.
type Project struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Slug           string    `json:"slug"`
	APIKey         string    `json:"apiKey"`
	AllowedOrigins []string  `json:"allowedOrigins,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}

// ProjectCreated incluye la secret key, visible solo una vez.
type ProjectCreated struct {
	Project
	SecretKey string `json:"secretKey"`
}

type ProjectCreatedResponse struct {
	Project ProjectCreated `json:"project"`
	Message string         `json:"message"`
}

type ProjectsResponse struct {
	Projects []Project `json:"projects"`
}
