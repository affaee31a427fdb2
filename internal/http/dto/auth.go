package dto

import "time"

// MeResponse describe al usuario de la sesión actual.
type MeResponse struct {
	ID        string     `json:"id"`
	Email     string     `json:"email"`
	Name      string     `json:"name,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	LastLogin *time.Time `json:"last_login,omitempty"`
}

// VerifyResponse es el resultado de consumir un magic link.
type VerifyResponse struct {
	LoggedIn bool   `json:"logged_in"`
	Redirect string `json:"redirect"`
}

// HealthResponse expone el estado del servicio y sus dependencias.
type HealthResponse struct {
	Status string            `json:"status"` // "ok" | "degraded"
	Checks map[string]string `json:"checks,omitempty"`
}
