package dto

// ChallengeRequest es el intento de password contra una app protegida.
type ChallengeRequest struct {
	Password string `json:"password"`
}

// ChallengeResponse confirma el acceso concedido.
type ChallengeResponse struct {
	Granted bool   `json:"granted"`
	ViewURL string `json:"view_url"`
}

// MagicLinkRequest pide un link de acceso por email. AppSlug vacío pide
// login al hub; con valor pide acceso a esa app.
type MagicLinkRequest struct {
	Email   string `json:"email"`
	AppSlug string `json:"app_slug,omitempty"`
}

// MagicLinkResponse confirma el envío. DebugLink sólo aparece en desarrollo
// con el echo habilitado.
type MagicLinkResponse struct {
	Sent      bool   `json:"sent"`
	DebugLink string `json:"debug_link,omitempty"`
}

// AccessInfoResponse describe qué necesita el visitante para entrar a una app.
type AccessInfoResponse struct {
	AppName    string `json:"app_name"`
	AppSlug    string `json:"app_slug"`
	AccessType string `json:"access_type"`
	Granted    bool   `json:"granted"`
	Reason     string `json:"reason,omitempty"`
}
