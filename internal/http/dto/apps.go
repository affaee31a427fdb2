// Package dto define los contratos JSON de la API del hub.
package dto

import (
	"time"

	"github.com/dropDatabas3/internalhub/internal/domain/repository"
)

// AppResponse es la vista pública de una app. El password de acceso nunca
// sale por la API; sólo se indica si hay uno configurado.
type AppResponse struct {
	ID          string   `json:"id"`
	Slug        string   `json:"slug"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Status      string   `json:"status"`
	OwnerID     string   `json:"owner_id"`
	OwnerEmail  string   `json:"owner_email,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	StarCount   int      `json:"star_count"`
	IsStarred   bool     `json:"is_starred"`

	AccessType    string   `json:"access_type"`
	HasPassword   bool     `json:"has_password,omitempty"`
	AccessEmails  []string `json:"access_emails,omitempty"`
	AccessDomain  string   `json:"access_domain,omitempty"`

	ViewURL     string     `json:"view_url"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
}

// NewAppResponse arma la respuesta desde el modelo. Los campos de control
// de acceso sólo se incluyen para el dueño.
func NewAppResponse(app *repository.App, baseURL string, isOwner bool) AppResponse {
	resp := AppResponse{
		ID:          app.ID,
		Slug:        app.Slug,
		Name:        app.Name,
		Description: app.Description,
		Status:      string(app.Status),
		OwnerID:     app.OwnerID,
		OwnerEmail:  app.OwnerEmail,
		Tags:        app.Tags,
		StarCount:   app.StarCount,
		IsStarred:   app.IsStarred,
		AccessType:  string(app.AccessType),
		ViewURL:     baseURL + "/a/" + app.Slug,
		CreatedAt:   app.CreatedAt,
		UpdatedAt:   app.UpdatedAt,
		PublishedAt: app.PublishedAt,
	}
	if isOwner {
		resp.HasPassword = app.AccessPassword != ""
		resp.AccessEmails = app.AccessEmails
		resp.AccessDomain = app.AccessDomain
	}
	return resp
}

// UpdateAppRequest actualiza metadata y control de acceso de una app.
// Los campos ausentes no se tocan.
type UpdateAppRequest struct {
	Name        *string   `json:"name"`
	Description *string   `json:"description"`
	Status      *string   `json:"status"`
	Tags        *[]string `json:"tags"`

	AccessType     *string   `json:"access_type"`
	AccessPassword *string   `json:"access_password"`
	AccessEmails   *[]string `json:"access_emails"`
	AccessDomain   *string   `json:"access_domain"`
}

// ListAppsResponse es la respuesta del listado.
type ListAppsResponse struct {
	Apps  []AppResponse `json:"apps"`
	Total int           `json:"total"`
}

// DeployResponse resume un despliegue exitoso.
type DeployResponse struct {
	App       AppResponse `json:"app"`
	FileCount int         `json:"file_count"`
	Bytes     int64       `json:"bytes"`
	Flattened bool        `json:"flattened,omitempty"`
}

// StarResponse es el resultado de marcar/desmarcar favorito.
type StarResponse struct {
	Starred   bool `json:"starred"`
	StarCount int  `json:"star_count"`
}

// AccessLogResponse lista los accesos registrados de una app.
type AccessLogResponse struct {
	Entries []AccessLogEntry `json:"entries"`
}

type AccessLogEntry struct {
	Email      string    `json:"email,omitempty"`
	Method     string    `json:"method"`
	AccessedAt time.Time `json:"accessed_at"`
}
