package repository

import (
	"context"
	"time"
)

// AppStatus indica el estado de publicación de una app.
type AppStatus string

const (
	AppStatusDraft     AppStatus = "draft"
	AppStatusPublished AppStatus = "published"
	AppStatusArchived  AppStatus = "archived"
)

// AccessType gobierna quién puede ver una app desplegada.
type AccessType string

const (
	AccessPrivate   AccessType = "private"
	AccessPublic    AccessType = "public"
	AccessPassword  AccessType = "password"
	AccessEmailList AccessType = "email_list"
	AccessDomain    AccessType = "domain"
)

// Valid reporta si el access type es uno de los cinco conocidos.
func (t AccessType) Valid() bool {
	switch t {
	case AccessPrivate, AccessPublic, AccessPassword, AccessEmailList, AccessDomain:
		return true
	}
	return false
}

// App representa un bundle estático desplegado.
//
// StoragePath es el prefijo bajo el cual viven los archivos de la app en el
// storage backend. Es un namespace estrictamente único (slug + sufijo), nunca
// compartido entre apps: el confinamiento del resolver depende de eso.
type App struct {
	ID          string
	Slug        string
	Name        string
	Description string
	Status      AppStatus
	StoragePath string
	OwnerID     string

	// Access control. Sólo el campo correspondiente a AccessType es
	// significativo; los otros pueden quedar stale tras un update parcial
	// y el evaluador los ignora.
	AccessType     AccessType
	AccessPassword string
	AccessEmails   []string
	AccessDomain   string

	Tags        []string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	PublishedAt *time.Time

	// Campos joined (no persistidos en la fila de la app)
	OwnerEmail string
	StarCount  int
	IsStarred  bool
}

// CreateAppInput contiene los datos para registrar una app nueva.
type CreateAppInput struct {
	Name        string
	Description string
	StoragePath string
	OwnerID     string
}

// UpdateAppInput contiene los campos modificables de una app.
// Los punteros nil significan "sin cambio".
type UpdateAppInput struct {
	Name        *string
	Description *string
	Status      *AppStatus
	Tags        *[]string

	AccessType     *AccessType
	AccessPassword *string
	AccessEmails   *[]string
	AccessDomain   *string
}

// ListAppsOptions filtra y ordena el listado de apps.
type ListAppsOptions struct {
	Search    string
	Starred   bool
	SortBy    string // "recent" | "name"
	ViewerID  string // para resolver IsStarred y visibilidad de drafts
	OwnerOnly bool
}

// AppRepository define operaciones CRUD sobre apps.
type AppRepository interface {
	// Create registra una app nueva en estado draft.
	Create(ctx context.Context, input CreateAppInput) (*App, error)

	// GetByID busca por ID. Retorna ErrNotFound si no existe.
	GetByID(ctx context.Context, id string) (*App, error)

	// GetBySlugOrID busca primero por slug; si no hay match cae a lookup
	// por ID (tolera identificadores históricos que no son slugs).
	GetBySlugOrID(ctx context.Context, slugOrID string) (*App, error)

	// List devuelve las apps visibles según las opciones.
	List(ctx context.Context, opts ListAppsOptions) ([]*App, error)

	// Update aplica los cambios no-nil. La transición a published setea
	// PublishedAt una única vez; transiciones posteriores no lo pisan.
	Update(ctx context.Context, id string, input UpdateAppInput) (*App, error)

	// Delete elimina el registro. Los archivos del storage los borra el caller.
	Delete(ctx context.Context, id string) error
}
