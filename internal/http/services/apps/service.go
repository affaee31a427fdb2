// Package apps implementa el ciclo de vida de las aplicaciones: deploy,
// listado, metadata, favoritos y log de accesos. Es la capa entre los
// controllers y el repositorio; las reglas de ownership viven acá.
package apps

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dropDatabas3/internalhub/internal/bundle"
	"github.com/dropDatabas3/internalhub/internal/cache"
	"github.com/dropDatabas3/internalhub/internal/domain/repository"
	"github.com/dropDatabas3/internalhub/internal/observability/logger"
	"github.com/dropDatabas3/internalhub/internal/storage"
	"github.com/dropDatabas3/internalhub/internal/util/slug"
	"github.com/dropDatabas3/internalhub/internal/validation"
)

// Service define las operaciones sobre apps.
type Service interface {
	// Deploy materializa un bundle nuevo y registra la app en draft.
	Deploy(ctx context.Context, owner *repository.User, in DeployInput) (*repository.App, bundle.Result, error)

	// Redeploy reemplaza el árbol publicado de una app existente.
	Redeploy(ctx context.Context, owner *repository.User, idOrSlug string, files []bundle.File) (*repository.App, bundle.Result, error)

	// List devuelve las apps visibles para el viewer.
	List(ctx context.Context, viewer *repository.User, opts repository.ListAppsOptions) ([]*repository.App, error)

	// Get devuelve una app del hub. Drafts y archivadas sólo para su owner.
	Get(ctx context.Context, viewer *repository.User, idOrSlug string) (*repository.App, error)

	// Lookup resuelve slug-o-ID con cache. Es el camino caliente del viewer;
	// no aplica reglas de visibilidad del hub.
	Lookup(ctx context.Context, idOrSlug string) (*repository.App, error)

	// Update aplica cambios de metadata y access control. Sólo el owner.
	Update(ctx context.Context, owner *repository.User, idOrSlug string, input repository.UpdateAppInput) (*repository.App, error)

	// Delete elimina registro y archivos. Sólo el owner.
	Delete(ctx context.Context, owner *repository.User, idOrSlug string) error

	// ToggleStar invierte el favorito del usuario. Retorna estado y count.
	ToggleStar(ctx context.Context, user *repository.User, idOrSlug string) (bool, int, error)

	// AccessLog lista los últimos accesos de una app. Sólo el owner.
	AccessLog(ctx context.Context, owner *repository.User, idOrSlug string, limit int) ([]repository.AccessLogEntry, error)
}

// DeployInput describe un deploy nuevo.
type DeployInput struct {
	Name        string
	Description string
	Files       []bundle.File
}

// Deps contiene las dependencias del servicio.
type Deps struct {
	Apps         repository.AppRepository
	Stars        repository.StarRepository
	AccessLog    repository.AccessLogRepository
	Backend      storage.Backend
	Materializer *bundle.Materializer
	Cache        cache.Client
}

// Service errors
var (
	ErrNameRequired = fmt.Errorf("app name is required")
	ErrNoFiles      = fmt.Errorf("no files in upload")
	ErrForbidden    = fmt.Errorf("only the owner can do that")
)

const lookupTTL = 30 * time.Second

type service struct {
	apps      repository.AppRepository
	stars     repository.StarRepository
	accessLog repository.AccessLogRepository
	backend   storage.Backend
	mat       *bundle.Materializer
	cache     cache.Client
}

// New crea el servicio de apps.
func New(deps Deps) Service {
	return &service{
		apps:      deps.Apps,
		stars:     deps.Stars,
		accessLog: deps.AccessLog,
		backend:   deps.Backend,
		mat:       deps.Materializer,
		cache:     deps.Cache,
	}
}

func (s *service) Deploy(ctx context.Context, owner *repository.User, in DeployInput) (*repository.App, bundle.Result, error) {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Component("apps"), logger.Op("Deploy"))

	if in.Name == "" {
		return nil, bundle.Result{}, ErrNameRequired
	}
	if len(in.Files) == 0 {
		return nil, bundle.Result{}, ErrNoFiles
	}

	// El storage path es un namespace propio de la app, nunca reutilizado:
	// slug + timestamp lo hace único aunque dos apps compartan nombre.
	storagePath := fmt.Sprintf("%s-%d", slug.Make(in.Name), time.Now().UnixMilli())

	res, err := s.mat.Materialize(ctx, storagePath, in.Files)
	if err != nil {
		return nil, bundle.Result{}, err
	}

	app, err := s.apps.Create(ctx, repository.CreateAppInput{
		Name:        in.Name,
		Description: in.Description,
		StoragePath: storagePath,
		OwnerID:     owner.ID,
	})
	if err != nil {
		// El árbol ya está publicado pero la app no existe: limpiar.
		if rmErr := s.backend.Remove(storagePath); rmErr != nil {
			log.Warn("orphan tree cleanup failed", logger.StoragePath(storagePath), logger.Err(rmErr))
		}
		return nil, bundle.Result{}, err
	}

	log.Info("app deployed",
		logger.AppID(app.ID),
		logger.AppSlug(app.Slug),
		logger.Count(res.FileCount),
		logger.Bool("flattened", res.Flattened),
	)
	return app, res, nil
}

func (s *service) Redeploy(ctx context.Context, owner *repository.User, idOrSlug string, files []bundle.File) (*repository.App, bundle.Result, error) {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Component("apps"), logger.Op("Redeploy"))

	if len(files) == 0 {
		return nil, bundle.Result{}, ErrNoFiles
	}

	app, err := s.ownedApp(ctx, owner, idOrSlug)
	if err != nil {
		return nil, bundle.Result{}, err
	}

	res, err := s.mat.Materialize(ctx, app.StoragePath, files)
	if err != nil {
		return nil, bundle.Result{}, err
	}

	// Update vacío actúa como touch: bumpea UpdatedAt sin tocar metadata.
	app, err = s.apps.Update(ctx, app.ID, repository.UpdateAppInput{})
	if err != nil {
		return nil, bundle.Result{}, err
	}
	s.invalidate(ctx, app)

	log.Info("app redeployed", logger.AppID(app.ID), logger.Count(res.FileCount))
	return app, res, nil
}

func (s *service) List(ctx context.Context, viewer *repository.User, opts repository.ListAppsOptions) ([]*repository.App, error) {
	if viewer != nil {
		opts.ViewerID = viewer.ID
	}
	return s.apps.List(ctx, opts)
}

func (s *service) Get(ctx context.Context, viewer *repository.User, idOrSlug string) (*repository.App, error) {
	app, err := s.apps.GetBySlugOrID(ctx, idOrSlug)
	if err != nil {
		return nil, err
	}
	if app.Status != repository.AppStatusPublished {
		if viewer == nil || viewer.ID != app.OwnerID {
			return nil, repository.ErrNotFound
		}
	}
	return app, nil
}

func (s *service) Lookup(ctx context.Context, idOrSlug string) (*repository.App, error) {
	key := "app:" + idOrSlug
	if raw, err := s.cache.Get(ctx, key); err == nil {
		var app repository.App
		if json.Unmarshal([]byte(raw), &app) == nil {
			return &app, nil
		}
	}

	app, err := s.apps.GetBySlugOrID(ctx, idOrSlug)
	if err != nil {
		return nil, err
	}

	if raw, err := json.Marshal(app); err == nil {
		if err := s.cache.Set(ctx, key, string(raw), lookupTTL); err != nil {
			logger.From(ctx).Debug("app cache set failed", logger.Key(key), logger.Err(err))
		}
	}
	return app, nil
}

func (s *service) Update(ctx context.Context, owner *repository.User, idOrSlug string, input repository.UpdateAppInput) (*repository.App, error) {
	app, err := s.ownedApp(ctx, owner, idOrSlug)
	if err != nil {
		return nil, err
	}
	if input.Tags != nil {
		for _, tag := range *input.Tags {
			if !validation.ValidTag(tag) {
				return nil, fmt.Errorf("%w: tag %q", repository.ErrInvalidInput, tag)
			}
		}
	}
	if input.AccessEmails != nil {
		for _, addr := range *input.AccessEmails {
			if !validation.ValidEmail(addr) {
				return nil, fmt.Errorf("%w: email %q", repository.ErrInvalidInput, addr)
			}
		}
	}
	updated, err := s.apps.Update(ctx, app.ID, input)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, updated)
	return updated, nil
}

func (s *service) Delete(ctx context.Context, owner *repository.User, idOrSlug string) error {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Component("apps"), logger.Op("Delete"))

	app, err := s.ownedApp(ctx, owner, idOrSlug)
	if err != nil {
		return err
	}
	if err := s.apps.Delete(ctx, app.ID); err != nil {
		return err
	}
	s.invalidate(ctx, app)

	// El registro ya no existe; los archivos huérfanos no son fatales.
	if err := s.backend.Remove(app.StoragePath); err != nil {
		log.Warn("tree removal failed", logger.StoragePath(app.StoragePath), logger.Err(err))
	}
	log.Info("app deleted", logger.AppID(app.ID), logger.AppSlug(app.Slug))
	return nil
}

func (s *service) ToggleStar(ctx context.Context, user *repository.User, idOrSlug string) (bool, int, error) {
	app, err := s.apps.GetBySlugOrID(ctx, idOrSlug)
	if err != nil {
		return false, 0, err
	}
	starred, err := s.stars.Toggle(ctx, user.ID, app.ID)
	if err != nil {
		return false, 0, err
	}
	count, err := s.stars.CountByApp(ctx, app.ID)
	if err != nil {
		return starred, 0, err
	}
	return starred, count, nil
}

func (s *service) AccessLog(ctx context.Context, owner *repository.User, idOrSlug string, limit int) ([]repository.AccessLogEntry, error) {
	app, err := s.ownedApp(ctx, owner, idOrSlug)
	if err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.accessLog.ListByApp(ctx, app.ID, limit)
}

// ownedApp resuelve la app y verifica que el caller sea su owner.
func (s *service) ownedApp(ctx context.Context, owner *repository.User, idOrSlug string) (*repository.App, error) {
	app, err := s.apps.GetBySlugOrID(ctx, idOrSlug)
	if err != nil {
		return nil, err
	}
	if owner == nil || owner.ID != app.OwnerID {
		return nil, ErrForbidden
	}
	return app, nil
}

// invalidate borra las entradas de cache de la app, por slug y por ID.
func (s *service) invalidate(ctx context.Context, app *repository.App) {
	for _, key := range []string{"app:" + app.Slug, "app:" + app.ID} {
		if err := s.cache.Delete(ctx, key); err != nil {
			logger.From(ctx).Debug("app cache delete failed", logger.Key(key), logger.Err(err))
		}
	}
}
