// Package apps expone el CRUD de aplicaciones del hub y el endpoint de
// deploy. Todos los handlers asumen sesión resuelta por el middleware;
// los que mutan exigen usuario (RequireUser en el router).
package apps

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/dropDatabas3/internalhub/internal/bundle"
	"github.com/dropDatabas3/internalhub/internal/domain/repository"
	httpapi "github.com/dropDatabas3/internalhub/internal/http"
	"github.com/dropDatabas3/internalhub/internal/http/dto"
	mw "github.com/dropDatabas3/internalhub/internal/http/middlewares"
	svc "github.com/dropDatabas3/internalhub/internal/http/services/apps"
	"github.com/dropDatabas3/internalhub/internal/observability/logger"
)

// Controller maneja las rutas /api/apps.
type Controller struct {
	service        svc.Service
	baseURL        string
	maxUploadBytes int64
}

// New crea el controller de apps. maxUploadBytes limita el body del deploy.
func New(service svc.Service, baseURL string, maxUploadBytes int64) *Controller {
	if maxUploadBytes <= 0 {
		maxUploadBytes = 128 << 20
	}
	return &Controller{service: service, baseURL: baseURL, maxUploadBytes: maxUploadBytes}
}

// Deploy maneja POST /api/apps. Espera multipart/form-data con campos
// name, description y uno o más files. Un único .zip se trata como archive.
func (c *Controller) Deploy(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("apps.Deploy"))
	user := mw.UserFrom(ctx)

	files, name, description, ok := c.readUpload(w, r)
	if !ok {
		httpapi.ObserveDeploy("rejected")
		return
	}

	app, res, err := c.service.Deploy(ctx, user, svc.DeployInput{
		Name:        name,
		Description: description,
		Files:       files,
	})
	if err != nil {
		c.writeDeployError(w, log, err)
		return
	}
	httpapi.ObserveDeploy("ok")

	httpapi.WriteJSON(w, http.StatusCreated, dto.DeployResponse{
		App:       dto.NewAppResponse(app, c.baseURL, true),
		FileCount: res.FileCount,
		Bytes:     res.TotalBytes,
		Flattened: res.Flattened,
	})
}

// Redeploy maneja POST /api/apps/{app}/deploy: mismo multipart que Deploy
// pero reemplaza el árbol de una app existente.
func (c *Controller) Redeploy(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("apps.Redeploy"))
	user := mw.UserFrom(ctx)

	files, _, _, ok := c.readUpload(w, r)
	if !ok {
		httpapi.ObserveDeploy("rejected")
		return
	}

	app, res, err := c.service.Redeploy(ctx, user, chi.URLParam(r, "app"), files)
	if err != nil {
		c.writeDeployError(w, log, err)
		return
	}
	httpapi.ObserveDeploy("ok")

	httpapi.WriteJSON(w, http.StatusOK, dto.DeployResponse{
		App:       dto.NewAppResponse(app, c.baseURL, true),
		FileCount: res.FileCount,
		Bytes:     res.TotalBytes,
		Flattened: res.Flattened,
	})
}

// List maneja GET /api/apps. Query params: q, starred, mine, sort.
func (c *Controller) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := mw.UserFrom(ctx)
	q := r.URL.Query()

	opts := repository.ListAppsOptions{
		Search:    q.Get("q"),
		Starred:   q.Get("starred") == "true",
		OwnerOnly: q.Get("mine") == "true",
		SortBy:    q.Get("sort"),
	}

	apps, err := c.service.List(ctx, user, opts)
	if err != nil {
		logger.From(ctx).Error("list apps failed", logger.Err(err))
		httpapi.WriteError(w, http.StatusInternalServerError, "internal_error", "no se pudo listar")
		return
	}

	resp := dto.ListAppsResponse{Apps: make([]dto.AppResponse, 0, len(apps)), Total: len(apps)}
	for _, app := range apps {
		isOwner := user != nil && user.ID == app.OwnerID
		resp.Apps = append(resp.Apps, dto.NewAppResponse(app, c.baseURL, isOwner))
	}
	httpapi.WriteJSON(w, http.StatusOK, resp)
}

// Get maneja GET /api/apps/{app}.
func (c *Controller) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := mw.UserFrom(ctx)

	app, err := c.service.Get(ctx, user, chi.URLParam(r, "app"))
	if err != nil {
		c.writeAppError(w, ctx, err)
		return
	}
	isOwner := user != nil && user.ID == app.OwnerID
	httpapi.WriteJSON(w, http.StatusOK, dto.NewAppResponse(app, c.baseURL, isOwner))
}

// Update maneja PATCH /api/apps/{app}.
func (c *Controller) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := mw.UserFrom(ctx)

	var req dto.UpdateAppRequest
	if !httpapi.ReadJSON(w, r, &req) {
		return
	}

	input := repository.UpdateAppInput{
		Name:           req.Name,
		Description:    req.Description,
		Tags:           req.Tags,
		AccessPassword: req.AccessPassword,
		AccessEmails:   req.AccessEmails,
		AccessDomain:   req.AccessDomain,
	}
	if req.Status != nil {
		st := repository.AppStatus(*req.Status)
		input.Status = &st
	}
	if req.AccessType != nil {
		at := repository.AccessType(*req.AccessType)
		input.AccessType = &at
	}

	app, err := c.service.Update(ctx, user, chi.URLParam(r, "app"), input)
	if err != nil {
		c.writeAppError(w, ctx, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, dto.NewAppResponse(app, c.baseURL, true))
}

// Delete maneja DELETE /api/apps/{app}.
func (c *Controller) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := mw.UserFrom(ctx)

	if err := c.service.Delete(ctx, user, chi.URLParam(r, "app")); err != nil {
		c.writeAppError(w, ctx, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Star maneja POST /api/apps/{app}/star.
func (c *Controller) Star(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := mw.UserFrom(ctx)

	starred, count, err := c.service.ToggleStar(ctx, user, chi.URLParam(r, "app"))
	if err != nil {
		c.writeAppError(w, ctx, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, dto.StarResponse{Starred: starred, StarCount: count})
}

// AccessLog maneja GET /api/apps/{app}/access-log.
func (c *Controller) AccessLog(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := mw.UserFrom(ctx)

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries, err := c.service.AccessLog(ctx, user, chi.URLParam(r, "app"), limit)
	if err != nil {
		c.writeAppError(w, ctx, err)
		return
	}

	resp := dto.AccessLogResponse{Entries: make([]dto.AccessLogEntry, 0, len(entries))}
	for _, e := range entries {
		resp.Entries = append(resp.Entries, dto.AccessLogEntry{
			Email:      e.AccessorEmail,
			Method:     e.Method,
			AccessedAt: e.AccessedAt,
		})
	}
	httpapi.WriteJSON(w, http.StatusOK, resp)
}

// readUpload parsea el multipart del deploy. Devuelve ok=false si ya
// escribió una respuesta de error.
func (c *Controller) readUpload(w http.ResponseWriter, r *http.Request) (files []bundle.File, name, description string, ok bool) {
	r.Body = http.MaxBytesReader(w, r.Body, c.maxUploadBytes)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		httpapi.WriteError(w, http.StatusBadRequest, "invalid_upload", "se espera multipart/form-data")
		return nil, "", "", false
	}
	defer r.MultipartForm.RemoveAll()

	name = r.FormValue("name")
	description = r.FormValue("description")

	for _, fh := range r.MultipartForm.File["files"] {
		f, err := fh.Open()
		if err != nil {
			httpapi.WriteError(w, http.StatusBadRequest, "invalid_upload", "no se pudo leer un archivo")
			return nil, "", "", false
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			httpapi.WriteError(w, http.StatusBadRequest, "invalid_upload", "no se pudo leer un archivo")
			return nil, "", "", false
		}
		files = append(files, bundle.File{Path: fh.Filename, Content: data})
	}
	return files, name, description, true
}

// writeDeployError mapea errores del pipeline de deploy. Los de validación
// del bundle son 4xx y cuentan como "rejected"; el resto es 5xx "failed".
func (c *Controller) writeDeployError(w http.ResponseWriter, log *zap.Logger, err error) {
	switch {
	case errors.Is(err, svc.ErrNameRequired), errors.Is(err, svc.ErrNoFiles):
		httpapi.ObserveDeploy("rejected")
		httpapi.WriteError(w, http.StatusBadRequest, "invalid_upload", err.Error())
	case errors.Is(err, bundle.ErrEmptyBundle),
		errors.Is(err, bundle.ErrInvalidFilename),
		errors.Is(err, bundle.ErrBadArchive):
		httpapi.ObserveDeploy("rejected")
		httpapi.WriteError(w, http.StatusBadRequest, "invalid_bundle", err.Error())
	case errors.Is(err, bundle.ErrTooManyFiles), errors.Is(err, bundle.ErrTooLarge):
		httpapi.ObserveDeploy("rejected")
		httpapi.WriteError(w, http.StatusRequestEntityTooLarge, "bundle_too_large", err.Error())
	case errors.Is(err, svc.ErrForbidden):
		httpapi.ObserveDeploy("rejected")
		httpapi.WriteError(w, http.StatusForbidden, "forbidden", "sólo el owner puede redesplegar")
	case repository.IsNotFound(err):
		httpapi.ObserveDeploy("rejected")
		httpapi.WriteError(w, http.StatusNotFound, "not_found", "la app no existe")
	default:
		httpapi.ObserveDeploy("failed")
		log.Error("deploy failed", logger.Err(err))
		httpapi.WriteError(w, http.StatusInternalServerError, "internal_error", "el deploy falló")
	}
}

// writeAppError mapea errores comunes del CRUD.
func (c *Controller) writeAppError(w http.ResponseWriter, ctx context.Context, err error) {
	switch {
	case repository.IsNotFound(err):
		httpapi.WriteError(w, http.StatusNotFound, "not_found", "la app no existe")
	case errors.Is(err, svc.ErrForbidden):
		httpapi.WriteError(w, http.StatusForbidden, "forbidden", "sólo el owner puede hacer eso")
	case errors.Is(err, repository.ErrInvalidInput):
		httpapi.WriteError(w, http.StatusBadRequest, "invalid_input", err.Error())
	default:
		logger.From(ctx).Error("apps request failed", logger.Err(err))
		httpapi.WriteError(w, http.StatusInternalServerError, "internal_error", "algo salió mal")
	}
}
