// Package viewer sirve las apps publicadas bajo /a/{app}. Es la única
// superficie que ven los visitantes; todo lo demás es API del hub.
package viewer

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/dropDatabas3/internalhub/internal/content"
	"github.com/dropDatabas3/internalhub/internal/domain/repository"
	httpapi "github.com/dropDatabas3/internalhub/internal/http"
	mw "github.com/dropDatabas3/internalhub/internal/http/middlewares"
	svc "github.com/dropDatabas3/internalhub/internal/http/services/viewer"
	"github.com/dropDatabas3/internalhub/internal/observability/logger"
	"github.com/dropDatabas3/internalhub/internal/storage"
)

// Controller maneja GET/HEAD /a/{app} y /a/{app}/*.
type Controller struct {
	service svc.Service
	baseURL string
}

// New crea el controller del viewer.
func New(service svc.Service, baseURL string) *Controller {
	return &Controller{service: service, baseURL: strings.TrimRight(baseURL, "/")}
}

// Serve resuelve y entrega un archivo de la app, previa autorización.
func (c *Controller) Serve(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("viewer.Serve"))

	app, err := c.service.App(ctx, chi.URLParam(r, "app"))
	if err != nil {
		if repository.IsNotFound(err) {
			http.NotFound(w, r)
			return
		}
		log.Error("app lookup failed", logger.Err(err))
		httpapi.WriteError(w, http.StatusInternalServerError, "internal_error", "algo salió mal")
		return
	}

	d := c.service.Authorize(ctx, app, mw.UserFrom(ctx), cookieReader(r))
	if !d.Allowed {
		c.deny(w, r, app, d)
		return
	}

	rel := chi.URLParam(r, "*")
	asset, err := c.service.Serve(ctx, app, rel)
	if err != nil {
		c.writeServeError(w, r, log, err)
		return
	}
	defer asset.Body.Close()

	w.Header().Set("Content-Type", asset.ContentType)
	w.Header().Set("Cache-Control", asset.CacheControl)
	w.Header().Set("Content-Length", strconv.FormatInt(asset.Size, 10))

	if r.Method == http.MethodHead {
		w.WriteHeader(http.StatusOK)
		return
	}

	// Un acceso = una visita al documento, no cada asset de la página.
	if strings.HasPrefix(asset.ContentType, "text/html") {
		c.service.LogAccess(ctx, app, d)
	}

	if _, err := io.Copy(w, asset.Body); err != nil {
		// El cliente cortó. Ya enviamos headers; sólo queda anotarlo.
		log.Debug("asset copy aborted", logger.AppSlug(app.Slug), logger.Err(err))
	}
}

// deny responde una denegación. Las navegaciones de browser contra un gate
// superable van a la página de gate; el resto recibe el envelope JSON.
func (c *Controller) deny(w http.ResponseWriter, r *http.Request, app *repository.App, d svc.Decision) {
	httpapi.ObserveAccessDenied(d.Reason)
	logger.From(r.Context()).Info("access denied",
		logger.AppSlug(app.Slug),
		logger.DenyReason(d.Reason),
		logger.SecurityEvent("access_denied"),
	)

	if d.Reason == svc.ReasonNotPublished {
		// No publicada = inexistente hacia afuera.
		http.NotFound(w, r)
		return
	}

	wantsHTML := strings.Contains(r.Header.Get("Accept"), "text/html")
	recoverable := d.Reason == "password_required" || d.Reason == "email_required"
	if wantsHTML && recoverable {
		http.Redirect(w, r, c.baseURL+"/gate/"+app.Slug, http.StatusSeeOther)
		return
	}

	status := http.StatusUnauthorized
	if d.Reason == "private" || d.Reason == "not_on_list" || d.Reason == "wrong_domain" {
		status = http.StatusForbidden
	}
	httpapi.WriteError(w, status, d.Reason, "no tenés acceso a esta app")
}

func (c *Controller) writeServeError(w http.ResponseWriter, r *http.Request, log *zap.Logger, err error) {
	switch {
	case errors.Is(err, storage.ErrTraversal):
		// Intento de escapar del subtree de la app. Se corta con 403 y
		// queda marcado como evento de seguridad.
		log.Warn("path traversal rejected",
			logger.RemoteAddr(r.RemoteAddr),
			logger.SecurityEvent("path_traversal"),
		)
		httpapi.WriteError(w, http.StatusForbidden, "invalid_path", "ruta inválida")
	case errors.Is(err, storage.ErrNotFound):
		http.NotFound(w, r)
	case errors.Is(err, content.ErrEmptyApp):
		// App sin archivos: distinguible de un 404 común para que la UI
		// muestre el estado vacío en vez de una página de error.
		httpapi.WriteError(w, http.StatusNotFound, "empty_app", "la app no tiene archivos")
	default:
		log.Error("asset resolve failed", logger.Err(err))
		httpapi.WriteError(w, http.StatusInternalServerError, "internal_error", "algo salió mal")
	}
}

func cookieReader(r *http.Request) svc.CookieReader {
	return func(name string) (string, bool) {
		c, err := r.Cookie(name)
		if err != nil || c.Value == "" {
			return "", false
		}
		return c.Value, true
	}
}
