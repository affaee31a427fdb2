// Package access expone los endpoints de gate de apps protegidas: qué
// necesita el visitante para entrar y el challenge por password.
package access

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dropDatabas3/internalhub/internal/domain/repository"
	httpapi "github.com/dropDatabas3/internalhub/internal/http"
	"github.com/dropDatabas3/internalhub/internal/http/dto"
	mw "github.com/dropDatabas3/internalhub/internal/http/middlewares"
	svc "github.com/dropDatabas3/internalhub/internal/http/services/viewer"
	"github.com/dropDatabas3/internalhub/internal/observability/logger"
)

// Controller maneja las rutas /api/access/{app}.
type Controller struct {
	service svc.Service
	baseURL string
}

// New crea el controller de access.
func New(service svc.Service, baseURL string) *Controller {
	return &Controller{service: service, baseURL: baseURL}
}

// Info maneja GET /api/access/{app}: describe el gate sin revelar secretos.
func (c *Controller) Info(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	app, err := c.service.App(ctx, chi.URLParam(r, "app"))
	if err != nil {
		c.writeLookupError(w, ctx, err)
		return
	}

	d := c.service.Authorize(ctx, app, mw.UserFrom(ctx), cookieReader(r))
	if d.Reason == svc.ReasonNotPublished {
		httpapi.WriteError(w, http.StatusNotFound, "not_found", "la app no existe")
		return
	}

	httpapi.WriteJSON(w, http.StatusOK, dto.AccessInfoResponse{
		AppName:    app.Name,
		AppSlug:    app.Slug,
		AccessType: string(app.AccessType),
		Granted:    d.Allowed,
		Reason:     d.Reason,
	})
}

// Challenge maneja POST /api/access/{app}/challenge: intento de password.
func (c *Controller) Challenge(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("access.Challenge"))

	app, err := c.service.App(ctx, chi.URLParam(r, "app"))
	if err != nil {
		c.writeLookupError(w, ctx, err)
		return
	}

	var req dto.ChallengeRequest
	if !httpapi.ReadJSON(w, r, &req) {
		return
	}

	grant, err := c.service.Challenge(ctx, app, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, svc.ErrNoPasswordGate):
			httpapi.WriteError(w, http.StatusConflict, "no_password_gate", "la app no usa password")
		case errors.Is(err, svc.ErrPasswordMissing):
			httpapi.WriteError(w, http.StatusBadRequest, "password_required", "falta la password")
		case errors.Is(err, svc.ErrWrongPassword):
			// Mismo contador que las denegaciones del viewer.
			httpapi.ObserveAccessDenied("wrong_password")
			httpapi.WriteError(w, http.StatusUnauthorized, "wrong_password", "password incorrecta")
		default:
			log.Error("challenge failed", logger.Err(err))
			httpapi.WriteError(w, http.StatusInternalServerError, "internal_error", "algo salió mal")
		}
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     grant.CookieName,
		Value:    grant.Token,
		Path:     "/",
		MaxAge:   grant.MaxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	httpapi.WriteJSON(w, http.StatusOK, dto.ChallengeResponse{
		Granted: true,
		ViewURL: c.baseURL + "/a/" + app.Slug,
	})
}

func (c *Controller) writeLookupError(w http.ResponseWriter, ctx context.Context, err error) {
	if repository.IsNotFound(err) {
		httpapi.WriteError(w, http.StatusNotFound, "not_found", "la app no existe")
		return
	}
	logger.From(ctx).Error("app lookup failed", logger.Err(err))
	httpapi.WriteError(w, http.StatusInternalServerError, "internal_error", "algo salió mal")
}

// cookieReader adapta r.Cookie a la firma que espera el servicio.
func cookieReader(r *http.Request) svc.CookieReader {
	return func(name string) (string, bool) {
		c, err := r.Cookie(name)
		if err != nil || c.Value == "" {
			return "", false
		}
		return c.Value, true
	}
}
