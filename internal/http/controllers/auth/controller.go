// Package auth expone el login por magic link: emisión, verificación,
// logout y el endpoint de sesión actual.
package auth

import (
	"errors"
	"net/http"

	"github.com/dropDatabas3/internalhub/internal/domain/repository"
	httpapi "github.com/dropDatabas3/internalhub/internal/http"
	"github.com/dropDatabas3/internalhub/internal/http/dto"
	mw "github.com/dropDatabas3/internalhub/internal/http/middlewares"
	svc "github.com/dropDatabas3/internalhub/internal/http/services/auth"
	"github.com/dropDatabas3/internalhub/internal/observability/logger"
)

// Controller maneja las rutas de autenticación.
type Controller struct {
	service svc.Service
}

// New crea el controller de auth.
func New(service svc.Service) *Controller {
	return &Controller{service: service}
}

// MagicLink maneja POST /api/auth/magic-link.
func (c *Controller) MagicLink(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("auth.MagicLink"))

	var req dto.MagicLinkRequest
	if !httpapi.ReadJSON(w, r, &req) {
		return
	}

	issued, err := c.service.RequestMagicLink(ctx, svc.MagicLinkInput{
		Email:   req.Email,
		AppSlug: req.AppSlug,
	})
	if err != nil {
		switch {
		case errors.Is(err, svc.ErrEmailRequired), errors.Is(err, svc.ErrBadEmail):
			httpapi.WriteError(w, http.StatusBadRequest, "invalid_email", err.Error())
		case errors.Is(err, svc.ErrNotEligible):
			httpapi.WriteError(w, http.StatusForbidden, "not_eligible", "ese email no tiene acceso a la app")
		case repository.IsNotFound(err):
			httpapi.WriteError(w, http.StatusNotFound, "not_found", "la app no existe")
		case errors.Is(err, svc.ErrSendFailed):
			httpapi.WriteError(w, http.StatusBadGateway, "send_failed", "no se pudo enviar el email")
		default:
			log.Error("magic link request failed", logger.Err(err))
			httpapi.WriteError(w, http.StatusInternalServerError, "internal_error", "algo salió mal")
		}
		return
	}
	httpapi.ObserveMagicLink()

	httpapi.WriteJSON(w, http.StatusAccepted, dto.MagicLinkResponse{
		Sent:      true,
		DebugLink: issued.Link,
	})
}

// Verify maneja GET /auth/verify?token=... Consume el token, setea la
// sesión (y el gate grant si el link era app-scoped) y redirige.
func (c *Controller) Verify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("auth.Verify"))

	result, err := c.service.VerifyMagicToken(ctx, r.URL.Query().Get("token"))
	if err != nil {
		switch {
		case errors.Is(err, svc.ErrTokenInvalid):
			httpapi.WriteError(w, http.StatusUnauthorized, "invalid_token", "el link no es válido")
		case errors.Is(err, svc.ErrTokenExpired):
			httpapi.WriteError(w, http.StatusUnauthorized, "token_expired", "el link expiró o ya fue usado")
		default:
			log.Error("magic token verify failed", logger.Err(err))
			httpapi.WriteError(w, http.StatusInternalServerError, "internal_error", "algo salió mal")
		}
		return
	}

	http.SetCookie(w, c.service.BuildSessionCookie(result.SessionToken))
	if result.GateToken != "" {
		http.SetCookie(w, &http.Cookie{
			Name:     result.GateCookieName,
			Value:    result.GateToken,
			Path:     "/",
			MaxAge:   int(result.GateTTL.Seconds()),
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}
	w.Header().Set("Cache-Control", "no-store")

	http.Redirect(w, r, result.Redirect, http.StatusSeeOther)
}

// Logout maneja POST /api/auth/logout.
func (c *Controller) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, c.service.ClearSessionCookie())
	w.WriteHeader(http.StatusNoContent)
}

// Me maneja GET /api/auth/me.
func (c *Controller) Me(w http.ResponseWriter, r *http.Request) {
	user := mw.UserFrom(r.Context())
	if user == nil {
		httpapi.WriteError(w, http.StatusUnauthorized, "unauthorized", "no hay sesión activa")
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, dto.MeResponse{
		ID:        user.ID,
		Email:     user.Email,
		Name:      user.Name,
		CreatedAt: user.CreatedAt,
		LastLogin: user.LastLogin,
	})
}
