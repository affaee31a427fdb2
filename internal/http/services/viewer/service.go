// Package viewer decide y sirve: resuelve la app detrás de /a/{slug},
// evalúa el access control contra la sesión y los grants del visitante,
// y entrega el archivo pedido con su política de caché.
package viewer

import (
	"context"
	"fmt"

	"github.com/dropDatabas3/internalhub/internal/access"
	"github.com/dropDatabas3/internalhub/internal/access/gate"
	"github.com/dropDatabas3/internalhub/internal/content"
	"github.com/dropDatabas3/internalhub/internal/domain/repository"
	appsvc "github.com/dropDatabas3/internalhub/internal/http/services/apps"
	"github.com/dropDatabas3/internalhub/internal/observability/logger"
	"github.com/dropDatabas3/internalhub/internal/security/token"
)

// CookieReader abstrae la lectura de cookies del request.
type CookieReader func(name string) (string, bool)

// Decision es el resultado de autorizar un acceso.
type Decision struct {
	Allowed bool

	// Method registra cómo entró: "owner" | "public" | "password" | "email".
	Method string

	// Email verificado del visitante, si el método lo carga.
	Email string

	// Reason explica la denegación (vacío cuando Allowed).
	Reason string
}

// ReasonNotPublished marca apps en draft o archivadas para no-owners.
// El controller lo mapea a 404: una app no publicada no existe hacia afuera.
const ReasonNotPublished = "not_published"

// Service define el camino de servido de apps.
type Service interface {
	// App resuelve slug-o-ID (con cache).
	App(ctx context.Context, idOrSlug string) (*repository.App, error)

	// Authorize evalúa si el visitante puede ver la app.
	Authorize(ctx context.Context, app *repository.App, user *repository.User, cookies CookieReader) Decision

	// Challenge valida un intento de password y emite un grant.
	Challenge(ctx context.Context, app *repository.App, password string) (*Grant, error)

	// Serve resuelve requestPath dentro del árbol publicado de la app.
	Serve(ctx context.Context, app *repository.App, requestPath string) (*content.Asset, error)

	// LogAccess registra un acceso concedido. Best-effort: nunca falla
	// hacia el caller.
	LogAccess(ctx context.Context, app *repository.App, d Decision)
}

// Grant es un gate grant listo para viajar en una cookie.
type Grant struct {
	Token      string
	CookieName string
	MaxAge     int
}

// Deps contiene las dependencias del servicio.
type Deps struct {
	Apps      appsvc.Service
	Gate      *gate.Manager
	Resolver  *content.Resolver
	AccessLog repository.AccessLogRepository
}

// Service errors
var (
	ErrNoPasswordGate  = fmt.Errorf("app has no password gate")
	ErrWrongPassword   = fmt.Errorf("wrong password")
	ErrPasswordMissing = fmt.Errorf("password is required")
)

type service struct {
	apps      appsvc.Service
	gate      *gate.Manager
	resolver  *content.Resolver
	accessLog repository.AccessLogRepository
}

// New crea el servicio del viewer.
func New(deps Deps) Service {
	return &service{
		apps:      deps.Apps,
		gate:      deps.Gate,
		resolver:  deps.Resolver,
		accessLog: deps.AccessLog,
	}
}

func (s *service) App(ctx context.Context, idOrSlug string) (*repository.App, error) {
	return s.apps.Lookup(ctx, idOrSlug)
}

func (s *service) Authorize(ctx context.Context, app *repository.App, user *repository.User, cookies CookieReader) Decision {
	isOwner := user != nil && user.ID == app.OwnerID

	if app.Status != repository.AppStatusPublished && !isOwner {
		return Decision{Reason: ReasonNotPublished}
	}
	if isOwner {
		return Decision{Allowed: true, Method: "owner", Email: user.Email}
	}

	cfg := access.FromApp(app)

	// Email verificado: la sesión del hub pesa más que un grant viejo.
	email := ""
	if user != nil {
		email = user.Email
	} else if raw, ok := cookies(gate.CookieName(app.ID)); ok {
		email = s.gate.GrantedEmail(raw, app.ID)
	}

	// La política vigente manda: un grant emitido bajo una lista anterior
	// no sobrevive si el email ya no está en ella.
	v := access.Evaluate(cfg, email, false)
	if v.Allowed {
		method := "public"
		if cfg.Kind() == repository.AccessEmailList || cfg.Kind() == repository.AccessDomain {
			method = "email"
		}
		return Decision{Allowed: true, Method: method, Email: email}
	}

	if v.Reason == access.DenyPasswordRequired {
		if raw, ok := cookies(gate.CookieName(app.ID)); ok && s.gate.HasPasswordGrant(raw, app.ID) {
			return Decision{Allowed: true, Method: "password"}
		}
	}

	return Decision{Reason: string(v.Reason)}
}

func (s *service) Challenge(ctx context.Context, app *repository.App, password string) (*Grant, error) {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Component("viewer"), logger.Op("Challenge"))

	cfg := access.FromApp(app)
	if cfg.Kind() != repository.AccessPassword || cfg.Password() == "" {
		return nil, ErrNoPasswordGate
	}
	if password == "" {
		return nil, ErrPasswordMissing
	}
	if !token.ConstantTimeEquals(password, cfg.Password()) {
		log.Info("password challenge failed",
			logger.AppID(app.ID),
			logger.SecurityEvent("challenge_failed"),
		)
		return nil, ErrWrongPassword
	}

	grant, err := s.gate.GrantPassword(app.ID)
	if err != nil {
		return nil, err
	}
	log.Info("password challenge passed", logger.AppID(app.ID))
	return &Grant{
		Token:      grant,
		CookieName: gate.CookieName(app.ID),
		MaxAge:     int(s.gate.PasswordTTL().Seconds()),
	}, nil
}

func (s *service) Serve(ctx context.Context, app *repository.App, requestPath string) (*content.Asset, error) {
	return s.resolver.Resolve(app.StoragePath, requestPath)
}

func (s *service) LogAccess(ctx context.Context, app *repository.App, d Decision) {
	// Los accesos públicos no se loguean: serían puro ruido sin identidad.
	if !d.Allowed || d.Method == "public" {
		return
	}
	err := s.accessLog.Insert(ctx, repository.AccessLogEntry{
		AppID:         app.ID,
		AccessorEmail: d.Email,
		Method:        d.Method,
	})
	if err != nil {
		logger.From(ctx).Warn("access log insert failed", logger.AppID(app.ID), logger.Err(err))
	}
}
