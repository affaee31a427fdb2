// Package auth implementa el login passwordless del hub: emisión y consumo
// de magic links, y la sesión firmada que resulta de consumir uno.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dropDatabas3/internalhub/internal/access"
	"github.com/dropDatabas3/internalhub/internal/access/gate"
	"github.com/dropDatabas3/internalhub/internal/domain/repository"
	"github.com/dropDatabas3/internalhub/internal/email"
	"github.com/dropDatabas3/internalhub/internal/observability/logger"
	"github.com/dropDatabas3/internalhub/internal/security/token"
	"github.com/dropDatabas3/internalhub/internal/signing"
	"github.com/dropDatabas3/internalhub/internal/validation"
	jwtv5 "github.com/golang-jwt/jwt/v5"
)

// Service define las operaciones de autenticación.
type Service interface {
	// RequestMagicLink emite un token single-use y lo envía por email.
	// Con AppSlug, el link además desbloquea esa app al consumirse.
	RequestMagicLink(ctx context.Context, in MagicLinkInput) (*MagicLinkIssued, error)

	// VerifyMagicToken consume un token y arma sesión + grants.
	VerifyMagicToken(ctx context.Context, plainToken string) (*VerifyResult, error)

	// BuildSessionCookie arma la cookie de sesión del hub.
	BuildSessionCookie(sessionToken string) *http.Cookie

	// ClearSessionCookie arma la cookie que borra la sesión.
	ClearSessionCookie() *http.Cookie
}

// MagicLinkInput es el pedido de un magic link.
type MagicLinkInput struct {
	Email   string
	AppSlug string
}

// MagicLinkIssued es el resultado de emitir un link.
type MagicLinkIssued struct {
	// Link sólo se expone fuera del email en modo debug echo.
	Link      string
	ExpiresAt time.Time
}

// VerifyResult es el resultado de consumir un magic token.
type VerifyResult struct {
	User         *repository.User
	SessionToken string

	// Grant de acceso a una app, si el token era app-scoped.
	GateToken      string
	GateCookieName string
	GateTTL        time.Duration

	// Redirect es el destino post-login: la app del token o el hub.
	Redirect string
}

// CookieConfig gobierna la cookie de sesión.
type CookieConfig struct {
	Name     string
	Domain   string
	SameSite http.SameSite
	Secure   bool
	TTL      time.Duration
}

// Deps contiene las dependencias del servicio.
type Deps struct {
	Users  repository.UserRepository
	Tokens repository.MagicTokenRepository
	Apps   repository.AppRepository
	Gate   *gate.Manager
	Signer *signing.Signer
	Sender email.Sender

	BaseURL  string
	MagicTTL time.Duration
	Cookie   CookieConfig

	// EchoLinks devuelve el link en la respuesta además de enviarlo.
	// Sólo dev; config lo fuerza a false en prod.
	EchoLinks bool
}

// Service errors
var (
	ErrEmailRequired = fmt.Errorf("email is required")
	ErrBadEmail      = fmt.Errorf("email address is not valid")
	ErrNotEligible   = fmt.Errorf("email is not allowed for this app")
	ErrTokenInvalid  = fmt.Errorf("magic token is invalid")
	ErrTokenExpired  = fmt.Errorf("magic token expired or already used")
	ErrSendFailed    = fmt.Errorf("could not send the email")
)

type service struct {
	users  repository.UserRepository
	tokens repository.MagicTokenRepository
	apps   repository.AppRepository
	gate   *gate.Manager
	signer *signing.Signer
	sender email.Sender

	baseURL   string
	magicTTL  time.Duration
	cookie    CookieConfig
	echoLinks bool
}

// New crea el servicio de auth.
func New(deps Deps) Service {
	cookie := deps.Cookie
	if cookie.Name == "" {
		cookie.Name = "hub_session"
	}
	if cookie.TTL <= 0 {
		cookie.TTL = 7 * 24 * time.Hour
	}
	if cookie.SameSite == 0 {
		cookie.SameSite = http.SameSiteLaxMode
	}
	ttl := deps.MagicTTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &service{
		users:     deps.Users,
		tokens:    deps.Tokens,
		apps:      deps.Apps,
		gate:      deps.Gate,
		signer:    deps.Signer,
		sender:    deps.Sender,
		baseURL:   strings.TrimRight(deps.BaseURL, "/"),
		magicTTL:  ttl,
		cookie:    cookie,
		echoLinks: deps.EchoLinks,
	}
}

func (s *service) RequestMagicLink(ctx context.Context, in MagicLinkInput) (*MagicLinkIssued, error) {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Component("auth"), logger.Op("RequestMagicLink"))

	addr := strings.ToLower(strings.TrimSpace(in.Email))
	if addr == "" {
		return nil, ErrEmailRequired
	}
	if !validation.ValidEmail(addr) {
		return nil, ErrBadEmail
	}

	// Nombre que aparece en el email y app que desbloquea el token.
	appName := "InternalHub"
	appID := ""
	if in.AppSlug != "" {
		app, err := s.apps.GetBySlugOrID(ctx, in.AppSlug)
		if err != nil {
			return nil, err
		}
		// Para apps con lista o dominio, no tiene sentido mandar un link
		// que después el evaluador va a rechazar.
		cfg := access.FromApp(app)
		switch cfg.Kind() {
		case repository.AccessEmailList, repository.AccessDomain:
			if v := access.Evaluate(cfg, addr, false); !v.Allowed {
				log.Info("magic link refused",
					logger.Email(addr),
					logger.AppSlug(app.Slug),
					logger.DenyReason(string(v.Reason)),
				)
				return nil, ErrNotEligible
			}
		}
		appName = app.Name
		appID = app.ID
	}

	plain, err := token.GenerateOpaqueToken(32)
	if err != nil {
		return nil, err
	}

	tok, err := s.tokens.Create(ctx, repository.CreateMagicTokenInput{
		Email:     addr,
		TokenHash: token.SHA256Hex(plain),
		AppID:     appID,
		TTL:       s.magicTTL,
	})
	if err != nil {
		return nil, err
	}

	link := s.baseURL + "/auth/verify?token=" + url.QueryEscape(plain)
	subject, htmlBody, textBody, err := email.BuildMagicLink(appName, link, s.magicTTL)
	if err != nil {
		return nil, err
	}
	if err := s.sender.Send(addr, subject, htmlBody, textBody); err != nil {
		log.Error("magic link send failed", logger.Email(addr), logger.Err(err))
		return nil, ErrSendFailed
	}

	log.Info("magic link sent", logger.Email(addr), logger.AppID(appID))
	issued := &MagicLinkIssued{ExpiresAt: tok.ExpiresAt}
	if s.echoLinks {
		issued.Link = link
	}
	return issued, nil
}

func (s *service) VerifyMagicToken(ctx context.Context, plainToken string) (*VerifyResult, error) {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Component("auth"), logger.Op("VerifyMagicToken"))

	if plainToken == "" {
		return nil, ErrTokenInvalid
	}

	tok, err := s.tokens.Consume(ctx, token.SHA256Hex(plainToken))
	switch {
	case err == nil:
	case repository.IsNotFound(err):
		return nil, ErrTokenInvalid
	case errors.Is(err, repository.ErrTokenExpired):
		return nil, ErrTokenExpired
	default:
		return nil, err
	}

	user, err := s.users.GetOrCreateByEmail(ctx, tok.Email, "")
	if err != nil {
		return nil, err
	}

	session, err := s.signer.Sign(jwtv5.MapClaims{
		"sub":   user.ID,
		"email": user.Email,
	}, s.cookie.TTL)
	if err != nil {
		return nil, err
	}

	result := &VerifyResult{
		User:         user,
		SessionToken: session,
		Redirect:     "/",
	}

	if tok.AppID != "" {
		grant, err := s.gate.GrantEmail(tok.AppID, user.Email)
		if err != nil {
			return nil, err
		}
		result.GateToken = grant
		result.GateCookieName = gate.CookieName(tok.AppID)
		result.GateTTL = s.gate.EmailTTL()

		// Redirigir directo a la app que motivó el link.
		if app, err := s.apps.GetByID(ctx, tok.AppID); err == nil {
			result.Redirect = "/a/" + app.Slug
		}
	}

	log.Info("magic token verified", logger.UserID(user.ID), logger.AppID(tok.AppID))
	return result, nil
}

func (s *service) BuildSessionCookie(sessionToken string) *http.Cookie {
	return &http.Cookie{
		Name:     s.cookie.Name,
		Value:    sessionToken,
		Path:     "/",
		Domain:   s.cookie.Domain,
		MaxAge:   int(s.cookie.TTL.Seconds()),
		HttpOnly: true,
		Secure:   s.cookie.Secure,
		SameSite: s.cookie.SameSite,
	}
}

func (s *service) ClearSessionCookie() *http.Cookie {
	return &http.Cookie{
		Name:     s.cookie.Name,
		Value:    "",
		Path:     "/",
		Domain:   s.cookie.Domain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.cookie.Secure,
		SameSite: s.cookie.SameSite,
	}
}
