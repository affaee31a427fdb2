package http

import (
	stdhttp "net/http"

	"github.com/go-chi/chi/v5"

	mw "github.com/dropDatabas3/internalhub/internal/http/middlewares"
	"github.com/dropDatabas3/internalhub/internal/rate"
)

// RouterConfig junta los handlers ya construidos y los middlewares que
// dependen de estado. El wiring concreto vive en cmd/; acá sólo se decide
// qué middleware ve cada superficie.
type RouterConfig struct {
	Session            mw.SessionConfig
	CORSAllowedOrigins []string

	// Limiters de los endpoints sensibles. nil desactiva el límite.
	ChallengeLimiter rate.Limiter
	MagicLinkLimiter rate.Limiter

	// Prometheus scrape endpoint.
	Metrics stdhttp.Handler

	// Health
	Healthz stdhttp.HandlerFunc
	Readyz  stdhttp.HandlerFunc

	// Auth
	AuthMagicLink stdhttp.HandlerFunc
	AuthVerify    stdhttp.HandlerFunc
	AuthLogout    stdhttp.HandlerFunc
	AuthMe        stdhttp.HandlerFunc

	// Apps (hub API)
	AppsDeploy    stdhttp.HandlerFunc
	AppsRedeploy  stdhttp.HandlerFunc
	AppsList      stdhttp.HandlerFunc
	AppsGet       stdhttp.HandlerFunc
	AppsUpdate    stdhttp.HandlerFunc
	AppsDelete    stdhttp.HandlerFunc
	AppsStar      stdhttp.HandlerFunc
	AppsAccessLog stdhttp.HandlerFunc

	// Access gate
	AccessInfo      stdhttp.HandlerFunc
	AccessChallenge stdhttp.HandlerFunc

	// Viewer
	ViewerServe stdhttp.HandlerFunc
}

// NewRouter arma el router completo.
//
// Tres superficies con middleware distinto:
//   - operacional (/healthz, /readyz, /metrics): sin sesión, sin logging
//   - API del hub (/api/...): security headers, CORS, sesión
//   - viewer (/a/...): sesión pero sin security headers; un CSP del hub
//     rompería las apps hosteadas
func NewRouter(cfg RouterConfig) stdhttp.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", cfg.Healthz)
	r.Get("/readyz", cfg.Readyz)
	if cfg.Metrics != nil {
		r.Method(stdhttp.MethodGet, "/metrics", cfg.Metrics)
	}

	base := mw.Compose(
		mw.WithRequestID(),
		WithMetrics,
		mw.WithLogging(),
		mw.WithRecover(),
		mw.WithSession(cfg.Session),
	)

	// El link del email entra por GET sin sesión previa.
	r.Group(func(g chi.Router) {
		g.Use(base)
		g.Get("/auth/verify", cfg.AuthVerify)
	})

	r.Route("/api", func(api chi.Router) {
		api.Use(base)
		api.Use(mw.WithSecurityHeaders())
		api.Use(mw.WithCORS(cfg.CORSAllowedOrigins))

		api.With(mw.WithRateLimit(cfg.MagicLinkLimiter)).
			Post("/auth/magic-link", cfg.AuthMagicLink)
		api.Post("/auth/logout", cfg.AuthLogout)
		api.Get("/auth/me", cfg.AuthMe)

		api.Get("/access/{app}", cfg.AccessInfo)
		api.With(mw.WithRateLimit(cfg.ChallengeLimiter)).
			Post("/access/{app}/challenge", cfg.AccessChallenge)

		api.Group(func(priv chi.Router) {
			priv.Use(mw.RequireUser())

			priv.Post("/apps", cfg.AppsDeploy)
			priv.Get("/apps", cfg.AppsList)
			priv.Get("/apps/{app}", cfg.AppsGet)
			priv.Patch("/apps/{app}", cfg.AppsUpdate)
			priv.Delete("/apps/{app}", cfg.AppsDelete)
			priv.Post("/apps/{app}/deploy", cfg.AppsRedeploy)
			priv.Post("/apps/{app}/star", cfg.AppsStar)
			priv.Get("/apps/{app}/access-log", cfg.AppsAccessLog)
		})
	})

	r.Group(func(v chi.Router) {
		v.Use(base)
		v.Get("/a/{app}", cfg.ViewerServe)
		v.Head("/a/{app}", cfg.ViewerServe)
		v.Get("/a/{app}/*", cfg.ViewerServe)
		v.Head("/a/{app}/*", cfg.ViewerServe)
	})

	return r
}
