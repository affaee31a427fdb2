package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/dropDatabas3/internalhub/internal/access/gate"
	"github.com/dropDatabas3/internalhub/internal/bundle"
	"github.com/dropDatabas3/internalhub/internal/cache"
	"github.com/dropDatabas3/internalhub/internal/config"
	"github.com/dropDatabas3/internalhub/internal/email"
	httpapi "github.com/dropDatabas3/internalhub/internal/http"
	accessctl "github.com/dropDatabas3/internalhub/internal/http/controllers/access"
	appsctl "github.com/dropDatabas3/internalhub/internal/http/controllers/apps"
	authctl "github.com/dropDatabas3/internalhub/internal/http/controllers/auth"
	healthctl "github.com/dropDatabas3/internalhub/internal/http/controllers/health"
	viewerctl "github.com/dropDatabas3/internalhub/internal/http/controllers/viewer"
	mw "github.com/dropDatabas3/internalhub/internal/http/middlewares"
	appsvc "github.com/dropDatabas3/internalhub/internal/http/services/apps"
	authsvc "github.com/dropDatabas3/internalhub/internal/http/services/auth"
	viewersvc "github.com/dropDatabas3/internalhub/internal/http/services/viewer"
	"github.com/dropDatabas3/internalhub/internal/content"
	"github.com/dropDatabas3/internalhub/internal/observability/logger"
	"github.com/dropDatabas3/internalhub/internal/rate"
	"github.com/dropDatabas3/internalhub/internal/signing"
	"github.com/dropDatabas3/internalhub/internal/storage"
	"github.com/dropDatabas3/internalhub/internal/store"

	// Los adapters se registran vía init().
	_ "github.com/dropDatabas3/internalhub/internal/store/adapters/fs"
	_ "github.com/dropDatabas3/internalhub/internal/store/adapters/pg"
	_ "github.com/dropDatabas3/internalhub/internal/store/adapters/sqlite"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "internalhub:", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	cfgPath := flag.String("config", envOr("CONFIG_PATH", "config.yaml"), "ruta al YAML de configuración")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		return err
	}

	logger.Init(logger.Config{
		Env:         cfg.App.Env,
		Level:       envOr("LOG_LEVEL", "info"),
		ServiceName: "internalhub",
	})
	defer logger.Sync()
	log := logger.L()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ─── store ───
	conn, err := store.OpenAdapter(ctx, store.AdapterConfig{
		Name:       cfg.Store.Driver,
		DSN:        cfg.Store.DSN,
		SQLitePath: cfg.Store.SQLite.Path,
		FSRoot:     cfg.Store.FS.Root,
		MaxConns:   cfg.Store.Postgres.MaxConns,
	})
	if err != nil {
		return fmt.Errorf("store: %w", err)
	}
	defer conn.Close()
	log.Info("store ready", logger.String("driver", cfg.Store.Driver))

	// ─── storage de bundles ───
	backend, err := storage.NewLocal(cfg.Uploads.Root)
	if err != nil {
		return fmt.Errorf("storage: %w", err)
	}

	// ─── cache ───
	cacheClient, err := cache.New(cache.Config{
		Driver: cfg.Cache.Kind,
		Addr:   cfg.Cache.Redis.Addr,
		DB:     cfg.Cache.Redis.DB,
		Prefix: cfg.Cache.Redis.Prefix,
	})
	if err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	defer cacheClient.Close()

	// ─── auth plumbing ───
	signer := signing.New(cfg.Auth.SigningSecret)
	gateManager := gate.NewManager(signer, cfg.Auth.Grants.PasswordTTL, cfg.Auth.Grants.EmailTTL)

	var sender email.Sender
	if cfg.SMTP.Host != "" {
		s := email.NewSMTPSender(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.From,
			cfg.SMTP.Username, cfg.SMTP.Password, cfg.SMTP.TLS)
		s.InsecureSkipVerify = cfg.SMTP.InsecureSkipVerify
		sender = s
	} else {
		log.Warn("smtp sin configurar: los magic links sólo se loguean")
		sender = email.LogSender{}
	}

	// ─── services ───
	materializer := bundle.New(backend, bundle.Limits{
		MaxExtractedBytes: cfg.Uploads.MaxExtractedBytes,
		MaxFileCount:      cfg.Uploads.MaxFileCount,
	})

	appsService := appsvc.New(appsvc.Deps{
		Apps:         conn.Apps(),
		Stars:        conn.Stars(),
		AccessLog:    conn.AccessLog(),
		Backend:      backend,
		Materializer: materializer,
		Cache:        cacheClient,
	})
	authService := authsvc.New(authsvc.Deps{
		Users:     conn.Users(),
		Tokens:    conn.MagicTokens(),
		Apps:      conn.Apps(),
		Gate:      gateManager,
		Signer:    signer,
		Sender:    sender,
		BaseURL:   cfg.Server.BaseURL,
		MagicTTL:  cfg.Auth.Magic.TTL,
		EchoLinks: cfg.Email.DebugEchoLinks,
		Cookie: authsvc.CookieConfig{
			Name:     cfg.Auth.Session.CookieName,
			Domain:   cfg.Auth.Session.Domain,
			SameSite: parseSameSite(cfg.Auth.Session.SameSite),
			Secure:   cfg.Auth.Session.Secure,
			TTL:      cfg.SessionTTL(),
		},
	})
	viewerService := viewersvc.New(viewersvc.Deps{
		Apps:      appsService,
		Gate:      gateManager,
		Resolver:  content.NewResolver(backend),
		AccessLog: conn.AccessLog(),
	})

	// ─── métricas ───
	metricsHandler, err := httpapi.RegisterMetrics(prometheus.DefaultRegisterer)
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	// ─── controllers + router ───
	appsController := appsctl.New(appsService, cfg.Server.BaseURL, cfg.Uploads.MaxUploadBytes)
	authController := authctl.New(authService)
	accessController := accessctl.New(viewerService, cfg.Server.BaseURL)
	viewerController := viewerctl.New(viewerService, cfg.Server.BaseURL)
	healthController := healthctl.New(conn, cacheClient)

	handler := httpapi.NewRouter(httpapi.RouterConfig{
		Session: mw.SessionConfig{
			CookieName: cfg.Auth.Session.CookieName,
			Signer:     signer,
			Users:      conn.Users(),
		},
		CORSAllowedOrigins: cfg.Server.CORSAllowedOrigins,
		ChallengeLimiter:   buildLimiter(cfg, cacheClient, "challenge", cfg.Rate.Challenge.Limit, cfg.Rate.Challenge.Window),
		MagicLinkLimiter:   buildLimiter(cfg, cacheClient, "magiclink", cfg.Rate.MagicLink.Limit, cfg.Rate.MagicLink.Window),
		Metrics:            metricsHandler,

		Healthz: healthController.Healthz,
		Readyz:  healthController.Readyz,

		AuthMagicLink: authController.MagicLink,
		AuthVerify:    authController.Verify,
		AuthLogout:    authController.Logout,
		AuthMe:        authController.Me,

		AppsDeploy:    appsController.Deploy,
		AppsRedeploy:  appsController.Redeploy,
		AppsList:      appsController.List,
		AppsGet:       appsController.Get,
		AppsUpdate:    appsController.Update,
		AppsDelete:    appsController.Delete,
		AppsStar:      appsController.Star,
		AppsAccessLog: appsController.AccessLog,

		AccessInfo:      accessController.Info,
		AccessChallenge: accessController.Challenge,

		ViewerServe: viewerController.Serve,
	})

	// Limpieza periódica de magic tokens vencidos.
	go tokenJanitor(ctx, conn)

	return httpapi.Serve(ctx, cfg.Server.Addr, handler)
}

// buildLimiter arma un limiter sobre Redis si el cache es Redis, o en
// memoria si no. Devuelve nil (sin límite) cuando el rate está apagado.
func buildLimiter(cfg *config.Config, c cache.Client, name string, max int, window string) rate.Limiter {
	if !cfg.Rate.Enabled || max <= 0 {
		return nil
	}
	win, err := time.ParseDuration(window)
	if err != nil || win <= 0 {
		win = time.Minute
	}
	if raw := cache.RedisRaw(c); raw != nil {
		return rate.NewRedisLimiter(raw, "rate:"+name, max, win)
	}
	return rate.NewMemoryLimiter(max, win)
}

// tokenJanitor borra tokens vencidos cada hora.
func tokenJanitor(ctx context.Context, conn store.AdapterConnection) {
	t := time.NewTicker(time.Hour)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := conn.MagicTokens().DeleteExpired(ctx)
			if err != nil {
				logger.L().Warn("token cleanup failed", logger.Err(err))
				continue
			}
			if n > 0 {
				logger.L().Info("expired tokens removed", logger.Count(n))
			}
		}
	}
}

func parseSameSite(v string) http.SameSite {
	switch strings.ToLower(v) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
