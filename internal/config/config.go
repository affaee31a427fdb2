package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	// Bloque app (opcional en YAML). Si no está, queda vacío.
	App struct {
		// dev | staging | prod
		Env string `yaml:"app_env"`
	} `yaml:"app"`

	Server struct {
		Addr               string   `yaml:"addr"`
		BaseURL            string   `yaml:"base_url"`
		CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`
	} `yaml:"server"`

	Store struct {
		// pg | sqlite | fs
		Driver string `yaml:"driver"`
		DSN    string `yaml:"dsn"`
		SQLite struct {
			Path string `yaml:"path"`
		} `yaml:"sqlite"`
		FS struct {
			Root string `yaml:"root"`
		} `yaml:"fs"`
		Postgres struct {
			MaxConns int `yaml:"max_conns"`
		} `yaml:"postgres"`
	} `yaml:"store"`

	Uploads struct {
		Root string `yaml:"root"`
		// Límites del pipeline de deploy (guardas anti-DoS en extracción)
		MaxUploadBytes    int64 `yaml:"max_upload_bytes"`
		MaxExtractedBytes int64 `yaml:"max_extracted_bytes"`
		MaxFileCount      int   `yaml:"max_file_count"`
	} `yaml:"uploads"`

	Cache struct {
		Kind  string `yaml:"kind"` // memory | redis
		Redis struct {
			Addr   string `yaml:"addr"`
			DB     int    `yaml:"db"`
			Prefix string `yaml:"prefix"`
		} `yaml:"redis"`
		Memory struct {
			DefaultTTL string `yaml:"default_ttl"`
		} `yaml:"memory"`
	} `yaml:"cache"`

	Auth struct {
		// Secret HMAC para firmar session y gate grants. Obligatorio.
		SigningSecret string `yaml:"signing_secret"`
		Session       struct {
			CookieName string `yaml:"cookie_name"`
			Domain     string `yaml:"domain"`
			SameSite   string `yaml:"samesite"`
			Secure     bool   `yaml:"secure"`
			TTL        string `yaml:"ttl"`
		} `yaml:"session"`
		Magic struct {
			TTL time.Duration `yaml:"ttl"`
		} `yaml:"magic"`
		Grants struct {
			PasswordTTL time.Duration `yaml:"password_ttl"`
			EmailTTL    time.Duration `yaml:"email_ttl"`
		} `yaml:"grants"`
	} `yaml:"auth"`

	Rate struct {
		Enabled bool `yaml:"enabled"`

		Challenge struct {
			Limit  int    `yaml:"limit"`
			Window string `yaml:"window"`
		} `yaml:"challenge"`

		MagicLink struct {
			Limit  int    `yaml:"limit"`
			Window string `yaml:"window"`
		} `yaml:"magic_link"`
	} `yaml:"rate"`

	SMTP struct {
		Host               string `yaml:"host"`
		Port               int    `yaml:"port"`
		Username           string `yaml:"username"`
		Password           string `yaml:"password"`
		From               string `yaml:"from"`
		TLS                string `yaml:"tls"`                  // auto | starttls | ssl | none
		InsecureSkipVerify bool   `yaml:"insecure_skip_verify"` // sólo dev
	} `yaml:"smtp"`

	Email struct {
		DebugEchoLinks bool `yaml:"debug_echo_links"`
	} `yaml:"email"`
}

func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}

	// sane defaults
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.BaseURL == "" {
		c.Server.BaseURL = "http://localhost:8080"
	}
	if c.Store.Driver == "" {
		c.Store.Driver = "fs"
	}
	if c.Store.FS.Root == "" {
		c.Store.FS.Root = "./data/internalhub"
	}
	if c.Store.SQLite.Path == "" {
		c.Store.SQLite.Path = "./data/internalhub.db"
	}
	if c.Uploads.Root == "" {
		c.Uploads.Root = "./data/uploads"
	}
	if c.Uploads.MaxUploadBytes == 0 {
		c.Uploads.MaxUploadBytes = 64 << 20 // 64MB
	}
	if c.Uploads.MaxExtractedBytes == 0 {
		c.Uploads.MaxExtractedBytes = 256 << 20
	}
	if c.Uploads.MaxFileCount == 0 {
		c.Uploads.MaxFileCount = 2000
	}
	if c.Cache.Kind == "" {
		c.Cache.Kind = "memory"
	}
	if c.Cache.Memory.DefaultTTL == "" {
		c.Cache.Memory.DefaultTTL = "2m"
	}
	if c.Auth.Session.CookieName == "" {
		c.Auth.Session.CookieName = "hub_session"
	}
	if c.Auth.Session.SameSite == "" {
		c.Auth.Session.SameSite = "Lax"
	}
	if c.Auth.Session.TTL == "" {
		c.Auth.Session.TTL = "720h" // 30d
	}
	if c.Auth.Magic.TTL == 0 {
		c.Auth.Magic.TTL = 15 * time.Minute
	}
	if c.Auth.Grants.PasswordTTL == 0 {
		c.Auth.Grants.PasswordTTL = 24 * time.Hour
	}
	if c.Auth.Grants.EmailTTL == 0 {
		c.Auth.Grants.EmailTTL = 24 * time.Hour
	}
	// Rate limit defaults
	if c.Rate.Challenge.Limit == 0 {
		c.Rate.Challenge.Limit = 10
	}
	if c.Rate.Challenge.Window == "" {
		c.Rate.Challenge.Window = "1m"
	}
	if c.Rate.MagicLink.Limit == 0 {
		c.Rate.MagicLink.Limit = 5
	}
	if c.Rate.MagicLink.Window == "" {
		c.Rate.MagicLink.Window = "10m"
	}
	// SMTP defaults
	if c.SMTP.TLS == "" {
		c.SMTP.TLS = "auto"
	}

	// Overrides por env + salvaguarda prod
	c.applyEnvOverrides()

	// validate string durations
	for _, d := range []string{
		c.Auth.Session.TTL,
		c.Rate.Challenge.Window,
		c.Rate.MagicLink.Window,
		c.Cache.Memory.DefaultTTL,
	} {
		if d == "" {
			continue
		}
		if _, err := time.ParseDuration(d); err != nil {
			return nil, err
		}
	}

	if strings.TrimSpace(c.Auth.SigningSecret) == "" {
		return nil, fmt.Errorf("config: auth.signing_secret is required (env AUTH_SIGNING_SECRET)")
	}
	if len(c.Auth.SigningSecret) < 32 {
		return nil, fmt.Errorf("config: auth.signing_secret must be at least 32 bytes")
	}

	// Guardia dura: en prod NUNCA exponemos los magic links por headers.
	if strings.EqualFold(c.App.Env, "prod") {
		c.Email.DebugEchoLinks = false
	}

	// Normalizar uploads root (si relativo) respecto al directorio del YAML
	if p := strings.TrimSpace(c.Uploads.Root); p != "" && !filepath.IsAbs(p) && !strings.HasPrefix(p, "./") {
		base := filepath.Dir(path)
		c.Uploads.Root = filepath.Clean(filepath.Join(base, p))
	}

	return &c, nil
}

// SessionTTL devuelve el TTL de sesión ya parseado.
func (c *Config) SessionTTL() time.Duration {
	d, err := time.ParseDuration(c.Auth.Session.TTL)
	if err != nil || d <= 0 {
		return 720 * time.Hour
	}
	return d
}

// ---- Helpers env ----

func getEnvStr(key string) (string, bool) {
	v := os.Getenv(key)
	return v, v != ""
}
func getEnvInt(key string) (int, bool) {
	if s, ok := getEnvStr(key); ok {
		if i, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return i, true
		}
	}
	return 0, false
}
func getEnvInt64(key string) (int64, bool) {
	if s, ok := getEnvStr(key); ok {
		if i, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64); err == nil {
			return i, true
		}
	}
	return 0, false
}
func getEnvBool(key string) (bool, bool) {
	if s, ok := getEnvStr(key); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(s)); err == nil {
			return b, true
		}
	}
	return false, false
}
func getEnvDur(key string) (time.Duration, bool) {
	if s, ok := getEnvStr(key); ok {
		if d, err := time.ParseDuration(strings.TrimSpace(s)); err == nil {
			return d, true
		}
	}
	return 0, false
}
func getEnvCSV(key string) ([]string, bool) {
	if s, ok := getEnvStr(key); ok {
		if strings.TrimSpace(s) == "" {
			return []string{}, true
		}
		parts := strings.Split(s, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				out = append(out, p)
			}
		}
		return out, true
	}
	return nil, false
}

// applyEnvOverrides: pisa config.yaml con variables de entorno.
func (c *Config) applyEnvOverrides() {
	// APP
	if v, ok := getEnvStr("APP_ENV"); ok {
		c.App.Env = strings.ToLower(v)
	}

	// SERVER
	if v, ok := getEnvStr("SERVER_ADDR"); ok {
		c.Server.Addr = v
	}
	if v, ok := getEnvStr("SERVER_BASE_URL"); ok {
		c.Server.BaseURL = v
	}
	if v, ok := getEnvCSV("SERVER_CORS_ALLOWED_ORIGINS"); ok {
		c.Server.CORSAllowedOrigins = v
	}

	// STORE
	if v, ok := getEnvStr("STORE_DRIVER"); ok {
		c.Store.Driver = v
	}
	if v, ok := getEnvStr("STORE_DSN"); ok {
		c.Store.DSN = v
	}
	if v, ok := getEnvStr("SQLITE_PATH"); ok {
		c.Store.SQLite.Path = v
	}
	if v, ok := getEnvStr("STORE_FS_ROOT"); ok {
		c.Store.FS.Root = v
	}
	if v, ok := getEnvInt("POSTGRES_MAX_CONNS"); ok {
		c.Store.Postgres.MaxConns = v
	}

	// UPLOADS
	if v, ok := getEnvStr("UPLOADS_ROOT"); ok {
		c.Uploads.Root = v
	}
	if v, ok := getEnvInt64("UPLOADS_MAX_UPLOAD_BYTES"); ok {
		c.Uploads.MaxUploadBytes = v
	}
	if v, ok := getEnvInt64("UPLOADS_MAX_EXTRACTED_BYTES"); ok {
		c.Uploads.MaxExtractedBytes = v
	}
	if v, ok := getEnvInt("UPLOADS_MAX_FILE_COUNT"); ok {
		c.Uploads.MaxFileCount = v
	}

	// CACHE
	if v, ok := getEnvStr("CACHE_KIND"); ok {
		c.Cache.Kind = v
	}
	if v, ok := getEnvStr("REDIS_ADDR"); ok {
		c.Cache.Redis.Addr = v
	}
	if v, ok := getEnvInt("REDIS_DB"); ok {
		c.Cache.Redis.DB = v
	}
	if v, ok := getEnvStr("REDIS_PREFIX"); ok {
		c.Cache.Redis.Prefix = v
	}
	if v, ok := getEnvStr("CACHE_MEMORY_DEFAULT_TTL"); ok {
		c.Cache.Memory.DefaultTTL = v
	}

	// AUTH
	if v, ok := getEnvStr("AUTH_SIGNING_SECRET"); ok {
		c.Auth.SigningSecret = v
	}
	if v, ok := getEnvStr("AUTH_SESSION_COOKIE_NAME"); ok {
		c.Auth.Session.CookieName = v
	}
	if v, ok := getEnvStr("AUTH_SESSION_DOMAIN"); ok {
		c.Auth.Session.Domain = v
	}
	if v, ok := getEnvStr("AUTH_SESSION_SAMESITE"); ok {
		c.Auth.Session.SameSite = v
	}
	if v, ok := getEnvBool("AUTH_SESSION_SECURE"); ok {
		c.Auth.Session.Secure = v
	}
	if v, ok := getEnvStr("AUTH_SESSION_TTL"); ok {
		c.Auth.Session.TTL = v
	}
	if v, ok := getEnvDur("AUTH_MAGIC_TTL"); ok {
		c.Auth.Magic.TTL = v
	}
	if v, ok := getEnvDur("AUTH_GRANT_PASSWORD_TTL"); ok {
		c.Auth.Grants.PasswordTTL = v
	}
	if v, ok := getEnvDur("AUTH_GRANT_EMAIL_TTL"); ok {
		c.Auth.Grants.EmailTTL = v
	}

	// RATE
	if v, ok := getEnvBool("RATE_ENABLED"); ok {
		c.Rate.Enabled = v
	}
	if v, ok := getEnvInt("RATE_CHALLENGE_LIMIT"); ok {
		c.Rate.Challenge.Limit = v
	}
	if v, ok := getEnvStr("RATE_CHALLENGE_WINDOW"); ok {
		c.Rate.Challenge.Window = v
	}
	if v, ok := getEnvInt("RATE_MAGIC_LINK_LIMIT"); ok {
		c.Rate.MagicLink.Limit = v
	}
	if v, ok := getEnvStr("RATE_MAGIC_LINK_WINDOW"); ok {
		c.Rate.MagicLink.Window = v
	}

	// SMTP
	if v, ok := getEnvStr("SMTP_HOST"); ok {
		c.SMTP.Host = v
	}
	if v, ok := getEnvInt("SMTP_PORT"); ok {
		c.SMTP.Port = v
	}
	if v, ok := getEnvStr("SMTP_USERNAME"); ok {
		c.SMTP.Username = v
	}
	if v, ok := getEnvStr("SMTP_PASSWORD"); ok {
		c.SMTP.Password = v
	}
	if v, ok := getEnvStr("SMTP_FROM"); ok {
		c.SMTP.From = v
	}
	if v, ok := getEnvStr("SMTP_TLS"); ok {
		c.SMTP.TLS = strings.ToLower(v)
	}
	if v, ok := getEnvBool("SMTP_INSECURE_SKIP_VERIFY"); ok {
		c.SMTP.InsecureSkipVerify = v
	}

	// EMAIL
	if v, ok := getEnvBool("EMAIL_DEBUG_LINKS"); ok {
		c.Email.DebugEchoLinks = v
	}
}
