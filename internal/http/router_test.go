package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/internalhub/internal/access/gate"
	"github.com/dropDatabas3/internalhub/internal/bundle"
	"github.com/dropDatabas3/internalhub/internal/cache"
	"github.com/dropDatabas3/internalhub/internal/content"
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
	"github.com/dropDatabas3/internalhub/internal/signing"
	"github.com/dropDatabas3/internalhub/internal/storage"
	"github.com/dropDatabas3/internalhub/internal/store"

	_ "github.com/dropDatabas3/internalhub/internal/store/adapters/fs"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	conn, err := store.OpenAdapter(context.Background(), store.AdapterConfig{
		Name:   "fs",
		FSRoot: t.TempDir(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	backend, err := storage.NewLocal(t.TempDir())
	require.NoError(t, err)

	cacheClient, err := cache.New(cache.Config{Driver: "memory"})
	require.NoError(t, err)

	signer := signing.New(testSecret)
	gateManager := gate.NewManager(signer, time.Hour, time.Hour)

	appsService := appsvc.New(appsvc.Deps{
		Apps:         conn.Apps(),
		Stars:        conn.Stars(),
		AccessLog:    conn.AccessLog(),
		Backend:      backend,
		Materializer: bundle.New(backend, bundle.Limits{}),
		Cache:        cacheClient,
	})
	authService := authsvc.New(authsvc.Deps{
		Users:     conn.Users(),
		Tokens:    conn.MagicTokens(),
		Apps:      conn.Apps(),
		Gate:      gateManager,
		Signer:    signer,
		Sender:    email.LogSender{},
		BaseURL:   "http://hub.test",
		MagicTTL:  15 * time.Minute,
		EchoLinks: true,
	})
	viewerService := viewersvc.New(viewersvc.Deps{
		Apps:      appsService,
		Gate:      gateManager,
		Resolver:  content.NewResolver(backend),
		AccessLog: conn.AccessLog(),
	})

	metricsHandler, err := httpapi.RegisterMetrics(prometheus.NewRegistry())
	require.NoError(t, err)

	appsController := appsctl.New(appsService, "http://hub.test", 0)
	authController := authctl.New(authService)
	accessController := accessctl.New(viewerService, "http://hub.test")
	viewerController := viewerctl.New(viewerService, "http://hub.test")
	healthController := healthctl.New(conn, cacheClient)

	handler := httpapi.NewRouter(httpapi.RouterConfig{
		Session: mw.SessionConfig{
			CookieName: "hub_session",
			Signer:     signer,
			Users:      conn.Users(),
		},
		Metrics: metricsHandler,

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

	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	return ts
}

// newClient arma un cliente con jar de cookies que no sigue redirects
// (los Location se verifican a mano).
func newClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

// login pide un magic link para email y lo consume, dejando la sesión en
// el jar del cliente.
func login(t *testing.T, ts *httptest.Server, c *http.Client, addr string) {
	t.Helper()

	body, _ := json.Marshal(map[string]string{"email": addr})
	resp, err := c.Post(ts.URL+"/api/auth/magic-link", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	var ml struct {
		Sent      bool   `json:"sent"`
		DebugLink string `json:"debug_link"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&ml))
	require.True(t, ml.Sent)
	require.NotEmpty(t, ml.DebugLink)

	u, err := url.Parse(ml.DebugLink)
	require.NoError(t, err)
	token := u.Query().Get("token")
	require.NotEmpty(t, token)

	resp, err = c.Get(ts.URL + "/auth/verify?token=" + url.QueryEscape(token))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
}

// deployApp sube un sitio mínimo y devuelve el slug.
func deployApp(t *testing.T, ts *httptest.Server, c *http.Client, name string) string {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.WriteField("name", name))
	for path, contents := range map[string]string{
		"index.html": "<h1>hola</h1>",
		"style.css":  "h1 { color: teal }",
	} {
		part, err := w.CreateFormFile("files", path)
		require.NoError(t, err)
		_, err = io.WriteString(part, contents)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	resp, err := c.Post(ts.URL+"/api/apps", w.FormDataContentType(), &buf)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var dr struct {
		App struct {
			Slug string `json:"slug"`
		} `json:"app"`
		FileCount int `json:"file_count"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&dr))
	assert.Equal(t, 2, dr.FileCount)
	require.NotEmpty(t, dr.App.Slug)
	return dr.App.Slug
}

func patchApp(t *testing.T, ts *httptest.Server, c *http.Client, slug string, payload map[string]any) {
	t.Helper()
	body, _ := json.Marshal(payload)
	req, err := http.NewRequest(http.MethodPatch, ts.URL+"/api/apps/"+slug, bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestLoginDeployAndPublicView(t *testing.T) {
	ts := newTestServer(t)
	owner := newClient(t)

	login(t, ts, owner, "ana@acme.dev")

	// La sesión quedó activa.
	resp, err := owner.Get(ts.URL + "/api/auth/me")
	require.NoError(t, err)
	var me struct {
		Email string `json:"email"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&me))
	resp.Body.Close()
	assert.Equal(t, "ana@acme.dev", me.Email)

	slug := deployApp(t, ts, owner, "Demo Site")

	// Draft: el owner la ve, un anónimo no sabe que existe.
	resp, err = owner.Get(ts.URL + "/a/" + slug)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	anon := newClient(t)
	resp, err = anon.Get(ts.URL + "/a/" + slug)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// Publicada como pública: entra cualquiera, con las cache policies
	// correctas por tipo de archivo.
	patchApp(t, ts, owner, slug, map[string]any{"status": "published", "access_type": "public"})

	resp, err = anon.Get(ts.URL + "/a/" + slug)
	require.NoError(t, err)
	b, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(b), "hola")
	assert.Equal(t, "no-cache", resp.Header.Get("Cache-Control"))

	resp, err = anon.Get(ts.URL + "/a/" + slug + "/style.css")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "public, max-age=3600", resp.Header.Get("Cache-Control"))
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/css")

	// Archivo inexistente dentro de una app válida.
	resp, err = anon.Get(ts.URL + "/a/" + slug + "/nope.js")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestPasswordGateFlow(t *testing.T) {
	ts := newTestServer(t)
	owner := newClient(t)
	login(t, ts, owner, "ana@acme.dev")
	slug := deployApp(t, ts, owner, "Secret Site")
	patchApp(t, ts, owner, slug, map[string]any{
		"status":          "published",
		"access_type":     "password",
		"access_password": "hunter2",
	})

	anon := newClient(t)

	// Sin grant: 401 con el motivo.
	resp, err := anon.Get(ts.URL + "/a/" + slug)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// Una navegación de browser va a la página de gate.
	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/a/"+slug, nil)
	req.Header.Set("Accept", "text/html")
	resp, err = anon.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "http://hub.test/gate/"+slug, resp.Header.Get("Location"))

	// El endpoint de info describe el gate sin revelar la password.
	resp, err = anon.Get(ts.URL + "/api/access/" + slug)
	require.NoError(t, err)
	var info struct {
		AccessType string `json:"access_type"`
		Granted    bool   `json:"granted"`
		Reason     string `json:"reason"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&info))
	resp.Body.Close()
	assert.Equal(t, "password", info.AccessType)
	assert.False(t, info.Granted)
	assert.Equal(t, "password_required", info.Reason)

	// Challenge con password incorrecta.
	body, _ := json.Marshal(map[string]string{"password": "nope"})
	resp, err = anon.Post(ts.URL+"/api/access/"+slug+"/challenge", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// Con la correcta: cookie de grant y acceso.
	body, _ = json.Marshal(map[string]string{"password": "hunter2"})
	resp, err = anon.Post(ts.URL+"/api/access/"+slug+"/challenge", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = anon.Get(ts.URL + "/a/" + slug)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestEmailListGateFlow(t *testing.T) {
	ts := newTestServer(t)
	owner := newClient(t)
	login(t, ts, owner, "ana@acme.dev")
	slug := deployApp(t, ts, owner, "Team Site")
	patchApp(t, ts, owner, slug, map[string]any{
		"status":        "published",
		"access_type":   "email_list",
		"access_emails": []string{"carla@acme.dev"},
	})

	// Un email fuera de la lista no recibe link para esta app.
	anon := newClient(t)
	body, _ := json.Marshal(map[string]string{"email": "bob@acme.dev", "app_slug": slug})
	resp, err := anon.Post(ts.URL+"/api/auth/magic-link", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	// Un usuario logueado con email en la lista entra directo.
	carla := newClient(t)
	login(t, ts, carla, "carla@acme.dev")
	resp, err = carla.Get(ts.URL + "/a/" + slug)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// Y uno fuera de la lista no, aunque esté logueado.
	bob := newClient(t)
	login(t, ts, bob, "bob@acme.dev")
	resp, err = bob.Get(ts.URL + "/a/" + slug)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	// El owner ve a carla en el access log.
	resp, err = owner.Get(ts.URL + "/api/apps/" + slug + "/access-log")
	require.NoError(t, err)
	var al struct {
		Entries []struct {
			Email  string `json:"email"`
			Method string `json:"method"`
		} `json:"entries"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&al))
	resp.Body.Close()
	require.NotEmpty(t, al.Entries)
	assert.Equal(t, "carla@acme.dev", al.Entries[0].Email)
	assert.Equal(t, "email", al.Entries[0].Method)
}

func TestAppScopedMagicLinkGrantsAccess(t *testing.T) {
	ts := newTestServer(t)
	owner := newClient(t)
	login(t, ts, owner, "ana@acme.dev")
	slug := deployApp(t, ts, owner, "Scoped Site")
	patchApp(t, ts, owner, slug, map[string]any{
		"status":        "published",
		"access_type":   "email_list",
		"access_emails": []string{"dana@acme.dev"},
	})

	dana := newClient(t)
	body, _ := json.Marshal(map[string]string{"email": "dana@acme.dev", "app_slug": slug})
	resp, err := dana.Post(ts.URL+"/api/auth/magic-link", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	var ml struct {
		DebugLink string `json:"debug_link"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&ml))
	resp.Body.Close()

	u, err := url.Parse(ml.DebugLink)
	require.NoError(t, err)
	resp, err = dana.Get(ts.URL + "/auth/verify?token=" + url.QueryEscape(u.Query().Get("token")))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	// Redirige directo a la app que motivó el link.
	assert.Equal(t, "/a/"+slug, resp.Header.Get("Location"))

	resp, err = dana.Get(ts.URL + "/a/" + slug)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// El link es single-use.
	resp, err = dana.Get(ts.URL + "/auth/verify?token=" + url.QueryEscape(u.Query().Get("token")))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestStarAndList(t *testing.T) {
	ts := newTestServer(t)
	owner := newClient(t)
	login(t, ts, owner, "ana@acme.dev")
	slug := deployApp(t, ts, owner, "Starrable")
	patchApp(t, ts, owner, slug, map[string]any{"status": "published"})

	resp, err := owner.Post(ts.URL+"/api/apps/"+slug+"/star", "application/json", nil)
	require.NoError(t, err)
	var sr struct {
		Starred   bool `json:"starred"`
		StarCount int  `json:"star_count"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&sr))
	resp.Body.Close()
	assert.True(t, sr.Starred)
	assert.Equal(t, 1, sr.StarCount)

	resp, err = owner.Get(ts.URL + "/api/apps?starred=true")
	require.NoError(t, err)
	var lr struct {
		Apps []struct {
			Slug      string `json:"slug"`
			IsStarred bool   `json:"is_starred"`
		} `json:"apps"`
		Total int `json:"total"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&lr))
	resp.Body.Close()
	require.Equal(t, 1, lr.Total)
	assert.Equal(t, slug, lr.Apps[0].Slug)
	assert.True(t, lr.Apps[0].IsStarred)
}

func TestDeleteRemovesAppAndFiles(t *testing.T) {
	ts := newTestServer(t)
	owner := newClient(t)
	login(t, ts, owner, "ana@acme.dev")
	slug := deployApp(t, ts, owner, "Ephemeral")
	patchApp(t, ts, owner, slug, map[string]any{"status": "published", "access_type": "public"})

	req, _ := http.NewRequest(http.MethodDelete, ts.URL+"/api/apps/"+slug, nil)
	resp, err := owner.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, err = owner.Get(ts.URL + "/a/" + slug)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestOnlyOwnerCanMutate(t *testing.T) {
	ts := newTestServer(t)
	owner := newClient(t)
	login(t, ts, owner, "ana@acme.dev")
	slug := deployApp(t, ts, owner, "Guarded")
	patchApp(t, ts, owner, slug, map[string]any{"status": "published"})

	other := newClient(t)
	login(t, ts, other, "mallory@acme.dev")

	body, _ := json.Marshal(map[string]string{"name": "Hijacked"})
	req, _ := http.NewRequest(http.MethodPatch, ts.URL+"/api/apps/"+slug, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := other.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	req, _ = http.NewRequest(http.MethodDelete, ts.URL+"/api/apps/"+slug, nil)
	resp, err = other.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	// Sin sesión, la API privada directamente rebota.
	anon := newClient(t)
	resp, err = anon.Get(ts.URL + "/api/apps")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHealthEndpoints(t *testing.T) {
	ts := newTestServer(t)
	c := newClient(t)

	for _, path := range []string{"/healthz", "/readyz"} {
		resp, err := c.Get(ts.URL + path)
		require.NoError(t, err)
		b, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
		assert.Contains(t, string(b), `"ok"`, path)
	}
}

func TestRedeployReplacesTree(t *testing.T) {
	ts := newTestServer(t)
	owner := newClient(t)
	login(t, ts, owner, "ana@acme.dev")
	slug := deployApp(t, ts, owner, "Rolling")
	patchApp(t, ts, owner, slug, map[string]any{"status": "published", "access_type": "public"})

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("files", "index.html")
	require.NoError(t, err)
	_, err = io.WriteString(part, "<h1>v2</h1>")
	require.NoError(t, err)
	require.NoError(t, w.Close())

	resp, err := owner.Post(ts.URL+"/api/apps/"+slug+"/deploy", w.FormDataContentType(), &buf)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	anon := newClient(t)
	resp, err = anon.Get(ts.URL + "/a/" + slug)
	require.NoError(t, err)
	b, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Contains(t, string(b), "v2")

	// El css del deploy anterior ya no existe.
	resp, err = anon.Get(ts.URL + "/a/" + slug + "/style.css")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
