package viewer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/internalhub/internal/content"
	"github.com/dropDatabas3/internalhub/internal/domain/repository"
	svc "github.com/dropDatabas3/internalhub/internal/http/services/viewer"
	"github.com/dropDatabas3/internalhub/internal/storage"
)

// stubService deja fijar el resultado de Serve para probar cómo el
// controller traduce cada error a HTTP.
type stubService struct {
	app      *repository.App
	serveErr error
}

func (s *stubService) App(ctx context.Context, idOrSlug string) (*repository.App, error) {
	return s.app, nil
}

func (s *stubService) Authorize(ctx context.Context, app *repository.App, user *repository.User, cookies svc.CookieReader) svc.Decision {
	return svc.Decision{Allowed: true, Method: "public"}
}

func (s *stubService) Challenge(ctx context.Context, app *repository.App, password string) (*svc.Grant, error) {
	return nil, svc.ErrNoPasswordGate
}

func (s *stubService) Serve(ctx context.Context, app *repository.App, requestPath string) (*content.Asset, error) {
	return nil, s.serveErr
}

func (s *stubService) LogAccess(ctx context.Context, app *repository.App, d svc.Decision) {}

func serveThrough(t *testing.T, serveErr error, path string) *httptest.ResponseRecorder {
	t.Helper()
	c := New(&stubService{
		app:      &repository.App{ID: "a1", Slug: "demo", Status: repository.AppStatusPublished},
		serveErr: serveErr,
	}, "http://hub.test")

	r := chi.NewRouter()
	r.Get("/a/{app}", c.Serve)
	r.Get("/a/{app}/*", c.Serve)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestServe_TraversalRespondsForbidden(t *testing.T) {
	rec := serveThrough(t, storage.ErrTraversal, "/a/demo/assets/x.css")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "invalid_path", body["error"])
}

func TestServe_EmptyAppIsDistinguishable(t *testing.T) {
	rec := serveThrough(t, content.ErrEmptyApp, "/a/demo")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "empty_app", body["error"])
}

func TestServe_MissingFileIsPlainNotFound(t *testing.T) {
	rec := serveThrough(t, storage.ErrNotFound, "/a/demo/nope.html")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
