package content

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/internalhub/internal/storage"
)

func publish(t *testing.T, files map[string]string) (*Resolver, *storage.Local) {
	t.Helper()
	backend, err := storage.NewLocal(t.TempDir())
	require.NoError(t, err)
	stage, err := backend.Stage()
	require.NoError(t, err)
	for rel, content := range files {
		p := filepath.Join(stage, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0644))
	}
	require.NoError(t, backend.Publish(stage, "app"))
	return NewResolver(backend), backend
}

func body(t *testing.T, a *Asset) string {
	t.Helper()
	defer a.Body.Close()
	b, err := io.ReadAll(a.Body)
	require.NoError(t, err)
	return string(b)
}

func TestResolve_RootPrefersIndexHTML(t *testing.T) {
	r, _ := publish(t, map[string]string{
		"about.html": "about",
		"index.html": "home",
	})
	a, err := r.Resolve("app", "/")
	require.NoError(t, err)
	assert.Equal(t, "index.html", a.Path)
	assert.Equal(t, "home", body(t, a))
	assert.Equal(t, "text/html; charset=utf-8", a.ContentType)
	assert.Equal(t, "no-cache", a.CacheControl)
}

func TestResolve_IndexIsCaseInsensitive(t *testing.T) {
	r, _ := publish(t, map[string]string{
		"Index.HTML": "home",
		"aaa.txt":    "x",
	})
	a, err := r.Resolve("app", "")
	require.NoError(t, err)
	assert.Equal(t, "Index.HTML", a.Path)
}

func TestResolve_PicksShallowestNestedIndex(t *testing.T) {
	// Sin index en la raíz gana el index.html menos profundo, aunque otro
	// más hondo lo preceda en orden de nombre.
	r, _ := publish(t, map[string]string{
		"a/b/index.html": "hondo",
		"z/index.html":   "cerca",
		"readme.txt":     "x",
	})
	a, err := r.Resolve("app", "")
	require.NoError(t, err)
	assert.Equal(t, "z/index.html", a.Path)
	assert.Equal(t, "cerca", body(t, a))
}

func TestResolve_FallsBackToFirstFileByName(t *testing.T) {
	r, _ := publish(t, map[string]string{
		"readme.md": "hi",
		"zeta.txt":  "z",
	})
	a, err := r.Resolve("app", "")
	require.NoError(t, err)
	assert.Equal(t, "readme.md", a.Path)
	assert.Equal(t, "text/markdown; charset=utf-8", a.ContentType)
}

func TestResolve_EmptyApp(t *testing.T) {
	backend, err := storage.NewLocal(t.TempDir())
	require.NoError(t, err)
	stage, err := backend.Stage()
	require.NoError(t, err)
	require.NoError(t, backend.Publish(stage, "app"))

	_, err = NewResolver(backend).Resolve("app", "")
	assert.ErrorIs(t, err, ErrEmptyApp)
}

func TestResolve_AssetCachePolicy(t *testing.T) {
	r, _ := publish(t, map[string]string{
		"index.html":   "home",
		"css/main.css": "body{}",
		"img/logo.png": "png",
		"data.bin":     "bin",
	})

	a, err := r.Resolve("app", "css/main.css")
	require.NoError(t, err)
	a.Body.Close()
	assert.Equal(t, "text/css; charset=utf-8", a.ContentType)
	assert.Equal(t, "public, max-age=3600", a.CacheControl)

	a, err = r.Resolve("app", "/img/logo.png")
	require.NoError(t, err)
	a.Body.Close()
	assert.Equal(t, "image/png", a.ContentType)

	a, err = r.Resolve("app", "data.bin")
	require.NoError(t, err)
	a.Body.Close()
	assert.Equal(t, "application/octet-stream", a.ContentType)
}

func TestResolve_DirectoryServesItsIndex(t *testing.T) {
	r, _ := publish(t, map[string]string{
		"index.html":      "home",
		"docs/index.html": "docs",
	})
	a, err := r.Resolve("app", "docs")
	require.NoError(t, err)
	assert.Equal(t, "docs/index.html", a.Path)
	assert.Equal(t, "docs", body(t, a))
}

func TestResolve_MissingFile(t *testing.T) {
	r, _ := publish(t, map[string]string{"index.html": "home"})
	_, err := r.Resolve("app", "nope.html")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestResolve_TraversalRejected(t *testing.T) {
	r, _ := publish(t, map[string]string{"index.html": "home"})
	_, err := r.Resolve("app", "../other/index.html")
	assert.ErrorIs(t, err, storage.ErrTraversal)
}
