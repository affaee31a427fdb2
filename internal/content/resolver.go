// Package content resuelve rutas de petición a archivos publicados de una
// aplicación: elige el documento de entrada, fija el tipo MIME y la política
// de caché de cada respuesta.
package content

import (
	"errors"
	"io"
	"path"
	"strings"

	"github.com/dropDatabas3/internalhub/internal/storage"
)

// ErrEmptyApp indica que la aplicación no tiene ningún archivo publicado.
var ErrEmptyApp = errors.New("content: app has no files")

const (
	// Los documentos HTML se revalidan siempre: un redeploy debe verse al
	// instante. Los assets con nombre estable pueden cachearse una hora.
	cacheControlDocument = "no-cache"
	cacheControlAsset    = "public, max-age=3600"
)

// Asset es un archivo resuelto listo para servir. El llamador debe cerrar Body.
type Asset struct {
	Path         string
	ContentType  string
	CacheControl string
	Size         int64
	Body         io.ReadCloser
}

// Resolver sirve archivos de un backend de almacenamiento.
type Resolver struct {
	backend storage.Backend
}

func NewResolver(backend storage.Backend) *Resolver {
	return &Resolver{backend: backend}
}

// Resolve localiza el archivo que corresponde a requestPath dentro del árbol
// publicado bajo prefix. La ruta vacía (o "/") resuelve al documento de
// entrada; un directorio resuelve a su index.html.
func (r *Resolver) Resolve(prefix, requestPath string) (*Asset, error) {
	rel := strings.Trim(requestPath, "/")
	if rel == "" {
		entry, err := r.entryFile(prefix)
		if err != nil {
			return nil, err
		}
		rel = entry
	}

	rc, info, err := r.backend.Open(prefix, rel)
	if err != nil {
		return nil, err
	}
	if info.IsDir {
		rel = path.Join(rel, "index.html")
		rc, info, err = r.backend.Open(prefix, rel)
		if err != nil {
			return nil, err
		}
	}

	cc := cacheControlAsset
	if isHTML(rel) {
		cc = cacheControlDocument
	}
	return &Asset{
		Path:         rel,
		ContentType:  ContentTypeFor(rel),
		CacheControl: cc,
		Size:         info.Size,
		Body:         rc,
	}, nil
}

// entryFile elige el documento inicial: index.html en la raíz sin importar
// mayúsculas, después el index.html menos profundo del árbol (empates por
// nombre), y si no hay ninguno el primer archivo en orden de nombre.
func (r *Resolver) entryFile(prefix string) (string, error) {
	files, err := r.backend.List(prefix)
	if err != nil {
		return "", err
	}
	if len(files) == 0 {
		return "", ErrEmptyApp
	}
	for _, f := range files {
		if !strings.Contains(f, "/") && strings.EqualFold(f, "index.html") {
			return f, nil
		}
	}
	best := ""
	bestDepth := -1
	for _, f := range files {
		if !strings.EqualFold(path.Base(f), "index.html") {
			continue
		}
		depth := strings.Count(f, "/")
		if bestDepth < 0 || depth < bestDepth {
			best, bestDepth = f, depth
		}
	}
	if best != "" {
		return best, nil
	}
	return files[0], nil
}
