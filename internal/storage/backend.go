// Package storage abstrae el backend donde viven los árboles de archivos
// de las apps. El materializer y el resolver son agnósticos del backend:
// local filesystem hoy, object storage con keys tipo path mañana.
//
// Cada app está confinada a su propio prefix bajo el root; ninguna
// operación puede leer ni escribir fuera de él.
package storage

import (
	"errors"
	"io"
	"time"
)

var (
	// ErrNotFound indica que el path pedido no existe bajo el prefix.
	ErrNotFound = errors.New("storage: not found")

	// ErrTraversal indica un intento de escape del prefix (path traversal).
	// Siempre se deniega; nunca se sanitiza "best effort".
	ErrTraversal = errors.New("storage: path escapes storage root")

	// ErrBadPrefix indica un prefix de app inválido (vacío, absoluto, o con "..").
	ErrBadPrefix = errors.New("storage: invalid app prefix")
)

// Info describe un entry resuelto.
type Info struct {
	Size    int64
	ModTime time.Time
	IsDir   bool
}

// Backend es el contrato de almacenamiento de bundles.
type Backend interface {
	// Stage crea un directorio de trabajo efímero donde el materializer
	// construye el árbol nuevo antes de publicarlo.
	Stage() (string, error)

	// Publish publica el stage dir como el árbol del prefix, reemplazando
	// atómicamente cualquier versión previa: un lector concurrente ve el
	// árbol viejo completo o el nuevo completo, nunca una mezcla.
	// Si falla, el árbol previo queda intacto.
	Publish(stage, prefix string) error

	// Discard elimina un stage dir no publicado. Best-effort.
	Discard(stage string)

	// List devuelve los paths relativos de todos los archivos bajo el
	// prefix, ordenados ascendente. Prefix inexistente ⇒ lista vacía.
	List(prefix string) ([]string, error)

	// Stat resuelve (prefix, rel) con canonicalización y confinamiento.
	Stat(prefix, rel string) (Info, error)

	// Open abre un archivo bajo el prefix para lectura.
	Open(prefix, rel string) (io.ReadCloser, Info, error)

	// Remove elimina el subtree completo del prefix.
	Remove(prefix string) error
}
