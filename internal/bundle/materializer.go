// Package bundle materializa un paquete subido (archivos sueltos o un zip)
// en el backend de almacenamiento, dejando el árbol publicado de forma
// atómica: o se ve la versión nueva completa o se sigue viendo la anterior.
package bundle

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/dropDatabas3/internalhub/internal/storage"
)

var (
	// ErrEmptyBundle indica que el paquete no contiene ningún archivo.
	ErrEmptyBundle = errors.New("bundle: empty bundle")
	// ErrInvalidFilename indica una ruta absoluta o con ".." dentro del paquete.
	ErrInvalidFilename = errors.New("bundle: invalid filename")
	// ErrTooManyFiles indica que el paquete supera el máximo de archivos permitido.
	ErrTooManyFiles = errors.New("bundle: too many files")
	// ErrTooLarge indica que el contenido extraído supera el presupuesto de bytes.
	ErrTooLarge = errors.New("bundle: extracted content too large")
	// ErrBadArchive indica un zip corrupto o ilegible.
	ErrBadArchive = errors.New("bundle: unreadable archive")
)

// Limits acota lo que un paquete puede materializar. Cero significa sin límite.
type Limits struct {
	MaxExtractedBytes int64
	MaxFileCount      int
}

// File es un archivo de entrada con su ruta relativa dentro del paquete.
type File struct {
	Path    string
	Content []byte
}

// Result resume lo materializado.
type Result struct {
	FileCount  int
	TotalBytes int64
	Flattened  bool
}

// Materializer escribe paquetes en un storage.Backend.
type Materializer struct {
	backend storage.Backend
	limits  Limits

	writeConcurrency int
}

func New(backend storage.Backend, limits Limits) *Materializer {
	return &Materializer{backend: backend, limits: limits, writeConcurrency: 8}
}

// Materialize despliega el paquete bajo prefix. Un único archivo cuyo nombre
// termina en .zip se trata como archivo comprimido y se extrae; cualquier
// otra entrada se copia tal cual conservando subdirectorios.
func (m *Materializer) Materialize(ctx context.Context, prefix string, files []File) (Result, error) {
	if len(files) == 0 {
		return Result{}, ErrEmptyBundle
	}
	if len(files) == 1 && strings.HasSuffix(strings.ToLower(files[0].Path), ".zip") {
		return m.materializeZip(ctx, prefix, files[0].Content)
	}
	return m.materializeRaw(ctx, prefix, files)
}

func (m *Materializer) materializeRaw(ctx context.Context, prefix string, files []File) (Result, error) {
	names := make([]string, len(files))
	var total int64
	for i, f := range files {
		rel, err := normalizeRel(f.Path)
		if err != nil {
			return Result{}, err
		}
		names[i] = rel
		total += int64(len(f.Content))
	}
	if err := m.checkBudget(len(files), total); err != nil {
		return Result{}, err
	}

	// Los archivos sueltos conservan sus rutas tal cual: el aplanado de
	// envoltorios aplica sólo a zips.
	stage, err := m.backend.Stage()
	if err != nil {
		return Result{}, fmt.Errorf("bundle: stage: %w", err)
	}

	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(m.writeConcurrency)
	for i := range files {
		i := i
		g.Go(func() error {
			return writeStaged(stage, names[i], bytes.NewReader(files[i].Content))
		})
	}
	if err := g.Wait(); err != nil {
		m.backend.Discard(stage)
		return Result{}, err
	}
	if err := m.backend.Publish(stage, prefix); err != nil {
		m.backend.Discard(stage)
		return Result{}, fmt.Errorf("bundle: publish: %w", err)
	}
	return Result{FileCount: len(files), TotalBytes: total}, nil
}

func (m *Materializer) materializeZip(ctx context.Context, prefix string, data []byte) (Result, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrBadArchive, err)
	}

	type entry struct {
		file *zip.File
		rel  string
	}
	var entries []entry
	var declared int64
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		rel, err := normalizeRel(f.Name)
		if err != nil {
			return Result{}, err
		}
		entries = append(entries, entry{file: f, rel: rel})
		declared += int64(f.UncompressedSize64)
	}
	if len(entries) == 0 {
		return Result{}, ErrEmptyBundle
	}
	if err := m.checkBudget(len(entries), declared); err != nil {
		return Result{}, err
	}

	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.rel
	}
	names, flattened := flatten(names)

	stage, err := m.backend.Stage()
	if err != nil {
		return Result{}, fmt.Errorf("bundle: stage: %w", err)
	}

	// Los tamaños declarados en la cabecera pueden mentir: se vuelve a
	// contar durante la copia contra el mismo presupuesto.
	var written int64
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(m.writeConcurrency)
	for i := range entries {
		i := i
		g.Go(func() error {
			rc, err := entries[i].file.Open()
			if err != nil {
				return fmt.Errorf("%w: %v", ErrBadArchive, err)
			}
			defer rc.Close()
			n, err := copyStaged(stage, names[i], rc)
			if err != nil {
				return err
			}
			if m.limits.MaxExtractedBytes > 0 && atomic.AddInt64(&written, n) > m.limits.MaxExtractedBytes {
				return ErrTooLarge
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		m.backend.Discard(stage)
		return Result{}, err
	}
	if err := m.backend.Publish(stage, prefix); err != nil {
		m.backend.Discard(stage)
		return Result{}, fmt.Errorf("bundle: publish: %w", err)
	}
	return Result{FileCount: len(entries), TotalBytes: atomic.LoadInt64(&written), Flattened: flattened}, nil
}

func (m *Materializer) checkBudget(count int, total int64) error {
	if m.limits.MaxFileCount > 0 && count > m.limits.MaxFileCount {
		return ErrTooManyFiles
	}
	if m.limits.MaxExtractedBytes > 0 && total > m.limits.MaxExtractedBytes {
		return ErrTooLarge
	}
	return nil
}

func writeStaged(stage, rel string, r io.Reader) error {
	_, err := copyStaged(stage, rel, r)
	return err
}

func copyStaged(stage, rel string, r io.Reader) (int64, error) {
	dst := filepath.Join(stage, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return 0, fmt.Errorf("bundle: mkdir: %w", err)
	}
	f, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return 0, fmt.Errorf("bundle: create: %w", err)
	}
	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return n, fmt.Errorf("bundle: write %s: %w", rel, err)
	}
	return n, nil
}

// normalizeRel limpia una ruta de entrada y la valida: relativa, sin ".."
// y con separadores "/". Los zips creados en Windows pueden traer "\".
func normalizeRel(name string) (string, error) {
	name = strings.ReplaceAll(name, `\`, "/")
	name = strings.TrimPrefix(name, "./")
	if name == "" || strings.HasPrefix(name, "/") {
		return "", ErrInvalidFilename
	}
	clean := path.Clean(name)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", ErrInvalidFilename
	}
	for _, seg := range strings.Split(clean, "/") {
		if seg == ".." {
			return "", ErrInvalidFilename
		}
	}
	return clean, nil
}

// flatten quita un envoltorio de directorio: si todas las rutas comparten el
// mismo directorio de primer nivel, ese único nivel se descarta. Así un zip
// con todo dentro de "myapp/" sirve igual que uno con los archivos en la
// raíz. Se quita exactamente un nivel; "a/b/index.html" queda "b/index.html".
func flatten(names []string) ([]string, bool) {
	top := ""
	for i, n := range names {
		slash := strings.IndexByte(n, '/')
		if slash < 0 {
			return names, false
		}
		if i == 0 {
			top = n[:slash]
			continue
		}
		if n[:slash] != top {
			return names, false
		}
	}
	for i, n := range names {
		names[i] = n[strings.IndexByte(n, '/')+1:]
	}
	return names, true
}
