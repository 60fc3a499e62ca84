package scanner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/soyunomas/dupesweep/internal/entities"
)

// Config define las reglas para el escaneo.
type Config struct {
	Fs          afero.Fs // nil = sistema de archivos real
	MinSize     uint64   // Tamaño mínimo en bytes para considerar
	ExcludeDirs []string // Nombres de carpeta a ignorar (sin distinguir mayúsculas)
	ExcludeExts []string // Extensiones a ignorar, con o sin punto
	SkipPaths   []string // Rutas absolutas a podar (ej: la carpeta de cuarentena)
}

// FileScanner encapsula la lógica de recorrido del sistema de archivos.
type FileScanner struct {
	cfg        Config
	fs         afero.Fs
	excludeMap map[string]struct{} // Optimización O(1)
	extMap     map[string]struct{}
	skipMap    map[string]struct{}
}

// New crea una nueva instancia del escáner con configuración.
func New(cfg Config) *FileScanner {
	fsys := cfg.Fs
	if fsys == nil {
		fsys = afero.NewOsFs()
	}

	// Pre-procesamos excludes a mapas para búsquedas instantáneas
	exMap := make(map[string]struct{}, len(cfg.ExcludeDirs))
	for _, e := range cfg.ExcludeDirs {
		if e = strings.TrimSpace(e); e != "" {
			exMap[strings.ToLower(e)] = struct{}{}
		}
	}

	extMap := make(map[string]struct{}, len(cfg.ExcludeExts))
	for _, e := range cfg.ExcludeExts {
		if ext := NormalizeExt(e); ext != "" {
			extMap[ext] = struct{}{}
		}
	}

	skipMap := make(map[string]struct{}, len(cfg.SkipPaths))
	for _, p := range cfg.SkipPaths {
		if p == "" {
			continue
		}
		abs, err := filepath.Abs(p)
		if err != nil {
			continue
		}
		skipMap[abs] = struct{}{}
		// Las rutas del recorrido salen de raíces ya resueltas
		if resolved, err := resolveLinks(fsys, abs); err == nil {
			skipMap[resolved] = struct{}{}
		}
	}

	return &FileScanner{
		cfg:        cfg,
		fs:         fsys,
		excludeMap: exMap,
		extMap:     extMap,
		skipMap:    skipMap,
	}
}

// resolveLinks sigue los symlinks de path en el disco real. afero.Walk hace
// Lstat de la raíz y no desciende por un enlace, así que una raíz enlazada
// (ej: /tmp en macOS) quedaría vacía. Otros Fs no tienen symlinks.
func resolveLinks(fsys afero.Fs, path string) (string, error) {
	if _, ok := fsys.(*afero.OsFs); !ok {
		return path, nil
	}
	return filepath.EvalSymlinks(path)
}

// NormalizeExt lleva ".JPG", "jpg" y " .jpg " a ".jpg".
func NormalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext == "" {
		return ""
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

// Enumerate recorre cada raíz y devuelve las rutas de archivos regulares que
// pasan los filtros. Una raíz inválida se reporta y se omite; si ninguna raíz
// es escaneable devuelve entities.ErrNoScannableRoots.
func (s *FileScanner) Enumerate(ctx context.Context, roots []string) ([]string, []*entities.Error, error) {
	var (
		paths   []string
		errs    []*entities.Error
		scanned int
	)
	// Raíces solapadas no deben producir la misma ruta dos veces
	seen := make(map[string]struct{})

	for _, root := range roots {
		abs, err := filepath.Abs(root)
		if err != nil {
			errs = append(errs, entities.NewError(entities.EnumerationError, root, err))
			continue
		}
		if abs, err = resolveLinks(s.fs, abs); err != nil {
			errs = append(errs, entities.NewError(entities.EnumerationError, root, err))
			continue
		}

		info, err := s.fs.Stat(abs)
		if err != nil {
			errs = append(errs, entities.NewError(entities.EnumerationError, abs, err))
			continue
		}
		if !info.IsDir() {
			errs = append(errs, entities.NewError(entities.EnumerationError, abs, fmt.Errorf("not a directory")))
			continue
		}
		scanned++

		err = afero.Walk(s.fs, abs, func(path string, info os.FileInfo, err error) error {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}

			// 1. Errores de acceso (permisos, etc): se reportan y seguimos
			if err != nil {
				errs = append(errs, entities.NewError(entities.EnumerationError, path, err))
				if info != nil && info.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}

			if _, skip := s.skipMap[path]; skip {
				if info.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}

			// 2. Directorios excluidos (coincidencia exacta del segmento)
			if info.IsDir() {
				if path != abs {
					if _, ok := s.excludeMap[strings.ToLower(info.Name())]; ok {
						return filepath.SkipDir
					}
				}
				return nil
			}

			// 3. Solo archivos regulares (nada de symlinks, sockets, etc)
			if !info.Mode().IsRegular() {
				return nil
			}

			// 4. Filtros de extensión y tamaño
			if _, ok := s.extMap[strings.ToLower(filepath.Ext(info.Name()))]; ok {
				return nil
			}
			if info.Size() < 0 || uint64(info.Size()) < s.cfg.MinSize {
				return nil
			}

			if _, dup := seen[path]; dup {
				return nil
			}
			seen[path] = struct{}{}
			paths = append(paths, path)
			return nil
		})
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return paths, errs, err
			}
			errs = append(errs, entities.NewError(entities.EnumerationError, abs, err))
		}
	}

	if scanned == 0 {
		return nil, errs, entities.ErrNoScannableRoots
	}
	return paths, errs, nil
}
