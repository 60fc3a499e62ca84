package resolver

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/soyunomas/dupesweep/internal/entities"
	"github.com/soyunomas/dupesweep/internal/logging"
	"github.com/soyunomas/dupesweep/internal/metrics"
)

// MaxCollisions acota la búsqueda de un nombre libre en cuarentena.
const MaxCollisions = 100000

// Mode es el destino de los duplicados.
type Mode int

const (
	ModeDelete     Mode = iota // Borrado permanente, sin papelera
	ModeQuarantine             // Mover a una carpeta de cuarentena
)

func (m Mode) String() string {
	switch m {
	case ModeDelete:
		return "delete"
	case ModeQuarantine:
		return "quarantine"
	default:
		return "unknown"
	}
}

// Options configura el Resolver.
type Options struct {
	Mode    Mode
	Dest    string // Obligatorio en ModeQuarantine
	Logger  *zap.Logger
	Metrics *metrics.Collector
}

// Resolver ejecuta las disposiciones. Nunca recibe ni toca el original.
type Resolver struct {
	mode    Mode
	dest    string
	log     *zap.Logger
	metrics *metrics.Collector

	// destMu serializa chequeo-de-nombre + movimiento por destino
	destMu sync.Mutex
}

// New valida las opciones.
func New(opts Options) (*Resolver, error) {
	r := &Resolver{
		mode:    opts.Mode,
		log:     logging.OrNop(opts.Logger),
		metrics: opts.Metrics,
	}
	switch opts.Mode {
	case ModeDelete:
	case ModeQuarantine:
		if strings.TrimSpace(opts.Dest) == "" {
			return nil, errors.New("quarantine mode requires a destination directory")
		}
		abs, err := filepath.Abs(opts.Dest)
		if err != nil {
			return nil, fmt.Errorf("invalid quarantine destination: %w", err)
		}
		r.dest = abs
	default:
		return nil, fmt.Errorf("unknown resolution mode: %d", opts.Mode)
	}
	return r, nil
}

// Mode devuelve el modo configurado.
func (r *Resolver) Mode() Mode { return r.mode }

// Dest devuelve la carpeta de cuarentena absoluta ("" en modo borrado).
func (r *Resolver) Dest() string { return r.dest }

// Resolve procesa cada víctima de cada disposición. Un fallo por archivo se
// registra y se sigue con el siguiente. La cancelación se revisa entre
// archivos: lo ya resuelto queda resuelto.
func (r *Resolver) Resolve(ctx context.Context, dispositions []entities.Disposition) *entities.RunResult {
	res := &entities.RunResult{}

	if r.mode == ModeQuarantine {
		if err := os.MkdirAll(r.dest, 0o755); err != nil {
			// Sin carpeta destino no se puede mover nada
			for _, d := range dispositions {
				for _, victim := range d.Removals {
					r.fail(res, victim.Path, fmt.Errorf("create quarantine dir: %w", err))
				}
			}
			return res
		}
	}

	for _, d := range dispositions {
		if ctx.Err() != nil {
			res.Interrupted = true
			break
		}
		if d.Original == nil {
			continue
		}

		// Si el original desapareció desde el escaneo, borrar las copias
		// destruiría la última versión del contenido.
		if _, err := os.Stat(d.Original.Path); err != nil {
			for _, victim := range d.Removals {
				r.fail(res, victim.Path, fmt.Errorf("original %s unavailable: %w", d.Original.Path, err))
			}
			continue
		}

		for _, victim := range d.Removals {
			if ctx.Err() != nil {
				res.Interrupted = true
				break
			}
			if victim.Path == d.Original.Path {
				r.fail(res, victim.Path, errors.New("refusing to remove the canonical original"))
				continue
			}

			switch r.mode {
			case ModeDelete:
				if err := os.Remove(victim.Path); err != nil {
					r.fail(res, victim.Path, err)
					continue
				}
				r.log.Info("borrado", zap.String("path", victim.Path))

			case ModeQuarantine:
				dst, err := r.quarantine(victim.Path)
				if err != nil {
					r.fail(res, victim.Path, err)
					continue
				}
				res.Moves = append(res.Moves, entities.Move{From: victim.Path, To: dst})
				r.log.Info("movido a cuarentena", zap.String("from", victim.Path), zap.String("to", dst))
			}

			res.Removed++
			res.BytesFreed += victim.Size
			r.metrics.ObserveRemoval(r.mode.String(), victim.Size)
		}
	}

	return res
}

func (r *Resolver) fail(res *entities.RunResult, path string, err error) {
	e := entities.NewError(entities.ResolutionError, path, err)
	res.Errors = append(res.Errors, e)
	r.metrics.IncError(e.Kind.String())
	r.log.Warn("no se pudo resolver", zap.String("path", path), zap.Error(err))
}

// quarantine mueve src a la carpeta destino sin sobrescribir nunca.
// Devuelve la ruta final.
func (r *Resolver) quarantine(src string) (string, error) {
	r.destMu.Lock()
	defer r.destMu.Unlock()

	name := filepath.Base(src)
	for n := 0; n <= MaxCollisions; n++ {
		dst := filepath.Join(r.dest, CollisionName(name, n))
		err := moveNoReplace(src, dst)
		if err == nil {
			return dst, nil
		}
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		return "", err
	}
	return "", fmt.Errorf("no free name for %s after %d attempts", name, MaxCollisions)
}

// CollisionName devuelve el nombre n-ésimo: "name.ext", "name_1.ext", "name_2.ext"...
// Los archivos ocultos sin extensión (".bashrc") quedan como ".bashrc_1".
func CollisionName(name string, n int) string {
	if n == 0 {
		return name
	}
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	if base == "" {
		base, ext = name, ""
	}
	return fmt.Sprintf("%s_%d%s", base, n, ext)
}
