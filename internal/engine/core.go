package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/soyunomas/dupesweep/internal/entities"
	"github.com/soyunomas/dupesweep/internal/hasher"
	"github.com/soyunomas/dupesweep/internal/logging"
	"github.com/soyunomas/dupesweep/internal/metrics"
	"github.com/soyunomas/dupesweep/internal/scanner"
)

// Options son todos los parámetros de una ejecución. Nada queda en estado global.
type Options struct {
	MinSize     uint64
	ExcludeDirs []string
	ExcludeExts []string
	SkipPaths   []string

	Algorithm string
	ChunkSize int
	Workers   int
	PreHash   bool
	RateLimit float64

	Fs      afero.Fs
	Logger  *zap.Logger
	Metrics *metrics.Collector
}

// ScanResult es la salida de la fase de detección.
type ScanResult struct {
	Roots             []string
	Algorithm         string
	Groups            []*entities.DuplicateGroup
	Errors            []*entities.Error
	TotalFilesScanned int
	Candidates        int
	Hashed            int
	BytesHashed       uint64
	Duration          time.Duration
}

// DuplicatesCount cuenta los archivos redundantes (miembros-1 por grupo).
func (s *ScanResult) DuplicatesCount() int {
	n := 0
	for _, g := range s.Groups {
		n += len(g.Members) - 1
	}
	return n
}

// WastedBytes suma (miembros-1) × tamaño sobre todos los grupos.
func (s *ScanResult) WastedBytes() uint64 {
	var total uint64
	for _, g := range s.Groups {
		total += g.Wasted()
	}
	return total
}

type Runner struct {
	opts    Options
	fs      afero.Fs
	scanner *scanner.FileScanner
	hasher  *hasher.Hasher
	log     *zap.Logger
	metrics *metrics.Collector
}

func New(opts Options) (*Runner, error) {
	fsys := opts.Fs
	if fsys == nil {
		fsys = afero.NewOsFs()
	}

	h, err := hasher.New(hasher.Options{
		Fs:        fsys,
		Algorithm: opts.Algorithm,
		ChunkSize: opts.ChunkSize,
		RateLimit: opts.RateLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("invalid hasher options: %w", err)
	}

	return &Runner{
		opts: opts,
		fs:   fsys,
		scanner: scanner.New(scanner.Config{
			Fs:          fsys,
			MinSize:     opts.MinSize,
			ExcludeDirs: opts.ExcludeDirs,
			ExcludeExts: opts.ExcludeExts,
			SkipPaths:   opts.SkipPaths,
		}),
		hasher:  h,
		log:     logging.OrNop(opts.Logger),
		metrics: opts.Metrics,
	}, nil
}

// Run ejecuta Enumerator → Size Index → Grouper sobre las raíces.
// Solo devuelve error si ninguna raíz es escaneable o si se cancela.
func (r *Runner) Run(ctx context.Context, roots []string) (*ScanResult, error) {
	start := time.Now()
	res := &ScanResult{Roots: roots, Algorithm: r.hasher.Algorithm().Name}

	// --- PASO 1: ENUMERATOR ---
	stage := time.Now()
	paths, errs, err := r.scanner.Enumerate(ctx, roots)
	res.Errors = append(res.Errors, errs...)
	r.warnAll(errs)
	if err != nil {
		return res, fmt.Errorf("enumeration failed: %w", err)
	}
	r.metrics.ObserveStage("enumerate", time.Since(stage))
	r.log.Info("enumeración terminada", zap.Int("files", len(paths)))

	// --- PASO 2: SIZE INDEX ---
	stage = time.Now()
	buckets, errs, err := scanner.Index(ctx, r.fs, paths, r.opts.MinSize)
	res.Errors = append(res.Errors, errs...)
	r.warnAll(errs)
	if err != nil {
		return res, err
	}
	res.TotalFilesScanned = buckets.Count()
	r.metrics.AddScanned(res.TotalFilesScanned)
	r.metrics.ObserveStage("index", time.Since(stage))

	// --- PASO 3: GROUPER (hash) ---
	stage = time.Now()
	grouper := NewGrouper(r.hasher, GroupOptions{
		Workers: r.opts.Workers,
		PreHash: r.opts.PreHash,
		Logger:  r.log,
		Metrics: r.metrics,
	})
	gr, err := grouper.Group(ctx, buckets)
	if err != nil {
		return res, err
	}
	r.metrics.ObserveStage("hash", time.Since(stage))

	res.Groups = gr.Groups
	res.Errors = append(res.Errors, gr.Errors...)
	res.Candidates = gr.Candidates
	res.Hashed = gr.Hashed
	res.BytesHashed = gr.BytesHashed
	res.Duration = time.Since(start)
	r.metrics.SetGroups(len(res.Groups), res.WastedBytes())

	r.log.Info("detección terminada",
		zap.Int("scanned", res.TotalFilesScanned),
		zap.Int("candidates", res.Candidates),
		zap.Int("hashed", res.Hashed),
		zap.Int("groups", len(res.Groups)),
		zap.Int("errors", len(res.Errors)),
		zap.Duration("duration", res.Duration))

	return res, nil
}

func (r *Runner) warnAll(errs []*entities.Error) {
	for _, e := range errs {
		r.log.Warn("archivo omitido",
			zap.Stringer("kind", e.Kind),
			zap.String("path", e.Path),
			zap.Error(e.Err))
		r.metrics.IncError(e.Kind.String())
	}
}
