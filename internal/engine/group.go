package engine

import (
	"context"
	"errors"
	"runtime"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/soyunomas/dupesweep/internal/entities"
	"github.com/soyunomas/dupesweep/internal/logging"
	"github.com/soyunomas/dupesweep/internal/metrics"
)

// MaxWorkers acota el pool de hashing.
const MaxWorkers = 64

// ContentHasher es lo que el agrupador necesita del hasher.
type ContentHasher interface {
	Hash(ctx context.Context, path string) (entities.Digest, error)
	PreHash(ctx context.Context, path string) (uint64, error)
}

// GroupOptions configura el agrupador.
type GroupOptions struct {
	Workers int  // 0 = runtime.NumCPU()
	PreHash bool // Descarte rápido por primer bloque antes del hash completo
	Logger  *zap.Logger
	Metrics *metrics.Collector
}

// GroupResult es la salida del agrupador.
type GroupResult struct {
	Groups      []*entities.DuplicateGroup
	Errors      []*entities.Error
	Candidates  int
	Hashed      int
	BytesHashed uint64
}

// Grouper convierte cubetas de tamaño en grupos de duplicados.
type Grouper struct {
	hasher  ContentHasher
	workers int
	preHash bool
	log     *zap.Logger
	metrics *metrics.Collector
}

// NewGrouper crea un agrupador.
func NewGrouper(h ContentHasher, opts GroupOptions) *Grouper {
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > MaxWorkers {
		workers = MaxWorkers
	}
	return &Grouper{
		hasher:  h,
		workers: workers,
		preHash: opts.PreHash,
		log:     logging.OrNop(opts.Logger),
		metrics: opts.Metrics,
	}
}

type groupKey struct {
	size   uint64
	digest entities.Digest
}

// Group hashea solo las cubetas con 2+ miembros y agrupa por digest.
// Los grupos se forman cuando todo el hashing terminó: nunca se filtran
// resultados parciales. La salida no depende del orden de recorrido.
func (g *Grouper) Group(ctx context.Context, buckets entities.SizeBuckets) (*GroupResult, error) {
	res := &GroupResult{}

	// --- PASO 1: descartar cubetas de un solo archivo ---
	var candidates []*entities.FileRecord
	for _, size := range buckets.Candidates() {
		candidates = append(candidates, buckets[size]...)
	}
	res.Candidates = len(candidates)
	g.metrics.AddCandidates(len(candidates))
	if len(candidates) == 0 {
		return res, nil
	}

	// --- PASO 2: pre-hash (opcional) ---
	if g.preHash {
		survivors, errs, err := g.filterByPreHash(ctx, candidates)
		if err != nil {
			return nil, err
		}
		res.Errors = append(res.Errors, errs...)
		g.log.Debug("pre-hash terminado",
			zap.Int("candidates", len(candidates)),
			zap.Int("survivors", len(survivors)))
		candidates = survivors
	}

	// --- PASO 3: hash completo ---
	digests, failures, err := hashAll(ctx, g.workers, candidates, g.hasher.Hash)
	if err != nil {
		return nil, err
	}

	// --- PASO 4: re-particionar por (tamaño, digest) ---
	byKey := make(map[groupKey][]*entities.FileRecord)
	var keys []groupKey
	for i, rec := range candidates {
		if failures[i] != nil {
			res.Errors = append(res.Errors, g.readError(rec.Path, failures[i]))
			continue
		}
		res.Hashed++
		res.BytesHashed += rec.Size
		g.metrics.ObserveHashed(rec.Size)

		k := groupKey{size: rec.Size, digest: digests[i]}
		if _, ok := byKey[k]; !ok {
			keys = append(keys, k)
		}
		byKey[k] = append(byKey[k], rec)
	}

	for _, k := range keys {
		members := byKey[k]
		if len(members) < 2 {
			// Mismo tamaño, contenido distinto: esperado, no es error
			continue
		}
		sorted := make([]*entities.FileRecord, len(members))
		copy(sorted, members)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i].Path < sorted[j].Path })
		res.Groups = append(res.Groups, &entities.DuplicateGroup{
			Digest:  k.digest,
			Size:    k.size,
			Members: sorted,
		})
	}

	sort.Slice(res.Groups, func(i, j int) bool {
		if res.Groups[i].Size != res.Groups[j].Size {
			return res.Groups[i].Size > res.Groups[j].Size
		}
		return res.Groups[i].Digest < res.Groups[j].Digest
	})

	return res, nil
}

// filterByPreHash descarta los archivos cuyo (tamaño, primer bloque) es único.
func (g *Grouper) filterByPreHash(ctx context.Context, records []*entities.FileRecord) ([]*entities.FileRecord, []*entities.Error, error) {
	sums, failures, err := hashAll(ctx, g.workers, records, g.hasher.PreHash)
	if err != nil {
		return nil, nil, err
	}

	type preKey struct {
		size uint64
		sum  uint64
	}
	counts := make(map[preKey]int)
	var errs []*entities.Error
	for i, rec := range records {
		if failures[i] != nil {
			errs = append(errs, g.readError(rec.Path, failures[i]))
			continue
		}
		counts[preKey{rec.Size, sums[i]}]++
	}

	var survivors []*entities.FileRecord
	for i, rec := range records {
		if failures[i] == nil && counts[preKey{rec.Size, sums[i]}] > 1 {
			survivors = append(survivors, rec)
		}
	}
	return survivors, errs, nil
}

func (g *Grouper) readError(path string, err error) *entities.Error {
	var e *entities.Error
	if !errors.As(err, &e) {
		e = entities.NewError(entities.ReadError, path, err)
	}
	g.log.Warn("no se pudo leer el archivo, se excluye del grupo",
		zap.String("path", path), zap.Error(e.Err))
	g.metrics.IncError(e.Kind.String())
	return e
}

// hashAll aplica fn a cada registro con un pool acotado de workers.
// Los fallos por archivo quedan en failures[i]; solo la cancelación aborta.
func hashAll[T any](ctx context.Context, workers int, records []*entities.FileRecord,
	fn func(context.Context, string) (T, error)) ([]T, []error, error) {

	sums := make([]T, len(records))
	failures := make([]error, len(records))

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)

	for i, rec := range records {
		if egCtx.Err() != nil {
			break
		}
		eg.Go(func() error {
			sum, err := fn(egCtx, rec.Path)
			if err != nil {
				if isCancel(err) {
					return err
				}
				failures[i] = err
				return nil
			}
			sums[i] = sum
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	return sums, failures, nil
}

func isCancel(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
