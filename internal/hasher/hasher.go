package hasher

import (
	"context"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"errors"
	"fmt"
	"hash"
	"io"
	"strings"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/spf13/afero"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/time/rate"

	"github.com/soyunomas/dupesweep/internal/entities"
)

// BlockSize optimiza la lectura del disco (32KB es un buen estándar)
const BlockSize = 32 * 1024

// Límites del tamaño de bloque configurable. Nunca depende del tamaño del archivo.
const (
	MinChunkSize = 4 * 1024
	MaxChunkSize = 4 * 1024 * 1024
)

// PreHashSize define cuánto leemos para la prueba rápida (4KB)
const PreHashSize = 4 * 1024

// DefaultAlgorithm es el digest usado para agrupar.
const DefaultAlgorithm = "sha256"

// Algorithm describe un digest criptográfico disponible.
type Algorithm struct {
	Name string
	Size int
	New  func() hash.Hash
}

// LookupAlgorithm devuelve el algoritmo por nombre (sin distinguir mayúsculas).
func LookupAlgorithm(name string) (*Algorithm, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "sha256":
		return &Algorithm{Name: "sha256", Size: sha256.Size, New: sha256.New}, nil
	case "sha512":
		return &Algorithm{Name: "sha512", Size: sha512.Size, New: sha512.New}, nil
	case "sha1":
		return &Algorithm{Name: "sha1", Size: sha1.Size, New: sha1.New}, nil
	case "blake2b":
		return &Algorithm{Name: "blake2b", Size: blake2b.Size256, New: newBlake2b256}, nil
	default:
		return nil, fmt.Errorf("unsupported hash algorithm: %s (supported: sha256, sha512, sha1, blake2b)", name)
	}
}

func newBlake2b256() hash.Hash {
	// Sin clave nunca falla
	h, _ := blake2b.New256(nil)
	return h
}

// Options configura un Hasher.
type Options struct {
	Fs        afero.Fs
	Algorithm string
	ChunkSize int     // 0 = BlockSize
	RateLimit float64 // archivos por segundo, 0 = sin límite
}

// Hasher calcula digests de contenido leyendo por bloques acotados.
// Es seguro para uso concurrente.
type Hasher struct {
	fs      afero.Fs
	algo    *Algorithm
	limiter *rate.Limiter

	// bufferPool y hashPool evitan reservar memoria por archivo
	bufferPool sync.Pool
	hashPool   sync.Pool
}

// New crea un Hasher validando las opciones.
func New(opts Options) (*Hasher, error) {
	algo, err := LookupAlgorithm(opts.Algorithm)
	if err != nil {
		return nil, err
	}

	chunk := opts.ChunkSize
	if chunk == 0 {
		chunk = BlockSize
	}
	if chunk < MinChunkSize || chunk > MaxChunkSize {
		return nil, fmt.Errorf("chunk size %d out of range [%d, %d]", chunk, MinChunkSize, MaxChunkSize)
	}

	fsys := opts.Fs
	if fsys == nil {
		fsys = afero.NewOsFs()
	}

	h := &Hasher{fs: fsys, algo: algo}
	if opts.RateLimit > 0 {
		h.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	}
	h.bufferPool.New = func() any {
		b := make([]byte, chunk)
		return &b
	}
	h.hashPool.New = func() any {
		return algo.New()
	}
	return h, nil
}

// Algorithm devuelve el algoritmo en uso.
func (h *Hasher) Algorithm() *Algorithm {
	return h.algo
}

// Hash calcula el digest completo del archivo. Un fallo de apertura o lectura
// devuelve un *entities.Error de tipo ReadError; la cancelación devuelve ctx.Err().
func (h *Hasher) Hash(ctx context.Context, path string) (entities.Digest, error) {
	if err := h.wait(ctx); err != nil {
		return "", err
	}

	file, err := h.fs.Open(path)
	if err != nil {
		return "", entities.NewError(entities.ReadError, path, err)
	}
	defer file.Close()

	// Pooling
	d := h.hashPool.Get().(hash.Hash)
	d.Reset()
	defer h.hashPool.Put(d)

	bufPtr := h.bufferPool.Get().(*[]byte)
	buf := *bufPtr
	defer h.bufferPool.Put(bufPtr)

	for {
		// Revisamos cancelación entre bloques
		if err := ctx.Err(); err != nil {
			return "", err
		}

		n, err := file.Read(buf)
		if n > 0 {
			d.Write(buf[:n])
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", entities.NewError(entities.ReadError, path, err)
		}
	}

	return entities.Digest(d.Sum(nil)), nil
}

// PreHash calcula xxhash sobre el primer bloque de 4KB.
// Solo sirve para descartar candidatos rápido, nunca para agrupar.
func (h *Hasher) PreHash(ctx context.Context, path string) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	file, err := h.fs.Open(path)
	if err != nil {
		return 0, entities.NewError(entities.ReadError, path, err)
	}
	defer file.Close()

	// Alloc simple de 4KB. Es barato y evita locking del Pool.
	buf := make([]byte, PreHashSize)
	n, err := io.ReadFull(file, buf)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return 0, entities.NewError(entities.ReadError, path, err)
	}

	return xxhash.Sum64(buf[:n]), nil
}

func (h *Hasher) wait(ctx context.Context) error {
	if h.limiter == nil {
		return ctx.Err()
	}
	return h.limiter.Wait(ctx)
}
