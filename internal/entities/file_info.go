package entities

import (
	"encoding/hex"
	"sort"
	"time"
)

// FileRecord representa un archivo candidato tal como se vio durante el escaneo.
// La identidad es Path; el registro no se modifica después de creado.
type FileRecord struct {
	Path     string    `json:"path" yaml:"path"`
	Size     uint64    `json:"size_bytes" yaml:"size_bytes"`
	ModTime  time.Time `json:"mod_time" yaml:"mod_time"`
	DeviceID uint64    `json:"device_id,omitempty" yaml:"device_id,omitempty"`
	Inode    uint64    `json:"inode,omitempty" yaml:"inode,omitempty"`
}

// SizeBuckets agrupa los registros por tamaño exacto.
// Map: [Tamaño] -> [Archivos en orden de recorrido]
type SizeBuckets map[uint64][]*FileRecord

// Add agrega un registro a su cubeta.
func (sb SizeBuckets) Add(f *FileRecord) {
	sb[f.Size] = append(sb[f.Size], f)
}

// Count devuelve el total de registros en todas las cubetas.
func (sb SizeBuckets) Count() int {
	n := 0
	for _, files := range sb {
		n += len(files)
	}
	return n
}

// Candidates devuelve los tamaños con 2+ miembros, de mayor a menor.
// Las cubetas de un solo archivo nunca pueden contener duplicados.
func (sb SizeBuckets) Candidates() []uint64 {
	sizes := make([]uint64, 0, len(sb))
	for size, files := range sb {
		if len(files) > 1 {
			sizes = append(sizes, size)
		}
	}
	sort.Slice(sizes, func(i, j int) bool { return sizes[i] > sizes[j] })
	return sizes
}

// Digest es el hash de contenido en bytes crudos. Se usa como clave de mapa.
type Digest string

// Hex devuelve la representación hexadecimal.
func (d Digest) Hex() string {
	return hex.EncodeToString([]byte(d))
}

// DuplicateGroup es un conjunto de archivos con el mismo tamaño y el mismo digest.
type DuplicateGroup struct {
	Digest  Digest
	Size    uint64
	Members []*FileRecord
}

// Wasted estima el espacio recuperable: (miembros-1) × tamaño.
func (g *DuplicateGroup) Wasted() uint64 {
	if len(g.Members) < 2 {
		return 0
	}
	return uint64(len(g.Members)-1) * g.Size
}

// Disposition es la decisión por grupo: qué se conserva y qué se retira.
// Original nunca aparece en Removals.
type Disposition struct {
	Digest   Digest
	Size     uint64
	Original *FileRecord
	Removals []*FileRecord
}

// Move registra un archivo movido a cuarentena.
type Move struct {
	From string `json:"from" yaml:"from"`
	To   string `json:"to" yaml:"to"`
}

// RunResult resume la ejecución del Resolver.
type RunResult struct {
	Removed     uint64
	BytesFreed  uint64
	Moves       []Move
	Errors      []*Error
	Interrupted bool
}
