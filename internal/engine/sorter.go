package engine

import (
	"fmt"
	"sort"
	"strings"

	"github.com/soyunomas/dupesweep/internal/entities"
)

// Definimos las estrategias de conservación disponibles
type KeepStrategy int

const (
	KeepShortestPath KeepStrategy = iota // Default
	KeepLongestPath
	KeepOldest
	KeepNewest
)

var strategyNames = map[KeepStrategy]string{
	KeepShortestPath: "shortest",
	KeepLongestPath:  "longest",
	KeepOldest:       "oldest",
	KeepNewest:       "newest",
}

func (s KeepStrategy) String() string {
	if name, ok := strategyNames[s]; ok {
		return name
	}
	return "unknown"
}

// ParseKeepStrategy interpreta shortest, longest, oldest o newest.
func ParseKeepStrategy(s string) (KeepStrategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "shortest":
		return KeepShortestPath, nil
	case "longest":
		return KeepLongestPath, nil
	case "oldest":
		return KeepOldest, nil
	case "newest":
		return KeepNewest, nil
	default:
		return 0, fmt.Errorf("unknown keep strategy: %s (supported: shortest, longest, oldest, newest)", s)
	}
}

// less define el orden total de miembros: el primero es el "Keeper" (Original).
// Si la función retorna TRUE, f1 va antes que f2.
func less(f1, f2 *entities.FileRecord, strategy KeepStrategy) bool {
	switch strategy {
	case KeepLongestPath:
		// [0] debe ser el más largo
		if len(f1.Path) != len(f2.Path) {
			return len(f1.Path) > len(f2.Path)
		}

	case KeepOldest:
		// [0] debe ser el más viejo (Fecha menor)
		if !f1.ModTime.Equal(f2.ModTime) {
			return f1.ModTime.Before(f2.ModTime)
		}

	case KeepNewest:
		// [0] debe ser el más nuevo (Fecha mayor)
		if !f1.ModTime.Equal(f2.ModTime) {
			return f1.ModTime.After(f2.ModTime)
		}
	}

	// --- CRITERIOS DE DESEMPATE (Tie-Breakers) ---
	// 1. Longitud de ruta: la más corta
	if len(f1.Path) != len(f2.Path) {
		return len(f1.Path) < len(f2.Path)
	}

	// 2. Alfabético (último recurso)
	return f1.Path < f2.Path
}

// Select elige el original de un grupo y devuelve la disposición.
// Es pura: no modifica el grupo ni toca el sistema de archivos, y el
// resultado no depende del orden de los miembros.
func Select(group *entities.DuplicateGroup, strategy KeepStrategy) entities.Disposition {
	members := make([]*entities.FileRecord, len(group.Members))
	copy(members, group.Members)
	sort.SliceStable(members, func(i, j int) bool {
		return less(members[i], members[j], strategy)
	})

	d := entities.Disposition{
		Digest: group.Digest,
		Size:   group.Size,
	}
	if len(members) == 0 {
		return d
	}
	d.Original = members[0]
	for _, m := range members[1:] {
		// La misma ruta nunca puede ser original y víctima a la vez
		if m.Path == d.Original.Path {
			continue
		}
		d.Removals = append(d.Removals, m)
	}
	return d
}

// Plan calcula la disposición de cada grupo, en el mismo orden.
func Plan(groups []*entities.DuplicateGroup, strategy KeepStrategy) []entities.Disposition {
	plan := make([]entities.Disposition, 0, len(groups))
	for _, g := range groups {
		plan = append(plan, Select(g, strategy))
	}
	return plan
}
