package report

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/soyunomas/dupesweep/internal/engine"
	"github.com/soyunomas/dupesweep/internal/entities"
	"github.com/soyunomas/dupesweep/internal/utils"
)

// --- ESTRUCTURAS PARA EL REPORTE FINAL ---

type Report struct {
	Summary  Summary       `json:"summary" yaml:"summary"`
	Groups   []GroupResult `json:"groups" yaml:"groups"`
	Errors   []ErrorEntry  `json:"errors" yaml:"errors"`
	Metadata Metadata      `json:"metadata" yaml:"metadata"`
}

type Metadata struct {
	RunID      string    `json:"run_id" yaml:"run_id"`
	Roots      []string  `json:"roots" yaml:"roots"`
	Strategy   string    `json:"strategy" yaml:"strategy"`
	Mode       string    `json:"mode" yaml:"mode"`
	Quarantine string    `json:"quarantine,omitempty" yaml:"quarantine,omitempty"`
	Algorithm  string    `json:"algorithm" yaml:"algorithm"`
	Timestamp  time.Time `json:"timestamp" yaml:"timestamp"`
	Duration   string    `json:"duration_human" yaml:"duration_human"`
}

type Summary struct {
	TotalFilesScanned int            `json:"total_files_scanned" yaml:"total_files_scanned"`
	SizeCandidates    int            `json:"size_candidates" yaml:"size_candidates"`
	FilesHashed       int            `json:"files_hashed" yaml:"files_hashed"`
	TotalGroups       int            `json:"total_groups" yaml:"total_groups"`
	TotalDuplicates   int            `json:"total_duplicates" yaml:"total_duplicates"`
	TotalHardLinks    int            `json:"total_hard_links" yaml:"total_hard_links"`
	WastedBytes       uint64         `json:"wasted_bytes" yaml:"wasted_bytes"`
	WastedHuman       string         `json:"wasted_human" yaml:"wasted_human"`
	TotalErrors       int            `json:"total_errors" yaml:"total_errors"`
	ErrorsByKind      map[string]int `json:"errors_by_kind,omitempty" yaml:"errors_by_kind,omitempty"`
}

type GroupResult struct {
	Hash      string               `json:"hash" yaml:"hash"`
	Size      uint64               `json:"file_size" yaml:"file_size"`
	Copies    int                  `json:"copies" yaml:"copies"`
	Keeper    *entities.FileRecord `json:"keeper" yaml:"keeper"`
	Victims   []Victim             `json:"victims" yaml:"victims"`
	HardLinks []string             `json:"hardlinks,omitempty" yaml:"hardlinks,omitempty"`
}

type Victim struct {
	Path string `json:"path" yaml:"path"`
	Size uint64 `json:"size" yaml:"size"`
}

type ErrorEntry struct {
	Kind  string `json:"kind" yaml:"kind"`
	Path  string `json:"path" yaml:"path"`
	Cause string `json:"cause" yaml:"cause"`
}

type sysID struct {
	dev, inode uint64
}

// NewMetadata rellena RunID y Timestamp.
func NewMetadata(roots []string, strategy, mode, quarantine string) Metadata {
	return Metadata{
		RunID:      uuid.NewString(),
		Roots:      roots,
		Strategy:   strategy,
		Mode:       mode,
		Quarantine: quarantine,
		Timestamp:  time.Now(),
	}
}

// Build arma el reporte a partir del escaneo y del plan. No toca el disco.
// Espacio desperdiciado = Σ (miembros-1) × tamaño.
func Build(scan *engine.ScanResult, plan []entities.Disposition, meta Metadata) Report {
	meta.Algorithm = scan.Algorithm
	meta.Duration = scan.Duration.String()

	rep := Report{
		Metadata: meta,
		Summary: Summary{
			TotalFilesScanned: scan.TotalFilesScanned,
			SizeCandidates:    scan.Candidates,
			FilesHashed:       scan.Hashed,
			TotalGroups:       len(plan),
			WastedBytes:       scan.WastedBytes(),
		},
		Groups: []GroupResult{},
		Errors: []ErrorEntry{},
	}

	for _, d := range plan {
		if d.Original == nil {
			continue
		}
		keeper := d.Original
		gRes := GroupResult{
			Hash:   d.Digest.Hex(),
			Size:   d.Size,
			Copies: len(d.Removals) + 1,
			Keeper: keeper,
		}

		// Un hard link del mismo inode no ocupa espacio extra
		seenInodes := make(map[sysID]bool)
		if keeper.Inode != 0 {
			seenInodes[sysID{keeper.DeviceID, keeper.Inode}] = true
		}

		for _, file := range d.Removals {
			id := sysID{file.DeviceID, file.Inode}
			if file.Inode != 0 && seenInodes[id] {
				gRes.HardLinks = append(gRes.HardLinks, file.Path)
				rep.Summary.TotalHardLinks++
			} else {
				gRes.Victims = append(gRes.Victims, Victim{Path: file.Path, Size: file.Size})
				if file.Inode != 0 {
					seenInodes[id] = true
				}
			}
			rep.Summary.TotalDuplicates++
		}
		rep.Groups = append(rep.Groups, gRes)
	}

	// Primero los grupos con más copias
	sort.SliceStable(rep.Groups, func(i, j int) bool {
		return rep.Groups[i].Copies > rep.Groups[j].Copies
	})

	rep.Errors = appendErrors(rep.Errors, scan.Errors)
	rep.Summary.TotalErrors = len(rep.Errors)
	rep.Summary.ErrorsByKind = countKinds(scan.Errors)
	rep.Summary.WastedHuman = utils.ByteCountDecimal(rep.Summary.WastedBytes)
	return rep
}

func appendErrors(dst []ErrorEntry, errs []*entities.Error) []ErrorEntry {
	for _, e := range errs {
		dst = append(dst, ErrorEntry{Kind: e.Kind.String(), Path: e.Path, Cause: e.Cause()})
	}
	return dst
}

func countKinds(errs []*entities.Error) map[string]int {
	if len(errs) == 0 {
		return nil
	}
	out := make(map[string]int)
	for kind, n := range entities.CountByKind(errs) {
		out[kind.String()] = n
	}
	return out
}
