package report

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fatih/color"
	"gopkg.in/yaml.v3"

	"github.com/soyunomas/dupesweep/internal/entities"
	"github.com/soyunomas/dupesweep/internal/resolver"
	"github.com/soyunomas/dupesweep/internal/utils"
)

// RunReport resume la resolución: éxitos y fallos por separado.
type RunReport struct {
	Mode            string          `json:"mode" yaml:"mode"`
	Removed         uint64          `json:"removed" yaml:"removed"`
	Failed          int             `json:"failed" yaml:"failed"`
	BytesFreed      uint64          `json:"bytes_freed" yaml:"bytes_freed"`
	BytesFreedHuman string          `json:"bytes_freed_human" yaml:"bytes_freed_human"`
	Interrupted     bool            `json:"interrupted" yaml:"interrupted"`
	Moves           []entities.Move `json:"moves,omitempty" yaml:"moves,omitempty"`
	Errors          []ErrorEntry    `json:"errors" yaml:"errors"`
}

// BuildRun convierte el RunResult del Resolver.
func BuildRun(result *entities.RunResult, mode string) RunReport {
	return RunReport{
		Mode:            mode,
		Removed:         result.Removed,
		Failed:          len(result.Errors),
		BytesFreed:      result.BytesFreed,
		BytesFreedHuman: utils.ByteCountDecimal(result.BytesFreed),
		Interrupted:     result.Interrupted,
		Moves:           result.Moves,
		Errors:          appendErrors([]ErrorEntry{}, result.Errors),
	}
}

// palette agrupa los colores; sin color todo se imprime plano.
type palette struct {
	red, green, yellow, cyan, bold *color.Color
}

func newPalette(enabled bool) palette {
	p := palette{
		red:    color.New(color.FgRed, color.Bold),
		green:  color.New(color.FgGreen),
		yellow: color.New(color.FgYellow),
		cyan:   color.New(color.FgCyan),
		bold:   color.New(color.Bold),
	}
	for _, c := range []*color.Color{p.red, p.green, p.yellow, p.cyan, p.bold} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

const rule = "------------------------------------------------"

// WriteText imprime el reporte legible (modo vista previa).
func WriteText(w io.Writer, r Report, useColor bool) error {
	p := newPalette(useColor)
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "🚀 dupesweep - Escaneando: %s\n", strings.Join(r.Metadata.Roots, ", "))
	fmt.Fprintf(bw, "⚖️  Estrategia: Mantener %s | Acción: %s\n",
		strings.ToUpper(r.Metadata.Strategy), describeMode(r.Metadata.Mode, r.Metadata.Quarantine))
	fmt.Fprintln(bw, rule)

	if len(r.Groups) == 0 {
		p.green.Fprintln(bw, "✅ ¡Limpio! No se encontraron duplicados.")
	} else {
		p.red.Fprintln(bw, "🔴 DUPLICADOS ENCONTRADOS:")
		for i, g := range r.Groups {
			fmt.Fprintf(bw, "   📦 Grupo %d (%d copias, %s c/u) | 👑 KEEPER: %s\n",
				i+1, g.Copies, utils.ByteCountDecimal(g.Size), p.green.Sprint(g.Keeper.Path))
			for _, hl := range g.HardLinks {
				p.cyan.Fprintf(bw, "      🔗 [HardLink]: %s (0B)\n", hl)
			}
			for _, v := range g.Victims {
				fmt.Fprintf(bw, "      🗑️  [Candidato]: %s\n", v.Path)
			}
			fmt.Fprintln(bw)
		}
	}

	fmt.Fprintln(bw, rule)
	fmt.Fprintf(bw, "🏁 Archivos escaneados: %d | Grupos: %d | Duplicados: %d",
		r.Summary.TotalFilesScanned, r.Summary.TotalGroups, r.Summary.TotalDuplicates)
	if r.Summary.TotalHardLinks > 0 {
		fmt.Fprintf(bw, " (%d hard links)", r.Summary.TotalHardLinks)
	}
	fmt.Fprintln(bw)
	fmt.Fprintf(bw, "💾 Espacio recuperable: %s\n", p.bold.Sprint(r.Summary.WastedHuman))
	writeErrors(bw, p, r.Errors, r.Summary.ErrorsByKind)

	return bw.Flush()
}

// WriteRunResult imprime el resultado de la resolución.
func WriteRunResult(w io.Writer, rr RunReport, useColor bool) error {
	p := newPalette(useColor)
	bw := bufio.NewWriter(w)

	fmt.Fprintln(bw, rule)
	if rr.Interrupted {
		p.yellow.Fprintln(bw, "⏸️  Operación interrumpida: lo ya procesado queda aplicado.")
	}
	verb := "Borrados"
	if rr.Mode == "quarantine" {
		verb = "Movidos a cuarentena"
	}
	fmt.Fprintf(bw, "🏁 %s: %s | Fallidos: %d\n", verb, p.green.Sprint(rr.Removed), rr.Failed)
	fmt.Fprintf(bw, "💾 Espacio liberado: %s\n", p.bold.Sprint(rr.BytesFreedHuman))
	writeErrors(bw, p, rr.Errors, nil)

	return bw.Flush()
}

func writeErrors(w io.Writer, p palette, errs []ErrorEntry, byKind map[string]int) {
	if len(errs) == 0 {
		return
	}
	fmt.Fprintf(w, "⚠️  Errores: %s", p.yellow.Sprint(len(errs)))
	if len(byKind) > 0 {
		kinds := make([]string, 0, len(byKind))
		for k := range byKind {
			kinds = append(kinds, k)
		}
		sort.Strings(kinds)
		parts := make([]string, 0, len(kinds))
		for _, k := range kinds {
			parts = append(parts, fmt.Sprintf("%s: %d", k, byKind[k]))
		}
		fmt.Fprintf(w, " (%s)", strings.Join(parts, ", "))
	}
	fmt.Fprintln(w)
	for _, e := range errs {
		fmt.Fprintf(w, "      ❌ [%s] %s: %s\n", e.Kind, e.Path, e.Cause)
	}
}

func describeMode(mode, dest string) string {
	if mode == "quarantine" {
		return "mover a " + dest
	}
	return "BORRAR permanentemente"
}

// WriteJSON imprime v indentado.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteYAML imprime v como YAML.
func WriteYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

// WriteShellScript genera un script revisable equivalente al plan.
// En modo cuarentena cada destino lleva nombre explícito (name_N.ext si se
// repite dentro del plan) y mv -n nunca pisa lo que ya exista en la carpeta:
// lo omitido se avisa por stderr.
func WriteShellScript(w io.Writer, r Report) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "#!/bin/sh\n")
	fmt.Fprintf(bw, "# Generado por dupesweep (run %s)\n", r.Metadata.RunID)
	fmt.Fprintf(bw, "echo 'Iniciando limpieza...'\n\n")

	quarantine := r.Metadata.Mode == "quarantine"
	taken := make(map[string]struct{})
	if quarantine {
		fmt.Fprintf(bw, "mkdir -p %s\n\n", shellQuote(r.Metadata.Quarantine))
	}

	for _, g := range r.Groups {
		if len(g.Victims) == 0 && len(g.HardLinks) == 0 {
			continue
		}
		fmt.Fprintf(bw, "# Group Hash: %s\n", g.Hash)
		fmt.Fprintf(bw, "# Keeper: %s\n", g.Keeper.Path)
		targets := make([]string, 0, len(g.Victims)+len(g.HardLinks))
		for _, v := range g.Victims {
			targets = append(targets, v.Path)
		}
		targets = append(targets, g.HardLinks...)
		for _, path := range targets {
			if !quarantine {
				fmt.Fprintf(bw, "rm -v %s\n", shellQuote(path))
				continue
			}
			dst := filepath.Join(r.Metadata.Quarantine, scriptName(filepath.Base(path), taken))
			fmt.Fprintf(bw, "mv -n -v %s %s\n", shellQuote(path), shellQuote(dst))
			fmt.Fprintf(bw, "[ -e %s ] && echo %s >&2\n", shellQuote(path),
				shellQuote("Omitido, el destino ya existe: "+path))
		}
		fmt.Fprintf(bw, "\n")
	}
	return bw.Flush()
}

// scriptName reserva el primer nombre libre dentro del script.
func scriptName(name string, taken map[string]struct{}) string {
	for n := 0; ; n++ {
		candidate := resolver.CollisionName(name, n)
		if _, ok := taken[candidate]; !ok {
			taken[candidate] = struct{}{}
			return candidate
		}
	}
}

// shellQuote envuelve en comillas simples, escapando las internas.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
