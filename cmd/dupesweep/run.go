package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/soyunomas/dupesweep/internal/config"
	"github.com/soyunomas/dupesweep/internal/engine"
	"github.com/soyunomas/dupesweep/internal/entities"
	"github.com/soyunomas/dupesweep/internal/logging"
	"github.com/soyunomas/dupesweep/internal/metrics"
	"github.com/soyunomas/dupesweep/internal/report"
	"github.com/soyunomas/dupesweep/internal/resolver"
)

// document es la salida JSON/YAML: el reporte y, si hubo, la resolución.
type document struct {
	report.Report `yaml:",inline"`
	Run           *report.RunReport `json:"run,omitempty" yaml:"run,omitempty"`
}

func run(cmd *cobra.Command, flags *cliFlags, roots []string) error {
	stdout := cmd.OutOrStdout()
	stderr := cmd.ErrOrStderr()

	// 1. Configuración: archivo + flags explícitos
	all, err := loadConfig(flags.configPath, collectOverrides(cmd))
	if err != nil {
		return err
	}

	logger, err := logging.New(logging.Config{Level: all.Log.Level, Format: all.Log.Format})
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	strategy, err := engine.ParseKeepStrategy(all.Resolve.Keep)
	if err != nil {
		return err
	}

	mode := resolver.ModeDelete
	var quarantine string
	if all.Resolve.Quarantine != "" {
		mode = resolver.ModeQuarantine
		if quarantine, err = filepath.Abs(all.Resolve.Quarantine); err != nil {
			return fmt.Errorf("invalid quarantine directory: %w", err)
		}
	}

	var collector *metrics.Collector
	if flags.metricsFile != "" {
		collector = metrics.New()
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Detección
	runner, err := engine.New(engine.Options{
		MinSize:     all.Scan.MinSize,
		ExcludeDirs: all.Scan.ExcludeDirs,
		ExcludeExts: all.Scan.ExcludeExts,
		SkipPaths:   skipPaths(quarantine),
		Algorithm:   all.Hash.Algorithm,
		ChunkSize:   all.Hash.ChunkSize,
		Workers:     all.Hash.Workers,
		PreHash:     all.Hash.PreHash,
		RateLimit:   all.Hash.RateLimit,
		Logger:      logger,
		Metrics:     collector,
	})
	if err != nil {
		return err
	}

	scan, err := runner.Run(ctx, roots)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			fmt.Fprintln(stderr, "⏸️  Escaneo interrumpido: no se modificó ningún archivo.")
		}
		return err
	}

	// 3. Plan y reporte
	plan := engine.Plan(scan.Groups, strategy)
	meta := report.NewMetadata(scan.Roots, strategy.String(), mode.String(), quarantine)
	rep := report.Build(scan, plan, meta)
	format := strings.ToLower(all.Output.Format)
	useColor := all.Output.Color && !color.NoColor

	if format == "text" {
		if err := report.WriteText(stdout, rep, useColor); err != nil {
			return err
		}
	}

	if flags.script != "" {
		if err := writeScript(flags.script, rep); err != nil {
			return fmt.Errorf("failed to write script: %w", err)
		}
		fmt.Fprintf(stderr, "\n📄 Script generado: %s\n", flags.script)
	}

	doc := document{Report: rep}
	finish := func() error {
		if err := writeDocument(stdout, format, doc); err != nil {
			return err
		}
		if err := collector.WriteTextfile(flags.metricsFile); err != nil {
			logger.Warn("no se pudieron escribir las métricas", zap.String("path", flags.metricsFile), zap.Error(err))
		}
		return nil
	}

	// 4. Resolución (solo si hay algo que hacer y el usuario lo aprueba)
	pending := countRemovals(plan)
	if pending == 0 || flags.dryRun || flags.script != "" {
		if format == "text" && pending > 0 {
			printHints(stdout)
		}
		return finish()
	}

	if !flags.yes {
		ok, err := confirm(stderr, confirmQuestion(pending, mode, quarantine))
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(stderr, "🚫 Cancelado: no se modificó ningún archivo.")
			return finish()
		}
	}

	res, err := resolver.New(resolver.Options{
		Mode:    mode,
		Dest:    quarantine,
		Logger:  logger,
		Metrics: collector,
	})
	if err != nil {
		return err
	}

	result := res.Resolve(ctx, plan)
	rr := report.BuildRun(result, mode.String())
	doc.Run = &rr
	if format == "text" {
		if err := report.WriteRunResult(stdout, rr, useColor); err != nil {
			return err
		}
	}
	return finish()
}

func loadConfig(path string, overrides []string) (*config.AllConfig, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyOverrides(overrides); err != nil {
		return nil, err
	}
	all, err := cfg.GetAllConfig()
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return all, nil
}

// skipPaths excluye la cuarentena del escaneo para no volver a agrupar lo ya movido.
func skipPaths(quarantine string) []string {
	if quarantine == "" {
		return nil
	}
	return []string{quarantine}
}

func countRemovals(plan []entities.Disposition) int {
	n := 0
	for _, d := range plan {
		n += len(d.Removals)
	}
	return n
}

func confirmQuestion(n int, mode resolver.Mode, quarantine string) string {
	if mode == resolver.ModeQuarantine {
		return fmt.Sprintf("♻️  ¿Mover %d archivo(s) a %s? [s/N] ", n, quarantine)
	}
	return fmt.Sprintf("🔥 ¿BORRAR permanentemente %d archivo(s)? [s/N] ", n)
}

func writeScript(path string, rep report.Report) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o755)
	if err != nil {
		return err
	}
	if err := report.WriteShellScript(f, rep); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func writeDocument(w io.Writer, format string, doc document) error {
	switch format {
	case "json":
		return report.WriteJSON(w, doc)
	case "yaml":
		return report.WriteYAML(w, doc)
	default:
		return nil
	}
}

func printHints(w io.Writer) {
	fmt.Fprintln(w, "💡 Opciones disponibles:")
	fmt.Fprintln(w, "   --quarantine DIR -> Mover a carpeta segura")
	fmt.Fprintln(w, "   --script FILE    -> Generar script de revisión")
	fmt.Fprintln(w, "   (sin --dry-run)  -> Resolver tras confirmar")
}
