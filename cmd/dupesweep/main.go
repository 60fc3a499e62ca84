package main

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

// cliFlags guarda los flags que no tienen equivalente en el archivo INI.
type cliFlags struct {
	configPath  string
	script      string
	dryRun      bool
	yes         bool
	metricsFile string
}

var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	flags := &cliFlags{}

	cmd := &cobra.Command{
		Use:   "dupesweep [flags] ROOT...",
		Short: "Find and resolve duplicate files",
		Long: `Find byte-identical files under one or more directories and resolve them.

Files are bucketed by size first; only same-size candidates are hashed
(quick xxhash pre-check, then a full cryptographic digest). In each group
one original is kept (shortest path by default) and every other copy is
either moved to a quarantine directory or deleted.

Without --quarantine the duplicates are deleted permanently. A confirmation
prompt is shown unless --yes is given.

Examples:
  dupesweep ~/Photos                             # Preview, then confirm deletion
  dupesweep --dry-run ~/Photos ~/Backup          # Report only
  dupesweep --quarantine ~/_dups --yes ~/Photos  # Move copies without asking
  dupesweep --format json --dry-run . > dups.json
  dupesweep --script cleanup.sh ~/Downloads      # Write a reviewable script`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, flags, args)
		},
	}

	f := cmd.Flags()
	f.StringVar(&flags.configPath, "config", "", "Config file (default: user config dir/dupesweep/config.ini)")
	f.String("min-size", "1", "Minimum file size, e.g. 1, 4K, 2M (0 includes empty files)")
	f.StringSlice("exclude-dir", nil, "Directory names to skip (replaces the defaults)")
	f.StringSlice("exclude-ext", nil, "File extensions to skip, e.g. .tmp,.lnk")
	f.String("quarantine", "", "Move duplicates into DIR instead of deleting them")
	f.String("keep", "shortest", "Original selection: shortest, longest, oldest, newest")
	f.String("hash", "sha256", "Digest algorithm: sha256, sha512, sha1, blake2b")
	f.Int("workers", 0, "Concurrent hash workers, 1-64 (0 = one per CPU)")
	f.String("chunk-size", "32K", "Read buffer per file (4K-4M)")
	f.Bool("no-prehash", false, "Skip the xxhash first-block pre-check")
	f.Float64("rate", 0, "Limit hashing to N files per second (0 = unlimited)")
	f.String("format", "text", "Report format: text, json, yaml")
	f.StringVar(&flags.script, "script", "", "Write a shell script with the planned actions instead of applying them")
	f.BoolVar(&flags.dryRun, "dry-run", false, "Report duplicates without touching any file")
	f.BoolVarP(&flags.yes, "yes", "y", false, "Do not ask for confirmation")
	f.StringVar(&flags.metricsFile, "metrics-file", "", "Write Prometheus metrics to FILE (textfile collector format)")
	f.String("log-level", "warn", "Log level: debug, info, warn, error")
	f.String("log-format", "console", "Log format: console, json")
	f.Bool("no-color", false, "Disable colored output")

	return cmd
}

// flagKeys asocia cada flag con su clave de override en la configuración.
var flagKeys = map[string]string{
	"min-size":    "min_size",
	"exclude-dir": "exclude_dirs",
	"exclude-ext": "exclude_exts",
	"quarantine":  "quarantine",
	"keep":        "keep",
	"hash":        "algorithm",
	"workers":     "workers",
	"chunk-size":  "chunk_size",
	"rate":        "rate_limit",
	"format":      "format",
	"log-level":   "log_level",
	"log-format":  "log_format",
}

// collectOverrides convierte los flags cambiados en overrides "clave:valor".
// Solo los flags explícitos pisan el archivo de configuración.
func collectOverrides(cmd *cobra.Command) []string {
	var overrides []string
	f := cmd.Flags()

	for _, name := range sortedKeys(flagKeys) {
		if !f.Changed(name) {
			continue
		}
		flag := f.Lookup(name)
		value := flag.Value.String()
		if flag.Value.Type() == "stringSlice" {
			list, _ := f.GetStringSlice(name)
			value = strings.Join(list, ",")
		}
		overrides = append(overrides, flagKeys[name]+":"+value)
	}

	if f.Changed("no-prehash") {
		off, _ := f.GetBool("no-prehash")
		overrides = append(overrides, "prehash:"+strconv.FormatBool(!off))
	}
	if f.Changed("no-color") {
		off, _ := f.GetBool("no-color")
		overrides = append(overrides, "color:"+strconv.FormatBool(!off))
	}
	return overrides
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "❌ Error fatal: %v\n", err)
		os.Exit(1)
	}
}
