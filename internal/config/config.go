package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/go-ini/ini"
)

// FileName es el nombre del archivo de configuración por usuario.
const FileName = "config.ini"

// Config envuelve el archivo INI. Las claves ausentes caen en los defaults.
type Config struct {
	path string
	ini  *ini.File
}

// ScanConfig controla la enumeración.
type ScanConfig struct {
	MinSize     uint64
	ExcludeDirs []string
	ExcludeExts []string
}

// HashConfig controla el hashing.
type HashConfig struct {
	Algorithm string
	Workers   int
	ChunkSize int
	PreHash   bool
	RateLimit float64
}

// ResolveConfig controla la resolución.
type ResolveConfig struct {
	Quarantine string // vacío = borrado permanente
	Keep       string
}

// OutputConfig controla el reporte.
type OutputConfig struct {
	Format string // text, json, yaml
	Color  bool
}

// LogConfig controla el logger.
type LogConfig struct {
	Level  string
	Format string
}

// AllConfig agrupa todas las secciones.
type AllConfig struct {
	Scan    *ScanConfig
	Hash    *HashConfig
	Resolve *ResolveConfig
	Output  *OutputConfig
	Log     *LogConfig
}

// DefaultExcludeDirs son carpetas que nunca interesa deduplicar.
var DefaultExcludeDirs = []string{"node_modules", ".git", "__pycache__", ".venv", "venv"}

// DefaultPath devuelve ~/.config/dupesweep/config.ini (o el equivalente del SO).
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "dupesweep", FileName)
}

// Load lee la configuración de path. Si path está vacío se usa DefaultPath;
// un archivo inexistente en la ruta por defecto no es error. Nunca se crea
// el archivo: la única salida en disco de una ejecución es la cuarentena.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}

	cfg := &Config{path: path, ini: ini.Empty()}
	if path == "" {
		return cfg, nil
	}

	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) && !explicit {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}

	iniFile, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}
	cfg.ini = iniFile
	return cfg, nil
}

// Parse lee la configuración desde bytes (útil en tests).
func Parse(data []byte) (*Config, error) {
	iniFile, err := ini.Load(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &Config{ini: iniFile}, nil
}

// Path devuelve la ruta de origen ("" si no hubo archivo).
func (c *Config) Path() string {
	return c.path
}

// GetScanConfig devuelve la sección [scan]
func (c *Config) GetScanConfig() (*ScanConfig, error) {
	scan := &ScanConfig{
		MinSize:     1, // excluye archivos vacíos
		ExcludeDirs: append([]string(nil), DefaultExcludeDirs...),
	}

	if c.ini.HasSection("scan") {
		section := c.ini.Section("scan")
		if section.HasKey("min_size") {
			size, err := ParseHumanSize(section.Key("min_size").String())
			if err != nil {
				return nil, fmt.Errorf("scan.min_size: %w", err)
			}
			scan.MinSize = size
		}
		if section.HasKey("exclude_dirs") {
			scan.ExcludeDirs = splitList(section.Key("exclude_dirs").String())
		}
		if section.HasKey("exclude_exts") {
			scan.ExcludeExts = splitList(section.Key("exclude_exts").String())
		}
	}

	return scan, nil
}

// GetHashConfig devuelve la sección [hash]
func (c *Config) GetHashConfig() (*HashConfig, error) {
	hash := &HashConfig{
		Algorithm: "sha256",
		Workers:   defaultWorkers(),
		ChunkSize: 32 * 1024,
		PreHash:   true,
	}

	if c.ini.HasSection("hash") {
		section := c.ini.Section("hash")
		if section.HasKey("algorithm") {
			hash.Algorithm = section.Key("algorithm").String()
		}
		if section.HasKey("workers") {
			workers, err := section.Key("workers").Int()
			if err != nil {
				return nil, fmt.Errorf("hash.workers: %w", err)
			}
			if workers != 0 { // 0 = uno por CPU
				hash.Workers = workers
			}
		}
		if section.HasKey("chunk_size") {
			size, err := ParseHumanSize(section.Key("chunk_size").String())
			if err != nil {
				return nil, fmt.Errorf("hash.chunk_size: %w", err)
			}
			hash.ChunkSize = int(size)
		}
		if section.HasKey("prehash") {
			pre, err := section.Key("prehash").Bool()
			if err != nil {
				return nil, fmt.Errorf("hash.prehash: %w", err)
			}
			hash.PreHash = pre
		}
		if section.HasKey("rate_limit") {
			rate, err := section.Key("rate_limit").Float64()
			if err != nil {
				return nil, fmt.Errorf("hash.rate_limit: %w", err)
			}
			hash.RateLimit = rate
		}
	}

	return hash, nil
}

// GetResolveConfig devuelve la sección [resolve]
func (c *Config) GetResolveConfig() *ResolveConfig {
	resolve := &ResolveConfig{Keep: "shortest"}

	if c.ini.HasSection("resolve") {
		section := c.ini.Section("resolve")
		if section.HasKey("quarantine") {
			resolve.Quarantine = section.Key("quarantine").String()
		}
		if section.HasKey("keep") {
			resolve.Keep = section.Key("keep").String()
		}
	}

	return resolve
}

// GetOutputConfig devuelve la sección [output]
func (c *Config) GetOutputConfig() (*OutputConfig, error) {
	output := &OutputConfig{Format: "text", Color: true}

	if c.ini.HasSection("output") {
		section := c.ini.Section("output")
		if section.HasKey("format") {
			output.Format = section.Key("format").String()
		}
		if section.HasKey("color") {
			color, err := section.Key("color").Bool()
			if err != nil {
				return nil, fmt.Errorf("output.color: %w", err)
			}
			output.Color = color
		}
	}

	return output, nil
}

// GetLogConfig devuelve la sección [log]
func (c *Config) GetLogConfig() *LogConfig {
	log := &LogConfig{Level: "warn", Format: "console"}

	if c.ini.HasSection("log") {
		section := c.ini.Section("log")
		if section.HasKey("level") {
			log.Level = section.Key("level").String()
		}
		if section.HasKey("format") {
			log.Format = section.Key("format").String()
		}
	}

	return log
}

// GetAllConfig devuelve todas las secciones ya validadas.
func (c *Config) GetAllConfig() (*AllConfig, error) {
	scan, err := c.GetScanConfig()
	if err != nil {
		return nil, err
	}
	hash, err := c.GetHashConfig()
	if err != nil {
		return nil, err
	}
	output, err := c.GetOutputConfig()
	if err != nil {
		return nil, err
	}

	all := &AllConfig{
		Scan:    scan,
		Hash:    hash,
		Resolve: c.GetResolveConfig(),
		Output:  output,
		Log:     c.GetLogConfig(),
	}
	if err := all.Validate(); err != nil {
		return nil, err
	}
	return all, nil
}

// ApplyOverrides aplica overrides "clave:valor", ej: "workers:8", "format:json",
// "log_format:json".
func (c *Config) ApplyOverrides(overrides []string) error {
	for _, override := range overrides {
		parts := strings.SplitN(override, ":", 2)
		if len(parts) != 2 {
			return fmt.Errorf("invalid override format '%s', expected 'key:value'", override)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		var section string
		switch key {
		case "log_level", "log_format":
			// Evita chocar con "format" de [output]
			c.ini.Section("log").Key(strings.TrimPrefix(key, "log_")).SetValue(value)
			continue
		case "min_size", "exclude_dirs", "exclude_exts":
			section = "scan"
		case "algorithm", "workers", "chunk_size", "prehash", "rate_limit":
			section = "hash"
		case "quarantine", "keep":
			section = "resolve"
		case "format", "color":
			section = "output"
		case "level":
			section = "log"
		default:
			return fmt.Errorf("unsupported override key '%s'", key)
		}
		c.ini.Section(section).Key(key).SetValue(value)
	}
	return nil
}

// Validate revisa los valores combinados.
func (a *AllConfig) Validate() error {
	if err := ValidateHashWorkers(a.Hash.Workers); err != nil {
		return err
	}
	if err := ValidateOutputFormat(a.Output.Format); err != nil {
		return err
	}
	if a.Hash.RateLimit < 0 {
		return fmt.Errorf("rate limit must not be negative, got: %g", a.Hash.RateLimit)
	}
	return nil
}

// ValidateHashWorkers valida que el número de workers sea razonable
func ValidateHashWorkers(workers int) error {
	if workers < 1 {
		return fmt.Errorf("hash workers must be at least 1, got: %d", workers)
	}
	if workers > 64 {
		return fmt.Errorf("hash workers should not exceed 64, got: %d", workers)
	}
	return nil
}

// ValidateOutputFormat valida el formato de reporte
func ValidateOutputFormat(format string) error {
	switch strings.ToLower(format) {
	case "text", "json", "yaml":
		return nil
	default:
		return fmt.Errorf("unsupported output format: %s (supported: text, json, yaml)", format)
	}
}

// ParseHumanSize interpreta "0", "512", "4K", "1.5M", "2GB".
func ParseHumanSize(sizeStr string) (uint64, error) {
	s := strings.ToUpper(strings.TrimSpace(sizeStr))
	if s == "" {
		return 0, fmt.Errorf("empty size string")
	}

	i := 0
	for i < len(s) && (s[i] >= '0' && s[i] <= '9' || s[i] == '.') {
		i++
	}
	if i == 0 {
		return 0, fmt.Errorf("no numeric part in size string: %s", sizeStr)
	}

	num, err := strconv.ParseFloat(s[:i], 64)
	if err != nil {
		return 0, fmt.Errorf("invalid numeric part in size string %s: %w", sizeStr, err)
	}

	var multiplier float64
	switch strings.TrimSpace(s[i:]) {
	case "", "B":
		multiplier = 1
	case "K", "KB":
		multiplier = 1 << 10
	case "M", "MB":
		multiplier = 1 << 20
	case "G", "GB":
		multiplier = 1 << 30
	default:
		return 0, fmt.Errorf("unknown size suffix: %s", s[i:])
	}

	return uint64(num * multiplier), nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func defaultWorkers() int {
	n := runtime.NumCPU()
	if n > 64 {
		n = 64
	}
	return n
}
