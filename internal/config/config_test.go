package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg, err := Parse([]byte(""))
	require.NoError(t, err)

	all, err := cfg.GetAllConfig()
	require.NoError(t, err)

	assert.Equal(t, uint64(1), all.Scan.MinSize)
	assert.Contains(t, all.Scan.ExcludeDirs, "node_modules")
	assert.Equal(t, "sha256", all.Hash.Algorithm)
	assert.True(t, all.Hash.PreHash)
	assert.GreaterOrEqual(t, all.Hash.Workers, 1)
	assert.Equal(t, "shortest", all.Resolve.Keep)
	assert.Empty(t, all.Resolve.Quarantine)
	assert.Equal(t, "text", all.Output.Format)
	assert.Equal(t, "warn", all.Log.Level)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte(`
[scan]
min_size = 4K
exclude_dirs = .git, Photos Library
exclude_exts = .tmp,.lnk

[hash]
algorithm = blake2b
workers = 8
chunk_size = 1M
prehash = false

[resolve]
quarantine = /tmp/_duplicates
keep = oldest

[output]
format = json
color = false
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, path, cfg.Path())

	all, err := cfg.GetAllConfig()
	require.NoError(t, err)

	assert.Equal(t, uint64(4096), all.Scan.MinSize)
	assert.Equal(t, []string{".git", "Photos Library"}, all.Scan.ExcludeDirs)
	assert.Equal(t, []string{".tmp", ".lnk"}, all.Scan.ExcludeExts)
	assert.Equal(t, "blake2b", all.Hash.Algorithm)
	assert.Equal(t, 8, all.Hash.Workers)
	assert.Equal(t, 1<<20, all.Hash.ChunkSize)
	assert.False(t, all.Hash.PreHash)
	assert.Equal(t, "/tmp/_duplicates", all.Resolve.Quarantine)
	assert.Equal(t, "oldest", all.Resolve.Keep)
	assert.Equal(t, "json", all.Output.Format)
	assert.False(t, all.Output.Color)
}

func TestLoad_ExplicitMissingFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.ini"))
	assert.Error(t, err)
}

func TestLoad_NeverCreatesFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("HOME", dir)

	_, err := Load("")
	require.NoError(t, err)

	_, statErr := os.Stat(filepath.Join(dir, "dupesweep", FileName))
	assert.True(t, os.IsNotExist(statErr))
}

func TestApplyOverrides(t *testing.T) {
	cfg, err := Parse([]byte(""))
	require.NoError(t, err)

	require.NoError(t, cfg.ApplyOverrides([]string{
		"workers:3",
		"format:yaml",
		"min_size:0",
		"keep: newest",
		"log_format:json",
		"log_level:debug",
	}))

	all, err := cfg.GetAllConfig()
	require.NoError(t, err)
	assert.Equal(t, 3, all.Hash.Workers)
	assert.Equal(t, "yaml", all.Output.Format)
	assert.Equal(t, uint64(0), all.Scan.MinSize)
	assert.Equal(t, "newest", all.Resolve.Keep)
	assert.Equal(t, "json", all.Log.Format)
	assert.Equal(t, "debug", all.Log.Level)

	assert.Error(t, cfg.ApplyOverrides([]string{"nocolon"}))
	assert.Error(t, cfg.ApplyOverrides([]string{"bogus:1"}))
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name    string
		ini     string
		wantErr bool
	}{
		{name: "too many workers", ini: "[hash]\nworkers = 65", wantErr: true},
		{name: "negative workers", ini: "[hash]\nworkers = -1", wantErr: true},
		{name: "bad color", ini: "[output]\ncolor = maybe", wantErr: true},
		{name: "bad prehash", ini: "[hash]\nprehash = maybe", wantErr: true},
		{name: "bad format", ini: "[output]\nformat = xml", wantErr: true},
		{name: "bad size", ini: "[scan]\nmin_size = lots", wantErr: true},
		{name: "negative rate", ini: "[hash]\nrate_limit = -1", wantErr: true},
		{name: "ok", ini: "[hash]\nworkers = 64\nrate_limit = 50"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Parse([]byte(tt.ini))
			require.NoError(t, err)
			_, err = cfg.GetAllConfig()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestParseHumanSize(t *testing.T) {
	tests := []struct {
		in      string
		want    uint64
		wantErr bool
	}{
		{in: "0", want: 0},
		{in: "1", want: 1},
		{in: "512B", want: 512},
		{in: "4k", want: 4096},
		{in: "1.5M", want: 1572864},
		{in: "2GB", want: 2 << 30},
		{in: "", wantErr: true},
		{in: "MB", wantErr: true},
		{in: "3TB", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseHumanSize(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestZeroWorkersMeansOnePerCPU(t *testing.T) {
	cfg, err := Parse([]byte("[hash]\nworkers = 0"))
	require.NoError(t, err)

	all, err := cfg.GetAllConfig()
	require.NoError(t, err)
	assert.Equal(t, defaultWorkers(), all.Hash.Workers)

	require.NoError(t, cfg.ApplyOverrides([]string{"workers:0"}))
	all, err = cfg.GetAllConfig()
	require.NoError(t, err)
	assert.Equal(t, defaultWorkers(), all.Hash.Workers)
}
