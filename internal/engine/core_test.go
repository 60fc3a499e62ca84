package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soyunomas/dupesweep/internal/entities"
	"github.com/soyunomas/dupesweep/internal/metrics"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		p := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
}

func TestRunner_EndToEnd(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"a.txt":             "hello",
		"b.txt":             "hello",
		"c.txt":             "world",
		"empty1":            "",
		"empty2":            "",
		"nested/deep/d.txt": "hello",
		"skip/.git/e.txt":   "hello",
		"photo.tmp":         "hello",
	})

	m := metrics.New()
	r, err := New(Options{
		MinSize:     1,
		ExcludeDirs: []string{".git"},
		ExcludeExts: []string{".tmp"},
		PreHash:     true,
		Metrics:     m,
	})
	require.NoError(t, err)

	res, err := r.Run(context.Background(), []string{root})
	require.NoError(t, err)

	require.Len(t, res.Groups, 1)
	g := res.Groups[0]
	assert.Len(t, g.Members, 3)
	assert.Equal(t, 4, res.TotalFilesScanned)
	assert.Equal(t, 2, res.DuplicatesCount())
	assert.Equal(t, uint64(10), res.WastedBytes())
	assert.Equal(t, "sha256", res.Algorithm)
	assert.Empty(t, res.Errors)

	d := Select(g, KeepShortestPath)
	assert.Equal(t, filepath.Join(root, "a.txt"), d.Original.Path)
}

func TestRunner_MultipleRootsOneMissing(t *testing.T) {
	r1, r2 := t.TempDir(), t.TempDir()
	writeTree(t, r1, map[string]string{"x.bin": "same-bytes"})
	writeTree(t, r2, map[string]string{"y.bin": "same-bytes"})

	r, err := New(Options{MinSize: 1})
	require.NoError(t, err)

	res, err := r.Run(context.Background(), []string{r1, filepath.Join(r1, "missing"), r2})
	require.NoError(t, err)
	require.Len(t, res.Groups, 1)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, entities.EnumerationError, res.Errors[0].Kind)
}

func TestRunner_NoScannableRoots(t *testing.T) {
	r, err := New(Options{})
	require.NoError(t, err)

	_, err = r.Run(context.Background(), []string{filepath.Join(t.TempDir(), "nope")})
	assert.ErrorIs(t, err, entities.ErrNoScannableRoots)
}

func TestRunner_ZeroByteFilesWithMinSizeOne(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"z1": "", "z2": ""})

	r, err := New(Options{MinSize: 1})
	require.NoError(t, err)

	res, err := r.Run(context.Background(), []string{root})
	require.NoError(t, err)
	assert.Empty(t, res.Groups)
	assert.Zero(t, res.TotalFilesScanned)
}

func TestNew_InvalidAlgorithm(t *testing.T) {
	_, err := New(Options{Algorithm: "crc32"})
	assert.Error(t, err)
}
