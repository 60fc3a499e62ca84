package engine

import (
	"context"
	"crypto/sha256"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/cespare/xxhash/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soyunomas/dupesweep/internal/entities"
)

// fakeHasher resuelve contenido desde memoria y cuenta invocaciones.
type fakeHasher struct {
	content  map[string]string
	fail     map[string]bool
	hashes   atomic.Int64
	preHashs atomic.Int64
}

func (f *fakeHasher) Hash(ctx context.Context, path string) (entities.Digest, error) {
	f.hashes.Add(1)
	if f.fail[path] {
		return "", errors.New("permission denied")
	}
	sum := sha256.Sum256([]byte(f.content[path]))
	return entities.Digest(sum[:]), nil
}

func (f *fakeHasher) PreHash(ctx context.Context, path string) (uint64, error) {
	f.preHashs.Add(1)
	if f.fail[path] {
		return 0, errors.New("permission denied")
	}
	data := f.content[path]
	if len(data) > 4 {
		data = data[:4]
	}
	return xxhash.Sum64String(data), nil
}

func bucketsOf(content map[string]string, order ...string) entities.SizeBuckets {
	b := make(entities.SizeBuckets)
	for _, p := range order {
		b.Add(&entities.FileRecord{Path: p, Size: uint64(len(content[p]))})
	}
	return b
}

func paths(g *entities.DuplicateGroup) []string {
	var out []string
	for _, m := range g.Members {
		out = append(out, m.Path)
	}
	return out
}

func TestGroup_DistinctSizesNeverHashed(t *testing.T) {
	content := map[string]string{"/a": "1", "/b": "22", "/c": "333", "/d": "4444"}
	h := &fakeHasher{content: content}

	for _, pre := range []bool{true, false} {
		res, err := NewGrouper(h, GroupOptions{PreHash: pre}).
			Group(context.Background(), bucketsOf(content, "/a", "/b", "/c", "/d"))
		require.NoError(t, err)
		assert.Empty(t, res.Groups)
		assert.Zero(t, res.Candidates)
	}
	assert.Zero(t, h.hashes.Load())
	assert.Zero(t, h.preHashs.Load())
}

func TestGroup_HelloWorldScenario(t *testing.T) {
	content := map[string]string{"a.txt": "hello", "b.txt": "hello", "c.txt": "world"}
	h := &fakeHasher{content: content}

	res, err := NewGrouper(h, GroupOptions{Workers: 2}).
		Group(context.Background(), bucketsOf(content, "c.txt", "b.txt", "a.txt"))
	require.NoError(t, err)

	require.Len(t, res.Groups, 1)
	g := res.Groups[0]
	want := sha256.Sum256([]byte("hello"))
	assert.Equal(t, entities.Digest(want[:]), g.Digest)
	assert.Equal(t, uint64(5), g.Size)
	assert.Equal(t, []string{"a.txt", "b.txt"}, paths(g))
	assert.Equal(t, 3, res.Hashed, "same-size file c.txt is hashed but forms no group")
	assert.Empty(t, res.Errors)
}

func TestGroup_SameSizeDifferentContent(t *testing.T) {
	content := map[string]string{"/x": "aaaa", "/y": "bbbb", "/z": "cccc"}
	h := &fakeHasher{content: content}

	res, err := NewGrouper(h, GroupOptions{}).
		Group(context.Background(), bucketsOf(content, "/x", "/y", "/z"))
	require.NoError(t, err)
	assert.Empty(t, res.Groups)
	assert.Empty(t, res.Errors)
}

func TestGroup_ReadFailureDropsOnlyThatRecord(t *testing.T) {
	content := map[string]string{"/a": "same", "/b": "same", "/c": "same"}
	h := &fakeHasher{content: content, fail: map[string]bool{"/b": true}}

	res, err := NewGrouper(h, GroupOptions{}).
		Group(context.Background(), bucketsOf(content, "/a", "/b", "/c"))
	require.NoError(t, err)

	require.Len(t, res.Groups, 1)
	assert.Equal(t, []string{"/a", "/c"}, paths(res.Groups[0]))
	require.Len(t, res.Errors, 1)
	assert.Equal(t, entities.ReadError, res.Errors[0].Kind)
	assert.Equal(t, "/b", res.Errors[0].Path)
}

func TestGroup_AllMembersFailNoGroup(t *testing.T) {
	content := map[string]string{"/a": "same", "/b": "same"}
	h := &fakeHasher{content: content, fail: map[string]bool{"/a": true, "/b": true}}

	for _, pre := range []bool{true, false} {
		res, err := NewGrouper(h, GroupOptions{PreHash: pre}).
			Group(context.Background(), bucketsOf(content, "/a", "/b"))
		require.NoError(t, err)
		assert.Empty(t, res.Groups)
		assert.Len(t, res.Errors, 2)
	}
}

func TestGroup_PreHashSkipsFullHashForUniqueHeads(t *testing.T) {
	content := map[string]string{
		"/a": "headXXXX", "/b": "headXXXX", // mismo contenido
		"/c": "diffYYYY", // mismo tamaño, cabecera distinta
	}
	h := &fakeHasher{content: content}

	res, err := NewGrouper(h, GroupOptions{PreHash: true}).
		Group(context.Background(), bucketsOf(content, "/a", "/b", "/c"))
	require.NoError(t, err)

	require.Len(t, res.Groups, 1)
	assert.Equal(t, []string{"/a", "/b"}, paths(res.Groups[0]))
	assert.Equal(t, int64(3), h.preHashs.Load())
	assert.Equal(t, int64(2), h.hashes.Load(), "/c must not be fully hashed")
}

func TestGroup_IndependentOfTraversalOrder(t *testing.T) {
	content := map[string]string{
		"/1": "alpha", "/2": "alpha", "/3": "bravo", "/4": "bravo",
		"/5": "xy", "/6": "xy", "/7": "zz",
	}
	h := &fakeHasher{content: content}
	g := NewGrouper(h, GroupOptions{Workers: 3, PreHash: true})

	r1, err := g.Group(context.Background(), bucketsOf(content, "/1", "/2", "/3", "/4", "/5", "/6", "/7"))
	require.NoError(t, err)
	r2, err := g.Group(context.Background(), bucketsOf(content, "/7", "/6", "/4", "/5", "/3", "/2", "/1"))
	require.NoError(t, err)

	require.Len(t, r1.Groups, 3)
	require.Equal(t, len(r1.Groups), len(r2.Groups))
	for i := range r1.Groups {
		assert.Equal(t, r1.Groups[i].Digest, r2.Groups[i].Digest)
		assert.Equal(t, paths(r1.Groups[i]), paths(r2.Groups[i]))
	}
	assert.Equal(t, uint64(5), r1.Groups[0].Size, "larger groups first")
}

func TestGroup_CancelledContext(t *testing.T) {
	content := map[string]string{"/a": "same", "/b": "same"}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewGrouper(&cancelHasher{}, GroupOptions{}).Group(ctx, bucketsOf(content, "/a", "/b"))
	assert.ErrorIs(t, err, context.Canceled)
}

type cancelHasher struct{}

func (cancelHasher) Hash(ctx context.Context, path string) (entities.Digest, error) {
	return "", ctx.Err()
}

func (cancelHasher) PreHash(ctx context.Context, path string) (uint64, error) {
	return 0, ctx.Err()
}
