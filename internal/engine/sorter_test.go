package engine

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soyunomas/dupesweep/internal/entities"
)

func groupOf(files ...*entities.FileRecord) *entities.DuplicateGroup {
	return &entities.DuplicateGroup{Digest: "d", Size: 5, Members: files}
}

func rec(path string) *entities.FileRecord {
	return &entities.FileRecord{Path: path, Size: 5}
}

func TestSelect_ShortestThenLexicographic(t *testing.T) {
	tests := []struct {
		name  string
		paths []string
		want  string
	}{
		{"hello scenario", []string{"b.txt", "a.txt"}, "a.txt"},
		{"shorter wins", []string{"/data/copy of photo.jpg", "/data/photo.jpg"}, "/data/photo.jpg"},
		{"equal length lexicographic", []string{"/z/f", "/a/f", "/m/f"}, "/a/f"},
		{"deep tree", []string{"/r/x/y/z/file", "/r/file", "/r/x/file"}, "/r/file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var members []*entities.FileRecord
			for _, p := range tt.paths {
				members = append(members, rec(p))
			}
			d := Select(groupOf(members...), KeepShortestPath)
			require.NotNil(t, d.Original)
			assert.Equal(t, tt.want, d.Original.Path)
			assert.Len(t, d.Removals, len(tt.paths)-1)
			for _, r := range d.Removals {
				assert.NotEqual(t, d.Original.Path, r.Path)
			}
		})
	}
}

func TestSelect_StableUnderPermutation(t *testing.T) {
	base := []string{"/b/dup.txt", "/a/dup.txt", "/dup.txt", "/c/d/dup.txt", "/aa/dup.txt"}
	rng := rand.New(rand.NewSource(42))

	for _, strategy := range []KeepStrategy{KeepShortestPath, KeepLongestPath, KeepOldest, KeepNewest} {
		var first string
		for i := 0; i < 20; i++ {
			perm := rng.Perm(len(base))
			var members []*entities.FileRecord
			for _, j := range perm {
				members = append(members, rec(base[j]))
			}
			d := Select(groupOf(members...), strategy)
			if i == 0 {
				first = d.Original.Path
			}
			assert.Equal(t, first, d.Original.Path, strategy.String())
		}
	}
}

func TestSelect_DoesNotMutateGroup(t *testing.T) {
	g := groupOf(rec("/long/path/x"), rec("/x"))
	_ = Select(g, KeepShortestPath)
	assert.Equal(t, "/long/path/x", g.Members[0].Path)
}

func TestSelect_Strategies(t *testing.T) {
	old := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	mid := old.Add(24 * time.Hour)
	newer := old.Add(48 * time.Hour)

	members := []*entities.FileRecord{
		{Path: "/short", Size: 5, ModTime: mid},
		{Path: "/much/longer/path", Size: 5, ModTime: newer},
		{Path: "/mid/path", Size: 5, ModTime: old},
	}

	tests := []struct {
		strategy KeepStrategy
		want     string
	}{
		{KeepShortestPath, "/short"},
		{KeepLongestPath, "/much/longer/path"},
		{KeepOldest, "/mid/path"},
		{KeepNewest, "/much/longer/path"},
	}
	for _, tt := range tests {
		t.Run(tt.strategy.String(), func(t *testing.T) {
			d := Select(groupOf(members...), tt.strategy)
			assert.Equal(t, tt.want, d.Original.Path)
		})
	}
}

func TestSelect_SameModTimeFallsBackToShortest(t *testing.T) {
	ts := time.Unix(1700000000, 0)
	d := Select(groupOf(
		&entities.FileRecord{Path: "/bb", ModTime: ts},
		&entities.FileRecord{Path: "/a", ModTime: ts},
	), KeepOldest)
	assert.Equal(t, "/a", d.Original.Path)
}

func TestPlan_OnePerGroup(t *testing.T) {
	groups := []*entities.DuplicateGroup{
		groupOf(rec("/a1"), rec("/a")),
		groupOf(rec("/b"), rec("/bb"), rec("/bbb")),
	}
	plan := Plan(groups, KeepShortestPath)
	require.Len(t, plan, 2)
	assert.Equal(t, "/a", plan[0].Original.Path)
	assert.Len(t, plan[0].Removals, 1)
	assert.Equal(t, "/b", plan[1].Original.Path)
	assert.Len(t, plan[1].Removals, 2)
}

func TestParseKeepStrategy(t *testing.T) {
	for _, name := range []string{"shortest", "LONGEST", "oldest", " newest "} {
		s, err := ParseKeepStrategy(name)
		require.NoError(t, err, name)
		assert.NotEqual(t, "unknown", s.String())
	}
	_, err := ParseKeepStrategy("random")
	assert.Error(t, err)
}
