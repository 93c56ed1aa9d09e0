package syncer

import (
	"testing"

	"github.com/openadb/adbsync/internal/fsys"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entry(p string, kind fsys.EntryKind, size int64) Entry {
	return Entry{Path: p, Meta: &fsys.Metadata{Kind: kind, Size: size}}
}

func TestDiffTreesPartitions(t *testing.T) {
	left := []Entry{
		entry("", fsys.KindDirectory, 0),
		entry("a", fsys.KindDirectory, 0),
		entry("a/b.txt", fsys.KindRegularFile, 1),
		entry("only-left.txt", fsys.KindRegularFile, 2),
	}
	right := []Entry{
		entry("", fsys.KindDirectory, 0),
		entry("a", fsys.KindDirectory, 0),
		entry("a/b.txt", fsys.KindRegularFile, 9),
		entry("only-right.txt", fsys.KindRegularFile, 3),
	}

	d := DiffTrees(left, right)

	require.Len(t, d.LeftOnly, 1)
	assert.Equal(t, "only-left.txt", d.LeftOnly[0].Path)
	require.Len(t, d.RightOnly, 1)
	assert.Equal(t, "only-right.txt", d.RightOnly[0].Path)

	var commonPaths []string
	for _, p := range d.Common {
		commonPaths = append(commonPaths, p.Path)
	}
	assert.Equal(t, []string{"", "a", "a/b.txt"}, commonPaths)

	// Each common pair carries both sides' original metadata.
	assert.Equal(t, int64(1), d.Common[2].Left.Size)
	assert.Equal(t, int64(9), d.Common[2].Right.Size)
}

func TestDiffTreesCoversUnionDisjointly(t *testing.T) {
	left := []Entry{
		entry("a", fsys.KindRegularFile, 0),
		entry("b", fsys.KindRegularFile, 0),
		entry("d", fsys.KindRegularFile, 0),
	}
	right := []Entry{
		entry("b", fsys.KindRegularFile, 0),
		entry("c", fsys.KindRegularFile, 0),
		entry("e", fsys.KindRegularFile, 0),
	}

	d := DiffTrees(left, right)

	seen := map[string]int{}
	for _, e := range d.LeftOnly {
		seen[e.Path]++
	}
	for _, e := range d.RightOnly {
		seen[e.Path]++
	}
	for _, p := range d.Common {
		seen[p.Path]++
	}

	union := map[string]bool{"a": true, "b": true, "c": true, "d": true, "e": true}
	require.Len(t, seen, len(union))
	for p, n := range seen {
		assert.True(t, union[p], p)
		assert.Equal(t, 1, n, "path %q must land in exactly one partition", p)
	}
}

func TestDiffTreesEmptySides(t *testing.T) {
	d := DiffTrees(nil, nil)
	assert.Empty(t, d.LeftOnly)
	assert.Empty(t, d.Common)
	assert.Empty(t, d.RightOnly)

	left := []Entry{entry("x", fsys.KindRegularFile, 0)}
	d = DiffTrees(left, nil)
	require.Len(t, d.LeftOnly, 1)
	assert.Empty(t, d.RightOnly)
}

func TestDiffTreesOutputKeepsParentFirstOrder(t *testing.T) {
	left := []Entry{
		entry("a/b/c", fsys.KindRegularFile, 0),
		entry("a", fsys.KindDirectory, 0),
		entry("a/b", fsys.KindDirectory, 0),
	}
	d := DiffTrees(left, nil)

	var paths []string
	for _, e := range d.LeftOnly {
		paths = append(paths, e.Path)
	}
	assert.Equal(t, []string{"a", "a/b", "a/b/c"}, paths)
}
