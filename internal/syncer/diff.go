package syncer

import (
	"sort"

	"github.com/openadb/adbsync/internal/fsys"
)

// Pair is a path present in both snapshots, with each side's metadata.
type Pair struct {
	Path  string
	Left  *fsys.Metadata
	Right *fsys.Metadata
}

// Diff partitions two snapshots by path. The three partitions are disjoint
// and cover the union of both inputs; each output list is in ascending
// byte order, which preserves directory-before-descendant.
type Diff struct {
	LeftOnly  []Entry
	Common    []Pair
	RightOnly []Entry
}

// DiffTrees merges two path-unique snapshots. Both inputs are sorted
// descending so the merge can pop the smallest remaining path off each
// tail; byte-wise path comparison is the one canonical order.
func DiffTrees(left, right []Entry) *Diff {
	l := sortedDescending(left)
	r := sortedDescending(right)

	d := &Diff{}
	for len(l) > 0 && len(r) > 0 {
		lt, rt := l[len(l)-1], r[len(r)-1]
		switch {
		case lt.Path == rt.Path:
			d.Common = append(d.Common, Pair{Path: lt.Path, Left: lt.Meta, Right: rt.Meta})
			l = l[:len(l)-1]
			r = r[:len(r)-1]
		case lt.Path < rt.Path:
			d.LeftOnly = append(d.LeftOnly, lt)
			l = l[:len(l)-1]
		default:
			d.RightOnly = append(d.RightOnly, rt)
			r = r[:len(r)-1]
		}
	}
	for i := len(l) - 1; i >= 0; i-- {
		d.LeftOnly = append(d.LeftOnly, l[i])
	}
	for i := len(r) - 1; i >= 0; i-- {
		d.RightOnly = append(d.RightOnly, r[i])
	}
	return d
}

func sortedDescending(entries []Entry) []Entry {
	out := make([]Entry, len(entries))
	copy(out, entries)
	sort.Slice(out, func(i, j int) bool { return out[i].Path > out[j].Path })
	return out
}
