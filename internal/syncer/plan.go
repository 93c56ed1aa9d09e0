package syncer

import (
	"log/slog"
	"strings"

	"github.com/openadb/adbsync/internal/fsys"
)

// Side indexes within a run; policy code is generic over them.
const (
	sideLocal = iota
	sideRemote
)

// side binds one endpoint's role for a run: its capability, its root, the
// directions it participates in, and its slice of the diff. extra holds
// entries present only here (deletion candidates when this side is a pure
// destination); fresh holds entries present only on the counterpart
// (materialized here during the copy phase when this side is a destination).
type side struct {
	fs       fsys.FileSystem
	root     string
	src      bool
	dst      bool
	extra    []Entry
	fresh    []Entry
	excluded []Entry
}

// Plan is the ordered outcome of policy evaluation, consumed once by the
// executor. deletes and clears are deepest-first; copies are parent-first.
type Plan struct {
	deletes [2][]Entry
	clears  [2][]Entry
	copies  [2][]Entry
}

// buildPlan runs the deletion and conflict phases of the policy engine
// over the diff and lays out the copy phase. sides is mutated: conflict
// resolution moves entries between the only-lists.
func buildPlan(sides *[2]side, common []Pair, opts Options) *Plan {
	plan := &Plan{}
	planDeletions(sides, common, opts, plan)
	planConflicts(sides, common, opts, plan)
	for i := range sides {
		if sides[i].dst {
			plan.copies[i] = sides[i].fresh
		}
	}
	return plan
}

// planDeletions schedules destination entries for removal, deepest first
// so directories empty out before their own rmdir. With delete the
// extraneous entries go; with delete-excluded the excluded entries go too
// (or alone). A destination that shares nothing with the source and has no
// extras of its own is almost certainly a mistyped root; refuse to touch it.
func planDeletions(sides *[2]side, common []Pair, opts Options, plan *Plan) {
	if !opts.Delete && !opts.DeleteExcluded {
		return
	}
	for i := range sides {
		s := &sides[i]
		if !s.dst || s.src {
			continue
		}
		if opts.Delete && len(s.extra) == 0 && len(common) == 0 {
			slog.Error("refusing to delete: destination shares no paths with source", "root", s.root)
			continue
		}

		var doomed []Entry
		if opts.Delete {
			doomed = s.extra
			if !opts.DeleteExcluded {
				// An extraneous directory sheltering excluded entries
				// must survive; its rmdir would fail anyway.
				doomed = withoutExcludedSupport(doomed, s.excluded)
			}
		}
		if opts.DeleteExcluded {
			doomed = mergeByPath(doomed, s.excluded)
		}
		plan.deletes[i] = reversed(doomed)
	}
}

func planConflicts(sides *[2]side, common []Pair, opts Options, plan *Plan) {
	for _, p := range common {
		metas := [2]*fsys.Metadata{p.Left, p.Right}
		dirs := [2]bool{p.Left.Kind == fsys.KindDirectory, p.Right.Kind == fsys.KindDirectory}

		if dirs[0] && dirs[1] {
			// Structurally equivalent whatever their metadata says.
			continue
		}
		typeMismatch := dirs[0] != dirs[1]
		if !typeMismatch &&
			p.Left.Kind == fsys.KindRegularFile && p.Right.Kind == fsys.KindRegularFile &&
			p.Left.Size == p.Right.Size {
			// Equal-size regular files are in sync; no content hashing.
			continue
		}

		// Direction eligibility: enabled[i] means "write into side i".
		enabled := [2]bool{sides[0].dst, sides[1].dst}
		if enabled[0] && enabled[1] && !typeMismatch {
			// Two-way: the strictly newer minute wins. Device stamps only
			// carry minute precision, so truncate before comparing.
			m := [2]int64{metas[0].MTime / 60, metas[1].MTime / 60}
			if m[0] > m[1] {
				enabled[0] = false
			} else if m[1] > m[0] {
				enabled[1] = false
			}
		}

		if enabled[0] && enabled[1] {
			slog.Warn("unresolvable conflict, skipping",
				"path", p.Path, "left", p.Left.Kind, "right", p.Right.Kind)
			continue
		}
		if !enabled[0] && !enabled[1] {
			continue
		}

		dst := 0
		if enabled[1] {
			dst = 1
		}
		src := 1 - dst

		// Only directories and regular files can be recreated on the
		// destination. Clearing the loser for a symlink or device winner
		// would remove data nothing can replace.
		if metas[src].Kind != fsys.KindDirectory && metas[src].Kind != fsys.KindRegularFile {
			slog.Warn("skipping conflict with uncopyable source",
				"path", p.Path, "kind", metas[src].Kind)
			continue
		}

		if typeMismatch && !opts.Force {
			slog.Warn("skipping type conflict (use --force to replace)",
				"path", p.Path, "have", metas[dst].Kind, "want", metas[src].Kind)
			continue
		}
		if opts.NoClobber {
			slog.Warn("skipping existing destination (--no-clobber)", "path", p.Path)
			continue
		}

		clearDestination(&sides[dst], dst, p.Path, metas[dst], plan)

		// Recreate it fresh in the copy phase, ahead of any descendants.
		sides[dst].fresh = append([]Entry{{Path: p.Path, Meta: metas[src]}}, sides[dst].fresh...)
	}
}

// clearDestination schedules the removal of the losing entry. Replacing a
// directory first claims everything nested under it from the deletion
// lists so nothing is deleted twice, then removes deepest-first before the
// directory itself.
func clearDestination(s *side, i int, path string, meta *fsys.Metadata, plan *Plan) {
	if meta.Kind != fsys.KindDirectory {
		plan.clears[i] = append(plan.clears[i], Entry{Path: path, Meta: meta})
		return
	}

	prefix := path + "/"
	var nested, remaining []Entry
	for _, e := range s.extra {
		if strings.HasPrefix(e.Path, prefix) {
			nested = append(nested, e)
		} else {
			remaining = append(remaining, e)
		}
	}
	s.extra = remaining
	plan.deletes[i] = withoutPrefix(plan.deletes[i], prefix)

	plan.clears[i] = append(plan.clears[i], reversed(nested)...)
	plan.clears[i] = append(plan.clears[i], Entry{Path: path, Meta: meta})
}

func withoutExcludedSupport(entries, excluded []Entry) []Entry {
	if len(excluded) == 0 {
		return entries
	}
	out := entries[:0:0]
	for _, e := range entries {
		if e.Meta.Kind == fsys.KindDirectory && hasNested(excluded, e.Path+"/") {
			continue
		}
		out = append(out, e)
	}
	return out
}

func hasNested(entries []Entry, prefix string) bool {
	for _, e := range entries {
		if strings.HasPrefix(e.Path, prefix) {
			return true
		}
	}
	return false
}

// mergeByPath merges two ascending, disjoint entry lists into one
// ascending list.
func mergeByPath(a, b []Entry) []Entry {
	out := make([]Entry, 0, len(a)+len(b))
	for len(a) > 0 && len(b) > 0 {
		if a[0].Path < b[0].Path {
			out = append(out, a[0])
			a = a[1:]
		} else {
			out = append(out, b[0])
			b = b[1:]
		}
	}
	out = append(out, a...)
	return append(out, b...)
}

func withoutPrefix(entries []Entry, prefix string) []Entry {
	out := entries[:0:0]
	for _, e := range entries {
		if !strings.HasPrefix(e.Path, prefix) {
			out = append(out, e)
		}
	}
	return out
}

func reversed(entries []Entry) []Entry {
	out := make([]Entry, len(entries))
	for i, e := range entries {
		out[len(entries)-1-i] = e
	}
	return out
}
