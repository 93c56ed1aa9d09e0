// Package syncer implements the sync core: tree enumeration, the ordered
// diff between two endpoint snapshots, the policy engine that turns a diff
// into an operation plan, and the executor that applies it.
package syncer

import (
	"context"
	"errors"
	"log/slog"

	"github.com/openadb/adbsync/internal/fsys"
)

// Entry is one enumerated tree node. Path is slash-separated and relative
// to the walk root; "" is the root itself. Within one snapshot paths are
// unique and a directory always precedes its descendants.
type Entry struct {
	Path string
	Meta *fsys.Metadata
}

// Walk enumerates the tree rooted at root. A missing root is a valid empty
// tree, not an error. Symlinks are yielded as leaves unless followLinks is
// set; device nodes, fifos and sockets are skipped with a diagnostic.
func Walk(ctx context.Context, fs fsys.FileSystem, root string, followLinks bool) ([]Entry, error) {
	meta, err := statEntry(ctx, fs, root, followLinks)
	if err != nil {
		if errors.Is(err, fsys.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	var out []Entry
	walkInto(ctx, fs, root, "", meta, followLinks, &out)
	return out, nil
}

func walkInto(ctx context.Context, fs fsys.FileSystem, abs, rel string, meta *fsys.Metadata, followLinks bool, out *[]Entry) {
	switch meta.Kind {
	case fsys.KindDirectory:
		*out = append(*out, Entry{Path: rel, Meta: meta})

		names, err := fs.List(ctx, abs)
		if err != nil {
			// Vanished mid-walk; its (former) contents are simply absent.
			if !errors.Is(err, fsys.ErrNotFound) {
				slog.Warn("cannot list directory", "path", abs, "error", err)
			}
			return
		}
		for _, name := range names {
			if name == "." || name == ".." {
				continue
			}
			childAbs := fs.Resolve(abs, name)
			childMeta, err := statEntry(ctx, fs, childAbs, followLinks)
			if err != nil {
				if !errors.Is(err, fsys.ErrNotFound) {
					slog.Warn("cannot stat entry", "path", childAbs, "error", err)
				}
				continue
			}
			walkInto(ctx, fs, childAbs, childRel(rel, name), childMeta, followLinks, out)
		}

	case fsys.KindRegularFile, fsys.KindSymlink:
		*out = append(*out, Entry{Path: rel, Meta: meta})

	default:
		slog.Warn("skipping unsupported entry", "path", abs, "kind", meta.Kind)
	}
}

func statEntry(ctx context.Context, fs fsys.FileSystem, path string, followLinks bool) (*fsys.Metadata, error) {
	if followLinks {
		return fs.StatFollow(ctx, path)
	}
	return fs.StatNoFollow(ctx, path)
}

func childRel(rel, name string) string {
	if rel == "" {
		return name
	}
	return rel + "/" + name
}
