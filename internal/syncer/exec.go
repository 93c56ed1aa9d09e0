package syncer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/openadb/adbsync/internal/fsys"
)

// Stats accumulates per-pair execution counters for the summary report.
type Stats struct {
	FilesCopied int
	DirsCreated int
	BytesCopied int64
	Deleted     int
	Skipped     int
}

// executor applies a Plan through the capabilities, one phase at a time:
// deletions, conflict clears, copies. A failed operation aborts the run;
// completed operations are not rolled back (re-running converges).
type executor struct {
	opts  Options
	stats Stats
}

func (x *executor) apply(ctx context.Context, sides *[2]side, plan *Plan) error {
	for i := range sides {
		if err := x.deleteAll(ctx, &sides[i], plan.deletes[i]); err != nil {
			return err
		}
	}
	for i := range sides {
		if err := x.deleteAll(ctx, &sides[i], plan.clears[i]); err != nil {
			return err
		}
	}
	for i := range sides {
		if !sides[i].dst {
			continue
		}
		if err := x.copyAll(ctx, &sides[1-i], &sides[i], plan.copies[i]); err != nil {
			return err
		}
	}
	return nil
}

func (x *executor) deleteAll(ctx context.Context, s *side, entries []Entry) error {
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		target := s.fs.Resolve(s.root, e.Path)
		slog.Info("removing", "path", target, "kind", e.Meta.Kind, "dry-run", x.opts.DryRun)
		if x.opts.DryRun {
			x.stats.Deleted++
			continue
		}

		var err error
		if e.Meta.Kind == fsys.KindDirectory {
			err = s.fs.DeleteEmptyDir(ctx, target)
		} else {
			err = s.fs.DeleteFile(ctx, target)
		}
		if err != nil {
			return fmt.Errorf("remove %q: %w", target, err)
		}
		x.stats.Deleted++
	}
	return nil
}

func (x *executor) copyAll(ctx context.Context, src, dst *side, entries []Entry) error {
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		srcPath := src.fs.Resolve(src.root, e.Path)
		dstPath := dst.fs.Resolve(dst.root, e.Path)

		switch e.Meta.Kind {
		case fsys.KindDirectory:
			slog.Info("making directory", "path", dstPath, "dry-run", x.opts.DryRun)
			if !x.opts.DryRun {
				if err := dst.fs.MakeDirs(ctx, dstPath); err != nil {
					return err
				}
			}
			x.stats.DirsCreated++

		case fsys.KindRegularFile:
			slog.Info("copying", "from", srcPath, "to", dstPath, "size", e.Meta.Size, "dry-run", x.opts.DryRun)
			if !x.opts.DryRun {
				if err := x.copyFile(ctx, dst, srcPath, dstPath, e.Meta); err != nil {
					return err
				}
			}
			x.stats.FilesCopied++
			x.stats.BytesCopied += e.Meta.Size

		default:
			// copyInto is defined over regular files; pushing a symlink
			// would silently dereference it on the other end.
			slog.Warn("not copying unsupported entry", "path", srcPath, "kind", e.Meta.Kind)
			x.stats.Skipped++
		}
	}
	return nil
}

// copyFile transfers one regular file. If the copy does not run to
// completion the destination is deleted before the error propagates, so a
// truncated file is never left looking like a finished one.
func (x *executor) copyFile(ctx context.Context, dst *side, srcPath, dstPath string, meta *fsys.Metadata) (err error) {
	complete := false
	defer func() {
		if complete {
			return
		}
		// Cleanup must survive the cancellation that got us here.
		cleanupCtx := context.WithoutCancel(ctx)
		if derr := dst.fs.DeleteFile(cleanupCtx, dstPath); derr != nil {
			slog.Warn("could not remove partial copy", "path", dstPath, "error", derr)
		} else {
			slog.Info("removed partial copy", "path", dstPath)
		}
	}()

	if err = dst.fs.CopyInto(ctx, srcPath, dstPath); err != nil {
		return fmt.Errorf("copy %q: %w", dstPath, err)
	}
	complete = true

	if x.opts.PreserveTimes {
		if err = dst.fs.SetTimes(ctx, dstPath, meta.ATime, meta.MTime); err != nil {
			return fmt.Errorf("set times %q: %w", dstPath, err)
		}
	}
	return nil
}
