package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/openadb/adbsync/internal/fsys"
)

// Options is the per-invocation sync configuration.
type Options struct {
	Pull           bool // remote is the source
	TwoWay         bool // both directions, newer minute wins
	Delete         bool // remove destination extras
	DeleteExcluded bool // remove destination entries matched by excludes
	Force          bool // allow directory<->file replacement
	NoClobber      bool // never overwrite existing destination entries
	CopyLinks      bool // follow symlinks while enumerating
	PreserveTimes  bool // carry atime/mtime to the destination
	DryRun         bool // plan and log, touch nothing
	Excludes       []string
}

var errSelfTest = errors.New("connectivity self-test failed")

// Run executes every path pair as an independent sync run. Configuration
// conflicts and a failed connectivity probe abort the whole invocation;
// one pair's failure is logged and does not stop the rest.
func Run(ctx context.Context, local, remote fsys.FileSystem, pairs []PathPair, opts Options) error {
	if err := validatePairs(pairs, opts); err != nil {
		return err
	}

	excludes, err := NewExcludeList(opts.Excludes)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrConfigConflict, err)
	}

	if !local.SelfTest(ctx) || !remote.SelfTest(ctx) {
		return errSelfTest
	}

	var firstErr error
	for _, pair := range pairs {
		if err := runPair(ctx, local, remote, pair, excludes, opts); err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			slog.Error("sync failed", "local", pair.Local, "remote", pair.Remote, "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func runPair(ctx context.Context, local, remote fsys.FileSystem, pair PathPair, excludes *ExcludeList, opts Options) error {
	started := time.Now()

	// Snapshots are never reused across runs.
	local.Reset()
	remote.Reset()

	sides := [2]side{
		{fs: local, root: pair.Local},
		{fs: remote, root: pair.Remote},
	}
	switch {
	case opts.TwoWay:
		sides[sideLocal].src, sides[sideLocal].dst = true, true
		sides[sideRemote].src, sides[sideRemote].dst = true, true
	case opts.Pull:
		sides[sideRemote].src = true
		sides[sideLocal].dst = true
	default:
		sides[sideLocal].src = true
		sides[sideRemote].dst = true
	}

	localTree, err := Walk(ctx, local, pair.Local, opts.CopyLinks)
	if err != nil {
		return fmt.Errorf("scan %q: %w", pair.Local, err)
	}
	remoteTree, err := Walk(ctx, remote, pair.Remote, opts.CopyLinks)
	if err != nil {
		return fmt.Errorf("scan %q: %w", pair.Remote, err)
	}
	localTree, sides[sideLocal].excluded = excludes.Partition(localTree)
	remoteTree, sides[sideRemote].excluded = excludes.Partition(remoteTree)

	diff := DiffTrees(localTree, remoteTree)
	sides[sideLocal].extra = diff.LeftOnly
	sides[sideRemote].fresh = diff.LeftOnly
	sides[sideRemote].extra = diff.RightOnly
	sides[sideLocal].fresh = diff.RightOnly

	plan := buildPlan(&sides, diff.Common, opts)

	x := &executor{opts: opts}
	err = x.apply(ctx, &sides, plan)

	elapsed := time.Since(started)
	slog.Info("sync finished",
		"local", pair.Local,
		"remote", pair.Remote,
		"copied", x.stats.FilesCopied,
		"dirs", x.stats.DirsCreated,
		"deleted", x.stats.Deleted,
		"bytes", humanize.Bytes(uint64(x.stats.BytesCopied)),
		"rate", transferRate(x.stats.BytesCopied, elapsed),
		"took", elapsed.Round(time.Millisecond),
	)
	return err
}

func transferRate(bytes int64, d time.Duration) string {
	secs := d.Seconds()
	if secs <= 0 || bytes == 0 {
		return "-"
	}
	return humanize.Bytes(uint64(float64(bytes)/secs)) + "/s"
}
