// Package fsys defines the narrow filesystem capability used by the sync
// engine, with one adapter for the local machine and one for an Android
// device reached through adb.
package fsys

import (
	"context"
	"errors"
)

var (
	// ErrNotFound marks entries that vanished or never existed. The engine
	// treats it as "empty tree" during enumeration, not as a failure.
	ErrNotFound = errors.New("no such file or directory")

	// ErrUnparseable marks a remote listing line that could not be decoded.
	// The offending line is skipped; listing continues.
	ErrUnparseable = errors.New("unparseable listing line")
)

type EntryKind uint8

const (
	KindOther EntryKind = iota
	KindDirectory
	KindRegularFile
	KindSymlink
)

var kindNames = []string{"other", "directory", "file", "symlink"}

func (k EntryKind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Metadata is the per-entry stat result. Size is meaningful only for
// regular files. Times are unix seconds; the adb adapter only has minute
// granularity to offer.
type Metadata struct {
	Kind  EntryKind
	Size  int64
	ATime int64
	MTime int64
}

// FileSystem is one endpoint of a sync. Implementations cache stat results
// produced by List for reuse by StatNoFollow within a run; Reset drops
// that cache between runs.
type FileSystem interface {
	// List returns the entry names of a directory. Fails with ErrNotFound
	// if path is absent or not a directory.
	List(ctx context.Context, path string) ([]string, error)

	// StatFollow stats path, resolving symlinks.
	StatFollow(ctx context.Context, path string) (*Metadata, error)

	// StatNoFollow stats path without resolving symlinks.
	StatNoFollow(ctx context.Context, path string) (*Metadata, error)

	// DeleteFile removes a regular file or symlink.
	DeleteFile(ctx context.Context, path string) error

	// DeleteEmptyDir removes a directory; fails if it is not empty.
	DeleteEmptyDir(ctx context.Context, path string) error

	// MakeDirs creates path and any missing ancestors. Idempotent.
	MakeDirs(ctx context.Context, path string) error

	// SetTimes sets access and modification time, unix seconds.
	SetTimes(ctx context.Context, path string, atime, mtime int64) error

	// CopyInto copies a regular file from the counterpart endpoint at src
	// to dst on this endpoint.
	CopyInto(ctx context.Context, src, dst string) error

	// SelfTest probes connectivity to the endpoint.
	SelfTest(ctx context.Context) bool

	// Resolve joins a root and a slash-separated relative path using this
	// endpoint's separator conventions. rel == "" resolves to root.
	Resolve(root, rel string) string

	// Reset invalidates the per-run metadata cache.
	Reset()
}
