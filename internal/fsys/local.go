package fsys

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// LocalFS is the local-machine adapter. It still carries the adb argv
// because materializing a remote file locally is an `adb pull`.
type LocalFS struct {
	adb      []string
	progress bool
	cache    map[string]*Metadata
}

func NewLocalFS(adb []string, progress bool) *LocalFS {
	return &LocalFS{
		adb:      adb,
		progress: progress,
		cache:    make(map[string]*Metadata),
	}
}

func (l *LocalFS) List(ctx context.Context, path string) ([]string, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("list %q: %w", path, ErrNotFound)
		}
		return nil, fmt.Errorf("list %q: %w", path, err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		// ReadDir hands us the lstat result for free, keep it for the
		// walker's per-entry StatNoFollow.
		if info, err := entry.Info(); err == nil {
			l.cache[filepath.Join(path, entry.Name())] = metaFromInfo(info)
		}
		names = append(names, entry.Name())
	}
	return names, nil
}

func (l *LocalFS) StatFollow(ctx context.Context, path string) (*Metadata, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, statErr(path, err)
	}
	return metaFromInfo(info), nil
}

func (l *LocalFS) StatNoFollow(ctx context.Context, path string) (*Metadata, error) {
	if meta, ok := l.cache[path]; ok {
		return meta, nil
	}
	info, err := os.Lstat(path)
	if err != nil {
		return nil, statErr(path, err)
	}
	meta := metaFromInfo(info)
	l.cache[path] = meta
	return meta, nil
}

func (l *LocalFS) DeleteFile(ctx context.Context, path string) error {
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("delete %q: %w", path, err)
	}
	return nil
}

func (l *LocalFS) DeleteEmptyDir(ctx context.Context, path string) error {
	// os.Remove uses rmdir for directories and fails on non-empty ones.
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("rmdir %q: %w", path, err)
	}
	return nil
}

func (l *LocalFS) MakeDirs(ctx context.Context, path string) error {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("mkdir %q: %w", path, err)
	}
	return nil
}

func (l *LocalFS) SetTimes(ctx context.Context, path string, atime, mtime int64) error {
	if err := os.Chtimes(path, time.Unix(atime, 0), time.Unix(mtime, 0)); err != nil {
		return fmt.Errorf("set times %q: %w", path, err)
	}
	return nil
}

// CopyInto pulls a file off the device. adb prints a single summary line
// per successful transfer; anything else means the pull went sideways.
func (l *LocalFS) CopyInto(ctx context.Context, src, dst string) error {
	if l.progress {
		if err := streamADB(ctx, l.adb, "pull", src, dst); err != nil {
			return fmt.Errorf("pull %q: %w", src, err)
		}
		return nil
	}
	lines, err := runADB(ctx, l.adb, "pull", src, dst)
	if err != nil {
		return fmt.Errorf("pull %q: %w", src, err)
	}
	for _, line := range lines {
		if !reFilePulled.MatchString(line) {
			return fmt.Errorf("pull %q: unexpected output: %q", src, line)
		}
	}
	return nil
}

func (l *LocalFS) SelfTest(ctx context.Context) bool {
	return true
}

func (l *LocalFS) Resolve(root, rel string) string {
	if rel == "" {
		return root
	}
	return filepath.Join(root, filepath.FromSlash(rel))
}

func (l *LocalFS) Reset() {
	l.cache = make(map[string]*Metadata)
}

func statErr(path string, err error) error {
	if os.IsNotExist(err) {
		return fmt.Errorf("stat %q: %w", path, ErrNotFound)
	}
	return fmt.Errorf("stat %q: %w", path, err)
}

func metaFromInfo(info os.FileInfo) *Metadata {
	mtime := info.ModTime().Unix()
	meta := &Metadata{
		// Portable os.FileInfo has no access time; mirror mtime.
		ATime: mtime,
		MTime: mtime,
	}
	mode := info.Mode()
	switch {
	case mode.IsDir():
		meta.Kind = KindDirectory
	case mode.IsRegular():
		meta.Kind = KindRegularFile
		meta.Size = info.Size()
	case mode&os.ModeSymlink != 0:
		meta.Kind = KindSymlink
	default:
		meta.Kind = KindOther
	}
	return meta
}
