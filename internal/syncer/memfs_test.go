package syncer

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/openadb/adbsync/internal/fsys"
)

// memFS is an in-memory FileSystem for engine tests. Mutating calls are
// recorded in ops so tests can assert exactly what a run touched.
type memFS struct {
	files    map[string]*fsys.Metadata
	peer     *memFS
	ops      []string
	failCopy map[string]error // dst path -> injected error, leaves a partial file behind
	offline  bool
}

func newMemFS() *memFS {
	return &memFS{
		files:    make(map[string]*fsys.Metadata),
		failCopy: make(map[string]error),
	}
}

func linkPeers(a, b *memFS) {
	a.peer = b
	b.peer = a
}

func (m *memFS) addDir(p string, mtime int64) {
	m.files[p] = &fsys.Metadata{Kind: fsys.KindDirectory, ATime: mtime, MTime: mtime}
}

func (m *memFS) addFile(p string, size, mtime int64) {
	m.files[p] = &fsys.Metadata{Kind: fsys.KindRegularFile, Size: size, ATime: mtime, MTime: mtime}
}

func (m *memFS) addSymlink(p string, mtime int64) {
	m.files[p] = &fsys.Metadata{Kind: fsys.KindSymlink, ATime: mtime, MTime: mtime}
}

func (m *memFS) addOther(p string, mtime int64) {
	m.files[p] = &fsys.Metadata{Kind: fsys.KindOther, ATime: mtime, MTime: mtime}
}

func (m *memFS) has(p string) bool {
	_, ok := m.files[p]
	return ok
}

func (m *memFS) mutations() []string {
	return m.ops
}

func (m *memFS) clearOps() {
	m.ops = nil
}

func (m *memFS) List(ctx context.Context, p string) ([]string, error) {
	meta, ok := m.files[p]
	if !ok || meta.Kind != fsys.KindDirectory {
		return nil, fsys.ErrNotFound
	}
	var names []string
	for k := range m.files {
		if path.Dir(k) == p && k != p {
			names = append(names, path.Base(k))
		}
	}
	sort.Strings(names)
	return names, nil
}

func (m *memFS) StatFollow(ctx context.Context, p string) (*fsys.Metadata, error) {
	return m.StatNoFollow(ctx, p)
}

func (m *memFS) StatNoFollow(ctx context.Context, p string) (*fsys.Metadata, error) {
	meta, ok := m.files[p]
	if !ok {
		return nil, fsys.ErrNotFound
	}
	clone := *meta
	return &clone, nil
}

func (m *memFS) DeleteFile(ctx context.Context, p string) error {
	meta, ok := m.files[p]
	if !ok {
		return fmt.Errorf("rm %q: %w", p, fsys.ErrNotFound)
	}
	if meta.Kind == fsys.KindDirectory {
		return fmt.Errorf("rm %q: is a directory", p)
	}
	delete(m.files, p)
	m.ops = append(m.ops, "rm "+p)
	return nil
}

func (m *memFS) DeleteEmptyDir(ctx context.Context, p string) error {
	meta, ok := m.files[p]
	if !ok || meta.Kind != fsys.KindDirectory {
		return fmt.Errorf("rmdir %q: not a directory", p)
	}
	for k := range m.files {
		if strings.HasPrefix(k, p+"/") {
			return fmt.Errorf("rmdir %q: not empty", p)
		}
	}
	delete(m.files, p)
	m.ops = append(m.ops, "rmdir "+p)
	return nil
}

func (m *memFS) MakeDirs(ctx context.Context, p string) error {
	for cur := p; ; cur = path.Dir(cur) {
		if meta, ok := m.files[cur]; ok && meta.Kind != fsys.KindDirectory {
			return fmt.Errorf("mkdir %q: %q exists and is not a directory", p, cur)
		}
		if cur == "/" || cur == "." {
			break
		}
	}
	for cur := p; cur != "/" && cur != "."; cur = path.Dir(cur) {
		if !m.has(cur) {
			m.addDir(cur, 0)
		}
	}
	m.ops = append(m.ops, "mkdir "+p)
	return nil
}

func (m *memFS) SetTimes(ctx context.Context, p string, atime, mtime int64) error {
	meta, ok := m.files[p]
	if !ok {
		return fmt.Errorf("touch %q: %w", p, fsys.ErrNotFound)
	}
	meta.ATime = atime
	meta.MTime = mtime
	m.ops = append(m.ops, "touch "+p)
	return nil
}

func (m *memFS) CopyInto(ctx context.Context, src, dst string) error {
	m.ops = append(m.ops, fmt.Sprintf("copy %s -> %s", src, dst))
	if err, ok := m.failCopy[dst]; ok {
		// Interrupted mid-transfer: a truncated artifact is left behind.
		m.addFile(dst, 0, 0)
		return err
	}
	meta, ok := m.peer.files[src]
	if !ok || meta.Kind != fsys.KindRegularFile {
		return fmt.Errorf("copy %q: not a regular file", src)
	}
	clone := *meta
	m.files[dst] = &clone
	return nil
}

func (m *memFS) SelfTest(ctx context.Context) bool {
	return !m.offline
}

func (m *memFS) Resolve(root, rel string) string {
	if rel == "" {
		return root
	}
	return path.Join(root, rel)
}

func (m *memFS) Reset() {}
