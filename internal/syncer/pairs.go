package syncer

import (
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"strings"
)

// ErrConfigConflict covers mutually exclusive flags and path sets that
// cannot be combined. It is raised before any I/O happens.
var ErrConfigConflict = errors.New("conflicting configuration")

// PathPair is one independent sync run: a local root and a remote root.
type PathPair struct {
	Local  string
	Remote string
}

// BuildPairs maps CLI positional arguments to sync pairs. With several
// LOCAL arguments, or a REMOTE ending in "/", each source lands under
// REMOTE by its final name, following the cp-into-directory convention.
// Pull works on a single pair only.
func BuildPairs(locals []string, remote string, pull bool) ([]PathPair, error) {
	if len(locals) == 0 {
		return nil, fmt.Errorf("%w: no local path given", ErrConfigConflict)
	}
	if pull && len(locals) > 1 {
		return nil, fmt.Errorf("%w: pull accepts a single LOCAL path", ErrConfigConflict)
	}

	intoDir := len(locals) > 1 || strings.HasSuffix(remote, "/")
	remote = strings.TrimRight(remote, "/")
	if remote == "" {
		remote = "/"
	}

	pairs := make([]PathPair, 0, len(locals))
	for _, local := range locals {
		dst := remote
		if intoDir {
			dst = path.Join(remote, filepath.Base(local))
		}
		pairs = append(pairs, PathPair{Local: filepath.Clean(local), Remote: dst})
	}
	return pairs, nil
}

// validatePairs enforces the pre-scan global invariants: two-way and the
// deleting modes are mutually exclusive, and in any of those modes no two
// runs may target the same destination path.
func validatePairs(pairs []PathPair, opts Options) error {
	if opts.TwoWay && opts.Delete {
		return fmt.Errorf("%w: two-way sync and delete are mutually exclusive", ErrConfigConflict)
	}
	if opts.TwoWay && opts.DeleteExcluded {
		return fmt.Errorf("%w: two-way sync and delete-excluded are mutually exclusive", ErrConfigConflict)
	}
	if !opts.TwoWay && !opts.Delete && !opts.DeleteExcluded {
		return nil
	}

	locals := make(map[string]bool, len(pairs))
	remotes := make(map[string]bool, len(pairs))
	for _, p := range pairs {
		if remotes[p.Remote] {
			return fmt.Errorf("%w: duplicate destination %q", ErrConfigConflict, p.Remote)
		}
		remotes[p.Remote] = true
		if locals[p.Local] {
			return fmt.Errorf("%w: duplicate local path %q", ErrConfigConflict, p.Local)
		}
		locals[p.Local] = true
	}
	return nil
}
