package syncer

import (
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// ExcludeList filters root-relative paths out of a snapshot. Patterns use
// doublestar globs; a matched directory prunes its whole subtree.
type ExcludeList struct {
	patterns []string
}

func NewExcludeList(patterns []string) (*ExcludeList, error) {
	for _, p := range patterns {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid exclude pattern %q", p)
		}
	}
	return &ExcludeList{patterns: patterns}, nil
}

func (e *ExcludeList) Match(rel string) bool {
	if rel == "" {
		return false
	}
	for _, p := range e.patterns {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}

// Partition splits a snapshot into kept and excluded entries. A matched
// directory takes its whole subtree into the excluded list. It relies on
// enumeration order: a directory's descendants follow it as a contiguous
// block. Both outputs keep the input's ascending order.
func (e *ExcludeList) Partition(entries []Entry) (kept, excluded []Entry) {
	if len(e.patterns) == 0 {
		return entries, nil
	}

	kept = entries[:0:0]
	skip := ""
	for _, entry := range entries {
		if skip != "" && strings.HasPrefix(entry.Path, skip) {
			excluded = append(excluded, entry)
			continue
		}
		skip = ""
		if e.Match(entry.Path) {
			skip = entry.Path + "/"
			excluded = append(excluded, entry)
			continue
		}
		kept = append(kept, entry)
	}
	return kept, excluded
}

// Filter drops excluded entries and everything nested under an excluded
// directory.
func (e *ExcludeList) Filter(entries []Entry) []Entry {
	kept, _ := e.Partition(entries)
	return kept
}
