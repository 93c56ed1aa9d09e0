package fsys

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Toybox/busybox `ls -la` line. The middle group lazily swallows whatever
// sits between owner/group and the timestamp: a size for files, a size or
// nothing for directories, "major, minor" for devices.
var reLsLine = regexp.MustCompile(
	`^([-bcdlps])` +
		`[-r][-w][-xsS][-r][-w][-xsS][-r][-w][-xtT]\+?` +
		`\s+(?:\d+\s+)?` + // hard link count, absent on older ls
		`\S+\s+\S+\s+` + // owner, group
		`(.*?)` +
		`(\d{4}-\d{2}-\d{2} \d{2}:\d{2})` +
		` (.*)$`)

var (
	reLsTotal    = regexp.MustCompile(`^total \d+$`)
	reNoSuchFile = regexp.MustCompile(`^.*: No such file or directory$`)
	reNotADir    = regexp.MustCompile(`^ls: .*: Not a directory$`)
)

const symlinkArrow = " -> "

const lsTimeLayout = "2006-01-02 15:04"

// parseLsLine decodes one `ls -la` output line into an entry name and its
// metadata. Device timestamps only carry minute precision; atime is not
// reported at all, so it mirrors mtime.
func parseLsLine(line string) (string, *Metadata, error) {
	if reNoSuchFile.MatchString(line) || reNotADir.MatchString(line) {
		return "", nil, ErrNotFound
	}

	m := reLsLine.FindStringSubmatch(line)
	if m == nil {
		return "", nil, fmt.Errorf("%w: %q", ErrUnparseable, line)
	}
	typ, middle, stamp, name := m[1], m[2], m[3], m[4]

	mtime, err := time.ParseInLocation(lsTimeLayout, stamp, time.Local)
	if err != nil {
		return "", nil, fmt.Errorf("%w: bad timestamp in %q", ErrUnparseable, line)
	}

	meta := &Metadata{
		ATime: mtime.Unix(),
		MTime: mtime.Unix(),
	}

	switch typ {
	case "-":
		size, err := strconv.ParseInt(strings.TrimSpace(middle), 10, 64)
		if err != nil {
			return "", nil, fmt.Errorf("%w: bad size in %q", ErrUnparseable, line)
		}
		meta.Kind = KindRegularFile
		meta.Size = size
	case "d":
		meta.Kind = KindDirectory
	case "l":
		meta.Kind = KindSymlink
		// "name -> target"; the target half is noise here.
		if idx := strings.Index(name, symlinkArrow); idx >= 0 {
			name = name[:idx]
		}
	default:
		// block/char devices, fifos, sockets
		meta.Kind = KindOther
	}

	if name == "" {
		return "", nil, fmt.Errorf("%w: empty name in %q", ErrUnparseable, line)
	}
	return name, meta, nil
}

func isNotFoundLine(err error) bool {
	return errors.Is(err, ErrNotFound)
}
