package fsys

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path"
	"regexp"
	"strings"
	"time"
)

var (
	reFilePushed = regexp.MustCompile(`^.*: 1 file pushed, 0 skipped\..*$`)
	reFilePulled = regexp.MustCompile(`^.*: 1 file pulled, 0 skipped\..*$`)

	reNoDevice       = regexp.MustCompile(`^adb: no devices/emulators found$`)
	reDaemonStarting = regexp.MustCompile(`^\* daemon not running; starting now at tcp:\d+$`)
	reDaemonStarted  = regexp.MustCompile(`^\* daemon started successfully$`)
)

// Shell metacharacters that survive adb's argv join and must be escaped
// before they hit the device's shell.
var shellEscaper = strings.NewReplacer(
	" ", `\ `,
	"'", `\'`,
	"(", `\(`,
	")", `\)`,
	"!", `\!`,
	"&", `\&`,
)

// AdbFS is the device adapter. Every operation is an `adb shell` command;
// directory listings are decoded from toybox `ls -la` output.
type AdbFS struct {
	adb      []string
	progress bool
	cache    map[string]*Metadata
}

// NewAdbFS builds a device adapter. adb is the full invocation prefix:
// binary plus any -flags/-options to route to a specific device. With
// progress set, transfers stream adb's own output to the terminal.
func NewAdbFS(adb []string, progress bool) *AdbFS {
	return &AdbFS{
		adb:      adb,
		progress: progress,
		cache:    make(map[string]*Metadata),
	}
}

func (a *AdbFS) List(ctx context.Context, dir string) ([]string, error) {
	lines, err := a.shell(ctx, "ls", "-la", escapePath(dir))
	if err != nil {
		return nil, fmt.Errorf("list %q: %w", dir, err)
	}

	var names []string
	for _, line := range lines {
		if reLsTotal.MatchString(line) {
			continue
		}
		name, meta, err := parseLsLine(line)
		switch {
		case err == nil:
			// `ls -la FILE` answers with the file itself, full path as
			// the name. That is not a directory listing.
			if name == dir {
				return nil, fmt.Errorf("list %q: %w", dir, ErrNotFound)
			}
			a.cache[path.Join(dir, name)] = meta
			names = append(names, name)
		case isNotFoundLine(err):
			return nil, fmt.Errorf("list %q: %w", dir, ErrNotFound)
		default:
			slog.Warn("skipping listing line", "dir", dir, "line", line, "error", err)
		}
	}
	return names, nil
}

func (a *AdbFS) StatFollow(ctx context.Context, p string) (*Metadata, error) {
	return a.statFlags(ctx, p, "-ladL")
}

func (a *AdbFS) StatNoFollow(ctx context.Context, p string) (*Metadata, error) {
	if meta, ok := a.cache[p]; ok {
		return meta, nil
	}
	meta, err := a.statFlags(ctx, p, "-lad")
	if err != nil {
		return nil, err
	}
	a.cache[p] = meta
	return meta, nil
}

func (a *AdbFS) statFlags(ctx context.Context, p, flags string) (*Metadata, error) {
	lines, err := a.shell(ctx, "ls", flags, escapePath(p))
	if err != nil {
		return nil, fmt.Errorf("stat %q: %w", p, err)
	}
	for _, line := range lines {
		_, meta, err := parseLsLine(line)
		if err != nil {
			if isNotFoundLine(err) {
				return nil, fmt.Errorf("stat %q: %w", p, ErrNotFound)
			}
			return nil, fmt.Errorf("stat %q: %w", p, err)
		}
		return meta, nil
	}
	return nil, fmt.Errorf("stat %q: %w", p, ErrNotFound)
}

func (a *AdbFS) DeleteFile(ctx context.Context, p string) error {
	return a.silentShell(ctx, "rm", escapePath(p))
}

func (a *AdbFS) DeleteEmptyDir(ctx context.Context, p string) error {
	return a.silentShell(ctx, "rmdir", escapePath(p))
}

func (a *AdbFS) MakeDirs(ctx context.Context, p string) error {
	return a.silentShell(ctx, "mkdir", "-p", escapePath(p))
}

func (a *AdbFS) SetTimes(ctx context.Context, p string, atime, mtime int64) error {
	at := time.Unix(atime, 0).UTC().Format("200601021504")
	mt := time.Unix(mtime, 0).UTC().Format("200601021504")
	return a.silentShell(ctx, "touch", "-at", at, "-mt", mt, escapePath(p))
}

func (a *AdbFS) CopyInto(ctx context.Context, src, dst string) error {
	if a.progress {
		if err := streamADB(ctx, a.adb, "push", src, dst); err != nil {
			return fmt.Errorf("push %q: %w", src, err)
		}
		return nil
	}
	lines, err := runADB(ctx, a.adb, "push", src, dst)
	if err != nil {
		return fmt.Errorf("push %q: %w", src, err)
	}
	for _, line := range lines {
		if !reFilePushed.MatchString(line) {
			return fmt.Errorf("push %q: unexpected output: %q", src, line)
		}
	}
	return nil
}

// SelfTest runs a no-op shell command and checks the device answered.
// Daemon start-up banners are expected noise on a cold adb server.
func (a *AdbFS) SelfTest(ctx context.Context) bool {
	lines, err := a.shell(ctx, ":")
	if err != nil {
		return false
	}
	for _, line := range lines {
		if reDaemonStarting.MatchString(line) || reDaemonStarted.MatchString(line) {
			continue
		}
		if reNoDevice.MatchString(line) {
			return false
		}
	}
	return true
}

func (a *AdbFS) Resolve(root, rel string) string {
	if rel == "" {
		return root
	}
	return path.Join(root, rel)
}

func (a *AdbFS) Reset() {
	a.cache = make(map[string]*Metadata)
}

func (a *AdbFS) shell(ctx context.Context, args ...string) ([]string, error) {
	return runADB(ctx, a.adb, append([]string{"shell"}, args...)...)
}

// silentShell runs a command that prints nothing on success; any output is
// an error message from the device.
func (a *AdbFS) silentShell(ctx context.Context, args ...string) error {
	lines, err := a.shell(ctx, args...)
	if err != nil {
		return fmt.Errorf("adb shell %s: %w", strings.Join(args, " "), err)
	}
	if len(lines) > 0 {
		return fmt.Errorf("adb shell %s: %s", strings.Join(args, " "), lines[0])
	}
	return nil
}

func escapePath(p string) string {
	return shellEscaper.Replace(p)
}

// runADB executes the adb binary with the configured prefix and returns
// stdout+stderr as trimmed, non-empty lines.
func runADB(ctx context.Context, adb []string, args ...string) ([]string, error) {
	argv := append(append([]string{}, adb[1:]...), args...)
	cmd := exec.CommandContext(ctx, adb[0], argv...)
	out, err := cmd.CombinedOutput()
	if err != nil && ctx.Err() != nil {
		return nil, ctx.Err()
	}

	var lines []string
	scanner := bufio.NewScanner(strings.NewReader(string(out)))
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), " \r")
		if line != "" {
			lines = append(lines, line)
		}
	}

	// adb exits non-zero on device-side failures but the diagnostic is in
	// the output; surface the lines and let callers decode them.
	if err != nil && len(lines) == 0 {
		return nil, fmt.Errorf("adb %s: %w", strings.Join(args, " "), err)
	}
	return lines, nil
}

// streamADB runs adb with its output attached to the terminal so transfer
// progress stays visible. Only the exit code is checked.
func streamADB(ctx context.Context, adb []string, args ...string) error {
	argv := append(append([]string{}, adb[1:]...), args...)
	cmd := exec.CommandContext(ctx, adb[0], argv...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("adb %s: %w", strings.Join(args, " "), err)
	}
	return nil
}
