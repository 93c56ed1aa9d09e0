package fsys

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stamp(t *testing.T, s string) int64 {
	t.Helper()
	ts, err := time.ParseInLocation(lsTimeLayout, s, time.Local)
	require.NoError(t, err)
	return ts.Unix()
}

func TestParseLsLineRegularFile(t *testing.T) {
	name, meta, err := parseLsLine("-rw-rw---- 1 root sdcard_rw 2048 2016-06-22 17:34 b.txt")
	require.NoError(t, err)
	assert.Equal(t, "b.txt", name)
	assert.Equal(t, KindRegularFile, meta.Kind)
	assert.Equal(t, int64(2048), meta.Size)
	assert.Equal(t, stamp(t, "2016-06-22 17:34"), meta.MTime)
	assert.Equal(t, meta.MTime, meta.ATime)
}

func TestParseLsLineFileNameWithSpaces(t *testing.T) {
	name, meta, err := parseLsLine("-rw-rw---- 1 root sdcard_rw 17 2020-01-02 03:04 My Track 01.mp3")
	require.NoError(t, err)
	assert.Equal(t, "My Track 01.mp3", name)
	assert.Equal(t, int64(17), meta.Size)
}

func TestParseLsLineDirectory(t *testing.T) {
	name, meta, err := parseLsLine("drwxrwx--x 2 root sdcard_rw 4096 2016-06-22 17:34 Music")
	require.NoError(t, err)
	assert.Equal(t, "Music", name)
	assert.Equal(t, KindDirectory, meta.Kind)
}

func TestParseLsLineDirectoryWithoutSizeOrLinks(t *testing.T) {
	// Older Android ls prints neither a link count nor a directory size.
	name, meta, err := parseLsLine("drwxrwx--x root sdcard_rw 2016-06-22 17:34 DCIM")
	require.NoError(t, err)
	assert.Equal(t, "DCIM", name)
	assert.Equal(t, KindDirectory, meta.Kind)
}

func TestParseLsLineSymlinkStripsTarget(t *testing.T) {
	name, meta, err := parseLsLine("lrwxrwxrwx 1 root root 21 2016-06-22 17:34 sdcard -> /storage/self/primary")
	require.NoError(t, err)
	assert.Equal(t, "sdcard", name)
	assert.Equal(t, KindSymlink, meta.Kind)
}

func TestParseLsLineDeviceNodesAreOther(t *testing.T) {
	for _, line := range []string{
		"brw------- 1 root root 179, 0 2016-06-22 17:34 mmcblk0",
		"crw-rw-rw- 1 root root 1, 3 2016-06-22 17:34 null",
		"prw-r--r-- 1 root root 0 2016-06-22 17:34 pipe",
		"srw-rw-rw- 1 root root 0 2016-06-22 17:34 sock",
	} {
		_, meta, err := parseLsLine(line)
		require.NoError(t, err, line)
		assert.Equal(t, KindOther, meta.Kind, line)
	}
}

func TestParseLsLineNoSuchFile(t *testing.T) {
	_, _, err := parseLsLine("ls: /sdcard/nope: No such file or directory")
	require.ErrorIs(t, err, ErrNotFound)

	_, _, err = parseLsLine("ls: /sdcard/f.txt/x: Not a directory")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestParseLsLineGarbage(t *testing.T) {
	for _, line := range []string{
		"garbage",
		"-rw-rw---- 1 root sdcard_rw notasize 2016-06-22 17:34 b.txt",
		"",
	} {
		_, _, err := parseLsLine(line)
		require.ErrorIs(t, err, ErrUnparseable, "%q", line)
	}
}

func TestEscapePath(t *testing.T) {
	assert.Equal(t, `/sdcard/My\ Music/a\'s\ \(live\)\!.mp3`,
		escapePath(`/sdcard/My Music/a's (live)!.mp3`))
	assert.Equal(t, `/sdcard/plain.txt`, escapePath(`/sdcard/plain.txt`))
}
