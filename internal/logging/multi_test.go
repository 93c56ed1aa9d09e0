package logging

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMultiHandlerFansOut(t *testing.T) {
	var a, b bytes.Buffer
	ha := slog.NewTextHandler(&a, &slog.HandlerOptions{Level: slog.LevelInfo})
	hb := slog.NewTextHandler(&b, &slog.HandlerOptions{Level: slog.LevelWarn})

	logger := slog.New(NewMultiHandler(ha, hb))
	logger.Info("copied", "path", "/sdcard/f.txt")
	logger.Warn("skipped", "path", "/sdcard/g.txt")

	assert.Contains(t, a.String(), "copied")
	assert.Contains(t, a.String(), "skipped")
	// The warn-level handler must not see info records.
	assert.NotContains(t, b.String(), "copied")
	assert.Contains(t, b.String(), "skipped")
}

func TestMultiHandlerEnabled(t *testing.T) {
	var buf bytes.Buffer
	h := NewMultiHandler(
		slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelError}),
		slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}),
	)
	require.True(t, h.Enabled(context.Background(), slog.LevelDebug))
}

func TestMultiHandlerWithAttrs(t *testing.T) {
	var buf bytes.Buffer
	h := NewMultiHandler(slog.NewTextHandler(&buf, nil)).WithAttrs([]slog.Attr{slog.String("pair", "0")})
	slog.New(h).Info("done")
	assert.Contains(t, buf.String(), "pair=0")
}
