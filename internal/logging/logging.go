// Package logging wires the process-wide slog logger: a tinted console
// handler, optionally fanned out to a plain-text log file.
package logging

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
	"github.com/openadb/adbsync/internal/utils"
)

// Setup installs the default logger. verbose and quiet shift the console
// level one slog band per count; the log file, when set, always records at
// debug level. The returned closer flushes the file handle.
func Setup(verbose, quiet int, logFile string, noColor bool) (func() error, error) {
	level := slog.LevelInfo + slog.Level(4*quiet) - slog.Level(4*verbose)

	console := tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
		NoColor:    noColor,
	})

	handler := slog.Handler(console)
	closer := func() error { return nil }

	if logFile != "" {
		if err := utils.EnsureParent(logFile); err != nil {
			return nil, fmt.Errorf("create log directory: %w", err)
		}
		file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		fileHandler := slog.NewTextHandler(file, &slog.HandlerOptions{Level: slog.LevelDebug})
		handler = NewMultiHandler(console, fileHandler)
		closer = file.Close
	}

	slog.SetDefault(slog.New(handler))
	return closer, nil
}
