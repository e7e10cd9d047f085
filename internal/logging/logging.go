// Package logging builds the shared slog logger for kindling.
package logging

import (
	"log/slog"
	"os"
)

// New creates a text slog.Logger on stdout. Verbose mode lowers the level
// to debug; everything else logs at info.
func New(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})
	return slog.New(handler)
}
