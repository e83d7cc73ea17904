package internal

import (
	"io"
	"log/slog"
	"os"
)

// SetupLogging routes the default slog logger to stderr and, when a log
// file is provided, to the file as well.
func SetupLogging(logFile io.Writer) {
	var w io.Writer = os.Stderr
	if logFile != nil {
		w = io.MultiWriter(os.Stderr, logFile)
	}
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo})
	slog.SetDefault(slog.New(handler))
}
