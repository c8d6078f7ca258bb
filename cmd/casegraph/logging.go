package main

import (
	"io"
	"log/slog"
	"strings"

	"github.com/ersonp/casegraph/internal/infrastructure/config"
)

// newLogger builds the process logger from the log section of the config.
// Logs go to w so command output on stdout stays clean.
func newLogger(cfg config.LogConfig, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}

	var handler slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	default:
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}
