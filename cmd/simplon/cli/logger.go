// Copyright 2026 The Simplon Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"io"
	"log/slog"
	"os"

	"golang.org/x/term"

	"github.com/simplon-foundation/simplon/lib/config"
)

// DebugEnvironmentVariable forces debug logging when set to any
// non-empty value.
const DebugEnvironmentVariable = "SIMPLON_DEBUG"

// NewLogger creates the command logger writing to stderr. Format
// "auto" picks slog.TextHandler when stderr is a terminal and
// slog.JSONHandler otherwise.
func NewLogger(logging config.LoggingConfig) *slog.Logger {
	terminal := term.IsTerminal(int(os.Stderr.Fd()))
	return newLogger(os.Stderr, logging, terminal)
}

func newLogger(w io.Writer, logging config.LoggingConfig, terminal bool) *slog.Logger {
	options := &slog.HandlerOptions{Level: logging.SlogLevel()}
	if os.Getenv(DebugEnvironmentVariable) != "" {
		options.Level = slog.LevelDebug
	}

	var handler slog.Handler
	switch {
	case logging.Format == "json", logging.Format == "auto" && !terminal:
		handler = slog.NewJSONHandler(w, options)
	default:
		handler = slog.NewTextHandler(w, options)
	}
	return slog.New(handler)
}
