package evals

import (
	"io"

	"github.com/rs/zerolog"

	"github.com/egaebel-mixpanel/evals/internal/logx"
)

// SetLogger installs a zerolog logger for the whole module. The library
// logs nothing until one is set. Decode failures log at error level with
// the offending path, line and column; file fetches log at debug level.
func SetLogger(l zerolog.Logger) {
	logx.Set(l)
}

// NewLogger builds a logger with the given level ("debug", "info", "warn",
// "error"), format ("json" or "console") and output writer. A nil output
// defaults to stderr.
func NewLogger(level, format string, output io.Writer) zerolog.Logger {
	return logx.New(logx.Config{Level: level, Format: format, Output: output})
}
