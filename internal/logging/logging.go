package logging

import (
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup configures the global zerolog logger and returns it. Output is
// human-readable on a terminal and JSON otherwise; DATAHUB_LOG_JSON=1 forces
// JSON.
func Setup(level string, w io.Writer) zerolog.Logger {
	if w == nil {
		w = os.Stderr
	}
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	out := w
	if f, ok := w.(*os.File); ok && isatty.IsTerminal(f.Fd()) && os.Getenv("DATAHUB_LOG_JSON") == "" {
		out = zerolog.ConsoleWriter{Out: w}
	}
	log.Logger = zerolog.New(out).Level(lvl).With().Timestamp().Logger()
	return log.Logger
}
