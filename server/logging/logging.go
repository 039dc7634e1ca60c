package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// New returns a timestamped logger on stderr. Console output unless asJSON.
// Unknown levels fall back to info.
func New(level string, asJSON bool) zerolog.Logger {
	return NewWriter(os.Stderr, level, asJSON)
}

func NewWriter(w io.Writer, level string, asJSON bool) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	if !asJSON {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05.000", NoColor: os.Getenv("NO_COLOR") != ""}
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger()
}
