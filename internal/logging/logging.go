package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New builds the process logger. Development gets a human readable
// console writer, everything else emits JSON lines.
func New(env, service string) zerolog.Logger {
	var out io.Writer = os.Stdout
	if env == "dev" || env == "development" {
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}

	return zerolog.New(out).
		With().
		Timestamp().
		Str("service", service).
		Str("env", env).
		Logger()
}

// Bootstrap is the logger used before configuration has loaded. It writes
// JSON to stderr.
func Bootstrap(service string) zerolog.Logger {
	return zerolog.New(os.Stderr).With().Timestamp().Str("service", service).Logger()
}
