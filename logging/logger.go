// Package logging wires the engine's structured logging, following
// the same zerolog console-writer setup used across the retrieval
// pack's CLI tools.
package logging

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// New returns a console-writer-backed zerolog.Logger, writing to
// stderr and tagged with app,
// and installs it as the package-global zerolog/log default so code
// with no explicit logger reference still logs consistently.
func New(app string) zerolog.Logger {
	output := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	}
	logger := zerolog.New(output).With().Timestamp().Str("app", app).Logger()
	log.Logger = logger
	return logger
}
