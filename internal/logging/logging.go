// Package logging configures the process-wide zerolog logger.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/jrsteele09/go-members-gateway/internal/config"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup installs the global logger. Development gets coloured console output,
// every other environment gets JSON lines on stdout.
func Setup(env string) {
	SetupWriter(env, os.Stdout)
}

func SetupWriter(env string, out io.Writer) {
	zerolog.TimeFieldFormat = time.RFC3339
	if env == config.DevEnv {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05"}
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
	log.Logger = zerolog.New(out).With().Timestamp().Logger()
}
