package logger

import (
	"io"
	"os"
	"slotbook/config"
	"slotbook/shared/constant"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func InitLogger() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(zerolog.TraceLevel)

	output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}

	log.Logger = log.Output(output)
	log.Trace().Msg("Zerolog initialized.")
}

func ErrorWithStack(err error) {
	log.Error().Msgf("%+v", errors.WithStack(err))
}

// UseJSON switches the global logger to structured JSON lines on w.
func UseJSON(w io.Writer) {
	log.Logger = zerolog.New(w).With().Timestamp().Logger()
}

func SetLogLevel(config *config.Config) {
	level, err := zerolog.ParseLevel(config.Server.LogLevel)
	if err != nil {
		level = zerolog.TraceLevel
		log.Trace().Str("loglevel", level.String()).Msg("Environment has no log level set up, using default.")
	} else {
		log.Trace().Str("loglevel", level.String()).Msg("Desired log level detected.")
	}

	zerolog.SetGlobalLevel(level)
}

// Setup initialises the logger for the configured environment.
func Setup(config *config.Config) {
	InitLogger()

	if config.Server.Env == constant.ServerEnvProduction {
		UseJSON(os.Stdout)
	}

	SetLogLevel(config)
}
