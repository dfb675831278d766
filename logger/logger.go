package logger

import (
	"os"
	"strings"

	"github.com/rs/zerolog"
)

const LogLevelEnv = "ADMITNOTE_LOGLEVEL"

var levels = map[string]zerolog.Level{
	"DEBUG": zerolog.DebugLevel,
	"INFO":  zerolog.InfoLevel,
	"WARN":  zerolog.WarnLevel,
	"ERROR": zerolog.ErrorLevel,
	"FATAL": zerolog.FatalLevel,
	"PANIC": zerolog.PanicLevel,
}

func SetupLogging() {
	zerolog.LevelFieldName = "level_name"
	zerolog.TimestampFieldName = "timestamp"
}

// NewLogger returns a JSON logger on stderr tagged with the component name.
// Unknown or missing levels fall back to INFO.
func NewLogger(component string) zerolog.Logger {
	level, ok := levels[strings.ToUpper(os.Getenv(LogLevelEnv))]
	if !ok {
		level = zerolog.InfoLevel
	}
	return zerolog.New(os.Stderr).
		With().
		Str("component", component).
		Timestamp().
		Logger().
		Level(level)
}
