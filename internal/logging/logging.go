// Package logging wires the appliance's structured logger: logiface as
// the generic logging facade, backed by izerolog/zerolog for the
// concrete writer, console-formatted to stderr. $LOG_LEVEL selects the
// minimum level, the Go analogue of the original firmware's
// pretty_env_logger/RUST_LOG.
package logging

import (
	"os"
	"strings"
	"time"

	"github.com/joeycumines/izerolog"
	"github.com/joeycumines/logiface"
	"github.com/rs/zerolog"
)

// Logger adapts a logiface.Logger[*izerolog.Event] to scheduler.Logger's
// three-method contract.
type Logger struct {
	l *logiface.Logger[*izerolog.Event]
}

// New builds a Logger writing a human-readable console stream to out
// (stderr in production), filtered by the $LOG_LEVEL environment
// variable (one of trace/debug/info/notice/warning/error/critical;
// unset or unrecognised defaults to info).
func New(out *os.File) *Logger {
	writer := zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	zl := zerolog.New(writer).With().Timestamp().Logger()

	return &Logger{
		l: izerolog.L.New(
			izerolog.L.WithZerolog(zl),
			izerolog.L.WithLevel(levelFromEnv()),
		),
	}
}

func levelFromEnv() logiface.Level {
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "trace":
		return logiface.LevelTrace
	case "debug":
		return logiface.LevelDebug
	case "notice":
		return logiface.LevelNotice
	case "warning", "warn":
		return logiface.LevelWarning
	case "error":
		return logiface.LevelError
	case "critical", "crit":
		return logiface.LevelCritical
	default:
		return logiface.LevelInformational
	}
}

// Info logs msg at informational level.
func (l *Logger) Info(msg string) { l.l.Info().Log(msg) }

// Warn logs msg at warning level.
func (l *Logger) Warn(msg string) { l.l.Warning().Log(msg) }

// Error logs msg with err attached at error level.
func (l *Logger) Error(msg string, err error) {
	if err == nil {
		l.l.Err().Log(msg)
		return
	}
	l.l.Err().Err(err).Log(msg)
}
