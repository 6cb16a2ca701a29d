// Package zerologger adapts github.com/rs/zerolog to core.Logger.
package zerologger

import (
	"io"
	"os"
	"time"

	"github.com/Swind/go-exec-runner/core"
	"github.com/rs/zerolog"
)

// Output formats accepted by New.
const (
	FormatJSON    = "json"
	FormatConsole = "console"
)

// Logger writes core.Logger records through a zerolog.Logger.
type Logger struct {
	zl zerolog.Logger
}

var _ core.Logger = (*Logger)(nil)

// New creates a Logger writing to w. format is FormatJSON or FormatConsole;
// anything else is treated as JSON. Records below level are dropped.
func New(w io.Writer, format string, level core.LogLevel) *Logger {
	if w == nil {
		w = os.Stderr
	}
	if format == FormatConsole {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	zl := zerolog.New(w).Level(zerologLevel(level)).With().Timestamp().Logger()
	return &Logger{zl: zl}
}

// Wrap adapts an existing zerolog.Logger.
func Wrap(zl zerolog.Logger) *Logger {
	return &Logger{zl: zl}
}

// Zerolog returns the underlying logger.
func (l *Logger) Zerolog() zerolog.Logger { return l.zl }

func (l *Logger) Debug(msg string, fields ...core.Field) { emit(l.zl.Debug(), msg, fields) }
func (l *Logger) Info(msg string, fields ...core.Field)  { emit(l.zl.Info(), msg, fields) }
func (l *Logger) Warn(msg string, fields ...core.Field)  { emit(l.zl.Warn(), msg, fields) }
func (l *Logger) Error(msg string, fields ...core.Field) { emit(l.zl.Error(), msg, fields) }

func emit(ev *zerolog.Event, msg string, fields []core.Field) {
	if ev == nil {
		return
	}
	for _, f := range fields {
		switch v := f.Value.(type) {
		case error:
			ev = ev.AnErr(f.Key, v)
		case string:
			ev = ev.Str(f.Key, v)
		case int:
			ev = ev.Int(f.Key, v)
		case int64:
			ev = ev.Int64(f.Key, v)
		case bool:
			ev = ev.Bool(f.Key, v)
		case time.Duration:
			ev = ev.Dur(f.Key, v)
		default:
			ev = ev.Interface(f.Key, v)
		}
	}
	ev.Msg(msg)
}

func zerologLevel(level core.LogLevel) zerolog.Level {
	switch level {
	case core.LevelDebug:
		return zerolog.DebugLevel
	case core.LevelWarn:
		return zerolog.WarnLevel
	case core.LevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
