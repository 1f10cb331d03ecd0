package log

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"

	abErrors "github.com/YuminosukeSato/abalone/pkg/errors"
)

// zerologLogger implements Logger on top of zerolog.
type zerologLogger struct {
	zl zerolog.Logger
}

// NewZerologLogger creates a JSON zerolog-backed Logger writing to w.
func NewZerologLogger(w io.Writer, level Level) Logger {
	zl := zerolog.New(w).Level(toZerologLevel(level)).With().Timestamp().Logger()
	return &zerologLogger{zl: zl}
}

// FromZerolog wraps an existing zerolog.Logger.
func FromZerolog(zl zerolog.Logger) Logger {
	return &zerologLogger{zl: zl}
}

func (l *zerologLogger) Debug(msg string, fields ...any) { l.emit(l.zl.Debug(), msg, fields) }
func (l *zerologLogger) Info(msg string, fields ...any)  { l.emit(l.zl.Info(), msg, fields) }
func (l *zerologLogger) Warn(msg string, fields ...any)  { l.emit(l.zl.Warn(), msg, fields) }
func (l *zerologLogger) Error(msg string, fields ...any) { l.emit(l.zl.Error(), msg, fields) }

func (l *zerologLogger) With(fields ...any) Logger {
	return &zerologLogger{zl: l.zl.With().Fields(normalizeFields(fields)).Logger()}
}

func (l *zerologLogger) Enabled(_ context.Context, level Level) bool {
	zlevel := toZerologLevel(level)
	return zlevel >= l.zl.GetLevel() && zlevel >= zerolog.GlobalLevel()
}

func (l *zerologLogger) emit(e *zerolog.Event, msg string, fields []any) {
	// zerolog returns a nil event for disabled levels
	if e == nil {
		return
	}
	if len(fields) > 0 {
		if err, ok := fields[0].(error); ok {
			e = withError(e, err)
			fields = fields[1:]
		}
	}
	e.Fields(normalizeFields(fields)).Msg(msg)
}

// withError attaches the error message, its structured details when the
// error chain carries a zerolog.LogObjectMarshaler, and the stack recorded
// by cockroachdb/errors.
func withError(e *zerolog.Event, err error) *zerolog.Event {
	e = e.Err(err)
	var m zerolog.LogObjectMarshaler
	if errors.As(err, &m) {
		e = e.Object("error.detail", m)
	}
	if st := extractStacktrace(err); st != "" {
		e = e.Str(StacktraceKey, st)
	}
	return e
}

func extractStacktrace(err error) string {
	safeDetails := errors.GetSafeDetails(err).SafeDetails
	if len(safeDetails) > 0 {
		return safeDetails[0]
	}
	return ""
}

// normalizeFields turns key/value pairs into the map zerolog expects.
// Errors become their message; durations become milliseconds.
func normalizeFields(fields []any) map[string]any {
	out := make(map[string]any, len(fields)/2)
	for i := 0; i+1 < len(fields); i += 2 {
		key := fmt.Sprint(fields[i])
		switch v := fields[i+1].(type) {
		case error:
			out[key] = v.Error()
		case time.Duration:
			out[key] = v.Milliseconds()
		default:
			out[key] = v
		}
	}
	if len(fields)%2 == 1 {
		out["!BADKEY"] = fields[len(fields)-1]
	}
	return out
}

func toZerologLevel(level Level) zerolog.Level {
	switch {
	case level <= LevelDebug:
		return zerolog.DebugLevel
	case level <= LevelInfo:
		return zerolog.InfoLevel
	case level <= LevelWarn:
		return zerolog.WarnLevel
	default:
		return zerolog.ErrorLevel
	}
}

// ===========================================================================
// Global logger
// ===========================================================================

var (
	globalMu     sync.RWMutex
	globalLogger Logger = NewZerologLogger(os.Stderr, LevelInfo)
)

// GetLogger returns the process-wide logger.
func GetLogger() Logger {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalLogger
}

// GetLoggerWithName returns the process-wide logger tagged with a component name.
func GetLoggerWithName(name string) Logger {
	return GetLogger().With(ComponentKey, name)
}

// SetLogger replaces the process-wide logger, e.g. with a TestLogger.
func SetLogger(l Logger) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalLogger = l
}

// Setup installs a zerolog logger at the given level. format is "json" or
// "console". Library warnings raised through pkg/errors are routed to it.
func Setup(level, format string, w io.Writer) error {
	lvl, ok := ParseLevel(level)
	if !ok {
		return abErrors.NewValueError("log.Setup", fmt.Sprintf("invalid log level: %q", level))
	}
	if w == nil {
		w = os.Stderr
	}

	var out io.Writer
	switch format {
	case "console":
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	case "json", "":
		out = w
	default:
		return abErrors.NewValueError("log.Setup", fmt.Sprintf("invalid log format: %q", format))
	}

	logger := NewZerologLogger(out, lvl)
	SetLogger(logger)

	warnLogger := logger.With(ComponentKey, "warnings")
	abErrors.SetZerologWarnFunc(func(w error) {
		warnLogger.Warn(w.Error(), ErrorTypeKey, fmt.Sprintf("%T", w))
	})
	return nil
}

// SetLevel sets the process-wide minimum level for every zerolog-backed
// logger, including ones already handed out.
func SetLevel(level Level) {
	zerolog.SetGlobalLevel(toZerologLevel(level))
}
