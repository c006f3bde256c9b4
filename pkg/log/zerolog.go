package log

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	heartErrors "github.com/YuminosukeSato/heartml/pkg/errors"
	"github.com/rs/zerolog"
)

// ErrAttrKey is the field under which an error passed as the first Error()
// argument is logged.
const ErrAttrKey = "error"

// ZerologLogger implements Logger on top of a zerolog.Logger.
type ZerologLogger struct {
	logger zerolog.Logger
}

// NewZerologLogger wraps an existing zerolog.Logger.
func NewZerologLogger(logger zerolog.Logger) *ZerologLogger {
	return &ZerologLogger{logger: logger}
}

// Debug implements Logger.Debug.
func (z *ZerologLogger) Debug(msg string, fields ...any) {
	emit(z.logger.Debug(), msg, fields)
}

// Info implements Logger.Info.
func (z *ZerologLogger) Info(msg string, fields ...any) {
	emit(z.logger.Info(), msg, fields)
}

// Warn implements Logger.Warn.
func (z *ZerologLogger) Warn(msg string, fields ...any) {
	emit(z.logger.Warn(), msg, fields)
}

// Error implements Logger.Error.
func (z *ZerologLogger) Error(msg string, fields ...any) {
	emit(z.logger.Error(), msg, fields)
}

// With implements Logger.With.
func (z *ZerologLogger) With(fields ...any) Logger {
	ctx := z.logger.With()
	for i := 0; i+1 < len(fields); i += 2 {
		key := fmt.Sprint(fields[i])
		switch v := fields[i+1].(type) {
		case error:
			ctx = ctx.AnErr(key, v)
		default:
			ctx = ctx.Interface(key, v)
		}
	}
	return &ZerologLogger{logger: ctx.Logger()}
}

// Enabled implements Logger.Enabled.
func (z *ZerologLogger) Enabled(_ context.Context, level Level) bool {
	return z.logger.GetLevel() <= toZerologLevel(level)
}

// emit writes the key/value pairs onto the event. A leading error value
// without a key is logged under ErrAttrKey. zerolog hands out a nil event for
// disabled levels, and every method on a nil event is a no-op.
func emit(e *zerolog.Event, msg string, fields []any) {
	if e == nil {
		return
	}
	if len(fields)%2 == 1 {
		if err, ok := fields[0].(error); ok {
			appendError(e, ErrAttrKey, err)
			fields = fields[1:]
		}
	}
	for i := 0; i+1 < len(fields); i += 2 {
		key := fmt.Sprint(fields[i])
		switch v := fields[i+1].(type) {
		case error:
			appendError(e, key, v)
		case string:
			e.Str(key, v)
		case int:
			e.Int(key, v)
		case int64:
			e.Int64(key, v)
		case float64:
			e.Float64(key, v)
		case bool:
			e.Bool(key, v)
		case []string:
			e.Strs(key, v)
		case zerolog.LogObjectMarshaler:
			e.Object(key, v)
		default:
			e.Interface(key, v)
		}
	}
	e.Msg(msg)
}

// appendError logs err, its structured detail when the error type provides
// one, and the stack recorded by cockroachdb/errors.
func appendError(e *zerolog.Event, key string, err error) {
	e.AnErr(key, err)
	var marshaler zerolog.LogObjectMarshaler
	if heartErrors.As(err, &marshaler) {
		e.Object(key+".detail", marshaler)
	}
	if stack := heartErrors.StackTrace(err); stack != "" {
		e.Str(StacktraceKey, stack)
	}
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

// ParseLevel converts "debug", "info", "warn" or "error" to a Level.
func ParseLevel(level string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return LevelDebug, nil
	case "info", "":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, heartErrors.NewValidationError("log_level", "must be one of debug, info, warn, error", level)
	}
}

// ZerologProvider implements LoggerProvider with zerolog.
type ZerologProvider struct {
	mu    sync.RWMutex
	base  zerolog.Logger
	level Level
}

// ZerologOption customizes a ZerologProvider.
type ZerologOption func(*zerologConfig)

type zerologConfig struct {
	out     io.Writer
	console bool
}

// WithWriter sends log output to w instead of stderr.
func WithWriter(w io.Writer) ZerologOption {
	return func(c *zerologConfig) { c.out = w }
}

// WithConsole renders human readable lines instead of JSON.
func WithConsole() ZerologOption {
	return func(c *zerologConfig) { c.console = true }
}

// NewZerologProvider creates a provider emitting JSON lines with a timestamp.
func NewZerologProvider(level Level, opts ...ZerologOption) *ZerologProvider {
	cfg := zerologConfig{out: os.Stderr}
	for _, opt := range opts {
		opt(&cfg)
	}
	out := cfg.out
	if cfg.console {
		out = zerolog.ConsoleWriter{Out: cfg.out, TimeFormat: "15:04:05"}
	}
	return &ZerologProvider{
		base:  zerolog.New(out).With().Timestamp().Logger(),
		level: level,
	}
}

// GetLogger implements LoggerProvider.GetLogger.
func (p *ZerologProvider) GetLogger() Logger {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return &ZerologLogger{logger: p.base.Level(toZerologLevel(p.level))}
}

// GetLoggerWithName implements LoggerProvider.GetLoggerWithName.
func (p *ZerologProvider) GetLoggerWithName(name string) Logger {
	p.mu.RLock()
	defer p.mu.RUnlock()
	l := p.base.Level(toZerologLevel(p.level)).With().Str(ComponentKey, name).Logger()
	return &ZerologLogger{logger: l}
}

// SetLevel implements LoggerProvider.SetLevel. Loggers handed out earlier keep
// the level they were created with.
func (p *ZerologProvider) SetLevel(level Level) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.level = level
}
