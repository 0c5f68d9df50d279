package telemetry

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger is a zerolog-backed structured logger with helpers for the
// recorder's domain fields.
type Logger struct {
	zlog   zerolog.Logger
	config LoggingConfig
}

type loggerContextKey struct{}

// logLevels maps configuration names to zerolog levels.
var logLevels = map[string]zerolog.Level{
	"trace": zerolog.TraceLevel,
	"debug": zerolog.DebugLevel,
	"info":  zerolog.InfoLevel,
	"warn":  zerolog.WarnLevel,
	"error": zerolog.ErrorLevel,
	"fatal": zerolog.FatalLevel,
}

// parseLogLevel resolves a level name, defaulting to info for names it
// does not know.
func parseLogLevel(level string) zerolog.Level {
	if lvl, ok := logLevels[level]; ok {
		return lvl
	}
	return zerolog.InfoLevel
}

// openWriter resolves the configured output. Anything that is not
// stdout or stderr is treated as a file path and opened for append.
func openWriter(output string) (io.Writer, error) {
	switch output {
	case "stdout":
		return os.Stdout, nil
	case "stderr":
		return os.Stderr, nil
	default:
		file, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log output %s: %w", output, err)
		}
		return file, nil
	}
}

// NewLogger builds a logger from the configuration.
func NewLogger(cfg LoggingConfig) (*Logger, error) {
	w, err := openWriter(cfg.Output)
	if err != nil {
		return nil, err
	}
	if cfg.Format == "console" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}

	zlog := zerolog.New(w).Level(parseLogLevel(cfg.Level)).With().Timestamp().Logger()
	if cfg.EnableCaller {
		zlog = zlog.With().Caller().Logger()
	}

	return &Logger{zlog: zlog, config: cfg}, nil
}

// child wraps a derived zerolog instance, keeping the configuration.
func (l *Logger) child(zlog zerolog.Logger) *Logger {
	return &Logger{zlog: zlog, config: l.config}
}

// NewComponentLogger returns a logger tagged with a component name,
// such as recorder, store or sysinfo.
func (l *Logger) NewComponentLogger(component string) *Logger {
	return l.child(l.zlog.With().Str("component", component).Logger())
}

// Zerolog returns the underlying zerolog logger. Components that take a
// plain zerolog.Logger, such as the recorder and the system collector,
// are wired with this.
func (l *Logger) Zerolog() zerolog.Logger {
	return l.zlog
}

// WithContext embeds the logger in the context.
func (l *Logger) WithContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, loggerContextKey{}, l)
}

// FromContext returns the logger embedded in the context, or a plain
// stderr logger when none is present.
func FromContext(ctx context.Context) *Logger {
	if l, ok := ctx.Value(loggerContextKey{}).(*Logger); ok {
		return l
	}
	return &Logger{zlog: zerolog.New(os.Stderr).With().Timestamp().Logger()}
}

// WithField returns a logger carrying one extra field on every entry.
func (l *Logger) WithField(key string, value any) *Logger {
	return l.child(l.zlog.With().Interface(key, value).Logger())
}

// WithFunction tags entries with a registered function name.
func (l *Logger) WithFunction(name string) *Logger {
	return l.WithField("function", name)
}

// WithTag tags entries with a record tag.
func (l *Logger) WithTag(tag string) *Logger {
	return l.WithField("tag", tag)
}

// WithStore tags entries with the log database path and index.
func (l *Logger) WithStore(path string, index int64) *Logger {
	return l.child(l.zlog.With().Str("store_path", path).Int64("store_index", index).Logger())
}

// WithError attaches an error to every entry.
func (l *Logger) WithError(err error) *Logger {
	return l.child(l.zlog.With().Err(err).Logger())
}

// Debug logs a message at debug level.
func (l *Logger) Debug(msg string) { l.zlog.Debug().Msg(msg) }

// Info logs a message at info level.
func (l *Logger) Info(msg string) { l.zlog.Info().Msg(msg) }

// Warn logs a message at warn level.
func (l *Logger) Warn(msg string) { l.zlog.Warn().Msg(msg) }

// Error logs a message at error level.
func (l *Logger) Error(msg string) { l.zlog.Error().Msg(msg) }
