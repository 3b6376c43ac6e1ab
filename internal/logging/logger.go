package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Options controls the process-wide log sink
type Options struct {
	Level         string // debug, info, warn, error
	Format        string // standard or json
	FilePath      string
	ConsoleOutput bool
}

var (
	sinkMu sync.RWMutex
	sink   = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger().Level(zerolog.InfoLevel)
)

// Configure replaces the sink used by loggers created afterwards.
// The returned closer releases the log file, if one was opened.
func Configure(opts Options) (io.Closer, error) {
	var writers []io.Writer
	var file *os.File

	if opts.FilePath != "" {
		f, err := os.OpenFile(opts.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file %s: %w", opts.FilePath, err)
		}
		file = f
		writers = append(writers, f)
	}
	if opts.ConsoleOutput || file == nil {
		writers = append(writers, os.Stdout)
	}

	var out io.Writer = writers[0]
	if len(writers) > 1 {
		out = io.MultiWriter(writers...)
	}

	setSink(build(out, opts))

	if file == nil {
		return io.NopCloser(nil), nil
	}
	return file, nil
}

func build(out io.Writer, opts Options) zerolog.Logger {
	if strings.ToLower(opts.Format) != "json" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339, NoColor: true}
	}
	return zerolog.New(out).With().Timestamp().Logger().Level(ParseLevel(opts.Level))
}

func setSink(l zerolog.Logger) {
	sinkMu.Lock()
	sink = l
	sinkMu.Unlock()
}

// ParseLevel maps a level name to a zerolog level, defaulting to info
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Logger provides structured logging for the worker
type Logger struct {
	prefix string
	zl     zerolog.Logger
}

// NewLogger creates a new logger with a prefix
func NewLogger(prefix string) *Logger {
	sinkMu.RLock()
	base := sink
	sinkMu.RUnlock()

	return &Logger{
		prefix: prefix,
		zl:     base.With().Str("component", prefix).Logger(),
	}
}

// NewWithWriter creates a logger writing JSON lines to w, independent of the process sink
func NewWithWriter(prefix string, w io.Writer, level string) *Logger {
	base := build(w, Options{Level: level, Format: "json"})
	return &Logger{
		prefix: prefix,
		zl:     base.With().Str("component", prefix).Logger(),
	}
}

// With returns a child logger that always carries the given key-value pairs
func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	ctx := l.zl.With()
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		ctx = ctx.Interface(fmt.Sprint(keysAndValues[i]), keysAndValues[i+1])
	}
	return &Logger{prefix: l.prefix, zl: ctx.Logger()}
}

// Info logs an informational message with key-value pairs
func (l *Logger) Info(msg string, keysAndValues ...interface{}) {
	l.logWithKV(l.zl.Info(), msg, keysAndValues...)
}

// Warn logs a warning message with key-value pairs
func (l *Logger) Warn(msg string, keysAndValues ...interface{}) {
	l.logWithKV(l.zl.Warn(), msg, keysAndValues...)
}

// Error logs an error message with key-value pairs
func (l *Logger) Error(msg string, keysAndValues ...interface{}) {
	l.logWithKV(l.zl.Error(), msg, keysAndValues...)
}

// Debug logs a debug message with key-value pairs
func (l *Logger) Debug(msg string, keysAndValues ...interface{}) {
	l.logWithKV(l.zl.Debug(), msg, keysAndValues...)
}

func (l *Logger) logWithKV(evt *zerolog.Event, msg string, keysAndValues ...interface{}) {
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key := fmt.Sprint(keysAndValues[i])
		switch v := keysAndValues[i+1].(type) {
		case error:
			evt = evt.AnErr(key, v)
		case time.Duration:
			evt = evt.Dur(key, v)
		default:
			evt = evt.Interface(key, v)
		}
	}
	evt.Msg(msg)
}
