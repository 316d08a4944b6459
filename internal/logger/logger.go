// Package logger provides structured, leveled logging for the Lookout CLI,
// backed by zap. A process-wide logger is configured from the environment
// at startup; packages obtain contextual children via WithField/WithFields.
package logger

import (
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level represents the logging level.
type Level int

const (
	// DebugLevel logs everything
	DebugLevel Level = iota
	// InfoLevel logs info, warnings, and errors
	InfoLevel
	// ErrorLevel logs only errors
	ErrorLevel
)

// Logger wraps a zap logger behind the small surface the rest of the
// codebase uses.
type Logger struct {
	zap   *zap.Logger
	sugar *zap.SugaredLogger
}

var (
	globalLogger *Logger
	globalMu     sync.Mutex
)

func init() {
	if l, err := NewFromEnv(); err == nil {
		globalLogger = l
	} else {
		globalLogger = NewNop()
	}
}

// New creates a logger at the given level. Development mode uses a
// human-readable console encoder on stderr; otherwise output is JSON.
func New(level Level, development bool) (*Logger, error) {
	var config zap.Config
	if development {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		config.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05.000")
	} else {
		config = zap.NewProductionConfig()
		config.EncoderConfig.TimeKey = "timestamp"
		config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	switch level {
	case DebugLevel:
		config.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case ErrorLevel:
		config.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		config.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}

	z, err := config.Build(zap.AddCallerSkip(1))
	if err != nil {
		return nil, err
	}
	return fromZap(z), nil
}

// NewFromEnv creates a logger configured from LOOKOUT_LOG_LEVEL and
// LOOKOUT_LOG_FORMAT ("json" switches off the console encoder).
func NewFromEnv() (*Logger, error) {
	level := LevelFromString(os.Getenv("LOOKOUT_LOG_LEVEL"))
	development := os.Getenv("LOOKOUT_LOG_FORMAT") != "json"
	return New(level, development)
}

// NewNop returns a logger that discards everything. Used as the fallback
// when environment configuration fails, and in tests that want silence.
func NewNop() *Logger {
	return fromZap(zap.NewNop())
}

// NewTestLogger returns a debug-level development logger for tests.
func NewTestLogger() *Logger {
	l, err := New(DebugLevel, true)
	if err != nil {
		return NewNop()
	}
	return l
}

func fromZap(z *zap.Logger) *Logger {
	return &Logger{zap: z, sugar: z.Sugar()}
}

// WithField returns a child logger with one additional context field.
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return fromZap(l.zap.With(zap.Any(key, value)))
}

// WithFields returns a child logger with additional context fields.
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	zapFields := make([]zap.Field, 0, len(fields))
	for k, v := range fields {
		zapFields = append(zapFields, zap.Any(k, v))
	}
	return fromZap(l.zap.With(zapFields...))
}

// WithError returns a child logger carrying the error as a field.
func (l *Logger) WithError(err error) *Logger {
	if err == nil {
		return l
	}
	return fromZap(l.zap.With(zap.Error(err)))
}

// Debug logs a debug message.
func (l *Logger) Debug(msg string) { l.zap.Debug(msg) }

// Debugf logs a formatted debug message.
func (l *Logger) Debugf(format string, args ...interface{}) { l.sugar.Debugf(format, args...) }

// Info logs an info message.
func (l *Logger) Info(msg string) { l.zap.Info(msg) }

// Infof logs a formatted info message.
func (l *Logger) Infof(format string, args ...interface{}) { l.sugar.Infof(format, args...) }

// Warn logs a warning message.
func (l *Logger) Warn(msg string) { l.zap.Warn(msg) }

// Warnf logs a formatted warning message.
func (l *Logger) Warnf(format string, args ...interface{}) { l.sugar.Warnf(format, args...) }

// Error logs an error message.
func (l *Logger) Error(msg string) { l.zap.Error(msg) }

// Errorf logs a formatted error message.
func (l *Logger) Errorf(format string, args ...interface{}) { l.sugar.Errorf(format, args...) }

// Sync flushes any buffered log entries.
func (l *Logger) Sync() error { return l.zap.Sync() }

// GetLogger returns the global logger instance.
func GetLogger() *Logger {
	globalMu.Lock()
	defer globalMu.Unlock()
	return globalLogger
}

// SetLogger sets the global logger instance.
func SetLogger(l *Logger) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalLogger = l
}

// Package-level helpers on the global logger.

// Debugf logs a formatted debug message on the global logger.
func Debugf(format string, args ...interface{}) { GetLogger().Debugf(format, args...) }

// Infof logs a formatted info message on the global logger.
func Infof(format string, args ...interface{}) { GetLogger().Infof(format, args...) }

// Warnf logs a formatted warning message on the global logger.
func Warnf(format string, args ...interface{}) { GetLogger().Warnf(format, args...) }

// Errorf logs a formatted error message on the global logger.
func Errorf(format string, args ...interface{}) { GetLogger().Errorf(format, args...) }

// WithFields returns a contextual child of the global logger.
func WithFields(fields map[string]interface{}) *Logger { return GetLogger().WithFields(fields) }

// WithField returns a contextual child of the global logger.
func WithField(key string, value interface{}) *Logger { return GetLogger().WithField(key, value) }

// LevelFromString converts a string to a log level.
func LevelFromString(s string) Level {
	switch strings.ToLower(s) {
	case "debug":
		return DebugLevel
	case "error":
		return ErrorLevel
	default:
		return InfoLevel
	}
}
