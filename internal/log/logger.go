// Package log is the levelled logger used across the scope. It keeps a
// small package-level API (Debugf, Infof, ...) backed by a zap sugared
// logger with an atomically adjustable level.
package log

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogLevel defines the severity of a log message.
type LogLevel uint32

// Constants for log levels.
const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

// String returns the string representation of the LogLevel.
func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	case LevelFatal:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

func (l LogLevel) zapLevel() zapcore.Level {
	switch l {
	case LevelDebug:
		return zapcore.DebugLevel
	case LevelWarn:
		return zapcore.WarnLevel
	case LevelError:
		return zapcore.ErrorLevel
	case LevelFatal:
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}

// ParseLevel converts a string (case-insensitive) to a LogLevel.
// Returns LevelInfo and false if the string is not recognized.
func ParseLevel(levelStr string) (LogLevel, bool) {
	switch strings.ToUpper(levelStr) {
	case "DEBUG":
		return LevelDebug, true
	case "INFO":
		return LevelInfo, true
	case "WARN", "WARNING":
		return LevelWarn, true
	case "ERROR":
		return LevelError, true
	case "FATAL":
		return LevelFatal, true
	default:
		return LevelInfo, false
	}
}

// --- Global Logger State ---

// level is shared by every logger handed out by this package, so SetLevel
// also affects Named loggers created earlier.
var level = zap.NewAtomicLevelAt(zapcore.InfoLevel)

var sugar = newLogger().Sugar()

func newLogger() *zap.Logger {
	enc := zap.NewDevelopmentEncoderConfig()
	enc.EncodeTime = zapcore.TimeEncoderOfLayout("2006/01/02 15:04:05.000000")
	enc.EncodeLevel = zapcore.CapitalLevelEncoder
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(enc), zapcore.Lock(os.Stderr), level)
	return zap.New(core)
}

// SetLevel sets the global logging level atomically.
func SetLevel(l LogLevel) {
	level.SetLevel(l.zapLevel())
}

// GetLevel gets the current global logging level.
func GetLevel() LogLevel {
	switch level.Level() {
	case zapcore.DebugLevel:
		return LevelDebug
	case zapcore.WarnLevel:
		return LevelWarn
	case zapcore.ErrorLevel:
		return LevelError
	case zapcore.FatalLevel, zapcore.PanicLevel, zapcore.DPanicLevel:
		return LevelFatal
	default:
		return LevelInfo
	}
}

// Enabled reports whether messages at l are currently written.
func Enabled(l LogLevel) bool {
	return level.Enabled(l.zapLevel())
}

// Sync flushes buffered log entries. Call it once during shutdown.
func Sync() error {
	return sugar.Sync()
}

// --- Public Logging Functions ---

// Debugf logs a formatted debug message if the level is appropriate.
func Debugf(format string, v ...interface{}) { sugar.Debugf(format, v...) }

// Infof logs a formatted info message if the level is appropriate.
func Infof(format string, v ...interface{}) { sugar.Infof(format, v...) }

// Warnf logs a formatted warning message if the level is appropriate.
func Warnf(format string, v ...interface{}) { sugar.Warnf(format, v...) }

// Errorf logs a formatted error message if the level is appropriate.
func Errorf(format string, v ...interface{}) { sugar.Errorf(format, v...) }

// Fatalf logs a formatted fatal message and exits the application.
func Fatalf(format string, v ...interface{}) { sugar.Fatalf(format, v...) }

// Debug logs a debug message if the level is appropriate.
func Debug(v ...interface{}) { sugar.Debug(v...) }

// Info logs an info message if the level is appropriate.
func Info(v ...interface{}) { sugar.Info(v...) }

// Warn logs a warning message if the level is appropriate.
func Warn(v ...interface{}) { sugar.Warn(v...) }

// Error logs an error message if the level is appropriate.
func Error(v ...interface{}) { sugar.Error(v...) }

// Fatal logs a fatal message and exits the application.
func Fatal(v ...interface{}) { sugar.Fatal(v...) }

// --- Component loggers ---

// Logger is a component-scoped logger. Its messages carry the component
// name and obey the global level.
type Logger struct {
	s *zap.SugaredLogger
}

// Named returns a logger whose entries are tagged with component.
func Named(component string) *Logger {
	return &Logger{s: sugar.Named(component)}
}

// With returns a child logger carrying the given key/value pairs.
func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	return &Logger{s: l.s.With(keysAndValues...)}
}

func (l *Logger) Debugf(format string, v ...interface{}) { l.s.Debugf(format, v...) }
func (l *Logger) Infof(format string, v ...interface{})  { l.s.Infof(format, v...) }
func (l *Logger) Warnf(format string, v ...interface{})  { l.s.Warnf(format, v...) }
func (l *Logger) Errorf(format string, v ...interface{}) { l.s.Errorf(format, v...) }
