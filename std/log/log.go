package log

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"

	"github.com/named-data/ndnc/std/utils"
)

// Module is implemented by any component that wants to identify itself
// in log lines via a String() method.
type Module = fmt.Stringer

var defaultLogger atomic.Pointer[Logger]

func init() {
	defaultLogger.Store(New(LevelInfo))
}

// Logger is a thin structured logger over log/slog, mapping the
// project's TRACE..FATAL scale onto slog's level space.
type Logger struct {
	mu    sync.Mutex
	level atomic.Int64
	sl    *slog.Logger
}

// New constructs a Logger at the given level, writing text-formatted
// records to stderr.
func New(level Level) *Logger {
	l := &Logger{}
	l.level.Store(int64(level))
	l.sl = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(level),
	}))
	return l
}

// Default returns the process-wide default Logger.
func Default() *Logger {
	return defaultLogger.Load()
}

// SetDefault replaces the process-wide default Logger.
func SetDefault(l *Logger) {
	defaultLogger.Store(l)
}

// Level returns the minimum level this Logger will emit.
func (l *Logger) Level() Level {
	return Level(l.level.Load())
}

// SetLevel changes the minimum level this Logger will emit.
func (l *Logger) SetLevel(level Level) {
	l.level.Store(int64(level))
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sl = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(level),
	}))
}

func (l *Logger) log(level Level, m Module, msg string, kv []any) {
	if level < l.Level() {
		return
	}
	args := make([]any, 0, len(kv)+2)
	args = append(args, "module", m.String())
	args = append(args, kv...)
	l.sl.Log(context.Background(), slog.Level(level), msg, args...)
}

// Trace logs at TRACE level.
func (l *Logger) Trace(m Module, msg string, kv ...any) { l.log(LevelTrace, m, msg, kv) }

// Debug logs at DEBUG level.
func (l *Logger) Debug(m Module, msg string, kv ...any) { l.log(LevelDebug, m, msg, kv) }

// Info logs at INFO level.
func (l *Logger) Info(m Module, msg string, kv ...any) { l.log(LevelInfo, m, msg, kv) }

// Warn logs at WARN level.
func (l *Logger) Warn(m Module, msg string, kv ...any) { l.log(LevelWarn, m, msg, kv) }

// Error logs at ERROR level.
func (l *Logger) Error(m Module, msg string, kv ...any) { l.log(LevelError, m, msg, kv) }

// Fatal logs at FATAL level, dumps a goroutine stack trace, and exits
// the process with status 1.
func (l *Logger) Fatal(m Module, msg string, kv ...any) {
	l.log(LevelFatal, m, msg, kv)
	utils.PrintStackTrace()
	os.Exit(1)
}

// Package-level helpers delegate to Default(), matching the call
// pattern (log.Trace(subject, msg, kv...)) used throughout the module.

func Trace(m Module, msg string, kv ...any) { Default().Trace(m, msg, kv...) }
func Debug(m Module, msg string, kv ...any) { Default().Debug(m, msg, kv...) }
func Info(m Module, msg string, kv ...any)  { Default().Info(m, msg, kv...) }
func Warn(m Module, msg string, kv ...any)  { Default().Warn(m, msg, kv...) }
func Error(m Module, msg string, kv ...any) { Default().Error(m, msg, kv...) }
func Fatal(m Module, msg string, kv ...any) { Default().Fatal(m, msg, kv...) }
