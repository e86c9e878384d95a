// Package utils provides the logging and error-presentation helpers shared
// across the client.
package utils

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// Logger is the developer-facing diagnostic log. User-facing feedback goes
// through the presenter instead; nothing here is meant for the status bar.
// Debug lines are dropped unless verbose mode is on.
type Logger struct {
	mu      sync.RWMutex
	verbose bool
	out     io.Writer
}

var (
	loggerInstance *Logger
	once           sync.Once
)

// GetLogger returns the singleton logger instance.
func GetLogger() *Logger {
	once.Do(func() {
		loggerInstance = &Logger{out: os.Stderr}
	})
	return loggerInstance
}

// SetVerboseMode sets the verbose mode globally.
func SetVerboseMode(verbose bool) {
	GetLogger().SetVerbose(verbose)
}

// SetVerbose toggles debug output for this logger instance.
func (l *Logger) SetVerbose(verbose bool) {
	l.mu.Lock()
	l.verbose = verbose
	l.mu.Unlock()
}

// IsVerbose reports whether debug output is enabled.
func (l *Logger) IsVerbose() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.verbose
}

// SetOutput redirects log output. Used by tests and by the TUI, which owns
// the terminal while running.
func (l *Logger) SetOutput(w io.Writer) {
	l.mu.Lock()
	l.out = w
	l.mu.Unlock()
}

// emit writes one line. A message with no args is printed literally, so
// callers can log strings containing % verbs without them being eaten.
func (l *Logger) emit(level, msgOrFormat string, args ...interface{}) {
	msg := msgOrFormat
	if len(args) > 0 {
		msg = fmt.Sprintf(msgOrFormat, args...)
	}
	l.mu.RLock()
	out := l.out
	l.mu.RUnlock()
	fmt.Fprintf(out, "%s %s\n", level, msg)
}

// Debug logs a diagnostic line, shown only in verbose mode.
func (l *Logger) Debug(msgOrFormat string, args ...interface{}) {
	if !l.IsVerbose() {
		return
	}
	l.emit(time.Now().Format("15:04:05")+" [DEBUG]", msgOrFormat, args...)
}

func (l *Logger) Info(msgOrFormat string, args ...interface{}) {
	l.emit("[INFO]", msgOrFormat, args...)
}

func (l *Logger) Warn(msgOrFormat string, args ...interface{}) {
	l.emit("[WARN]", msgOrFormat, args...)
}

func (l *Logger) Error(msgOrFormat string, args ...interface{}) {
	l.emit("[ERROR]", msgOrFormat, args...)
}

// Debugf logs a debug message using the global logger.
func Debugf(format string, args ...interface{}) {
	GetLogger().Debug(format, args...)
}

// Infof logs an info message using the global logger.
func Infof(format string, args ...interface{}) {
	GetLogger().Info(format, args...)
}

// Warnf logs a warning message using the global logger.
func Warnf(format string, args ...interface{}) {
	GetLogger().Warn(format, args...)
}

// Errorf logs an error message using the global logger.
func Errorf(format string, args ...interface{}) {
	GetLogger().Error(format, args...)
}
