// Package logger provides verbose logging for the grabdocs CLI and server.
// When verbose mode is enabled via the --verbose flag, pipeline stages are
// traced to stderr. Errors are always printed.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
)

var (
	mu      sync.RWMutex
	verbose bool
	output  io.Writer = os.Stderr
)

// SetVerbose enables or disables verbose logging.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
}

// IsVerbose returns true if verbose mode is enabled.
func IsVerbose() bool {
	mu.RLock()
	defer mu.RUnlock()
	return verbose
}

// SetOutput sets the output writer for logs.
// Defaults to os.Stderr. Useful for testing.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
}

// Writer returns a writer that forwards to the current output.
func Writer() io.Writer {
	return writerFunc(func(p []byte) (int, error) {
		mu.RLock()
		defer mu.RUnlock()
		return output.Write(p)
	})
}

type writerFunc func([]byte) (int, error)

func (f writerFunc) Write(p []byte) (int, error) { return f(p) }

func logf(always bool, level, prefix, format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	if verbose || always {
		fmt.Fprintf(output, level+prefix+format+"\n", args...)
	}
}

// Debug prints a message if verbose mode is enabled.
func Debug(format string, args ...any) {
	logf(false, "[DEBUG] ", "", format, args...)
}

// Section prints a section header if verbose mode is enabled.
func Section(name string) {
	mu.RLock()
	defer mu.RUnlock()
	if verbose {
		fmt.Fprintf(output, "\n=== %s ===\n", name)
	}
}

// Info prints an informational message if verbose mode is enabled.
func Info(format string, args ...any) {
	logf(false, "[INFO] ", "", format, args...)
}

// Warn prints a warning message if verbose mode is enabled.
func Warn(format string, args ...any) {
	logf(false, "[WARN] ", "", format, args...)
}

// Error prints an error message regardless of verbose mode.
func Error(format string, args ...any) {
	logf(true, "[ERROR] ", "", format, args...)
}

// Logger tags every message with a component name.
type Logger struct {
	prefix string
}

// With returns a Logger whose messages start with "component: ".
func With(component string) Logger {
	return Logger{prefix: component + ": "}
}

// Debug prints a tagged message if verbose mode is enabled.
func (l Logger) Debug(format string, args ...any) {
	logf(false, "[DEBUG] ", l.prefix, format, args...)
}

// Info prints a tagged message if verbose mode is enabled.
func (l Logger) Info(format string, args ...any) {
	logf(false, "[INFO] ", l.prefix, format, args...)
}

// Warn prints a tagged warning if verbose mode is enabled.
func (l Logger) Warn(format string, args ...any) {
	logf(false, "[WARN] ", l.prefix, format, args...)
}

// Error prints a tagged error regardless of verbose mode.
func (l Logger) Error(format string, args ...any) {
	logf(true, "[ERROR] ", l.prefix, format, args...)
}
