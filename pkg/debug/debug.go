// Package debug provides conditional debug logging for kg.
//
// Debug logging is enabled by setting the KG_DEBUG environment variable:
//
//	KG_DEBUG=1 kg --graph topics.json
//
// When enabled, debug messages are written to stderr with timestamps.
// When disabled (default), all debug functions are no-ops.
//
// Usage:
//
//	import "github.com/vanderheijden86/kgview/pkg/debug"
//
//	func load() {
//	    debug.Log("loaded %d nodes", count)
//	    debug.LogTiming("load", elapsed)
//	}
package debug

import (
	"io"
	"log"
	"os"
	"sync"
	"time"
)

const prefix = "[KG_DEBUG] "

var (
	mu      sync.Mutex
	enabled bool
	logger  *log.Logger
	out     io.Writer = os.Stderr
)

func init() {
	if os.Getenv("KG_DEBUG") != "" {
		enabled = true
		logger = log.New(out, prefix, log.Ltime|log.Lmicroseconds)
	}
}

// Enabled returns whether debug logging is enabled.
func Enabled() bool {
	mu.Lock()
	defer mu.Unlock()
	return enabled
}

// SetEnabled allows programmatic control of debug logging.
func SetEnabled(e bool) {
	mu.Lock()
	defer mu.Unlock()
	enabled = e
	if e && logger == nil {
		logger = log.New(out, prefix, log.Ltime|log.Lmicroseconds)
	}
}

// SetOutput redirects debug output. Tests use it to capture log lines.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	out = w
	if logger != nil {
		logger.SetOutput(w)
	}
}

// Logger returns a *log.Logger for components that accept one. It writes
// through the debug logger when enabled and discards otherwise.
func Logger() *log.Logger {
	mu.Lock()
	defer mu.Unlock()
	if !enabled {
		return log.New(io.Discard, "", 0)
	}
	return logger
}

func current() *log.Logger {
	mu.Lock()
	defer mu.Unlock()
	if !enabled {
		return nil
	}
	return logger
}

// Log writes a debug message if debug logging is enabled.
// Uses printf-style formatting.
func Log(format string, args ...any) {
	if l := current(); l != nil {
		l.Printf(format, args...)
	}
}

// LogTiming writes a timing message if debug logging is enabled.
func LogTiming(name string, d time.Duration) {
	if l := current(); l != nil {
		l.Printf("%s took %v", name, d)
	}
}

// LogIf writes a debug message only if the condition is true.
func LogIf(cond bool, format string, args ...any) {
	if !cond {
		return
	}
	Log(format, args...)
}

// LogEnterExit logs function entry and exit with timing.
//
//	func myFunc() {
//	    defer debug.LogEnterExit("myFunc")()
//	}
func LogEnterExit(name string) func() {
	l := current()
	if l == nil {
		return func() {}
	}
	l.Printf("-> %s", name)
	start := time.Now()
	return func() {
		l.Printf("<- %s (%v)", name, time.Since(start))
	}
}

// Dump logs a value with its type for debugging complex structures.
func Dump(name string, v any) {
	if l := current(); l != nil {
		l.Printf("%s: %T = %+v", name, v, v)
	}
}

// Section logs a section header for visual organization in debug output.
func Section(name string) {
	if l := current(); l != nil {
		l.Printf("=== %s ===", name)
	}
}
