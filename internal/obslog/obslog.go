// Package obslog is the host process's leveled logger. It exists
// because the module ABI (§4.6) already defines its own log-level
// vocabulary for the WASM guest's console_log/debug_log calls
// (internal/wasm, internal/abihost); this package gives the host
// process the same vocabulary instead of introducing an unrelated
// third-party logging framework.
package obslog

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

// Level mirrors the module ABI's console_log severities, ordered from
// least to most severe.
type Level uint8

const (
	Trace Level = iota
	Debug
	Info
	Warn
	Error
	Fatal
)

func (l Level) String() string {
	switch l {
	case Trace:
		return "TRACE"
	case Debug:
		return "DEBUG"
	case Info:
		return "INFO"
	case Warn:
		return "WARN"
	case Error:
		return "ERROR"
	case Fatal:
		return "FATAL"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", uint8(l))
	}
}

// ParseLevel converts a case-insensitive level name, as might come from
// an environment variable or flag, to a Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToUpper(s) {
	case "TRACE", "trace":
		return Trace, nil
	case "DEBUG", "debug":
		return Debug, nil
	case "INFO", "info":
		return Info, nil
	case "WARN", "warn":
		return Warn, nil
	case "ERROR", "error":
		return Error, nil
	case "FATAL", "fatal":
		return Fatal, nil
	default:
		return 0, fmt.Errorf("obslog: invalid log level %q", s)
	}
}

// AtLeast reports whether l is at least as severe as other.
func (l Level) AtLeast(other Level) bool { return l >= other }

// Logger writes leveled, timestamped lines to an io.Writer, filtering
// anything below its configured Level.
type Logger struct {
	mu    sync.Mutex
	out   io.Writer
	level Level
}

// New creates a Logger writing to out, logging at level and above.
func New(out io.Writer, level Level) *Logger {
	return &Logger{out: out, level: level}
}

func (lg *Logger) log(level Level, format string, args ...interface{}) {
	if !level.AtLeast(lg.level) {
		return
	}
	lg.mu.Lock()
	defer lg.mu.Unlock()
	fmt.Fprintf(lg.out, "%s [%s] %s\n", time.Now().UTC().Format(time.RFC3339Nano), level, fmt.Sprintf(format, args...))
}

func (lg *Logger) Tracef(format string, args ...interface{}) { lg.log(Trace, format, args...) }
func (lg *Logger) Debugf(format string, args ...interface{}) { lg.log(Debug, format, args...) }
func (lg *Logger) Infof(format string, args ...interface{})  { lg.log(Info, format, args...) }
func (lg *Logger) Warnf(format string, args ...interface{})  { lg.log(Warn, format, args...) }
func (lg *Logger) Errorf(format string, args ...interface{}) { lg.log(Error, format, args...) }
func (lg *Logger) Fatalf(format string, args ...interface{}) { lg.log(Fatal, format, args...) }

// WithLevel returns a copy of the logger at a different filtering level,
// for per-component verbosity (e.g. a reducer call logged at Debug while
// the rest of the host runs at Info).
func (lg *Logger) WithLevel(level Level) *Logger {
	return &Logger{out: lg.out, level: level}
}
