// Package logging provides structured, leveled logging for autoassist.
// Log output goes to stderr by default: stdout belongs to the framed wire
// protocol and must never carry log lines.
package logging

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"
)

// Level represents the severity of a log message.
type Level int

const (
	// DebugLevel is for detailed information useful for debugging.
	DebugLevel Level = iota - 1
	// InfoLevel is for general informational messages.
	InfoLevel
	// WarnLevel is for warning messages.
	WarnLevel
	// ErrorLevel is for error messages.
	ErrorLevel
)

// String returns the string representation of a log level.
func (l Level) String() string {
	switch l {
	case DebugLevel:
		return "DEBUG"
	case InfoLevel:
		return "INFO"
	case WarnLevel:
		return "WARN"
	case ErrorLevel:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel converts a level name ("debug", "info", ...) to a Level.
// Unknown names default to InfoLevel.
func ParseLevel(name string) Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return DebugLevel
	case "warn", "warning":
		return WarnLevel
	case "error":
		return ErrorLevel
	default:
		return InfoLevel
	}
}

// Field represents a key-value pair attached to a log entry.
type Field struct {
	Key   string
	Value interface{}
}

// String creates a string field.
func String(key, value string) Field {
	return Field{Key: key, Value: value}
}

// Int creates an integer field.
func Int(key string, value int) Field {
	return Field{Key: key, Value: value}
}

// Duration creates a duration field.
func Duration(key string, value time.Duration) Field {
	return Field{Key: key, Value: value}
}

// ErrorField creates an error field.
func ErrorField(err error) Field {
	return Field{Key: "error", Value: err}
}

// Any creates a field with an arbitrary value.
func Any(key string, value interface{}) Field {
	return Field{Key: key, Value: value}
}

// Logger is the interface for structured logging.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)

	// WithFields returns a logger that attaches fields to every entry.
	WithFields(fields ...Field) Logger

	// SetLevel sets the minimum level emitted.
	SetLevel(level Level)
}

type textLogger struct {
	mu     *sync.Mutex
	out    io.Writer
	level  *Level
	fields []Field
}

// New creates a Logger writing human-readable lines to w at the given level.
func New(w io.Writer, level Level) Logger {
	l := level
	return &textLogger{mu: &sync.Mutex{}, out: w, level: &l}
}

// Default returns a logger writing to stderr at InfoLevel.
func Default() Logger {
	return New(os.Stderr, InfoLevel)
}

// Nop returns a logger that discards everything.
func Nop() Logger {
	return New(io.Discard, ErrorLevel+1)
}

func (l *textLogger) log(level Level, msg string, fields []Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if level < *l.level {
		return
	}

	var b strings.Builder
	b.WriteString(time.Now().UTC().Format(time.RFC3339))
	b.WriteByte(' ')
	b.WriteString(level.String())
	b.WriteByte(' ')
	b.WriteString(msg)

	all := make([]Field, 0, len(l.fields)+len(fields))
	all = append(all, l.fields...)
	all = append(all, fields...)
	sort.SliceStable(all, func(i, j int) bool { return all[i].Key < all[j].Key })
	for _, f := range all {
		fmt.Fprintf(&b, " %s=%v", f.Key, f.Value)
	}
	b.WriteByte('\n')

	_, _ = io.WriteString(l.out, b.String())
}

func (l *textLogger) Debug(msg string, fields ...Field) { l.log(DebugLevel, msg, fields) }
func (l *textLogger) Info(msg string, fields ...Field)  { l.log(InfoLevel, msg, fields) }
func (l *textLogger) Warn(msg string, fields ...Field)  { l.log(WarnLevel, msg, fields) }
func (l *textLogger) Error(msg string, fields ...Field) { l.log(ErrorLevel, msg, fields) }

func (l *textLogger) WithFields(fields ...Field) Logger {
	merged := make([]Field, 0, len(l.fields)+len(fields))
	merged = append(merged, l.fields...)
	merged = append(merged, fields...)
	return &textLogger{mu: l.mu, out: l.out, level: l.level, fields: merged}
}

func (l *textLogger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	*l.level = level
}
