// Package log is classwind's debug logger. Entries are single key=value lines
// tagged with a level and a category. Nothing is written until Init (or one of
// its variants) runs, which the CLI does for --debug or CLASSWIND_DEBUG.
package log

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/zjrosen/classwind/internal/pubsub"
)

// Level is an entry's severity.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var levelNames = [...]string{"DEBUG", "INFO", "WARN", "ERROR"}

func (l Level) String() string {
	if l < LevelDebug || l > LevelError {
		return "UNKNOWN"
	}
	return levelNames[l]
}

// Category names the subsystem an entry came from.
type Category string

const (
	CatConfig    Category = "config"
	CatMatcher   Category = "matcher"
	CatRanking   Category = "ranking"
	CatSort      Category = "sort"
	CatDiff      Category = "diff"
	CatHighlight Category = "highlight"
	CatBatch     Category = "batch"
	CatBridge    Category = "bridge"
	CatWatcher   Category = "watcher"
	CatCache     Category = "cache"
	CatUI        Category = "ui"
)

// EnvDebug turns logging on when set to anything non-empty.
const EnvDebug = "CLASSWIND_DEBUG"

const timeLayout = "2006-01-02T15:04:05"

// Logger writes entries to one sink and republishes them on a broker.
type Logger struct {
	mu       sync.Mutex
	out      io.Writer
	closer   io.Closer
	enabled  bool
	minLevel Level
	events   *pubsub.Broker[string]
}

func newLoggerTo(out io.Writer, closer io.Closer) *Logger {
	return &Logger{
		out:      out,
		closer:   closer,
		enabled:  true,
		minLevel: LevelDebug,
		events:   pubsub.NewBroker[string](),
	}
}

var (
	stdMu sync.RWMutex
	std   *Logger
)

func current() *Logger {
	stdMu.RLock()
	defer stdMu.RUnlock()
	return std
}

// install swaps in l and returns a func that closes its sink.
func install(l *Logger) func() {
	stdMu.Lock()
	prev := std
	std = l
	stdMu.Unlock()
	if prev != nil {
		prev.events.Close()
	}
	return func() {
		if l.closer != nil {
			_ = l.closer.Close()
		}
	}
}

// Init appends to the file at path. The returned func closes it.
func Init(path string) (func(), error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644) //nolint:gosec // G304: the debug log path comes from the user
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}
	return install(newLoggerTo(f, f)), nil
}

// InitWithTeaLog opens path through tea.LogToFile, so output the standard
// library logger produces inside Bubble Tea lands in the same file.
func InitWithTeaLog(path string, prefix string) (func(), error) {
	f, err := tea.LogToFile(path, prefix)
	if err != nil {
		return nil, err
	}
	return install(newLoggerTo(f, f)), nil
}

// InitWriter logs to w, which is never closed.
func InitWriter(w io.Writer) {
	install(newLoggerTo(w, nil))
}

// DebugRequested reports whether EnvDebug is set.
func DebugRequested() bool {
	return os.Getenv(EnvDebug) != ""
}

// SetEnabled mutes or unmutes the current logger.
func SetEnabled(enabled bool) {
	if l := current(); l != nil {
		l.mu.Lock()
		l.enabled = enabled
		l.mu.Unlock()
	}
}

// SetMinLevel drops entries below level.
func SetMinLevel(level Level) {
	if l := current(); l != nil {
		l.mu.Lock()
		l.minLevel = level
		l.mu.Unlock()
	}
}

func Debug(cat Category, msg string, fields ...any) {
	emit(LevelDebug, cat, msg, fields)
}

func Info(cat Category, msg string, fields ...any) {
	emit(LevelInfo, cat, msg, fields)
}

func Warn(cat Category, msg string, fields ...any) {
	emit(LevelWarn, cat, msg, fields)
}

func Error(cat Category, msg string, fields ...any) {
	emit(LevelError, cat, msg, fields)
}

// ErrorErr logs at error level with err appended as the "error" field.
func ErrorErr(cat Category, msg string, err error, fields ...any) {
	text := "<nil>"
	if err != nil {
		text = err.Error()
	}
	emit(LevelError, cat, msg, append(fields, "error", text))
}

func emit(level Level, cat Category, msg string, fields []any) {
	l := current()
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.enabled || level < l.minLevel {
		return
	}

	entry := formatEntry(time.Now(), level, cat, msg, fields)
	if l.out != nil {
		_, _ = io.WriteString(l.out, entry)
	}
	l.events.Publish(pubsub.CreatedEvent, entry)
}

// formatEntry renders one line:
//
//	2025-12-06T10:45:00 [ERROR] [sort] message key=value key2=value2
//
// A trailing key without a value is written as key=<missing>.
func formatEntry(now time.Time, level Level, cat Category, msg string, fields []any) string {
	var sb strings.Builder
	sb.WriteString(now.Format(timeLayout))
	fmt.Fprintf(&sb, " [%s] [%s] %s", level, cat, msg)
	for i := 0; i < len(fields); i += 2 {
		if i+1 == len(fields) {
			fmt.Fprintf(&sb, " %v=<missing>", fields[i])
			break
		}
		fmt.Fprintf(&sb, " %v=%v", fields[i], fields[i+1])
	}
	sb.WriteByte('\n')
	return sb.String()
}

// LogEvent carries one formatted entry.
type LogEvent = pubsub.Event[string]

// LogListener delivers entries to a Bubble Tea program.
type LogListener = pubsub.ContinuousListener[string]

// NewListener subscribes to entries for the lifetime of ctx. It returns nil
// when logging is off.
func NewListener(ctx context.Context) *LogListener {
	l := current()
	if l == nil {
		return nil
	}
	return pubsub.NewContinuousListener(ctx, l.events)
}
