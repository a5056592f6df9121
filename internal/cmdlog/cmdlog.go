// Package cmdlog keeps the bounded, append-only command log shown below the panes.
package cmdlog

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Exported constants.
const (
	DefaultCapacity = 200
	TimeFormat      = "15:04:05"
)

// Source identifies who produced an entry.
type Source string

// Sources.
const (
	SourceUser   Source = "user"
	SourceAgent  Source = "agent"
	SourceSystem Source = "system"
)

// Level is the severity of an entry.
type Level int

// Levels.
const (
	LevelInfo Level = iota
	LevelError
)

// String returns the level name.
func (l Level) String() string {
	if l == LevelError {
		return "error"
	}

	return "info"
}

// Entry is one line of the log.
type Entry struct {
	Time    time.Time
	Source  Source
	Level   Level
	Message string
}

// String renders "15:04:05 [agent] message"; errors are marked.
func (e Entry) String() string {
	if e.Level == LevelError {
		return fmt.Sprintf("%s [%s] error: %s", e.Time.Format(TimeFormat), e.Source, e.Message)
	}

	return fmt.Sprintf("%s [%s] %s", e.Time.Format(TimeFormat), e.Source, e.Message)
}

// Log is a bounded log. The oldest entries are evicted first. Safe for concurrent use.
type Log struct {
	mu       sync.RWMutex
	entries  []Entry
	capacity int
	now      func() time.Time
	logger   *zap.Logger
	observe  func(n int)
}

// Option configures a Log.
type Option func(*Log)

// WithClock sets the clock used to stamp entries.
func WithClock(now func() time.Time) Option {
	return func(l *Log) {
		l.now = now
	}
}

// WithLogger mirrors every entry to logger.
func WithLogger(logger *zap.Logger) Option {
	return func(l *Log) {
		l.logger = logger
	}
}

// WithObserver is called with the entry count after every append.
func WithObserver(fn func(n int)) Option {
	return func(l *Log) {
		l.observe = fn
	}
}

// New creates a log holding at most capacity entries. Values below 1 use DefaultCapacity.
func New(capacity int, opts ...Option) *Log {
	if capacity < 1 {
		capacity = DefaultCapacity
	}

	l := &Log{
		capacity: capacity,
		now:      time.Now,
		logger:   zap.NewNop(),
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Append adds an entry, evicting the oldest when full.
func (l *Log) Append(source Source, level Level, msg string) {
	entry := Entry{Time: l.now(), Source: source, Level: level, Message: msg}

	l.mu.Lock()
	l.entries = append(l.entries, entry)

	if over := len(l.entries) - l.capacity; over > 0 {
		l.entries = append([]Entry(nil), l.entries[over:]...)
	}

	n := len(l.entries)
	l.mu.Unlock()

	fields := []zap.Field{zap.String("source", string(source))}
	if level == LevelError {
		l.logger.Warn(msg, fields...)
	} else {
		l.logger.Info(msg, fields...)
	}

	if l.observe != nil {
		l.observe(n)
	}
}

// Infof appends a formatted info entry.
func (l *Log) Infof(source Source, format string, args ...any) {
	l.Append(source, LevelInfo, fmt.Sprintf(format, args...))
}

// Errorf appends a formatted error entry.
func (l *Log) Errorf(source Source, format string, args ...any) {
	l.Append(source, LevelError, fmt.Sprintf(format, args...))
}

// Entries returns a copy of the entries, oldest first.
func (l *Log) Entries() []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return append([]Entry(nil), l.entries...)
}

// Lines returns the rendered entries, oldest first.
func (l *Log) Lines() []string {
	entries := l.Entries()

	lines := make([]string, len(entries))
	for i, entry := range entries {
		lines[i] = entry.String()
	}

	return lines
}

// Tail returns the rendered last n entries.
func (l *Log) Tail(n int) []string {
	lines := l.Lines()
	if n >= 0 && len(lines) > n {
		return lines[len(lines)-n:]
	}

	return lines
}

// Len returns the number of entries.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return len(l.entries)
}

// Capacity returns the maximum number of entries.
func (l *Log) Capacity() int {
	return l.capacity
}
