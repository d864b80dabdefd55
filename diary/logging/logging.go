// Package logging provides the leveled run log for the diary pipeline.
// Messages go to stderr and, when configured, are appended to a log file.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Level orders log severities.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return fmt.Sprintf("LEVEL(%d)", int(l))
	}
}

// ParseLevel accepts DEBUG, INFO, WARN/WARNING and ERROR in any case.
func ParseLevel(s string) (Level, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return LevelDebug, nil
	case "", "INFO":
		return LevelInfo, nil
	case "WARN", "WARNING":
		return LevelWarn, nil
	case "ERROR":
		return LevelError, nil
	default:
		return LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

// Logger is safe for concurrent use.
type Logger struct {
	mu     sync.Mutex
	level  Level
	output io.Writer
	closer io.Closer
	now    func() time.Time
}

// New returns a logger writing records at or above level to w.
func New(level Level, w io.Writer) *Logger {
	if w == nil {
		w = io.Discard
	}
	return &Logger{level: level, output: w, now: time.Now}
}

// Discard returns a logger that drops everything. Useful in tests.
func Discard() *Logger {
	return New(LevelError+1, io.Discard)
}

// Open builds a logger writing to stderr and, if filePath is non-empty, appending to that file.
func Open(level Level, filePath string) (*Logger, error) {
	if filePath == "" {
		return New(level, os.Stderr), nil
	}
	if err := os.MkdirAll(filepath.Dir(filePath), 0o755); err != nil {
		return nil, fmt.Errorf("logging: mkdir log dir: %w", err)
	}
	f, err := os.OpenFile(filePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("logging: open log file: %w", err)
	}
	l := New(level, io.MultiWriter(os.Stderr, f))
	l.closer = f
	return l, nil
}

// Close releases the log file, if any.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closer == nil {
		return nil
	}
	err := l.closer.Close()
	l.closer = nil
	l.output = io.Discard
	return err
}

func (l *Logger) Enabled(level Level) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return level >= l.level
}

func (l *Logger) Debug(format string, args ...any) { l.log(LevelDebug, format, args...) }
func (l *Logger) Info(format string, args ...any)  { l.log(LevelInfo, format, args...) }
func (l *Logger) Warn(format string, args ...any)  { l.log(LevelWarn, format, args...) }
func (l *Logger) Error(format string, args ...any) { l.log(LevelError, format, args...) }

func (l *Logger) log(level Level, format string, args ...any) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if level < l.level {
		return
	}
	ts := l.now().Format("2006-01-02 15:04:05")
	fmt.Fprintf(l.output, "%s [%s] %s\n", ts, level, fmt.Sprintf(format, args...))
}
