// Package logging appends timestamped run logs under .weft/logs so runs can
// be inspected after the process exits. Lines carry a level tag: info for
// routine scheduling traffic, warn for commitment-ladder and spiral events.
// The logger is nil-safe: a nil logger silently discards everything, which
// keeps library callers free to skip log configuration.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// WeftDir is the per-project directory run artifacts live in.
const WeftDir = ".weft"

// Logger appends tagged, timestamped lines to .weft/logs/weft.log. Safe for
// concurrent use; item completions log from executor goroutines.
type Logger struct {
	mu   sync.Mutex
	file *os.File
}

// New creates (or reuses) the log file under the given project directory.
func New(projectDir string) (*Logger, error) {
	logDir := filepath.Join(projectDir, WeftDir, "logs")
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, fmt.Errorf("logging: ensure log dir: %w", err)
	}
	path := filepath.Join(logDir, "weft.log")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("logging: open log file: %w", err)
	}
	return &Logger{file: f}, nil
}

// Close releases the file handle.
func (l *Logger) Close() error {
	if l == nil || l.file == nil {
		return nil
	}
	return l.file.Close()
}

// Printf writes an info-tagged line.
func (l *Logger) Printf(format string, args ...any) {
	l.write("info", format, args...)
}

// Warnf writes a warn-tagged line. The queue processor uses it for
// commitment raises, spiral findings, and skipped work.
func (l *Logger) Warnf(format string, args ...any) {
	l.write("warn", format, args...)
}

func (l *Logger) write(tag, format string, args ...any) {
	if l == nil || l.file == nil {
		return
	}
	line := strings.TrimRight(fmt.Sprintf(format, args...), "\n")
	timestamp := time.Now().Format(time.RFC3339)
	l.mu.Lock()
	fmt.Fprintf(l.file, "[%s] %s: %s\n", timestamp, tag, line)
	l.mu.Unlock()
}
