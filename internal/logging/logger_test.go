package logging

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

func TestLoggerTagsLines(t *testing.T) {
	dir := t.TempDir()
	logger, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.Printf("item %s finished", "a")
	logger.Warnf("commitment raised")
	if err := logger.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, WeftDir, "logs", "weft.log"))
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	out := string(data)
	if !strings.Contains(out, "info: item a finished") {
		t.Fatalf("missing info line:\n%s", out)
	}
	if !strings.Contains(out, "warn: commitment raised") {
		t.Fatalf("missing warn line:\n%s", out)
	}
}

func TestLoggerConcurrentWritesKeepLinesWhole(t *testing.T) {
	dir := t.TempDir()
	logger, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				logger.Printf("xxxxxxxxxxxxxxxxxxxx")
			}
		}()
	}
	wg.Wait()
	if err := logger.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, WeftDir, "logs", "weft.log"))
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) != 200 {
		t.Fatalf("expected 200 lines, got %d", len(lines))
	}
	for _, line := range lines {
		if !strings.HasSuffix(line, "info: xxxxxxxxxxxxxxxxxxxx") {
			t.Fatalf("interleaved line: %q", line)
		}
	}
}

func TestNilLoggerIsSafe(t *testing.T) {
	var logger *Logger
	logger.Printf("ignored")
	logger.Warnf("ignored")
	if err := logger.Close(); err != nil {
		t.Fatalf("close on nil logger: %v", err)
	}
}
