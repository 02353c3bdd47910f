package logging

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func readEvents(t *testing.T, path string) []Event {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open log: %v", err)
	}
	defer f.Close()

	var events []Event
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var e Event
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			t.Fatalf("parse log line: %v", err)
		}
		events = append(events, e)
	}
	return events
}

func TestLoggerWritesBookAndErrorLogs(t *testing.T) {
	dir := t.TempDir()
	logger, err := NewLogger(dir, "book-1")
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}

	if err := logger.Info(CategoryWorkflow, "run_started", "starting", nil); err != nil {
		t.Fatalf("info: %v", err)
	}
	if err := logger.Error(CategoryGeneration, "call_failed", "boom", map[string]any{"attempt": 2}); err != nil {
		t.Fatalf("error: %v", err)
	}
	if err := logger.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	book := readEvents(t, filepath.Join(dir, "books", "book-1.jsonl"))
	if len(book) != 2 {
		t.Fatalf("expected 2 book events, got %d", len(book))
	}
	if book[0].BookID != "book-1" {
		t.Errorf("book id not stamped: %+v", book[0])
	}

	errs := readEvents(t, filepath.Join(dir, "errors.jsonl"))
	if len(errs) != 1 || errs[0].EventType != "call_failed" {
		t.Fatalf("expected 1 error event, got %+v", errs)
	}
}

func TestLoggerMinLevelFiltersDebug(t *testing.T) {
	dir := t.TempDir()
	logger, err := NewLogger(dir, "book-2")
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	defer logger.Close()

	if err := logger.Debug(CategoryStorage, "query", "hidden", nil); err != nil {
		t.Fatalf("debug: %v", err)
	}
	logger.SetMinLevel(LevelDebug)
	if err := logger.Debug(CategoryStorage, "query", "visible", nil); err != nil {
		t.Fatalf("debug: %v", err)
	}

	events := readEvents(t, filepath.Join(dir, "books", "book-2.jsonl"))
	if len(events) != 1 || events[0].Message != "visible" {
		t.Fatalf("expected only the post-SetMinLevel debug event, got %+v", events)
	}
}

func TestParseLevel(t *testing.T) {
	if ParseLevel("warn") != LevelWarn {
		t.Error("warn should parse")
	}
	if ParseLevel("nonsense") != LevelInfo {
		t.Error("unknown levels default to info")
	}
}
