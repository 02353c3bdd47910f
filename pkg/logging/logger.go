package logging

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Level represents log severity
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Category represents the subsystem generating the log
type Category string

const (
	CategoryWorkflow   Category = "workflow"
	CategoryGeneration Category = "generation"
	CategoryStorage    Category = "storage"
	CategoryCompile    Category = "compile"
	CategoryNotify     Category = "notify"
	CategorySync       Category = "sync"
	CategoryRetry      Category = "retry"
)

// Event represents a structured log event
type Event struct {
	Timestamp time.Time      `json:"timestamp"`
	Level     Level          `json:"level"`
	Category  Category       `json:"category"`
	EventType string         `json:"type"`
	BookID    string         `json:"book_id,omitempty"`
	Section   int            `json:"section,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
	Message   string         `json:"message,omitempty"`
}

// Logger writes structured events to per-book and shared log files
type Logger struct {
	bookID   string
	baseDir  string
	bookFile *os.File
	errFile  *os.File
	mu       sync.Mutex
	minLevel Level
}

// NewLogger creates a structured logger for one book run. Events are
// appended to books/<id>.jsonl; errors additionally go to errors.jsonl.
func NewLogger(baseDir, bookID string) (*Logger, error) {
	booksDir := filepath.Join(baseDir, "books")
	if err := os.MkdirAll(booksDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	bookFile, err := os.OpenFile(
		filepath.Join(booksDir, bookID+".jsonl"),
		os.O_CREATE|os.O_WRONLY|os.O_APPEND,
		0o644,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to open book log: %w", err)
	}

	errFile, err := os.OpenFile(
		filepath.Join(baseDir, "errors.jsonl"),
		os.O_CREATE|os.O_WRONLY|os.O_APPEND,
		0o644,
	)
	if err != nil {
		bookFile.Close()
		return nil, fmt.Errorf("failed to open error log: %w", err)
	}

	return &Logger{
		bookID:   bookID,
		baseDir:  baseDir,
		bookFile: bookFile,
		errFile:  errFile,
		minLevel: LevelInfo,
	}, nil
}

// SetMinLevel sets the minimum log level
func (l *Logger) SetMinLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.minLevel = level
}

// Log writes an event to appropriate destinations
func (l *Logger) Log(event Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.BookID == "" {
		event.BookID = l.bookID
	}

	if !l.shouldLog(event.Level) {
		return nil
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	data = append(data, '\n')

	if l.bookFile != nil {
		if _, err := l.bookFile.Write(data); err != nil {
			return fmt.Errorf("failed to write to book log: %w", err)
		}
	}

	if event.Level == LevelError && l.errFile != nil {
		if _, err := l.errFile.Write(data); err != nil {
			return fmt.Errorf("failed to write to error log: %w", err)
		}
	}

	return nil
}

// shouldLog checks if event should be logged based on level
func (l *Logger) shouldLog(level Level) bool {
	levels := map[Level]int{
		LevelDebug: 0,
		LevelInfo:  1,
		LevelWarn:  2,
		LevelError: 3,
	}
	return levels[level] >= levels[l.minLevel]
}

// Debug logs a debug event
func (l *Logger) Debug(category Category, eventType string, message string, details map[string]any) error {
	return l.Log(Event{Level: LevelDebug, Category: category, EventType: eventType, Message: message, Details: details})
}

// Info logs an info event
func (l *Logger) Info(category Category, eventType string, message string, details map[string]any) error {
	return l.Log(Event{Level: LevelInfo, Category: category, EventType: eventType, Message: message, Details: details})
}

// Warn logs a warning event
func (l *Logger) Warn(category Category, eventType string, message string, details map[string]any) error {
	return l.Log(Event{Level: LevelWarn, Category: category, EventType: eventType, Message: message, Details: details})
}

// Error logs an error event
func (l *Logger) Error(category Category, eventType string, message string, details map[string]any) error {
	return l.Log(Event{Level: LevelError, Category: category, EventType: eventType, Message: message, Details: details})
}

// Close closes all log files
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var errs []error
	if l.bookFile != nil {
		if err := l.bookFile.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if l.errFile != nil {
		if err := l.errFile.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors closing log files: %v", errs)
	}
	return nil
}

// ParseLevel maps a config string to a Level, defaulting to info.
func ParseLevel(s string) Level {
	switch Level(s) {
	case LevelDebug, LevelInfo, LevelWarn, LevelError:
		return Level(s)
	default:
		return LevelInfo
	}
}
