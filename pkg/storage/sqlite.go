package storage

import (
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	sqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

//go:embed schema.sql
var schemaSQL string

// Store manages SQLite database operations
type Store struct {
	db *sql.DB
}

// ErrStoreClosed indicates the underlying database connection is unavailable.
var ErrStoreClosed = errors.New("storage: closed")

// ErrConflict indicates a guarded update found the record in a different
// state than expected (stage pointer moved, claim held elsewhere).
var ErrConflict = errors.New("storage: conflict")

// New creates a new store and initializes the database
func New(dbPath string) (*Store, error) {
	if dbPath != ":memory:" && !strings.HasPrefix(dbPath, "file:") {
		if dir := filepath.Dir(dbPath); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o700); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite supports one writer at a time, but multiple readers with WAL mode
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// Wait instead of immediately returning SQLITE_BUSY
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if err := runMigrations(db); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying database connection
func (s *Store) DB() *sql.DB {
	return s.db
}

// Migration represents a database schema migration
type Migration struct {
	Version int
	Name    string
	Apply   func(db *sql.DB) error
}

// migrations is the ordered list of all migrations
var migrations = []Migration{
	{1, "initial_schema", func(db *sql.DB) error { return nil }}, // Base schema from schemaSQL
	{2, "books_claim_columns", ensureBooksClaimSchema},
}

// runMigrations runs the schema migrations with version tracking
func runMigrations(db *sql.DB) error {
	// First apply the base schema (idempotent via CREATE TABLE IF NOT EXISTS)
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("apply base schema: %w", err)
	}

	currentVersion, err := getSchemaVersion(db)
	if err != nil {
		return fmt.Errorf("get schema version: %w", err)
	}

	for _, m := range migrations {
		if m.Version <= currentVersion {
			continue
		}

		if err := m.Apply(db); err != nil {
			return fmt.Errorf("migration %d (%s): %w", m.Version, m.Name, err)
		}

		if err := recordMigration(db, m.Version, m.Name); err != nil {
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}
	}

	return nil
}

// getSchemaVersion returns the current schema version (0 if no migrations applied)
func getSchemaVersion(db *sql.DB) (int, error) {
	var version int
	err := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&version)
	if err != nil {
		// Table might not exist yet (first run before schemaSQL applied)
		if strings.Contains(err.Error(), "no such table") {
			return 0, nil
		}
		return 0, err
	}
	return version, nil
}

// recordMigration records that a migration was applied
func recordMigration(db *sql.DB, version int, name string) error {
	_, err := db.Exec(
		"INSERT INTO schema_migrations (version, name) VALUES (?, ?)",
		version, name,
	)
	return err
}

// GetSchemaVersion returns the current schema version for external use
func (s *Store) GetSchemaVersion() (int, error) {
	return getSchemaVersion(s.db)
}

// ensureBooksClaimSchema backfills claim columns on databases created
// before the run guard existed.
func ensureBooksClaimSchema(db *sql.DB) error {
	rows, err := db.Query(`PRAGMA table_info(books)`)
	if err != nil {
		return fmt.Errorf("books pragma: %w", err)
	}
	defer rows.Close()

	cols := make(map[string]bool)
	for rows.Next() {
		var cid int
		var name, ctype string
		var notNull int
		var dflt any
		var pk int
		if err := rows.Scan(&cid, &name, &ctype, &notNull, &dflt, &pk); err != nil {
			return fmt.Errorf("scan books pragma: %w", err)
		}
		cols[strings.ToLower(name)] = true
	}
	if err := rows.Err(); err != nil {
		return err
	}

	if !cols["claimed_by"] {
		if _, err := db.Exec(`ALTER TABLE books ADD COLUMN claimed_by TEXT`); err != nil {
			return fmt.Errorf("add books.claimed_by: %w", err)
		}
	}
	if !cols["claimed_at"] {
		if _, err := db.Exec(`ALTER TABLE books ADD COLUMN claimed_at TIMESTAMP`); err != nil {
			return fmt.Errorf("add books.claimed_at: %w", err)
		}
	}
	return nil
}

func isBusyError(err error) bool {
	if err == nil {
		return false
	}
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		code := sqliteErr.Code()
		return code == sqlite3.SQLITE_BUSY || code == sqlite3.SQLITE_LOCKED
	}
	return false
}

// execRetry runs an exec statement with bounded retries on SQLITE_BUSY.
// Returns the result of the last attempt.
func (s *Store) execRetry(query string, args ...any) (sql.Result, error) {
	const maxRetries = 3
	baseDelay := 100 * time.Millisecond

	var res sql.Result
	var err error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		res, err = s.db.Exec(query, args...)
		if err == nil {
			return res, nil
		}
		if isBusyError(err) && attempt < maxRetries {
			time.Sleep(baseDelay * time.Duration(1<<uint(attempt))) // Exponential backoff
			continue
		}
		return nil, err
	}
	return res, err
}
