package storage

import (
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// Book lifecycle status constants. Progression is monotonic except for
// explicit human-triggered resets done outside the engine.
const (
	BookStatusPending            = "pending"
	BookStatusOutlineReady       = "outline_ready"
	BookStatusSectionsInProgress = "sections_in_progress"
	BookStatusReadyForReview     = "ready_for_review"
	BookStatusCompiled           = "compiled"
	BookStatusDelivered          = "delivered"
	BookStatusBlocked            = "blocked_on_notes"
	BookStatusFailed             = "failed"
)

// Book represents the top-level unit of work tracked by the engine.
type Book struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	Instructions  string     `json:"instructions"`
	Outline       string     `json:"outline,omitempty"`
	OutlineNotes  string     `json:"outlineNotes,omitempty"`
	SectionNotes  string     `json:"sectionNotes,omitempty"`
	ReviewNotes   string     `json:"reviewNotes,omitempty"`
	OutlineGate   string     `json:"outlineGate"`
	SectionGate   string     `json:"sectionGate"`
	ReviewGate    string     `json:"reviewGate"`
	TotalSections int        `json:"totalSections"`
	NextSection   int        `json:"nextSection"`
	Status        string     `json:"status"`
	LastError     string     `json:"lastError,omitempty"`
	OutputURL     string     `json:"outputURL,omitempty"`
	ClaimedBy     string     `json:"claimedBy,omitempty"`
	ClaimedAt     *time.Time `json:"claimedAt,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

const bookColumns = `book_id, title, instructions, outline, outline_notes, section_notes,
       review_notes, outline_gate, section_gate, review_gate, total_sections,
       next_section, status, last_error, output_url, claimed_by, claimed_at,
       created_at, updated_at`

// CreateBook inserts a new book record.
func (s *Store) CreateBook(book *Book) error {
	if strings.TrimSpace(book.ID) == "" {
		return fmt.Errorf("book id required")
	}
	status := strings.TrimSpace(book.Status)
	if status == "" {
		status = BookStatusPending
	}
	now := time.Now()
	if book.CreatedAt.IsZero() {
		book.CreatedAt = now
	}

	query := `
		INSERT INTO books (book_id, title, instructions, outline_notes, section_notes,
		                   review_notes, outline_gate, section_gate, review_gate,
		                   next_section, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?, ?)
	`
	_, err := s.execRetry(query,
		book.ID, book.Title, book.Instructions, book.OutlineNotes, book.SectionNotes,
		book.ReviewNotes, book.OutlineGate, book.SectionGate, book.ReviewGate,
		status, book.CreatedAt, now,
	)
	return err
}

// GetBook retrieves a book by ID. Returns nil when no record exists.
func (s *Store) GetBook(bookID string) (*Book, error) {
	query := `SELECT ` + bookColumns + ` FROM books WHERE book_id = ?`

	var book Book
	var outline, claimedBy sql.NullString
	var claimedAt sql.NullTime
	err := s.db.QueryRow(query, bookID).Scan(
		&book.ID,
		&book.Title,
		&book.Instructions,
		&outline,
		&book.OutlineNotes,
		&book.SectionNotes,
		&book.ReviewNotes,
		&book.OutlineGate,
		&book.SectionGate,
		&book.ReviewGate,
		&book.TotalSections,
		&book.NextSection,
		&book.Status,
		&book.LastError,
		&book.OutputURL,
		&claimedBy,
		&claimedAt,
		&book.CreatedAt,
		&book.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	book.Outline = outline.String
	book.ClaimedBy = claimedBy.String
	if claimedAt.Valid {
		t := claimedAt.Time
		book.ClaimedAt = &t
	}
	return &book, nil
}

// UpdateBookInputs refreshes the editor-controlled fields (title, notes,
// gate statuses) on an existing record. The engine-owned fields (outline,
// stage pointer, lifecycle status) are deliberately untouched; the
// spreadsheet translator is not allowed near them.
func (s *Store) UpdateBookInputs(book *Book) error {
	query := `
		UPDATE books
		SET title = ?, instructions = ?, outline_notes = ?, section_notes = ?,
		    review_notes = ?, outline_gate = ?, section_gate = ?, review_gate = ?,
		    updated_at = ?
		WHERE book_id = ?
	`
	res, err := s.execRetry(query,
		book.Title, book.Instructions, book.OutlineNotes, book.SectionNotes,
		book.ReviewNotes, book.OutlineGate, book.SectionGate, book.ReviewGate,
		time.Now(), book.ID,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// SaveOutline persists the generated outline together with its section
// shells and resets the stage pointer, in one transaction. Existing
// shells for the book are replaced (outline regeneration).
func (s *Store) SaveOutline(bookID, outline string, sectionTitles []string) error {
	if len(sectionTitles) == 0 {
		return fmt.Errorf("outline must contain at least one section")
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now()
	if _, err := tx.Exec(`
		UPDATE books
		SET outline = ?, total_sections = ?, next_section = 1, status = ?, updated_at = ?
		WHERE book_id = ?`,
		outline, len(sectionTitles), BookStatusOutlineReady, now, bookID,
	); err != nil {
		return fmt.Errorf("save outline: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM sections WHERE book_id = ?`, bookID); err != nil {
		return fmt.Errorf("clear section shells: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM section_summaries WHERE book_id = ?`, bookID); err != nil {
		return fmt.Errorf("clear summaries: %w", err)
	}

	for i, title := range sectionTitles {
		if _, err := tx.Exec(`
			INSERT INTO sections (book_id, number, title, status, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			bookID, i+1, title, SectionStatusPlanned, now, now,
		); err != nil {
			return fmt.Errorf("insert section shell %d: %w", i+1, err)
		}
	}

	return tx.Commit()
}

// SetBookStatus updates the lifecycle status.
func (s *Store) SetBookStatus(bookID, status string) error {
	_, err := s.execRetry(
		`UPDATE books SET status = ?, updated_at = ? WHERE book_id = ?`,
		status, time.Now(), bookID,
	)
	return err
}

// SetBookFailure records a failed run: status plus the error detail for
// operator visibility.
func (s *Store) SetBookFailure(bookID, detail string) error {
	_, err := s.execRetry(
		`UPDATE books SET status = ?, last_error = ?, updated_at = ? WHERE book_id = ?`,
		BookStatusFailed, detail, time.Now(), bookID,
	)
	return err
}

// SetOutputURL records the deliverable reference after compilation.
func (s *Store) SetOutputURL(bookID, url string) error {
	_, err := s.execRetry(
		`UPDATE books SET output_url = ?, updated_at = ? WHERE book_id = ?`,
		url, time.Now(), bookID,
	)
	return err
}

// GetBookByTitle returns the book with the given title, or nil when no
// book matches. Titles are the sheet's natural key for existing rows
// that carry no id yet.
func (s *Store) GetBookByTitle(title string) (*Book, error) {
	query := `SELECT ` + bookColumns + ` FROM books WHERE title = ? LIMIT 1`

	var book Book
	var outline, claimedBy sql.NullString
	var claimedAt sql.NullTime
	err := s.db.QueryRow(query, title).Scan(
		&book.ID,
		&book.Title,
		&book.Instructions,
		&outline,
		&book.OutlineNotes,
		&book.SectionNotes,
		&book.ReviewNotes,
		&book.OutlineGate,
		&book.SectionGate,
		&book.ReviewGate,
		&book.TotalSections,
		&book.NextSection,
		&book.Status,
		&book.LastError,
		&book.OutputURL,
		&claimedBy,
		&claimedAt,
		&book.CreatedAt,
		&book.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	book.Outline = outline.String
	book.ClaimedBy = claimedBy.String
	if claimedAt.Valid {
		t := claimedAt.Time
		book.ClaimedAt = &t
	}
	return &book, nil
}

// DeleteBook removes a book and, via foreign keys, its sections,
// summaries, and notification events.
func (s *Store) DeleteBook(bookID string) error {
	_, err := s.execRetry(`DELETE FROM books WHERE book_id = ?`, bookID)
	return err
}

// AdvanceSection moves the stage pointer from `from` to `to` with a
// compare-and-set. ErrConflict means the pointer was not where the
// caller expected, i.e. another run interfered.
func (s *Store) AdvanceSection(bookID string, from, to int) error {
	res, err := s.execRetry(
		`UPDATE books SET next_section = ?, updated_at = ? WHERE book_id = ? AND next_section = ?`,
		to, time.Now(), bookID, from,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrConflict
	}
	return nil
}

// ClaimBook marks a book as being processed by `owner`. Claims held by
// someone else are respected until they age past ttl; a crashed run's
// claim therefore expires on its own. Returns false when the book is
// already claimed.
func (s *Store) ClaimBook(bookID, owner string, ttl time.Duration) (bool, error) {
	now := time.Now()
	cutoff := now.Add(-ttl)
	res, err := s.execRetry(`
		UPDATE books
		SET claimed_by = ?, claimed_at = ?, updated_at = ?
		WHERE book_id = ?
		  AND (claimed_by IS NULL OR claimed_by = '' OR claimed_by = ? OR claimed_at < ?)`,
		owner, now, now, bookID, owner, cutoff,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ReleaseBook clears the processing claim.
func (s *Store) ReleaseBook(bookID, owner string) error {
	_, err := s.execRetry(
		`UPDATE books SET claimed_by = NULL, claimed_at = NULL, updated_at = ? WHERE book_id = ? AND claimed_by = ?`,
		time.Now(), bookID, owner,
	)
	return err
}

// ListRunnableBooks returns ids of books a worker may pick up: not in a
// terminal state and not currently claimed by a live run. Blocked books
// stay in the set so an editor's gate change alone resumes them on the
// next poll.
func (s *Store) ListRunnableBooks(limit int, claimTTL time.Duration) ([]string, error) {
	if limit <= 0 {
		limit = 10
	}
	cutoff := time.Now().Add(-claimTTL)
	rows, err := s.db.Query(`
		SELECT book_id FROM books
		WHERE status IN (?, ?, ?, ?, ?, ?)
		  AND (claimed_by IS NULL OR claimed_by = '' OR claimed_at < ?)
		ORDER BY updated_at ASC
		LIMIT ?`,
		BookStatusPending, BookStatusOutlineReady, BookStatusSectionsInProgress,
		BookStatusReadyForReview, BookStatusCompiled, BookStatusBlocked,
		cutoff, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
