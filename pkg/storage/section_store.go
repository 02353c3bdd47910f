package storage

import (
	"database/sql"
	"time"
)

// Section generation status constants.
const (
	SectionStatusPlanned   = "planned"
	SectionStatusGenerated = "generated"
)

// Section represents one chapter-equivalent unit of a book's outline.
// Sections are created as shells when the outline is parsed and only
// ever overwritten, never deleted.
type Section struct {
	BookID    string    `json:"bookId"`
	Number    int       `json:"number"`
	Title     string    `json:"title"`
	Content   string    `json:"content,omitempty"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// SectionSummary is the compact derivative of a completed section, used
// only as input context for later sections.
type SectionSummary struct {
	BookID    string    `json:"bookId"`
	Number    int       `json:"number"`
	Summary   string    `json:"summary"`
	CreatedAt time.Time `json:"createdAt"`
}

// UpsertSectionContent stores generated text for a section and marks it
// generated. The shell row must already exist.
func (s *Store) UpsertSectionContent(bookID string, number int, content string) error {
	res, err := s.execRetry(`
		UPDATE sections SET content = ?, status = ?, updated_at = ?
		WHERE book_id = ? AND number = ?`,
		content, SectionStatusGenerated, time.Now(), bookID, number,
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

// GetSection retrieves one section. Returns nil when no record exists.
func (s *Store) GetSection(bookID string, number int) (*Section, error) {
	var sec Section
	var content sql.NullString
	err := s.db.QueryRow(`
		SELECT book_id, number, title, content, status, created_at, updated_at
		FROM sections WHERE book_id = ? AND number = ?`,
		bookID, number,
	).Scan(&sec.BookID, &sec.Number, &sec.Title, &content, &sec.Status, &sec.CreatedAt, &sec.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	sec.Content = content.String
	return &sec, nil
}

// ListSections returns all sections of a book in ordinal order.
func (s *Store) ListSections(bookID string) ([]Section, error) {
	rows, err := s.db.Query(`
		SELECT book_id, number, title, content, status, created_at, updated_at
		FROM sections WHERE book_id = ? ORDER BY number ASC`,
		bookID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sections []Section
	for rows.Next() {
		var sec Section
		var content sql.NullString
		if err := rows.Scan(&sec.BookID, &sec.Number, &sec.Title, &content, &sec.Status, &sec.CreatedAt, &sec.UpdatedAt); err != nil {
			return nil, err
		}
		sec.Content = content.String
		sections = append(sections, sec)
	}
	return sections, rows.Err()
}

// UpsertSummary stores the summary of a completed section.
func (s *Store) UpsertSummary(bookID string, number int, summary string) error {
	_, err := s.execRetry(`
		INSERT INTO section_summaries (book_id, number, summary, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (book_id, number) DO UPDATE SET summary = excluded.summary`,
		bookID, number, summary, time.Now(),
	)
	return err
}

// ListSummariesBefore returns summaries with ordinal strictly below n,
// ordinal ascending. This is the only read path the context accumulator
// uses, so the ordering guarantee is enforced here as well as there.
func (s *Store) ListSummariesBefore(bookID string, n int) ([]SectionSummary, error) {
	rows, err := s.db.Query(`
		SELECT book_id, number, summary, created_at
		FROM section_summaries
		WHERE book_id = ? AND number < ?
		ORDER BY number ASC`,
		bookID, n,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summaries []SectionSummary
	for rows.Next() {
		var sum SectionSummary
		if err := rows.Scan(&sum.BookID, &sum.Number, &sum.Summary, &sum.CreatedAt); err != nil {
			return nil, err
		}
		summaries = append(summaries, sum)
	}
	return summaries, rows.Err()
}
