// Package ingest translates between editor spreadsheets and the book
// store. The sheet is the editors' surface: they add books, write
// notes, and flip gates there; the engine owns everything else.
package ingest

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	bferrors "github.com/kashif-saeed1122/Booking-writting-ai-agent/pkg/errors"
	"github.com/kashif-saeed1122/Booking-writting-ai-agent/pkg/logging"
	"github.com/kashif-saeed1122/Booking-writting-ai-agent/pkg/storage"
)

// DefaultSheetName is the worksheet editors work in.
const DefaultSheetName = "Books"

// Column headers, normalized to lowercase with underscores.
const (
	colBookID       = "book_id"
	colTitle        = "title"
	colInstructions = "instructions"
	colOutlineGate  = "outline_gate"
	colOutlineNotes = "outline_notes"
	colSectionGate  = "section_gate"
	colSectionNotes = "section_notes"
	colReviewGate   = "review_gate"
	colReviewNotes  = "review_notes"
)

var validGateValues = map[string]bool{
	"":                true,
	"needs_notes":     true,
	"yes":             true,
	"no_notes_needed": true,
	"notes_provided":  true,
}

// Syncer reads editor spreadsheets into the store.
type Syncer struct {
	store  *storage.Store
	logger *logging.Logger
}

func NewSyncer(store *storage.Store, logger *logging.Logger) *Syncer {
	return &Syncer{store: store, logger: logger}
}

// RowResult describes what happened to one sheet row.
type RowResult struct {
	Row     int
	BookID  string
	Title   string
	Created bool
	Skipped string // reason, empty when synced
}

// Sync reads the workbook and upserts one book per data row. New rows
// get fresh ids and start pending; existing rows update only the
// editor-controlled fields. Rows with problems are skipped and
// reported, never fatal.
func (s *Syncer) Sync(path, sheetName string) ([]RowResult, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, bferrors.Wrap(err, bferrors.ErrCodeInvalidInput, "open workbook").
			WithContext("path", path)
	}
	defer f.Close()

	if sheetName == "" {
		sheetName = DefaultSheetName
	}
	rows, err := f.GetRows(sheetName)
	if err != nil {
		// Fall back to the first sheet, editors rename things.
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, bferrors.New(bferrors.ErrCodeInvalidInput, "workbook has no sheets").
				WithContext("path", path)
		}
		sheetName = sheets[0]
		rows, err = f.GetRows(sheetName)
		if err != nil {
			return nil, bferrors.Wrap(err, bferrors.ErrCodeInvalidInput, "read sheet").
				WithContext("sheet", sheetName)
		}
	}
	if len(rows) == 0 {
		return nil, nil
	}

	headers := normalizeHeaders(rows[0])
	var results []RowResult
	for i := 1; i < len(rows); i++ {
		rowNum := i + 1
		record := rowToRecord(rows[i], headers)
		if len(record) == 0 {
			continue
		}
		result := s.syncRow(rowNum, record)
		if result.Skipped != "" {
			s.logWarn("row_skipped", map[string]any{"row": rowNum, "reason": result.Skipped})
		}
		results = append(results, result)
	}

	s.logInfo("sync_complete", map[string]any{"path": path, "rows": len(results)})
	return results, nil
}

func (s *Syncer) syncRow(rowNum int, record map[string]string) RowResult {
	result := RowResult{Row: rowNum, Title: record[colTitle]}

	title := strings.TrimSpace(record[colTitle])
	if title == "" {
		result.Skipped = "missing title"
		return result
	}
	if isTemplateDescription(title) {
		result.Skipped = "template description row"
		return result
	}

	for _, col := range []string{colOutlineGate, colSectionGate, colReviewGate} {
		value := strings.ToLower(strings.TrimSpace(record[col]))
		if !validGateValues[value] {
			result.Skipped = fmt.Sprintf("invalid %s value %q", col, record[col])
			return result
		}
	}

	book := &storage.Book{
		ID:           strings.TrimSpace(record[colBookID]),
		Title:        title,
		Instructions: record[colInstructions],
		OutlineNotes: record[colOutlineNotes],
		SectionNotes: record[colSectionNotes],
		ReviewNotes:  record[colReviewNotes],
		OutlineGate:  strings.ToLower(strings.TrimSpace(record[colOutlineGate])),
		SectionGate:  strings.ToLower(strings.TrimSpace(record[colSectionGate])),
		ReviewGate:   strings.ToLower(strings.TrimSpace(record[colReviewGate])),
	}

	existing, err := s.lookup(book)
	if err != nil {
		result.Skipped = fmt.Sprintf("lookup failed: %v", err)
		return result
	}

	if existing == nil {
		if book.ID == "" {
			book.ID = uuid.New().String()
		}
		if err := s.store.CreateBook(book); err != nil {
			result.Skipped = fmt.Sprintf("create failed: %v", err)
			return result
		}
		result.BookID = book.ID
		result.Created = true
		s.logInfo("book_created", map[string]any{"row": rowNum, "book_id": book.ID, "title": title})
		return result
	}

	book.ID = existing.ID
	if err := s.store.UpdateBookInputs(book); err != nil {
		result.Skipped = fmt.Sprintf("update failed: %v", err)
		return result
	}
	result.BookID = existing.ID
	s.logInfo("book_updated", map[string]any{"row": rowNum, "book_id": existing.ID, "title": title})
	return result
}

// lookup finds an existing record by id when the sheet carries one,
// falling back to the title.
func (s *Syncer) lookup(book *storage.Book) (*storage.Book, error) {
	if book.ID != "" {
		existing, err := s.store.GetBook(book.ID)
		if err != nil || existing != nil {
			return existing, err
		}
	}
	return s.store.GetBookByTitle(book.Title)
}

func normalizeHeaders(row []string) []string {
	headers := make([]string, len(row))
	for i, h := range row {
		headers[i] = strings.ReplaceAll(strings.ToLower(strings.TrimSpace(h)), " ", "_")
	}
	return headers
}

func rowToRecord(row []string, headers []string) map[string]string {
	record := make(map[string]string)
	empty := true
	for i, value := range row {
		if i >= len(headers) || headers[i] == "" {
			continue
		}
		value = strings.TrimSpace(value)
		if value != "" {
			empty = false
		}
		record[headers[i]] = value
	}
	if empty {
		return nil
	}
	return record
}

// isTemplateDescription spots leftover helper rows from the template.
func isTemplateDescription(title string) bool {
	lower := strings.ToLower(title)
	for _, keyword := range []string{"required", "optional", "default:", "yes/no", "example:"} {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}

func (s *Syncer) logInfo(eventType string, details map[string]any) {
	if s.logger == nil {
		return
	}
	_ = s.logger.Info(logging.CategorySync, eventType, eventType, details)
}

func (s *Syncer) logWarn(eventType string, details map[string]any) {
	if s.logger == nil {
		return
	}
	_ = s.logger.Warn(logging.CategorySync, eventType, eventType, details)
}
