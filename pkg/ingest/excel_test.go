package ingest

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/kashif-saeed1122/Booking-writting-ai-agent/pkg/storage"
)

func newSyncFixture(t *testing.T) (*Syncer, *storage.Store) {
	t.Helper()
	store, err := storage.New(filepath.Join(t.TempDir(), "bookflow.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return NewSyncer(store, nil), store
}

func writeWorkbook(t *testing.T, rows [][]any) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	index, err := f.NewSheet(DefaultSheetName)
	require.NoError(t, err)
	f.SetActiveSheet(index)
	require.NoError(t, f.DeleteSheet("Sheet1"))

	for r, row := range rows {
		for c, value := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			require.NoError(t, err)
			require.NoError(t, f.SetCellValue(DefaultSheetName, cell, value))
		}
	}
	path := filepath.Join(t.TempDir(), "books.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

var testHeaders = []any{
	"book_id", "title", "instructions",
	"outline_gate", "outline_notes",
	"section_gate", "section_notes",
	"review_gate", "review_notes",
}

func TestSyncCreatesBooks(t *testing.T) {
	syncer, store := newSyncFixture(t)
	path := writeWorkbook(t, [][]any{
		testHeaders,
		{"", "Tides", "keep it light", "no_notes_needed", "", "no_notes_needed", "", "no_notes_needed", ""},
		{"", "Moons", "", "needs_notes", "", "", "", "", ""},
	})

	results, err := syncer.Sync(path, DefaultSheetName)
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, res := range results {
		assert.Empty(t, res.Skipped)
		assert.True(t, res.Created)
		assert.NotEmpty(t, res.BookID)
	}

	book, err := store.GetBookByTitle("Tides")
	require.NoError(t, err)
	require.NotNil(t, book)
	assert.Equal(t, "keep it light", book.Instructions)
	assert.Equal(t, "no_notes_needed", book.OutlineGate)
	assert.Equal(t, storage.BookStatusPending, book.Status)
}

func TestSyncUpdatesExistingByTitle(t *testing.T) {
	syncer, store := newSyncFixture(t)
	require.NoError(t, store.CreateBook(&storage.Book{ID: "existing-id", Title: "Tides"}))
	require.NoError(t, store.SaveOutline("existing-id", "1. A", []string{"A"}))

	path := writeWorkbook(t, [][]any{
		testHeaders,
		{"", "Tides", "new instructions", "notes_provided", "shorter please", "", "", "", ""},
	})

	results, err := syncer.Sync(path, DefaultSheetName)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.False(t, results[0].Created)
	assert.Equal(t, "existing-id", results[0].BookID)

	book, _ := store.GetBook("existing-id")
	assert.Equal(t, "new instructions", book.Instructions)
	assert.Equal(t, "notes_provided", book.OutlineGate)
	assert.Equal(t, "shorter please", book.OutlineNotes)
	// Engine-owned fields stay put.
	assert.Equal(t, "1. A", book.Outline)
	assert.Equal(t, storage.BookStatusOutlineReady, book.Status)
}

func TestSyncSkipsBadRows(t *testing.T) {
	syncer, store := newSyncFixture(t)
	path := writeWorkbook(t, [][]any{
		testHeaders,
		{"", "", "no title here", "", "", "", "", "", ""},
		{"", "Broken Gate", "", "maybe", "", "", "", "", ""},
		{"", "Required. The title column.", "", "", "", "", "", "", ""},
		{"", "Fine", "", "no_notes_needed", "", "", "", "", ""},
	})

	results, err := syncer.Sync(path, DefaultSheetName)
	require.NoError(t, err)

	var synced, skipped int
	for _, res := range results {
		if res.Skipped == "" {
			synced++
		} else {
			skipped++
		}
	}
	assert.Equal(t, 1, synced)
	assert.Equal(t, 3, skipped)

	book, err := store.GetBookByTitle("Fine")
	require.NoError(t, err)
	assert.NotNil(t, book)
}

func TestSyncFallsBackToFirstSheet(t *testing.T) {
	syncer, store := newSyncFixture(t)

	f := excelize.NewFile()
	index, err := f.NewSheet("Renamed")
	require.NoError(t, err)
	f.SetActiveSheet(index)
	require.NoError(t, f.DeleteSheet("Sheet1"))
	require.NoError(t, f.SetCellValue("Renamed", "A1", "title"))
	require.NoError(t, f.SetCellValue("Renamed", "B1", "outline_gate"))
	require.NoError(t, f.SetCellValue("Renamed", "A2", "Tides"))
	require.NoError(t, f.SetCellValue("Renamed", "B2", "no_notes_needed"))
	path := filepath.Join(t.TempDir(), "renamed.xlsx")
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	results, err := syncer.Sync(path, DefaultSheetName)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Empty(t, results[0].Skipped)

	book, err := store.GetBookByTitle("Tides")
	require.NoError(t, err)
	require.NotNil(t, book)
}

func TestTemplateRoundTrip(t *testing.T) {
	syncer, store := newSyncFixture(t)
	path := filepath.Join(t.TempDir(), "template.xlsx")
	require.NoError(t, WriteTemplate(path))

	// A pristine template syncs nothing: descriptions and the example
	// row are recognized and skipped.
	results, err := syncer.Sync(path, DefaultSheetName)
	require.NoError(t, err)
	for _, res := range results {
		assert.NotEmpty(t, res.Skipped, "row %d should be skipped", res.Row)
	}

	books, err := store.ListRunnableBooks(10, 0)
	require.NoError(t, err)
	assert.Empty(t, books)

	// An editor fills in a real row below the helpers.
	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	require.NoError(t, f.SetCellValue(DefaultSheetName, "B4", "Tides"))
	require.NoError(t, f.SetCellValue(DefaultSheetName, "D4", "no_notes_needed"))
	require.NoError(t, f.Save())
	require.NoError(t, f.Close())

	results, err = syncer.Sync(path, DefaultSheetName)
	require.NoError(t, err)

	book, err := store.GetBookByTitle("Tides")
	require.NoError(t, err)
	require.NotNil(t, book)
}
