package ingest

import (
	"github.com/xuri/excelize/v2"

	bferrors "github.com/kashif-saeed1122/Booking-writting-ai-agent/pkg/errors"
)

// templateColumns defines the sheet layout: header, a description the
// sync skips, and an example value.
var templateColumns = []struct {
	header      string
	description string
	example     string
	width       float64
}{
	{colBookID, "Optional. Leave empty; filled on first sync.", "", 38},
	{colTitle, "Required. The book's title.", "Example: A Field Guide to Tides", 32},
	{colInstructions, "Optional free-text authoring instructions.", "Aim at curious amateurs, keep the math light.", 46},
	{colOutlineGate, "yes/no_notes_needed/notes_provided. Empty pauses before the outline.", "no_notes_needed", 20},
	{colOutlineNotes, "Notes applied when outline_gate is notes_provided.", "", 40},
	{colSectionGate, "yes/no_notes_needed/notes_provided. Empty pauses before each section.", "no_notes_needed", 20},
	{colSectionNotes, "Notes applied when section_gate is notes_provided.", "", 40},
	{colReviewGate, "yes/no_notes_needed/notes_provided. Empty pauses before compilation.", "no_notes_needed", 20},
	{colReviewNotes, "Final review notes.", "", 40},
}

// WriteTemplate creates a fresh editor workbook at path.
func WriteTemplate(path string) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(DefaultSheetName)
	if err != nil {
		return bferrors.Wrap(err, bferrors.ErrCodeInternal, "create sheet")
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return bferrors.Wrap(err, bferrors.ErrCodeInternal, "drop default sheet")
	}

	for i, col := range templateColumns {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return bferrors.Wrap(err, bferrors.ErrCodeInternal, "cell name")
		}
		if err := f.SetCellValue(DefaultSheetName, cell, col.header); err != nil {
			return bferrors.Wrap(err, bferrors.ErrCodeInternal, "write header")
		}

		cell, _ = excelize.CoordinatesToCellName(i+1, 2)
		if err := f.SetCellValue(DefaultSheetName, cell, col.description); err != nil {
			return bferrors.Wrap(err, bferrors.ErrCodeInternal, "write description")
		}

		if col.example != "" {
			cell, _ = excelize.CoordinatesToCellName(i+1, 3)
			if err := f.SetCellValue(DefaultSheetName, cell, col.example); err != nil {
				return bferrors.Wrap(err, bferrors.ErrCodeInternal, "write example")
			}
		}

		name, err := excelize.ColumnNumberToName(i + 1)
		if err == nil {
			_ = f.SetColWidth(DefaultSheetName, name, name, col.width)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return bferrors.Wrap(err, bferrors.ErrCodeInternal, "save template").
			WithContext("path", path)
	}
	return nil
}
