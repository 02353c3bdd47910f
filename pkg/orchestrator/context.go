package orchestrator

import (
	bferrors "github.com/kashif-saeed1122/Booking-writting-ai-agent/pkg/errors"
	"github.com/kashif-saeed1122/Booking-writting-ai-agent/pkg/generation"
	"github.com/kashif-saeed1122/Booking-writting-ai-agent/pkg/storage"
)

// buildContext loads the summaries feeding the upcoming section's
// prompt. Nothing at or past the upcoming ordinal may leak in; each
// section sees only what came strictly before it. Summaries, not full
// text, keep prompt size bounded as the book grows.
func buildContext(store *storage.Store, bookID string, upcoming int) ([]generation.Summary, error) {
	if upcoming <= 1 {
		return nil, nil
	}
	rows, err := store.ListSummariesBefore(bookID, upcoming)
	if err != nil {
		return nil, bferrors.Wrap(err, bferrors.ErrCodeStorageRead, "load prior summaries").
			WithContext("book_id", bookID).
			WithContext("upcoming", upcoming)
	}
	summaries := make([]generation.Summary, 0, len(rows))
	for _, row := range rows {
		if row.Number >= upcoming {
			return nil, bferrors.New(bferrors.ErrCodeInternal, "summary ordinal at or past the upcoming section").
				WithContext("book_id", bookID).
				WithContext("number", row.Number).
				WithContext("upcoming", upcoming)
		}
		summaries = append(summaries, generation.Summary{Number: row.Number, Content: row.Summary})
	}
	return summaries, nil
}
