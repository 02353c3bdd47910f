package generation

import (
	"regexp"
	"strings"

	bferrors "github.com/kashif-saeed1122/Booking-writting-ai-agent/pkg/errors"
)

// Matches "1. Title", "2) Title", "3 - Title" and the like. Bullet
// lines under each entry are ignored.
var outlineLineRe = regexp.MustCompile(`^\s*(\d+)\s*[.):\-]\s*(.+?)\s*$`)

// ParseOutline extracts the numbered section titles from raw outline
// text. The titles come back in outline order. A text with no numbered
// entries at all is malformed model output.
func ParseOutline(text string) ([]string, error) {
	var titles []string
	for _, line := range strings.Split(text, "\n") {
		m := outlineLineRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		title := strings.Trim(m[2], `"*# `)
		if title == "" {
			continue
		}
		titles = append(titles, title)
	}
	if len(titles) == 0 {
		return nil, bferrors.New(bferrors.ErrCodeGenerationMalformed, "no numbered sections found in outline").
			WithContext("text_length", len(text))
	}
	return titles, nil
}

// SplitSummary separates a generated section into its body and the
// trailing summary block. The split is on the LAST marker so a body
// that legitimately contains "Summary:" mid-text is kept intact.
// A missing marker is not fatal; the whole text becomes the body and
// the summary falls back to a stub.
func SplitSummary(text string) (body, summary string) {
	idx := strings.LastIndex(text, SummaryMarker)
	if idx < 0 {
		return strings.TrimSpace(text), "Summary not provided."
	}
	body = strings.TrimSpace(text[:idx])
	summary = strings.TrimSpace(text[idx+len(SummaryMarker):])
	if summary == "" {
		summary = "Summary not provided."
	}
	if body == "" {
		// The marker opened the text; treat everything as body.
		return strings.TrimSpace(text), "Summary not provided."
	}
	return body, summary
}
