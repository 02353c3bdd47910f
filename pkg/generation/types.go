package generation

import "context"

// PromptKind selects which generation task a Request describes.
type PromptKind string

const (
	PromptOutline PromptKind = "outline"
	PromptSection PromptKind = "section"
)

// Summary is the condensed record of an already written section, fed
// forward as context for later ones.
type Summary struct {
	Number  int
	Content string
}

// Request carries everything a prompt needs. Fields that do not apply
// to the Kind are ignored.
type Request struct {
	Kind         PromptKind
	Title        string
	Instructions string
	Notes        string

	// Section fields.
	Outline           string
	SectionNumber     int
	SectionTitle      string
	TotalSections     int
	PreviousSummaries []Summary

	// Outline fields.
	SectionTarget int
}

// Service produces text for a Request. Implementations call out to a
// language model; tests substitute a fake.
type Service interface {
	Generate(ctx context.Context, req Request) (string, error)
}
