package compile

import (
	"context"
	"fmt"

	bferrors "github.com/kashif-saeed1122/Booking-writting-ai-agent/pkg/errors"
	"github.com/kashif-saeed1122/Booking-writting-ai-agent/pkg/storage"
)

var contentTypes = map[Format]string{
	FormatText:     "text/plain; charset=utf-8",
	FormatMarkdown: "text/markdown; charset=utf-8",
	FormatHTML:     "text/html; charset=utf-8",
}

// Coordinator assembles a finished book and uploads the rendered
// deliverables. It refuses to compile anything incomplete; a partial
// book must never leave the system.
type Coordinator struct {
	store     *storage.Store
	objects   ObjectStore
	renderers []Renderer
}

// NewCoordinator creates a compilation coordinator. The first format
// is the primary one; its reference becomes the book's output URL.
func NewCoordinator(store *storage.Store, objects ObjectStore, formats ...Format) (*Coordinator, error) {
	if len(formats) == 0 {
		formats = []Format{FormatMarkdown}
	}
	renderers := make([]Renderer, 0, len(formats))
	for _, f := range formats {
		r, err := NewRenderer(f)
		if err != nil {
			return nil, err
		}
		renderers = append(renderers, r)
	}
	return &Coordinator{
		store:     store,
		objects:   objects,
		renderers: renderers,
	}, nil
}

// Compile assembles, renders, and uploads the book, returning the
// primary deliverable's reference. Re-running after a partial upload
// overwrites the previous objects, so the operation is safe to retry.
func (c *Coordinator) Compile(ctx context.Context, bookID string) (string, error) {
	manuscript, err := c.assemble(bookID)
	if err != nil {
		return "", err
	}

	primaryURL := ""
	for i, renderer := range c.renderers {
		data, err := renderer.Render(manuscript)
		if err != nil {
			return "", err
		}
		key := fmt.Sprintf("books/%s/%s%s", bookID, slugKey(manuscript.Title), renderer.Extension())
		url, err := c.objects.Put(ctx, key, data, contentTypes[renderer.Format()])
		if err != nil {
			return "", err
		}
		if i == 0 {
			primaryURL = url
		}
	}
	return primaryURL, nil
}

// assemble loads the book and verifies every section is present and
// written before building the manuscript.
func (c *Coordinator) assemble(bookID string) (*Manuscript, error) {
	book, err := c.store.GetBook(bookID)
	if err != nil {
		return nil, bferrors.Wrap(err, bferrors.ErrCodeStorageRead, "load book for compilation")
	}
	if book == nil {
		return nil, bferrors.New(bferrors.ErrCodePrecondition, "book not found").
			WithContext("book_id", bookID)
	}
	if book.Outline == "" || book.TotalSections == 0 {
		return nil, bferrors.New(bferrors.ErrCodePrecondition, "book has no outline").
			WithContext("book_id", bookID)
	}

	sections, err := c.store.ListSections(bookID)
	if err != nil {
		return nil, bferrors.Wrap(err, bferrors.ErrCodeStorageRead, "load sections for compilation")
	}
	if len(sections) != book.TotalSections {
		return nil, bferrors.New(bferrors.ErrCodePrecondition, "section count does not match outline").
			WithContext("book_id", bookID).
			WithContext("have", len(sections)).
			WithContext("want", book.TotalSections)
	}

	manuscript := &Manuscript{
		BookID:  bookID,
		Title:   book.Title,
		Outline: book.Outline,
	}
	for _, sec := range sections {
		if sec.Status != storage.SectionStatusGenerated || sec.Content == "" {
			return nil, bferrors.New(bferrors.ErrCodePrecondition, "section has not been written").
				WithContext("book_id", bookID).
				WithContext("section", sec.Number)
		}
		manuscript.Sections = append(manuscript.Sections, ManuscriptSection{
			Number: sec.Number,
			Title:  sec.Title,
			Body:   sec.Content,
		})
	}
	return manuscript, nil
}

// slugKey makes a filesystem and URL safe name from a title.
func slugKey(title string) string {
	out := make([]rune, 0, len(title))
	lastDash := true
	for _, r := range title {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			out = append(out, r)
			lastDash = false
		case r >= 'A' && r <= 'Z':
			out = append(out, r+('a'-'A'))
			lastDash = false
		default:
			if !lastDash {
				out = append(out, '-')
				lastDash = true
			}
		}
	}
	for len(out) > 0 && out[len(out)-1] == '-' {
		out = out[:len(out)-1]
	}
	if len(out) == 0 {
		return "book"
	}
	return string(out)
}
