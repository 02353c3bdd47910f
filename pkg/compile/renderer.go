package compile

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	goldmarkhtml "github.com/yuin/goldmark/renderer/html"

	bferrors "github.com/kashif-saeed1122/Booking-writting-ai-agent/pkg/errors"
)

// Format identifies an output rendering.
type Format string

const (
	FormatText     Format = "text"
	FormatMarkdown Format = "markdown"
	FormatHTML     Format = "html"
)

// Renderer turns a manuscript into one output format.
type Renderer interface {
	Format() Format
	Extension() string
	Render(m *Manuscript) ([]byte, error)
}

// NewRenderer returns the renderer for a format.
func NewRenderer(format Format) (Renderer, error) {
	switch format {
	case FormatText:
		return &TextRenderer{}, nil
	case FormatMarkdown:
		return &MarkdownRenderer{}, nil
	case FormatHTML:
		return NewHTMLRenderer(), nil
	default:
		return nil, bferrors.New(bferrors.ErrCodeInvalidInput, "unknown output format").
			WithContext("format", string(format))
	}
}

// TextRenderer produces a plain text book.
type TextRenderer struct{}

func (r *TextRenderer) Format() Format { return FormatText }
func (r *TextRenderer) Extension() string { return ".txt" }

func (r *TextRenderer) Render(m *Manuscript) ([]byte, error) {
	var b strings.Builder
	b.WriteString(m.Title)
	b.WriteString("\n")
	b.WriteString(strings.Repeat("=", len(m.Title)))
	b.WriteString("\n\n")
	for _, sec := range m.Sections {
		fmt.Fprintf(&b, "%d. %s\n\n", sec.Number, sec.Title)
		b.WriteString(sec.Body)
		b.WriteString("\n\n")
	}
	return []byte(b.String()), nil
}

// MarkdownRenderer produces the canonical markdown manuscript. The
// other renderers derive from its structure.
type MarkdownRenderer struct{}

func (r *MarkdownRenderer) Format() Format { return FormatMarkdown }
func (r *MarkdownRenderer) Extension() string { return ".md" }

func (r *MarkdownRenderer) Render(m *Manuscript) ([]byte, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", m.Title)
	for _, sec := range m.Sections {
		fmt.Fprintf(&b, "## %d. %s\n\n", sec.Number, sec.Title)
		b.WriteString(sec.Body)
		b.WriteString("\n\n")
	}
	return []byte(b.String()), nil
}

// HTMLRenderer renders the markdown manuscript to a standalone HTML
// page.
type HTMLRenderer struct {
	markdown goldmark.Markdown
}

func NewHTMLRenderer() *HTMLRenderer {
	return &HTMLRenderer{
		markdown: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(goldmarkhtml.WithHardWraps()),
		),
	}
}

func (r *HTMLRenderer) Format() Format { return FormatHTML }
func (r *HTMLRenderer) Extension() string { return ".html" }

func (r *HTMLRenderer) Render(m *Manuscript) ([]byte, error) {
	source, err := (&MarkdownRenderer{}).Render(m)
	if err != nil {
		return nil, err
	}

	var body bytes.Buffer
	if err := r.markdown.Convert(source, &body); err != nil {
		return nil, bferrors.Wrap(err, bferrors.ErrCodeRender, "markdown to html conversion failed").
			WithContext("book_id", m.BookID)
	}

	var page bytes.Buffer
	fmt.Fprintf(&page, "<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n<title>%s</title>\n</head>\n<body>\n", m.Title)
	page.Write(body.Bytes())
	page.WriteString("\n</body>\n</html>\n")
	return page.Bytes(), nil
}
