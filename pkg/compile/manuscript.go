// Package compile assembles finished sections into a deliverable book
// and hands it to an object store.
package compile

// ManuscriptSection is one finished section of a book.
type ManuscriptSection struct {
	Number int
	Title  string
	Body   string
}

// Manuscript is the assembled book, ready for rendering.
type Manuscript struct {
	BookID   string
	Title    string
	Outline  string
	Sections []ManuscriptSection
}
