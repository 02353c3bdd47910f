package compile

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	bferrors "github.com/kashif-saeed1122/Booking-writting-ai-agent/pkg/errors"
	"github.com/kashif-saeed1122/Booking-writting-ai-agent/pkg/storage"
)

func newCompileStore(t *testing.T) *storage.Store {
	t.Helper()
	store, err := storage.New(filepath.Join(t.TempDir(), "bookflow.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func seedFinishedBook(t *testing.T, store *storage.Store, bookID string) {
	t.Helper()
	require.NoError(t, store.CreateBook(&storage.Book{ID: bookID, Title: "The Tide Tables"}))
	require.NoError(t, store.SaveOutline(bookID, "1. Flood\n2. Ebb", []string{"Flood", "Ebb"}))
	require.NoError(t, store.UpsertSectionContent(bookID, 1, "Water rises."))
	require.NoError(t, store.UpsertSectionContent(bookID, 2, "Water falls."))
}

func TestCompileWritesAllFormats(t *testing.T) {
	store := newCompileStore(t)
	seedFinishedBook(t, store, "b1")

	outDir := t.TempDir()
	files, err := NewFileStore(outDir)
	require.NoError(t, err)

	coord, err := NewCoordinator(store, files, FormatMarkdown, FormatHTML, FormatText)
	require.NoError(t, err)

	url, err := coord.Compile(context.Background(), "b1")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(url, "the-tide-tables.md"), "primary url %q", url)

	md, err := os.ReadFile(url)
	require.NoError(t, err)
	assert.Contains(t, string(md), "# The Tide Tables")
	assert.Contains(t, string(md), "## 1. Flood")
	assert.Contains(t, string(md), "Water falls.")

	htmlPath := strings.TrimSuffix(url, ".md") + ".html"
	html, err := os.ReadFile(htmlPath)
	require.NoError(t, err)
	assert.Contains(t, string(html), "<title>The Tide Tables</title>")
	assert.Contains(t, string(html), "<h2>1. Flood</h2>")

	textPath := strings.TrimSuffix(url, ".md") + ".txt"
	text, err := os.ReadFile(textPath)
	require.NoError(t, err)
	assert.Contains(t, string(text), "The Tide Tables\n"+strings.Repeat("=", len("The Tide Tables")))
}

func TestCompileRefusesPartialBook(t *testing.T) {
	store := newCompileStore(t)
	require.NoError(t, store.CreateBook(&storage.Book{ID: "b1", Title: "T"}))
	require.NoError(t, store.SaveOutline("b1", "1. A\n2. B", []string{"A", "B"}))
	require.NoError(t, store.UpsertSectionContent("b1", 1, "only the first"))

	files, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	coord, err := NewCoordinator(store, files)
	require.NoError(t, err)

	_, err = coord.Compile(context.Background(), "b1")
	require.Error(t, err)
	assert.True(t, bferrors.IsCode(err, bferrors.ErrCodePrecondition), "got %v", err)
	assert.False(t, bferrors.IsRetryable(err))
}

func TestCompileRefusesMissingOutline(t *testing.T) {
	store := newCompileStore(t)
	require.NoError(t, store.CreateBook(&storage.Book{ID: "b1", Title: "T"}))

	files, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	coord, err := NewCoordinator(store, files)
	require.NoError(t, err)

	_, err = coord.Compile(context.Background(), "b1")
	require.Error(t, err)
	assert.True(t, bferrors.IsCode(err, bferrors.ErrCodePrecondition), "got %v", err)
}

func TestCompileUnknownBook(t *testing.T) {
	store := newCompileStore(t)
	files, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	coord, err := NewCoordinator(store, files)
	require.NoError(t, err)

	_, err = coord.Compile(context.Background(), "ghost")
	require.Error(t, err)
	assert.True(t, bferrors.IsCode(err, bferrors.ErrCodePrecondition), "got %v", err)
}

func TestCompileIsRepeatable(t *testing.T) {
	store := newCompileStore(t)
	seedFinishedBook(t, store, "b1")

	files, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	coord, err := NewCoordinator(store, files)
	require.NoError(t, err)

	first, err := coord.Compile(context.Background(), "b1")
	require.NoError(t, err)
	second, err := coord.Compile(context.Background(), "b1")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestSlugKey(t *testing.T) {
	assert.Equal(t, "the-tide-tables", slugKey("The Tide Tables"))
	assert.Equal(t, "a-b-c", slugKey("  A?! b -- C "))
	assert.Equal(t, "book", slugKey("???"))
}

func TestNewRendererUnknownFormat(t *testing.T) {
	_, err := NewRenderer(Format("pdf"))
	require.Error(t, err)
	assert.True(t, bferrors.IsCode(err, bferrors.ErrCodeInvalidInput))
}
