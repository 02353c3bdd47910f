package storage

import (
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	store, err := New(filepath.Join(dir, "bookflow.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestBookLifecycle(t *testing.T) {
	store := newTestStore(t)

	book := &Book{
		ID:           "book-123",
		Title:        "A Field Guide to Nothing",
		Instructions: "keep it short",
		OutlineGate:  "no_notes_needed",
	}
	if err := store.CreateBook(book); err != nil {
		t.Fatalf("create book: %v", err)
	}

	fetched, err := store.GetBook("book-123")
	if err != nil {
		t.Fatalf("get book: %v", err)
	}
	if fetched == nil || fetched.ID != "book-123" {
		t.Fatalf("expected book to exist, got %+v", fetched)
	}
	if fetched.Status != BookStatusPending {
		t.Errorf("Status = %q, want pending", fetched.Status)
	}
	if fetched.NextSection != 1 {
		t.Errorf("NextSection = %d, want 1", fetched.NextSection)
	}

	if err := store.SetBookStatus("book-123", BookStatusBlocked); err != nil {
		t.Fatalf("set status: %v", err)
	}
	fetched, _ = store.GetBook("book-123")
	if fetched.Status != BookStatusBlocked {
		t.Errorf("Status = %q, want blocked_on_notes", fetched.Status)
	}

	if err := store.SetBookFailure("book-123", "generation exploded"); err != nil {
		t.Fatalf("set failure: %v", err)
	}
	fetched, _ = store.GetBook("book-123")
	if fetched.Status != BookStatusFailed || fetched.LastError != "generation exploded" {
		t.Errorf("failure not persisted: %+v", fetched)
	}
}

func TestGetBookMissingReturnsNil(t *testing.T) {
	store := newTestStore(t)
	book, err := store.GetBook("nope")
	if err != nil {
		t.Fatalf("get missing book: %v", err)
	}
	if book != nil {
		t.Fatalf("expected nil, got %+v", book)
	}
}

func TestSaveOutlineCreatesShells(t *testing.T) {
	store := newTestStore(t)
	if err := store.CreateBook(&Book{ID: "b1", Title: "T"}); err != nil {
		t.Fatalf("create book: %v", err)
	}

	titles := []string{"Beginnings", "Middles", "Ends"}
	if err := store.SaveOutline("b1", "1. Beginnings\n2. Middles\n3. Ends", titles); err != nil {
		t.Fatalf("save outline: %v", err)
	}

	book, _ := store.GetBook("b1")
	if book.TotalSections != 3 || book.NextSection != 1 {
		t.Errorf("pointer state: total=%d next=%d", book.TotalSections, book.NextSection)
	}
	if book.Status != BookStatusOutlineReady {
		t.Errorf("Status = %q", book.Status)
	}

	sections, err := store.ListSections("b1")
	if err != nil {
		t.Fatalf("list sections: %v", err)
	}
	if len(sections) != 3 {
		t.Fatalf("expected 3 shells, got %d", len(sections))
	}
	for i, sec := range sections {
		if sec.Number != i+1 {
			t.Errorf("section %d has number %d", i, sec.Number)
		}
		if sec.Status != SectionStatusPlanned || sec.Content != "" {
			t.Errorf("shell %d not empty: %+v", i+1, sec)
		}
	}

	// Regenerating the outline replaces the shells.
	if err := store.SaveOutline("b1", "1. Only", []string{"Only"}); err != nil {
		t.Fatalf("re-save outline: %v", err)
	}
	sections, _ = store.ListSections("b1")
	if len(sections) != 1 {
		t.Fatalf("expected 1 shell after regeneration, got %d", len(sections))
	}
}

func TestSaveOutlineRejectsEmpty(t *testing.T) {
	store := newTestStore(t)
	if err := store.CreateBook(&Book{ID: "b1", Title: "T"}); err != nil {
		t.Fatalf("create book: %v", err)
	}
	if err := store.SaveOutline("b1", "", nil); err == nil {
		t.Fatal("expected error for empty outline")
	}
}

func TestAdvanceSectionCompareAndSet(t *testing.T) {
	store := newTestStore(t)
	if err := store.CreateBook(&Book{ID: "b1", Title: "T"}); err != nil {
		t.Fatalf("create book: %v", err)
	}
	if err := store.SaveOutline("b1", "x", []string{"a", "b"}); err != nil {
		t.Fatalf("save outline: %v", err)
	}

	if err := store.AdvanceSection("b1", 1, 2); err != nil {
		t.Fatalf("advance: %v", err)
	}
	// Stale advance must fail.
	if err := store.AdvanceSection("b1", 1, 2); err != ErrConflict {
		t.Fatalf("expected ErrConflict, got %v", err)
	}

	book, _ := store.GetBook("b1")
	if book.NextSection != 2 {
		t.Errorf("NextSection = %d, want 2", book.NextSection)
	}
}

func TestClaimGuard(t *testing.T) {
	store := newTestStore(t)
	if err := store.CreateBook(&Book{ID: "b1", Title: "T"}); err != nil {
		t.Fatalf("create book: %v", err)
	}

	ok, err := store.ClaimBook("b1", "worker-a", time.Hour)
	if err != nil || !ok {
		t.Fatalf("first claim: ok=%v err=%v", ok, err)
	}

	// A second owner cannot claim while the first claim is live.
	ok, err = store.ClaimBook("b1", "worker-b", time.Hour)
	if err != nil {
		t.Fatalf("second claim: %v", err)
	}
	if ok {
		t.Fatal("expected claim to be refused")
	}

	// Re-claiming by the same owner is allowed (resumed run).
	ok, _ = store.ClaimBook("b1", "worker-a", time.Hour)
	if !ok {
		t.Fatal("owner should be able to re-claim")
	}

	if err := store.ReleaseBook("b1", "worker-a"); err != nil {
		t.Fatalf("release: %v", err)
	}
	ok, _ = store.ClaimBook("b1", "worker-b", time.Hour)
	if !ok {
		t.Fatal("expected claim after release")
	}
}

func TestStaleClaimExpires(t *testing.T) {
	store := newTestStore(t)
	if err := store.CreateBook(&Book{ID: "b1", Title: "T"}); err != nil {
		t.Fatalf("create book: %v", err)
	}
	if ok, _ := store.ClaimBook("b1", "worker-a", time.Hour); !ok {
		t.Fatal("first claim failed")
	}
	// With a zero TTL every claim is immediately stale.
	if ok, _ := store.ClaimBook("b1", "worker-b", 0); !ok {
		t.Fatal("stale claim should have been reclaimable")
	}
}

func TestListRunnableBooksSkipsClaimedAndTerminal(t *testing.T) {
	store := newTestStore(t)
	for _, b := range []*Book{
		{ID: "p", Title: "T", Status: BookStatusPending},
		{ID: "d", Title: "T", Status: BookStatusDelivered},
		{ID: "f", Title: "T", Status: BookStatusFailed},
		{ID: "c", Title: "T", Status: BookStatusPending},
	} {
		if err := store.CreateBook(b); err != nil {
			t.Fatalf("create %s: %v", b.ID, err)
		}
	}
	if ok, _ := store.ClaimBook("c", "worker-a", time.Hour); !ok {
		t.Fatal("claim failed")
	}

	ids, err := store.ListRunnableBooks(10, time.Hour)
	if err != nil {
		t.Fatalf("list runnable: %v", err)
	}
	if len(ids) != 1 || ids[0] != "p" {
		t.Fatalf("expected only [p], got %v", ids)
	}
}

func TestUpdateBookInputsLeavesEngineFields(t *testing.T) {
	store := newTestStore(t)
	if err := store.CreateBook(&Book{ID: "b1", Title: "Old"}); err != nil {
		t.Fatalf("create book: %v", err)
	}
	if err := store.SaveOutline("b1", "outline text", []string{"a"}); err != nil {
		t.Fatalf("save outline: %v", err)
	}

	err := store.UpdateBookInputs(&Book{
		ID:          "b1",
		Title:       "New",
		SectionGate: "notes_provided",
	})
	if err != nil {
		t.Fatalf("update inputs: %v", err)
	}

	book, _ := store.GetBook("b1")
	if book.Title != "New" || book.SectionGate != "notes_provided" {
		t.Errorf("inputs not updated: %+v", book)
	}
	if book.Outline != "outline text" || book.TotalSections != 1 {
		t.Errorf("engine fields were touched: %+v", book)
	}
}

func TestListRunnableBooksIncludesBlocked(t *testing.T) {
	store := newTestStore(t)
	if err := store.CreateBook(&Book{ID: "b1", Title: "T", Status: BookStatusBlocked}); err != nil {
		t.Fatalf("create book: %v", err)
	}

	ids, err := store.ListRunnableBooks(10, time.Hour)
	if err != nil {
		t.Fatalf("list runnable: %v", err)
	}
	if len(ids) != 1 || ids[0] != "b1" {
		t.Fatalf("a blocked book must stay pollable, got %v", ids)
	}
}
