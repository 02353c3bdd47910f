package storage

import (
	"encoding/json"
	"testing"
)

func TestAppendAndListEvents(t *testing.T) {
	store := newTestStore(t)
	if err := store.CreateBook(&Book{ID: "b1", Title: "T"}); err != nil {
		t.Fatalf("create book: %v", err)
	}

	types := []string{"outline_ready", "section_ready", "book_delivered"}
	for _, typ := range types {
		event := &NotificationEvent{
			BookID:  "b1",
			Type:    typ,
			Payload: json.RawMessage(`{"section":1}`),
		}
		if err := store.AppendEvent(event); err != nil {
			t.Fatalf("append %s: %v", typ, err)
		}
		if event.ID == "" {
			t.Fatal("expected an id to be assigned")
		}
	}

	events, err := store.ListEvents("b1")
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	// ULID ids sort in append order.
	for i, e := range events {
		if e.Type != types[i] {
			t.Errorf("events[%d].Type = %q, want %q", i, e.Type, types[i])
		}
	}

	events, err = store.ListEvents("other")
	if err != nil {
		t.Fatalf("list events for other book: %v", err)
	}
	if len(events) != 0 {
		t.Fatalf("expected no events, got %d", len(events))
	}
}
