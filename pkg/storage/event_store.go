package storage

import (
	"encoding/json"
	"math/rand"
	"time"

	"github.com/oklog/ulid/v2"
)

// NotificationEvent is an append-only milestone record. Rows are never
// updated or deleted.
type NotificationEvent struct {
	ID        string          `json:"id"`
	BookID    string          `json:"bookId"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"createdAt"`
}

// AppendEvent inserts a notification event. A missing ID gets a fresh
// ULID so rows sort by creation time.
func (s *Store) AppendEvent(event *NotificationEvent) error {
	if event.ID == "" {
		event.ID = ulid.MustNew(ulid.Timestamp(time.Now()), rand.New(rand.NewSource(time.Now().UnixNano()))).String()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}
	payload := event.Payload
	if len(payload) == 0 {
		payload = json.RawMessage(`{}`)
	}
	_, err := s.execRetry(`
		INSERT INTO notification_events (event_id, book_id, type, payload, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		event.ID, event.BookID, event.Type, string(payload), event.CreatedAt,
	)
	return err
}

// ListEvents returns all events for a book, oldest first.
func (s *Store) ListEvents(bookID string) ([]NotificationEvent, error) {
	rows, err := s.db.Query(`
		SELECT event_id, book_id, type, payload, created_at
		FROM notification_events
		WHERE book_id = ?
		ORDER BY event_id ASC`,
		bookID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []NotificationEvent
	for rows.Next() {
		var e NotificationEvent
		var payload string
		if err := rows.Scan(&e.ID, &e.BookID, &e.Type, &payload, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Payload = json.RawMessage(payload)
		events = append(events, e)
	}
	return events, rows.Err()
}
