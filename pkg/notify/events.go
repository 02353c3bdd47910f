// Package notify delivers workflow milestones to editors. Gates are
// human-operated, so every pause and every finished artifact has to
// reach someone who can act on it.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// EventType defines the type of notification event.
type EventType string

const (
	// EventOutlineReady is sent when an outline awaits editor review
	EventOutlineReady EventType = "outline_ready"

	// EventSectionReady is sent when a section has been written
	EventSectionReady EventType = "section_ready"

	// EventReviewReady is sent when all sections are done and the
	// manuscript awaits final review
	EventReviewReady EventType = "review_ready"

	// EventDelivered is sent when the compiled book has been uploaded
	EventDelivered EventType = "book_delivered"

	// EventBlocked is sent when a gate paused the workflow
	EventBlocked EventType = "workflow_blocked"

	// EventFailed is sent when a run gave up
	EventFailed EventType = "workflow_failed"
)

// Event is a notification event.
type Event struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	BookID    string         `json:"book_id"`
	Section   int            `json:"section,omitempty"`
	Title     string         `json:"title"`
	Message   string         `json:"message"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Publisher publishes notification events to a bus.
type Publisher interface {
	Publish(ctx context.Context, event *Event) error
	Close() error
}

// Adapter sends notifications to a specific channel (email, Teams, etc).
type Adapter interface {
	// Name returns the adapter name
	Name() string

	// Send sends a notification
	Send(ctx context.Context, event *Event) error

	// Close closes the adapter
	Close() error
}

// Manager fans events out to a publisher and all configured adapters.
type Manager struct {
	adapters  []Adapter
	publisher Publisher
}

// NewManager creates a notification manager.
func NewManager(publisher Publisher, adapters ...Adapter) *Manager {
	return &Manager{
		adapters:  adapters,
		publisher: publisher,
	}
}

// Notify sends an event everywhere. Delivery failures do not stop the
// remaining channels; the last failure is returned.
func (m *Manager) Notify(ctx context.Context, event *Event) error {
	if event.ID == "" {
		event.ID = fmt.Sprintf("evt-%d", time.Now().UnixNano())
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	var lastErr error
	if m.publisher != nil {
		if err := m.publisher.Publish(ctx, event); err != nil {
			lastErr = fmt.Errorf("publish event: %w", err)
		}
	}
	for _, adapter := range m.adapters {
		if err := adapter.Send(ctx, event); err != nil {
			lastErr = fmt.Errorf("%s: %w", adapter.Name(), err)
		}
	}
	return lastErr
}

// NotifyOutlineReady announces a freshly generated outline.
func (m *Manager) NotifyOutlineReady(ctx context.Context, bookID, bookTitle string) error {
	return m.Notify(ctx, &Event{
		Type:    EventOutlineReady,
		BookID:  bookID,
		Title:   fmt.Sprintf("Outline ready: %s", bookTitle),
		Message: "The outline has been generated and is ready for review.",
	})
}

// NotifySectionReady announces a written section.
func (m *Manager) NotifySectionReady(ctx context.Context, bookID, bookTitle string, section, total int) error {
	return m.Notify(ctx, &Event{
		Type:    EventSectionReady,
		BookID:  bookID,
		Section: section,
		Title:   fmt.Sprintf("Section %d/%d written: %s", section, total, bookTitle),
		Message: fmt.Sprintf("Section %d of %d has been written.", section, total),
	})
}

// NotifyReviewReady announces a complete manuscript awaiting final review.
func (m *Manager) NotifyReviewReady(ctx context.Context, bookID, bookTitle string) error {
	return m.Notify(ctx, &Event{
		Type:    EventReviewReady,
		BookID:  bookID,
		Title:   fmt.Sprintf("Ready for review: %s", bookTitle),
		Message: "All sections are written. The manuscript awaits final review.",
	})
}

// NotifyDelivered announces the uploaded book.
func (m *Manager) NotifyDelivered(ctx context.Context, bookID, bookTitle, url string) error {
	return m.Notify(ctx, &Event{
		Type:     EventDelivered,
		BookID:   bookID,
		Title:    fmt.Sprintf("Delivered: %s", bookTitle),
		Message:  fmt.Sprintf("The compiled book is available at %s", url),
		Metadata: map[string]any{"url": url},
	})
}

// NotifyBlocked announces a gate pause.
func (m *Manager) NotifyBlocked(ctx context.Context, bookID, bookTitle, reason string) error {
	return m.Notify(ctx, &Event{
		Type:    EventBlocked,
		BookID:  bookID,
		Title:   fmt.Sprintf("Waiting on notes: %s", bookTitle),
		Message: reason,
	})
}

// NotifyFailed announces a failed run.
func (m *Manager) NotifyFailed(ctx context.Context, bookID, bookTitle string, err error) error {
	return m.Notify(ctx, &Event{
		Type:    EventFailed,
		BookID:  bookID,
		Title:   fmt.Sprintf("Workflow failed: %s", bookTitle),
		Message: err.Error(),
	})
}

// Close closes all adapters and the publisher.
func (m *Manager) Close() error {
	var lastErr error
	for _, adapter := range m.adapters {
		if err := adapter.Close(); err != nil {
			lastErr = err
		}
	}
	if m.publisher != nil {
		if err := m.publisher.Close(); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

// JSON helpers
func (e *Event) JSON() []byte {
	data, _ := json.Marshal(e)
	return data
}

func ParseEvent(data []byte) (*Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}
