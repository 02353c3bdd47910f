package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// TeamsAdapter sends notifications via a Microsoft Teams incoming
// webhook.
type TeamsAdapter struct {
	webhookURL string
	client     *http.Client
}

// TeamsConfig configures the Teams adapter.
type TeamsConfig struct {
	// WebhookURL is the Teams incoming webhook URL
	WebhookURL string
}

// NewTeamsAdapter creates a Teams adapter.
func NewTeamsAdapter(cfg TeamsConfig) (*TeamsAdapter, error) {
	if cfg.WebhookURL == "" {
		return nil, fmt.Errorf("webhook URL is required")
	}

	return &TeamsAdapter{
		webhookURL: cfg.WebhookURL,
		client:     &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// Name returns the adapter name.
func (t *TeamsAdapter) Name() string {
	return "teams"
}

// Send sends a notification via Teams.
func (t *TeamsAdapter) Send(ctx context.Context, event *Event) error {
	var color string
	switch event.Type {
	case EventBlocked:
		color = "FFAA00"
	case EventFailed:
		color = "FF0000"
	case EventDelivered:
		color = "00AA00"
	default:
		color = "0066FF"
	}

	payload := map[string]any{
		"@type":      "MessageCard",
		"@context":   "http://schema.org/extensions",
		"themeColor": color,
		"summary":    event.Title,
		"title":      event.Title,
		"text":       event.Message,
		"sections": []map[string]any{
			{
				"facts": []map[string]string{
					{"name": "Book", "value": event.BookID},
					{"name": "Event", "value": string(event.Type)},
				},
			},
		},
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.webhookURL, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("teams webhook error: %s", string(body))
	}
	return nil
}

// Close closes the adapter.
func (t *TeamsAdapter) Close() error {
	return nil
}
