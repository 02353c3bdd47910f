package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
)

// EmailAdapter sends notifications over SMTP with STARTTLS. Free
// providers (gmail app passwords and the like) work with plain auth.
type EmailAdapter struct {
	host     string
	port     int
	username string
	password string
	to       []string
	send     sendMailFunc
}

type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// EmailConfig configures the SMTP adapter.
type EmailConfig struct {
	Host     string
	Port     int
	Username string
	Password string

	// To is a comma separated recipient list
	To string
}

// NewEmailAdapter creates an SMTP adapter.
func NewEmailAdapter(cfg EmailConfig) (*EmailAdapter, error) {
	if cfg.Host == "" || cfg.Username == "" || cfg.Password == "" || cfg.To == "" {
		return nil, fmt.Errorf("smtp host, username, password, and recipients are required")
	}
	port := cfg.Port
	if port == 0 {
		port = 587
	}

	var to []string
	for _, addr := range strings.Split(cfg.To, ",") {
		if addr = strings.TrimSpace(addr); addr != "" {
			to = append(to, addr)
		}
	}
	if len(to) == 0 {
		return nil, fmt.Errorf("no valid recipients in %q", cfg.To)
	}

	return &EmailAdapter{
		host:     cfg.Host,
		port:     port,
		username: cfg.Username,
		// Stray quotes from copy-pasted env values break auth.
		password: strings.Trim(strings.TrimSpace(cfg.Password), `"'`),
		to:       to,
		send:     smtp.SendMail,
	}, nil
}

// Name returns the adapter name.
func (e *EmailAdapter) Name() string {
	return "email"
}

// Send sends a notification email.
func (e *EmailAdapter) Send(ctx context.Context, event *Event) error {
	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", e.username)
	fmt.Fprintf(&msg, "To: %s\r\n", strings.Join(e.to, ", "))
	fmt.Fprintf(&msg, "Subject: %s\r\n", event.Title)
	msg.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n")
	msg.WriteString(event.Message)
	fmt.Fprintf(&msg, "\r\n\r\nBook: %s\r\nEvent: %s\r\n", event.BookID, event.Type)

	addr := fmt.Sprintf("%s:%d", e.host, e.port)
	auth := smtp.PlainAuth("", e.username, e.password, e.host)
	if err := e.send(addr, auth, e.username, e.to, []byte(msg.String())); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	return nil
}

// Close closes the adapter.
func (e *EmailAdapter) Close() error {
	return nil
}
