package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

// NATSPublisher publishes events to NATS so other systems (dashboards,
// downstream automations) can react to workflow milestones.
type NATSPublisher struct {
	conn    *nats.Conn
	subject string
}

// NATSConfig configures the NATS connection.
type NATSConfig struct {
	// URL is the NATS server URL
	URL string

	// Subject is the base subject for events
	Subject string

	// ConnectTimeout is the connection timeout
	ConnectTimeout time.Duration
}

// NewNATSPublisher creates a NATS publisher.
func NewNATSPublisher(cfg NATSConfig) (*NATSPublisher, error) {
	if cfg.URL == "" {
		cfg.URL = nats.DefaultURL
	}
	if cfg.Subject == "" {
		cfg.Subject = "bookflow.notify"
	}
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = 5 * time.Second
	}

	conn, err := nats.Connect(cfg.URL,
		nats.Timeout(cfg.ConnectTimeout),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	return &NATSPublisher{
		conn:    conn,
		subject: cfg.Subject,
	}, nil
}

// Publish publishes an event to NATS.
func (p *NATSPublisher) Publish(ctx context.Context, event *Event) error {
	subject := fmt.Sprintf("%s.%s", p.subject, event.Type)
	return p.conn.Publish(subject, event.JSON())
}

// Close closes the NATS connection.
func (p *NATSPublisher) Close() error {
	p.conn.Close()
	return nil
}

// NATSSubscriber receives workflow events from NATS.
type NATSSubscriber struct {
	conn    *nats.Conn
	subject string
	sub     *nats.Subscription
}

// NewNATSSubscriber creates a NATS subscriber.
func NewNATSSubscriber(cfg NATSConfig) (*NATSSubscriber, error) {
	if cfg.URL == "" {
		cfg.URL = nats.DefaultURL
	}
	if cfg.Subject == "" {
		cfg.Subject = "bookflow.notify"
	}
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = 5 * time.Second
	}

	conn, err := nats.Connect(cfg.URL,
		nats.Timeout(cfg.ConnectTimeout),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	return &NATSSubscriber{
		conn:    conn,
		subject: cfg.Subject,
	}, nil
}

// Subscribe receives events until the context is canceled.
func (s *NATSSubscriber) Subscribe(ctx context.Context, handler func(*Event)) error {
	subject := s.subject + ".>"

	sub, err := s.conn.Subscribe(subject, func(msg *nats.Msg) {
		event, err := ParseEvent(msg.Data)
		if err != nil {
			return
		}
		handler(event)
	})
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	s.sub = sub

	<-ctx.Done()
	return nil
}

// Close closes the subscription and connection.
func (s *NATSSubscriber) Close() error {
	if s.sub != nil {
		s.sub.Unsubscribe()
	}
	s.conn.Close()
	return nil
}
