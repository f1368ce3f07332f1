// Package mail delivers outgoing email through pluggable transports: the
// console for development, SMTP, or a Kafka outbox drained by a consumer.
package mail

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
)

var ErrNoRecipients = errors.New("mail: message has no recipients")

// Message is a plain-text email.
type Message struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	ReplyTo string   `json:"reply_to,omitempty"`
	Subject string   `json:"subject"`
	Body    string   `json:"body"`
}

// Validate checks the message can be handed to a transport.
func (m Message) Validate() error {
	if len(m.To) == 0 {
		return ErrNoRecipients
	}
	for _, to := range m.To {
		if strings.TrimSpace(to) == "" {
			return ErrNoRecipients
		}
	}
	if m.From == "" {
		return errors.New("mail: message has no sender")
	}
	return nil
}

// Transport sends a message. A nil error means the transport accepted it,
// not that it reached the recipient.
type Transport interface {
	Send(ctx context.Context, msg Message) error
}

// ConsoleTransport writes messages to w instead of sending them.
type ConsoleTransport struct {
	mu sync.Mutex
	w  io.Writer
}

func NewConsoleTransport(w io.Writer) *ConsoleTransport {
	return &ConsoleTransport{w: w}
}

func (t *ConsoleTransport) Send(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	_, err := fmt.Fprintf(t.w, "From: %s\nTo: %s\n", msg.From, strings.Join(msg.To, ", "))
	if err != nil {
		return err
	}
	if msg.ReplyTo != "" {
		if _, err := fmt.Fprintf(t.w, "Reply-To: %s\n", msg.ReplyTo); err != nil {
			return err
		}
	}
	_, err = fmt.Fprintf(t.w, "Subject: %s\n\n%s\n%s\n", msg.Subject, msg.Body, strings.Repeat("-", 72))
	return err
}
