package mail

import (
	"context"
	"fmt"

	gomail "github.com/wneessen/go-mail"
)

// SMTPConfig holds the SMTP relay settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
}

// SMTPTransport sends each message over a fresh SMTP connection.
type SMTPTransport struct {
	cfg SMTPConfig
}

func NewSMTPTransport(cfg SMTPConfig) *SMTPTransport {
	return &SMTPTransport{cfg: cfg}
}

// build converts a Message into a go-mail message.
func build(msg Message) (*gomail.Msg, error) {
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	m := gomail.NewMsg()
	if err := m.From(msg.From); err != nil {
		return nil, fmt.Errorf("mail: from: %w", err)
	}
	if err := m.To(msg.To...); err != nil {
		return nil, fmt.Errorf("mail: to: %w", err)
	}
	if msg.ReplyTo != "" {
		if err := m.ReplyTo(msg.ReplyTo); err != nil {
			return nil, fmt.Errorf("mail: reply-to: %w", err)
		}
	}
	m.Subject(msg.Subject)
	m.SetBodyString(gomail.TypeTextPlain, msg.Body)
	return m, nil
}

func (t *SMTPTransport) options() []gomail.Option {
	opts := []gomail.Option{
		gomail.WithPort(t.cfg.Port),
		gomail.WithTLSPolicy(gomail.TLSOpportunistic),
	}
	if t.cfg.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(t.cfg.Username),
			gomail.WithPassword(t.cfg.Password),
		)
	}
	return opts
}

func (t *SMTPTransport) Send(ctx context.Context, msg Message) error {
	m, err := build(msg)
	if err != nil {
		return err
	}
	client, err := gomail.NewClient(t.cfg.Host, t.options()...)
	if err != nil {
		return fmt.Errorf("mail: smtp client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("mail: smtp send: %w", err)
	}
	return nil
}
