package mailer

import (
	"context"
	"fmt"

	"github.com/wneessen/go-mail"
)

// SMTPConfig holds the outbound server settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// dialAndSend is a seam for tests.
var dialAndSend = func(ctx context.Context, c *mail.Client, msgs ...*mail.Msg) error {
	return c.DialAndSendWithContext(ctx, msgs...)
}

// SMTPMailer sends through an SMTP relay. Port 465 uses implicit TLS,
// any other port STARTTLS when the server offers it.
type SMTPMailer struct {
	client *mail.Client
	from   string
}

// NewSMTPMailer builds the client once; connections are opened per Send.
func NewSMTPMailer(cfg SMTPConfig) (*SMTPMailer, error) {
	opts := []mail.Option{mail.WithPort(cfg.Port)}
	if cfg.Port == 465 {
		opts = append(opts, mail.WithSSL())
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSOpportunistic))
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("smtp client: %w", err)
	}

	from := cfg.From
	if from == "" {
		from = cfg.Username
	}
	return &SMTPMailer{client: client, from: from}, nil
}

func (m *SMTPMailer) buildMsg(msg Message) (*mail.Msg, error) {
	if msg.To == "" {
		return nil, ErrNoRecipient
	}

	mm := mail.NewMsg()
	if err := mm.From(m.from); err != nil {
		return nil, fmt.Errorf("from address: %w", err)
	}
	if err := mm.To(msg.To); err != nil {
		return nil, fmt.Errorf("to address: %w", err)
	}
	mm.Subject(msg.Subject)
	mm.SetBodyString(mail.TypeTextPlain, msg.Text)
	if msg.HTML != "" {
		mm.AddAlternativeString(mail.TypeTextHTML, msg.HTML)
	}
	return mm, nil
}

func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	mm, err := m.buildMsg(msg)
	if err != nil {
		return err
	}
	if err := dialAndSend(ctx, m.client, mm); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}
