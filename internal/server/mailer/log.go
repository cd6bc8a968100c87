package mailer

import (
	"context"

	"github.com/dmitrijs2005/gims/internal/logging"
)

// LogMailer writes messages to the log instead of sending them. It is used
// when no SMTP host is configured.
type LogMailer struct {
	logger logging.Logger
}

func NewLogMailer(l logging.Logger) *LogMailer {
	return &LogMailer{logger: l.With("module", "log_mailer")}
}

func (m *LogMailer) Send(ctx context.Context, msg Message) error {
	if msg.To == "" {
		return ErrNoRecipient
	}
	m.logger.Info(ctx, "email not sent, no SMTP host configured", "to", msg.To, "subject", msg.Subject, "body", msg.Text)
	return nil
}

// New returns an SMTP mailer when cfg.Host is set and a LogMailer otherwise.
func New(cfg SMTPConfig, l logging.Logger) (Mailer, error) {
	if cfg.Host == "" {
		return NewLogMailer(l), nil
	}
	return NewSMTPMailer(cfg)
}
