// Package mailer delivers outbound email: SMTP in production, the log in
// development.
package mailer

import (
	"context"
	"errors"
)

// ErrNoRecipient is returned for a message without a To address.
var ErrNoRecipient = errors.New("message has no recipient")

// Message is a single email with a plain-text body and an optional HTML
// alternative.
type Message struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

// Mailer sends messages. Implementations must be safe for concurrent use.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}
