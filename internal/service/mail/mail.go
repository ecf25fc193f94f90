// Package mail delivers notifications through an external email provider.
package mail

import (
	"context"
	"errors"
	"strings"
)

var (
	ErrNoRecipient = errors.New("mail: recipient is required")
	ErrNoSender    = errors.New("mail: sender is required")
)

// Message is a single provider-agnostic email.
type Message struct {
	To      string
	From    string
	Subject string
	HTML    string
	Text    string
}

// Validate checks the fields every provider needs.
func (m Message) Validate() error {
	if strings.TrimSpace(m.To) == "" {
		return ErrNoRecipient
	}
	if strings.TrimSpace(m.From) == "" {
		return ErrNoSender
	}
	return nil
}

// Sender delivers one message and reports the provider's verdict.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}
