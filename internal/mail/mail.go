// Package mail sends dashboard notifications.
package mail

import (
	"context"
	"errors"
	"strings"
)

// Message is one outgoing email.
type Message struct {
	To      string `json:"to"`
	From    string `json:"from,omitempty"`
	Subject string `json:"subject"`
	Body    string `json:"message"`
}

var ErrInvalidMessage = errors.New("mail: missing required email parameters")

// Validate checks that recipient, subject and body are present.
func (m Message) Validate() error {
	if strings.TrimSpace(m.To) == "" || strings.TrimSpace(m.Subject) == "" || strings.TrimSpace(m.Body) == "" {
		return ErrInvalidMessage
	}
	return nil
}

// Receipt identifies an accepted message.
type Receipt struct {
	MessageID string `json:"messageId"`
	Provider  string `json:"provider"`
}

// Sender delivers messages.
type Sender interface {
	Send(ctx context.Context, msg Message) (Receipt, error)
}
