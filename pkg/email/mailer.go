package email

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// Sender delivers a single message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Message is one outbound transactional email.
type Message struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
	Text    string `json:"text,omitempty"`
	Tag     string `json:"tag,omitempty"` // analytics bucket
}

var emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$|^[^\s@]+@localhost$`)

// Validate checks the fields every provider requires.
func (m Message) Validate() error {
	switch {
	case strings.TrimSpace(m.To) == "":
		return fmt.Errorf("%w: recipient is required", ErrInvalidMessage)
	case !emailRegex.MatchString(m.To):
		return fmt.Errorf("%w: recipient must be a valid email address", ErrInvalidMessage)
	case strings.TrimSpace(m.Subject) == "":
		return fmt.Errorf("%w: subject is required", ErrInvalidMessage)
	case strings.TrimSpace(m.HTML) == "":
		return fmt.Errorf("%w: html body is required", ErrInvalidMessage)
	}
	return nil
}

// NewSender returns a Postmark sender when a server token is configured and
// a DevSender writing to cfg.DevDir otherwise.
func NewSender(cfg Config) (Sender, error) {
	if cfg.PostmarkServerToken == "" {
		return NewDevSender(cfg.DevDir), nil
	}
	return NewPostmarkSender(cfg)
}
