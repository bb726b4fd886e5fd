package mail

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"
)

// Email is a fully prepared message ready for a Sender.
type Email struct {
	From    string            // "Name <addr>" or bare address
	To      []string          // one or more recipients
	Subject string            // plain text, encoded on the wire as needed
	HTML    string            // text/html body
	Text    string            // optional text/plain alternative
	Headers map[string]string // extra headers
}

// Validate checks that the email can be delivered.
// All problems are reported together.
func (e *Email) Validate() error {
	var errs []error
	if strings.TrimSpace(e.From) == "" {
		errs = append(errs, ErrNoSender)
	} else if _, err := mail.ParseAddress(e.From); err != nil {
		errs = append(errs, fmt.Errorf("%w: from %q", ErrInvalidAddress, e.From))
	}
	if len(e.To) == 0 {
		errs = append(errs, ErrNoRecipient)
	}
	for _, to := range e.To {
		if _, err := mail.ParseAddress(to); err != nil {
			errs = append(errs, fmt.Errorf("%w: to %q", ErrInvalidAddress, to))
		}
	}
	if strings.TrimSpace(e.Subject) == "" {
		errs = append(errs, ErrNoSubject)
	}
	if strings.TrimSpace(e.HTML) == "" {
		errs = append(errs, ErrNoContent)
	}
	return errors.Join(errs...)
}

// Recipient formats a name and address as "Name <email>", or just the
// address when name is empty.
func Recipient(name, email string) string {
	if name == "" {
		return email
	}
	return (&mail.Address{Name: name, Address: email}).String()
}

// addrSpec returns the bare address of an RFC 5322 address.
func addrSpec(s string) (string, error) {
	a, err := mail.ParseAddress(s)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidAddress, s)
	}
	return a.Address, nil
}
