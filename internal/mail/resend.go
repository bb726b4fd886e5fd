package mail

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/resend/resend-go/v3"
)

// ResendSender delivers through the Resend HTTP API.
type ResendSender struct {
	client *resend.Client
}

// ResendOption configures a ResendSender.
type ResendOption func(*resend.Client)

// WithResendEndpoint points the client at another API root.
func WithResendEndpoint(u *url.URL) ResendOption {
	return func(c *resend.Client) { c.BaseURL = u }
}

// NewResendSender creates a sender authenticated with apiKey.
func NewResendSender(apiKey string, opts ...ResendOption) *ResendSender {
	client := resend.NewCustomClient(http.DefaultClient, apiKey)
	for _, opt := range opts {
		opt(client)
	}
	return &ResendSender{client: client}
}

// Send implements Sender.
func (s *ResendSender) Send(ctx context.Context, email *Email) error {
	if err := email.Validate(); err != nil {
		return err
	}
	req := &resend.SendEmailRequest{
		From:    email.From,
		To:      email.To,
		Subject: email.Subject,
		Html:    email.HTML,
		Text:    email.Text,
		Headers: email.Headers,
	}
	if _, err := s.client.Emails.SendWithContext(ctx, req); err != nil {
		return fmt.Errorf("%w: resend: %v", ErrSendFailed, err)
	}
	return nil
}
