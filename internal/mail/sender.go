package mail

import "context"

// Sender delivers a prepared Email.
type Sender interface {
	Send(ctx context.Context, email *Email) error
}
