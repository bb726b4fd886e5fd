package mail

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/alnah/go-mailbuild/internal/process"
)

// SendmailSender pipes the message to a local sendmail-compatible binary.
type SendmailSender struct {
	path   string
	args   []string
	runner process.CommandRunner
	now    func() time.Time
}

// NewSendmailSender creates a sender running path with extra args.
func NewSendmailSender(path string, args []string, runner process.CommandRunner) *SendmailSender {
	return &SendmailSender{path: path, args: args, runner: runner, now: time.Now}
}

// Send implements Sender.
func (s *SendmailSender) Send(ctx context.Context, email *Email) error {
	if err := email.Validate(); err != nil {
		return err
	}
	msg, err := Message(email, s.now())
	if err != nil {
		return err
	}
	from, err := addrSpec(email.From)
	if err != nil {
		return err
	}

	// -i: a lone dot does not end the message.
	args := append([]string{}, s.args...)
	args = append(args, "-i", "-f", from, "--")
	for _, to := range email.To {
		rcpt, err := addrSpec(to)
		if err != nil {
			return err
		}
		args = append(args, rcpt)
	}

	_, stderr, err := s.runner.Run(ctx, process.Command{
		Name:  s.path,
		Args:  args,
		Stdin: bytes.NewReader(msg),
	})
	if err != nil {
		if msg := strings.TrimSpace(stderr); msg != "" {
			return fmt.Errorf("%w: sendmail: %v: %s", ErrSendFailed, err, msg)
		}
		return fmt.Errorf("%w: sendmail: %v", ErrSendFailed, err)
	}
	return nil
}
