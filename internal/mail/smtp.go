package mail

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"time"
)

// DefaultSMTPTimeout bounds an SMTP session when ctx has no deadline.
const DefaultSMTPTimeout = 30 * time.Second

// SMTPSender delivers over SMTP.
type SMTPSender struct {
	host   string
	port   int
	secure bool
	auth   Auth
	now    func() time.Time
}

// NewSMTPSender creates a sender for host:port. secure selects implicit TLS;
// otherwise STARTTLS is used when the server offers it.
func NewSMTPSender(host string, port int, secure bool, auth Auth) *SMTPSender {
	return &SMTPSender{host: host, port: port, secure: secure, auth: auth, now: time.Now}
}

// Send implements Sender.
func (s *SMTPSender) Send(ctx context.Context, email *Email) error {
	if err := email.Validate(); err != nil {
		return err
	}
	msg, err := Message(email, s.now())
	if err != nil {
		return err
	}
	if err := s.deliver(ctx, email, msg); err != nil {
		return fmt.Errorf("%w: smtp %s: %v", ErrSendFailed, s.addr(), err)
	}
	return nil
}

func (s *SMTPSender) addr() string {
	return net.JoinHostPort(s.host, strconv.Itoa(s.port))
}

func (s *SMTPSender) deliver(ctx context.Context, email *Email, msg []byte) error {
	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(DefaultSMTPTimeout)
	}

	dialer := &net.Dialer{Deadline: deadline}
	var conn net.Conn
	var err error
	if s.secure {
		conn, err = (&tls.Dialer{NetDialer: dialer, Config: &tls.Config{ServerName: s.host, MinVersion: tls.VersionTLS12}}).DialContext(ctx, "tcp", s.addr())
	} else {
		conn, err = dialer.DialContext(ctx, "tcp", s.addr())
	}
	if err != nil {
		return err
	}
	_ = conn.SetDeadline(deadline)

	// Unblock the session if ctx ends mid-conversation.
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	c, err := smtp.NewClient(conn, s.host)
	if err != nil {
		_ = conn.Close()
		return err
	}
	defer func() { _ = c.Close() }()

	if !s.secure {
		if ok, _ := c.Extension("STARTTLS"); ok {
			if err := c.StartTLS(&tls.Config{ServerName: s.host, MinVersion: tls.VersionTLS12}); err != nil {
				return err
			}
		}
	}
	if s.auth.User != "" {
		if err := c.Auth(smtp.PlainAuth("", s.auth.User, s.auth.Pass, s.host)); err != nil {
			return err
		}
	}

	from, err := addrSpec(email.From)
	if err != nil {
		return err
	}
	if err := c.Mail(from); err != nil {
		return err
	}
	for _, to := range email.To {
		rcpt, err := addrSpec(to)
		if err != nil {
			return err
		}
		if err := c.Rcpt(rcpt); err != nil {
			return err
		}
	}
	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return c.Quit()
}
