package mail

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/alnah/go-mailbuild/internal/process"
)

// Transport services.
const (
	ServiceSendmail = "sendmail"
	ServiceSMTP     = "smtp"
	ServiceResend   = "resend"
)

// DefaultSendmailPath is used when a sendmail transport names no binary.
const DefaultSendmailPath = "sendmail"

// wellKnown maps SMTP provider names to their submission endpoints.
var wellKnown = map[string]struct {
	host   string
	port   int
	secure bool
}{
	"gmail":   {"smtp.gmail.com", 465, true},
	"outlook": {"smtp-mail.outlook.com", 587, false},
	"hotmail": {"smtp-mail.outlook.com", 587, false},
	"yahoo":   {"smtp.mail.yahoo.com", 465, true},
	"icloud":  {"smtp.mail.me.com", 587, false},
	"mailgun": {"smtp.mailgun.org", 465, true},
}

// Auth holds SMTP credentials.
type Auth struct {
	User string `json:"user"`
	Pass string `json:"pass"`
}

// Transport is the JSON transport file: which service delivers mail and how
// to reach it. A file naming no service and no host means local sendmail.
//
//	{"service": "gmail", "auth": {"user": "me@gmail.com", "pass": "app-password"}}
//	{"service": "resend", "apiKey": "re_..."}
//	{"host": "localhost", "port": 1025}
type Transport struct {
	Service string `json:"service"`

	// SMTP
	Host   string `json:"host"`
	Port   int    `json:"port"`
	Secure bool   `json:"secure"` // implicit TLS; otherwise STARTTLS when offered
	Auth   Auth   `json:"auth"`

	// Resend
	APIKey string `json:"apiKey"`

	// Sendmail
	Path string   `json:"path"`
	Args []string `json:"args"`
}

// LoadTransport reads and normalizes a transport file.
func LoadTransport(path string) (*Transport, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- transport path is configured by the project
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrTransportNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("reading transport: %w", err)
	}
	return ParseTransport(data)
}

// ParseTransport decodes transport JSON. An empty document means sendmail.
func ParseTransport(data []byte) (*Transport, error) {
	t := &Transport{}
	if len(bytes.TrimSpace(data)) > 0 {
		if err := json.Unmarshal(data, t); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidTransport, err)
		}
	}
	if err := t.normalize(); err != nil {
		return nil, err
	}
	return t, nil
}

// normalize resolves the service kind and fills well-known endpoints.
func (t *Transport) normalize() error {
	service := strings.ToLower(strings.TrimSpace(t.Service))

	if known, ok := wellKnown[service]; ok {
		if t.Host == "" {
			t.Host = known.host
		}
		if t.Port == 0 {
			t.Port, t.Secure = known.port, known.secure
		}
		service = ServiceSMTP
	}
	if service == "" {
		service = ServiceSendmail
		if t.Host != "" {
			service = ServiceSMTP
		}
	}
	t.Service = service

	switch service {
	case ServiceSMTP:
		if t.Host == "" {
			return fmt.Errorf("%w: smtp needs a host", ErrInvalidTransport)
		}
		if t.Port == 0 {
			t.Port = 587
			if t.Secure {
				t.Port = 465
			}
		}
		if t.Port < 1 || t.Port > 65535 {
			return fmt.Errorf("%w: port %d out of range", ErrInvalidTransport, t.Port)
		}
	case ServiceResend:
		if t.APIKey == "" {
			t.APIKey = os.Getenv("RESEND_API_KEY")
		}
		if t.APIKey == "" {
			return fmt.Errorf("%w: resend needs apiKey or RESEND_API_KEY", ErrInvalidTransport)
		}
	case ServiceSendmail:
		if t.Path == "" {
			t.Path = DefaultSendmailPath
		}
	default:
		return fmt.Errorf("%w: unknown service %q", ErrInvalidTransport, t.Service)
	}
	return nil
}

// NewSender creates the Sender for t. runner executes sendmail.
func NewSender(t *Transport, runner process.CommandRunner) (Sender, error) {
	switch t.Service {
	case ServiceResend:
		return NewResendSender(t.APIKey), nil
	case ServiceSMTP:
		return NewSMTPSender(t.Host, t.Port, t.Secure, t.Auth), nil
	case ServiceSendmail, "":
		if runner == nil {
			runner = process.ExecRunner{}
		}
		path := t.Path
		if path == "" {
			path = DefaultSendmailPath
		}
		return NewSendmailSender(path, t.Args, runner), nil
	}
	return nil, fmt.Errorf("%w: unknown service %q", ErrInvalidTransport, t.Service)
}
