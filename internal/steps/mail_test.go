package steps

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	mailbuild "github.com/alnah/go-mailbuild"
	"github.com/alnah/go-mailbuild/internal/config"
	"github.com/alnah/go-mailbuild/internal/mail"
)

type fakeSender struct {
	mu     sync.Mutex
	emails []*mail.Email
	err    error
}

func (f *fakeSender) Send(_ context.Context, e *mail.Email) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.emails = append(f.emails, e)
	return f.err
}

func newMailStep(cfg config.MailConfig, sender *fakeSender) (*mailStep, *[]*mail.Transport) {
	var transports []*mail.Transport
	return &mailStep{cfg: cfg, newSender: func(t *mail.Transport) (mail.Sender, error) {
		transports = append(transports, t)
		return sender, nil
	}}, &transports
}

func testMailConfig() config.MailConfig {
	return config.MailConfig{
		Transport: "config/transport.json",
		From:      "Acme <news@acme.test>",
		Subject:   "Email template test",
		Recipients: []config.Recipient{
			{Email: "jane@example.test", Name: "Jane"},
			{Email: "bob@example.test"},
		},
	}
}

func TestMailStep(t *testing.T) {
	t.Parallel()

	env, root := newEnv(t)
	env.Options = mailbuild.Options{Template: "welcome"}
	writeFiles(t, root, map[string]string{
		"config/transport.json": `{"host": "localhost", "port": 1025}`,
		"dist/welcome.html":     `<html><body><p>Hello <a href="https://acme.test">Acme</a></p><img src="img/logo.png"></body></html>`,
	})

	cfg := testMailConfig()
	cfg.ImageBaseURL = "https://cdn.acme.test/mail"
	sender := &fakeSender{}
	step, transports := newMailStep(cfg, sender)

	if err := step.Run(context.Background(), env, ""); err != nil {
		t.Fatalf("Run() unexpected error: %v", err)
	}

	if len(*transports) != 1 || (*transports)[0].Service != mail.ServiceSMTP {
		t.Errorf("transports = %+v, want one smtp transport", *transports)
	}
	if len(sender.emails) != 2 {
		t.Fatalf("sent %d emails, want 2", len(sender.emails))
	}
	first := sender.emails[0]
	if first.From != cfg.From || first.Subject != cfg.Subject {
		t.Errorf("email header = %q / %q", first.From, first.Subject)
	}
	if len(first.To) != 1 || first.To[0] != `"Jane" <jane@example.test>` {
		t.Errorf("To = %v, want Jane", first.To)
	}
	if !strings.Contains(first.HTML, `src="https://cdn.acme.test/mail/img/logo.png"`) {
		t.Errorf("image not rewritten:\n%s", first.HTML)
	}
	if first.Text != "Hello Acme (https://acme.test)" {
		t.Errorf("Text = %q", first.Text)
	}
	if sender.emails[1].To[0] != "<bob@example.test>" {
		t.Errorf("second To = %v", sender.emails[1].To)
	}
}

func TestMailStep_NoTextAlternative(t *testing.T) {
	t.Parallel()

	env, root := newEnv(t)
	env.Options = mailbuild.Options{Template: "welcome"}
	writeFiles(t, root, map[string]string{
		"config/transport.json": "",
		"dist/welcome.html":     "<p>Hi</p>",
	})

	cfg := testMailConfig()
	off := false
	cfg.GenerateText = &off
	sender := &fakeSender{}
	step, _ := newMailStep(cfg, sender)

	if err := step.Run(context.Background(), env, ""); err != nil {
		t.Fatalf("Run() unexpected error: %v", err)
	}
	if sender.emails[0].Text != "" {
		t.Errorf("Text = %q, want empty", sender.emails[0].Text)
	}
}

func TestMailStep_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		template string
		files    map[string]string
		cfg      func(*config.MailConfig)
		sendErr  error
		wantErr  error
		wantText string
	}{
		{
			name:     "template not built",
			template: "missing",
			files:    map[string]string{"dist/welcome.html": "x", "dist/promo.html": "x", "config/transport.json": "{}"},
			wantErr:  ErrTemplateNotFound,
			wantText: "available: promo, welcome",
		},
		{
			name:     "nothing built",
			template: "missing",
			wantErr:  ErrTemplateNotFound,
			wantText: "run the build pipeline first",
		},
		{
			name:     "template escapes dist",
			template: "../secret",
			files:    map[string]string{"secret.html": "x"},
			wantErr:  ErrTemplateNotFound,
		},
		{
			name:     "transport missing",
			template: "welcome",
			files:    map[string]string{"dist/welcome.html": "<p>x</p>"},
			wantErr:  mail.ErrTransportNotFound,
			wantText: "config/transport.json",
		},
		{
			name:     "invalid transport",
			template: "welcome",
			files:    map[string]string{"dist/welcome.html": "<p>x</p>", "config/transport.json": `{"service": "pigeon"}`},
			wantErr:  mail.ErrInvalidTransport,
		},
		{
			name:     "no recipients",
			template: "welcome",
			files:    map[string]string{"dist/welcome.html": "<p>x</p>", "config/transport.json": "{}"},
			cfg:      func(c *config.MailConfig) { c.Recipients = nil },
			wantErr:  mail.ErrNoRecipient,
		},
		{
			name:     "delivery fails",
			template: "welcome",
			files:    map[string]string{"dist/welcome.html": "<p>x</p>", "config/transport.json": "{}"},
			sendErr:  mail.ErrSendFailed,
			wantErr:  mail.ErrSendFailed,
			wantText: "jane@example.test",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			env, root := newEnv(t)
			env.Options = mailbuild.Options{Template: tt.template}
			writeFiles(t, root, tt.files)

			cfg := testMailConfig()
			if tt.cfg != nil {
				tt.cfg(&cfg)
			}
			step, _ := newMailStep(cfg, &fakeSender{err: tt.sendErr})

			err := step.Run(context.Background(), env, "")
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Run() error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantText != "" && !strings.Contains(err.Error(), tt.wantText) {
				t.Errorf("Run() error = %q, want containing %q", err, tt.wantText)
			}
		})
	}
}
