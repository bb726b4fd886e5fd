package steps

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	mailbuild "github.com/alnah/go-mailbuild"
	"github.com/alnah/go-mailbuild/internal/config"
	"github.com/alnah/go-mailbuild/internal/fileutil"
	"github.com/alnah/go-mailbuild/internal/hints"
	"github.com/alnah/go-mailbuild/internal/mail"
	"github.com/alnah/go-mailbuild/internal/pipeline"
)

// ErrTemplateNotFound indicates the template to send was not built.
var ErrTemplateNotFound = errors.New("template not found")

// mailStep delivers <dist>/<template>.html to every configured recipient.
// The transport file is only read here, so other pipelines never need it.
type mailStep struct {
	cfg       config.MailConfig
	newSender SenderFactory
}

func (s *mailStep) Run(ctx context.Context, env *mailbuild.Env, _ string) error {
	dist, err := env.Path(mailbuild.PathDist)
	if err != nil {
		return err
	}

	html, err := loadTemplate(dist, env.Options.Template)
	if err != nil {
		return err
	}
	if html, err = pipeline.RewriteImageURLs(html, s.cfg.ImageBaseURL); err != nil {
		return err
	}
	var text string
	if s.cfg.TextAlternative() {
		text = pipeline.PlainText(html)
	}

	transportPath := s.cfg.Transport
	if !filepath.IsAbs(transportPath) {
		transportPath = filepath.Join(env.Paths.Root(), filepath.FromSlash(transportPath))
	}
	transport, err := mail.LoadTransport(transportPath)
	if err != nil {
		return fmt.Errorf("%w%s", err, hints.ForTransport(s.cfg.Transport))
	}
	sender, err := s.newSender(transport)
	if err != nil {
		return err
	}

	if len(s.cfg.Recipients) == 0 {
		return mail.ErrNoRecipient
	}
	for _, r := range s.cfg.Recipients {
		email := &mail.Email{
			From:    s.cfg.From,
			To:      []string{r.Address()},
			Subject: s.cfg.Subject,
			HTML:    html,
			Text:    text,
		}
		if err := sender.Send(ctx, email); err != nil {
			return fmt.Errorf("sending to %s: %w", r.Email, err)
		}
		env.Logger.Info("sent", slog.String("template", env.Options.Template),
			slog.String("to", r.Email), slog.String("transport", transport.Service))
	}
	return nil
}

// loadTemplate reads <dist>/<name>.html, listing what was built when it is missing.
func loadTemplate(dist, name string) (string, error) {
	page := filepath.Join(dist, name+".html")
	if err := fileutil.Within(dist, page); err != nil {
		return "", fmt.Errorf("%w: %q", ErrTemplateNotFound, name)
	}
	data, err := os.ReadFile(page) // #nosec G304 -- contained in the dist directory
	if err != nil {
		if !os.IsNotExist(err) {
			return "", fmt.Errorf("reading template: %w", err)
		}
		built, _ := topLevel(dist, ".html")
		for i, f := range built {
			built[i] = fileutil.ReplaceExt(f, "")
		}
		return "", fmt.Errorf("%w: %s%s", ErrTemplateNotFound, page, hints.ForMissingTemplate(built))
	}
	return string(data), nil
}
