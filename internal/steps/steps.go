// Package steps binds the build pipelines to the tools that do the work:
// the Sass compiler, the view compiler, image handling, template rendering,
// CSS inlining, the dev server, the file watcher and the mail transport.
package steps

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	mailbuild "github.com/alnah/go-mailbuild"
	"github.com/alnah/go-mailbuild/internal/browser"
	"github.com/alnah/go-mailbuild/internal/config"
	"github.com/alnah/go-mailbuild/internal/devserver"
	"github.com/alnah/go-mailbuild/internal/mail"
	"github.com/alnah/go-mailbuild/internal/process"
)

// SenderFactory creates the mail Sender for a loaded transport.
type SenderFactory func(t *mail.Transport) (mail.Sender, error)

// Deps are the collaborators the adapters call out to.
// Zero fields get production defaults in Catalog.
type Deps struct {
	Runner    process.CommandRunner // sass, sendmail
	Opener    browser.Opener        // nil disables opening the browser
	NewSender SenderFactory
	Now       func() time.Time
}

// Catalog returns an adapter for every step the built-in pipelines name.
func Catalog(cfg *config.Config, deps Deps) map[string]mailbuild.Step {
	if deps.Runner == nil {
		deps.Runner = process.ExecRunner{}
	}
	if deps.NewSender == nil {
		runner := deps.Runner
		deps.NewSender = func(t *mail.Transport) (mail.Sender, error) {
			return mail.NewSender(t, runner)
		}
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	live := &liveServer{}
	return map[string]mailbuild.Step{
		mailbuild.StepClean:    mailbuild.StepFunc(clean),
		mailbuild.StepSass:     &sassStep{cfg: cfg.Sass, runner: deps.Runner},
		mailbuild.StepViews:    &viewsStep{cfg: cfg.Views},
		mailbuild.StepCopy:     &copyStep{patterns: cfg.Images.Patterns},
		mailbuild.StepImagemin: &imageminStep{cfg: cfg.Images},
		mailbuild.StepRender:   &renderStep{cfg: cfg.Render, now: deps.Now},
		mailbuild.StepInline:   mailbuild.StepFunc(inline),
		mailbuild.StepHTML:     &htmlbuildStep{styles: cfg.Styles},
		mailbuild.StepConnect:  &connectStep{cfg: cfg.Server, opener: deps.Opener, live: live},
		mailbuild.StepWatch:    &watchStep{cfg: cfg.Watch, live: live},
		mailbuild.StepMail:     &mailStep{cfg: cfg.Mail, newSender: deps.NewSender},
	}
}

// liveServer shares the live-reload server between connect and watch.
type liveServer struct {
	mu  sync.Mutex
	srv *devserver.Server
}

func (l *liveServer) set(s *devserver.Server) {
	l.mu.Lock()
	l.srv = s
	l.mu.Unlock()
}

func (l *liveServer) reload() {
	l.mu.Lock()
	srv := l.srv
	l.mu.Unlock()
	if srv != nil {
		srv.Reload()
	}
}

// paths resolves several registered directories at once.
func paths(env *mailbuild.Env, names ...string) ([]string, error) {
	out := make([]string, len(names))
	for i, n := range names {
		p, err := env.Path(n)
		if err != nil {
			return nil, err
		}
		out[i] = p
	}
	return out, nil
}

// isDir reports whether dir exists. Missing source directories are not errors:
// a project without images simply has nothing to copy.
func isDir(dir string) (bool, error) {
	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if !info.IsDir() {
		return false, fmt.Errorf("%s is not a directory", dir)
	}
	return true, nil
}

// topLevel lists regular files directly inside dir with extension ext.
func topLevel(dir, ext string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if e.Type().IsRegular() && filepath.Ext(e.Name()) == ext {
			out = append(out, e.Name())
		}
	}
	return out, nil
}
