package steps

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"

	mailbuild "github.com/alnah/go-mailbuild"
	"github.com/alnah/go-mailbuild/internal/config"
	"github.com/alnah/go-mailbuild/internal/fileutil"
	"github.com/alnah/go-mailbuild/internal/hints"
	"github.com/alnah/go-mailbuild/internal/process"
)

// sassStep compiles <sass> into <css> with the external Sass compiler.
type sassStep struct {
	cfg    config.SassConfig
	runner process.CommandRunner
}

func (s *sassStep) Run(ctx context.Context, env *mailbuild.Env, _ string) error {
	dirs, err := paths(env, mailbuild.PathSass, mailbuild.PathCSS)
	if err != nil {
		return err
	}
	src, dst := dirs[0], dirs[1]

	// Partials (_name.scss) compile only through the files importing them.
	files, err := fileutil.Glob(src, "**/[!_]*.scss", "**/[!_]*.sass")
	if err != nil {
		return err
	}
	if len(files) == 0 {
		env.Logger.Debug("no stylesheets to compile", slog.String("dir", src))
		return nil
	}

	cmd := process.Command{
		Name: s.cfg.Command,
		Args: append([]string{src + ":" + dst, "--no-source-map", "--style=" + s.cfg.Style}, s.cfg.Args...),
		Dir:  env.Paths.Root(),
	}
	env.Logger.Debug("compiling styles", slog.String("cmd", cmd.String()))

	_, stderr, err := s.runner.Run(ctx, cmd)
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return fmt.Errorf("%w%s", err, hints.ForSassNotFound())
		}
		if msg := strings.TrimSpace(stderr); msg != "" {
			return fmt.Errorf("%w: %s", err, msg)
		}
		return err
	}
	return nil
}
