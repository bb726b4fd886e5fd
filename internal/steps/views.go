package steps

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	mailbuild "github.com/alnah/go-mailbuild"
	"github.com/alnah/go-mailbuild/internal/assets"
	"github.com/alnah/go-mailbuild/internal/config"
	"github.com/alnah/go-mailbuild/internal/fileutil"
	"github.com/alnah/go-mailbuild/internal/pipeline"
)

// layoutsDir holds project layouts, relative to <views>.
const layoutsDir = "layouts"

// viewsStep compiles <views>/*.md into <templates>/*.html.
// Sub-directories of <views> are not compiled.
type viewsStep struct {
	cfg config.ViewsConfig
}

func (s *viewsStep) Run(ctx context.Context, env *mailbuild.Env, _ string) error {
	dirs, err := paths(env, mailbuild.PathViews, mailbuild.PathTemplates)
	if err != nil {
		return err
	}
	src, dst := dirs[0], dirs[1]

	files, err := topLevel(src, ".md")
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return nil
	}

	// Layouts are re-read every run so edits show up while watching.
	layouts, err := assets.NewAssetResolver(filepath.Join(src, layoutsDir))
	if err != nil {
		return err
	}
	compiler := pipeline.NewViewCompiler(layouts,
		pipeline.WithHighlightStyle(s.cfg.Highlight),
		pipeline.WithDefaultLayout(s.cfg.Layout),
	)

	for _, name := range files {
		data, err := os.ReadFile(filepath.Join(src, name)) // #nosec G304 -- listed from the views directory
		if err != nil {
			return fmt.Errorf("reading view: %w", err)
		}
		html, err := compiler.Compile(ctx, data)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		out := filepath.Join(dst, fileutil.ReplaceExt(name, ".html"))
		if err := fileutil.WriteFile(out, []byte(html)); err != nil {
			return err
		}
		env.Logger.Debug("compiled view", slog.String("view", name))
	}
	return nil
}
