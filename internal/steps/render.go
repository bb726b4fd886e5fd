package steps

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	mailbuild "github.com/alnah/go-mailbuild"
	"github.com/alnah/go-mailbuild/internal/config"
	"github.com/alnah/go-mailbuild/internal/fileutil"
	"github.com/alnah/go-mailbuild/internal/pipeline"
)

// Render targets.
const (
	targetDev  = "dev"
	targetDist = "dist"
)

// renderStep executes <templates>/**/*.html with the project data and partials.
// The dev target writes to <dist>, the dist target to <tmp> for inlining.
type renderStep struct {
	cfg config.RenderConfig
	now func() time.Time
}

func (s *renderStep) Targets() []string { return []string{targetDev, targetDist} }

func (s *renderStep) Run(ctx context.Context, env *mailbuild.Env, target string) error {
	outName := mailbuild.PathTmp
	if target == targetDev {
		outName = mailbuild.PathDist
	}
	dirs, err := paths(env, mailbuild.PathTemplates, mailbuild.PathData, mailbuild.PathPartials, outName)
	if err != nil {
		return err
	}
	tmplDir, dataDir, partialsDir, outDir := dirs[0], dirs[1], dirs[2], dirs[3]

	data, err := pipeline.LoadData(dataDir)
	if err != nil {
		return err
	}
	partials, err := pipeline.LoadPartials(partialsDir)
	if err != nil {
		return err
	}
	r, err := pipeline.NewRenderer(pipeline.RendererConfig{
		Data:       data,
		Partials:   partials,
		DateFormat: s.cfg.DateFormat,
		Now:        s.now(),
		Dev:        target == targetDev,
	})
	if err != nil {
		return err
	}

	files, err := fileutil.Glob(tmplDir, "**/*.html")
	if err != nil {
		return err
	}
	for _, rel := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		native := filepath.FromSlash(rel)
		src, err := os.ReadFile(filepath.Join(tmplDir, native)) // #nosec G304 -- listed from the templates directory
		if err != nil {
			return fmt.Errorf("reading template: %w", err)
		}
		html, err := r.Render(rel, string(src))
		if err != nil {
			return err
		}
		if err := fileutil.WriteFile(filepath.Join(outDir, native), []byte(html)); err != nil {
			return err
		}
	}
	env.Logger.Debug("rendered templates", slog.Int("count", len(files)), slog.String("target", target))
	return nil
}
