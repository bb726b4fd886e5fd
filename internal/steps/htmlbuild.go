package steps

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	mailbuild "github.com/alnah/go-mailbuild"
	"github.com/alnah/go-mailbuild/internal/pipeline"
)

// htmlbuildStep replaces build:style blocks in <dist>/*.html with the CSS of
// the named style group.
type htmlbuildStep struct {
	styles map[string][]string // group -> stylesheet paths, may use <name>
}

func (s *htmlbuildStep) Run(ctx context.Context, env *mailbuild.Env, _ string) error {
	dist, err := env.Path(mailbuild.PathDist)
	if err != nil {
		return err
	}
	files, err := topLevel(dist, ".html")
	if err != nil {
		return err
	}

	source := s.source(env)
	for _, name := range files {
		page := filepath.Join(dist, name)
		data, err := os.ReadFile(page) // #nosec G304 -- listed from the dist directory
		if err != nil {
			return fmt.Errorf("reading %s: %w", name, err)
		}
		html := string(data)
		if len(pipeline.StyleGroups(html)) == 0 {
			continue
		}
		out, err := pipeline.BuildStyles(ctx, html, source)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		if err := os.WriteFile(page, []byte(out), 0o644); err != nil { // #nosec G306 -- build outputs are meant to be readable
			return fmt.Errorf("writing %s: %w", name, err)
		}
	}
	return nil
}

// source concatenates a group's stylesheets, reading each group once per run.
func (s *htmlbuildStep) source(env *mailbuild.Env) pipeline.StyleSource {
	cache := make(map[string]string)
	return func(group string) (string, error) {
		if css, ok := cache[group]; ok {
			return css, nil
		}
		sheets, ok := s.styles[group]
		if !ok {
			return "", pipeline.ErrUnknownStyleGroup
		}

		var b strings.Builder
		for _, sheet := range sheets {
			p, err := env.Paths.Expand(sheet)
			if err != nil {
				return "", err
			}
			if !filepath.IsAbs(p) {
				p = filepath.Join(env.Paths.Root(), filepath.FromSlash(p))
			}
			data, err := os.ReadFile(p) // #nosec G304 -- stylesheet listed in the project config
			if err != nil {
				return "", fmt.Errorf("reading stylesheet: %w", err)
			}
			b.Write(data)
			if len(data) > 0 && data[len(data)-1] != '\n' {
				b.WriteByte('\n')
			}
		}
		cache[group] = b.String()
		return cache[group], nil
	}
}
