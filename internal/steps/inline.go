package steps

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	mailbuild "github.com/alnah/go-mailbuild"
	"github.com/alnah/go-mailbuild/internal/fileutil"
	"github.com/alnah/go-mailbuild/internal/pipeline"
)

// inline moves the CSS of <tmp>/**/*.html into style attributes and writes
// the result to <dist>. Linked stylesheets are looked up next to the page,
// then from the project root, then in <css>.
func inline(ctx context.Context, env *mailbuild.Env, _ string) error {
	dirs, err := paths(env, mailbuild.PathTmp, mailbuild.PathDist, mailbuild.PathCSS)
	if err != nil {
		return err
	}
	src, dst, css := dirs[0], dirs[1], dirs[2]

	files, err := fileutil.Glob(src, "**/*.html")
	if err != nil {
		return err
	}
	for _, rel := range files {
		native := filepath.FromSlash(rel)
		page := filepath.Join(src, native)
		data, err := os.ReadFile(page) // #nosec G304 -- listed from the tmp directory
		if err != nil {
			return fmt.Errorf("reading %s: %w", rel, err)
		}

		resolver := pipeline.DirResolver(filepath.Dir(page), env.Paths.Root(), css)
		out, err := pipeline.InlineCSS(ctx, string(data), resolver)
		if err != nil {
			return fmt.Errorf("%s: %w", rel, err)
		}
		if err := fileutil.WriteFile(filepath.Join(dst, native), []byte(out)); err != nil {
			return err
		}
	}
	return nil
}
