package steps

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	mailbuild "github.com/alnah/go-mailbuild"
	"github.com/alnah/go-mailbuild/internal/fileutil"
)

// clean removes the dist and tmp directories. Directories that are the
// project root or lie outside it are refused.
func clean(ctx context.Context, env *mailbuild.Env, _ string) error {
	dirs, err := paths(env, mailbuild.PathDist, mailbuild.PathTmp)
	if err != nil {
		return err
	}
	for _, dir := range dirs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fileutil.Within(env.Paths.Root(), dir); err != nil {
			return fmt.Errorf("refusing to clean: %w", err)
		}
		if err := os.RemoveAll(dir); err != nil {
			return fmt.Errorf("cleaning %s: %w", dir, err)
		}
		env.Logger.Debug("cleaned", slog.String("dir", dir))
	}
	return nil
}
