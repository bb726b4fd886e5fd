package steps

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	mailbuild "github.com/alnah/go-mailbuild"
	"github.com/alnah/go-mailbuild/internal/browser"
	"github.com/alnah/go-mailbuild/internal/config"
	"github.com/alnah/go-mailbuild/internal/devserver"
	"github.com/alnah/go-mailbuild/internal/hints"
)

// targetLiveReload is the background connect target; connect:dist reuses targetDist.
const targetLiveReload = "livereload"

// connectStep serves <dist> over HTTP.
//
// The livereload target starts the server in the background for the rest of
// the run and lets the watch step trigger reloads. The dist target serves
// without live reload and blocks until ctx is canceled, which ends the step
// successfully.
type connectStep struct {
	cfg    config.ServerConfig
	opener browser.Opener
	live   *liveServer
}

func (s *connectStep) Targets() []string { return []string{targetLiveReload, targetDist} }

func (s *connectStep) Run(ctx context.Context, env *mailbuild.Env, target string) error {
	dirs, err := paths(env, mailbuild.PathDist, mailbuild.PathCSS)
	if err != nil {
		return err
	}

	liveReload := target == targetLiveReload && s.cfg.LiveReloadEnabled()
	srv := devserver.New(devserver.Config{
		Root:       dirs[0],
		CSSDir:     dirs[1],
		Addr:       s.cfg.Addr(),
		LiveReload: liveReload,
		Logger:     env.Logger.With(slog.String("component", "devserver")),
	})
	if err := srv.Listen(); err != nil {
		if errors.Is(err, devserver.ErrListen) {
			return fmt.Errorf("%w%s", err, hints.ForPortInUse())
		}
		return err
	}
	env.Logger.Info("serving", slog.String("url", srv.URL()), slog.Bool("livereload", liveReload))

	if target == targetLiveReload {
		s.live.set(srv)
		env.Go(func(runCtx context.Context) {
			defer s.live.set(nil)
			if err := srv.Serve(runCtx); err != nil {
				env.Logger.Error("dev server stopped", slog.String("error", err.Error()))
			}
		})
		s.open(ctx, env, srv.URL())
		return nil
	}

	s.open(ctx, env, srv.URL())
	return srv.Serve(ctx)
}

// open shows url in the browser. Failing to open is not a build failure.
func (s *connectStep) open(ctx context.Context, env *mailbuild.Env, url string) {
	if s.opener == nil || !s.cfg.OpenBrowser() {
		return
	}
	if err := s.opener.Open(ctx, url+"/"); err != nil {
		env.Logger.Warn("could not open browser", slog.String("error", err.Error()+hints.ForBrowserOpen()))
	}
}
