package steps

import (
	"context"
	"log/slog"

	mailbuild "github.com/alnah/go-mailbuild"
	"github.com/alnah/go-mailbuild/internal/config"
	"github.com/alnah/go-mailbuild/internal/watch"
)

// watchStep rebuilds on source changes and reloads connected browsers when
// the output changes. It blocks until ctx is canceled.
type watchStep struct {
	cfg  config.WatchConfig
	live *liveServer
}

func (s *watchStep) Run(ctx context.Context, env *mailbuild.Env, _ string) error {
	dirs, err := paths(env,
		mailbuild.PathSass, mailbuild.PathTemplates, mailbuild.PathPartials,
		mailbuild.PathData, mailbuild.PathViews, mailbuild.PathDist,
	)
	if err != nil {
		return err
	}
	sassDir, tmplDir, partialsDir, dataDir, viewsDir, distDir := dirs[0], dirs[1], dirs[2], dirs[3], dirs[4], dirs[5]

	rebuild := func(refs ...string) watch.Action {
		steps := make([]mailbuild.StepRef, len(refs))
		for i, r := range refs {
			steps[i] = mailbuild.ParseStepRef(r)
		}
		return func(ctx context.Context, changed []string) error {
			env.Logger.Info("rebuilding", slog.Any("changed", changed))
			return env.RunSteps(ctx, steps...)
		}
	}

	rules := []watch.Rule{
		{Name: "sass", Dir: sassDir, Patterns: []string{"**/*.scss", "**/*.sass"}, Action: rebuild(mailbuild.StepSass, mailbuild.StepHTML)},
		{Name: "templates", Dir: tmplDir, Patterns: []string{"*.html"}, Action: rebuild("render:dev", mailbuild.StepHTML)},
		{Name: "partials", Dir: partialsDir, Patterns: []string{"**/*.html"}, Action: rebuild("render:dev", mailbuild.StepHTML)},
		{Name: "data", Dir: dataDir, Patterns: []string{"*.json", "*.yaml", "*.yml"}, Action: rebuild("render:dev", mailbuild.StepHTML)},
		{Name: "views", Dir: viewsDir, Patterns: []string{"**/*.md", "layouts/*.html"}, Action: rebuild(mailbuild.StepViews, mailbuild.StepHTML)},
		{Name: "livereload", Dir: distDir, Patterns: []string{"*.html", "img/*"}, Action: func(context.Context, []string) error {
			s.live.reload()
			return nil
		}},
	}

	w, err := watch.New(rules,
		watch.WithDebounce(s.cfg.DebounceDuration()),
		watch.WithLogger(env.Logger.With(slog.String("component", "watch"))),
	)
	if err != nil {
		return err
	}
	env.Logger.Info("watching for changes")
	return w.Run(ctx)
}
