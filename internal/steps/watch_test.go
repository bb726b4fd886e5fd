package steps

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	mailbuild "github.com/alnah/go-mailbuild"
	"github.com/alnah/go-mailbuild/internal/config"
	"github.com/alnah/go-mailbuild/internal/devserver"
)

// recorder is a stand-in adapter that notes every invocation.
type recorder struct {
	mu    sync.Mutex
	calls []string
	hit   chan string
}

func newRecorder() *recorder {
	return &recorder{hit: make(chan string, 64)}
}

func (r *recorder) step(name string) mailbuild.Step {
	return mailbuild.StepFunc(func(_ context.Context, _ *mailbuild.Env, target string) error {
		ref := mailbuild.StepRef{Name: name, Target: target}.String()
		r.mu.Lock()
		r.calls = append(r.calls, ref)
		r.mu.Unlock()
		r.hit <- ref
		return nil
	})
}

// startWatch runs the watch step under a Runner until the returned cancel is called.
func startWatch(t *testing.T, env *mailbuild.Env, live *liveServer, rec *recorder) (cancel func()) {
	t.Helper()

	reg := mailbuild.NewRegistry()
	if err := reg.Define(mailbuild.Pipeline{Name: "w", Items: []mailbuild.Item{mailbuild.Task(mailbuild.StepWatch)}}); err != nil {
		t.Fatalf("setup: %v", err)
	}
	runner, err := mailbuild.NewRunner(env.Paths, reg,
		mailbuild.WithStep(mailbuild.StepWatch, &watchStep{cfg: config.WatchConfig{Debounce: "20ms"}, live: live}),
		mailbuild.WithStep(mailbuild.StepSass, rec.step(mailbuild.StepSass)),
		mailbuild.WithStep(mailbuild.StepViews, rec.step(mailbuild.StepViews)),
		mailbuild.WithStep(mailbuild.StepRender, rec.step(mailbuild.StepRender)),
		mailbuild.WithStep(mailbuild.StepHTML, rec.step(mailbuild.StepHTML)),
	)
	if err != nil {
		t.Fatalf("setup: %v", err)
	}

	ctx, stop := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		if _, err := runner.Run(ctx, mailbuild.RunRequest{Pipeline: "w"}); err != nil {
			t.Errorf("Run() unexpected error: %v", err)
		}
	}()
	return func() {
		stop()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Error("watch did not stop after cancel")
		}
	}
}

// touchUntil rewrites path until ok reports success. The watcher starts
// asynchronously, so early writes may go unnoticed.
func touchUntil(t *testing.T, path string, ok func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if err := os.WriteFile(path, []byte(time.Now().String()), 0o600); err != nil {
			t.Fatalf("writing %s: %v", path, err)
		}
		if ok() {
			return
		}
	}
	t.Fatalf("no reaction to changes in %s", path)
}

func waitFor(ch <-chan string, want string, d time.Duration) bool {
	timeout := time.After(d)
	for {
		select {
		case got := <-ch:
			if got == want {
				return true
			}
		case <-timeout:
			return false
		}
	}
}

// ---------------------------------------------------------------------------
// TestWatchStep - Source Changes Trigger Rebuilds
// ---------------------------------------------------------------------------

func TestWatchStep_Rebuilds(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		file     string
		wantStep string
	}{
		{"data", "data/site.json", "render:dev"},
		{"templates", "templates/welcome.html", "render:dev"},
		{"partials", "partials/social/icons.html", "render:dev"},
		{"sass", "sass/basic.scss", "sass"},
		{"views", "views/welcome.md", "views"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			env, root := newEnv(t)
			writeFiles(t, root, map[string]string{tt.file: "initial"})
			rec := newRecorder()
			stop := startWatch(t, env, &liveServer{}, rec)
			defer stop()

			touchUntil(t, filepath.Join(root, filepath.FromSlash(tt.file)), func() bool {
				return waitFor(rec.hit, tt.wantStep, 200*time.Millisecond)
			})
			if !waitFor(rec.hit, mailbuild.StepHTML, 2*time.Second) {
				t.Errorf("%s change did not run htmlbuild after %s", tt.name, tt.wantStep)
			}
		})
	}
}

func TestWatchStep_ReloadsBrowsers(t *testing.T) {
	t.Parallel()

	env, root := newEnv(t)
	writeFiles(t, root, map[string]string{"dist/welcome.html": "v1"})

	srv := devserver.New(devserver.Config{Root: filepath.Join(root, "dist"), LiveReload: true})
	events, unsubscribe := srv.Hub().Subscribe()
	defer unsubscribe()
	live := &liveServer{}
	live.set(srv)

	stop := startWatch(t, env, live, newRecorder())
	defer stop()

	touchUntil(t, filepath.Join(root, "dist", "welcome.html"), func() bool {
		return waitFor(events, devserver.EventReload, 200*time.Millisecond)
	})
}
