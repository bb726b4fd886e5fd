// Package watch runs rebuild actions when project files change.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/alnah/go-mailbuild/internal/fileutil"
)

// DefaultDebounce is the quiet period after the last change before actions run.
const DefaultDebounce = 200 * time.Millisecond

// ErrNoRules indicates a watcher created without rules.
var ErrNoRules = errors.New("watch: no rules")

// Action handles a batch of changed paths, relative to the rule's directory.
type Action func(ctx context.Context, changed []string) error

// Rule binds file patterns under a directory to an action.
type Rule struct {
	Name     string
	Dir      string   // watched recursively
	Patterns []string // slash-separated globs relative to Dir
	Action   Action
}

type rule struct {
	Rule
	dir     string
	matcher *fileutil.Matcher
}

// Watcher dispatches debounced file changes to rules.
type Watcher struct {
	rules    []rule
	debounce time.Duration
	logger   *slog.Logger
	fsw      *fsnotify.Watcher
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the quiet period. Non-positive values keep the default.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(w *Watcher) {
		if l != nil {
			w.logger = l
		}
	}
}

// New compiles rules and starts watching their directories. Directories that
// do not exist yet are skipped. Run must be called to process events and
// release the watcher.
func New(rules []Rule, opts ...Option) (*Watcher, error) {
	if len(rules) == 0 {
		return nil, ErrNoRules
	}
	w := &Watcher{
		debounce: DefaultDebounce,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(w)
	}

	for _, r := range rules {
		m, err := fileutil.NewMatcher(r.Patterns...)
		if err != nil {
			return nil, fmt.Errorf("watch rule %s: %w", r.Name, err)
		}
		dir, err := filepath.Abs(r.Dir)
		if err != nil {
			return nil, fmt.Errorf("watch rule %s: %w", r.Name, err)
		}
		w.rules = append(w.rules, rule{Rule: r, dir: dir, matcher: m})
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating file watcher: %w", err)
	}
	w.fsw = fsw

	seen := make(map[string]bool)
	for _, r := range w.rules {
		if seen[r.dir] {
			continue
		}
		seen[r.dir] = true
		if err := w.addTree(r.dir); err != nil {
			_ = fsw.Close()
			return nil, err
		}
	}
	return w, nil
}

// addTree watches dir and every directory below it.
func (w *Watcher) addTree(dir string) error {
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				w.logger.Debug("watch directory missing", slog.String("dir", p))
				return filepath.SkipDir
			}
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if err := w.fsw.Add(p); err != nil {
			return fmt.Errorf("watching %s: %w", p, err)
		}
		return nil
	})
	return err
}

// Run processes changes until ctx is done. A failing action is logged and
// watching continues. Returns nil on cancellation.
func (w *Watcher) Run(ctx context.Context) error {
	defer func() { _ = w.fsw.Close() }()

	pending := make(map[int]map[string]bool)
	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if w.record(ev, pending) {
				timer.Reset(w.debounce)
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", slog.Any("error", err))

		case <-timer.C:
			w.dispatch(ctx, pending)
			pending = make(map[int]map[string]bool)
		}
	}
}

// record files ev under every matching rule and reports whether anything matched.
func (w *Watcher) record(ev fsnotify.Event, pending map[int]map[string]bool) bool {
	if ev.Op == fsnotify.Chmod {
		return false
	}
	if ev.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if err := w.addTree(ev.Name); err != nil {
				w.logger.Warn("watch new directory", slog.String("dir", ev.Name), slog.Any("error", err))
			}
		}
	}

	matched := false
	for i, r := range w.rules {
		rel, err := filepath.Rel(r.dir, ev.Name)
		if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
			continue
		}
		rel = filepath.ToSlash(rel)
		if !r.matcher.Match(rel) {
			continue
		}
		if pending[i] == nil {
			pending[i] = make(map[string]bool)
		}
		pending[i][rel] = true
		matched = true
	}
	return matched
}

// dispatch runs the actions of rules with pending changes, in rule order.
func (w *Watcher) dispatch(ctx context.Context, pending map[int]map[string]bool) {
	for i, r := range w.rules {
		files := pending[i]
		if len(files) == 0 {
			continue
		}
		changed := make([]string, 0, len(files))
		for f := range files {
			changed = append(changed, f)
		}
		sort.Strings(changed)

		w.logger.Info("files changed", slog.String("rule", r.Name), slog.Any("files", changed))
		if err := r.Action(ctx, changed); err != nil {
			if ctx.Err() != nil {
				return
			}
			w.logger.Error("watch task failed", slog.String("rule", r.Name), slog.Any("error", err))
		}
	}
}
