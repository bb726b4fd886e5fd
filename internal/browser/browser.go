// Package browser opens the development preview in a browser window driven
// over the DevTools protocol.
package browser

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// ErrBrowserLaunch indicates the browser could not be started or reached.
var ErrBrowserLaunch = errors.New("failed to launch browser")

// Opener shows a URL to the user.
type Opener interface {
	Open(ctx context.Context, url string) error
}

// RodOpener launches a visible Chrome on first use and opens one tab per URL.
// Close kills the browser it launched.
type RodOpener struct {
	mu       sync.Mutex
	launcher *launcher.Launcher
	browser  *rod.Browser
}

// NewRodOpener creates an opener. No browser starts until Open is called.
func NewRodOpener() *RodOpener {
	return &RodOpener{}
}

// newLauncher configures a windowed launcher from the environment.
func newLauncher() *launcher.Launcher {
	l := launcher.New().Headless(false)

	// Use pre-installed browser if specified (Docker/containerized environments)
	if bin := os.Getenv("ROD_BROWSER_BIN"); bin != "" {
		l = l.Bin(bin)
	}

	// NoSandbox required for CI and containerized environments
	if os.Getenv("CI") == "true" || os.Getenv("ROD_BROWSER_BIN") != "" {
		l = l.NoSandbox(true)
	}
	return l
}

// ensureBrowser lazily launches and connects to the browser.
func (o *RodOpener) ensureBrowser() error {
	if o.browser != nil {
		return nil
	}

	l := newLauncher()
	u, err := l.Launch()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBrowserLaunch, err)
	}

	b := rod.New().ControlURL(u)
	if err := b.Connect(); err != nil {
		l.Kill()
		return fmt.Errorf("%w: %v", ErrBrowserLaunch, err)
	}
	o.launcher, o.browser = l, b
	return nil
}

// Open opens url in a new tab.
func (o *RodOpener) Open(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.ensureBrowser(); err != nil {
		return err
	}
	if _, err := o.browser.Context(ctx).Page(proto.TargetCreateTarget{URL: url}); err != nil {
		return fmt.Errorf("opening %s: %w", url, err)
	}
	return nil
}

// Close shuts the browser down. Safe to call when nothing was launched.
func (o *RodOpener) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.browser == nil {
		return nil
	}
	err := o.browser.Close()
	o.launcher.Kill()
	o.browser, o.launcher = nil, nil
	return err
}

// SystemOpener hands the URL to an installed Chrome-compatible browser
// without controlling it.
type SystemOpener struct{}

// Open implements Opener.
func (SystemOpener) Open(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, ok := launcher.LookPath(); !ok {
		return fmt.Errorf("%w: no browser found", ErrBrowserLaunch)
	}
	launcher.Open(url)
	return nil
}
