package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"text/template"

	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"

	"github.com/alnah/go-mailbuild/internal/yamlutil"
)

// Sentinel errors for view compilation.
var (
	ErrHTMLConversion = errors.New("HTML conversion failed")
	ErrFrontMatter    = errors.New("invalid view front matter")
	ErrLayoutRender   = errors.New("layout rendering failed")
)

// Defaults applied to views without front matter.
const (
	DefaultLang           = "en"
	DefaultHighlightStyle = "github"
)

// LayoutLoader provides layout sources by name.
type LayoutLoader interface {
	LoadLayout(name string) (string, error)
}

// ViewMeta is the optional YAML front matter of a view.
type ViewMeta struct {
	Layout    string `yaml:"layout"`
	Title     string `yaml:"title"`
	Preheader string `yaml:"preheader"`
	Style     string `yaml:"style"`
	Lang      string `yaml:"lang"`
}

// layoutData is what a layout template sees.
type layoutData struct {
	ViewMeta
	Content string
}

// ViewCompiler turns Markdown views into HTML templates wrapped in a layout.
// Template actions in the view ({{ ... }}) are kept verbatim for the render step.
type ViewCompiler struct {
	md            goldmark.Markdown
	layouts       LayoutLoader
	defaultLayout string

	mu    sync.Mutex
	cache map[string]*template.Template
}

// ViewOption configures a ViewCompiler.
type ViewOption func(*viewConfig)

type viewConfig struct {
	highlight string
	layout    string
}

// WithHighlightStyle sets the chroma style used for fenced code blocks.
func WithHighlightStyle(style string) ViewOption {
	return func(c *viewConfig) {
		if style != "" {
			c.highlight = style
		}
	}
}

// WithDefaultLayout sets the layout used when a view names none.
func WithDefaultLayout(name string) ViewOption {
	return func(c *viewConfig) {
		if name != "" {
			c.layout = name
		}
	}
}

// NewViewCompiler creates a ViewCompiler loading layouts from layouts.
func NewViewCompiler(layouts LayoutLoader, opts ...ViewOption) *ViewCompiler {
	cfg := viewConfig{highlight: DefaultHighlightStyle, layout: "base"}
	for _, opt := range opts {
		opt(&cfg)
	}

	md := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			ButtonExtension(),
			highlighting.NewHighlighting(
				highlighting.WithStyle(cfg.highlight),
				highlighting.WithFormatOptions(
					chromahtml.WithClasses(false), // mail clients drop <style>, colors must be inline
				),
			),
		),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
		goldmark.WithRendererOptions(
			html.WithXHTML(),
			// Views are project sources; raw tables and conditional comments must pass through.
			html.WithUnsafe(),
		),
	)

	return &ViewCompiler{
		md:            md,
		layouts:       layouts,
		defaultLayout: cfg.layout,
		cache:         make(map[string]*template.Template),
	}
}

// Compile converts one view source into a complete HTML template.
// Goldmark doesn't support context, so conversion runs in a goroutine.
func (c *ViewCompiler) Compile(ctx context.Context, src []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	front, body, err := yamlutil.SplitFrontMatter(src)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrFrontMatter, err)
	}
	meta := ViewMeta{Layout: c.defaultLayout, Lang: DefaultLang}
	if len(bytes.TrimSpace(front)) > 0 {
		if err := yamlutil.UnmarshalStrict(front, &meta); err != nil {
			return "", fmt.Errorf("%w: %v", ErrFrontMatter, err)
		}
	}

	content, actions := preprocessView(string(body))

	type result struct {
		html string
		err  error
	}
	done := make(chan result, 1)

	go func() {
		var buf bytes.Buffer
		if err := c.md.Convert([]byte(content), &buf); err != nil {
			done <- result{err: fmt.Errorf("%w: %v", ErrHTMLConversion, err)}
			return
		}
		done <- result{html: buf.String()}
	}()

	var fragment string
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-done:
		if r.err != nil {
			return "", r.err
		}
		fragment = r.html
	}

	fragment = restoreActions(ConvertMarkPlaceholders(fragment), actions)
	return c.wrap(meta, fragment)
}

func (c *ViewCompiler) wrap(meta ViewMeta, fragment string) (string, error) {
	tmpl, err := c.layout(meta.Layout)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, layoutData{ViewMeta: meta, Content: fragment}); err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrLayoutRender, meta.Layout, err)
	}
	return buf.String(), nil
}

// layout returns the parsed layout, caching it for the compiler's lifetime.
func (c *ViewCompiler) layout(name string) (*template.Template, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if t, ok := c.cache[name]; ok {
		return t, nil
	}
	src, err := c.layouts.LoadLayout(name)
	if err != nil {
		return nil, err
	}
	t, err := template.New(name).Option("missingkey=error").Parse(src)
	if err != nil {
		return nil, fmt.Errorf("%w: parsing %s: %v", ErrLayoutRender, name, err)
	}
	c.cache[name] = t
	return t, nil
}
