package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/aymerick/douceur/inliner"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/alnah/go-mailbuild/internal/fileutil"
)

// Sentinel errors for CSS inlining.
var (
	ErrStylesheetNotFound = errors.New("stylesheet not found")
	ErrInline             = errors.New("CSS inlining failed")
)

// StylesheetResolver returns the CSS for a local stylesheet href.
type StylesheetResolver func(href string) (string, error)

// DirResolver resolves hrefs against dirs in order; the first existing file wins.
// Hrefs escaping every dir are reported as not found.
func DirResolver(dirs ...string) StylesheetResolver {
	return func(href string) (string, error) {
		u, err := url.Parse(href)
		if err != nil {
			return "", fmt.Errorf("%w: %s", ErrStylesheetNotFound, href)
		}
		rel := filepath.FromSlash(strings.TrimPrefix(u.Path, "/"))
		for _, dir := range dirs {
			p := filepath.Join(dir, rel)
			if fileutil.Within(dir, p) != nil {
				continue
			}
			data, err := os.ReadFile(p) // #nosec G304 -- contained in a configured directory
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			if err != nil {
				return "", fmt.Errorf("reading stylesheet %s: %w", href, err)
			}
			return string(data), nil
		}
		return "", fmt.Errorf("%w: %s", ErrStylesheetNotFound, href)
	}
}

// InlineCSS moves the document's CSS into style attributes.
// Local <link rel="stylesheet"> elements are first replaced by <style> blocks
// with the resolved CSS; remote stylesheets are left as links. Rules that
// cannot be inlined, such as media queries, stay in a <style> block.
func InlineCSS(ctx context.Context, htmlContent string, stylesheets StylesheetResolver) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInline, err)
	}
	if err := embedStylesheets(doc, stylesheets); err != nil {
		return "", err
	}

	var buf strings.Builder
	if err := html.Render(&buf, doc); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInline, err)
	}

	out, err := inliner.Inline(buf.String())
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInline, err)
	}
	return out, nil
}

func embedStylesheets(n *html.Node, stylesheets StylesheetResolver) error {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		if href, ok := localStylesheet(c); ok {
			css, err := stylesheets(href)
			if err != nil {
				return err
			}
			style := &html.Node{
				Type:     html.ElementNode,
				DataAtom: atom.Style,
				Data:     "style",
				Attr:     []html.Attribute{{Key: "type", Val: "text/css"}},
			}
			style.AppendChild(&html.Node{Type: html.TextNode, Data: css})
			n.InsertBefore(style, c)
			n.RemoveChild(c)
		} else if err := embedStylesheets(c, stylesheets); err != nil {
			return err
		}
		c = next
	}
	return nil
}

// localStylesheet reports the href of a <link rel="stylesheet"> pointing at a local file.
func localStylesheet(n *html.Node) (string, bool) {
	if n.Type != html.ElementNode || n.DataAtom != atom.Link {
		return "", false
	}
	var rel, href string
	for _, a := range n.Attr {
		switch strings.ToLower(a.Key) {
		case "rel":
			rel = strings.ToLower(a.Val)
		case "href":
			href = a.Val
		}
	}
	if href == "" || fileutil.IsURL(href) || !strings.Contains(rel, "stylesheet") {
		return "", false
	}
	return href, true
}
