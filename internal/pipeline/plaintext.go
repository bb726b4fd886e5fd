package pipeline

import (
	"html"
	"regexp"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
	xhtml "golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var (
	textPolicy     *bluemonday.Policy
	textPolicyOnce sync.Once

	horizontalSpace = regexp.MustCompile(`[ \t\x{00a0}]+`)
)

// blockElements end a line in the text alternative.
var blockElements = map[atom.Atom]bool{
	atom.P: true, atom.Div: true, atom.Br: true, atom.Tr: true, atom.Li: true,
	atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true,
	atom.Table: true, atom.Blockquote: true, atom.Pre: true, atom.Hr: true,
}

// PlainText derives the text/plain alternative of an HTML email.
// Links keep their target as "label (url)"; block elements end lines.
func PlainText(htmlContent string) string {
	textPolicyOnce.Do(func() {
		// StrictPolicy strips all markup and drops style, script and title content.
		textPolicy = bluemonday.StrictPolicy()
	})

	if doc, isFragment, err := parseHTML(htmlContent); err == nil {
		annotateText(doc)
		if rendered, err := renderHTML(doc, isFragment); err == nil {
			htmlContent = rendered
		}
	}

	text := html.UnescapeString(textPolicy.Sanitize(htmlContent))

	var lines []string
	blank := true
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(horizontalSpace.ReplaceAllString(line, " "))
		if line == "" {
			if !blank {
				lines = append(lines, "")
			}
			blank = true
			continue
		}
		lines = append(lines, line)
		blank = false
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// annotateText appends link targets and line breaks as text nodes so they
// survive tag stripping.
func annotateText(n *xhtml.Node) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		annotateText(c)
	}
	if n.Type != xhtml.ElementNode {
		return
	}

	if n.DataAtom == atom.A {
		href := attr(n, "href")
		label := strings.TrimSpace(textContent(n))
		if href != "" && !strings.HasPrefix(href, "#") && href != label {
			n.AppendChild(&xhtml.Node{Type: xhtml.TextNode, Data: " (" + strings.TrimPrefix(href, "mailto:") + ")"})
		}
	}
	if blockElements[n.DataAtom] && n.Parent != nil {
		n.Parent.InsertBefore(&xhtml.Node{Type: xhtml.TextNode, Data: "\n"}, n.NextSibling)
	}
}

func attr(n *xhtml.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func textContent(n *xhtml.Node) string {
	if n.Type == xhtml.TextNode {
		return n.Data
	}
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		b.WriteString(textContent(c))
	}
	return b.String()
}
