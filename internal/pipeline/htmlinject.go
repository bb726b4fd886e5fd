package pipeline

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrUnknownStyleGroup indicates a build:style block naming an unconfigured group.
var ErrUnknownStyleGroup = errors.New("unknown style group")

// styleBlock matches
//
//	<!-- build:style NAME -->
//	...
//	<!-- /build -->
//
// Captures: 1=group name.
var styleBlock = regexp.MustCompile(`(?s)<!--\s*build:style\s+([A-Za-z0-9_-]+)\s*-->.*?<!--\s*/build\s*-->`)

// StyleSource returns the concatenated CSS of a style group.
// It returns ErrUnknownStyleGroup when the group is not configured.
type StyleSource func(group string) (string, error)

// StyleGroups lists the style groups referenced by build:style blocks, in order,
// without duplicates.
func StyleGroups(htmlContent string) []string {
	var groups []string
	seen := make(map[string]bool)
	for _, m := range styleBlock.FindAllStringSubmatch(htmlContent, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			groups = append(groups, m[1])
		}
	}
	return groups
}

// BuildStyles replaces every build:style block with a <style> element holding
// the group's CSS. Content between the markers is discarded.
// HTML without blocks is returned unchanged.
func BuildStyles(ctx context.Context, htmlContent string, styles StyleSource) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var firstErr error
	out := styleBlock.ReplaceAllStringFunc(htmlContent, func(block string) string {
		if firstErr != nil {
			return block
		}
		group := styleBlock.FindStringSubmatch(block)[1]
		css, err := styles(group)
		if err != nil {
			firstErr = fmt.Errorf("style group %q: %w", group, err)
			return block
		}
		return `<style type="text/css">` + sanitizeCSS(css) + `</style>`
	})
	if firstErr != nil {
		return "", firstErr
	}
	return out, nil
}

// sanitizeCSS escapes sequences that could break out of a <style> block.
func sanitizeCSS(css string) string {
	return strings.ReplaceAll(css, "</", `<\/`)
}

// InjectScript inserts a <script> element before </body>, or appends it
// when the document has no body.
func InjectScript(htmlContent, script string) string {
	if script == "" {
		return htmlContent
	}
	tag := "<script>" + strings.ReplaceAll(script, "</", `<\/`) + "</script>"

	lowerHTML := strings.ToLower(htmlContent)
	if idx := strings.LastIndex(lowerHTML, "</body>"); idx != -1 {
		return htmlContent[:idx] + tag + htmlContent[idx:]
	}
	return htmlContent + tag
}
