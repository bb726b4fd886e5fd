package pipeline

import (
	"regexp"
	"strconv"
	"strings"
)

// Highlight placeholders use Unicode Private Use Area characters.
// They pass through Goldmark unchanged and become <mark> tags afterwards.
const (
	MarkStartPlaceholder = "\uE000"
	MarkEndPlaceholder   = "\uE001"
)

// Precompiled regex patterns for performance.
var (
	crlfOrCR           = regexp.MustCompile(`\r\n?`)
	multipleBlankLines = regexp.MustCompile(`\n{3,}`)
	highlightPattern   = regexp.MustCompile(`==(.*?)==`)

	// templateAction matches a render-time action such as {{ .User.Name }}.
	templateAction = regexp.MustCompile(`(?s)\{\{.*?\}\}`)

	// actionToken matches the tokens left by protectActions.
	// ASCII tokens survive both HTML text escaping and URL escaping.
	actionToken = regexp.MustCompile(`mbtplaction(\d+)x`)
)

// preprocessView prepares a view body for Goldmark. Render-time template
// actions are swapped for tokens so that Goldmark cannot escape their quotes;
// the returned slice restores them with restoreActions.
func preprocessView(content string) (string, []string) {
	content = normalizeLineEndings(content)
	content, actions := protectActions(content)
	content = convertHighlights(content)
	content = compressBlankLines(content)
	return content, actions
}

// normalizeLineEndings converts \r\n and \r to \n.
func normalizeLineEndings(content string) string {
	return crlfOrCR.ReplaceAllString(content, "\n")
}

// compressBlankLines limits consecutive blank lines to 2 maximum.
func compressBlankLines(content string) string {
	return multipleBlankLines.ReplaceAllString(content, "\n\n")
}

// convertHighlights transforms ==text== to placeholder markers.
func convertHighlights(content string) string {
	return highlightPattern.ReplaceAllString(content, MarkStartPlaceholder+"$1"+MarkEndPlaceholder)
}

// ConvertMarkPlaceholders converts placeholder markers to <mark> tags.
func ConvertMarkPlaceholders(content string) string {
	return strings.ReplaceAll(
		strings.ReplaceAll(content, MarkStartPlaceholder, "<mark>"),
		MarkEndPlaceholder, "</mark>",
	)
}

func protectActions(content string) (string, []string) {
	var actions []string
	out := templateAction.ReplaceAllStringFunc(content, func(m string) string {
		actions = append(actions, m)
		return "mbtplaction" + strconv.Itoa(len(actions)-1) + "x"
	})
	return out, actions
}

func restoreActions(content string, actions []string) string {
	if len(actions) == 0 {
		return content
	}
	return actionToken.ReplaceAllStringFunc(content, func(m string) string {
		i, err := strconv.Atoi(m[len("mbtplaction") : len(m)-1])
		if err != nil || i >= len(actions) {
			return m
		}
		return actions[i]
	})
}
