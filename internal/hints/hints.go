// Package hints provides actionable error hints for common failure scenarios.
// Hints are formatted consistently as "\n  hint: <text>" for appending to error messages.
package hints

import (
	"os"
	"strings"

	"github.com/alnah/go-mailbuild/internal/fileutil"
)

// IsInContainer detects if running inside a Docker container or similar.
var IsInContainer = func() bool {
	return fileutil.FileExists("/.dockerenv")
}

// ForBrowserOpen returns hints for failures to open the preview browser.
func ForBrowserOpen() string {
	var hints []string

	inCI := os.Getenv("CI") != "" ||
		os.Getenv("GITHUB_ACTIONS") != "" ||
		os.Getenv("GITLAB_CI") != "" ||
		os.Getenv("JENKINS_URL") != ""

	if inCI || IsInContainer() {
		hints = append(hints, "set server.open: false in mailbuild.yaml for headless environments")
	}
	if os.Getenv("ROD_BROWSER_BIN") == "" {
		hints = append(hints, "set ROD_BROWSER_BIN to use a custom browser")
	}

	return formatHints(hints)
}

// ForConfigNotFound returns hints for config file not found errors.
// Suggests --config flag and creating a config in ~/.config/mailbuild/.
func ForConfigNotFound(searchedPaths []string) string {
	hint := "use --config /path/to/file.yaml"

	for _, p := range searchedPaths {
		if strings.Contains(p, ".config/mailbuild") {
			hint += " or create " + p
			break
		}
	}

	return format(hint)
}

// ForMissingTemplate lists the templates that could be sent instead.
func ForMissingTemplate(available []string) string {
	if len(available) == 0 {
		return format("run the build pipeline first; no templates in dist")
	}
	return format("available: " + strings.Join(available, ", "))
}

// ForSassNotFound returns a hint when the Sass compiler cannot be started.
func ForSassNotFound() string {
	return format("install Dart Sass (npm install -g sass) or set sass.command")
}

// ForTransport returns a hint for a missing or unreadable mail transport file.
func ForTransport(path string) string {
	return format("create " + path + ` with {"service": "smtp"|"resend"|"sendmail", ...}`)
}

// ForPortInUse returns a hint when the dev server cannot bind.
func ForPortInUse() string {
	return format("set server.port or MAILBUILD_PORT to a free port")
}

// format creates a single hint string with consistent formatting.
func format(hint string) string {
	if hint == "" {
		return ""
	}
	return "\n  hint: " + hint
}

// formatHints joins multiple hints with consistent formatting.
func formatHints(hints []string) string {
	if len(hints) == 0 {
		return ""
	}
	return format(strings.Join(hints, "; "))
}
