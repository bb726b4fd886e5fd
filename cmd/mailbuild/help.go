package main

import (
	"fmt"
	"io"
)

// printUsage prints the main usage message.
func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: mailbuild [command] [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  serve        Build for development, serve with live reload and watch (default)")
	fmt.Fprintln(w, "  serve dist   Build the distributable templates and serve them")
	fmt.Fprintln(w, "  build        Build distributable templates with inlined CSS")
	fmt.Fprintln(w, "  send         Build and mail a template (requires --template)")
	fmt.Fprintln(w, "  version      Show version information")
	fmt.Fprintln(w, "  help         Show this help")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fmt.Fprintln(w, "  -t, --template <name>   Template in dist to mail, without .html")
	fmt.Fprintln(w, "  -c, --config <name>     Config file name or path (default: <root>/mailbuild.yaml)")
	fmt.Fprintln(w, "      --root <dir>        Project root (default: current directory)")
	fmt.Fprintln(w, "  -w, --workers <n>       Concurrent steps per group (0 = auto)")
	fmt.Fprintln(w, "  -v, --verbose           Debug logging and a step timing table")
	fmt.Fprintln(w, "  -q, --quiet             Only show errors")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Environment:")
	fmt.Fprintln(w, "  MAILBUILD_CONFIG, MAILBUILD_ROOT, MAILBUILD_TEMPLATE, MAILBUILD_WORKERS,")
	fmt.Fprintln(w, "  MAILBUILD_PORT (overrides server.port), RESEND_API_KEY, ROD_BROWSER_BIN")
}
