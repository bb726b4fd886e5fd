package main

import (
	"io"

	flag "github.com/spf13/pflag"
)

// cliFlags holds the flags shared by every pipeline command.
type cliFlags struct {
	config   string
	root     string
	template string
	workers  int
	quiet    bool
	verbose  bool
	help     bool
}

// parseFlags parses args, where args[0] is the program name.
// Flags may appear anywhere; the remaining words are returned in order.
func parseFlags(args []string) (*cliFlags, []string, error) {
	if len(args) > 0 {
		args = args[1:]
	}

	f := &cliFlags{}
	fs := flag.NewFlagSet("mailbuild", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVarP(&f.config, "config", "c", "", "config file name or path")
	fs.StringVar(&f.root, "root", "", "project root directory")
	fs.StringVarP(&f.template, "template", "t", "", "template to mail (send)")
	fs.IntVarP(&f.workers, "workers", "w", 0, "concurrent steps per group (0 = auto)")
	fs.BoolVarP(&f.quiet, "quiet", "q", false, "only show errors")
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "debug logging and step timings")
	fs.BoolVarP(&f.help, "help", "h", false, "show help")

	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	return f, fs.Args(), nil
}
