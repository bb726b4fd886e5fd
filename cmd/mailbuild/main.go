package main

import (
	"fmt"
	"io"
	"os"

	"go.uber.org/automaxprocs/maxprocs"
)

// Version is set at build time via ldflags.
var Version = "dev"

func main() {
	// Flags are parsed twice: here only to know whether maxprocs may log.
	verbose := false
	if flags, _, err := parseFlags(os.Args); err == nil {
		verbose = flags.verbose
	}

	// Error ignored: maxprocs.Set only fails if GOMAXPROCS env is invalid,
	// in which case Go runtime defaults apply and the program continues safely.
	if verbose {
		_, _ = maxprocs.Set(maxprocs.Logger(func(format string, args ...interface{}) {
			fmt.Fprintf(os.Stderr, format+"\n", args...)
		}))
	} else {
		_, _ = maxprocs.Set(maxprocs.Logger(func(string, ...interface{}) {}))
	}

	env := DefaultEnv()
	code := runMain(os.Args, env)
	if c, ok := env.Opener.(io.Closer); ok {
		_ = c.Close()
	}
	os.Exit(code)
}
