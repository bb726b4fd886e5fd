package main

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	mailbuild "github.com/alnah/go-mailbuild"
)

// printReport outputs the outcome of a run.
// A failed run names the failing step and its message on stderr.
func printReport(env *Environment, result *mailbuild.RunResult, err error, flags *cliFlags) {
	if flags.verbose && result != nil && len(result.Steps) > 0 {
		printTimings(env, result)
	}

	var failed *mailbuild.PipelineFailedError
	switch {
	case errors.As(err, &failed):
		fmt.Fprintf(env.Stderr, "FAILED %s: %s\n", failed.Step, failed.Message)
	case err != nil:
		fmt.Fprintf(env.Stderr, "error: %v\n", err)
	case !flags.quiet && result != nil:
		fmt.Fprintf(env.Stdout, "Finished %s in %v\n", result.Pipeline, result.Duration.Round(time.Millisecond))
	}
}

// printTimings writes one row per recorded step, then the total.
func printTimings(env *Environment, result *mailbuild.RunResult) {
	tw := tabwriter.NewWriter(env.Stderr, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "STEP\tOUTCOME\tDURATION")
	for _, s := range result.Steps {
		fmt.Fprintf(tw, "%s\t%s\t%v\n", s.Step, s.Outcome, s.Duration.Round(time.Millisecond))
	}
	fmt.Fprintf(tw, "total\t\t%v\n", result.Duration.Round(time.Millisecond))
	_ = tw.Flush()
}
