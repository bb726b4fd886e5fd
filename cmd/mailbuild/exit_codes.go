package main

import (
	"context"
	"errors"
	"os"

	mailbuild "github.com/alnah/go-mailbuild"
	"github.com/alnah/go-mailbuild/internal/config"
)

// Exit codes for the mailbuild CLI.
// Follows Unix conventions: 0=success, 1=general, 2=usage, 130=SIGINT.
const (
	ExitSuccess     = 0   // Pipeline completed
	ExitGeneral     = 1   // General/unexpected error
	ExitUsage       = 2   // Invalid command, flags, config or pipeline definition
	ExitIO          = 3   // Project root or config unreadable
	ExitStep        = 4   // A step failed and halted the run
	ExitInterrupted = 130 // Run stopped by a signal before it finished
)

// ErrUsage reports an invalid command line.
var ErrUsage = errors.New("invalid usage")

// exitCodeFor returns the appropriate exit code for an error.
// It uses errors.Is to check wrapped errors, so callers must use fmt.Errorf("%w", err).
func exitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}

	// A failed step may itself wrap I/O errors; it is reported as a step failure.
	if errors.Is(err, mailbuild.ErrPipelineFailed) ||
		errors.Is(err, mailbuild.ErrStepExecution) {
		return ExitStep
	}

	if errors.Is(err, context.Canceled) {
		return ExitInterrupted
	}

	// Usage/config/definition errors (exit 2)
	if errors.Is(err, ErrUsage) ||
		errors.Is(err, config.ErrConfigNotFound) ||
		errors.Is(err, config.ErrEmptyConfigName) ||
		errors.Is(err, config.ErrConfigParse) ||
		errors.Is(err, config.ErrFieldTooLong) ||
		errors.Is(err, config.ErrInvalidConfig) ||
		errors.Is(err, mailbuild.ErrUnknownPath) ||
		errors.Is(err, mailbuild.ErrDuplicatePath) ||
		errors.Is(err, mailbuild.ErrInvalidPath) ||
		errors.Is(err, mailbuild.ErrCyclicPath) ||
		errors.Is(err, mailbuild.ErrUnknownPipeline) ||
		errors.Is(err, mailbuild.ErrDuplicatePipeline) ||
		errors.Is(err, mailbuild.ErrInvalidPipeline) ||
		errors.Is(err, mailbuild.ErrCyclicPipeline) ||
		errors.Is(err, mailbuild.ErrUnknownStep) ||
		errors.Is(err, mailbuild.ErrMissingOption) {
		return ExitUsage
	}

	// I/O errors (exit 3)
	if errors.Is(err, os.ErrNotExist) ||
		errors.Is(err, os.ErrPermission) {
		return ExitIO
	}

	return ExitGeneral
}
