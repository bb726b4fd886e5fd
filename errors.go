package mailbuild

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for registry and runner operations.
var (
	ErrUnknownPath       = errors.New("unknown path")
	ErrDuplicatePath     = errors.New("duplicate path name")
	ErrInvalidPath       = errors.New("invalid path binding")
	ErrCyclicPath        = errors.New("cyclic path interpolation")
	ErrUnknownPipeline   = errors.New("unknown pipeline")
	ErrDuplicatePipeline = errors.New("duplicate pipeline name")
	ErrInvalidPipeline   = errors.New("invalid pipeline definition")
	ErrCyclicPipeline    = errors.New("cyclic pipeline")
	ErrUnknownStep       = errors.New("no adapter bound to step")
	ErrMissingOption     = errors.New("missing required option")
	ErrStepExecution     = errors.New("step failed")
	ErrPipelineFailed    = errors.New("pipeline failed")
)

// UnknownPathError reports a lookup of a path name that was never registered.
type UnknownPathError struct {
	Name string
}

func (e *UnknownPathError) Error() string {
	return fmt.Sprintf("%v: %q", ErrUnknownPath, e.Name)
}

func (e *UnknownPathError) Is(target error) bool { return target == ErrUnknownPath }

// UnknownPipelineError reports a pipeline name with no definition.
// Referrer is empty when the name was requested directly.
type UnknownPipelineError struct {
	Name     string
	Referrer string
}

func (e *UnknownPipelineError) Error() string {
	if e.Referrer == "" {
		return fmt.Sprintf("%v: %q", ErrUnknownPipeline, e.Name)
	}
	return fmt.Sprintf("%v: %q (referenced by %q)", ErrUnknownPipeline, e.Name, e.Referrer)
}

func (e *UnknownPipelineError) Is(target error) bool { return target == ErrUnknownPipeline }

// CyclicPipelineError reports a pipeline that reaches itself during expansion.
// Cycle lists the expansion stack, ending with the revisited name.
type CyclicPipelineError struct {
	Cycle []string
}

func (e *CyclicPipelineError) Error() string {
	return fmt.Sprintf("%v: %s", ErrCyclicPipeline, strings.Join(e.Cycle, " -> "))
}

func (e *CyclicPipelineError) Is(target error) bool { return target == ErrCyclicPipeline }

// MissingOptionError reports a run request lacking an option its pipeline requires.
type MissingOptionError struct {
	Pipeline string
	Option   string
}

func (e *MissingOptionError) Error() string {
	return fmt.Sprintf("%v: pipeline %q requires --%s", ErrMissingOption, e.Pipeline, e.Option)
}

func (e *MissingOptionError) Is(target error) bool { return target == ErrMissingOption }

// StepExecutionError is a runtime failure reported by a step adapter.
type StepExecutionError struct {
	Step StepRef
	Err  error
}

func (e *StepExecutionError) Error() string {
	return fmt.Sprintf("%s: %v", e.Step, e.Err)
}

func (e *StepExecutionError) Unwrap() error { return e.Err }

func (e *StepExecutionError) Is(target error) bool { return target == ErrStepExecution }

// PipelineFailedError halts a run. It wraps the first StepExecutionError encountered.
type PipelineFailedError struct {
	Pipeline string
	Step     StepRef
	Message  string
	Err      *StepExecutionError
}

func (e *PipelineFailedError) Error() string {
	return fmt.Sprintf("%v: %s: step %s: %s", ErrPipelineFailed, e.Pipeline, e.Step, e.Message)
}

func (e *PipelineFailedError) Unwrap() error { return e.Err }

func (e *PipelineFailedError) Is(target error) bool { return target == ErrPipelineFailed }
