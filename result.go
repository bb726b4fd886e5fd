package mailbuild

import "time"

// Outcome is the final state of one step invocation.
type Outcome string

// Step outcomes.
const (
	OutcomeSuccess  Outcome = "success"
	OutcomeFailure  Outcome = "failure"
	OutcomeCanceled Outcome = "canceled" // sibling of a failed concurrent member, or interrupted
)

// StepResult records a single step invocation.
type StepResult struct {
	Step     StepRef
	Outcome  Outcome
	Message  string
	Duration time.Duration
}

// RunResult is the ordered record of one run. It is never persisted.
type RunResult struct {
	Pipeline string
	Steps    []StepResult
	Duration time.Duration
}

// Failure returns the first failed step, if any.
func (r *RunResult) Failure() (StepResult, bool) {
	for _, s := range r.Steps {
		if s.Outcome == OutcomeFailure {
			return s, true
		}
	}
	return StepResult{}, false
}

// Succeeded reports whether every recorded step succeeded.
func (r *RunResult) Succeeded() bool {
	for _, s := range r.Steps {
		if s.Outcome != OutcomeSuccess {
			return false
		}
	}
	return true
}
