package mailbuild

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
)

// StepRef names a step adapter plus an optional target, written "name:target"
// (e.g. "render:dev", "copy:images").
type StepRef struct {
	Name   string
	Target string
}

// ParseStepRef splits "name:target" at the first colon.
func ParseStepRef(s string) StepRef {
	name, target, _ := strings.Cut(s, ":")
	return StepRef{Name: name, Target: target}
}

func (s StepRef) String() string {
	if s.Target == "" {
		return s.Name
	}
	return s.Name + ":" + s.Target
}

// Step is the contract every external collaborator adapter satisfies.
// Run must be safe to repeat: no step may assume a pristine output directory.
type Step interface {
	Run(ctx context.Context, env *Env, target string) error
}

// StepFunc adapts a function to the Step interface.
type StepFunc func(ctx context.Context, env *Env, target string) error

// Run calls f.
func (f StepFunc) Run(ctx context.Context, env *Env, target string) error {
	return f(ctx, env, target)
}

// TargetedStep is implemented by steps that accept a fixed set of targets.
// The runner rejects pipelines naming other targets at construction time.
type TargetedStep interface {
	Step
	Targets() []string
}

// Options are the recognized per-run options.
type Options struct {
	Template string // name of the dist template to mail, without .html
}

// Option names, as spelled on the command line.
const (
	OptionTemplate = "template"
)

// value returns the option's value by name; unknown names are always empty.
func (o Options) value(name string) string {
	switch name {
	case OptionTemplate:
		return o.Template
	}
	return ""
}

// Env is the execution context handed to every step: the resolved paths,
// the run's options, a logger, and hooks into the current run.
type Env struct {
	Paths   *PathRegistry
	Options Options
	Logger  *slog.Logger

	run *runState
}

// runState holds what lives exactly as long as one run.
type runState struct {
	runner *Runner
	ctx    context.Context // canceled when the run ends
	wg     sync.WaitGroup
}

// Path returns the absolute directory registered under name.
func (e *Env) Path(name string) (string, error) {
	return e.Paths.Abs(name)
}

// Go runs fn in the background for the remainder of the run.
// The context passed to fn is canceled when the run finishes; the run waits for fn to return.
func (e *Env) Go(fn func(ctx context.Context)) {
	if e.run == nil {
		go fn(context.Background())
		return
	}
	e.run.wg.Add(1)
	go func() {
		defer e.run.wg.Done()
		fn(e.run.ctx)
	}()
}

// RunSteps executes refs in order outside the run's result bookkeeping,
// stopping at the first failure. Used by long-running steps that trigger rebuilds.
// An Env not created by a Runner returns ErrInvalidPipeline.
func (e *Env) RunSteps(ctx context.Context, refs ...StepRef) error {
	if e.run == nil {
		return fmt.Errorf("%w: no active run", ErrInvalidPipeline)
	}
	for _, ref := range refs {
		if err := e.run.runner.invoke(ctx, e, ref); err != nil {
			return err
		}
	}
	return nil
}
