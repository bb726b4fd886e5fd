package mailbuild

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// RunRequest asks the runner to execute one pipeline.
type RunRequest struct {
	Pipeline string
	Options  Options
}

// Runner executes pipelines from a Registry against a PathRegistry.
// Both registries are read-only once the runner exists.
type Runner struct {
	paths     *PathRegistry
	pipelines *Registry
	steps     map[string]Step
	logger    *slog.Logger
	workers   int
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithStep binds an adapter to a step name.
func WithStep(name string, s Step) RunnerOption {
	return func(r *Runner) {
		r.steps[name] = s
	}
}

// WithSteps binds every adapter in m.
func WithSteps(m map[string]Step) RunnerOption {
	return func(r *Runner) {
		for name, s := range m {
			r.steps[name] = s
		}
	}
}

// WithLogger sets the logger handed to steps.
func WithLogger(l *slog.Logger) RunnerOption {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithWorkers bounds how many members of a concurrent group run at once.
// Zero or negative means GOMAXPROCS.
func WithWorkers(n int) RunnerOption {
	return func(r *Runner) {
		r.workers = n
	}
}

// NewRunner validates the pipelines and step bindings and returns a Runner.
// Every leaf step of every pipeline must have an adapter; targeted adapters
// must accept the targets the pipelines name.
func NewRunner(paths *PathRegistry, pipelines *Registry, opts ...RunnerOption) (*Runner, error) {
	r := &Runner{
		paths:     paths,
		pipelines: pipelines,
		steps:     make(map[string]Step),
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.workers <= 0 {
		r.workers = runtime.GOMAXPROCS(0)
	}

	if err := pipelines.Validate(); err != nil {
		return nil, err
	}
	for _, name := range pipelines.Names() {
		refs, err := pipelines.Expand(name)
		if err != nil {
			return nil, err
		}
		if err := r.checkBound(refs); err != nil {
			return nil, fmt.Errorf("pipeline %s: %w", name, err)
		}
	}
	return r, nil
}

func (r *Runner) checkBound(refs []StepRef) error {
	for _, ref := range refs {
		s, ok := r.steps[ref.Name]
		if !ok {
			return fmt.Errorf("%w: %q", ErrUnknownStep, ref.Name)
		}
		if ts, ok := s.(TargetedStep); ok && !slices.Contains(ts.Targets(), ref.Target) {
			return fmt.Errorf("%w: %q has no target %q", ErrUnknownStep, ref.Name, ref.Target)
		}
	}
	return nil
}

// Run expands req.Pipeline and executes it. Configuration errors are returned
// before any step runs. A failing step halts the run with a PipelineFailedError;
// the returned RunResult holds every step that ran, the failing one last.
func (r *Runner) Run(ctx context.Context, req RunRequest) (*RunResult, error) {
	result := &RunResult{Pipeline: req.Pipeline}

	def, ok := r.pipelines.Lookup(req.Pipeline)
	if !ok {
		return result, &UnknownPipelineError{Name: req.Pipeline}
	}
	if err := checkRequired(req.Pipeline, def.Requires, req.Options); err != nil {
		return result, err
	}
	plan, err := r.pipelines.Plan(req.Pipeline)
	if err != nil {
		return result, err
	}
	if err := checkRequired(req.Pipeline, plan.Requires, req.Options); err != nil {
		return result, err
	}
	if err := r.checkBound(plan.Steps()); err != nil {
		return result, err
	}

	runCtx, cancel := context.WithCancel(ctx)
	state := &runState{runner: r, ctx: runCtx}
	env := &Env{
		Paths:   r.paths,
		Options: req.Options,
		Logger:  r.logger.With(slog.String("pipeline", req.Pipeline)),
		run:     state,
	}
	defer func() {
		cancel()
		state.wg.Wait()
	}()

	start := time.Now()
	defer func() { result.Duration = time.Since(start) }()

	env.Logger.Info("run started", slog.Int("steps", len(plan.Steps())))
	for _, st := range plan.Stages {
		if err := ctx.Err(); err != nil {
			return result, fmt.Errorf("run %s interrupted: %w", req.Pipeline, err)
		}

		var failed *StepExecutionError
		if st.Concurrent() {
			failed = r.runGroup(ctx, env, st, result)
		} else {
			failed = r.runSequential(ctx, env, st.Branches[0], result)
		}
		if failed != nil {
			return result, &PipelineFailedError{
				Pipeline: req.Pipeline,
				Step:     failed.Step,
				Message:  failed.Err.Error(),
				Err:      failed,
			}
		}
	}
	// A step cut short by the signal is recorded canceled, so the run is
	// interrupted even when it was the last one.
	if err := ctx.Err(); err != nil && (!result.Succeeded() || len(result.Steps) < len(plan.Steps())) {
		return result, fmt.Errorf("run %s interrupted: %w", req.Pipeline, err)
	}

	env.Logger.Info("run finished", slog.Duration("duration", time.Since(start)))
	return result, nil
}

func checkRequired(pipeline string, required []string, opts Options) error {
	for _, name := range required {
		if opts.value(name) == "" {
			return &MissingOptionError{Pipeline: pipeline, Option: name}
		}
	}
	return nil
}

// runSequential executes refs one after another, recording each.
func (r *Runner) runSequential(ctx context.Context, env *Env, refs []StepRef, result *RunResult) *StepExecutionError {
	for _, ref := range refs {
		if ctx.Err() != nil {
			return nil
		}
		sr, err := r.execute(ctx, env, ref)
		if err != nil && ctx.Err() != nil {
			sr.Outcome = OutcomeCanceled
		}
		result.Steps = append(result.Steps, sr)
		if err != nil && sr.Outcome == OutcomeFailure {
			return err
		}
	}
	return nil
}

// runGroup fans the branches of st out and waits for all of them.
// The first failure cancels the siblings; their results are recorded as canceled.
func (r *Runner) runGroup(ctx context.Context, env *Env, st Stage, result *RunResult) *StepExecutionError {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)

	var (
		mu    sync.Mutex
		first *StepExecutionError
	)
	perBr := make([][]StepResult, len(st.Branches))

	for i, branch := range st.Branches {
		g.Go(func() error {
			for j, ref := range branch {
				// Every member starts; only later steps of a branch are skipped.
				if j > 0 && gctx.Err() != nil {
					return nil
				}
				sr, err := r.execute(gctx, env, ref)
				if err != nil {
					mu.Lock()
					switch {
					case first == nil && ctx.Err() == nil:
						first = err
					case gctx.Err() != nil:
						sr.Outcome = OutcomeCanceled
					}
					mu.Unlock()
				}
				perBr[i] = append(perBr[i], sr)
				if err != nil {
					return err
				}
			}
			return nil
		})
	}
	_ = g.Wait()

	for _, srs := range perBr {
		result.Steps = append(result.Steps, srs...)
	}
	return first
}

// execute invokes one step and times it.
func (r *Runner) execute(ctx context.Context, env *Env, ref StepRef) (StepResult, *StepExecutionError) {
	start := time.Now()
	err := r.invoke(ctx, env, ref)
	sr := StepResult{Step: ref, Outcome: OutcomeSuccess, Duration: time.Since(start)}
	if err != nil {
		sr.Outcome = OutcomeFailure
		sr.Message = err.Err.Error()
		env.Logger.Error("step failed", slog.String("step", ref.String()), slog.String("error", sr.Message))
		return sr, err
	}
	env.Logger.Debug("step finished", slog.String("step", ref.String()), slog.Duration("duration", sr.Duration))
	return sr, nil
}

// invoke runs the adapter bound to ref, converting errors and panics into
// a StepExecutionError.
func (r *Runner) invoke(ctx context.Context, env *Env, ref StepRef) (stepErr *StepExecutionError) {
	s, ok := r.steps[ref.Name]
	if !ok {
		return &StepExecutionError{Step: ref, Err: fmt.Errorf("%w: %q", ErrUnknownStep, ref.Name)}
	}

	defer func() {
		if p := recover(); p != nil {
			stepErr = &StepExecutionError{Step: ref, Err: fmt.Errorf("panic: %v", p)}
		}
	}()

	env.Logger.Info("running step", slog.String("step", ref.String()))
	if err := s.Run(ctx, env, ref.Target); err != nil {
		var se *StepExecutionError
		if errors.As(err, &se) {
			return se
		}
		return &StepExecutionError{Step: ref, Err: err}
	}
	return nil
}
