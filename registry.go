package mailbuild

import (
	"fmt"
	"slices"
	"sort"
)

// Item is one entry of a pipeline: either a step or a reference to another pipeline.
type Item struct {
	Step     StepRef
	Pipeline string
}

// Task returns an Item invoking the step written "name[:target]".
func Task(ref string) Item {
	return Item{Step: ParseStepRef(ref)}
}

// Include returns an Item that inlines the named pipeline.
func Include(pipeline string) Item {
	return Item{Pipeline: pipeline}
}

func (i Item) String() string {
	if i.Pipeline != "" {
		return i.Pipeline
	}
	return i.Step.String()
}

// Pipeline is a named, ordered list of items.
// Concurrent marks the items as independent: they run as one fan-out/fan-in group.
// Requires lists option names that must be set before the pipeline may run.
type Pipeline struct {
	Name        string
	Description string
	Items       []Item
	Concurrent  bool
	Requires    []string
}

// Stage is one unit of sequential execution. A stage with several branches is a
// concurrent group: branches run in parallel, steps within a branch run in order.
type Stage struct {
	Branches [][]StepRef
}

// Concurrent reports whether the stage fans out.
func (s Stage) Concurrent() bool {
	return len(s.Branches) > 1
}

// Plan is an expanded pipeline ready for execution.
type Plan struct {
	Pipeline string
	Stages   []Stage
	Requires []string // union of Requires over every pipeline reached
}

// Steps flattens the plan in depth-first, left-to-right order.
func (p *Plan) Steps() []StepRef {
	var out []StepRef
	for _, st := range p.Stages {
		for _, br := range st.Branches {
			out = append(out, br...)
		}
	}
	return out
}

// Registry holds pipeline definitions. Define everything at startup;
// the runner treats the registry as read-only.
type Registry struct {
	defs map[string]Pipeline
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{defs: make(map[string]Pipeline)}
}

// Define registers a pipeline. Names must be unique and items non-empty.
func (r *Registry) Define(p Pipeline) error {
	if p.Name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidPipeline)
	}
	if _, dup := r.defs[p.Name]; dup {
		return fmt.Errorf("%w: %q", ErrDuplicatePipeline, p.Name)
	}
	for i, it := range p.Items {
		if it.Pipeline == "" && it.Step.Name == "" {
			return fmt.Errorf("%w: %s item %d is empty", ErrInvalidPipeline, p.Name, i)
		}
		if it.Pipeline != "" && it.Step.Name != "" {
			return fmt.Errorf("%w: %s item %d is both a step and a pipeline", ErrInvalidPipeline, p.Name, i)
		}
	}
	p.Items = slices.Clone(p.Items)
	p.Requires = slices.Clone(p.Requires)
	r.defs[p.Name] = p
	return nil
}

// Lookup returns the definition registered under name.
func (r *Registry) Lookup(name string) (Pipeline, bool) {
	p, ok := r.defs[name]
	return p, ok
}

// Names returns all defined pipeline names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.defs))
	for n := range r.defs {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Expand returns the flat, depth-first sequence of steps reached from name.
func (r *Registry) Expand(name string) ([]StepRef, error) {
	plan, err := r.Plan(name)
	if err != nil {
		return nil, err
	}
	return plan.Steps(), nil
}

// Plan expands name into stages. It fails with CyclicPipelineError when a name
// already on the expansion stack is revisited, and UnknownPipelineError for
// references without a definition.
func (r *Registry) Plan(name string) (*Plan, error) {
	e := &expander{reg: r, onStack: make(map[string]bool)}
	plan := &Plan{Pipeline: name}
	if err := e.expand(name, "", &plan.Stages, false); err != nil {
		return nil, err
	}
	plan.Requires = e.requires
	return plan, nil
}

// Validate expands every definition, reporting the first error found.
func (r *Registry) Validate() error {
	for _, name := range r.Names() {
		if _, err := r.Plan(name); err != nil {
			return err
		}
	}
	return nil
}

type expander struct {
	reg      *Registry
	stack    []string
	onStack  map[string]bool
	requires []string
}

func (e *expander) enter(name, referrer string) (Pipeline, error) {
	if e.onStack[name] {
		cycle := append(slices.Clone(e.stack), name)
		return Pipeline{}, &CyclicPipelineError{Cycle: cycle}
	}
	p, ok := e.reg.defs[name]
	if !ok {
		return Pipeline{}, &UnknownPipelineError{Name: name, Referrer: referrer}
	}
	e.stack = append(e.stack, name)
	e.onStack[name] = true
	for _, opt := range p.Requires {
		if !slices.Contains(e.requires, opt) {
			e.requires = append(e.requires, opt)
		}
	}
	return p, nil
}

func (e *expander) leave(name string) {
	e.stack = e.stack[:len(e.stack)-1]
	delete(e.onStack, name)
}

// expand appends the stages of name to out. Inside a concurrent branch
// (flat == true) everything is appended as sequential steps of that branch.
func (e *expander) expand(name, referrer string, out *[]Stage, flat bool) error {
	p, err := e.enter(name, referrer)
	if err != nil {
		return err
	}
	defer e.leave(name)

	if p.Concurrent && !flat {
		group := Stage{}
		for _, it := range p.Items {
			var branch []StepRef
			if err := e.branch(it, name, &branch); err != nil {
				return err
			}
			if len(branch) > 0 {
				group.Branches = append(group.Branches, branch)
			}
		}
		if len(group.Branches) > 0 {
			*out = append(*out, group)
		}
		return nil
	}

	for _, it := range p.Items {
		if it.Pipeline == "" {
			*out = append(*out, Stage{Branches: [][]StepRef{{it.Step}}})
			continue
		}
		if err := e.expand(it.Pipeline, name, out, flat); err != nil {
			return err
		}
	}
	return nil
}

// branch flattens one member of a concurrent group into a sequential list.
func (e *expander) branch(it Item, referrer string, out *[]StepRef) error {
	if it.Pipeline == "" {
		*out = append(*out, it.Step)
		return nil
	}
	var stages []Stage
	if err := e.expand(it.Pipeline, referrer, &stages, true); err != nil {
		return err
	}
	for _, st := range stages {
		for _, br := range st.Branches {
			*out = append(*out, br...)
		}
	}
	return nil
}
