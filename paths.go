package mailbuild

import (
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
)

// Path names used by the built-in pipelines.
const (
	PathDist      = "dist"
	PathTmp       = "tmp"
	PathImages    = "images"
	PathImageDest = "imgDest"
	PathTemplates = "templates"
	PathSass      = "sass"
	PathCSS       = "css"
	PathData      = "data"
	PathPartials  = "partials"
	PathViews     = "views"
)

// pathRef matches an interpolation such as "<dist>" inside a path value.
var pathRef = regexp.MustCompile(`<([A-Za-z][A-Za-z0-9_-]*)>`)

// pathName is the syntax of a binding name, so that every name can be referenced.
var pathName = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_-]*$`)

// Binding associates a symbolic name with a directory relative to the project root.
// Path may embed other names as "<name>".
type Binding struct {
	Name string
	Path string
}

// DefaultBindings returns the standard email project layout.
func DefaultBindings() []Binding {
	return []Binding{
		{Name: PathDist, Path: "dist"},
		{Name: PathTmp, Path: "tmp"},
		{Name: PathImages, Path: "img"},
		{Name: PathImageDest, Path: "<dist>/img"},
		{Name: PathTemplates, Path: "templates"},
		{Name: PathSass, Path: "sass"},
		{Name: PathCSS, Path: "css"},
		{Name: PathData, Path: "data"},
		{Name: PathPartials, Path: "partials"},
		{Name: PathViews, Path: "views"},
	}
}

// PathRegistry is an immutable name -> directory mapping.
// All interpolations are substituted when the registry is built.
type PathRegistry struct {
	root     string
	resolved map[string]string
}

// NewPathRegistry builds a registry rooted at root.
// Returns ErrInvalidPath, ErrDuplicatePath, ErrUnknownPath or ErrCyclicPath for invalid bindings.
func NewPathRegistry(root string, bindings ...Binding) (*PathRegistry, error) {
	raw := make(map[string]string, len(bindings))
	for _, b := range bindings {
		if b.Name == "" {
			return nil, fmt.Errorf("%w: empty name", ErrInvalidPath)
		}
		if !pathName.MatchString(b.Name) {
			return nil, fmt.Errorf("%w: name %q", ErrInvalidPath, b.Name)
		}
		if _, dup := raw[b.Name]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicatePath, b.Name)
		}
		raw[b.Name] = b.Path
	}

	r := &PathRegistry{root: root, resolved: make(map[string]string, len(raw))}
	for name := range raw {
		if _, err := r.interpolate(name, raw, map[string]bool{}); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// interpolate resolves name, memoizing into r.resolved.
func (r *PathRegistry) interpolate(name string, raw map[string]string, visiting map[string]bool) (string, error) {
	if v, ok := r.resolved[name]; ok {
		return v, nil
	}
	value, ok := raw[name]
	if !ok {
		return "", &UnknownPathError{Name: name}
	}
	if visiting[name] {
		return "", fmt.Errorf("%w: %q", ErrCyclicPath, name)
	}
	visiting[name] = true
	defer delete(visiting, name)

	var firstErr error
	out := pathRef.ReplaceAllStringFunc(value, func(m string) string {
		if firstErr != nil {
			return m
		}
		sub, err := r.interpolate(m[1:len(m)-1], raw, visiting)
		if err != nil {
			firstErr = err
			return m
		}
		return sub
	})
	if firstErr != nil {
		return "", firstErr
	}

	r.resolved[name] = out
	return out, nil
}

// Resolve returns the configured path for name with interpolations substituted.
func (r *PathRegistry) Resolve(name string) (string, error) {
	v, ok := r.resolved[name]
	if !ok {
		return "", &UnknownPathError{Name: name}
	}
	return v, nil
}

// Abs returns the resolved path for name joined onto the project root.
func (r *PathRegistry) Abs(name string) (string, error) {
	v, err := r.Resolve(name)
	if err != nil {
		return "", err
	}
	if filepath.IsAbs(v) {
		return filepath.Clean(v), nil
	}
	return filepath.Join(r.root, filepath.FromSlash(v)), nil
}

// Expand substitutes every "<name>" in s with its registered path.
func (r *PathRegistry) Expand(s string) (string, error) {
	var firstErr error
	out := pathRef.ReplaceAllStringFunc(s, func(m string) string {
		v, err := r.Resolve(m[1 : len(m)-1])
		if err != nil && firstErr == nil {
			firstErr = err
		}
		return v
	})
	if firstErr != nil {
		return "", firstErr
	}
	return out, nil
}

// Root returns the project root the registry is anchored to.
func (r *PathRegistry) Root() string {
	return r.root
}

// Names returns the registered names in sorted order.
func (r *PathRegistry) Names() []string {
	names := make([]string, 0, len(r.resolved))
	for n := range r.resolved {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
