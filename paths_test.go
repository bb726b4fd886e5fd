package mailbuild

// Notes:
// - NewPathRegistry resolves every binding eagerly, so invalid layouts fail at construction
// - Interpolation is recursive; cycles and dangling references are both reported
// - Abs joins onto the root unless the resolved value is already absolute

import (
	"errors"
	"path/filepath"
	"slices"
	"testing"
)

// ---------------------------------------------------------------------------
// TestNewPathRegistry - Construction and Interpolation
// ---------------------------------------------------------------------------

func TestNewPathRegistry(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		bindings []Binding
		lookup   string
		want     string
		wantErr  error
	}{
		{
			name:     "plain value",
			bindings: []Binding{{Name: "dist", Path: "dist"}},
			lookup:   "dist",
			want:     "dist",
		},
		{
			name:     "single interpolation",
			bindings: []Binding{{Name: "imgDest", Path: "<dist>/img"}, {Name: "dist", Path: "out"}},
			lookup:   "imgDest",
			want:     "out/img",
		},
		{
			name: "chained interpolation",
			bindings: []Binding{
				{Name: "a", Path: "<b>/a"},
				{Name: "b", Path: "<c>/b"},
				{Name: "c", Path: "root"},
			},
			lookup: "a",
			want:   "root/b/a",
		},
		{
			name:     "repeated reference",
			bindings: []Binding{{Name: "x", Path: "<y>-<y>"}, {Name: "y", Path: "v"}},
			lookup:   "x",
			want:     "v-v",
		},
		{
			name:     "unknown reference",
			bindings: []Binding{{Name: "imgDest", Path: "<dist>/img"}},
			wantErr:  ErrUnknownPath,
		},
		{
			name:     "self cycle",
			bindings: []Binding{{Name: "a", Path: "<a>/x"}},
			wantErr:  ErrCyclicPath,
		},
		{
			name:     "indirect cycle",
			bindings: []Binding{{Name: "a", Path: "<b>"}, {Name: "b", Path: "<a>"}},
			wantErr:  ErrCyclicPath,
		},
		{
			name:     "duplicate name",
			bindings: []Binding{{Name: "dist", Path: "a"}, {Name: "dist", Path: "b"}},
			wantErr:  ErrDuplicatePath,
		},
		{
			name:     "empty name",
			bindings: []Binding{{Name: "", Path: "a"}},
			wantErr:  ErrInvalidPath,
		},
		{
			name:     "name that cannot be referenced",
			bindings: []Binding{{Name: "img dest", Path: "a"}},
			wantErr:  ErrInvalidPath,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			reg, err := NewPathRegistry("/project", tt.bindings...)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("NewPathRegistry() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewPathRegistry() unexpected error: %v", err)
			}
			got, err := reg.Resolve(tt.lookup)
			if err != nil {
				t.Fatalf("Resolve(%q) unexpected error: %v", tt.lookup, err)
			}
			if got != tt.want {
				t.Errorf("Resolve(%q) = %q, want %q", tt.lookup, got, tt.want)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestPathRegistry_Resolve - Lookup Semantics
// ---------------------------------------------------------------------------

func TestPathRegistry_Resolve_Unknown(t *testing.T) {
	t.Parallel()

	reg, err := NewPathRegistry("/project", DefaultBindings()...)
	if err != nil {
		t.Fatalf("NewPathRegistry() unexpected error: %v", err)
	}

	_, err = reg.Resolve("nope")
	var unknown *UnknownPathError
	if !errors.As(err, &unknown) {
		t.Fatalf("Resolve() error = %v, want *UnknownPathError", err)
	}
	if unknown.Name != "nope" {
		t.Errorf("UnknownPathError.Name = %q, want %q", unknown.Name, "nope")
	}
}

func TestPathRegistry_DefaultImageDest(t *testing.T) {
	t.Parallel()

	reg, err := NewPathRegistry("/project", DefaultBindings()...)
	if err != nil {
		t.Fatalf("NewPathRegistry() unexpected error: %v", err)
	}
	got, err := reg.Resolve(PathImageDest)
	if err != nil {
		t.Fatalf("Resolve() unexpected error: %v", err)
	}
	if got != "dist/img" {
		t.Errorf("Resolve(%q) = %q, want %q", PathImageDest, got, "dist/img")
	}
}

func TestPathRegistry_Abs(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	abs := filepath.Join(root, "elsewhere")
	reg, err := NewPathRegistry(root,
		Binding{Name: "dist", Path: "out"},
		Binding{Name: "imgDest", Path: "<dist>/img"},
		Binding{Name: "cache", Path: abs},
	)
	if err != nil {
		t.Fatalf("NewPathRegistry() unexpected error: %v", err)
	}

	tests := []struct {
		name string
		want string
	}{
		{"dist", filepath.Join(root, "out")},
		{"imgDest", filepath.Join(root, "out", "img")},
		{"cache", abs},
	}
	for _, tt := range tests {
		got, err := reg.Abs(tt.name)
		if err != nil {
			t.Fatalf("Abs(%q) unexpected error: %v", tt.name, err)
		}
		if got != tt.want {
			t.Errorf("Abs(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestPathRegistry_Expand(t *testing.T) {
	t.Parallel()

	reg, err := NewPathRegistry("/project", Binding{Name: "dist", Path: "out"})
	if err != nil {
		t.Fatalf("NewPathRegistry() unexpected error: %v", err)
	}

	got, err := reg.Expand("<dist>/*.html")
	if err != nil {
		t.Fatalf("Expand() unexpected error: %v", err)
	}
	if got != "out/*.html" {
		t.Errorf("Expand() = %q, want %q", got, "out/*.html")
	}

	if _, err := reg.Expand("<tmp>/x"); !errors.Is(err, ErrUnknownPath) {
		t.Errorf("Expand() error = %v, want ErrUnknownPath", err)
	}
}

func TestPathRegistry_Names(t *testing.T) {
	t.Parallel()

	reg, err := NewPathRegistry("/project", DefaultBindings()...)
	if err != nil {
		t.Fatalf("NewPathRegistry() unexpected error: %v", err)
	}
	names := reg.Names()
	if !slices.IsSorted(names) {
		t.Errorf("Names() = %v, want sorted", names)
	}
	if len(names) != len(DefaultBindings()) {
		t.Errorf("len(Names()) = %d, want %d", len(names), len(DefaultBindings()))
	}
}
