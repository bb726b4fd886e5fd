package fileutil_test

// Notes:
// - Glob results are relative, slash-separated and sorted so tests compare slices directly
// - "**/" patterns must match files at the base level too, like grunt's expand globs

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/alnah/go-mailbuild/internal/fileutil"
)

func touch(t *testing.T, base string, rels ...string) {
	t.Helper()
	for _, rel := range rels {
		p := filepath.Join(base, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(p), 0o750); err != nil {
			t.Fatalf("setup: %v", err)
		}
		if err := os.WriteFile(p, []byte(rel), 0o600); err != nil {
			t.Fatalf("setup: %v", err)
		}
	}
}

// ---------------------------------------------------------------------------
// TestMatcher - Glob pattern semantics
// ---------------------------------------------------------------------------

func TestMatcher(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		patterns []string
		path     string
		want     bool
	}{
		{"top level with double star", []string{"**/*.{gif,png,jpg}"}, "logo.png", true},
		{"nested with double star", []string{"**/*.{gif,png,jpg}"}, "icons/social/fb.gif", true},
		{"wrong extension", []string{"**/*.{gif,png,jpg}"}, "icons/fb.svg", false},
		{"single star stays in directory", []string{"*.html"}, "sub/a.html", false},
		{"single star top level", []string{"*.html"}, "a.html", true},
		{"second pattern matches", []string{"*.json", "*.yml"}, "site.yml", true},
		{"question mark", []string{"a?.css"}, "ab.css", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			m, err := fileutil.NewMatcher(tt.patterns...)
			if err != nil {
				t.Fatalf("NewMatcher() unexpected error: %v", err)
			}
			if got := m.Match(tt.path); got != tt.want {
				t.Errorf("Match(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestNewMatcher_Errors(t *testing.T) {
	t.Parallel()

	if _, err := fileutil.NewMatcher(""); !errors.Is(err, fileutil.ErrEmptyPattern) {
		t.Errorf("NewMatcher(\"\") error = %v, want ErrEmptyPattern", err)
	}

	invalid := []string{"{a,b", "*.{png,gif", "a}b", "[!_*.scss", "**/{a,{b,c}.png"}
	for _, p := range invalid {
		if _, err := fileutil.NewMatcher(p); !errors.Is(err, fileutil.ErrInvalidGlob) {
			t.Errorf("NewMatcher(%q) error = %v, want ErrInvalidGlob", p, err)
		}
	}

	// Balanced groups, classes and escapes compile.
	valid := []string{"**/*.{gif,png,jpg}", "**/[!_]*.scss", `\{literal\}.txt`, "[{]*.txt", "{a,{b,c}}"}
	for _, p := range valid {
		if _, err := fileutil.NewMatcher(p); err != nil {
			t.Errorf("NewMatcher(%q) unexpected error: %v", p, err)
		}
	}
}

// ---------------------------------------------------------------------------
// TestGlob - Directory walking
// ---------------------------------------------------------------------------

func TestGlob(t *testing.T) {
	t.Parallel()

	base := t.TempDir()
	touch(t, base, "hero.jpg", "icons/fb.png", "icons/deep/tw.gif", "notes.txt", "icons/readme.md")

	got, err := fileutil.Glob(base, "**/*.{gif,png,jpg}")
	if err != nil {
		t.Fatalf("Glob() unexpected error: %v", err)
	}
	want := []string{"hero.jpg", "icons/deep/tw.gif", "icons/fb.png"}
	if !slices.Equal(got, want) {
		t.Errorf("Glob() = %v, want %v", got, want)
	}
}

func TestGlob_MissingBase(t *testing.T) {
	t.Parallel()

	got, err := fileutil.Glob(filepath.Join(t.TempDir(), "absent"), "*.html")
	if err != nil {
		t.Fatalf("Glob() unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Glob() = %v, want empty", got)
	}
}

// ---------------------------------------------------------------------------
// TestCopyFile / TestWriteFile - Output helpers
// ---------------------------------------------------------------------------

func TestCopyFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := filepath.Join(dir, "in.png")
	if err := os.WriteFile(src, []byte("pixels"), 0o600); err != nil {
		t.Fatalf("setup: %v", err)
	}
	dst := filepath.Join(dir, "out", "img", "in.png")

	if err := fileutil.CopyFile(src, dst); err != nil {
		t.Fatalf("CopyFile() unexpected error: %v", err)
	}
	data, err := os.ReadFile(dst)
	if err != nil {
		t.Fatalf("reading copy: %v", err)
	}
	if string(data) != "pixels" {
		t.Errorf("copy = %q, want %q", data, "pixels")
	}

	if err := fileutil.CopyFile(filepath.Join(dir, "missing"), dst); err == nil {
		t.Error("CopyFile(missing) error = nil, want error")
	}
}

func TestWriteFile(t *testing.T) {
	t.Parallel()

	p := filepath.Join(t.TempDir(), "a", "b", "c.html")
	if err := fileutil.WriteFile(p, []byte("<p>hi</p>")); err != nil {
		t.Fatalf("WriteFile() unexpected error: %v", err)
	}
	if !fileutil.FileExists(p) {
		t.Error("FileExists() = false after WriteFile")
	}
}

// ---------------------------------------------------------------------------
// TestWithin - Project root containment
// ---------------------------------------------------------------------------

func TestWithin(t *testing.T) {
	t.Parallel()

	root := t.TempDir()

	tests := []struct {
		name    string
		path    string
		wantErr error
	}{
		{"child", filepath.Join(root, "dist"), nil},
		{"grandchild", filepath.Join(root, "dist", "img"), nil},
		{"dotdot-looking name", filepath.Join(root, "..dist"), nil},
		{"root itself", root, fileutil.ErrRootDirectory},
		{"parent", filepath.Dir(root), fileutil.ErrOutsideRoot},
		{"sibling", filepath.Join(root, "..", "other"), fileutil.ErrOutsideRoot},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := fileutil.Within(root, tt.path)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Within() unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Within() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestIsURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want bool
	}{
		{"https://cdn.example.com/a.png", true},
		{"http://localhost/a.png", true},
		{"//cdn.example.com/a.png", true},
		{"img/a.png", false},
		{"/img/a.png", false},
		{"data:image/png;base64,xx", false},
	}
	for _, tt := range tests {
		if got := fileutil.IsURL(tt.in); got != tt.want {
			t.Errorf("IsURL(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestReplaceExt(t *testing.T) {
	t.Parallel()

	if got := fileutil.ReplaceExt("welcome.md", ".html"); got != "welcome.html" {
		t.Errorf("ReplaceExt() = %q, want welcome.html", got)
	}
}
