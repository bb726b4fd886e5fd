// Package fileutil provides file, path and glob helpers shared by the build steps.
package fileutil

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gobwas/glob"
)

// Sentinel errors for file utility operations.
var (
	ErrEmptyPattern  = errors.New("glob pattern cannot be empty")
	ErrInvalidGlob   = errors.New("invalid glob pattern")
	ErrOutsideRoot   = errors.New("path escapes the project root")
	ErrRootDirectory = errors.New("refusing to operate on the project root")
)

// Matcher matches slash-separated relative paths against a set of globs.
// Patterns support *, ?, [class], {a,b} and ** for any number of directories.
type Matcher struct {
	globs []glob.Glob
}

// NewMatcher compiles patterns.
// A leading "**/" also matches files directly in the base directory.
func NewMatcher(patterns ...string) (*Matcher, error) {
	m := &Matcher{}
	for _, p := range patterns {
		if strings.TrimSpace(p) == "" {
			return nil, ErrEmptyPattern
		}
		// glob.Compile accepts unbalanced braces and then matches nothing.
		if err := checkBalance(p); err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrInvalidGlob, p, err)
		}
		variants := []string{p}
		if rest, ok := strings.CutPrefix(p, "**/"); ok {
			variants = append(variants, rest)
		}
		for _, v := range variants {
			g, err := glob.Compile(v, '/')
			if err != nil {
				return nil, fmt.Errorf("%w: %q: %v", ErrInvalidGlob, p, err)
			}
			m.globs = append(m.globs, g)
		}
	}
	return m, nil
}

// checkBalance reports unclosed or stray {} groups and unclosed [] classes.
// Backslash escapes the next character; braces inside a class are literal.
func checkBalance(p string) error {
	depth := 0
	inClass := false
	for i := 0; i < len(p); i++ {
		switch c := p[i]; {
		case c == '\\':
			i++
		case inClass:
			if c == ']' {
				inClass = false
			}
		case c == '[':
			inClass = true
		case c == '{':
			depth++
		case c == '}':
			if depth == 0 {
				return fmt.Errorf("unexpected '}' at offset %d", i)
			}
			depth--
		}
	}
	if inClass {
		return errors.New("unclosed '['")
	}
	if depth > 0 {
		return errors.New("unclosed '{'")
	}
	return nil
}

// Match reports whether rel (slash-separated) matches any pattern.
func (m *Matcher) Match(rel string) bool {
	rel = filepath.ToSlash(rel)
	for _, g := range m.globs {
		if g.Match(rel) {
			return true
		}
	}
	return false
}

// Glob walks base and returns the slash-separated relative paths of regular
// files matching any of patterns, sorted. A missing base yields no matches.
func Glob(base string, patterns ...string) ([]string, error) {
	m, err := NewMatcher(patterns...)
	if err != nil {
		return nil, err
	}

	var out []string
	err = filepath.WalkDir(base, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && path == base {
				return filepath.SkipDir
			}
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(base, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if m.Match(rel) {
			out = append(out, rel)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", base, err)
	}
	sort.Strings(out)
	return out, nil
}

// WriteFile writes data to path, creating parent directories as needed.
func WriteFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("creating directory for %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil { // #nosec G306 -- build outputs are meant to be readable
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// CopyFile copies src to dst, creating parent directories of dst.
func CopyFile(src, dst string) (err error) {
	in, err := os.Open(src) // #nosec G304 -- src comes from a glob under a configured directory
	if err != nil {
		return fmt.Errorf("opening %s: %w", src, err)
	}
	defer func() { _ = in.Close() }()

	if err := os.MkdirAll(filepath.Dir(dst), 0o750); err != nil {
		return fmt.Errorf("creating directory for %s: %w", dst, err)
	}
	out, err := os.Create(dst) // #nosec G304 -- dst is derived from a configured directory
	if err != nil {
		return fmt.Errorf("creating %s: %w", dst, err)
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing %s: %w", dst, cerr)
		}
	}()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("copying %s: %w", src, err)
	}
	return nil
}

// Within reports whether path lies strictly inside root.
// Returns ErrRootDirectory when path is root and ErrOutsideRoot when it escapes.
func Within(root, path string) error {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return err
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	rel, err := filepath.Rel(absRoot, absPath)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrOutsideRoot, path)
	}
	switch {
	case rel == ".":
		return fmt.Errorf("%w: %s", ErrRootDirectory, path)
	case rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)):
		return fmt.Errorf("%w: %s", ErrOutsideRoot, path)
	}
	return nil
}

// FileExists returns true if the path exists and is a regular file.
func FileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// IsURL returns true if the string looks like an absolute or protocol-relative URL.
func IsURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") || strings.HasPrefix(s, "//")
}

// ReplaceExt swaps the extension of a slash or OS path.
func ReplaceExt(path, ext string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ext
}
