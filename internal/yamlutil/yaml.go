// Package yamlutil wraps YAML parsing for configuration files, template data
// files and view front matter.
package yamlutil

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/goccy/go-yaml"
)

// MaxInputSize limits YAML input to prevent memory exhaustion (default 1MB).
var MaxInputSize = 1 << 20

var (
	ErrNilData        = errors.New("yamlutil: nil or empty data")
	ErrNilDestination = errors.New("yamlutil: nil destination pointer")
	ErrInputTooLarge  = errors.New("yamlutil: input exceeds maximum size")
	ErrUnterminated   = errors.New("yamlutil: front matter not terminated")
)

func validateInput(data []byte, v any) error {
	if len(data) == 0 {
		return ErrNilData
	}
	if len(data) > MaxInputSize {
		return fmt.Errorf("%w: %d bytes (max %d)", ErrInputTooLarge, len(data), MaxInputSize)
	}
	if v == nil {
		return ErrNilDestination
	}
	return nil
}

// Unmarshal decodes data into v, ignoring unknown fields.
func Unmarshal(data []byte, v any) error {
	if err := validateInput(data, v); err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, v); err != nil {
		return fmt.Errorf("yamlutil: %w", err)
	}
	return nil
}

// UnmarshalStrict rejects unknown fields in the input.
func UnmarshalStrict(data []byte, v any) error {
	if err := validateInput(data, v); err != nil {
		return err
	}
	if err := yaml.UnmarshalWithOptions(data, v, yaml.Strict()); err != nil {
		return fmt.Errorf("yamlutil: %w", err)
	}
	return nil
}

var fence = []byte("---")

// SplitFrontMatter separates a leading "---" delimited YAML block from body.
// When src has no front matter, front is nil and body is src unchanged.
func SplitFrontMatter(src []byte) (front, body []byte, err error) {
	rest, ok := cutFenceLine(src)
	if !ok {
		return nil, src, nil
	}
	for off := 0; off <= len(rest); {
		line := rest[off:]
		if i := bytes.IndexByte(line, '\n'); i >= 0 {
			line = line[:i+1]
		}
		if after, ok := cutFenceLine(line); ok && len(after) == 0 {
			return rest[:off], rest[off+len(line):], nil
		}
		if len(line) == 0 {
			break
		}
		off += len(line)
	}
	return nil, nil, ErrUnterminated
}

// cutFenceLine reports whether b starts with a "---" line and returns what follows it.
func cutFenceLine(b []byte) ([]byte, bool) {
	if !bytes.HasPrefix(b, fence) {
		return nil, false
	}
	rest := b[len(fence):]
	rest = bytes.TrimLeft(rest, " \t")
	switch {
	case len(rest) == 0:
		return rest, true
	case rest[0] == '\n':
		return rest[1:], true
	case len(rest) > 1 && rest[0] == '\r' && rest[1] == '\n':
		return rest[2:], true
	}
	return nil, false
}
