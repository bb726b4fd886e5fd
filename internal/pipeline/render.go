package pipeline

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"
	"time"

	"github.com/alnah/go-mailbuild/internal/dateutil"
	"github.com/alnah/go-mailbuild/internal/fileutil"
	"github.com/alnah/go-mailbuild/internal/yamlutil"
)

// Sentinel errors for template rendering.
var (
	ErrDataFile     = errors.New("invalid data file")
	ErrReservedData = errors.New("data file name is reserved")
	ErrTemplate     = errors.New("template rendering failed")
)

// buildKey is the reserved top-level key holding build information.
const buildKey = "Build"

// dataPatterns are the data file types merged into the render context.
var dataPatterns = []string{"*.json", "*.yaml", "*.yml"}

// BuildInfo is exposed to templates as .Build.
type BuildInfo struct {
	Date string    // build date in the configured format
	Time time.Time // build time
	Dev  bool      // true when rendering for the dev server
}

// LoadData reads every data file directly inside dir and keys its decoded
// content by base name: data/site.json becomes .site.
// A missing dir yields no data.
func LoadData(dir string) (map[string]any, error) {
	files, err := fileutil.Glob(dir, dataPatterns...)
	if err != nil {
		return nil, err
	}

	data := make(map[string]any, len(files))
	for _, rel := range files {
		key := fileutil.ReplaceExt(rel, "")
		if key == buildKey {
			return nil, fmt.Errorf("%w: %s", ErrReservedData, rel)
		}
		if _, dup := data[key]; dup {
			return nil, fmt.Errorf("%w: %s: more than one file named %q", ErrDataFile, rel, key)
		}

		raw, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(rel))) // #nosec G304 -- data dir is configured by the project
		if err != nil {
			return nil, fmt.Errorf("reading data file: %w", err)
		}
		var v any
		if len(bytes.TrimSpace(raw)) > 0 {
			if err := decodeData(rel, raw, &v); err != nil {
				return nil, fmt.Errorf("%w: %s: %v", ErrDataFile, rel, err)
			}
		}
		data[key] = v
	}
	return data, nil
}

func decodeData(name string, raw []byte, v *any) error {
	if filepath.Ext(name) == ".json" {
		return json.Unmarshal(raw, v)
	}
	return yamlutil.Unmarshal(raw, v)
}

// LoadPartials reads dir/**/*.html. Partial names are slash paths without
// extension, so partials/social/icons.html is {{ template "social/icons" . }}.
func LoadPartials(dir string) (map[string]string, error) {
	files, err := fileutil.Glob(dir, "**/*.html")
	if err != nil {
		return nil, err
	}
	partials := make(map[string]string, len(files))
	for _, rel := range files {
		raw, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(rel))) // #nosec G304 -- partials dir is configured by the project
		if err != nil {
			return nil, fmt.Errorf("reading partial: %w", err)
		}
		partials[fileutil.ReplaceExt(rel, "")] = string(raw)
	}
	return partials, nil
}

// Renderer executes HTML templates against project data and partials.
type Renderer struct {
	data     map[string]any
	partials map[string]string
	build    BuildInfo
}

// RendererConfig configures a Renderer.
type RendererConfig struct {
	Data       map[string]any    // from LoadData
	Partials   map[string]string // from LoadPartials
	DateFormat string            // dateutil format for .Build.Date
	Now        time.Time         // build time; zero means time.Now
	Dev        bool
}

// NewRenderer creates a Renderer.
// Returns ErrInvalidDateFormat (dateutil) for a bad date format.
func NewRenderer(cfg RendererConfig) (*Renderer, error) {
	now := cfg.Now
	if now.IsZero() {
		now = time.Now()
	}
	date, err := dateutil.Format(cfg.DateFormat, now)
	if err != nil {
		return nil, err
	}
	return &Renderer{
		data:     cfg.Data,
		partials: cfg.Partials,
		build:    BuildInfo{Date: date, Time: now, Dev: cfg.Dev},
	}, nil
}

// Render executes src as a template named name.
// Missing map keys are errors so typos in data references fail the build.
func (r *Renderer) Render(name, src string) (string, error) {
	root := template.New(name).Option("missingkey=error").Funcs(r.funcs())
	for pname, body := range r.partials {
		if _, err := root.New(pname).Parse(body); err != nil {
			return "", fmt.Errorf("%w: partial %s: %v", ErrTemplate, pname, err)
		}
	}
	tmpl, err := root.Parse(src)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrTemplate, name, err)
	}

	ctx := make(map[string]any, len(r.data)+1)
	for k, v := range r.data {
		ctx[k] = v
	}
	ctx[buildKey] = r.build

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, ctx); err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrTemplate, name, err)
	}
	return buf.String(), nil
}

func (r *Renderer) funcs() template.FuncMap {
	return template.FuncMap{
		// date formats the build time: {{ date "long" }}.
		"date": func(format string) (string, error) {
			return dateutil.Format(format, r.build.Time)
		},
		"upper": strings.ToUpper,
		"lower": strings.ToLower,
		"default": func(def, v any) any {
			if v == nil || v == "" {
				return def
			}
			return v
		},
	}
}
