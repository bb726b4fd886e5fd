package mailbuild

import (
	"fmt"
)

// PipelineID identifies one of the pipelines a user may request.
type PipelineID string

// Public pipelines.
const (
	PipelineServe     PipelineID = "serve"
	PipelineServeDist PipelineID = "serve:dist"
	PipelineBuild     PipelineID = "build"
	PipelineSend      PipelineID = "send"
	PipelineDefault   PipelineID = "default"
)

// Internal pipelines, referenced by the public ones.
const (
	pipelineConcurrentDev  = "concurrent:dev"
	pipelineConcurrentDist = "concurrent:dist"
)

// deprecatedAliases maps retired pipeline names to their replacement.
var deprecatedAliases = map[string]PipelineID{
	"server": PipelineServe,
}

// PipelineIDs returns the public pipelines in display order.
func PipelineIDs() []PipelineID {
	return []PipelineID{PipelineServe, PipelineServeDist, PipelineBuild, PipelineSend, PipelineDefault}
}

// ParsePipelineID validates s against the closed set of public pipelines.
// Deprecated aliases are translated; deprecated reports whether that happened.
func ParsePipelineID(s string) (id PipelineID, deprecated bool, err error) {
	if s == "" {
		return PipelineDefault, false, nil
	}
	if alias, ok := deprecatedAliases[s]; ok {
		return alias, true, nil
	}
	for _, known := range PipelineIDs() {
		if PipelineID(s) == known {
			return known, false, nil
		}
	}
	return "", false, &UnknownPipelineError{Name: s}
}

// Step names bound by the built-in pipelines.
const (
	StepClean    = "clean"
	StepSass     = "sass"
	StepViews    = "views"
	StepCopy     = "copy"
	StepImagemin = "imagemin"
	StepRender   = "render"
	StepInline   = "inline"
	StepHTML     = "htmlbuild"
	StepConnect  = "connect"
	StepWatch    = "watch"
	StepMail     = "mail"
)

// DefaultPipelines returns the registry of built-in pipelines.
func DefaultPipelines() (*Registry, error) {
	defs := []Pipeline{
		{
			Name:        pipelineConcurrentDev,
			Description: "compile styles and views, copy images",
			Concurrent:  true,
			Items:       []Item{Task(StepSass), Task(StepViews), Task("copy:images")},
		},
		{
			Name:        pipelineConcurrentDist,
			Description: "compile styles and views, optimize images",
			Concurrent:  true,
			Items:       []Item{Task(StepSass), Task(StepViews), Task(StepImagemin)},
		},
		{
			Name:        string(PipelineBuild),
			Description: "build distributable templates with inlined CSS",
			Items: []Item{
				Task(StepClean),
				Include(pipelineConcurrentDist),
				Task("render:dist"),
				Task(StepInline),
				Task(StepHTML),
			},
		},
		{
			Name:        string(PipelineServe),
			Description: "build for development, serve with live reload and watch",
			Items: []Item{
				Task(StepClean),
				Include(pipelineConcurrentDev),
				Task("render:dev"),
				Task(StepHTML),
				Task("connect:livereload"),
				Task(StepWatch),
			},
		},
		{
			Name:        string(PipelineServeDist),
			Description: "build and serve the distributable templates",
			Items:       []Item{Include(string(PipelineBuild)), Task("connect:dist")},
		},
		{
			Name:        string(PipelineSend),
			Description: "build and mail a template to the configured recipients",
			Items:       []Item{Include(string(PipelineBuild)), Task(StepMail)},
			Requires:    []string{OptionTemplate},
		},
		{
			Name:        string(PipelineDefault),
			Description: "alias of serve",
			Items:       []Item{Include(string(PipelineServe))},
		},
	}

	reg := NewRegistry()
	for _, p := range defs {
		if err := reg.Define(p); err != nil {
			return nil, fmt.Errorf("defining %s: %w", p.Name, err)
		}
	}
	if err := reg.Validate(); err != nil {
		return nil, err
	}
	return reg, nil
}
