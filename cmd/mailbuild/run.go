package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	mailbuild "github.com/alnah/go-mailbuild"
	"github.com/alnah/go-mailbuild/internal/config"
	"github.com/alnah/go-mailbuild/internal/hints"
	"github.com/alnah/go-mailbuild/internal/steps"
)

// Commands handled by the CLI itself rather than a pipeline.
const (
	cmdHelp    = "help"
	cmdVersion = "version"
)

// invocation is a parsed command line.
type invocation struct {
	command    string // cmdHelp, cmdVersion, or "" to run pipeline
	pipeline   mailbuild.PipelineID
	deprecated string // alias the user typed, if deprecated
}

// parseCommand maps the positional words onto a pipeline.
// "serve dist" is spelled as two words; no words means the default pipeline.
func parseCommand(words []string) (invocation, error) {
	if len(words) == 0 {
		return invocation{pipeline: mailbuild.PipelineDefault}, nil
	}

	switch words[0] {
	case cmdHelp, cmdVersion:
		return invocation{command: words[0]}, nil
	}

	name := words[0]
	rest := words[1:]
	if name == string(mailbuild.PipelineServe) && len(rest) > 0 && rest[0] == "dist" {
		name = string(mailbuild.PipelineServeDist)
		rest = rest[1:]
	}
	if len(rest) > 0 {
		return invocation{}, fmt.Errorf("%w: unexpected argument %q", ErrUsage, rest[0])
	}

	id, deprecated, err := mailbuild.ParsePipelineID(name)
	if err != nil {
		return invocation{}, fmt.Errorf("%w: unknown command: %s", ErrUsage, name)
	}
	inv := invocation{pipeline: id}
	if deprecated {
		inv.deprecated = name
	}
	return inv, nil
}

// runMain runs the CLI and returns the process exit code.
func runMain(args []string, env *Environment) int {
	flags, words, err := parseFlags(args)
	if err != nil {
		fmt.Fprintf(env.Stderr, "error: %v\n\n", err)
		printUsage(env.Stderr)
		return ExitUsage
	}
	if flags.help {
		printUsage(env.Stdout)
		return ExitSuccess
	}

	inv, err := parseCommand(words)
	if err != nil {
		fmt.Fprintf(env.Stderr, "error: %v\n\n", err)
		printUsage(env.Stderr)
		return exitCodeFor(err)
	}
	switch inv.command {
	case cmdHelp:
		printUsage(env.Stdout)
		return ExitSuccess
	case cmdVersion:
		fmt.Fprintf(env.Stdout, "mailbuild %s\n", Version)
		return ExitSuccess
	}
	if inv.deprecated != "" {
		fmt.Fprintf(env.Stderr, "DEPRECATED: %q is deprecated, use %q\n", inv.deprecated, inv.pipeline)
	}

	warnUnknownEnvVars(env.Stderr)
	envCfg := loadEnvConfig()
	mergeEnvFlags(envCfg, flags)

	ctx, stop := notifyContext(context.Background())
	defer stop()

	result, err := runPipeline(ctx, inv.pipeline, flags, envCfg, env)
	printReport(env, result, err, flags)
	return exitCodeFor(err)
}

// runPipeline loads the project and executes one pipeline.
// Every configuration error surfaces before the first step runs.
func runPipeline(ctx context.Context, id mailbuild.PipelineID, flags *cliFlags, envCfg *envConfig, env *Environment) (*mailbuild.RunResult, error) {
	root, err := resolveRoot(flags.root)
	if err != nil {
		return nil, err
	}

	cfg, err := loadProjectConfig(flags.config, root)
	if err != nil {
		return nil, err
	}
	applyEnvConfig(envCfg, cfg)

	paths, err := mailbuild.NewPathRegistry(root, bindings(cfg)...)
	if err != nil {
		return nil, fmt.Errorf("paths: %w", err)
	}
	pipelines, err := mailbuild.DefaultPipelines()
	if err != nil {
		return nil, err
	}

	runner, err := mailbuild.NewRunner(paths, pipelines,
		mailbuild.WithSteps(steps.Catalog(cfg, env.deps())),
		mailbuild.WithLogger(newLogger(env, flags)),
		mailbuild.WithWorkers(flags.workers),
	)
	if err != nil {
		return nil, err
	}

	return runner.Run(ctx, mailbuild.RunRequest{
		Pipeline: string(id),
		Options:  mailbuild.Options{Template: flags.template},
	})
}

// resolveRoot returns the absolute project root; empty means the working directory.
func resolveRoot(dir string) (string, error) {
	if dir == "" {
		dir = "."
	}
	root, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving project root: %w", err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return "", fmt.Errorf("project root: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%w: project root %s is not a directory", ErrUsage, root)
	}
	return root, nil
}

// loadProjectConfig loads an explicit config, or discovers mailbuild.yaml in root.
// Explicit paths are relative to the working directory.
func loadProjectConfig(nameOrPath, root string) (*config.Config, error) {
	if nameOrPath == "" {
		cfg, _, err := config.Discover(root)
		return cfg, err
	}
	// A bare name is looked up in the project root before ~/.config/mailbuild.
	cfg, err := config.LoadConfig(nameOrPath, root)
	if errors.Is(err, config.ErrConfigNotFound) {
		var searched []string
		var nf *config.NotFoundError
		if errors.As(err, &nf) {
			searched = nf.Tried
		}
		return nil, fmt.Errorf("%w%s", err, hints.ForConfigNotFound(searched))
	}
	return cfg, err
}

// bindings converts the config's path map into registry bindings, sorted by name.
func bindings(cfg *config.Config) []mailbuild.Binding {
	names := make([]string, 0, len(cfg.Paths))
	for name := range cfg.Paths {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]mailbuild.Binding, 0, len(names))
	for _, name := range names {
		out = append(out, mailbuild.Binding{Name: name, Path: cfg.Paths[name]})
	}
	return out
}

// newLogger writes text records to stderr.
// --verbose shows debug records, --quiet only errors.
func newLogger(env *Environment, flags *cliFlags) *slog.Logger {
	level := slog.LevelInfo
	switch {
	case flags.quiet:
		level = slog.LevelError
	case flags.verbose:
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(env.Stderr, &slog.HandlerOptions{Level: level}))
}
