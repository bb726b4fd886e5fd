// Package mailbuild orchestrates the build pipelines of an HTML email
// template project.
//
// # Quick Start
//
// Build the path and pipeline registries, bind step adapters, and run:
//
//	paths, err := mailbuild.NewPathRegistry(root, mailbuild.DefaultBindings()...)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	pipelines, err := mailbuild.DefaultPipelines()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	runner, err := mailbuild.NewRunner(paths, pipelines,
//	    mailbuild.WithSteps(steps),
//	    mailbuild.WithLogger(logger),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := runner.Run(ctx, mailbuild.RunRequest{Pipeline: "build"})
//
// # Paths
//
// A PathRegistry maps symbolic names (dist, tmp, templates, ...) to
// directories relative to the project root. Values may reference other
// names as "<name>"; every reference is resolved when the registry is built,
// so "<dist>/img" with dist=out resolves to "out/img".
//
// # Pipelines
//
// A pipeline is an ordered list of steps and references to other pipelines.
// Expansion is depth-first and fails on cycles. A concurrent pipeline becomes
// one fan-out/fan-in group; the next item starts only after every member of
// the group finished.
//
// # Running
//
// The Runner validates required options before any step runs. The first
// failing step halts the run and is reported as a PipelineFailedError
// wrapping the StepExecutionError. In a concurrent group the first failure
// cancels the remaining members.
//
// # Error Handling
//
// Every error type matches a sentinel through errors.Is:
//
//	var missing *mailbuild.MissingOptionError
//	if errors.As(err, &missing) {
//	    fmt.Println("pass --" + missing.Option)
//	}
//	if errors.Is(err, mailbuild.ErrPipelineFailed) { ... }
package mailbuild
