package main

import (
	"io"
	"os"
	"time"

	"github.com/alnah/go-mailbuild/internal/browser"
	"github.com/alnah/go-mailbuild/internal/process"
	"github.com/alnah/go-mailbuild/internal/steps"
)

// Environment holds injectable dependencies for testability.
// Nil collaborators fall back to the step package defaults.
type Environment struct {
	Now    func() time.Time
	Stdout io.Writer
	Stderr io.Writer

	Opener    browser.Opener        // nil never opens a browser
	Runner    process.CommandRunner // sass, sendmail
	NewSender steps.SenderFactory
}

// DefaultEnv returns the production environment.
func DefaultEnv() *Environment {
	return &Environment{
		Now:    time.Now,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
		Opener: browser.NewRodOpener(),
	}
}

// deps converts the environment into step collaborators.
func (e *Environment) deps() steps.Deps {
	return steps.Deps{
		Runner:    e.Runner,
		Opener:    e.Opener,
		NewSender: e.NewSender,
		Now:       e.Now,
	}
}
