// Package process runs external tools (the Sass compiler, sendmail) so that
// cancellation stops the tool together with every child it spawned.
package process

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"
)

// WaitDelay bounds how long Run waits for output pipes after the process was killed.
var WaitDelay = 2 * time.Second

// Command describes one external invocation.
type Command struct {
	Name  string
	Args  []string
	Dir   string
	Stdin io.Reader
}

func (c Command) String() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

// CommandRunner abstracts command execution to enable testing without real subprocesses.
type CommandRunner interface {
	Run(ctx context.Context, cmd Command) (stdout, stderr string, err error)
}

// ExecRunner implements CommandRunner using os/exec.
// The child runs in its own process group, killed as a whole when ctx ends.
type ExecRunner struct{}

// Run starts cmd and waits for it.
func (ExecRunner) Run(ctx context.Context, c Command) (string, string, error) {
	cmd := exec.CommandContext(ctx, c.Name, c.Args...) // #nosec G204 -- command comes from project config
	cmd.Dir = c.Dir
	cmd.Stdin = c.Stdin

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	setProcessGroup(cmd)
	cmd.Cancel = func() error {
		if cmd.Process != nil {
			KillProcessGroup(cmd.Process.Pid)
		}
		return nil
	}
	cmd.WaitDelay = WaitDelay

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return stdout.String(), stderr.String(), fmt.Errorf("%s: %w", c.Name, ctx.Err())
		}
		return stdout.String(), stderr.String(), fmt.Errorf("%s: %w", c.Name, err)
	}
	return stdout.String(), stderr.String(), nil
}
