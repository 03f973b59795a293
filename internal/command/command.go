// Package command runs external tools (git, svn, bzr, patch) on behalf of
// the retrieval and patch stages. Callers depend on the Runner interface so
// tests can substitute a fake that never spawns a process.
package command

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/vk/distmake/internal/ctxlog"
)

// ErrNotFound is returned (wrapped) when the requested executable is not
// available on PATH.
var ErrNotFound = errors.New("executable not found")

// Runner executes a named program with arguments inside dir and returns
// its standard output.
type Runner interface {
	Run(ctx context.Context, dir string, name string, args ...string) (string, error)
}

// Exec is the Runner backed by os/exec. Env entries are appended to the
// inherited environment of every command.
type Exec struct {
	Env []string
}

// Run executes the command. Stderr is captured separately and included in
// the error message on failure.
func (e *Exec) Run(ctx context.Context, dir string, name string, args ...string) (string, error) {
	path, err := exec.LookPath(name)
	if err != nil {
		return "", fmt.Errorf("%s: %w", name, ErrNotFound)
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Dir = dir
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if len(e.Env) > 0 {
		cmd.Env = append(cmd.Environ(), e.Env...)
	}

	ctxlog.FromContext(ctx).Debug("Running command.", "command", name, "args", args, "dir", dir)
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("%s %s: %w (stderr: %s)",
			name, strings.Join(args, " "), err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}

// Available reports whether name can be found on PATH.
func Available(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}
