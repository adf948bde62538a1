// Package system provides a narrow capability interface for driving external
// tools (makepkg, pacman, git, flatpak, snap) so callers can be tested
// without spawning real processes.
package system

import (
	"context"
	"os"
	"os/exec"
)

// Runner executes external commands.
type Runner interface {
	// Run executes name with args in dir (empty dir = inherit cwd), wiring
	// the child to the caller's stdin/stdout/stderr so interactive tools can
	// prompt the user. Returns an *exec.ExitError for non-zero exits.
	Run(ctx context.Context, dir, name string, args ...string) error

	// Output executes name with args in dir and returns captured stdout.
	Output(ctx context.Context, dir, name string, args ...string) ([]byte, error)

	// Look reports whether name resolves to an executable on PATH.
	Look(name string) bool
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

// NewRunner returns a Runner backed by os/exec.
func NewRunner() Runner { return ExecRunner{} }

// Run implements Runner.
func (ExecRunner) Run(ctx context.Context, dir, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

// Output implements Runner.
func (ExecRunner) Output(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	return cmd.Output()
}

// Look implements Runner.
func (ExecRunner) Look(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}

// ExitCode extracts the process exit code from an error returned by Run.
// Returns -1 when the error is not an exit status (e.g. the binary is
// missing or the process was killed).
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	if exitErr, ok := err.(*exec.ExitError); ok {
		return exitErr.ExitCode()
	}
	return -1
}
