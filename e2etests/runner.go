// Package e2etests drives a built ftpvault binary as separate processes,
// the way a supervisor script would. Tests skip unless FTPVAULT_CMD names
// the binary.
package e2etests

import (
	"bytes"
	"io"
	"os"
	"os/exec"
	"strings"
	"testing"
)

// Runner executes ftpvault commands against a sandbox data directory.
type Runner struct {
	Cmd string // path to the ftpvault binary
}

// newRunner returns a Runner for $FTPVAULT_CMD or skips the test.
func newRunner(t *testing.T) *Runner {
	t.Helper()
	cmd := os.Getenv("FTPVAULT_CMD")
	if cmd == "" {
		t.Skip("FTPVAULT_CMD environment variable not set; skipping e2e tests")
	}
	return &Runner{Cmd: cmd}
}

// RunResult holds the output of a command execution.
type RunResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

func (r *Runner) command(sandbox string, stdin io.Reader, args ...string) *exec.Cmd {
	cmd := exec.Command(r.Cmd, args...)
	cmd.Env = append(os.Environ(), "FTPVAULT_DIR="+sandbox)
	cmd.Stdin = stdin
	return cmd
}

// Run executes an ftpvault command with FTPVAULT_DIR set to sandbox.
func (r *Runner) Run(sandbox string, args ...string) RunResult {
	return r.RunWithInput(sandbox, "", args...)
}

// RunWithInput is Run with input on standard input.
func (r *Runner) RunWithInput(sandbox, input string, args ...string) RunResult {
	cmd := r.command(sandbox, strings.NewReader(input), args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	code := exitCode(cmd.Run())
	return RunResult{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: code,
	}
}

// Start launches a long-running ftpvault command in the background. The
// caller waits on the returned command.
func (r *Runner) Start(sandbox string, args ...string) (*exec.Cmd, *bytes.Buffer, error) {
	cmd := r.command(sandbox, nil, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Start(); err != nil {
		return nil, nil, err
	}
	return cmd, &stderr, nil
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	if exitErr, ok := err.(*exec.ExitError); ok {
		return exitErr.ExitCode()
	}
	return -1
}
