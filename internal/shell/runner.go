package shell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	osexec "os/exec"
	"strings"
)

// Runner executes external programs from an argument vector. Arguments are never
// joined into a shell string, so names containing quotes, spaces or metacharacters reach
// the program unchanged.
type Runner struct {
	env []string
}

// Result holds the captured output of a finished command.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// RunError reports a command that could not start or exited non-zero.
type RunError struct {
	Command  []string
	ExitCode int
	Stderr   string
	Err      error
}

// Error implements the error interface.
func (e *RunError) Error() string {
	msg := fmt.Sprintf("command %v failed with exit code %d", e.Command, e.ExitCode)
	if e.Stderr != "" {
		msg += ": " + firstLine(e.Stderr)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *RunError) Unwrap() error {
	return e.Err
}

// New creates a Runner. Commands inherit the process environment with the locale pinned
// to C so that listing output is stable across hosts.
func New() *Runner {
	env := append(os.Environ(), "LC_ALL=C", "LANG=C")
	return &Runner{env: env}
}

// Run executes args[0] with args[1:] in dir (the current directory when empty). The
// command is killed when ctx is done; the returned error then wraps ctx.Err().
func (r *Runner) Run(ctx context.Context, dir string, args ...string) (*Result, error) {
	if len(args) == 0 {
		return nil, &RunError{ExitCode: -1, Err: osexec.ErrNotFound}
	}

	cmd := osexec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Dir = dir
	cmd.Env = r.env

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	result := &Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: -1,
	}
	if cmd.ProcessState != nil {
		result.ExitCode = cmd.ProcessState.ExitCode()
	}

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = errors.Join(ctxErr, err)
		}
		return result, &RunError{
			Command:  args,
			ExitCode: result.ExitCode,
			Stderr:   result.Stderr,
			Err:      err,
		}
	}

	return result, nil
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
