package provider

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"unicode"

	"github.com/yllada/vpn-provider-cli/common"
)

// Output is the captured result of one provider invocation.
type Output struct {
	// Lines holds stdout split into lines with trailing whitespace removed.
	Lines    []string
	Stderr   string
	ExitCode int
}

// Runner executes a provider binary with discrete arguments.
type Runner interface {
	Run(ctx context.Context, bin string, args ...string) (*Output, error)
}

// ProcessError reports a provider process that exited non-zero, could not
// be started, or was stopped by its deadline. It matches
// common.ErrProcessFailure, and common.ErrTimeout when TimedOut is set.
type ProcessError struct {
	Command  string
	ExitCode int
	Stderr   string
	TimedOut bool
	Err      error
}

func (e *ProcessError) Error() string {
	switch {
	case e.TimedOut:
		return fmt.Sprintf("%s: timed out", e.Command)
	case e.ExitCode >= 0:
		return fmt.Sprintf("%s: exit %d: %v", e.Command, e.ExitCode, e.Err)
	default:
		return fmt.Sprintf("%s: %v", e.Command, e.Err)
	}
}

func (e *ProcessError) Unwrap() error {
	return e.Err
}

func (e *ProcessError) Is(target error) bool {
	return target == common.ErrProcessFailure || (e.TimedOut && target == common.ErrTimeout)
}

// ExecRunner runs provider binaries behind an elevation prefix such as
// "sudo". The argv is built from discrete tokens; no shell is involved.
type ExecRunner struct {
	elevation []string
}

// NewExecRunner creates a runner. elevation is split on whitespace; an
// empty elevation runs binaries directly.
func NewExecRunner(elevation string) *ExecRunner {
	return &ExecRunner{elevation: strings.Fields(elevation)}
}

// Run implements Runner. On failure the partial output is still returned
// together with a *ProcessError.
func (r *ExecRunner) Run(ctx context.Context, bin string, args ...string) (*Output, error) {
	argv := make([]string, 0, len(r.elevation)+1+len(args))
	argv = append(argv, r.elevation...)
	argv = append(argv, bin)
	argv = append(argv, args...)

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	out := &Output{
		Lines:  splitLines(stdout.String()),
		Stderr: strings.TrimSpace(stderr.String()),
	}
	if err == nil {
		return out, nil
	}

	perr := &ProcessError{
		Command:  strings.Join(argv, " "),
		ExitCode: -1,
		Stderr:   out.Stderr,
		Err:      err,
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		perr.ExitCode = exitErr.ExitCode()
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		perr.TimedOut = errors.Is(ctxErr, context.DeadlineExceeded)
		perr.Err = ctxErr
	}
	out.ExitCode = perr.ExitCode
	return out, perr
}

// splitLines splits command output into lines the way a line-oriented
// shell capture does: trailing whitespace is trimmed from every line and a
// final newline does not produce an empty line.
func splitLines(s string) []string {
	s = strings.TrimRightFunc(s, unicode.IsSpace)
	if s == "" {
		return nil
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRightFunc(line, unicode.IsSpace)
	}
	return lines
}
