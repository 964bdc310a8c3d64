// Package runner executes external probe commands with a hard timeout.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"
)

// waitDelay bounds how long Wait blocks on output pipes after the process
// has been killed.
const waitDelay = 2 * time.Second

// ErrTimedOut reports that a command was killed because its timeout elapsed.
var ErrTimedOut = errors.New("command timed out")

// ExitError reports a command that ran but exited with a non-zero status.
type ExitError struct {
	Command string
	Code    int
	Stderr  string
}

func (e *ExitError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("%s exited with status %d: %s", e.Command, e.Code, e.Stderr)
	}
	return fmt.Sprintf("%s exited with status %d", e.Command, e.Code)
}

// SpawnError reports a command that could not be started.
type SpawnError struct {
	Command string
	Err     error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("start %s: %v", e.Command, e.Err)
}

func (e *SpawnError) Unwrap() error { return e.Err }

// RunOptions shapes one command. Env entries are appended to the
// inherited environment.
type RunOptions struct {
	Timeout time.Duration
	Dir     string
	Env     []string
}

type RunResult struct {
	Stdout []byte
	Stderr []byte
}

// Runner is the capability the detection engine uses to spawn probes.
type Runner interface {
	Run(ctx context.Context, command string, args []string, opts RunOptions) (RunResult, error)
}

// CmdRunner runs commands as child processes of the current process.
type CmdRunner struct{}

func (CmdRunner) Run(ctx context.Context, command string, args []string, opts RunOptions) (RunResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	runCtx := ctx
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, command, args...)
	if opts.Dir != "" {
		cmd.Dir = opts.Dir
	}
	if len(opts.Env) > 0 {
		cmd.Env = append(os.Environ(), opts.Env...)
	}
	cmd.WaitDelay = waitDelay
	configureKill(cmd)

	var stdoutBuf, stderrBuf bytes.Buffer
	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf

	if err := cmd.Start(); err != nil {
		return RunResult{}, &SpawnError{Command: command, Err: err}
	}

	err := cmd.Wait()
	result := RunResult{Stdout: stdoutBuf.Bytes(), Stderr: stderrBuf.Bytes()}
	if err == nil {
		return result, nil
	}

	// The parent context being cancelled is not a timeout of this probe.
	if ctx.Err() != nil {
		return result, fmt.Errorf("%s: %w", command, ctx.Err())
	}
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return result, fmt.Errorf("%s after %s: %w", command, opts.Timeout, ErrTimedOut)
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return result, &ExitError{
			Command: command,
			Code:    exitErr.ExitCode(),
			Stderr:  string(bytes.TrimSpace(stderrBuf.Bytes())),
		}
	}
	return result, fmt.Errorf("%s: %w", command, err)
}

var _ Runner = CmdRunner{}
