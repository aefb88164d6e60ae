package stage

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
	"time"
)

// CommandLog captures one external command invocation result.
type CommandLog struct {
	Command  string
	Args     []string
	ExitCode int
	Stdout   string
	Stderr   string
}

// Diagnostic condenses the invocation outcome for the job record. Only the
// tail of stderr is kept; tool output can run to megabytes.
func (l CommandLog) Diagnostic() string {
	tail := l.Stderr
	if tail == "" {
		tail = l.Stdout
	}
	const maxDiagnostic = 2000
	if len(tail) > maxDiagnostic {
		tail = tail[len(tail)-maxDiagnostic:]
	}
	return strings.TrimSpace(tail)
}

// Runner abstracts process execution for testability. Commands are always
// invoked with a structured argument list; nothing passes through a shell.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (CommandLog, error)
}

// runTimed runs one command under its own deadline. Each invocation gets a
// fresh budget, so a fallback attempt after a timed-out primary is not
// started against an already-expired context.
func runTimed(ctx context.Context, r Runner, budget time.Duration, name string, args ...string) (CommandLog, error) {
	if budget > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, budget)
		defer cancel()
	}
	return r.Run(ctx, name, args...)
}

// execRunner executes commands via os/exec.
type execRunner struct{}

// NewExecRunner returns the production runner.
func NewExecRunner() Runner {
	return &execRunner{}
}

// Run executes one command and captures stdout/stderr and exit code. Context
// expiry kills the process and surfaces as a non-nil error, identical to a
// non-zero exit.
func (r *execRunner) Run(ctx context.Context, name string, args ...string) (CommandLog, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	log := CommandLog{
		Command:  name,
		Args:     args,
		ExitCode: 0,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
	}
	if err != nil {
		log.ExitCode = -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			log.ExitCode = exitErr.ExitCode()
		}
		return log, err
	}

	return log, nil
}
