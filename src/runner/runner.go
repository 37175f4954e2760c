// Package runner starts the external tools the CLI drives: cordova, npm,
// gulp and bower.
package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"

	"cameio-cli/src/logger"
)

// ErrNotInstalled is returned when the tool is not on PATH.
var ErrNotInstalled = errors.New("command not found")

// Runner runs a command in dir and waits for it.
type Runner interface {
	Run(ctx context.Context, dir, name string, args ...string) error
}

// Exec runs commands with os/exec, streaming their output.
type Exec struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	Log    logger.Logger
}

// NewExec creates a runner on the process standard streams.
func NewExec(log logger.Logger) *Exec {
	return &Exec{Stdin: os.Stdin, Stdout: os.Stdout, Stderr: os.Stderr, Log: log}
}

func (e *Exec) Run(ctx context.Context, dir, name string, args ...string) error {
	line := strings.TrimSpace(name + " " + strings.Join(args, " "))
	if _, err := exec.LookPath(name); err != nil {
		return fmt.Errorf("%s: %w", name, ErrNotInstalled)
	}

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	cmd.Stdin = e.Stdin
	cmd.Stdout = e.Stdout
	cmd.Stderr = e.Stderr

	e.Log.Debug("exec %q in %s", line, dir)
	if err := cmd.Run(); err != nil {
		e.Log.Error("exec %q failed: %v", line, err)
		return fmt.Errorf("%s: %w", line, err)
	}
	return nil
}

// Call is one recorded invocation.
type Call struct {
	Dir  string
	Name string
	Args []string
}

// String returns the command line.
func (c Call) String() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

// Recorder records invocations instead of running them. Fail maps a command
// line to the error it returns.
type Recorder struct {
	mu    sync.Mutex
	calls []Call
	Fail  map[string]error
	// OnRun runs for each call before Fail is consulted.
	OnRun func(Call)
}

func (r *Recorder) Run(ctx context.Context, dir, name string, args ...string) error {
	c := Call{Dir: dir, Name: name, Args: append([]string(nil), args...)}
	r.mu.Lock()
	r.calls = append(r.calls, c)
	r.mu.Unlock()

	if r.OnRun != nil {
		r.OnRun(c)
	}
	if err := r.Fail[c.String()]; err != nil {
		return err
	}
	return ctx.Err()
}

// Calls returns the recorded command lines in call order.
func (r *Recorder) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.calls))
	for i, c := range r.calls {
		out[i] = c.String()
	}
	return out
}

// Dirs returns the working directory of each recorded call.
func (r *Recorder) Dirs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.calls))
	for i, c := range r.calls {
		out[i] = c.Dir
	}
	return out
}
