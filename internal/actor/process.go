package actor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"syscall"

	"github.com/bazelment/sessioncore/internal/ndjson"
	"github.com/bazelment/sessioncore/internal/procattr"
)

// ErrAlreadyStarted is returned by start when called on a Child that has
// already been started.
var ErrAlreadyStarted = errors.New("child already started")

// Child wraps the agent CLI subprocess: its line-delimited stdin/stdout and
// its raw stderr, plus the escalating stop sequence the actor's EOF and
// shutdown paths rely on. The process is always put in its own process
// group so a signal to -pid reaches any descendants it spawns.
type Child struct {
	cmd        *exec.Cmd
	stdin      *ndjson.Writer
	stdinCloser io.Closer
	stdout     *ndjson.Reader
	stderr     io.ReadCloser

	mu       sync.Mutex
	started  bool
	stopping bool
}

// ChildConfig describes how to launch the agent CLI subprocess, whether
// local or wrapped for SSH by the caller (the command string and args
// already reflect that choice by the time they reach StartChild).
type ChildConfig struct {
	Path string
	Args []string
	Env  []string
	Dir  string
}

// StartChild spawns the subprocess described by cfg and wires up its pipes.
// ctx governs the process's lifetime: cancellation kills it the same way
// context.Context cancellation always does for CommandContext.
func StartChild(ctx context.Context, cfg ChildConfig) (*Child, error) {
	c := &Child{}
	if err := c.start(ctx, cfg); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Child) start(ctx context.Context, cfg ChildConfig) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.started {
		return ErrAlreadyStarted
	}

	cmd := exec.CommandContext(ctx, cfg.Path, cfg.Args...)
	cmd.Env = cfg.Env
	if cmd.Env == nil {
		cmd.Env = os.Environ()
	}
	if cfg.Dir != "" {
		cmd.Dir = cfg.Dir
	}
	procattr.Set(cmd)

	stdinPipe, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("create stdin pipe: %w", err)
	}
	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("create stdout pipe: %w", err)
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("create stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return fmt.Errorf("agent CLI binary not found at %q: %w", cfg.Path, err)
		}
		return fmt.Errorf("start agent CLI process: %w", err)
	}

	c.cmd = cmd
	c.stdin = ndjson.NewWriter(stdinPipe)
	c.stdinCloser = stdinPipe
	c.stdout = ndjson.NewReader(stdoutPipe)
	c.stderr = stderrPipe
	c.started = true
	return nil
}

// WriteLine writes one pre-marshaled JSON line to the child's stdin.
func (c *Child) WriteLine(data []byte) error {
	c.mu.Lock()
	w := c.stdin
	c.mu.Unlock()
	if w == nil {
		return errors.New("child not started")
	}
	return w.WriteRaw(data)
}

// ReadLine returns the next line from the child's stdout.
func (c *Child) ReadLine() ([]byte, error) {
	c.mu.Lock()
	r := c.stdout
	c.mu.Unlock()
	if r == nil {
		return nil, errors.New("child not started")
	}
	return r.ReadLine()
}

// Stderr returns the child's stderr stream.
func (c *Child) Stderr() io.Reader {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stderr
}

// Pid returns the child's process id, or 0 if not started.
func (c *Child) Pid() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cmd == nil || c.cmd.Process == nil {
		return 0
	}
	return c.cmd.Process.Pid
}

// Wait blocks until the child exits and returns its error (nil on a clean
// zero exit).
func (c *Child) Wait() error {
	c.mu.Lock()
	cmd := c.cmd
	c.mu.Unlock()
	if cmd == nil {
		return errors.New("child not started")
	}
	return cmd.Wait()
}

// ExitCode extracts the process exit code from a Wait error: 0 if err is
// nil (clean exit), the exit status for an ExitError, nil otherwise.
func ExitCode(err error) *int {
	if err == nil {
		code := 0
		return &code
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		code := exitErr.ExitCode()
		return &code
	}
	return nil
}

// Terminate signals the child's whole process group with SIGTERM. It does
// not wait for exit: the caller is expected to already be watching for
// process exit (the actor's childExit channel) and to escalate to Kill if
// the child hasn't gone away after a grace period. Wait is called exactly
// once for the lifetime of a Child, by that same watcher, so Terminate and
// Kill must never call it themselves.
func (c *Child) Terminate() {
	c.mu.Lock()
	cmd := c.cmd
	already := c.stopping
	c.stopping = true
	c.mu.Unlock()

	if already || cmd == nil || cmd.Process == nil {
		return
	}
	_ = procattr.SignalGroup(cmd.Process, syscall.SIGTERM)
}

// CloseStdin closes the child's stdin, letting a cooperative process
// notice EOF and exit on its own before any signal is sent.
func (c *Child) CloseStdin() {
	c.mu.Lock()
	closer := c.stdinCloser
	c.mu.Unlock()
	if closer != nil {
		_ = closer.Close()
	}
}

// Kill sends SIGKILL to the child's whole process group.
func (c *Child) Kill() {
	c.mu.Lock()
	cmd := c.cmd
	c.mu.Unlock()
	if cmd == nil || cmd.Process == nil {
		return
	}
	_ = procattr.KillGroup(cmd.Process)
}
