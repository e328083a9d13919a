// Package sessionerr defines the typed error taxonomy that crosses actor,
// sshwrap, and adapter failures into a small set of categories a caller can
// branch on with errors.As, instead of string-matching.
package sessionerr

import (
	"errors"
	"fmt"
)

// Sentinel errors for conditions that don't carry extra context.
var (
	ErrAlreadyStarted   = errors.New("run already started")
	ErrNotFound         = errors.New("run not found")
	ErrAlreadyStopping  = errors.New("run is stopping")
	ErrSessionClosed    = errors.New("session is closed")
	ErrTimeout          = errors.New("operation timed out")
	ErrProcessExited    = errors.New("agent CLI process exited unexpectedly")
	ErrBudgetExceeded   = errors.New("budget limit exceeded")
	ErrMaxTurnsExceeded = errors.New("max turns exceeded")
)

// ConfigError wraps a failure to resolve the configuration a run needs
// before it can spawn: a missing remote host, invalid adapter settings, an
// unresolvable credential.
type ConfigError struct {
	Cause   error
	Message string
}

func (e *ConfigError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("config error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("config error: %s", e.Message)
}

func (e *ConfigError) Unwrap() error { return e.Cause }

// CLINotFoundError indicates the agent CLI binary could not be located,
// locally or (by exit status) on a remote host.
type CLINotFoundError struct {
	Path  string
	Cause error
}

func (e *CLINotFoundError) Error() string {
	return fmt.Sprintf("agent CLI binary not found at %q: %v", e.Path, e.Cause)
}

func (e *CLINotFoundError) Unwrap() error { return e.Cause }

// ProcessError wraps a subprocess-level failure: a nonzero exit, a spawn
// failure, an ssh connection failure.
type ProcessError struct {
	Cause    error
	Message  string
	Stderr   string
	ExitCode int
}

func (e *ProcessError) Error() string {
	if e.ExitCode != 0 {
		return fmt.Sprintf("process error: %s (exit code %d)", e.Message, e.ExitCode)
	}
	return fmt.Sprintf("process error: %s", e.Message)
}

func (e *ProcessError) Unwrap() error { return e.Cause }

// ProtocolError wraps a line the parser could not make sense of.
type ProtocolError struct {
	Cause   error
	Message string
	Line    string
}

func (e *ProtocolError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("protocol error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("protocol error: %s", e.Message)
}

func (e *ProtocolError) Unwrap() error { return e.Cause }

// TurnError wraps a failure during turn execution: a timeout, a rejected
// dispatch, an interrupted turn.
type TurnError struct {
	Cause      error
	Message    string
	TurnNumber int
}

func (e *TurnError) Error() string {
	return fmt.Sprintf("turn %d error: %s", e.TurnNumber, e.Message)
}

func (e *TurnError) Unwrap() error { return e.Cause }

// IsRecoverable reports whether the caller should consider retrying the
// operation that produced err. Process-level failures and missing
// binaries never are; most configuration and protocol errors are, since a
// caller can correct input and retry.
func IsRecoverable(err error) bool {
	if err == nil {
		return true
	}

	var procErr *ProcessError
	if errors.As(err, &procErr) {
		return false
	}

	var cliErr *CLINotFoundError
	if errors.As(err, &cliErr) {
		return false
	}

	if errors.Is(err, ErrSessionClosed) || errors.Is(err, ErrProcessExited) {
		return false
	}

	return true
}
