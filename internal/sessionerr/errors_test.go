package sessionerr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfigError_UnwrapsToCause(t *testing.T) {
	cause := errors.New("no such host")
	err := &ConfigError{Message: "resolve remote host", Cause: cause}

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "resolve remote host")
}

func TestProcessError_IncludesExitCodeWhenNonzero(t *testing.T) {
	err := &ProcessError{Message: "spawn failed", ExitCode: 127}
	assert.Contains(t, err.Error(), "127")
}

func TestProcessError_OmitsExitCodeWhenZero(t *testing.T) {
	err := &ProcessError{Message: "spawn failed"}
	assert.NotContains(t, err.Error(), "exit code")
}

func TestIsRecoverable_NilErrIsRecoverable(t *testing.T) {
	assert.True(t, IsRecoverable(nil))
}

func TestIsRecoverable_ProcessErrorIsNotRecoverable(t *testing.T) {
	assert.False(t, IsRecoverable(&ProcessError{Message: "boom"}))
}

func TestIsRecoverable_CLINotFoundIsNotRecoverable(t *testing.T) {
	assert.False(t, IsRecoverable(&CLINotFoundError{Path: "/usr/bin/claude"}))
}

func TestIsRecoverable_SessionClosedIsNotRecoverable(t *testing.T) {
	assert.False(t, IsRecoverable(ErrSessionClosed))
}

func TestIsRecoverable_WrappedProcessExitedIsNotRecoverable(t *testing.T) {
	wrapped := &TurnError{Message: "turn failed", Cause: ErrProcessExited, TurnNumber: 3}
	assert.False(t, IsRecoverable(wrapped))
}

func TestIsRecoverable_ConfigErrorIsRecoverable(t *testing.T) {
	assert.True(t, IsRecoverable(&ConfigError{Message: "bad model name"}))
}

func TestIsRecoverable_ProtocolErrorIsRecoverable(t *testing.T) {
	assert.True(t, IsRecoverable(&ProtocolError{Message: "unknown type", Line: "{}"}))
}
