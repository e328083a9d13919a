package sshwrap

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShellEscape_EscapesEmbeddedQuotes(t *testing.T) {
	assert.Equal(t, `'it'\''s'`, ShellEscape("it's"))
}

func TestShellEscape_Plain(t *testing.T) {
	assert.Equal(t, "'hello world'", ShellEscape("hello world"))
}

func TestShellEscapePath_PreservesLeadingTilde(t *testing.T) {
	assert.Equal(t, "~/'projects/my app'", ShellEscapePath("~/projects/my app"))
}

func TestShellEscapePath_NoTildeQuotesWhole(t *testing.T) {
	assert.Equal(t, "'/srv/app'", ShellEscapePath("/srv/app"))
}

func TestExpandLocalTilde_ExpandsAgainstHome(t *testing.T) {
	t.Setenv("HOME", "/home/tester")
	assert.Equal(t, "/home/tester/.ssh/id_ed25519", ExpandLocalTilde("~/.ssh/id_ed25519"))
}

func TestExpandLocalTilde_LeavesAbsolutePathAlone(t *testing.T) {
	assert.Equal(t, "/etc/ssh/key", ExpandLocalTilde("/etc/ssh/key"))
}
