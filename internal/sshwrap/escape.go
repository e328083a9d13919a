// Package sshwrap builds the shell-escaped remote command a Session Actor
// runs over ssh in place of a local subprocess, and resolves the named
// remote hosts it can target.
package sshwrap

import (
	"os"
	"strings"
)

// ShellEscape wraps s in single quotes, POSIX-safe against anything it
// contains: an embedded single quote becomes end-quote, escaped-quote,
// start-quote.
func ShellEscape(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// ShellEscapePath escapes s for use as a remote shell argument, preserving
// a leading "~/" outside the quotes so the remote shell still expands it.
// ShellEscape alone would quote the tilde too, defeating expansion.
func ShellEscapePath(s string) string {
	if rest, ok := strings.CutPrefix(s, "~/"); ok {
		return "~/" + ShellEscape(rest)
	}
	return ShellEscape(s)
}

// ExpandLocalTilde expands a leading "~/" against $HOME for a path used as
// a local argument (an ssh key path, say), which never passes through a
// shell and so needs real expansion rather than escaping.
func ExpandLocalTilde(path string) string {
	rest, ok := strings.CutPrefix(path, "~/")
	if !ok {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return home + "/" + rest
}
