package sshwrap

import (
	"log/slog"
	"strconv"
	"strings"
)

// AuthConfig carries the auth material a remote claude invocation is
// prefixed with. APIKey and AuthToken are mutually exclusive — the caller
// (internal/sessioncmd, resolving a run's credentials) decides which one
// applies and never sets both; BuildRemoteClaudeCommand trusts that and
// clears whichever var it didn't set, so a stale value in the remote
// shell's own profile can't leak through.
type AuthConfig struct {
	APIKey       string
	AuthToken    string
	BaseURL      string
	DefaultModel string
	ExtraEnv     map[string]string
}

// BuildSSHCommand returns the ssh binary and argument list that runs
// remoteShellCommand on remote. The options are fixed: BatchMode so a
// stalled key prompt fails fast instead of hanging the actor, a 30s
// keepalive so a silent turn doesn't look like a dead link, and
// accept-new host-key checking so a first connection to a freshly
// provisioned host doesn't require an interactive prompt.
func BuildSSHCommand(remote RemoteHost, remoteShellCommand string) (string, []string) {
	args := []string{
		"-o", "BatchMode=yes",
		"-o", "ServerAliveInterval=30",
		"-o", "StrictHostKeyChecking=accept-new",
	}
	if remote.Port != 0 && remote.Port != 22 {
		args = append(args, "-p", strconv.Itoa(remote.Port))
	}
	if remote.KeyPath != "" {
		args = append(args, "-i", ExpandLocalTilde(remote.KeyPath))
	}
	target := remote.User + "@" + remote.Host
	args = append(args, target, remoteShellCommand)
	return "ssh", args
}

// validEnvKey matches the restricted charset extra env passthrough keys
// must satisfy before BuildRemoteClaudeCommand will inject them.
func validEnvKey(k string) bool {
	if k == "" {
		return false
	}
	for _, r := range k {
		if !(r >= 'A' && r <= 'Z') && !(r >= '0' && r <= '9') && r != '_' {
			return false
		}
	}
	return true
}

// BuildRemoteClaudeCommand builds the single shell command string run over
// the SSH channel: cd into the working directory, then exec the claude
// binary with an env-var prefix and the given CLI arguments. Everything
// that can contain attacker- or user-controlled bytes is escaped with
// ShellEscape/ShellEscapePath; nothing here is passed through exec.Command
// argv splitting, because the whole line has to cross the SSH channel as
// one string the remote shell re-parses.
func BuildRemoteClaudeCommand(remote RemoteHost, cwd string, claudeArgs []string, auth AuthConfig) string {
	claudeBin := remote.RemoteClaudePath
	if claudeBin == "" {
		claudeBin = "claude"
	}

	var parts []string
	parts = append(parts, "cd "+ShellEscapePath(cwd))

	var claudeParts []string
	switch {
	case auth.APIKey != "":
		claudeParts = append(claudeParts, "ANTHROPIC_API_KEY="+ShellEscape(auth.APIKey))
		claudeParts = append(claudeParts, "ANTHROPIC_AUTH_TOKEN=")
	case auth.AuthToken != "":
		claudeParts = append(claudeParts, "ANTHROPIC_AUTH_TOKEN="+ShellEscape(auth.AuthToken))
		claudeParts = append(claudeParts, "ANTHROPIC_API_KEY=")
	}
	if auth.BaseURL != "" {
		claudeParts = append(claudeParts, "ANTHROPIC_BASE_URL="+ShellEscape(auth.BaseURL))
	}
	if auth.DefaultModel != "" {
		for _, envVar := range []string{"ANTHROPIC_MODEL", "ANTHROPIC_DEFAULT_HAIKU_MODEL", "ANTHROPIC_DEFAULT_SONNET_MODEL", "ANTHROPIC_DEFAULT_OPUS_MODEL"} {
			claudeParts = append(claudeParts, envVar+"="+ShellEscape(auth.DefaultModel))
		}
	}
	for k, v := range auth.ExtraEnv {
		if !validEnvKey(k) {
			slog.Warn("skipping extra env key with invalid characters", "key", k)
			continue
		}
		claudeParts = append(claudeParts, k+"="+ShellEscape(v))
	}

	claudeParts = append(claudeParts, ShellEscapePath(claudeBin))
	for _, arg := range claudeArgs {
		claudeParts = append(claudeParts, ShellEscape(arg))
	}
	parts = append(parts, strings.Join(claudeParts, " "))

	return strings.Join(parts, " && ")
}
