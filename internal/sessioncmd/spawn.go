package sessioncmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/bazelment/sessioncore/internal/actor"
	"github.com/bazelment/sessioncore/internal/adapter"
	"github.com/bazelment/sessioncore/internal/eventlog"
	"github.com/bazelment/sessioncore/internal/sessionerr"
	"github.com/bazelment/sessioncore/internal/sshwrap"
)

// claudeBaseArgs are the flags every streaming spawn carries regardless of
// session mode or adapter settings: stream-json in both directions,
// verbose system/result events, and permission prompts routed back over
// the control channel instead of the CLI's own interactive prompt.
var claudeBaseArgs = []string{
	"--output-format", "stream-json",
	"--input-format", "stream-json",
	"--verbose",
	"--permission-prompt-tool", "stdio",
}

// BuildClaudeArgs renders the full argument vector for a streaming spawn:
// base flags, then the session-mode flag, then the adapter's own settings
// flags, then --include-partial-messages if the settings ask for it. Fork
// never reaches here: it spawns a separate one-shot, non-streaming
// invocation (see ForkSession).
func BuildClaudeArgs(settings adapter.Settings, mode adapter.SessionMode, resumeSessionID string) []string {
	args := append([]string{}, claudeBaseArgs...)

	switch mode {
	case adapter.ModeResume, adapter.ModeContinue:
		args = append(args, "--resume", resumeSessionID)
	}

	args = append(args, adapter.BuildArgs(settings, false)...)

	if settings.IncludePartialMessages {
		args = append(args, "--include-partial-messages")
	}

	return args
}

// ResolveRemoteHost prefers a run's own snapshot of its remote host over a
// name-based lookup against the live host config: a snapshot is what that
// run was actually started against, and a host config entry can be
// renamed or deleted out from under a run that predates the edit. Runs
// that predate snapshotting entirely (meta.RemoteHostSnapshot is nil) fall
// back to the name lookup.
func ResolveRemoteHost(meta *RunMeta, hosts *sshwrap.HostConfig) (*sshwrap.RemoteHost, error) {
	if meta.RemoteHostSnapshot != nil {
		snap := meta.RemoteHostSnapshot
		return &sshwrap.RemoteHost{
			Name:             snap.Name,
			Host:             snap.Host,
			User:             snap.User,
			Port:             snap.Port,
			KeyPath:          snap.KeyPath,
			RemoteCWD:        snap.RemoteCWD,
			RemoteClaudePath: snap.RemoteClaudePath,
			ForwardAPIKey:    snap.ForwardAPIKey,
		}, nil
	}
	if meta.RemoteHostName == "" {
		return nil, &sessionerr.ConfigError{Message: fmt.Sprintf("run %q has no remote host snapshot or name", meta.RunID)}
	}
	host, err := hosts.Resolve(meta.RemoteHostName)
	if err != nil {
		return nil, &sessionerr.ConfigError{Cause: err, Message: "resolve remote host"}
	}
	return host, nil
}

// SnapshotRemoteHost captures host into the form persisted on a run's
// metadata, taken at spawn time so later resumes are immune to the named
// host config entry changing underneath them.
func SnapshotRemoteHost(host sshwrap.RemoteHost) *RemoteHostSnapshot {
	return &RemoteHostSnapshot{
		Name:             host.Name,
		Host:             host.Host,
		User:             host.User,
		Port:             host.Port,
		KeyPath:          host.KeyPath,
		RemoteCWD:        host.RemoteCWD,
		RemoteClaudePath: host.RemoteClaudePath,
		ForwardAPIKey:    host.ForwardAPIKey,
	}
}

// TurnBaseline computes the InitialTurnIndex/InitialAutoCtxID a new actor
// should be constructed with. A brand new session starts both counters at
// 1; a resumed or continued session picks up where the persisted event
// log left off, so turn_index in freshly-written events never collides
// with what a replay of the prior events already showed a viewer.
func TurnBaseline(writer *eventlog.Writer, runID string, mode adapter.SessionMode) (turnIndex, autoCtxID int, err error) {
	if mode == adapter.ModeNew {
		return 1, 1, nil
	}
	total, normal, err := writer.CountUserMessages(runID)
	if err != nil {
		return 0, 0, fmt.Errorf("compute turn baseline: %w", err)
	}
	return total + 1, normal + 1, nil
}

// localChildEnv builds the environment a locally-spawned child runs with:
// the parent's own environment, minus CLAUDECODE (the CLI changes
// behavior when it detects it's already running inside a Claude Code
// session, which an actor-managed subprocess never is), plus whatever
// auth variables the resolved credential contributes.
func localChildEnv(auth ResolvedAuth) []string {
	base := os.Environ()
	env := make([]string, 0, len(base)+8)
	for _, kv := range base {
		if strings.HasPrefix(kv, "CLAUDECODE=") {
			continue
		}
		env = append(env, kv)
	}
	env = append(env, LocalEnv(auth)...)
	return env
}

// SpawnLocal starts the agent CLI directly as a child process.
func SpawnLocal(ctx context.Context, claudeBin, cwd string, args []string, auth ResolvedAuth) (*actor.Child, error) {
	child, err := actor.StartChild(ctx, actor.ChildConfig{
		Path: claudeBin,
		Args: args,
		Env:  localChildEnv(auth),
		Dir:  cwd,
	})
	if err != nil {
		return nil, &sessionerr.ProcessError{Cause: err, Message: "spawn local agent CLI"}
	}
	return child, nil
}

// SpawnRemote starts the agent CLI over ssh, wrapping it in the cd-and-env
// shell command sshwrap builds. ctx cancellation kills the local ssh
// client process; the remote side's own lifetime is whatever that process
// controls.
func SpawnRemote(ctx context.Context, remote sshwrap.RemoteHost, cwd string, args []string, auth ResolvedAuth) (*actor.Child, error) {
	remoteCmd := sshwrap.BuildRemoteClaudeCommand(remote, cwd, args, RemoteAuthConfig(auth, remote))
	bin, sshArgs := sshwrap.BuildSSHCommand(remote, remoteCmd)

	child, err := actor.StartChild(ctx, actor.ChildConfig{
		Path: bin,
		Args: sshArgs,
	})
	if err != nil {
		return nil, &sessionerr.ProcessError{Cause: err, Message: "spawn remote agent CLI over ssh"}
	}
	return child, nil
}
