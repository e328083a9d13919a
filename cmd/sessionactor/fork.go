package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/bazelment/sessioncore/internal/adapter"
	"github.com/bazelment/sessioncore/internal/sessioncmd"
	"github.com/bazelment/sessioncore/internal/sshwrap"
)

// forkOneShotTimeout bounds the one-shot, non-streaming fork invocation:
// it runs to completion (no long-lived mailbox), so a hang here can only
// be the subprocess itself never producing output.
const forkOneShotTimeout = 60 * time.Second

var forkCmd = &cobra.Command{
	Use:   "fork <source-run-id>",
	Short: "Fork a run onto a new CLI session, sharing its prior history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := newManager()
		if err != nil {
			return err
		}

		source, err := m.Runs.Load(args[0])
		if err != nil {
			return fmt.Errorf("load source run: %w", err)
		}
		if source.SessionID == "" {
			return fmt.Errorf("run %q has no session_id to fork from", source.RunID)
		}

		ctx, cancel := context.WithTimeout(context.Background(), forkOneShotTimeout)
		defer cancel()

		forked, err := m.ForkSession(ctx, source, "", forkOneShot(m, source))
		if err != nil {
			return fmt.Errorf("fork session: %w", err)
		}
		fmt.Println(forked.RunID)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(forkCmd)
}

// forkOneShot returns the one-shot spawn callback sessioncmd.ForkSession
// needs to obtain a new CLI session id for the fork. Stream-json mode is
// known to hang when asked to fork, so this runs a dedicated non-streaming
// invocation in print mode instead: --resume <source> --fork-session -p
// "(fork checkpoint)" --output-format json --max-turns 1, reading the
// session_id back out of the single JSON result object it prints.
func forkOneShot(m *sessioncmd.Manager, source *sessioncmd.RunMeta) func(ctx context.Context, sourceSessionID, cwd string) (string, error) {
	return func(ctx context.Context, sourceSessionID, cwd string) (string, error) {
		settings := adapter.Build(adapter.AgentOverrides{}, m.UserDefaults, "")
		flagArgs := adapter.BuildArgs(settings, false)

		claudeArgs := append([]string{
			"--resume", sourceSessionID,
			"--fork-session",
			"-p", "(fork checkpoint)",
			"--output-format", "json",
			"--max-turns", "1",
		}, flagArgs...)

		out, err := runForkOneShot(ctx, m, source, cwd, claudeArgs)
		if err != nil {
			return "", err
		}
		return extractForkSessionID(out)
	}
}

func runForkOneShot(ctx context.Context, m *sessioncmd.Manager, source *sessioncmd.RunMeta, cwd string, claudeArgs []string) ([]byte, error) {
	auth := sessioncmd.ResolveAuth(source.PlatformID, m.Credentials, m.GlobalAuth)

	if source.RemoteHostName == "" && source.RemoteHostSnapshot == nil {
		env := append(os.Environ(), sessioncmd.LocalEnv(auth)...)
		cmd := exec.CommandContext(ctx, m.LocalClaudeBin, claudeArgs...)
		cmd.Dir = cwd
		cmd.Env = stripClaudeCodeEnv(env)
		var stdout, stderr bytes.Buffer
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr
		if err := cmd.Run(); err != nil {
			return nil, fmt.Errorf("fork one-shot spawn failed: %w (stderr: %s)", err, stderr.String())
		}
		return stdout.Bytes(), nil
	}

	host, err := sessioncmd.ResolveRemoteHost(source, m.Hosts)
	if err != nil {
		return nil, fmt.Errorf("resolve remote host for fork: %w", err)
	}
	remoteCmd := sshwrap.BuildRemoteClaudeCommand(*host, cwd, claudeArgs, sessioncmd.RemoteAuthConfig(auth, *host))
	bin, sshArgs := sshwrap.BuildSSHCommand(*host, remoteCmd)
	cmd := exec.CommandContext(ctx, bin, sshArgs...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("fork one-shot remote spawn failed: %w (stderr: %s)", err, stderr.String())
	}
	return stdout.Bytes(), nil
}

func stripClaudeCodeEnv(env []string) []string {
	out := env[:0]
	for _, kv := range env {
		if strings.HasPrefix(kv, "CLAUDECODE=") {
			continue
		}
		out = append(out, kv)
	}
	return out
}

// extractForkSessionID parses the print-mode JSON result — a single
// object, or (rarely) an array of stream entries — and returns the
// session_id the CLI reports for the forked session.
func extractForkSessionID(out []byte) (string, error) {
	trimmed := bytes.TrimSpace(out)

	var arr []map[string]interface{}
	if err := json.Unmarshal(trimmed, &arr); err == nil {
		for i := len(arr) - 1; i >= 0; i-- {
			if sid, ok := arr[i]["session_id"].(string); ok && sid != "" {
				return sid, nil
			}
		}
		return "", fmt.Errorf("fork one-shot: no session_id in result array")
	}

	var obj map[string]interface{}
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		return "", fmt.Errorf("fork one-shot: parse result JSON: %w", err)
	}
	sid, ok := obj["session_id"].(string)
	if !ok || sid == "" {
		return "", fmt.Errorf("fork one-shot: no session_id in result object")
	}
	return sid, nil
}
