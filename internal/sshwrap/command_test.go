package sshwrap

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildSSHCommand_DefaultOptions(t *testing.T) {
	path, args := BuildSSHCommand(RemoteHost{Host: "box", User: "dev", Port: 22}, "echo hi")

	assert.Equal(t, "ssh", path)
	assert.Equal(t, []string{
		"-o", "BatchMode=yes",
		"-o", "ServerAliveInterval=30",
		"-o", "StrictHostKeyChecking=accept-new",
		"dev@box",
		"echo hi",
	}, args)
}

func TestBuildSSHCommand_NonDefaultPortAndKey(t *testing.T) {
	path, args := BuildSSHCommand(RemoteHost{Host: "box", User: "dev", Port: 2222, KeyPath: "/etc/ssh/key"}, "cmd")

	assert.Equal(t, "ssh", path)
	assert.Contains(t, args, "-p")
	assert.Contains(t, args, "2222")
	assert.Contains(t, args, "-i")
	assert.Contains(t, args, "/etc/ssh/key")
	assert.Equal(t, "dev@box", args[len(args)-2])
	assert.Equal(t, "cmd", args[len(args)-1])
}

func TestBuildRemoteClaudeCommand_CDAndBinary(t *testing.T) {
	cmd := BuildRemoteClaudeCommand(RemoteHost{}, "/srv/repo", []string{"--output-format", "stream-json"}, AuthConfig{})

	assert.True(t, strings.HasPrefix(cmd, "cd '/srv/repo' && "))
	assert.Contains(t, cmd, "'claude'")
	assert.Contains(t, cmd, "'--output-format'")
	assert.Contains(t, cmd, "'stream-json'")
}

func TestBuildRemoteClaudeCommand_CustomBinaryAndTildeCWD(t *testing.T) {
	cmd := BuildRemoteClaudeCommand(RemoteHost{RemoteClaudePath: "~/.local/bin/claude"}, "~/projects/app", nil, AuthConfig{})

	assert.True(t, strings.HasPrefix(cmd, "cd ~/'projects/app' && "))
	assert.Contains(t, cmd, "~/'.local/bin/claude'")
}

func TestBuildRemoteClaudeCommand_APIKeyClearsAuthToken(t *testing.T) {
	cmd := BuildRemoteClaudeCommand(RemoteHost{}, "/srv", nil, AuthConfig{APIKey: "sk-test"})

	assert.Contains(t, cmd, "ANTHROPIC_API_KEY='sk-test'")
	assert.Contains(t, cmd, "ANTHROPIC_AUTH_TOKEN=")
	assert.False(t, strings.Contains(cmd, "ANTHROPIC_AUTH_TOKEN='"))
}

func TestBuildRemoteClaudeCommand_AuthTokenClearsAPIKey(t *testing.T) {
	cmd := BuildRemoteClaudeCommand(RemoteHost{}, "/srv", nil, AuthConfig{AuthToken: "tok-test"})

	assert.Contains(t, cmd, "ANTHROPIC_AUTH_TOKEN='tok-test'")
	assert.Contains(t, cmd, "ANTHROPIC_API_KEY=")
	assert.False(t, strings.Contains(cmd, "ANTHROPIC_API_KEY='"))
}

func TestBuildRemoteClaudeCommand_DefaultModelSetsAllThree(t *testing.T) {
	cmd := BuildRemoteClaudeCommand(RemoteHost{}, "/srv", nil, AuthConfig{DefaultModel: "glm-4.6"})

	assert.Contains(t, cmd, "ANTHROPIC_MODEL='glm-4.6'")
	assert.Contains(t, cmd, "ANTHROPIC_DEFAULT_HAIKU_MODEL='glm-4.6'")
	assert.Contains(t, cmd, "ANTHROPIC_DEFAULT_SONNET_MODEL='glm-4.6'")
	assert.Contains(t, cmd, "ANTHROPIC_DEFAULT_OPUS_MODEL='glm-4.6'")
}

func TestBuildRemoteClaudeCommand_ExtraEnvRejectsBadKeys(t *testing.T) {
	cmd := BuildRemoteClaudeCommand(RemoteHost{}, "/srv", nil, AuthConfig{
		ExtraEnv: map[string]string{
			"GOOD_KEY_1": "ok",
			"bad-key":    "should be dropped",
		},
	})

	assert.Contains(t, cmd, "GOOD_KEY_1='ok'")
	assert.NotContains(t, cmd, "bad-key")
	assert.NotContains(t, cmd, "should be dropped")
}
