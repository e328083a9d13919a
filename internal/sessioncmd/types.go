// Package sessioncmd is the external control plane: it resolves a run's
// persisted metadata and settings into a spawned Session Actor, and routes
// the external operations (send a message, stop, fork, respond to a
// permission prompt) to the right actor's mailbox.
package sessioncmd

import "time"

// RemoteHostSnapshot is the subset of sshwrap.RemoteHost captured into a
// run's metadata at spawn time, so a later resume of that run targets the
// same host even if the named host config entry is edited or removed
// afterward.
type RemoteHostSnapshot struct {
	Name             string `json:"name"`
	Host             string `json:"host"`
	User             string `json:"user"`
	Port             int    `json:"port"`
	KeyPath          string `json:"key_path,omitempty"`
	RemoteCWD        string `json:"remote_cwd,omitempty"`
	RemoteClaudePath string `json:"remote_claude_path,omitempty"`
	ForwardAPIKey    bool   `json:"forward_api_key"`
}

// RunMeta is the persisted record a run is reconstructed from: enough to
// respawn its subprocess on resume, continue, or fork without the caller
// re-supplying anything.
type RunMeta struct {
	RunID              string              `json:"run_id"`
	Agent              string              `json:"agent"`
	Prompt             string              `json:"prompt"`
	CWD                string              `json:"cwd"`
	Model              string              `json:"model,omitempty"`
	SessionID          string              `json:"session_id,omitempty"`
	Status             RunStatus           `json:"status"`
	ParentRunID        string              `json:"parent_run_id,omitempty"`
	RemoteHostName     string              `json:"remote_host_name,omitempty"`
	RemoteCWD          string              `json:"remote_cwd,omitempty"`
	RemoteHostSnapshot *RemoteHostSnapshot `json:"remote_host_snapshot,omitempty"`
	PlatformID         string              `json:"platform_id,omitempty"`
	CreatedAt          time.Time           `json:"created_at"`
	UpdatedAt          time.Time           `json:"updated_at"`
	ExitCode           *int                `json:"exit_code,omitempty"`
	ErrorMsg           string              `json:"error_msg,omitempty"`
}

// RunStatus is the closed set of persisted run states, distinct from the
// richer bus.RunState.State strings an actor publishes while live (e.g.
// "spawning", "idle", "draining" never get their own RunStatus — they
// collapse to Running until a terminal state is reached).
type RunStatus string

const (
	RunStatusPending RunStatus = "pending"
	RunStatusRunning RunStatus = "running"
	RunStatusStopped RunStatus = "stopped"
	RunStatusFailed  RunStatus = "failed"
	RunStatusDone    RunStatus = "done"
)
