package sessioncmd

import (
	"context"
	"fmt"
	"time"

	"github.com/bazelment/sessioncore/internal/actor"
	"github.com/bazelment/sessioncore/internal/adapter"
	"github.com/bazelment/sessioncore/internal/bus"
	"github.com/bazelment/sessioncore/internal/eventlog"
	"github.com/bazelment/sessioncore/internal/sessionerr"
	"github.com/bazelment/sessioncore/internal/sshwrap"
	"github.com/google/uuid"
)

// stopGracePeriod bounds how long StopSession waits for an actor to
// acknowledge Stop and actually terminate before giving up and evicting it
// from the map anyway; a hung child past this point is the actor's own
// quarantine/kill escalation's problem, not the caller's.
const stopGracePeriod = 5 * time.Second

// toolApprovalSettleDelay is how long ApproveSessionTool waits after
// respawning before sending the synthesized retry message, giving the CLI
// time to finish its own startup handshake. A future revision should
// replace this with waiting on the actor's own "ready" signal instead of a
// fixed sleep.
const toolApprovalSettleDelay = 500 * time.Millisecond

// Manager is the external control plane: the single place that knows how
// to turn a run's persisted metadata into a live actor, and how to route
// each external operation to the right one's mailbox.
type Manager struct {
	Sessions *SessionMap
	Locks    *SpawnLocks
	Runs     *RunStore
	Events   *eventlog.Writer
	Hosts    *sshwrap.HostConfig
	Sink     actor.Sink

	LocalClaudeBin string
	UserDefaults   adapter.UserDefaults
	Credentials    []Credential
	GlobalAuth     GlobalAuth
}

// NewManager wires together a Manager from its already-constructed parts.
func NewManager(runs *RunStore, events *eventlog.Writer, hosts *sshwrap.HostConfig, sink actor.Sink) *Manager {
	return &Manager{
		Sessions:       NewSessionMap(),
		Locks:          NewSpawnLocks(),
		Runs:           runs,
		Events:         events,
		Hosts:          hosts,
		Sink:           sink,
		LocalClaudeBin: "claude",
	}
}

// handle returns the live actor for runID or a sessionerr.ErrNotFound.
func (m *Manager) handle(runID string) (*actor.Handle, error) {
	h, ok := m.Sessions.Get(runID)
	if !ok {
		return nil, fmt.Errorf("run %q: %w", runID, sessionerr.ErrNotFound)
	}
	return h, nil
}

func (m *Manager) emitRunState(runID, state string, exitCode *int, errMsg string) {
	_ = m.Events.WriteBusEvent(runID, bus.RunState{
		Base:     bus.WithRunID(runID),
		State:    state,
		Error:    errMsg,
		ExitCode: exitCode,
	})
}

// spawnForRun resolves settings, credentials, and (if remote) the host,
// starts the subprocess, and returns a ready-to-install actor handle. It
// does not touch the SessionMap or RunStore; callers decide what to do
// with the handle and when to persist.
func (m *Manager) spawnForRun(ctx context.Context, meta *RunMeta, agent adapter.AgentOverrides, modelOverride string, mode adapter.SessionMode) (*actor.Handle, error) {
	settings := adapter.Build(agent, m.UserDefaults, modelOverride)
	if err := adapter.Validate(settings, mode); err != nil {
		return nil, &sessionerr.ConfigError{Cause: err, Message: "invalid adapter settings"}
	}

	auth := ResolveAuth(meta.PlatformID, m.Credentials, m.GlobalAuth)
	claudeArgs := BuildClaudeArgs(settings, mode, meta.SessionID)

	var child *actor.Child
	var err error
	if meta.RemoteHostName != "" || meta.RemoteHostSnapshot != nil {
		host, rerr := ResolveRemoteHost(meta, m.Hosts)
		if rerr != nil {
			return nil, rerr
		}
		if meta.RemoteHostSnapshot == nil {
			meta.RemoteHostSnapshot = SnapshotRemoteHost(*host)
		}
		cwd := meta.RemoteCWD
		if cwd == "" {
			cwd = host.RemoteCWD
		}
		child, err = SpawnRemote(ctx, *host, cwd, claudeArgs, auth)
	} else {
		child, err = SpawnLocal(ctx, m.LocalClaudeBin, meta.CWD, claudeArgs, auth)
	}
	if err != nil {
		return nil, err
	}

	turnIndex, autoCtxID, err := TurnBaseline(m.Events, meta.RunID, mode)
	if err != nil {
		child.Kill()
		return nil, err
	}

	runID := meta.RunID
	handle := actor.Spawn(actor.Config{
		RunID:            runID,
		Child:            child,
		EventWriter:      m.Events,
		Sink:             m.Sink,
		IsResume:         mode != adapter.ModeNew,
		InitialTurnIndex: turnIndex,
		InitialAutoCtxID: autoCtxID,
		RemoveSelf:       m.Sessions.Remove,
		Hooks: actor.Hooks{
			OnSessionID: func(sessionID string) {
				meta.SessionID = sessionID
				_ = m.Runs.Save(meta)
			},
			OnTerminal: func(state string, exitCode *int, errMsg string) {
				meta.Status = terminalStatus(state)
				meta.ExitCode = exitCode
				meta.ErrorMsg = errMsg
				_ = m.Runs.Save(meta)
			},
		},
	})
	return handle, nil
}

func terminalStatus(state string) RunStatus {
	if state == "failed" {
		return RunStatusFailed
	}
	return RunStatusStopped
}

// StartSession spawns a run that has no live actor yet: a brand new run,
// or a resume/continue of a previously-stopped one. Fork is never a valid
// mode here; ForkSession has its own one-shot spawn path.
func (m *Manager) StartSession(ctx context.Context, meta *RunMeta, agent adapter.AgentOverrides, modelOverride string, mode adapter.SessionMode) (*actor.Handle, error) {
	if mode == adapter.ModeFork {
		return nil, &sessionerr.ConfigError{Message: "fork sessions must be started via ForkSession, not StartSession"}
	}

	release := m.Locks.Acquire(meta.RunID)
	defer release()

	if _, alreadyLive := m.Sessions.Get(meta.RunID); alreadyLive {
		return nil, fmt.Errorf("run %q: %w", meta.RunID, sessionerr.ErrAlreadyStarted)
	}

	handle, err := m.spawnForRun(ctx, meta, agent, modelOverride, mode)
	if err != nil {
		meta.Status = RunStatusFailed
		meta.ErrorMsg = err.Error()
		_ = m.Runs.Save(meta)
		return nil, err
	}

	meta.Status = RunStatusRunning
	if err := m.Runs.Save(meta); err != nil {
		return nil, fmt.Errorf("persist run meta: %w", err)
	}
	m.Sessions.Put(handle)
	return handle, nil
}

// SendSessionMessage enqueues a user turn on runID's live actor.
func (m *Manager) SendSessionMessage(runID, text string, attachments []string) error {
	h, err := m.handle(runID)
	if err != nil {
		return err
	}
	reply := make(chan error, 1)
	h.Commands <- actor.SendMessage{Text: text, Attachments: attachments, Reply: reply}
	return <-reply
}

// stopActor removes runID from the SessionMap, asks its actor to stop, and
// waits (bounded by stopGracePeriod) for it to actually terminate. The map
// removal happens before the Stop command is sent so a concurrent
// StartSession for the same run id never races the entry being evicted by
// the actor's own RemoveSelf callback underneath it.
func (m *Manager) stopActor(h *actor.Handle) {
	m.Sessions.Remove(h.RunID, h.Tag)

	reply := make(chan struct{})
	h.Commands <- actor.Stop{Reply: reply}
	select {
	case <-reply:
	case <-time.After(stopGracePeriod):
	}

	select {
	case <-h.Done:
	case <-time.After(stopGracePeriod):
	}
}

// StopSession stops runID's live actor, if any. Stopping a run with no
// live actor is not an error: it's already stopped.
func (m *Manager) StopSession(runID string) error {
	release := m.Locks.Acquire(runID)
	defer release()

	h, ok := m.Sessions.Get(runID)
	if !ok {
		return nil
	}
	m.stopActor(h)
	return nil
}

// SendSessionControl writes a raw control request to runID's actor and
// returns a channel the response will arrive on.
func (m *Manager) SendSessionControl(runID string, request map[string]interface{}) (actor.SendControlResult, error) {
	h, err := m.handle(runID)
	if err != nil {
		return actor.SendControlResult{}, err
	}
	reply := make(chan actor.SendControlResult, 1)
	h.Commands <- actor.SendControl{Request: request, Reply: reply}
	result := <-reply
	return result, result.Err
}

// RespondPermission answers a pending can_use_tool control request.
// Allow always carries an updatedInput object, defaulting to empty, since
// the CLI's own schema validation requires the field to be present even
// when there's nothing to change; Message and Interrupt are ignored on
// allow.
func (m *Manager) RespondPermission(runID, requestID string, allow bool, message string, interrupt bool, updatedInput map[string]interface{}) error {
	h, err := m.handle(runID)
	if err != nil {
		return err
	}
	if allow && updatedInput == nil {
		updatedInput = map[string]interface{}{}
	}
	if !allow && message == "" {
		message = "User denied permission"
	}
	reply := make(chan error, 1)
	h.Commands <- actor.RespondPermission{
		RequestID:    requestID,
		Allow:        allow,
		Message:      message,
		Interrupt:    interrupt,
		UpdatedInput: updatedInput,
		Reply:        reply,
	}
	return <-reply
}

// RespondHookCallback answers a pending hook_callback control request.
func (m *Manager) RespondHookCallback(runID, requestID string, allow bool) error {
	h, err := m.handle(runID)
	if err != nil {
		return err
	}
	reply := make(chan error, 1)
	h.Commands <- actor.RespondHookCallback{RequestID: requestID, Allow: allow, Reply: reply}
	return <-reply
}

// CancelControlRequest sends a top-level control_cancel_request for a
// request the caller no longer wants an answer to.
func (m *Manager) CancelControlRequest(runID, requestID string) error {
	h, err := m.handle(runID)
	if err != nil {
		return err
	}
	reply := make(chan error, 1)
	h.Commands <- actor.CancelControlRequest{RequestID: requestID, Reply: reply}
	return <-reply
}

// ApproveSessionTool persists a newly-approved tool into the run's
// allowed-tools settings, then stops and respawns the actor in Continue
// mode so the subprocess picks up the wider allow-list, and finally
// resends the message that originally triggered the permission prompt so
// the turn the user was waiting on actually completes.
func (m *Manager) ApproveSessionTool(ctx context.Context, meta *RunMeta, agent *adapter.AgentOverrides, toolName, retryText string) error {
	release := m.Locks.Acquire(meta.RunID)
	defer release()

	hasTool := false
	for _, t := range agent.AllowedTools {
		if t == toolName {
			hasTool = true
			break
		}
	}
	if !hasTool {
		agent.AllowedTools = append(agent.AllowedTools, toolName)
	}

	if h, ok := m.Sessions.Get(meta.RunID); ok {
		m.stopActor(h)
	}

	handle, err := m.spawnForRun(ctx, meta, *agent, "", adapter.ModeContinue)
	if err != nil {
		meta.Status = RunStatusFailed
		meta.ErrorMsg = err.Error()
		_ = m.Runs.Save(meta)
		return err
	}
	meta.Status = RunStatusRunning
	if err := m.Runs.Save(meta); err != nil {
		return fmt.Errorf("persist run meta: %w", err)
	}
	m.Sessions.Put(handle)

	time.Sleep(toolApprovalSettleDelay)

	return m.SendSessionMessage(meta.RunID, retryText, nil)
}

// ForkSession creates a new run that shares history with source but gets
// its own CLI session id. Stream-json spawns are known to hang when asked
// to fork, so this uses a dedicated one-shot, non-streaming invocation
// (print mode, --resume --fork-session) purely to obtain the new session
// id; the caller still has to call StartSession against the returned meta
// to actually bring the fork's actor up.
func (m *Manager) ForkSession(ctx context.Context, source *RunMeta, newRunID string, oneShot func(ctx context.Context, sourceSessionID, cwd string) (newSessionID string, err error)) (*RunMeta, error) {
	release := m.Locks.Acquire(source.RunID)
	defer release()
	if h, ok := m.Sessions.Get(source.RunID); ok {
		m.stopActor(h)
	}

	if newRunID == "" {
		newRunID = uuid.NewString()
	}

	forked := &RunMeta{
		RunID:              newRunID,
		Agent:              source.Agent,
		Prompt:             source.Prompt,
		CWD:                source.CWD,
		Model:              source.Model,
		ParentRunID:        source.RunID,
		RemoteHostName:     source.RemoteHostName,
		RemoteCWD:          source.RemoteCWD,
		RemoteHostSnapshot: source.RemoteHostSnapshot,
		PlatformID:         source.PlatformID,
		Status:             RunStatusPending,
	}

	if err := m.Events.CopyBusEvents(source.RunID, newRunID); err != nil {
		return nil, fmt.Errorf("copy bus events for fork: %w", err)
	}

	newSessionID, err := oneShot(ctx, source.SessionID, source.CWD)
	if err != nil {
		forked.Status = RunStatusFailed
		forked.ErrorMsg = err.Error()
		_ = m.Runs.Save(forked)
		m.emitRunState(newRunID, "failed", nil, err.Error())
		return nil, &sessionerr.ProcessError{Cause: err, Message: "fork one-shot spawn"}
	}

	forked.SessionID = newSessionID
	if err := m.Runs.Save(forked); err != nil {
		return nil, fmt.Errorf("persist forked run meta: %w", err)
	}
	return forked, nil
}
