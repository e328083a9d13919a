package actor

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/bazelment/sessioncore/internal/bus"
	"github.com/bazelment/sessioncore/internal/wire"
)

var (
	errTerminated   = errors.New("Session terminated")
	errNoSuchWaiter = errors.New("no pending control request with that id")
)

func newControlRequestID() string {
	return "ocv_ctrl_" + uuid.NewString()
}

func newQuarantineInterruptID() string {
	return "ocv_qint_" + uuid.NewString()
}

// handleSendControl writes request to stdin under a freshly generated id,
// registers a waiter, and hands the caller back a channel it can read the
// eventual response from outside the actor loop.
func (a *actor) handleSendControl(c SendControl) {
	if a.terminated {
		c.Reply <- SendControlResult{Err: errTerminated}
		return
	}

	requestID := newControlRequestID()
	envelope := wire.ControlRequestToSend{
		Type:      "control_request",
		RequestID: requestID,
		Request:   c.Request,
	}
	line, err := envelope.Marshal()
	if err != nil {
		c.Reply <- SendControlResult{Err: err}
		return
	}
	if err := a.child.WriteLine(line); err != nil {
		c.Reply <- SendControlResult{Err: err}
		return
	}

	if subtype, _ := c.Request["subtype"].(string); subtype == "interrupt" {
		a.interruptedByUser = true
	}

	waiter := make(chan wire.ControlResponsePayload, 1)
	a.controlWaiters[requestID] = waiter
	c.Reply <- SendControlResult{RequestID: requestID, Response: waiter}
}

// handleStop begins the shutdown sequence but does not reply right away:
// the reply fires once the child has actually exited, so a caller that
// waits on it knows the process is really gone.
func (a *actor) handleStop(c Stop) {
	a.stopReplies = append(a.stopReplies, c.Reply)
	a.failAllQueued(errTerminated)

	if a.stopRequested {
		return
	}
	a.stopRequested = true
	a.active = nil
	a.child.CloseStdin()
	a.child.Terminate()
	a.stopKillAt = time.Now().Add(500 * time.Millisecond)
}

func (a *actor) handleRespondPermission(c RespondPermission) {
	if _, ok := a.pendingPermission[c.RequestID]; !ok {
		c.Reply <- errNoSuchWaiter
		return
	}
	delete(a.pendingPermission, c.RequestID)

	var payload interface{}
	if c.Allow {
		input := c.UpdatedInput
		if input == nil {
			input = map[string]interface{}{}
		}
		payload = wire.PermissionResultAllow{
			Behavior:     wire.PermissionBehaviorAllow,
			UpdatedInput: input,
		}
	} else {
		payload = wire.PermissionResultDeny{
			Behavior:  wire.PermissionBehaviorDeny,
			Message:   c.Message,
			Interrupt: c.Interrupt,
		}
	}
	c.Reply <- a.sendControlResponse(c.RequestID, "can_use_tool", payload)
}

func (a *actor) handleRespondHookCallback(c RespondHookCallback) {
	if _, ok := a.pendingHookCallback[c.RequestID]; !ok {
		c.Reply <- errNoSuchWaiter
		return
	}
	delete(a.pendingHookCallback, c.RequestID)
	c.Reply <- a.sendControlResponse(c.RequestID, "hook_callback", map[string]interface{}{"allow": c.Allow})
}

func (a *actor) handleCancelControlRequest(c CancelControlRequest) {
	delete(a.controlWaiters, c.RequestID)
	b, err := json.Marshal(wire.ControlCancelRequest{
		Type:      wire.MessageTypeControlCancel,
		RequestID: c.RequestID,
	})
	if err != nil {
		c.Reply <- err
		return
	}
	c.Reply <- a.child.WriteLine(b)
}

func (a *actor) sendControlResponse(requestID, subtype string, payload interface{}) error {
	resp := wire.ControlResponse{
		Type: "control_response",
		Response: wire.ControlResponsePayload{
			Subtype:   subtype,
			RequestID: requestID,
			Response:  payload,
		},
	}
	line, err := resp.Marshal()
	if err != nil {
		return err
	}
	return a.child.WriteLine(line)
}

// routeControlRequestFromChild handles a control_request the child
// initiated: can_use_tool becomes a PermissionPrompt on the public bus and
// awaits RespondPermission; hook_callback becomes a HookCallback event,
// auto-approved immediately unless it's PreToolUse (which needs a real
// answer, since it can block or rewrite the tool call).
func (a *actor) routeControlRequestFromChild(m wire.ControlRequest) {
	parsed, err := m.ParsedRequest()
	if err != nil {
		return
	}

	if a.quarantine {
		a.autoRespondDuringQuarantine(m.RequestID, parsed)
		return
	}

	now := time.Now()
	switch req := parsed.(type) {
	case wire.CanUseToolRequest:
		a.pendingPermission[m.RequestID] = struct{}{}
		a.publish(bus.PermissionPrompt{
			Base:            bus.WithRunID(a.cfg.RunID),
			RequestID:       m.RequestID,
			ToolName:        req.ToolName,
			ToolUseIDField:  req.ToolUseID,
			Input:           req.Input,
			Reason:          req.Reason,
			ParentToolUseID: req.ParentToolUseID,
			Suggestions:     req.PermissionSuggestions,
		}, now)

	case wire.HookCallbackRequest:
		a.pendingHookCallback[m.RequestID] = struct{}{}
		a.publish(bus.HookCallback{
			Base:      bus.WithRunID(a.cfg.RunID),
			RequestID: m.RequestID,
			HookEvent: req.HookEvent,
			HookID:    req.HookID,
			HookName:  req.HookName,
		}, now)
		if req.HookEvent != "PreToolUse" {
			delete(a.pendingHookCallback, m.RequestID)
			_ = a.sendControlResponse(m.RequestID, "hook_callback", map[string]interface{}{"allow": true})
		}
	}
}

// autoRespondDuringQuarantine answers control requests without bothering
// the caller while a runaway subprocess is being wound down: everything
// is denied except a hook callback, which is allowed so any cleanup hook
// the CLI runs on its way out isn't itself blocked on us. A request whose
// payload cannot be parsed never reaches here and gets no answer.
func (a *actor) autoRespondDuringQuarantine(requestID string, parsed wire.ControlRequestData) {
	switch parsed.(type) {
	case wire.HookCallbackRequest:
		_ = a.sendControlResponse(requestID, "hook_callback", map[string]interface{}{"allow": true})
	case wire.CanUseToolRequest:
		_ = a.sendControlResponse(requestID, "can_use_tool", wire.PermissionResultDeny{
			Behavior: wire.PermissionBehaviorDeny,
			Message:  "session is shutting down",
		})
	default:
		_ = a.sendControlResponse(requestID, string(parsed.Subtype()), wire.PermissionResultDeny{
			Behavior: wire.PermissionBehaviorDeny,
			Message:  "session is shutting down",
		})
	}
}

func (a *actor) routeControlResponseFromChild(m wire.ControlResponse) {
	waiter, ok := a.controlWaiters[m.Response.RequestID]
	if !ok {
		return
	}
	delete(a.controlWaiters, m.Response.RequestID)
	waiter <- m.Response
	close(waiter)
}

func (a *actor) routeControlCancelFromChild(m wire.ControlCancelRequest) {
	delete(a.controlWaiters, m.RequestID)
	a.publish(bus.ControlCancelled{Base: bus.WithRunID(a.cfg.RunID), RequestID: m.RequestID}, time.Now())
}

