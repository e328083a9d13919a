package actor

import "github.com/bazelment/sessioncore/internal/wire"

// Command is the closed set of mailbox messages the actor accepts. Every
// variant carries its own reply channel so the sender can be acknowledged
// without blocking on turn completion.
type Command interface {
	isCommand()
}

// SendMessage enqueues a user turn. Reply fires once the turn is either
// dispatched (nil) or rejected (non-nil) — never on turn completion.
type SendMessage struct {
	Text        string
	Attachments []string // paths, resolved into content blocks at dispatch time
	Reply       chan error
}

func (SendMessage) isCommand() {}

// SendControl writes a control request to stdin and registers a waiter for
// its response. Reply carries the request id and a channel the caller can
// read the eventual response from outside the actor.
type SendControl struct {
	Request map[string]interface{}
	Reply   chan SendControlResult
}

func (SendControl) isCommand() {}

// SendControlResult is the reply to SendControl.
type SendControlResult struct {
	RequestID string
	Response  <-chan wire.ControlResponsePayload
	Err       error
}

// Stop drops stdin, kills the child, waits for exit, and replies once
// cleanup has run.
type Stop struct {
	Reply chan struct{}
}

func (Stop) isCommand() {}

// RespondPermission writes an allow/deny control_response for a pending
// can_use_tool request.
type RespondPermission struct {
	RequestID string
	Allow     bool
	Message   string // deny reason, ignored when Allow
	Interrupt bool   // deny-and-interrupt, ignored when Allow
	UpdatedInput map[string]interface{}
	Reply     chan error
}

func (RespondPermission) isCommand() {}

// RespondHookCallback writes a control_response for a pending hook_callback
// request.
type RespondHookCallback struct {
	RequestID string
	Allow     bool
	Reply     chan error
}

func (RespondHookCallback) isCommand() {}

// CancelControlRequest sends a top-level control_cancel_request.
type CancelControlRequest struct {
	RequestID string
	Reply     chan error
}

func (CancelControlRequest) isCommand() {}
