// Package parser maps one raw wire message into zero or more typed bus
// events, maintaining accumulator state across an entire session.
package parser

// State is the Protocol Accumulator held by the actor for one session. It
// is not safe for concurrent use — the actor's mailbox loop is the only
// caller, by construction.
type State struct {
	// emittedToolIDs maps a tool-use id to its tool name so ToolEnd can
	// be labeled from a bare tool_result block.
	emittedToolIDs map[string]string

	// inputJSONAccum maps a tool-use id to the partial JSON input
	// accumulated from streaming input_json_delta events.
	inputJSONAccum map[string]string

	// lastToolUseID is the most recently started tool use, so
	// input_json_delta (which omits the id) can be routed.
	lastToolUseID string

	// gotResultEvent and resultSubtype record whether a terminal result
	// has already been observed and, if so, its subtype.
	gotResultEvent bool
	resultSubtype  string

	// isResume and seenFirstInit gate whether the first system/init
	// should emit a synthetic RunState("running").
	isResume      bool
	seenFirstInit bool

	// pendingSlashCommand is set by the actor before sending a user
	// message that begins with "/"; consumed on the next result to
	// synthesize a friendly fallback if the subprocess didn't emit
	// slash-command output itself.
	pendingSlashCommand string

	// Counters track parser health for diagnostics.
	UnknownEventCount int
	ParseWarnCount    int
	InvalidToolCount  int
	DroppedCount      int
}

// New returns a fresh accumulator. isResume indicates the session is
// continuing a prior conversation rather than starting new.
func New(isResume bool) *State {
	return &State{
		emittedToolIDs: make(map[string]string),
		inputJSONAccum: make(map[string]string),
		isResume:       isResume,
	}
}

// SetPendingSlashCommand records that the next user turn begins with a
// slash command, for the result-event fallback synthesis.
func (s *State) SetPendingSlashCommand(cmd string) {
	s.pendingSlashCommand = cmd
}

// ClearPendingSlashCommand clears the pending slash command without
// consuming it (used when an interrupt or quarantine lift discards the
// turn rather than completing it normally).
func (s *State) ClearPendingSlashCommand() {
	s.pendingSlashCommand = ""
}

// ClearResult clears the observed-terminal-result flags. Used by the
// actor's interrupt→idle conversion (spec scenario D), which rewrites a
// failed result into an idle one and must let the turn engine observe a
// fresh result on the next turn.
func (s *State) ClearResult() {
	s.gotResultEvent = false
	s.resultSubtype = ""
}

// GotResult reports whether a terminal result has been observed, and its
// subtype.
func (s *State) GotResult() (bool, string) {
	return s.gotResultEvent, s.resultSubtype
}
