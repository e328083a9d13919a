// Package actor implements the Session Actor: a single-goroutine
// supervisor owning one agent CLI subprocess, its mailbox, and the turn
// transaction engine that serializes turns against it.
package actor

import (
	"bufio"
	"log/slog"
	"time"

	"github.com/bazelment/sessioncore/internal/bus"
	"github.com/bazelment/sessioncore/internal/eventlog"
	"github.com/bazelment/sessioncore/internal/parser"
	"github.com/bazelment/sessioncore/internal/turnengine"
	"github.com/bazelment/sessioncore/internal/wire"
)

// mailboxCapacity bounds how many pending commands an actor will queue
// before SendX calls start blocking the caller.
const mailboxCapacity = 64

// tickInterval drives deadline and quarantine checks independently of
// whatever stdout/mailbox traffic is flowing.
const tickInterval = 250 * time.Millisecond

// Sink receives public bus events as the actor publishes them. Persistence
// to the event log always happens first; Publish is for fan-out to live
// subscribers (a UI, a test harness) and must not block the actor for long.
type Sink interface {
	Publish(env bus.Envelope)
}

// Hooks are optional callbacks the owner of a session (internal/sessioncmd)
// wires up to persist run metadata the actor itself has no business
// storing. A nil hook is a no-op.
type Hooks struct {
	// OnSessionID fires every time system/init reports a non-empty
	// session id, on new and resumed sessions alike.
	OnSessionID func(sessionID string)
	// OnTerminal fires each time a terminal RunState (idle, failed or
	// stopped) is published from the child's output, so once per completed
	// turn, and again when the child exits or is killed out of quarantine,
	// so the owner can persist run status outside the event log.
	OnTerminal func(state string, exitCode *int, errMsg string)
	// OnContextExtracted fires when an auto-context internal turn
	// finishes collecting output.
	OnContextExtracted func(text string, timedOut bool)
}

// Config describes a session actor at construction time. The child is
// already spawned (locally or over SSH) by the caller; the actor only
// owns it from here on.
type Config struct {
	RunID            string
	Child            *Child
	EventWriter      *eventlog.Writer
	Sink             Sink
	Hooks            Hooks
	IsResume         bool
	InitialTurnIndex int
	InitialAutoCtxID int
	// RemoveSelf is called exactly once, during shutdown, with the
	// actor's identity tag. The caller compares it by pointer identity
	// against whatever it has on file for RunID before removing the
	// entry, so a since-replaced actor never evicts its successor.
	RemoveSelf func(runID string, tag *struct{})
}

// Handle is what a Config's owner gets back from Spawn: a way to send it
// commands and learn when it's gone.
type Handle struct {
	Commands chan<- Command
	RunID    string
	Tag      *struct{}
	Done     <-chan struct{}
}

// actor holds everything one session's single loop goroutine owns. No
// field here is touched by any other goroutine; that invariant is what
// lets the turn engine and parser state go without locks.
type actor struct {
	cfg    Config
	child  *Child
	parser *parser.State
	tag    *struct{}

	mailbox chan Command
	stdout  chan stdoutLine
	stderr  chan []byte
	childExit chan error
	done    chan struct{}

	active        *turnengine.ActiveTurn
	userQueue     []*turnengine.UserTurnTicket
	internalQueue []*turnengine.InternalJob

	barrierTurnIndex  *int // set while a user turn is pending an interposed auto-context turn
	mustRunInternal   *int // internal queue bound to this turn_index must run before anything else
	lastAutoCtxFor    *int
	turnIndexCounter  int
	turnSeqCounter    uint64
	autoCtxIDCounter  int

	quarantine         bool
	quarantineDeadline time.Time
	interruptSent      bool
	// quarantineTerminating is set once the quarantine deadline itself
	// expires and the child is being force-killed; handleChildExit uses it
	// to avoid publishing a second, redundant terminal RunState.
	quarantineTerminating bool
	quarantineKillAt      time.Time

	// interruptedByUser is set when a caller-issued SendControl carries an
	// "interrupt" subtype for the currently active turn. The subprocess
	// typically reports the interrupted turn as a failed result; the next
	// RunState is rewritten from failed to idle since the caller asked for
	// this, it isn't a real failure.
	interruptedByUser bool

	terminated    bool
	stopRequested bool
	stopKillAt    time.Time
	stopReplies   []chan struct{}

	controlWaiters map[string]chan wire.ControlResponsePayload
	// pendingPermission/pendingHookCallback track which control_request
	// subtypes are awaiting RespondPermission/RespondHookCallback so a
	// quarantine lift or shutdown can fail them cleanly.
	pendingPermission    map[string]struct{}
	pendingHookCallback  map[string]struct{}
}

type stdoutLine struct {
	data []byte
	err  error
}

// Spawn starts the actor's loop goroutine and returns a handle to it.
func Spawn(cfg Config) *Handle {
	a := &actor{
		cfg:                 cfg,
		child:               cfg.Child,
		parser:              parser.New(cfg.IsResume),
		tag:                 new(struct{}),
		mailbox:             make(chan Command, mailboxCapacity),
		stdout:              make(chan stdoutLine, 1),
		stderr:              make(chan []byte, 1),
		childExit:           make(chan error, 1),
		done:                make(chan struct{}),
		turnIndexCounter:    cfg.InitialTurnIndex,
		autoCtxIDCounter:    cfg.InitialAutoCtxID,
		controlWaiters:      make(map[string]chan wire.ControlResponsePayload),
		pendingPermission:   make(map[string]struct{}),
		pendingHookCallback: make(map[string]struct{}),
	}

	go a.pumpStdout()
	go a.pumpStderr()
	go a.pumpChildExit()
	go a.run()

	return &Handle{
		Commands: a.mailbox,
		RunID:    cfg.RunID,
		Tag:      a.tag,
		Done:     a.done,
	}
}

// pumpStdout relays the child's stdout lines onto a channel the select
// loop can multiplex, since ReadLine itself blocks.
func (a *actor) pumpStdout() {
	for {
		line, err := a.child.ReadLine()
		a.stdout <- stdoutLine{data: line, err: err}
		if err != nil {
			return
		}
	}
}

func (a *actor) pumpChildExit() {
	a.childExit <- a.child.Wait()
}

// pumpStderr relays the child's raw stderr, line by line, for diagnostic
// logging. Stderr is not part of the line protocol, so lines are never
// parsed, only logged.
func (a *actor) pumpStderr() {
	scanner := bufio.NewScanner(a.child.Stderr())
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		a.stderr <- []byte(scanner.Text())
	}
}

// run is the actor's single select loop: every mutation of actor state
// happens on this goroutine, so nothing here needs a lock.
func (a *actor) run() {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()
	defer close(a.done)

	for {
		select {
		case cmd, ok := <-a.mailbox:
			if !ok {
				a.shutdown()
				return
			}
			a.handleCommand(cmd)

		case line := <-a.stdout:
			if line.err == nil {
				a.handleStdoutLine(line.data)
			}

		case line := <-a.stderr:
			slog.Warn("agent CLI stderr", "run_id", a.cfg.RunID, "line", string(line))

		case err := <-a.childExit:
			a.handleChildExit(err)

		case <-ticker.C:
			a.tick(time.Now())
		}

		if a.terminated {
			a.shutdown()
			return
		}
	}
}
