package actor

import (
	"time"

	"github.com/bazelment/sessioncore/internal/bus"
)

// handleChildExit runs once, when the child process actually exits. If a
// result was ever observed, the parser's own RunState (idle/failed) is
// already the terminal record; otherwise one is synthesized here so every
// run ends with exactly one terminal RunState.
func (a *actor) handleChildExit(err error) {
	exitCode := ExitCode(err)
	gotResult, _ := a.parser.GotResult()

	if !gotResult && !a.quarantineTerminating {
		state := "completed"
		switch {
		case a.stopRequested:
			state = "stopped"
		case exitCode == nil || *exitCode != 0:
			state = "failed"
		}
		a.publish(bus.RunState{Base: bus.WithRunID(a.cfg.RunID), State: state, ExitCode: exitCode}, time.Now())
		if a.cfg.Hooks.OnTerminal != nil {
			a.cfg.Hooks.OnTerminal(state, exitCode, "")
		}
	}

	a.failAllQueued(errTerminated)
	a.terminated = true
}

// failAllQueued rejects every ticket still waiting for a turn, since none
// of them will ever get to run against a dead subprocess.
func (a *actor) failAllQueued(err error) {
	for _, ticket := range a.userQueue {
		ticket.Reply <- err
	}
	a.userQueue = nil
	a.internalQueue = nil

	for id, waiter := range a.controlWaiters {
		close(waiter)
		delete(a.controlWaiters, id)
	}
}

// shutdown runs once the actor's loop has decided to exit: it removes the
// actor from the session map it was registered in (only if this actor's
// tag is still the one on file, so a since-replaced actor never evicts
// its successor) and replies to every pending Stop call.
func (a *actor) shutdown() {
	if a.cfg.RemoveSelf != nil {
		a.cfg.RemoveSelf(a.cfg.RunID, a.tag)
	}
	for _, reply := range a.stopReplies {
		close(reply)
	}
	a.stopReplies = nil
}
