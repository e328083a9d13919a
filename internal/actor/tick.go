package actor

import (
	"time"

	"github.com/bazelment/sessioncore/internal/bus"
	"github.com/bazelment/sessioncore/internal/turnengine"
	"github.com/bazelment/sessioncore/internal/wire"
)

// tick runs independently of mailbox and stdout traffic so a stalled or
// runaway subprocess is caught even if it never writes another line.
func (a *actor) tick(now time.Time) {
	if a.stopRequested && !a.stopKillAt.IsZero() && now.After(a.stopKillAt) {
		a.child.Kill()
		a.stopKillAt = time.Time{}
	}
	if a.quarantineTerminating && !a.quarantineKillAt.IsZero() && now.After(a.quarantineKillAt) {
		a.child.Kill()
		a.quarantineKillAt = time.Time{}
	}

	if a.quarantine {
		a.tickQuarantine(now)
		return
	}
	if a.active == nil {
		return
	}

	if a.active.Origin.Kind == turnengine.OriginInternalAutoContext {
		if a.active.HardExpired(now) {
			a.active.Extractor.Finalize(true)
			a.active = nil
			a.enterQuarantine()
			return
		}
		if a.active.Phase == turnengine.PhaseActive && a.active.SoftExpired(now) {
			a.active.Phase = turnengine.PhaseDraining
		}
		return
	}

	// User-originated turn: only a hard deadline forces quarantine. A
	// soft-expired user turn is left running; 300s is a heads-up, not a
	// cutoff, for interactive work.
	if a.active.HardExpired(now) {
		a.enterQuarantine()
	}
}

// enterQuarantine drops the active turn and starts the interrupt-then-kill
// escalation on the next tick.
func (a *actor) enterQuarantine() {
	a.quarantine = true
	a.quarantineDeadline = time.Time{}
	a.interruptSent = false
	a.active = nil
}

func (a *actor) tickQuarantine(now time.Time) {
	// Already tearing down: handleChildExit finishes the job once the
	// process actually exits (or the kill escalation above catches it).
	if a.quarantineTerminating {
		return
	}

	if !a.interruptSent {
		req := wire.ControlRequestToSend{
			Type:      "control_request",
			RequestID: newQuarantineInterruptID(),
			Request:   wire.InterruptRequestToSend{Subtype: "interrupt"},
		}
		if line, err := req.Marshal(); err == nil {
			_ = a.child.WriteLine(line)
		}
		a.interruptSent = true
		a.quarantineDeadline = now.Add(turnengine.QuarantineDeadline)
		return
	}

	if now.After(a.quarantineDeadline) {
		errMsg := "hard timeout: session did not respond to interrupt and was terminated"
		a.publish(bus.RunState{
			Base:  bus.WithRunID(a.cfg.RunID),
			State: "failed",
			Error: errMsg,
		}, now)
		if a.cfg.Hooks.OnTerminal != nil {
			a.cfg.Hooks.OnTerminal("failed", nil, errMsg)
		}
		a.failAllQueued(errTerminated)
		a.quarantineTerminating = true
		a.child.Terminate()
		a.quarantineKillAt = now.Add(500 * time.Millisecond)
	}
}
