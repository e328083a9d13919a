package actor

import (
	"time"

	"github.com/bazelment/sessioncore/internal/bus"
	"github.com/bazelment/sessioncore/internal/parser"
	"github.com/bazelment/sessioncore/internal/wire"
)

// handleStdoutLine is the entry point for every line the child writes to
// stdout. Control-plane messages bypass the protocol parser entirely;
// everything else goes through it and comes out as zero or more bus
// events, which are then routed according to whether the actor is
// quarantined, mid internal-turn, or in its normal (user-turn/idle) mode.
func (a *actor) handleStdoutLine(line []byte) {
	if msg, err := wire.ParseMessage(line); err == nil {
		switch m := msg.(type) {
		case wire.ControlRequest:
			a.routeControlRequestFromChild(m)
			return
		case wire.ControlResponse:
			a.routeControlResponseFromChild(m)
			return
		case wire.ControlCancelRequest:
			a.routeControlCancelFromChild(m)
			return
		}
	}

	events, err := a.parser.MapEvent(a.cfg.RunID, line)
	if err != nil {
		if !a.quarantine && (a.active == nil || a.active.Extractor == nil) {
			a.publish(bus.Raw{Base: bus.WithRunID(a.cfg.RunID), Source: "claude_parse_error", Body: string(line)}, time.Now())
		}
		return
	}
	if a.quarantine {
		a.routeQuarantinedEvents(events)
		return
	}
	if a.active != nil && a.active.Extractor != nil {
		a.routeInternalTurnEvents(events)
		return
	}
	a.routeNormalEvents(events)
}

// validated drops tool-class events missing a tool_use_id and counts the
// drop on the parser's diagnostics; state-class events always pass.
func (a *actor) validated(events []bus.Event) []bus.Event {
	var out []bus.Event
	for _, e := range events {
		if warning := parser.ValidateBusEvent(e); warning != "" {
			a.parser.InvalidToolCount++
			continue
		}
		out = append(out, e)
	}
	return out
}

// routeQuarantinedEvents processes stdout while a runaway subprocess is
// being wound down. Only a terminal RunState (idle or failed) lifts
// quarantine; everything else is observed for bookkeeping but never
// reaches the public bus, since the caller has already been told the
// turn failed or is about to be.
func (a *actor) routeQuarantinedEvents(events []bus.Event) {
	for _, e := range a.validated(events) {
		rs, ok := e.(bus.RunState)
		if !ok || (rs.State != "idle" && rs.State != "failed") {
			continue
		}
		a.liftQuarantine()
		return
	}
}

func (a *actor) liftQuarantine() {
	a.quarantine = false
	a.quarantineDeadline = time.Time{}
	a.interruptSent = false
	a.parser.ClearPendingSlashCommand()
	a.active = nil
	a.tryDispatch()
}

// routeInternalTurnEvents feeds an internal (auto-context) turn's output
// to its extractor and ends the turn on a terminal RunState. None of this
// reaches the public bus: internal turns are an implementation detail of
// keeping context fresh, not something the caller asked for.
func (a *actor) routeInternalTurnEvents(events []bus.Event) {
	for _, e := range a.validated(events) {
		switch ev := e.(type) {
		case bus.CommandOutput:
			a.active.Extractor.Accept(ev.Content)
		case bus.MessageComplete:
			if ev.Text != "" {
				a.active.Extractor.Accept(ev.Text)
			}
		case bus.RunState:
			if ev.State == "idle" || ev.State == "failed" {
				a.active.Extractor.Finalize(false)
				a.active = nil
				a.tryDispatch()
			}
		}
	}
}

// routeNormalEvents is the common path: a user turn is active, or the
// actor is idle between turns. Every validated event reaches the public
// bus, with two special cases: an interrupt-induced failure is rewritten
// to idle, and a usage update is stamped with the active turn's index
// before it is persisted.
func (a *actor) routeNormalEvents(events []bus.Event) {
	for _, e := range a.validated(events) {
		now := time.Now()

		switch ev := e.(type) {
		case bus.RunState:
			if a.interruptedByUser && ev.State == "failed" {
				ev.State = "idle"
				ev.Error = ""
				ev.ExitCode = nil
				a.parser.ClearResult()
			}
			a.publish(ev, now)
			if ev.State == "idle" || ev.State == "failed" {
				a.finishActiveUserTurn()
			}
			if a.cfg.Hooks.OnTerminal != nil && (ev.State == "idle" || ev.State == "failed" || ev.State == "stopped") {
				a.cfg.Hooks.OnTerminal(ev.State, ev.ExitCode, ev.Error)
			}

		case bus.SessionInit:
			if ev.SessionID != "" && a.cfg.Hooks.OnSessionID != nil {
				a.cfg.Hooks.OnSessionID(ev.SessionID)
			}
			a.publish(ev, now)

		case bus.UsageUpdate:
			if a.active != nil {
				ev.TurnIndex = a.active.TurnIndex
			}
			a.publish(ev, now)

		default:
			a.publish(e, now)
		}
	}
}

func (a *actor) finishActiveUserTurn() {
	if a.active == nil || !a.active.Origin.IsUser() {
		return
	}
	origin := a.active.Origin
	turnIndex := a.active.TurnIndex
	a.active = nil
	a.interruptedByUser = false
	a.onUserTurnComplete(origin, turnIndex)
}

// publish persists event to the run's event log and forwards it (with the
// seq and timestamp the log assigned) to the live sink.
func (a *actor) publish(event bus.Event, ts time.Time) {
	seq, err := a.cfg.EventWriter.WriteBusEventWithTS(a.cfg.RunID, event, ts)
	if err != nil {
		return
	}
	if a.cfg.Sink != nil {
		a.cfg.Sink.Publish(bus.NewEnvelope(seq, ts, event))
	}
}
