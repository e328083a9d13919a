package actor

import (
	"time"

	"github.com/bazelment/sessioncore/internal/bus"
	"github.com/bazelment/sessioncore/internal/turnengine"
	"github.com/bazelment/sessioncore/internal/wire"
)

func (a *actor) handleCommand(cmd Command) {
	switch c := cmd.(type) {
	case SendMessage:
		a.handleSendMessage(c)
	case SendControl:
		a.handleSendControl(c)
	case Stop:
		a.handleStop(c)
	case RespondPermission:
		a.handleRespondPermission(c)
	case RespondHookCallback:
		a.handleRespondHookCallback(c)
	case CancelControlRequest:
		a.handleCancelControlRequest(c)
	}
}

func (a *actor) handleSendMessage(c SendMessage) {
	if a.terminated {
		c.Reply <- errTerminated
		return
	}

	origin := turnengine.Origin{Kind: turnengine.OriginUserNormal}
	slash := slashCommand(c.Text)
	if slash != "" {
		origin = turnengine.Origin{Kind: turnengine.OriginUserSlash, SlashCmd: slash}
	} else {
		origin.AutoCtxID = a.autoCtxIDCounter
		a.autoCtxIDCounter++
	}

	a.turnSeqCounter++
	ticket := &turnengine.UserTurnTicket{
		Seq:         a.turnSeqCounter,
		Text:        c.Text,
		Attachments: c.Attachments,
		Origin:      origin,
		TurnIndex:   a.turnIndexCounter,
		Reply:       c.Reply,
	}
	a.turnIndexCounter++
	a.userQueue = append(a.userQueue, ticket)
	a.tryDispatch()
}

// tryDispatch starts the next eligible turn, if any, and if the actor is
// currently idle. Order of precedence: a pinned internal job bound to the
// turn_index that just completed, then the head of the user queue (unless
// a barrier is set), then the head of the internal queue.
func (a *actor) tryDispatch() {
	if a.active != nil || a.quarantine || a.terminated {
		return
	}

	if a.mustRunInternal != nil {
		for i, job := range a.internalQueue {
			if job.TurnIndex == *a.mustRunInternal {
				a.internalQueue = append(a.internalQueue[:i], a.internalQueue[i+1:]...)
				a.mustRunInternal = nil
				a.startInternalTurn(job)
				return
			}
		}
	}

	if a.barrierTurnIndex == nil && len(a.userQueue) > 0 {
		ticket := a.userQueue[0]
		a.userQueue = a.userQueue[1:]
		a.startUserTurn(ticket)
		return
	}

	if len(a.internalQueue) > 0 {
		job := a.internalQueue[0]
		a.internalQueue = a.internalQueue[1:]
		a.startInternalTurn(job)
		return
	}
}

func (a *actor) startUserTurn(ticket *turnengine.UserTurnTicket) {
	var content interface{} = ticket.Text
	if len(ticket.Attachments) > 0 {
		blocks := []map[string]interface{}{wire.TextBlock(ticket.Text)}
		for _, path := range ticket.Attachments {
			blocks = append(blocks, attachmentBlock(path))
		}
		content = blocks
	}

	payload := wire.UserMessageToSend{
		Type: "user",
		Message: wire.UserMessageToSendInner{
			Role:    "user",
			Content: content,
		},
	}
	line, err := payload.Marshal()
	if err != nil {
		ticket.Reply <- err
		return
	}

	if err := a.child.WriteLine(line); err != nil {
		ticket.Reply <- err
		return
	}

	if ticket.Origin.Kind == turnengine.OriginUserSlash {
		a.parser.SetPendingSlashCommand(ticket.Origin.SlashCmd)
	}

	now := time.Now()
	a.publish(bus.UserMessage{Base: bus.WithRunID(a.cfg.RunID), Text: ticket.Text, Attachments: ticket.Attachments}, now)
	a.publish(bus.RunState{Base: bus.WithRunID(a.cfg.RunID), State: "running"}, now)

	ticket.Reply <- nil
	a.active = turnengine.NewUserTurn(a.turnSeqCounter, ticket.TurnIndex, ticket.Origin, now)
}

func (a *actor) startInternalTurn(job *turnengine.InternalJob) {
	payload := wire.UserMessageToSend{
		Type: "user",
		Message: wire.UserMessageToSendInner{
			Role:    "user",
			Content: "/context",
		},
	}
	line, err := payload.Marshal()
	if err != nil || a.child.WriteLine(line) != nil {
		// Couldn't start it; drop the barrier so user turns keep flowing
		// and retry isn't attempted until the next natural trigger.
		a.mustRunInternal = nil
		a.barrierTurnIndex = nil
		return
	}

	extractor := newContextExtractor(a.cfg.Hooks.OnContextExtracted)
	now := time.Now()
	a.active = turnengine.NewInternalTurn(a.turnSeqCounter, job.TurnIndex, job.AutoCtxID, extractor, now)
	a.lastAutoCtxFor = intPtr(job.AutoCtxID)
	a.barrierTurnIndex = nil
}

// onUserTurnComplete runs after a user turn's terminal RunState has been
// observed. A Normal-origin turn that hasn't already had its auto_ctx_id
// covered enqueues an AutoContext job pinned to this turn_index and raises
// the barrier so the next user turn waits for it.
func (a *actor) onUserTurnComplete(origin turnengine.Origin, turnIndex int) {
	if origin.Kind == turnengine.OriginUserNormal && turnengine.ShouldTriggerAutoContext(origin.AutoCtxID, a.lastAutoCtxFor) {
		a.turnSeqCounter++
		a.internalQueue = append(a.internalQueue, &turnengine.InternalJob{
			Seq:       a.turnSeqCounter,
			Kind:      turnengine.AutoContext,
			AutoCtxID: origin.AutoCtxID,
			TurnIndex: turnIndex,
		})
		a.mustRunInternal = intPtr(turnIndex)
		a.barrierTurnIndex = intPtr(turnIndex)
	}
	a.active = nil
	a.tryDispatch()
}

func intPtr(v int) *int { return &v }

func slashCommand(text string) string {
	if len(text) == 0 || text[0] != '/' {
		return ""
	}
	for i := 1; i < len(text); i++ {
		if text[i] == ' ' || text[i] == '\n' {
			return text[:i]
		}
	}
	return text
}
