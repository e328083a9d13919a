package bus

import "time"

// Envelope is the persisted/published unit: one bus event stamped with
// its per-run sequence number and timestamp.
type Envelope struct {
	Event     Event     `json:"event"`
	TS        time.Time `json:"ts"`
	Seq       uint64    `json:"seq"`
	IsBus     bool      `json:"_bus"`
}

// NewEnvelope stamps an event with a sequence number and timestamp.
func NewEnvelope(seq uint64, ts time.Time, event Event) Envelope {
	return Envelope{IsBus: true, Seq: seq, TS: ts, Event: event}
}

// ReplayableTags is the explicit set of event tags permitted to appear in
// ListBusEvents responses. Raw and other low-value/noise events are
// excluded so late-reconnect replay payloads stay bounded.
var ReplayableTags = map[EventTag]bool{
	TagSessionInit:      true,
	TagMessageDelta:     true,
	TagMessageComplete:  true,
	TagThinkingDelta:    true,
	TagToolStart:        true,
	TagToolInputDelta:   true,
	TagToolEnd:          true,
	TagToolProgress:     true,
	TagToolUseSummary:   true,
	TagUserMessage:      true,
	TagRunState:         true,
	TagUsageUpdate:      true,
	TagPermissionPrompt: true,
	TagPermissionDenied: true,
	TagHookStarted:      true,
	TagHookProgress:     true,
	TagHookResponse:     true,
	TagHookCallback:     true,
	TagCompactBoundary:  true,
	TagSystemStatus:     true,
	TagAuthStatus:       true,
	TagTaskNotification: true,
	TagFilesPersisted:   true,
	TagControlCancelled: true,
	TagCommandOutput:    true,
	// TagRaw is deliberately absent.
}

// IsReplayable reports whether tag is in the replay set.
func IsReplayable(tag EventTag) bool {
	return ReplayableTags[tag]
}

// ContentTags is the subset of tags copied by fork (message-family,
// tool-family, and user_message events) — lifecycle events (RunState,
// SessionInit, UsageUpdate, etc.) are excluded since a forked run gets
// its own lifecycle.
var ContentTags = map[EventTag]bool{
	TagMessageDelta:    true,
	TagMessageComplete: true,
	TagThinkingDelta:   true,
	TagToolStart:       true,
	TagToolInputDelta:  true,
	TagToolEnd:         true,
	TagToolProgress:    true,
	TagToolUseSummary:  true,
	TagUserMessage:     true,
	TagCommandOutput:   true,
}

// IsContent reports whether tag is in the fork content-copy set.
func IsContent(tag EventTag) bool {
	return ContentTags[tag]
}
