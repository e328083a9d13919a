package bus

import (
	"encoding/json"
	"fmt"
	"time"
)

// wireEnvelope is the on-disk/on-wire shape: the event's tag is hoisted
// next to its payload so a reader can dispatch without first decoding
// the payload.
type wireEnvelope struct {
	Type  EventTag        `json:"type"`
	IsBus bool            `json:"_bus"`
	Seq   uint64          `json:"seq"`
	TS    time.Time       `json:"ts"`
	Event json.RawMessage `json:"event"`
}

// MarshalJSON implements json.Marshaler, hoisting the event's tag next to
// its payload.
func (e Envelope) MarshalJSON() ([]byte, error) {
	payload, err := json.Marshal(e.Event)
	if err != nil {
		return nil, fmt.Errorf("marshal bus event payload: %w", err)
	}
	return json.Marshal(wireEnvelope{
		IsBus: true,
		Seq:   e.Seq,
		TS:    e.TS,
		Type:  e.Event.Tag(),
		Event: payload,
	})
}

// UnmarshalJSON implements json.Unmarshaler, dispatching the event
// payload to its concrete type by the hoisted tag.
func (e *Envelope) UnmarshalJSON(data []byte) error {
	var w wireEnvelope
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("unmarshal envelope: %w", err)
	}
	evt, err := DecodeEvent(w.Type, w.Event)
	if err != nil {
		return err
	}
	e.IsBus = w.IsBus
	e.Seq = w.Seq
	e.TS = w.TS
	e.Event = evt
	return nil
}

// DecodeEvent unmarshals a raw event payload into its concrete type given
// the tag that names it.
func DecodeEvent(tag EventTag, raw json.RawMessage) (Event, error) {
	var target Event
	switch tag {
	case TagSessionInit:
		target = &SessionInit{}
	case TagMessageDelta:
		target = &MessageDelta{}
	case TagMessageComplete:
		target = &MessageComplete{}
	case TagThinkingDelta:
		target = &ThinkingDelta{}
	case TagToolStart:
		target = &ToolStart{}
	case TagToolInputDelta:
		target = &ToolInputDelta{}
	case TagToolEnd:
		target = &ToolEnd{}
	case TagToolProgress:
		target = &ToolProgress{}
	case TagToolUseSummary:
		target = &ToolUseSummary{}
	case TagUserMessage:
		target = &UserMessage{}
	case TagRunState:
		target = &RunState{}
	case TagUsageUpdate:
		target = &UsageUpdate{}
	case TagPermissionPrompt:
		target = &PermissionPrompt{}
	case TagPermissionDenied:
		target = &PermissionDenied{}
	case TagHookStarted:
		target = &HookStarted{}
	case TagHookProgress:
		target = &HookProgress{}
	case TagHookResponse:
		target = &HookResponse{}
	case TagHookCallback:
		target = &HookCallback{}
	case TagCompactBoundary:
		target = &CompactBoundary{}
	case TagSystemStatus:
		target = &SystemStatus{}
	case TagAuthStatus:
		target = &AuthStatus{}
	case TagTaskNotification:
		target = &TaskNotification{}
	case TagFilesPersisted:
		target = &FilesPersisted{}
	case TagControlCancelled:
		target = &ControlCancelled{}
	case TagCommandOutput:
		target = &CommandOutput{}
	case TagRaw:
		target = &Raw{}
	default:
		return nil, fmt.Errorf("decode bus event: unknown tag %q", tag)
	}

	if err := json.Unmarshal(raw, target); err != nil {
		return nil, fmt.Errorf("unmarshal bus event %q: %w", tag, err)
	}
	return dereference(target), nil
}

// dereference converts the pointer receiver used for unmarshaling back to
// the value type the rest of the codebase constructs and compares, since
// every Tag()/RunID()/ToolUseID() method above is defined on value
// receivers.
func dereference(e Event) Event {
	switch v := e.(type) {
	case *SessionInit:
		return *v
	case *MessageDelta:
		return *v
	case *MessageComplete:
		return *v
	case *ThinkingDelta:
		return *v
	case *ToolStart:
		return *v
	case *ToolInputDelta:
		return *v
	case *ToolEnd:
		return *v
	case *ToolProgress:
		return *v
	case *ToolUseSummary:
		return *v
	case *UserMessage:
		return *v
	case *RunState:
		return *v
	case *UsageUpdate:
		return *v
	case *PermissionPrompt:
		return *v
	case *PermissionDenied:
		return *v
	case *HookStarted:
		return *v
	case *HookProgress:
		return *v
	case *HookResponse:
		return *v
	case *HookCallback:
		return *v
	case *CompactBoundary:
		return *v
	case *SystemStatus:
		return *v
	case *AuthStatus:
		return *v
	case *TaskNotification:
		return *v
	case *FilesPersisted:
		return *v
	case *ControlCancelled:
		return *v
	case *CommandOutput:
		return *v
	case *Raw:
		return *v
	default:
		return e
	}
}
