package wire

import (
	"encoding/json"
	"fmt"
	"log/slog"
)

// StreamEventType discriminates the inner "event" field of a stream_event
// message.
type StreamEventType string

const (
	StreamEventTypeMessageStart      StreamEventType = "message_start"
	StreamEventTypeContentBlockStart StreamEventType = "content_block_start"
	StreamEventTypeContentBlockDelta StreamEventType = "content_block_delta"
	StreamEventTypeContentBlockStop  StreamEventType = "content_block_stop"
	StreamEventTypeMessageDelta      StreamEventType = "message_delta"
	StreamEventTypeMessageStop       StreamEventType = "message_stop"
)

// StreamEvent is the top-level message for incremental assistant output.
type StreamEvent struct {
	ParentToolUseID *string         `json:"parent_tool_use_id"`
	Type            MessageType     `json:"type"`
	SessionID       string          `json:"session_id"`
	UUID            string          `json:"uuid"`
	Event           json.RawMessage `json:"event"`
}

// MsgType returns the message type.
func (m StreamEvent) MsgType() MessageType { return MessageTypeStreamEvent }

// StreamEventData is the interface implemented by the parsed inner event.
type StreamEventData interface {
	EventType() StreamEventType
}

// MessageStartEvent signals the start of a new assistant message.
type MessageStartEvent struct {
	Type StreamEventType `json:"type"`
}

// EventType returns the stream event type.
func (e MessageStartEvent) EventType() StreamEventType { return e.Type }

// ContentBlockStartEvent signals the start of one content block.
type ContentBlockStartEvent struct {
	ContentBlock json.RawMessage `json:"content_block"`
	Type         StreamEventType `json:"type"`
	Index        int             `json:"index"`
}

// EventType returns the stream event type.
func (e ContentBlockStartEvent) EventType() StreamEventType { return e.Type }

// ParsedBlock unmarshals the inner content block.
func (e ContentBlockStartEvent) ParsedBlock() (ContentBlock, error) {
	var b ContentBlock
	if err := json.Unmarshal(e.ContentBlock, &b); err != nil {
		return ContentBlock{}, fmt.Errorf("unmarshal content block: %w", err)
	}
	return b, nil
}

// ContentBlockDeltaEvent carries one incremental delta for a content
// block.
type ContentBlockDeltaEvent struct {
	Delta json.RawMessage `json:"delta"`
	Type  StreamEventType `json:"type"`
	Index int             `json:"index"`
}

// EventType returns the stream event type.
func (e ContentBlockDeltaEvent) EventType() StreamEventType { return e.Type }

// ParsedDelta dispatches and unmarshals the inner delta.
func (e ContentBlockDeltaEvent) ParsedDelta() (DeltaData, error) {
	return ParseContentBlockDelta(e.Delta)
}

// DeltaType discriminates the kinds of content block delta.
type DeltaType string

const (
	DeltaTypeText       DeltaType = "text_delta"
	DeltaTypeThinking   DeltaType = "thinking_delta"
	DeltaTypeInputJSON  DeltaType = "input_json_delta"
)

// DeltaData is the interface implemented by every parsed delta kind.
type DeltaData interface {
	DeltaType() DeltaType
}

// TextDelta carries incremental assistant text.
type TextDelta struct {
	Type DeltaType `json:"type"`
	Text string    `json:"text"`
}

// DeltaType returns the delta kind.
func (d TextDelta) DeltaType() DeltaType { return d.Type }

// ThinkingDelta carries incremental extended-thinking text.
type ThinkingDelta struct {
	Type     DeltaType `json:"type"`
	Thinking string    `json:"thinking"`
}

// DeltaType returns the delta kind.
func (d ThinkingDelta) DeltaType() DeltaType { return d.Type }

// InputJSONDelta carries an incremental fragment of a tool use's JSON
// input.
type InputJSONDelta struct {
	Type        DeltaType `json:"type"`
	PartialJSON string    `json:"partial_json"`
}

// DeltaType returns the delta kind.
func (d InputJSONDelta) DeltaType() DeltaType { return d.Type }

// ParseContentBlockDelta dispatches a raw delta payload by its "type"
// field. Unknown delta kinds are logged and dropped rather than treated
// as fatal, since the streaming protocol may grow new delta kinds over
// time without breaking older clients.
func ParseContentBlockDelta(data json.RawMessage) (DeltaData, error) {
	var base struct {
		Type DeltaType `json:"type"`
	}
	if err := json.Unmarshal(data, &base); err != nil {
		return nil, fmt.Errorf("unmarshal delta type probe: %w", err)
	}

	switch base.Type {
	case DeltaTypeText:
		var d TextDelta
		if err := json.Unmarshal(data, &d); err != nil {
			return nil, err
		}
		return d, nil
	case DeltaTypeThinking:
		var d ThinkingDelta
		if err := json.Unmarshal(data, &d); err != nil {
			return nil, err
		}
		return d, nil
	case DeltaTypeInputJSON:
		var d InputJSONDelta
		if err := json.Unmarshal(data, &d); err != nil {
			return nil, err
		}
		return d, nil
	default:
		slog.Warn("skipping unknown content block delta type", "type", base.Type)
		return nil, nil
	}
}

// ContentBlockStopEvent signals the end of one content block.
type ContentBlockStopEvent struct {
	Type  StreamEventType `json:"type"`
	Index int             `json:"index"`
}

// EventType returns the stream event type.
func (e ContentBlockStopEvent) EventType() StreamEventType { return e.Type }

// MessageDelta carries message-level deltas (stop reason, usage) that
// arrive alongside a message_delta stream event.
type MessageDelta struct {
	StopReason   *string `json:"stop_reason"`
	StopSequence *string `json:"stop_sequence"`
}

// MessageDeltaEvent carries incremental message-level metadata.
type MessageDeltaEvent struct {
	Type  StreamEventType `json:"type"`
	Delta MessageDelta    `json:"delta"`
	Usage Usage           `json:"usage"`
}

// EventType returns the stream event type.
func (e MessageDeltaEvent) EventType() StreamEventType { return e.Type }

// MessageStopEvent signals completion of the streamed assistant message.
type MessageStopEvent struct {
	Type StreamEventType `json:"type"`
}

// EventType returns the stream event type.
func (e MessageStopEvent) EventType() StreamEventType { return e.Type }

// ParseStreamEvent dispatches the inner "event" payload of a StreamEvent
// message by its "type" field.
func ParseStreamEvent(data json.RawMessage) (StreamEventData, error) {
	var base struct {
		Type StreamEventType `json:"type"`
	}
	if err := json.Unmarshal(data, &base); err != nil {
		return nil, fmt.Errorf("unmarshal stream event type probe: %w", err)
	}

	switch base.Type {
	case StreamEventTypeMessageStart:
		var e MessageStartEvent
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, err
		}
		return e, nil
	case StreamEventTypeContentBlockStart:
		var e ContentBlockStartEvent
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, err
		}
		return e, nil
	case StreamEventTypeContentBlockDelta:
		var e ContentBlockDeltaEvent
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, err
		}
		return e, nil
	case StreamEventTypeContentBlockStop:
		var e ContentBlockStopEvent
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, err
		}
		return e, nil
	case StreamEventTypeMessageDelta:
		var e MessageDeltaEvent
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, err
		}
		return e, nil
	case StreamEventTypeMessageStop:
		var e MessageStopEvent
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, err
		}
		return e, nil
	default:
		slog.Warn("skipping unknown stream event type", "type", base.Type)
		return nil, nil
	}
}
