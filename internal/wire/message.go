// Package wire defines the line-delimited JSON vocabulary exchanged with
// the Claude Code CLI subprocess over stdin/stdout.
package wire

import (
	"encoding/json"
	"fmt"
)

// MessageType discriminates between top-level message kinds.
type MessageType string

const (
	MessageTypeSystem          MessageType = "system"
	MessageTypeAssistant       MessageType = "assistant"
	MessageTypeUser            MessageType = "user"
	MessageTypeResult          MessageType = "result"
	MessageTypeStreamEvent     MessageType = "stream_event"
	MessageTypeControlRequest  MessageType = "control_request"
	MessageTypeControlResponse MessageType = "control_response"
	MessageTypeControlCancel   MessageType = "control_cancel_request"
	MessageTypeToolProgress    MessageType = "tool_progress"
	MessageTypeToolUseSummary  MessageType = "tool_use_summary"
)

// Message is the interface implemented by every top-level wire message.
type Message interface {
	MsgType() MessageType
}

// MCPServer describes one MCP server connection reported at init.
type MCPServer struct {
	Name   string `json:"name"`
	Status string `json:"status"`
}

// Plugin describes a loaded plugin.
type Plugin struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// SystemMessage covers session initialization and system events
// (init, compact_boundary, microcompact_boundary, status, hook_*,
// task_notification, files_persisted, auth_status, and any other
// subtype the CLI emits under type "system").
type SystemMessage struct {
	ExitCode          *int        `json:"exit_code,omitempty"`
	UUID              string      `json:"uuid"`
	PermissionMode    string      `json:"permissionMode,omitempty"`
	ClaudeCodeVersion string      `json:"claude_code_version,omitempty"`
	CWD               string      `json:"cwd,omitempty"`
	Type              MessageType `json:"type"`
	Subtype           string      `json:"subtype"`
	Model             string      `json:"model,omitempty"`
	SessionID         string      `json:"session_id"`
	Stderr            string      `json:"stderr,omitempty"`
	Stdout            string      `json:"stdout,omitempty"`
	HookEvent         string      `json:"hook_event,omitempty"`
	HookID            string      `json:"hook_id,omitempty"`
	HookName          string      `json:"hook_name,omitempty"`
	APIKeySource      string      `json:"apiKeySource,omitempty"`
	OutputStyle       string      `json:"output_style,omitempty"`
	Trigger           string      `json:"trigger,omitempty"`
	PreTokens         int         `json:"pre_tokens,omitempty"`
	DurationMs        int64       `json:"durationMs,omitempty"`
	Content           string      `json:"content,omitempty"`
	IsAuthenticating  bool        `json:"is_authenticating,omitempty"`
	Output            string      `json:"output,omitempty"`
	Tools             []string    `json:"tools,omitempty"`
	Plugins           []Plugin    `json:"plugins,omitempty"`
	Skills            []string    `json:"skills,omitempty"`
	Agents            []string    `json:"agents,omitempty"`
	SlashCommands     []string    `json:"slash_commands,omitempty"`
	MCPServers        []MCPServer `json:"mcp_servers,omitempty"`
	Data              json.RawMessage `json:"data,omitempty"`
	Error             json.RawMessage `json:"error,omitempty"`
}

// MsgType returns the message type.
func (m SystemMessage) MsgType() MessageType { return MessageTypeSystem }

// CacheCreation contains cache creation timing details.
type CacheCreation struct {
	Ephemeral5mInputTokens int `json:"ephemeral_5m_input_tokens,omitempty"`
	Ephemeral1hInputTokens int `json:"ephemeral_1h_input_tokens,omitempty"`
}

// Usage tracks token usage on assistant/user message content.
type Usage struct {
	ServiceTier              string        `json:"service_tier,omitempty"`
	CacheCreation            CacheCreation `json:"cache_creation,omitempty"`
	InputTokens              int           `json:"input_tokens"`
	CacheCreationInputTokens int           `json:"cache_creation_input_tokens"`
	CacheReadInputTokens     int           `json:"cache_read_input_tokens"`
	OutputTokens             int           `json:"output_tokens"`
}

// FlexibleContent is either a plain string or an array of content blocks.
type FlexibleContent struct {
	raw json.RawMessage
}

// UnmarshalJSON implements json.Unmarshaler.
func (fc *FlexibleContent) UnmarshalJSON(data []byte) error {
	fc.raw = append([]byte(nil), data...)
	return nil
}

// MarshalJSON implements json.Marshaler.
func (fc FlexibleContent) MarshalJSON() ([]byte, error) {
	if fc.raw == nil {
		return []byte("null"), nil
	}
	return fc.raw, nil
}

// IsString reports whether the content is a plain string.
func (fc FlexibleContent) IsString() bool {
	if len(fc.raw) == 0 {
		return false
	}
	return fc.raw[0] == '"'
}

// AsString returns the content as a string, if it is one.
func (fc FlexibleContent) AsString() (string, bool) {
	if !fc.IsString() {
		return "", false
	}
	var s string
	if err := json.Unmarshal(fc.raw, &s); err != nil {
		return "", false
	}
	return s, true
}

// AsBlocks returns the content as content blocks, if it is an array.
func (fc FlexibleContent) AsBlocks() (ContentBlocks, bool) {
	if fc.IsString() || len(fc.raw) == 0 {
		return nil, false
	}
	var blocks ContentBlocks
	if err := json.Unmarshal(fc.raw, &blocks); err != nil {
		return nil, false
	}
	return blocks, true
}

// ContentBlockType discriminates content block kinds.
type ContentBlockType string

const (
	ContentBlockTypeText       ContentBlockType = "text"
	ContentBlockTypeThinking   ContentBlockType = "thinking"
	ContentBlockTypeToolUse    ContentBlockType = "tool_use"
	ContentBlockTypeToolResult ContentBlockType = "tool_result"
	ContentBlockTypeImage      ContentBlockType = "image"
	ContentBlockTypeDocument   ContentBlockType = "document"
)

// ContentBlock is one element of a message's content array.
type ContentBlock struct {
	Input     map[string]interface{} `json:"input,omitempty"`
	Source    json.RawMessage        `json:"source,omitempty"`
	Content   interface{}            `json:"content,omitempty"`
	Type      ContentBlockType       `json:"type"`
	ID        string                 `json:"id,omitempty"`
	Name      string                 `json:"name,omitempty"`
	Text      string                 `json:"text,omitempty"`
	Thinking  string                 `json:"thinking,omitempty"`
	ToolUseID string                 `json:"tool_use_id,omitempty"`
	IsError   bool                   `json:"is_error,omitempty"`
}

// ContentBlocks is an ordered list of content blocks.
type ContentBlocks []ContentBlock

// MessageContent is the inner content of assistant/user messages.
type MessageContent struct {
	Model        string          `json:"model,omitempty"`
	ID           string          `json:"id,omitempty"`
	Type         string          `json:"type,omitempty"`
	Role         string          `json:"role"`
	Content      FlexibleContent `json:"content"`
	StopReason   *string         `json:"stop_reason"`
	StopSequence *string         `json:"stop_sequence"`
	Usage        Usage           `json:"usage,omitempty"`
}

// AssistantMessage is a complete message from Claude.
type AssistantMessage struct {
	ParentToolUseID *string        `json:"parent_tool_use_id"`
	Type            MessageType    `json:"type"`
	SessionID       string         `json:"session_id"`
	UUID            string         `json:"uuid"`
	Message         MessageContent `json:"message"`
}

// MsgType returns the message type.
func (m AssistantMessage) MsgType() MessageType { return MessageTypeAssistant }

// UserMessage represents tool results (and local-command output) echoed
// back from the CLI.
type UserMessage struct {
	ParentToolUseID *string         `json:"parent_tool_use_id"`
	Type            MessageType     `json:"type"`
	SessionID       string          `json:"session_id"`
	UUID            string          `json:"uuid"`
	Message         MessageContent  `json:"message"`
	ToolUseResult   json.RawMessage `json:"tool_use_result,omitempty"`
}

// MsgType returns the message type.
func (m UserMessage) MsgType() MessageType { return MessageTypeUser }

// ServerToolUseStats tracks server-side tool usage.
type ServerToolUseStats struct {
	WebSearchRequests int `json:"web_search_requests,omitempty"`
	WebFetchRequests  int `json:"web_fetch_requests,omitempty"`
}

// UsageDetails is the extended usage on a result message.
type UsageDetails struct {
	ServiceTier              string             `json:"service_tier,omitempty"`
	ServerToolUse            ServerToolUseStats `json:"server_tool_use,omitempty"`
	CacheCreation            CacheCreation      `json:"cache_creation,omitempty"`
	InputTokens              int                `json:"input_tokens"`
	CacheCreationInputTokens int                `json:"cache_creation_input_tokens"`
	CacheReadInputTokens     int                `json:"cache_read_input_tokens"`
	OutputTokens             int                `json:"output_tokens"`
}

// ModelUsage tracks usage for one model inside a result message's
// modelUsage map. Field names are camelCase, matching the CLI's own
// wire casing for this map (distinct from the snake_case used elsewhere).
type ModelUsage struct {
	InputTokens              int     `json:"inputTokens"`
	OutputTokens             int     `json:"outputTokens"`
	CacheReadInputTokens     int     `json:"cacheReadInputTokens"`
	CacheCreationInputTokens int     `json:"cacheCreationInputTokens"`
	WebSearchRequests        int     `json:"webSearchRequests,omitempty"`
	CostUSD                  float64 `json:"costUSD"`
	ContextWindow            int     `json:"contextWindow,omitempty"`
	MaxOutputTokens          int     `json:"maxOutputTokens,omitempty"`
}

// ResultMessage contains turn completion metrics.
type ResultMessage struct {
	ModelUsage        map[string]ModelUsage `json:"modelUsage,omitempty"`
	SessionID         string                `json:"session_id"`
	Subtype           string                `json:"subtype"`
	UUID              string                `json:"uuid"`
	Type              MessageType           `json:"type"`
	Result            string                `json:"result"`
	Error             string                `json:"error,omitempty"`
	Errors            []string              `json:"errors,omitempty"`
	PermissionDenials []PermissionDenial    `json:"permission_denials,omitempty"`
	Usage             UsageDetails          `json:"usage"`
	TotalCostUSD      float64               `json:"total_cost_usd"`
	NumTurns          int                   `json:"num_turns"`
	DurationAPIMs     int64                 `json:"duration_api_ms"`
	DurationMs        int64                 `json:"duration_ms"`
	IsError           bool                  `json:"is_error"`
}

// MsgType returns the message type.
func (m ResultMessage) MsgType() MessageType { return MessageTypeResult }

// PermissionDenial describes one denied tool-use reported in a result.
type PermissionDenial struct {
	ToolName  string `json:"tool_name"`
	ToolUseID string `json:"tool_use_id"`
	Message   string `json:"message,omitempty"`
}

// UserMessageToSend is the outbound user-message envelope written to
// the CLI's stdin.
type UserMessageToSend struct {
	Message UserMessageToSendInner `json:"message"`
	Type    string                 `json:"type"`
	UUID    string                 `json:"uuid,omitempty"`
}

// UserMessageToSendInner is the inner part of an outbound user message.
type UserMessageToSendInner struct {
	Content interface{} `json:"content"`
	Role    string      `json:"role"`
}

// Marshal serializes the message to a JSON line ready to write to the CLI.
func (m UserMessageToSend) Marshal() ([]byte, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshal UserMessageToSend: %w", err)
	}
	return b, nil
}

// TextBlock builds a plain text content block for an outbound message.
func TextBlock(text string) map[string]interface{} {
	return map[string]interface{}{"type": "text", "text": text}
}

// ImageBlock builds a base64 image content block.
func ImageBlock(mediaType, base64Data string) map[string]interface{} {
	return map[string]interface{}{
		"type": "image",
		"source": map[string]interface{}{
			"type":       "base64",
			"media_type": mediaType,
			"data":       base64Data,
		},
	}
}

// ToolProgressMessage reports incremental elapsed time for a long-running
// tool invocation.
type ToolProgressMessage struct {
	Type               MessageType `json:"type"`
	ToolUseID          string      `json:"tool_use_id"`
	ElapsedTimeSeconds float64     `json:"elapsed_time_seconds"`
}

// MsgType returns the message type.
func (m ToolProgressMessage) MsgType() MessageType { return MessageTypeToolProgress }

// ToolUseSummaryMessage groups tool-use ids that preceded a higher-level
// operation.
type ToolUseSummaryMessage struct {
	Type                MessageType `json:"type"`
	ToolUseID           string      `json:"tool_use_id"`
	PrecedingToolUseIDs []string    `json:"preceding_tool_use_ids"`
}

// MsgType returns the message type.
func (m ToolUseSummaryMessage) MsgType() MessageType { return MessageTypeToolUseSummary }

// rawMessage is used for initial type discrimination before dispatch.
type rawMessage struct {
	Type MessageType `json:"type"`
}

// ParseMessage parses one raw JSON line from CLI stdout into a typed
// Message. The top-level "type" field selects the concrete type; an
// empty or unrecognized type is reported as an error so the caller
// (internal/parser) can decide how to degrade.
func ParseMessage(data []byte) (Message, error) {
	var probe rawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("unmarshal message envelope: %w", err)
	}

	switch probe.Type {
	case MessageTypeSystem:
		var m SystemMessage
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("unmarshal system message: %w", err)
		}
		return m, nil
	case MessageTypeAssistant:
		var m AssistantMessage
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("unmarshal assistant message: %w", err)
		}
		return m, nil
	case MessageTypeUser:
		var m UserMessage
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("unmarshal user message: %w", err)
		}
		return m, nil
	case MessageTypeResult:
		var m ResultMessage
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("unmarshal result message: %w", err)
		}
		return m, nil
	case MessageTypeStreamEvent:
		var m StreamEvent
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("unmarshal stream event: %w", err)
		}
		return m, nil
	case MessageTypeControlRequest:
		var m ControlRequest
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("unmarshal control request: %w", err)
		}
		return m, nil
	case MessageTypeControlResponse:
		var m ControlResponse
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("unmarshal control response: %w", err)
		}
		return m, nil
	case MessageTypeControlCancel:
		var m ControlCancelRequest
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("unmarshal control cancel request: %w", err)
		}
		return m, nil
	case MessageTypeToolProgress:
		var m ToolProgressMessage
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("unmarshal tool progress message: %w", err)
		}
		return m, nil
	case MessageTypeToolUseSummary:
		var m ToolUseSummaryMessage
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("unmarshal tool use summary message: %w", err)
		}
		return m, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMessageType, probe.Type)
	}
}
