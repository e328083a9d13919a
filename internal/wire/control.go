package wire

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrUnknownMessageType is returned by ParseMessage for an unrecognized
// or missing top-level "type" field.
var ErrUnknownMessageType = errors.New("unknown message type")

// ControlRequest wraps a control message sent by the CLI to us.
type ControlRequest struct {
	Type      MessageType     `json:"type"`
	RequestID string          `json:"request_id"`
	Request   json.RawMessage `json:"request"`
}

// MsgType returns the message type.
func (m ControlRequest) MsgType() MessageType { return MessageTypeControlRequest }

// ParsedRequest parses the inner request payload.
func (m ControlRequest) ParsedRequest() (ControlRequestData, error) {
	return ParseControlRequest(m.Request)
}

// ControlCancelRequest cancels a previously issued control request.
type ControlCancelRequest struct {
	Type      MessageType `json:"type"`
	RequestID string      `json:"request_id"`
}

// MsgType returns the message type.
func (m ControlCancelRequest) MsgType() MessageType { return MessageTypeControlCancel }

// ControlRequestSubtype is the subtype of a control request.
type ControlRequestSubtype string

const (
	ControlRequestSubtypeCanUseTool        ControlRequestSubtype = "can_use_tool"
	ControlRequestSubtypeSetPermissionMode ControlRequestSubtype = "set_permission_mode"
	ControlRequestSubtypeInterrupt         ControlRequestSubtype = "interrupt"
	ControlRequestSubtypeHookCallback      ControlRequestSubtype = "hook_callback"
	ControlRequestSubtypeMCPMessage        ControlRequestSubtype = "mcp_message"
)

// ControlRequestData is the interface implemented by all parsed control
// request payloads.
type ControlRequestData interface {
	Subtype() ControlRequestSubtype
}

// CanUseToolRequest asks permission to execute a tool.
type CanUseToolRequest struct {
	Input                 map[string]interface{} `json:"input"`
	BlockedPath           *string                `json:"blocked_path,omitempty"`
	SubtypeField           ControlRequestSubtype  `json:"subtype"`
	ToolName              string                 `json:"tool_name"`
	ToolUseID             string                 `json:"tool_use_id,omitempty"`
	PermissionSuggestions []interface{}          `json:"permission_suggestions,omitempty"`
	Reason                string                 `json:"reason,omitempty"`
	ParentToolUseID       string                 `json:"parent_tool_use_id,omitempty"`
}

// Subtype returns the control request subtype.
func (r CanUseToolRequest) Subtype() ControlRequestSubtype { return r.SubtypeField }

// SetPermissionModeRequest changes the permission mode.
type SetPermissionModeRequest struct {
	SubtypeField ControlRequestSubtype `json:"subtype"`
	Mode         string                `json:"mode"`
}

// Subtype returns the control request subtype.
func (r SetPermissionModeRequest) Subtype() ControlRequestSubtype { return r.SubtypeField }

// InterruptRequest signals an interrupt.
type InterruptRequest struct {
	SubtypeField ControlRequestSubtype `json:"subtype"`
}

// Subtype returns the control request subtype.
func (r InterruptRequest) Subtype() ControlRequestSubtype { return r.SubtypeField }

// HookCallbackRequest asks us to run (or acknowledge) a lifecycle hook.
type HookCallbackRequest struct {
	SubtypeField ControlRequestSubtype `json:"subtype"`
	HookEvent    string                `json:"hook_event"`
	HookID       string                `json:"hook_id"`
	HookName     string                `json:"hook_name"`
}

// Subtype returns the control request subtype.
func (r HookCallbackRequest) Subtype() ControlRequestSubtype { return r.SubtypeField }

// MCPMessageRequest wraps a JSON-RPC message addressed to an MCP server.
type MCPMessageRequest struct {
	SubtypeField ControlRequestSubtype `json:"subtype"`
	ServerName   string                `json:"server_name"`
	Message      json.RawMessage       `json:"message"`
}

// Subtype returns the control request subtype.
func (r MCPMessageRequest) Subtype() ControlRequestSubtype { return r.SubtypeField }

// ParseControlRequest dispatches the inner request payload of a
// ControlRequest by its "subtype" field.
func ParseControlRequest(data json.RawMessage) (ControlRequestData, error) {
	var base struct {
		Subtype ControlRequestSubtype `json:"subtype"`
	}
	if err := json.Unmarshal(data, &base); err != nil {
		return nil, fmt.Errorf("unmarshal control request subtype probe: %w", err)
	}

	switch base.Subtype {
	case ControlRequestSubtypeCanUseTool:
		var r CanUseToolRequest
		if err := json.Unmarshal(data, &r); err != nil {
			return nil, err
		}
		return r, nil
	case ControlRequestSubtypeSetPermissionMode:
		var r SetPermissionModeRequest
		if err := json.Unmarshal(data, &r); err != nil {
			return nil, err
		}
		return r, nil
	case ControlRequestSubtypeInterrupt:
		var r InterruptRequest
		if err := json.Unmarshal(data, &r); err != nil {
			return nil, err
		}
		return r, nil
	case ControlRequestSubtypeHookCallback:
		var r HookCallbackRequest
		if err := json.Unmarshal(data, &r); err != nil {
			return nil, err
		}
		return r, nil
	case ControlRequestSubtypeMCPMessage:
		var r MCPMessageRequest
		if err := json.Unmarshal(data, &r); err != nil {
			return nil, err
		}
		return r, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMessageType, base.Subtype)
	}
}

// ControlResponse wraps a response we send back to the CLI for a prior
// control request.
type ControlResponse struct {
	Type     MessageType            `json:"type"`
	Response ControlResponsePayload `json:"response"`
}

// MsgType returns the message type.
func (m ControlResponse) MsgType() MessageType { return MessageTypeControlResponse }

// Marshal serializes the response to a JSON line ready to write to stdin.
func (m ControlResponse) Marshal() ([]byte, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshal ControlResponse: %w", err)
	}
	return b, nil
}

// ControlResponsePayload is the inner response payload.
type ControlResponsePayload struct {
	Subtype   string      `json:"subtype"`
	RequestID string      `json:"request_id"`
	Response  interface{} `json:"response,omitempty"`
	Error     string      `json:"error,omitempty"`
}

// PermissionBehavior is the behavior reported in a permission decision.
type PermissionBehavior string

const (
	PermissionBehaviorAllow PermissionBehavior = "allow"
	PermissionBehaviorDeny  PermissionBehavior = "deny"
)

// PermissionResultAllow allows tool execution. updatedInput must be a
// non-null object per the CLI's wire format; callers should fall back to
// the original input rather than passing nil.
type PermissionResultAllow struct {
	Behavior           PermissionBehavior     `json:"behavior"`
	UpdatedInput       map[string]interface{} `json:"updatedInput"`
	UpdatedPermissions []PermissionUpdate     `json:"updatedPermissions,omitempty"`
}

// PermissionResultDeny denies tool execution.
type PermissionResultDeny struct {
	Behavior  PermissionBehavior `json:"behavior"`
	Message   string             `json:"message,omitempty"`
	Interrupt bool               `json:"interrupt,omitempty"`
}

// PermissionUpdate describes a permission rule update accompanying an
// allow decision.
type PermissionUpdate struct {
	Type        string           `json:"type"`
	Behavior    string           `json:"behavior,omitempty"`
	Mode        string           `json:"mode,omitempty"`
	Destination string           `json:"destination,omitempty"`
	Rules       []PermissionRule `json:"rules,omitempty"`
	Directories []string         `json:"directories,omitempty"`
}

// PermissionRule describes a single permission rule.
type PermissionRule struct {
	ToolName    string `json:"tool_name"`
	RuleContent string `json:"rule_content,omitempty"`
}

// ControlRequestToSend is a control request we initiate toward the CLI
// (interrupt, set_permission_mode, set_model, control_cancel_request).
type ControlRequestToSend struct {
	Request   interface{} `json:"request"`
	Type      string      `json:"type"`
	RequestID string      `json:"request_id"`
}

// Marshal serializes the request to a JSON line ready to write to stdin.
func (m ControlRequestToSend) Marshal() ([]byte, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshal ControlRequestToSend: %w", err)
	}
	return b, nil
}

// InterruptRequestToSend is the request body for interrupting the
// running turn.
type InterruptRequestToSend struct {
	Subtype string `json:"subtype"`
}

// SetPermissionModeRequestToSend is the request body for changing
// permission mode mid-session.
type SetPermissionModeRequestToSend struct {
	Subtype string `json:"subtype"`
	Mode    string `json:"mode"`
}

// SetModelRequestToSend is the request body for switching models
// mid-session.
type SetModelRequestToSend struct {
	Subtype string `json:"subtype"`
	Model   string `json:"model"`
}
