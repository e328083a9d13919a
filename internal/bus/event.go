// Package bus defines the closed set of typed events the Protocol Parser
// produces and the Event Writer persists and publishes.
package bus

// EventTag discriminates the members of the Event sum type. Its string
// value is also the JSON "type" tag used in the persisted envelope and
// the published event stream.
type EventTag string

const (
	TagSessionInit      EventTag = "session_init"
	TagMessageDelta     EventTag = "message_delta"
	TagMessageComplete  EventTag = "message_complete"
	TagThinkingDelta    EventTag = "thinking_delta"
	TagToolStart        EventTag = "tool_start"
	TagToolInputDelta   EventTag = "tool_input_delta"
	TagToolEnd          EventTag = "tool_end"
	TagToolProgress     EventTag = "tool_progress"
	TagToolUseSummary   EventTag = "tool_use_summary"
	TagUserMessage      EventTag = "user_message"
	TagRunState         EventTag = "run_state"
	TagUsageUpdate      EventTag = "usage_update"
	TagPermissionPrompt EventTag = "permission_prompt"
	TagPermissionDenied EventTag = "permission_denied"
	TagHookStarted      EventTag = "hook_started"
	TagHookProgress     EventTag = "hook_progress"
	TagHookResponse     EventTag = "hook_response"
	TagHookCallback     EventTag = "hook_callback"
	TagCompactBoundary  EventTag = "compact_boundary"
	TagSystemStatus     EventTag = "system_status"
	TagAuthStatus       EventTag = "auth_status"
	TagTaskNotification EventTag = "task_notification"
	TagFilesPersisted   EventTag = "files_persisted"
	TagControlCancelled EventTag = "control_cancelled"
	TagCommandOutput    EventTag = "command_output"
	TagRaw              EventTag = "raw"
)

// Event is implemented by every member of the bus event sum type.
// ToolUseID returns "" for event kinds that carry no tool-use
// association; the validation wall (internal/parser) uses it to decide
// whether a tool-class event must be dropped for lacking one.
type Event interface {
	Tag() EventTag
	RunID() string
	ToolUseID() string
}

type Base struct {
	RunIDField string `json:"run_id"`
}

func (b Base) RunID() string    { return b.RunIDField }
func (b Base) ToolUseID() string { return "" }

// SessionInit announces a new or resumed session becoming ready.
type SessionInit struct {
	Base
	SessionID         string   `json:"session_id"`
	Model             string   `json:"model"`
	Tools             []string `json:"tools"`
	CWD               string   `json:"cwd"`
	SlashCommands     []string `json:"slash_commands,omitempty"`
	MCPServers        []MCPServerInfo `json:"mcp_servers,omitempty"`
	PermissionMode    string   `json:"permission_mode,omitempty"`
	APIKeySource      string   `json:"api_key_source,omitempty"`
	ClaudeCodeVersion string   `json:"claude_code_version,omitempty"`
	OutputStyle       string   `json:"output_style,omitempty"`
	Agents            []string `json:"agents,omitempty"`
	Skills            []string `json:"skills,omitempty"`
	Plugins           []string `json:"plugins,omitempty"`
}

// Tag returns the event tag.
func (e SessionInit) Tag() EventTag { return TagSessionInit }

// MCPServerInfo mirrors the name/status pair reported at init, dropping
// entries that arrive without a name.
type MCPServerInfo struct {
	Name   string `json:"name"`
	Status string `json:"status"`
}

// MessageDelta carries one chunk of streamed assistant text.
type MessageDelta struct {
	Base
	Text string `json:"text"`
}

// Tag returns the event tag.
func (e MessageDelta) Tag() EventTag { return TagMessageDelta }

// MessageComplete carries a finished assistant message.
type MessageComplete struct {
	Base
	MessageID  string  `json:"message_id"`
	Model      string  `json:"model"`
	Text       string  `json:"text"`
	StopReason *string `json:"stop_reason"`
	Usage      *MessageUsage `json:"usage,omitempty"`
}

// Tag returns the event tag.
func (e MessageComplete) Tag() EventTag { return TagMessageComplete }

// MessageUsage is the raw per-message usage carried on MessageComplete.
type MessageUsage struct {
	InputTokens              int `json:"input_tokens"`
	OutputTokens             int `json:"output_tokens"`
	CacheReadInputTokens     int `json:"cache_read_input_tokens"`
	CacheCreationInputTokens int `json:"cache_creation_input_tokens"`
}

// ThinkingDelta carries one chunk of streamed extended-thinking text.
type ThinkingDelta struct {
	Base
	Thinking string `json:"thinking"`
}

// Tag returns the event tag.
func (e ThinkingDelta) Tag() EventTag { return TagThinkingDelta }

// ToolStart announces a tool invocation beginning. Input is nil when the
// tool use was first observed via streaming (its input arrives later via
// ToolInputDelta).
type ToolStart struct {
	Base
	ToolUseIDField string                 `json:"tool_use_id"`
	Name           string                 `json:"name"`
	Input          map[string]interface{} `json:"input,omitempty"`
}

// Tag returns the event tag.
func (e ToolStart) Tag() EventTag { return TagToolStart }

// ToolUseID returns the associated tool-use id.
func (e ToolStart) ToolUseID() string { return e.ToolUseIDField }

// ToolInputDelta carries one incremental fragment of a tool's JSON input.
type ToolInputDelta struct {
	Base
	ToolUseIDField string `json:"tool_use_id"`
	PartialJSON    string `json:"partial_json"`
}

// Tag returns the event tag.
func (e ToolInputDelta) Tag() EventTag { return TagToolInputDelta }

// ToolUseID returns the associated tool-use id.
func (e ToolInputDelta) ToolUseID() string { return e.ToolUseIDField }

// ToolEnd announces a tool invocation's result.
type ToolEnd struct {
	Base
	ToolUseIDField string      `json:"tool_use_id"`
	Name           string      `json:"name"`
	Output         interface{} `json:"output"`
	Status         string      `json:"status"` // "success" | "error"
	StructuredResult interface{} `json:"structured_result,omitempty"`
}

// Tag returns the event tag.
func (e ToolEnd) Tag() EventTag { return TagToolEnd }

// ToolUseID returns the associated tool-use id.
func (e ToolEnd) ToolUseID() string { return e.ToolUseIDField }

// ToolProgress reports incremental elapsed time for a long-running tool.
type ToolProgress struct {
	Base
	ToolUseIDField     string  `json:"tool_use_id"`
	ElapsedTimeSeconds float64 `json:"elapsed_time_seconds"`
}

// Tag returns the event tag.
func (e ToolProgress) Tag() EventTag { return TagToolProgress }

// ToolUseID returns the associated tool-use id.
func (e ToolProgress) ToolUseID() string { return e.ToolUseIDField }

// ToolUseSummary groups several tool-use ids that preceded a higher-level
// operation (e.g. a multi-file edit summary).
type ToolUseSummary struct {
	Base
	ToolUseIDField       string   `json:"tool_use_id"`
	PrecedingToolUseIDs  []string `json:"preceding_tool_use_ids"`
}

// Tag returns the event tag.
func (e ToolUseSummary) Tag() EventTag { return TagToolUseSummary }

// ToolUseID returns the associated tool-use id.
func (e ToolUseSummary) ToolUseID() string { return e.ToolUseIDField }

// UserMessage republishes the outbound user message for history/replay.
type UserMessage struct {
	Base
	Text        string   `json:"text"`
	Attachments []string `json:"attachments,omitempty"`
}

// Tag returns the event tag.
func (e UserMessage) Tag() EventTag { return TagUserMessage }

// RunState announces a lifecycle state transition. State is one of
// spawning, running, idle, failed, completed, stopped.
type RunState struct {
	Base
	State    string `json:"state"`
	Error    string `json:"error,omitempty"`
	ExitCode *int   `json:"exit_code,omitempty"`
}

// Tag returns the event tag.
func (e RunState) Tag() EventTag { return TagRunState }

// UsageUpdate carries recalculated cost/token accounting for one turn.
// TurnIndex is injected by the actor, not the parser, since only the
// actor knows which turn a result event closes.
type UsageUpdate struct {
	Base
	TurnIndex                int                    `json:"turn_index"`
	InputTokens              int                    `json:"input_tokens"`
	OutputTokens             int                    `json:"output_tokens"`
	CacheReadTokens          int                    `json:"cache_read_tokens"`
	CacheCreationTokens      int                    `json:"cache_creation_tokens"`
	TotalCostUSD             float64                `json:"total_cost_usd"`
	ModelUsage               map[string]ModelCost   `json:"model_usage,omitempty"`
	DurationAPIMs            int64                  `json:"duration_api_ms,omitempty"`
	DurationMs               int64                  `json:"duration_ms,omitempty"`
	NumTurns                 int                    `json:"num_turns,omitempty"`
	StopReason               string                 `json:"stop_reason,omitempty"`
	ServiceTier               string                 `json:"service_tier,omitempty"`
	WebFetchRequests          int                    `json:"web_fetch_requests,omitempty"`
	CacheCreation5mTokens     int                    `json:"cache_creation_5m_tokens,omitempty"`
	CacheCreation1hTokens     int                    `json:"cache_creation_1h_tokens,omitempty"`
}

// Tag returns the event tag.
func (e UsageUpdate) Tag() EventTag { return TagUsageUpdate }

// ModelCost is the recalculated cost/usage for one model within a
// multi-model turn.
type ModelCost struct {
	InputTokens  int     `json:"inputTokens"`
	OutputTokens int     `json:"outputTokens"`
	CostUSD      float64 `json:"costUSD"`
}

// PermissionPrompt surfaces an interactive can_use_tool control request.
type PermissionPrompt struct {
	Base
	RequestID       string        `json:"request_id"`
	ToolName        string        `json:"tool_name"`
	ToolUseIDField  string        `json:"tool_use_id"`
	Input           interface{}   `json:"input"`
	Reason          string        `json:"reason,omitempty"`
	ParentToolUseID string        `json:"parent_tool_use_id,omitempty"`
	Suggestions     []interface{} `json:"suggestions,omitempty"`
}

// Tag returns the event tag.
func (e PermissionPrompt) Tag() EventTag { return TagPermissionPrompt }

// ToolUseID returns the associated tool-use id.
func (e PermissionPrompt) ToolUseID() string { return e.ToolUseIDField }

// PermissionDenied surfaces one denial reported inside a result message.
type PermissionDenied struct {
	Base
	ToolUseIDField string `json:"tool_use_id"`
	ToolName       string `json:"tool_name"`
	Message        string `json:"message,omitempty"`
}

// Tag returns the event tag.
func (e PermissionDenied) Tag() EventTag { return TagPermissionDenied }

// ToolUseID returns the associated tool-use id.
func (e PermissionDenied) ToolUseID() string { return e.ToolUseIDField }

// HookStarted announces a lifecycle hook beginning execution.
type HookStarted struct {
	Base
	HookEvent string `json:"hook_event"`
	HookID    string `json:"hook_id"`
	HookName  string `json:"hook_name"`
}

// Tag returns the event tag.
func (e HookStarted) Tag() EventTag { return TagHookStarted }

// HookProgress reports incremental hook stdout/stderr.
type HookProgress struct {
	Base
	HookID string `json:"hook_id"`
	Stdout string `json:"stdout,omitempty"`
	Stderr string `json:"stderr,omitempty"`
}

// Tag returns the event tag.
func (e HookProgress) Tag() EventTag { return TagHookProgress }

// HookResponse carries a hook's final outcome.
type HookResponse struct {
	Base
	HookID   string `json:"hook_id"`
	Outcome  string `json:"outcome"`
	Stdout   string `json:"stdout,omitempty"`
	Stderr   string `json:"stderr,omitempty"`
	ExitCode *int   `json:"exit_code,omitempty"`
}

// Tag returns the event tag.
func (e HookResponse) Tag() EventTag { return TagHookResponse }

// HookCallback surfaces an interactive hook_callback control request.
type HookCallback struct {
	Base
	RequestID string `json:"request_id"`
	HookEvent string `json:"hook_event"`
	HookID    string `json:"hook_id"`
	HookName  string `json:"hook_name"`
}

// Tag returns the event tag.
func (e HookCallback) Tag() EventTag { return TagHookCallback }

// CompactBoundary marks a context-compaction point.
type CompactBoundary struct {
	Base
	Trigger   string `json:"trigger"` // manual | auto | micro_auto
	PreTokens *int   `json:"pre_tokens,omitempty"`
}

// Tag returns the event tag.
func (e CompactBoundary) Tag() EventTag { return TagCompactBoundary }

// SystemStatus carries a miscellaneous system status update.
type SystemStatus struct {
	Base
	Content string `json:"content,omitempty"`
}

// Tag returns the event tag.
func (e SystemStatus) Tag() EventTag { return TagSystemStatus }

// AuthStatus reports authentication progress.
type AuthStatus struct {
	Base
	IsAuthenticating bool   `json:"is_authenticating"`
	Output           string `json:"output,omitempty"`
}

// Tag returns the event tag.
func (e AuthStatus) Tag() EventTag { return TagAuthStatus }

// TaskNotification carries a background task notification.
type TaskNotification struct {
	Base
	Content string `json:"content,omitempty"`
}

// Tag returns the event tag.
func (e TaskNotification) Tag() EventTag { return TagTaskNotification }

// FilesPersisted announces that attachments were written to disk.
type FilesPersisted struct {
	Base
	Paths []string `json:"paths"`
}

// Tag returns the event tag.
func (e FilesPersisted) Tag() EventTag { return TagFilesPersisted }

// ControlCancelled announces a control request was cancelled before a
// response arrived.
type ControlCancelled struct {
	Base
	RequestID string `json:"request_id"`
}

// Tag returns the event tag.
func (e ControlCancelled) Tag() EventTag { return TagControlCancelled }

// CommandOutput surfaces slash-command stdout, including the synthetic
// fallback text for commands the subprocess didn't natively report.
type CommandOutput struct {
	Base
	Content string `json:"content"`
}

// Tag returns the event tag.
func (e CommandOutput) Tag() EventTag { return TagCommandOutput }

// Raw wraps an unrecognized wire message for persistence without
// interpretation.
type Raw struct {
	Base
	Source string `json:"source"`
	Body   string `json:"body,omitempty"`
}

// Tag returns the event tag.
func (e Raw) Tag() EventTag { return TagRaw }

// WithRunID returns a copy of base stamped with the given run id. Event
// constructors in internal/parser call this first, then fill in the
// remaining fields with a struct literal.
func WithRunID(runID string) Base {
	return Base{RunIDField: runID}
}
