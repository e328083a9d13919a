// Package adapter translates a unified settings record into the CLI
// argument vector the Session Actor passes to the agent subprocess (local
// or over ssh). It has no knowledge of how the subprocess is started; it
// only builds the argument list.
package adapter

import "log/slog"

// Settings is the merged view of agent-level and user-level configuration
// that controls how a subprocess is invoked. Agent-level fields win over
// user-level ones; a per-message model override wins over both.
type Settings struct {
	Model                  string
	AllowedTools           []string
	DisallowedTools        []string
	PermissionMode         string
	SystemPrompt           string
	AppendSystemPrompt     string
	ToolSet                string
	AddDirs                []string
	Debug                  string
	DebugSet               bool
	NoSessionPersistence   bool
	MaxBudgetUSD           *float64
	FallbackModel          string
	MaxTurns               *int
	Effort                 string
	Betas                  []string
	AgentsJSON             string
	JSONSchema             string
	IncludePartialMessages bool
}

// AgentOverrides is the subset of per-agent configuration that takes
// priority over UserDefaults when building a run's Settings.
type AgentOverrides struct {
	Model                  string
	AllowedTools           []string
	DisallowedTools        []string
	PlanMode               bool
	AppendSystemPrompt     string
	MaxBudgetUSD           *float64
	FallbackModel          string
	SystemPrompt           string
	ToolSet                string
	AddDirs                []string
	JSONSchema             string
	IncludePartialMessages *bool
	Debug                  string
	DebugSet               bool
	NoSessionPersistence   bool
	MaxTurns               *int
	Effort                 string
	Betas                  []string
	AgentsJSON             string
}

// UserDefaults is the fallback configuration applied when an agent does
// not override a given field.
type UserDefaults struct {
	DefaultModel   string
	AllowedTools   []string
	PermissionMode string
	MaxBudgetUSD   *float64
	FallbackModel  string
}

// uiPermissionModes maps the internal UI vocabulary to the CLI's
// --permission-mode values. plan is reachable only through AgentOverrides's
// PlanMode flag, not through this table.
var uiPermissionModes = map[string]string{
	"ask":       "default",
	"auto_read": "acceptEdits",
	"auto_all":  "bypassPermissions",
	"delegate":  "delegate",
	"dont_ask":  "dontAsk",
}

func mapPermissionMode(mode string) string {
	if v, ok := uiPermissionModes[mode]; ok {
		return v
	}
	slog.Warn("unknown permission mode, passing through to CLI", "mode", mode)
	return mode
}

// Build merges agent overrides onto user defaults, applying modelOverride
// (a UI per-message override) with the highest priority, and resolves the
// permission-mode UI vocabulary into the CLI's own values.
func Build(agent AgentOverrides, user UserDefaults, modelOverride string) Settings {
	model := modelOverride
	if model == "" {
		model = agent.Model
	}
	if model == "" {
		model = user.DefaultModel
	}

	allowedTools := agent.AllowedTools
	if len(allowedTools) == 0 {
		allowedTools = user.AllowedTools
	}

	var permissionMode string
	switch {
	case agent.PlanMode:
		permissionMode = "plan"
	case user.PermissionMode != "":
		permissionMode = mapPermissionMode(user.PermissionMode)
	}

	maxBudgetUSD := agent.MaxBudgetUSD
	if maxBudgetUSD == nil {
		maxBudgetUSD = user.MaxBudgetUSD
	}

	fallbackModel := agent.FallbackModel
	if fallbackModel == "" {
		fallbackModel = user.FallbackModel
	}

	includePartial := true
	if agent.IncludePartialMessages != nil {
		includePartial = *agent.IncludePartialMessages
	}

	if agent.SystemPrompt != "" && agent.AppendSystemPrompt != "" {
		slog.Warn("both system_prompt and append_system_prompt set; system_prompt takes priority")
	}

	return Settings{
		Model:                  model,
		AllowedTools:           allowedTools,
		DisallowedTools:        agent.DisallowedTools,
		PermissionMode:         permissionMode,
		SystemPrompt:           agent.SystemPrompt,
		AppendSystemPrompt:     agent.AppendSystemPrompt,
		ToolSet:                agent.ToolSet,
		AddDirs:                agent.AddDirs,
		Debug:                  agent.Debug,
		DebugSet:               agent.DebugSet,
		NoSessionPersistence:   agent.NoSessionPersistence,
		MaxBudgetUSD:           maxBudgetUSD,
		FallbackModel:          fallbackModel,
		MaxTurns:               agent.MaxTurns,
		Effort:                 agent.Effort,
		Betas:                  agent.Betas,
		AgentsJSON:             agent.AgentsJSON,
		JSONSchema:             agent.JSONSchema,
		IncludePartialMessages: includePartial,
	}
}
