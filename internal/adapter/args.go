package adapter

import (
	"fmt"
	"strconv"
	"strings"
)

// SessionMode discriminates how a subprocess is being started, for the
// validation rules in Validate.
type SessionMode int

const (
	ModeNew SessionMode = iota
	ModeResume
	ModeContinue
	ModeFork
)

// BuildArgs renders s into the ordered CLI argument vector the subprocess
// is invoked with. printMode gates the print-only flags (today just
// --json-schema); --include-partial-messages is never emitted here, since
// it requires --output-format=stream-json and only the streaming spawn
// path (which always uses that format) is allowed to add it.
func BuildArgs(s Settings, printMode bool) []string {
	var args []string

	if s.Model != "" {
		args = append(args, "--model", s.Model)
	}
	if len(s.AllowedTools) > 0 {
		args = append(args, "--allowedTools", strings.Join(s.AllowedTools, ","))
	}
	if len(s.DisallowedTools) > 0 {
		args = append(args, "--disallowed-tools", strings.Join(s.DisallowedTools, ","))
	}
	if s.PermissionMode != "" {
		args = append(args, "--permission-mode", s.PermissionMode)
	}

	// system_prompt takes priority over append_system_prompt.
	switch {
	case s.SystemPrompt != "":
		args = append(args, "--system-prompt", s.SystemPrompt)
	case s.AppendSystemPrompt != "":
		args = append(args, "--append-system-prompt", s.AppendSystemPrompt)
	}

	if s.ToolSet != "" {
		args = append(args, "--tools", s.ToolSet)
	}
	for _, dir := range s.AddDirs {
		args = append(args, "--add-dir", dir)
	}

	if s.DebugSet {
		if s.Debug == "" {
			args = append(args, "--debug")
		} else {
			args = append(args, "--debug", s.Debug)
		}
	}

	if s.NoSessionPersistence {
		args = append(args, "--no-session-persistence")
	}

	if s.MaxBudgetUSD != nil {
		args = append(args, "--max-budget-usd", strconv.FormatFloat(*s.MaxBudgetUSD, 'f', -1, 64))
	}
	if s.FallbackModel != "" {
		args = append(args, "--fallback-model", s.FallbackModel)
	}
	if s.MaxTurns != nil {
		args = append(args, "--max-turns", strconv.Itoa(*s.MaxTurns))
	}
	if s.Effort != "" {
		args = append(args, "--effort", s.Effort)
	}
	if len(s.Betas) > 0 {
		args = append(args, "--betas", strings.Join(s.Betas, ","))
	}
	if s.AgentsJSON != "" {
		args = append(args, "--agents", s.AgentsJSON)
	}

	if printMode && s.JSONSchema != "" {
		args = append(args, "--json-schema", s.JSONSchema)
	}

	return args
}

// Validate rejects settings/mode combinations the subprocess would refuse.
// NoSessionPersistence only makes sense for a brand new session: resuming,
// continuing, or forking all depend on persisted session state existing.
func Validate(s Settings, mode SessionMode) error {
	if s.NoSessionPersistence && mode != ModeNew {
		return fmt.Errorf("adapter: no_session_persistence cannot be combined with resume, continue, or fork")
	}
	return nil
}
