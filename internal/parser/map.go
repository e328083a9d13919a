package parser

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/bazelment/sessioncore/internal/bus"
	"github.com/bazelment/sessioncore/internal/pricing"
	"github.com/bazelment/sessioncore/internal/wire"
)

const localCommandStdoutOpen = "<local-command-stdout>"
const localCommandStdoutClose = "</local-command-stdout>"

// MapEvent maps one raw wire message into zero or more typed bus events,
// mutating the accumulator as needed. A parse failure in the top-level
// envelope is reported as an error; the caller (internal/actor) decides
// whether to swallow it (quarantine) or surface a Raw event carrying the
// offending line (user turn / idle).
func (s *State) MapEvent(runID string, raw []byte) ([]bus.Event, error) {
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		s.ParseWarnCount++
		return nil, fmt.Errorf("probe message type: %w", err)
	}
	if probe.Type == "" {
		s.DroppedCount++
		return nil, nil
	}

	msg, err := wire.ParseMessage(raw)
	if err != nil {
		s.UnknownEventCount++
		return []bus.Event{bus.Raw{
			Base:   bus.WithRunID(runID),
			Source: "claude_" + probe.Type,
			Body:   string(raw),
		}}, nil
	}

	switch m := msg.(type) {
	case wire.SystemMessage:
		return s.mapSystem(runID, m), nil
	case wire.StreamEvent:
		return s.mapStreamEvent(runID, m), nil
	case wire.AssistantMessage:
		return s.mapAssistant(runID, m), nil
	case wire.UserMessage:
		return s.mapUser(runID, m), nil
	case wire.ResultMessage:
		return s.mapResult(runID, m), nil
	case wire.ToolProgressMessage:
		return []bus.Event{bus.ToolProgress{
			Base:               bus.WithRunID(runID),
			ToolUseIDField:     m.ToolUseID,
			ElapsedTimeSeconds: m.ElapsedTimeSeconds,
		}}, nil
	case wire.ToolUseSummaryMessage:
		return []bus.Event{bus.ToolUseSummary{
			Base:                bus.WithRunID(runID),
			ToolUseIDField:      m.ToolUseID,
			PrecedingToolUseIDs: m.PrecedingToolUseIDs,
		}}, nil
	case wire.ControlRequest, wire.ControlResponse, wire.ControlCancelRequest:
		// Control-plane messages are routed directly by internal/actor,
		// not through the bus event mapper.
		return nil, nil
	default:
		s.DroppedCount++
		return nil, nil
	}
}

func (s *State) mapSystem(runID string, m wire.SystemMessage) []bus.Event {
	switch m.Subtype {
	case "init":
		evt := bus.SessionInit{
			Base:              bus.WithRunID(runID),
			SessionID:         m.SessionID,
			Model:             m.Model,
			Tools:             m.Tools,
			CWD:               m.CWD,
			SlashCommands:     m.SlashCommands,
			PermissionMode:    m.PermissionMode,
			APIKeySource:      m.APIKeySource,
			ClaudeCodeVersion: m.ClaudeCodeVersion,
			OutputStyle:       m.OutputStyle,
			Agents:            m.Agents,
			Skills:            m.Skills,
		}
		for _, p := range m.Plugins {
			evt.Plugins = append(evt.Plugins, p.Name)
		}
		for _, srv := range m.MCPServers {
			if srv.Name == "" {
				s.ParseWarnCount++
				continue
			}
			evt.MCPServers = append(evt.MCPServers, bus.MCPServerInfo{Name: srv.Name, Status: srv.Status})
		}

		events := []bus.Event{evt}
		if !s.seenFirstInit && !s.isResume {
			events = append(events, bus.RunState{Base: bus.WithRunID(runID), State: "running"})
		}
		s.seenFirstInit = true
		return events

	case "compact_boundary", "microcompact_boundary":
		trigger := "auto"
		if m.Subtype == "microcompact_boundary" {
			trigger = "micro_auto"
		} else if m.Trigger != "" {
			trigger = m.Trigger
		}
		var pre *int
		if m.PreTokens > 0 {
			v := m.PreTokens
			pre = &v
		}
		return []bus.Event{bus.CompactBoundary{Base: bus.WithRunID(runID), Trigger: trigger, PreTokens: pre}}

	case "status":
		return []bus.Event{bus.SystemStatus{Base: bus.WithRunID(runID), Content: m.Content}}

	case "hook_started":
		return []bus.Event{bus.HookStarted{
			Base:      bus.WithRunID(runID),
			HookEvent: m.HookEvent,
			HookID:    m.HookID,
			HookName:  m.HookName,
		}}

	case "hook_progress":
		return []bus.Event{bus.HookProgress{
			Base:   bus.WithRunID(runID),
			HookID: m.HookID,
			Stdout: m.Stdout,
			Stderr: m.Stderr,
		}}

	case "hook_response":
		return []bus.Event{bus.HookResponse{
			Base:     bus.WithRunID(runID),
			HookID:   m.HookID,
			Outcome:  "ok",
			Stdout:   m.Stdout,
			Stderr:   m.Stderr,
			ExitCode: m.ExitCode,
		}}

	case "task_notification":
		return []bus.Event{bus.TaskNotification{Base: bus.WithRunID(runID), Content: m.Content}}

	case "files_persisted":
		var paths []string
		if len(m.Data) > 0 {
			_ = json.Unmarshal(m.Data, &paths)
		}
		return []bus.Event{bus.FilesPersisted{Base: bus.WithRunID(runID), Paths: paths}}

	case "auth_status":
		return []bus.Event{bus.AuthStatus{
			Base:             bus.WithRunID(runID),
			IsAuthenticating: m.IsAuthenticating,
			Output:           m.Output,
		}}

	default:
		s.UnknownEventCount++
		slog.Warn("unknown system subtype", "subtype", m.Subtype)
		body, _ := json.Marshal(m)
		return []bus.Event{bus.Raw{
			Base:   bus.WithRunID(runID),
			Source: "claude_system_" + m.Subtype,
			Body:   string(body),
		}}
	}
}

func (s *State) mapStreamEvent(runID string, m wire.StreamEvent) []bus.Event {
	inner, err := wire.ParseStreamEvent(m.Event)
	if err != nil || inner == nil {
		return nil
	}

	switch e := inner.(type) {
	case wire.ContentBlockStartEvent:
		block, err := e.ParsedBlock()
		if err != nil {
			return nil
		}
		switch block.Type {
		case wire.ContentBlockTypeToolUse:
			s.emittedToolIDs[block.ID] = block.Name
			s.inputJSONAccum[block.ID] = ""
			s.lastToolUseID = block.ID
			return []bus.Event{bus.ToolStart{
				Base:           bus.WithRunID(runID),
				ToolUseIDField: block.ID,
				Name:           block.Name,
				Input:          nil,
			}}
		case wire.ContentBlockTypeThinking:
			if block.Thinking != "" {
				return []bus.Event{bus.ThinkingDelta{Base: bus.WithRunID(runID), Thinking: block.Thinking}}
			}
		}
		return nil

	case wire.ContentBlockDeltaEvent:
		delta, err := e.ParsedDelta()
		if err != nil || delta == nil {
			return nil
		}
		switch d := delta.(type) {
		case wire.TextDelta:
			if d.Text == "" {
				return nil
			}
			return []bus.Event{bus.MessageDelta{Base: bus.WithRunID(runID), Text: d.Text}}
		case wire.ThinkingDelta:
			return []bus.Event{bus.ThinkingDelta{Base: bus.WithRunID(runID), Thinking: d.Thinking}}
		case wire.InputJSONDelta:
			id := s.lastToolUseID
			s.inputJSONAccum[id] += d.PartialJSON
			return []bus.Event{bus.ToolInputDelta{
				Base:           bus.WithRunID(runID),
				ToolUseIDField: id,
				PartialJSON:    d.PartialJSON,
			}}
		}
		return nil

	case wire.ContentBlockStopEvent, wire.MessageStopEvent:
		return nil

	default:
		return nil
	}
}

func (s *State) mapAssistant(runID string, m wire.AssistantMessage) []bus.Event {
	var events []bus.Event

	blocks, _ := m.Message.Content.AsBlocks()
	var textParts []string
	for _, b := range blocks {
		switch b.Type {
		case wire.ContentBlockTypeText:
			if b.Text != "" {
				textParts = append(textParts, b.Text)
			}
		case wire.ContentBlockTypeToolUse:
			_, alreadySeen := s.emittedToolIDs[b.ID]
			s.emittedToolIDs[b.ID] = b.Name
			if !alreadySeen {
				events = append(events, bus.ToolStart{
					Base:           bus.WithRunID(runID),
					ToolUseIDField: b.ID,
					Name:           b.Name,
					Input:          b.Input,
				})
			}
		}
	}

	text := strings.Join(textParts, "")
	if text != "" || len(blocks) > 0 {
		msgID := m.Message.ID
		if msgID == "" {
			msgID = uuid.NewString()
		}
		var usage *bus.MessageUsage
		if m.Message.Usage.InputTokens != 0 || m.Message.Usage.OutputTokens != 0 {
			usage = &bus.MessageUsage{
				InputTokens:              m.Message.Usage.InputTokens,
				OutputTokens:             m.Message.Usage.OutputTokens,
				CacheReadInputTokens:     m.Message.Usage.CacheReadInputTokens,
				CacheCreationInputTokens: m.Message.Usage.CacheCreationInputTokens,
			}
		}
		events = append(events, bus.MessageComplete{
			Base:       bus.WithRunID(runID),
			MessageID:  msgID,
			Model:      m.Message.Model,
			Text:       text,
			StopReason: m.Message.StopReason,
			Usage:      usage,
		})
	}

	return events
}

func (s *State) mapUser(runID string, m wire.UserMessage) []bus.Event {
	if str, ok := m.Message.Content.AsString(); ok {
		if strings.HasPrefix(str, localCommandStdoutOpen) {
			inner := strings.TrimPrefix(str, localCommandStdoutOpen)
			inner = strings.TrimSuffix(inner, localCommandStdoutClose)
			s.ClearPendingSlashCommand()
			return []bus.Event{bus.CommandOutput{Base: bus.WithRunID(runID), Content: inner}}
		}
		return nil
	}

	blocks, ok := m.Message.Content.AsBlocks()
	if !ok {
		return nil
	}

	var structured interface{}
	if len(m.ToolUseResult) > 0 {
		structured = m.ToolUseResult
	}

	var events []bus.Event
	for _, b := range blocks {
		if b.Type != wire.ContentBlockTypeToolResult {
			continue
		}
		name := s.emittedToolIDs[b.ToolUseID]
		status := "success"
		if b.IsError {
			status = "error"
		}
		events = append(events, bus.ToolEnd{
			Base:             bus.WithRunID(runID),
			ToolUseIDField:   b.ToolUseID,
			Name:             name,
			Output:           b.Content,
			Status:           status,
			StructuredResult: structured,
		})
	}
	return events
}

func (s *State) mapResult(runID string, m wire.ResultMessage) []bus.Event {
	var events []bus.Event

	modelUsage := make(map[string]bus.ModelCost, len(m.ModelUsage))
	var totalCost float64
	for model, u := range m.ModelUsage {
		cost := pricing.EstimateCost(model, u.InputTokens, u.OutputTokens, u.CacheReadInputTokens, u.CacheCreationInputTokens)
		totalCost += cost
		modelUsage[model] = bus.ModelCost{InputTokens: u.InputTokens, OutputTokens: u.OutputTokens, CostUSD: cost}
	}
	if len(m.ModelUsage) == 0 {
		totalCost = pricing.EstimateCost(
			"", m.Usage.InputTokens, m.Usage.OutputTokens,
			m.Usage.CacheReadInputTokens, m.Usage.CacheCreationInputTokens,
		)
	}

	events = append(events, bus.UsageUpdate{
		Base:                  bus.WithRunID(runID),
		InputTokens:           m.Usage.InputTokens,
		OutputTokens:          m.Usage.OutputTokens,
		CacheReadTokens:       m.Usage.CacheReadInputTokens,
		CacheCreationTokens:   m.Usage.CacheCreationInputTokens,
		TotalCostUSD:          totalCost,
		ModelUsage:            modelUsage,
		DurationAPIMs:         m.DurationAPIMs,
		DurationMs:            m.DurationMs,
		NumTurns:              m.NumTurns,
		ServiceTier:           m.Usage.ServiceTier,
		WebFetchRequests:      m.Usage.ServerToolUse.WebFetchRequests,
		CacheCreation5mTokens: m.Usage.CacheCreation.Ephemeral5mInputTokens,
		CacheCreation1hTokens: m.Usage.CacheCreation.Ephemeral1hInputTokens,
	})

	s.gotResultEvent = true
	s.resultSubtype = m.Subtype

	if strings.HasPrefix(m.Subtype, "error") {
		errMsg := m.Error
		if errMsg == "" && len(m.Errors) > 0 {
			errMsg = strings.Join(m.Errors, "; ")
		}
		events = append(events, bus.RunState{Base: bus.WithRunID(runID), State: "failed", Error: errMsg})
	} else {
		events = append(events, bus.RunState{Base: bus.WithRunID(runID), State: "idle"})
	}

	if s.pendingSlashCommand != "" {
		cmd := s.pendingSlashCommand
		s.pendingSlashCommand = ""
		events = append(events, bus.CommandOutput{
			Base:    bus.WithRunID(runID),
			Content: fmt.Sprintf("The %s output is not available in this CLI version.", cmd),
		})
	}

	for _, d := range m.PermissionDenials {
		events = append(events, bus.PermissionDenied{
			Base:           bus.WithRunID(runID),
			ToolUseIDField: d.ToolUseID,
			ToolName:       d.ToolName,
			Message:        d.Message,
		})
	}

	return events
}

// ValidateBusEvent returns a non-empty warning string only for tool-class
// events carrying an empty tool_use_id; state-class events (RunState,
// SessionInit, UsageUpdate) always pass, even with missing fields, since
// the turn and persistence state machines must never lose them.
func ValidateBusEvent(e bus.Event) string {
	switch e.Tag() {
	case bus.TagRunState, bus.TagSessionInit, bus.TagUsageUpdate:
		return ""
	case bus.TagToolStart, bus.TagToolInputDelta, bus.TagToolEnd, bus.TagToolProgress,
		bus.TagToolUseSummary, bus.TagPermissionDenied:
		if e.ToolUseID() == "" {
			return "tool-class event with empty tool_use_id"
		}
		return ""
	default:
		return ""
	}
}

