package parser

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/bazelment/sessioncore/internal/bus"
)

func TestMapEvent_SystemInit(t *testing.T) {
	s := New(false)
	raw := []byte(`{"type":"system","subtype":"init","session_id":"sess-1","model":"claude-opus-4-5","cwd":"/work","tools":["bash","edit"],"mcp_servers":[{"name":"fs","status":"connected"},{"status":"connected"}]}`)

	events, err := s.MapEvent("run-1", raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected init + running, got %d events", len(events))
	}

	init, ok := events[0].(bus.SessionInit)
	if !ok {
		t.Fatalf("expected SessionInit, got %T", events[0])
	}
	if init.SessionID != "sess-1" || init.Model != "claude-opus-4-5" {
		t.Errorf("unexpected init fields: %+v", init)
	}
	if len(init.MCPServers) != 1 {
		t.Errorf("expected nameless mcp server dropped, got %d", len(init.MCPServers))
	}
	if s.ParseWarnCount != 1 {
		t.Errorf("expected 1 parse warning for dropped mcp server, got %d", s.ParseWarnCount)
	}

	state, ok := events[1].(bus.RunState)
	if !ok || state.State != "running" {
		t.Fatalf("expected RunState running, got %+v", events[1])
	}

	// A second init (e.g. after a resume marker) must not re-emit running.
	events2, err := s.MapEvent("run-1", raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events2) != 1 {
		t.Errorf("expected only SessionInit on second init, got %d events", len(events2))
	}
}

func TestMapEvent_SystemInit_Resumed(t *testing.T) {
	s := New(true)
	raw := []byte(`{"type":"system","subtype":"init","session_id":"sess-1","cwd":"/work"}`)

	events, err := s.MapEvent("run-1", raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("resumed session must not synthesize RunState running, got %d events", len(events))
	}
}

func TestMapEvent_StreamToolUse(t *testing.T) {
	s := New(false)
	start := []byte(`{"type":"stream_event","session_id":"s","uuid":"u","event":{"type":"content_block_start","index":0,"content_block":{"type":"tool_use","id":"tu_1","name":"bash"}}}`)
	events, err := s.MapEvent("run-1", start)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	ts, ok := events[0].(bus.ToolStart)
	if !ok || ts.ToolUseID() != "tu_1" || ts.Name != "bash" {
		t.Fatalf("unexpected ToolStart: %+v", events[0])
	}

	delta := []byte(`{"type":"stream_event","session_id":"s","uuid":"u","event":{"type":"content_block_delta","index":0,"delta":{"type":"input_json_delta","partial_json":"{\"cmd\":"}}}`)
	events, err = s.MapEvent("run-1", delta)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tid, ok := events[0].(bus.ToolInputDelta)
	if !ok || tid.ToolUseID() != "tu_1" {
		t.Fatalf("expected ToolInputDelta routed to tu_1, got %+v", events[0])
	}
}

func TestMapEvent_AssistantDedupesStreamedToolStart(t *testing.T) {
	s := New(false)
	start := []byte(`{"type":"stream_event","session_id":"s","uuid":"u","event":{"type":"content_block_start","index":0,"content_block":{"type":"tool_use","id":"tu_1","name":"bash"}}}`)
	if _, err := s.MapEvent("run-1", start); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	assistant := []byte(`{"type":"assistant","session_id":"s","uuid":"u","message":{"role":"assistant","content":[{"type":"tool_use","id":"tu_1","name":"bash","input":{"cmd":"ls"}},{"type":"text","text":"done"}]}}`)
	events, err := s.MapEvent("run-1", assistant)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, e := range events {
		if e.Tag() == bus.TagToolStart {
			t.Fatalf("tool_use already seen via streaming must not re-emit ToolStart")
		}
	}

	mc, ok := events[len(events)-1].(bus.MessageComplete)
	if !ok || mc.Text != "done" {
		t.Fatalf("expected trailing MessageComplete with text 'done', got %+v", events)
	}
}

func TestMapEvent_UserToolResultCarriesTopLevelStructuredResult(t *testing.T) {
	s := New(false)
	stream := []byte(`{"type":"stream_event","session_id":"s","uuid":"u","event":{"type":"content_block_start","index":0,"content_block":{"type":"tool_use","id":"tu_1","name":"bash"}}}`)
	if _, err := s.MapEvent("run-1", stream); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	raw := []byte(`{"type":"user","session_id":"s","uuid":"u","message":{"role":"user","content":[{"type":"tool_result","tool_use_id":"tu_1","content":"3 files"}]},"tool_use_result":{"filenames":["a.go","b.go","c.go"]}}`)
	events, err := s.MapEvent("run-1", raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 ToolEnd event, got %d", len(events))
	}
	te, ok := events[0].(bus.ToolEnd)
	if !ok {
		t.Fatalf("expected ToolEnd, got %T", events[0])
	}
	raw0, ok := te.StructuredResult.(json.RawMessage)
	if !ok {
		t.Fatalf("expected StructuredResult to carry the top-level tool_use_result, got %T", te.StructuredResult)
	}
	if !strings.Contains(string(raw0), `"a.go"`) {
		t.Errorf("expected tool_use_result payload in StructuredResult, got %s", raw0)
	}
}

func TestMapEvent_UserLocalCommandOutput(t *testing.T) {
	s := New(false)
	s.SetPendingSlashCommand("/cost")

	raw := []byte(`{"type":"user","session_id":"s","uuid":"u","message":{"role":"user","content":"<local-command-stdout>tokens used: 42</local-command-stdout>"}}`)
	events, err := s.MapEvent("run-1", raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	co, ok := events[0].(bus.CommandOutput)
	if !ok || co.Content != "tokens used: 42" {
		t.Fatalf("unexpected CommandOutput: %+v", events[0])
	}
	if got, _ := s.GotResult(); got {
		t.Errorf("command output must not mark a result observed")
	}
	if s.pendingSlashCommand != "" {
		t.Errorf("pending slash command must be cleared once native output arrives")
	}
}

func TestMapEvent_ResultFallbackSlashCommand(t *testing.T) {
	s := New(false)
	s.SetPendingSlashCommand("/cost")

	raw := []byte(`{"type":"result","session_id":"s","uuid":"u","subtype":"success","result":"ok","usage":{"input_tokens":10,"output_tokens":5}}`)
	events, err := s.MapEvent("run-1", raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var sawFallback bool
	for _, e := range events {
		if co, ok := e.(bus.CommandOutput); ok {
			sawFallback = true
			if co.Content == "" {
				t.Errorf("expected non-empty fallback command output")
			}
		}
	}
	if !sawFallback {
		t.Errorf("expected synthesized CommandOutput fallback for unconsumed slash command")
	}
	if got, subtype := s.GotResult(); !got || subtype != "success" {
		t.Errorf("expected result observed with subtype success, got %v/%q", got, subtype)
	}
}

func TestMapEvent_ResultError(t *testing.T) {
	s := New(false)
	raw := []byte(`{"type":"result","session_id":"s","uuid":"u","subtype":"error_max_turns","result":"","is_error":true,"errors":["too many turns"],"usage":{"input_tokens":1,"output_tokens":1}}`)
	events, err := s.MapEvent("run-1", raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var gotFailed bool
	for _, e := range events {
		if rs, ok := e.(bus.RunState); ok {
			if rs.State != "failed" {
				t.Fatalf("expected failed state, got %q", rs.State)
			}
			if rs.Error != "too many turns" {
				t.Errorf("expected error message from Errors slice, got %q", rs.Error)
			}
			gotFailed = true
		}
	}
	if !gotFailed {
		t.Fatalf("expected a RunState event among %+v", events)
	}
}

func TestMapEvent_ResultRecalculatesCost(t *testing.T) {
	s := New(false)
	raw := []byte(`{"type":"result","session_id":"s","uuid":"u","subtype":"success","result":"ok","total_cost_usd":999.0,"modelUsage":{"claude-sonnet-4-5":{"inputTokens":1000000,"outputTokens":1000000,"costUSD":999.0}}}`)
	events, err := s.MapEvent("run-1", raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	uu, ok := events[0].(bus.UsageUpdate)
	if !ok {
		t.Fatalf("expected UsageUpdate first, got %T", events[0])
	}
	if uu.TotalCostUSD == 999.0 {
		t.Errorf("expected recalculated cost, not the subprocess-reported figure")
	}
	want := 3.0 + 15.0 // sonnet rates per million tokens, 1M in + 1M out
	if uu.TotalCostUSD != want {
		t.Errorf("expected recalculated cost %.4f, got %.4f", want, uu.TotalCostUSD)
	}
}

func TestMapEvent_UnknownTopLevelType(t *testing.T) {
	s := New(false)
	raw := []byte(`{"type":"future_message","foo":"bar"}`)
	events, err := s.MapEvent("run-1", raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 Raw event, got %d", len(events))
	}
	raw0, ok := events[0].(bus.Raw)
	if !ok || raw0.Source != "claude_future_message" {
		t.Fatalf("unexpected Raw event: %+v", events[0])
	}
	if s.UnknownEventCount != 1 {
		t.Errorf("expected UnknownEventCount 1, got %d", s.UnknownEventCount)
	}
}

func TestMapEvent_MissingTypeDropped(t *testing.T) {
	s := New(false)
	raw := []byte(`{"foo":"bar"}`)
	events, err := s.MapEvent("run-1", raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if events != nil {
		t.Fatalf("expected no events for missing type, got %+v", events)
	}
	if s.DroppedCount != 1 {
		t.Errorf("expected DroppedCount 1, got %d", s.DroppedCount)
	}
}

func TestValidateBusEvent_ToolClassRequiresToolUseID(t *testing.T) {
	if warn := ValidateBusEvent(bus.ToolStart{}); warn == "" {
		t.Error("expected warning for ToolStart with empty tool_use_id")
	}
	if warn := ValidateBusEvent(bus.ToolStart{ToolUseIDField: "tu_1"}); warn != "" {
		t.Errorf("expected no warning once tool_use_id is set, got %q", warn)
	}
}

func TestValidateBusEvent_StateClassAlwaysPasses(t *testing.T) {
	if warn := ValidateBusEvent(bus.RunState{}); warn != "" {
		t.Errorf("state-class events must never be rejected by validation, got %q", warn)
	}
	if warn := ValidateBusEvent(bus.SessionInit{}); warn != "" {
		t.Errorf("state-class events must never be rejected by validation, got %q", warn)
	}
}
