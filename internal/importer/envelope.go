// Package importer converts recorded agent CLI transcripts, in any of the
// three envelope formats this module encounters, into raw message bytes
// that internal/parser can map exactly as it maps a live session. No event
// produced through this package is distinguishable, once persisted, from
// one produced by a live internal/actor run.
package importer

import (
	"encoding/json"
	"fmt"
	"time"
)

// FromLiveNDJSON strips a bare NDJSON line. The line IS already a
// vocabulary message, so this is the identity transform.
func FromLiveNDJSON(line []byte) ([]byte, error) {
	return line, nil
}

// sdkRecorderEnvelope is the {timestamp, direction, message} shape a
// recorded SDK session writes per line.
type sdkRecorderEnvelope struct {
	Timestamp string          `json:"timestamp"`
	Direction string          `json:"direction"`
	Message   json.RawMessage `json:"message"`
}

// FromSDKRecorder strips the SDK recorder envelope and returns the inner
// vocabulary message bytes plus the envelope's timestamp and direction. A
// nil message (control-plane keepalive lines with no inner message) comes
// back as a nil slice with no error.
func FromSDKRecorder(line []byte) (msg []byte, ts time.Time, direction string, err error) {
	var env sdkRecorderEnvelope
	if err := json.Unmarshal(line, &env); err != nil {
		return nil, time.Time{}, "", fmt.Errorf("unmarshal SDK recorder envelope: %w", err)
	}

	ts, _ = time.Parse(time.RFC3339Nano, env.Timestamp)
	if len(env.Message) == 0 {
		return nil, ts, env.Direction, nil
	}
	return env.Message, ts, env.Direction, nil
}

// RawEnvelopeMeta carries the ~/.claude/projects/ native JSONL envelope
// fields that have no equivalent in the live vocabulary, for the
// importer-only entry types and for the caller to attach supplementary
// metadata (parent linkage, sidechain marking) alongside the mapped event.
type RawEnvelopeMeta struct {
	Type          string
	Subtype       string
	ParentUUID    string
	UUID          string
	GitBranch     string
	Version       string
	SessionID     string
	IsSidechain   bool
	Timestamp     time.Time
	DurationMs    int64
	Content       string
	Operation     string
	PRNumber      int
	PRURL         string
	PRRepository  string
	Data          json.RawMessage
	ToolUseResult json.RawMessage
	ErrorJSON     json.RawMessage
}

type rawJSONLEnvelope struct {
	Timestamp     string          `json:"timestamp"`
	Type          string          `json:"type"`
	Subtype       string          `json:"subtype,omitempty"`
	ParentUUID    string          `json:"parentUuid,omitempty"`
	UUID          string          `json:"uuid,omitempty"`
	GitBranch     string          `json:"gitBranch,omitempty"`
	Version       string          `json:"version,omitempty"`
	SessionID     string          `json:"sessionId,omitempty"`
	Content       string          `json:"content,omitempty"`
	Operation     string          `json:"operation,omitempty"`
	PRNumber      int             `json:"prNumber,omitempty"`
	PRURL         string          `json:"prUrl,omitempty"`
	PRRepository  string          `json:"prRepository,omitempty"`
	IsSidechain   bool            `json:"isSidechain,omitempty"`
	DurationMs    int64           `json:"durationMs,omitempty"`
	Message       json.RawMessage `json:"message,omitempty"`
	Data          json.RawMessage `json:"data,omitempty"`
	ToolUseResult json.RawMessage `json:"toolUseResult,omitempty"`
	Error         json.RawMessage `json:"error,omitempty"`
}

// FromRawJSONL strips the native ~/.claude/projects/ envelope and returns
// reconstructed top-level message bytes plus envelope metadata.
//
// The raw JSONL format wraps the inner "message" (which shares the
// {content, role, ...} shape the live vocabulary uses) with an outer
// "type" field plus envelope metadata (parentUuid, isSidechain, gitBranch,
// and so on).
//
// For entry types that carry no vocabulary message at all
// (file-history-snapshot, queue-operation, pr-link, progress, and system
// subtypes other than init) a nil message is returned with metadata only;
// the caller decides what, if anything, to synthesize from the metadata.
func FromRawJSONL(line []byte) (msg []byte, meta *RawEnvelopeMeta, err error) {
	var env rawJSONLEnvelope
	if err := json.Unmarshal(line, &env); err != nil {
		return nil, nil, fmt.Errorf("unmarshal raw JSONL envelope: %w", err)
	}

	ts, _ := time.Parse(time.RFC3339Nano, env.Timestamp)
	meta = &RawEnvelopeMeta{
		Type:          env.Type,
		Subtype:       env.Subtype,
		ParentUUID:    env.ParentUUID,
		UUID:          env.UUID,
		GitBranch:     env.GitBranch,
		Version:       env.Version,
		SessionID:     env.SessionID,
		IsSidechain:   env.IsSidechain,
		Timestamp:     ts,
		ToolUseResult: env.ToolUseResult,
	}

	switch env.Type {
	case "file-history-snapshot":
		return nil, meta, nil

	case "queue-operation":
		meta.Operation = env.Operation
		meta.Content = env.Content
		return nil, meta, nil

	case "pr-link":
		meta.PRNumber = env.PRNumber
		meta.PRURL = env.PRURL
		meta.PRRepository = env.PRRepository
		return nil, meta, nil

	case "progress":
		meta.Data = env.Data
		return nil, meta, nil

	case "system":
		// Subtypes that carry no inner "message": turn_duration,
		// api_error, compact_boundary, local_command.
		if env.Subtype != "" && env.Subtype != "init" {
			meta.Content = env.Content
			meta.DurationMs = env.DurationMs
			meta.ErrorJSON = env.Error
			return nil, meta, nil
		}
	}

	if len(env.Message) == 0 {
		// Bare top-level entries (e.g. a "system"/"init" line with no
		// nested message) are already in vocabulary shape.
		return line, meta, nil
	}

	composite, err := wrapForVocabulary(env.Message, env.Type)
	if err != nil {
		return nil, meta, fmt.Errorf("wrap raw JSONL message: %w", err)
	}
	return composite, meta, nil
}

// wrapForVocabulary reshapes a raw JSONL inner "message" field into the
// top-level {"type": ..., ...} shape internal/wire.ParseMessage expects.
//
// For assistant/user entries the inner message IS the message content
// ({role, content, usage, ...}), so it gets nested under a "message" key:
//
//	{"type": "assistant", "message": <inner>}
//
// For every other vocabulary type (result, system, stream_event) the inner
// fields sit at the top level already, so "type" is injected directly.
func wrapForVocabulary(inner json.RawMessage, envType string) ([]byte, error) {
	switch envType {
	case "assistant", "user":
		typeBytes, _ := json.Marshal(envType)
		wrapper := map[string]json.RawMessage{
			"type":    typeBytes,
			"message": inner,
		}
		return json.Marshal(wrapper)

	default:
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(inner, &obj); err != nil {
			return nil, err
		}
		typeBytes, _ := json.Marshal(envType)
		obj["type"] = typeBytes
		return json.Marshal(obj)
	}
}
