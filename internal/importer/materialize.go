package importer

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/bazelment/sessioncore/internal/eventlog"
	"github.com/bazelment/sessioncore/internal/parser"
)

// Format selects which envelope stripper Materialize applies to each line
// of the input transcript.
type Format string

const (
	FormatLiveNDJSON  Format = "live_ndjson"
	FormatSDKRecorder Format = "sdk_recorder"
	FormatRawJSONL    Format = "raw_jsonl"
)

// Result summarizes one Materialize run.
type Result struct {
	LinesRead      int
	EventsWritten  int
	MetaOnlyLines  int
	SkippedBlank   int
	ParseWarnCount int
}

// Materialize reads a recorded transcript in the given format line by line,
// strips each line's envelope, maps it through a fresh parser.State exactly
// as internal/actor maps live output, and appends the resulting bus events
// to runID's event log via w. isResume is forwarded to the parser
// accumulator unchanged (an imported transcript of a resumed session should
// not synthesize a second RunState("running")).
//
// Entries that carry no vocabulary message (raw JSONL's importer-only
// types, and system subtypes with no inner message) are counted in
// Result.MetaOnlyLines and otherwise dropped: nothing in the bus vocabulary
// exists yet to carry file-history snapshots, queue operations, PR links,
// or tool-free progress pings. They are not forwarded to the caller.
func Materialize(r io.Reader, format Format, runID string, isResume bool, w *eventlog.Writer) (Result, error) {
	var res Result
	state := parser.New(isResume)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			res.SkippedBlank++
			continue
		}
		res.LinesRead++

		msg, ts, err := stripEnvelope(line, format, &res)
		if err != nil {
			return res, fmt.Errorf("line %d: %w", res.LinesRead, err)
		}
		if msg == nil {
			continue
		}

		events, err := state.MapEvent(runID, msg)
		if err != nil {
			res.ParseWarnCount++
			continue
		}
		for _, evt := range events {
			if ts.IsZero() {
				if werr := w.WriteBusEvent(runID, evt); werr != nil {
					return res, fmt.Errorf("write event: %w", werr)
				}
			} else if _, werr := w.WriteBusEventWithTS(runID, evt, ts); werr != nil {
				return res, fmt.Errorf("write event: %w", werr)
			}
			res.EventsWritten++
		}
	}
	if err := scanner.Err(); err != nil {
		return res, fmt.Errorf("scan transcript: %w", err)
	}

	res.ParseWarnCount += state.ParseWarnCount
	return res, nil
}

// stripEnvelope dispatches to the format-specific stripper and returns the
// reconstructed vocabulary message bytes (nil if the line carries none)
// plus the timestamp to stamp the resulting event(s) with, if the format
// carries one.
func stripEnvelope(line []byte, format Format, res *Result) (msg []byte, ts time.Time, err error) {
	switch format {
	case FormatLiveNDJSON:
		msg, err = FromLiveNDJSON(line)
		return msg, time.Time{}, err

	case FormatSDKRecorder:
		msg, ts, _, err = FromSDKRecorder(line)
		return msg, ts, err

	case FormatRawJSONL:
		var meta *RawEnvelopeMeta
		msg, meta, err = FromRawJSONL(line)
		if err != nil {
			return nil, time.Time{}, err
		}
		if msg == nil {
			res.MetaOnlyLines++
			return nil, time.Time{}, nil
		}
		if meta != nil {
			ts = meta.Timestamp
		}
		return msg, ts, nil

	default:
		return nil, time.Time{}, fmt.Errorf("unknown transcript format %q", format)
	}
}

// DetectFormat sniffs a single sample line to pick which Format applies, so
// a caller importing an unlabeled file doesn't have to know its origin
// ahead of time. It favors the raw JSONL interpretation whenever the line
// carries a "sessionId" or "parentUuid" field, since live NDJSON and the
// SDK recorder envelope never do.
func DetectFormat(sampleLine []byte) Format {
	var probe struct {
		Timestamp  string          `json:"timestamp"`
		Direction  string          `json:"direction"`
		Message    json.RawMessage `json:"message"`
		SessionID  string          `json:"sessionId"`
		ParentUUID string          `json:"parentUuid"`
	}
	if err := json.Unmarshal(sampleLine, &probe); err != nil {
		return FormatLiveNDJSON
	}
	if probe.SessionID != "" || probe.ParentUUID != "" {
		return FormatRawJSONL
	}
	if probe.Direction != "" && len(probe.Message) > 0 {
		return FormatSDKRecorder
	}
	return FormatLiveNDJSON
}
