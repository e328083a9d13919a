// Package eventlog persists bus events to a per-run append-only JSONL log
// and assigns each one a dense, gap-free sequence number.
package eventlog

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/bazelment/sessioncore/internal/bus"
)

// gcThreshold is the run count above which Writer sweeps idle entries from
// its in-memory seq table. Matches the source's per-run lock map GC trigger.
const gcThreshold = 50

// gcIdleAfter is how long a run's seq entry may go unused before a sweep
// reclaims it. There is no strong-reference-count signal in Go the way
// there is with an Arc elsewhere in this lineage, so idleness stands in for
// "the session that owned this run_id has gone away".
const gcIdleAfter = 10 * time.Minute

// tailScanBytes bounds how much of an existing log Writer reads back when
// recovering the next seq for a run it has not seen yet, so resuming a long
// session does not require reading the whole file.
const tailScanBytes = 4096

type runSeq struct {
	mu       sync.Mutex
	next     uint64
	lastUsed time.Time
}

// Writer assigns seq numbers and appends bus events to baseDir/<run_id>/events.jsonl.
// Each run gets its own lock so concurrent writes to unrelated runs never
// block each other; the Writer's own lock is held only long enough to
// get-or-create that per-run entry.
type Writer struct {
	baseDir string

	mu   sync.Mutex
	runs map[string]*runSeq
}

// NewWriter returns a Writer rooted at baseDir. baseDir is created lazily,
// per run, on first write.
func NewWriter(baseDir string) *Writer {
	return &Writer{baseDir: baseDir, runs: make(map[string]*runSeq)}
}

func (w *Writer) runDir(runID string) string {
	return filepath.Join(w.baseDir, runID)
}

func (w *Writer) eventsPath(runID string) string {
	return filepath.Join(w.runDir(runID), "events.jsonl")
}

// acquire returns the per-run seq counter for runID, recovering it from the
// existing log's tail if this Writer has not assigned a seq for runID yet.
func (w *Writer) acquire(runID string) *runSeq {
	w.mu.Lock()
	defer w.mu.Unlock()

	if len(w.runs) > gcThreshold {
		cutoff := time.Now().Add(-gcIdleAfter)
		for id, rs := range w.runs {
			if rs.lastUsed.Before(cutoff) {
				delete(w.runs, id)
			}
		}
	}

	rs, ok := w.runs[runID]
	if !ok {
		rs = &runSeq{next: w.recoverSeq(runID)}
		w.runs[runID] = rs
	}
	rs.lastUsed = time.Now()
	return rs
}

// recoverSeq scans the tail of runID's log for the highest seq already
// written and returns one past it, or 1 if the log is absent, empty, or
// unreadable. Only the last tailScanBytes are read; the first line of that
// tail is discarded since the seek may have landed mid-line.
func (w *Writer) recoverSeq(runID string) uint64 {
	f, err := os.Open(w.eventsPath(runID))
	if err != nil {
		return 1
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || info.Size() == 0 {
		return 1
	}

	seeked := info.Size() > tailScanBytes
	if seeked {
		if _, err := f.Seek(-tailScanBytes, io.SeekEnd); err != nil {
			return 1
		}
	}

	buf, err := io.ReadAll(f)
	if err != nil {
		return 1
	}

	lines := strings.Split(string(buf), "\n")
	if seeked && len(lines) > 0 {
		lines = lines[1:]
	}

	var maxSeq uint64
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var probe struct {
			Seq uint64 `json:"seq"`
		}
		if err := json.Unmarshal([]byte(line), &probe); err != nil {
			continue
		}
		if probe.Seq > maxSeq {
			maxSeq = probe.Seq
		}
	}
	return maxSeq + 1
}

// WriteBusEvent assigns the next seq for runID and appends event, stamped
// with the current time.
func (w *Writer) WriteBusEvent(runID string, event bus.Event) error {
	_, err := w.WriteBusEventWithTS(runID, event, time.Now())
	return err
}

// WriteBusEventWithTS is WriteBusEvent with a caller-supplied timestamp; it
// returns the seq assigned to event.
func (w *Writer) WriteBusEventWithTS(runID string, event bus.Event, ts time.Time) (uint64, error) {
	rs := w.acquire(runID)

	rs.mu.Lock()
	defer rs.mu.Unlock()

	seq := rs.next
	rs.next++

	if err := os.MkdirAll(w.runDir(runID), 0o755); err != nil {
		return 0, fmt.Errorf("ensure run dir: %w", err)
	}

	line, err := json.Marshal(bus.NewEnvelope(seq, ts, event))
	if err != nil {
		return 0, fmt.Errorf("marshal envelope: %w", err)
	}

	f, err := os.OpenFile(w.eventsPath(runID), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return 0, fmt.Errorf("open events log: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return 0, fmt.Errorf("append event: %w", err)
	}
	return seq, nil
}

// ListBusEvents returns the replayable events in runID's log with seq
// greater than sinceSeq, in file order. Non-replayable tags (Raw, stream
// noise) are filtered out so a reconnect payload stays bounded.
func (w *Writer) ListBusEvents(runID string, sinceSeq uint64) ([]bus.Envelope, error) {
	data, err := os.ReadFile(w.eventsPath(runID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read events log: %w", err)
	}

	var events []bus.Envelope
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var env bus.Envelope
		if err := json.Unmarshal([]byte(line), &env); err != nil {
			continue
		}
		if env.Seq <= sinceSeq || !bus.IsReplayable(env.Event.Tag()) {
			continue
		}
		events = append(events, env)
	}
	return events, nil
}

// CountUserMessages reports how many user_message events runID's log holds
// and how many of those are not slash commands, for computing a resume
// baseline of the next turn_index.
func (w *Writer) CountUserMessages(runID string) (total int, normal int, err error) {
	data, readErr := os.ReadFile(w.eventsPath(runID))
	if readErr != nil {
		if os.IsNotExist(readErr) {
			return 0, 0, nil
		}
		return 0, 0, fmt.Errorf("read events log: %w", readErr)
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		// Cheap pre-filter avoids unmarshaling the vast majority of lines,
		// which are raw CLI stream noise.
		if line == "" || !strings.Contains(line, `"user_message"`) {
			continue
		}
		var env bus.Envelope
		if err := json.Unmarshal([]byte(line), &env); err != nil {
			continue
		}
		um, ok := env.Event.(bus.UserMessage)
		if !ok {
			continue
		}
		total++
		if !strings.HasPrefix(strings.TrimSpace(um.Text), "/") {
			normal++
		}
	}
	return total, normal, nil
}

// copyRecord is the envelope shape used by CopyBusEvents, with Event kept
// as a raw payload so run_id can be rewritten without decoding into (and
// re-encoding from) a concrete event type.
type copyRecord struct {
	Type  bus.EventTag    `json:"type"`
	IsBus bool            `json:"_bus"`
	Seq   uint64          `json:"seq"`
	TS    json.RawMessage `json:"ts"`
	Event json.RawMessage `json:"event"`
}

// CopyBusEvents copies the content events (message and tool history, user
// messages) from fromRunID's log into toRunID's, for fork support.
// Lifecycle events (session_init, run_state, usage_update, permission
// events, raw) are excluded: the fork gets its own lifecycle. Copied events
// have their run_id rewritten to toRunID and are renumbered from seq 1, so
// the fork's log is self-consistent on its own.
func (w *Writer) CopyBusEvents(fromRunID, toRunID string) error {
	data, err := os.ReadFile(w.eventsPath(fromRunID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read source events: %w", err)
	}

	if err := os.MkdirAll(w.runDir(toRunID), 0o755); err != nil {
		return fmt.Errorf("ensure fork run dir: %w", err)
	}

	runIDJSON, err := json.Marshal(toRunID)
	if err != nil {
		return fmt.Errorf("marshal fork run id: %w", err)
	}

	var out strings.Builder
	var copied uint64
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var rec copyRecord
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			continue
		}
		if !rec.IsBus || !bus.IsContent(rec.Type) {
			continue
		}

		var payload map[string]json.RawMessage
		if err := json.Unmarshal(rec.Event, &payload); err != nil {
			continue
		}
		payload["run_id"] = runIDJSON
		rewritten, err := json.Marshal(payload)
		if err != nil {
			continue
		}

		copied++
		rec.Seq = copied
		rec.Event = rewritten

		rewrittenLine, err := json.Marshal(rec)
		if err != nil {
			continue
		}
		out.Write(rewrittenLine)
		out.WriteByte('\n')
	}

	if err := os.WriteFile(w.eventsPath(toRunID), []byte(out.String()), 0o644); err != nil {
		return fmt.Errorf("write fork events: %w", err)
	}
	return nil
}
