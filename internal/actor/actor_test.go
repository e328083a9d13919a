package actor

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bazelment/sessioncore/internal/bus"
	"github.com/bazelment/sessioncore/internal/eventlog"
)

// collectingSink is a Sink that records every envelope published. The
// mutex matters: the actor publishes from its own goroutine while the test
// reads from the main one.
type collectingSink struct {
	mu   sync.Mutex
	envs []bus.Envelope
}

func (s *collectingSink) Publish(env bus.Envelope) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.envs = append(s.envs, env)
}

func (s *collectingSink) events() []bus.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]bus.Event, len(s.envs))
	for i, e := range s.envs {
		out[i] = e.Event
	}
	return out
}

func (s *collectingSink) waitFor(t *testing.T, timeout time.Duration, pred func(bus.Event) bool) bus.Event {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		for _, e := range s.events() {
			if pred(e) {
				return e
			}
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for matching event; got %#v", s.events())
	return nil
}

// shScript spawns /bin/sh -c script as a stand-in agent CLI, wired up
// exactly like a real Claude CLI child: same pipes, same process group.
func shScript(t *testing.T, script string) *Child {
	t.Helper()
	child, err := StartChild(context.Background(), ChildConfig{
		Path: "/bin/sh",
		Args: []string{"-c", script},
	})
	require.NoError(t, err)
	return child
}

func newTestActor(t *testing.T, child *Child, hooks Hooks) (*Handle, *collectingSink) {
	t.Helper()
	sink := &collectingSink{}
	h := Spawn(Config{
		RunID:       "run-1",
		Child:       child,
		EventWriter: eventlog.NewWriter(t.TempDir()),
		Sink:        sink,
		Hooks:       hooks,
	})
	return h, sink
}

const initLine = `{"type":"system","subtype":"init","session_id":"sess-1"}`
const resultIdleLine = `{"type":"result","subtype":"success","duration_ms":1,"duration_api_ms":1,"num_turns":1,"usage":{"input_tokens":1,"output_tokens":1}}`

func stopAndWait(t *testing.T, h *Handle) {
	t.Helper()
	reply := make(chan struct{})
	h.Commands <- Stop{Reply: reply}
	select {
	case <-h.Done:
	case <-time.After(3 * time.Second):
		t.Fatal("actor did not shut down after Stop")
	}
}

func TestActor_SessionInit_PublishesInitThenRunning(t *testing.T) {
	child := shScript(t, `printf '%s\n' '`+initLine+`'; sleep 5`)
	var gotSessionID string
	h, sink := newTestActor(t, child, Hooks{OnSessionID: func(id string) { gotSessionID = id }})
	defer stopAndWait(t, h)

	sink.waitFor(t, 2*time.Second, func(e bus.Event) bool {
		_, ok := e.(bus.SessionInit)
		return ok
	})
	sink.waitFor(t, 2*time.Second, func(e bus.Event) bool {
		rs, ok := e.(bus.RunState)
		return ok && rs.State == "running"
	})
	assert.Equal(t, "sess-1", gotSessionID)
}

func TestActor_SendMessage_CompletesTurn(t *testing.T) {
	// Discards whatever line the turn's user message arrives as, then
	// reports a successful result.
	script := `read _line; printf '%s\n' '` + resultIdleLine + `'`
	child := shScript(t, script)
	var terminalState string
	h, sink := newTestActor(t, child, Hooks{OnTerminal: func(state string, _ *int, _ string) { terminalState = state }})
	defer stopAndWait(t, h)

	reply := make(chan error, 1)
	h.Commands <- SendMessage{Text: "hello", Reply: reply}
	require.NoError(t, <-reply)

	sink.waitFor(t, 2*time.Second, func(e bus.Event) bool {
		rs, ok := e.(bus.RunState)
		return ok && rs.State == "idle"
	})
	assert.Eventually(t, func() bool { return terminalState == "idle" }, 2*time.Second, 5*time.Millisecond)
}

func TestActor_FirstNormalTurn_TriggersAutoContext(t *testing.T) {
	// Every line read gets the same canned success result, whether it's
	// the original message or the barrier-forced "/context" turn.
	script := `while read -r _line; do printf '%s\n' '` + resultIdleLine + `'; done`
	child := shScript(t, script)

	extracted := make(chan bool, 1)
	h, sink := newTestActor(t, child, Hooks{OnContextExtracted: func(_ string, timedOut bool) {
		extracted <- timedOut
	}})
	defer stopAndWait(t, h)

	reply := make(chan error, 1)
	h.Commands <- SendMessage{Text: "first message", Reply: reply}
	require.NoError(t, <-reply)

	select {
	case timedOut := <-extracted:
		assert.False(t, timedOut)
	case <-time.After(2 * time.Second):
		t.Fatal("auto-context turn never completed")
	}

	// Two terminal RunStates: the user turn's and the barrier-forced
	// internal turn never reaches the public bus, so only one "idle" shows
	// up on the sink.
	idleCount := 0
	for _, e := range sink.events() {
		if rs, ok := e.(bus.RunState); ok && rs.State == "idle" {
			idleCount++
		}
	}
	assert.Equal(t, 1, idleCount)
}

func TestActor_TwoNormalTurnsEnqueuedBackToBack_BothTriggerAutoContext(t *testing.T) {
	// The first read (turn A's user message) is delayed so the test can
	// enqueue turn B before A's terminal result arrives, reaching the
	// auto_ctx_id-at-enqueue path rather than auto_ctx_id-at-completion.
	script := `n=0; while read -r _line; do n=$((n+1)); if [ "$n" -eq 1 ]; then sleep 0.3; fi; printf '%s\n' '` + resultIdleLine + `'; done`
	child := shScript(t, script)

	extracted := make(chan bool, 2)
	h, sink := newTestActor(t, child, Hooks{OnContextExtracted: func(_ string, timedOut bool) {
		extracted <- timedOut
	}})
	defer stopAndWait(t, h)

	replyA := make(chan error, 1)
	replyB := make(chan error, 1)
	h.Commands <- SendMessage{Text: "first message", Reply: replyA}
	h.Commands <- SendMessage{Text: "second message", Reply: replyB}

	require.NoError(t, <-replyA)
	require.NoError(t, <-replyB)

	for i := 0; i < 2; i++ {
		select {
		case timedOut := <-extracted:
			assert.False(t, timedOut)
		case <-time.After(3 * time.Second):
			t.Fatalf("expected 2 auto-context triggers, only got %d", i)
		}
	}

	idleCount := 0
	for _, e := range sink.events() {
		if rs, ok := e.(bus.RunState); ok && rs.State == "idle" {
			idleCount++
		}
	}
	assert.Equal(t, 2, idleCount)
}

func TestActor_Stop_TerminatesChildWithinGracePeriod(t *testing.T) {
	// A busy loop in the shell itself, with TERM ignored and no
	// subprocess to carry the default disposition instead: only SIGKILL
	// can end this one, forcing Stop's escalation path.
	child := shScript(t, `trap '' TERM; while true; do :; done`)
	h, _ := newTestActor(t, child, Hooks{})

	reply := make(chan struct{})
	start := time.Now()
	h.Commands <- Stop{Reply: reply}

	select {
	case <-h.Done:
	case <-time.After(3 * time.Second):
		t.Fatal("actor did not shut down after Stop")
	}
	elapsed := time.Since(start)
	assert.GreaterOrEqual(t, elapsed, 500*time.Millisecond, "should wait out the SIGTERM grace period")
	assert.Less(t, elapsed, 2*time.Second, "should escalate to SIGKILL rather than hang")
}
